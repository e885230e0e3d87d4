package entity

import "time"

type User struct {
	ID           string `json:"_id"`
	Username     string `json:"username"`
	ProfilePhoto string `json:"profilePhoto"`
}

type Conversation struct {
	ID          string    `json:"_id"`
	Members     []string  `json:"members"`
	LastMessage *string   `json:"lastMessage"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Other returns the member that is not userID.
func (c *Conversation) Other(userID string) string {
	for _, m := range c.Members {
		if m != userID {
			return m
		}
	}
	return userID
}

func (c *Conversation) HasMember(userID string) bool {
	for _, m := range c.Members {
		if m == userID {
			return true
		}
	}
	return false
}

// Contact is an entry of the conversation list: a user from the caller's
// follow graph and the last message exchanged with them.
type Contact struct {
	User
	LastMessage *string `json:"lastMessage"`
}

type Message struct {
	ID                   string    `json:"_id"`
	ConversationID       string    `json:"conversationId"`
	Sender               string    `json:"sender"`
	SenderUsername       string    `json:"senderUsername"`
	SenderProfilePhoto   string    `json:"senderProfilePhoto"`
	Receiver             string    `json:"receiver"`
	ReceiverUsername     string    `json:"receiverUsername"`
	ReceiverProfilePhoto string    `json:"receiverProfilePhoto"`
	Text                 string    `json:"text"`
	CreatedAt            time.Time `json:"createdAt"`
}
