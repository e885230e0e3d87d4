package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ConversationCollection = "conversations"
	MessageCollection      = "messages"
)

type ConversationDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Members     []string           `bson:"members"`
	PairKey     string             `bson:"pairKey"`
	LastMessage *string            `bson:"lastMessage"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

type MessageDocument struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty"`
	ConversationID       primitive.ObjectID `bson:"conversationId"`
	Sender               string             `bson:"sender"`
	SenderUsername       string             `bson:"senderUsername"`
	SenderProfilePhoto   string             `bson:"senderProfilePhoto"`
	Receiver             string             `bson:"receiver"`
	ReceiverUsername     string             `bson:"receiverUsername"`
	ReceiverProfilePhoto string             `bson:"receiverProfilePhoto"`
	Text                 string             `bson:"text"`
	CreatedAt            time.Time          `bson:"createdAt"`
}

// UserModel is the read-only view of users the chat service needs.
type UserModel struct {
	ID           string `gorm:"type:uuid;primary_key"`
	Username     string
	ProfilePhoto string
}

func (UserModel) TableName() string {
	return "users"
}
