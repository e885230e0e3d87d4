package entity

import "time"

type UserSummary struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	ProfilePhoto string `json:"profilePhoto"`
}

type Notification struct {
	ID         string      `json:"id"`
	UserID     string      `json:"-"`
	FromUserID string      `json:"-"`
	Type       string      `json:"type"`
	Read       bool        `json:"read"`
	PostID     *string     `json:"post"`
	CreatedAt  time.Time   `json:"createdAt"`
	User       UserSummary `json:"user"`
	FromUser   UserSummary `json:"fromUser"`
}
