package model

import "time"

// UserModel maps the columns of users the post service reads and bumps.
type UserModel struct {
	ID           string `gorm:"type:uuid;primary_key"`
	Username     string
	ProfilePhoto string
	PostCount    int
	LastPostDate *time.Time
}

func (UserModel) TableName() string {
	return "users"
}

type SubscriptionModel struct {
	ID        string `gorm:"type:uuid;primary_key"`
	UserID    string `gorm:"type:uuid;uniqueIndex"`
	Plan      string
	Status    string
	PostCount int
	UpdatedAt time.Time
}

func (SubscriptionModel) TableName() string {
	return "subscriptions"
}
