package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationModel struct {
	ID         string  `gorm:"type:uuid;primary_key"`
	UserID     string  `gorm:"type:uuid;not null;index"`
	FromUserID string  `gorm:"type:uuid;not null"`
	Type       string  `gorm:"type:varchar(20);not null"`
	PostID     *string `gorm:"type:uuid"`
	Read       bool    `gorm:"not null"`
	DedupKey   *string `gorm:"type:varchar(200);uniqueIndex"`
	CreatedAt  time.Time

	User     UserModel `gorm:"foreignKey:UserID"`
	FromUser UserModel `gorm:"foreignKey:FromUserID"`
}

func (NotificationModel) TableName() string {
	return "notifications"
}

func (n *NotificationModel) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	return nil
}

type UserModel struct {
	ID           string `gorm:"type:uuid;primary_key"`
	Username     string
	ProfilePhoto string
}

func (UserModel) TableName() string {
	return "users"
}
