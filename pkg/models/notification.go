package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationType string

const (
	NotificationFollow   NotificationType = "follow"
	NotificationUnfollow NotificationType = "unfollow"
	NotificationLike     NotificationType = "like"
	NotificationDislike  NotificationType = "dislike"
	NotificationComment  NotificationType = "comment"
)

// Notification is addressed to UserID and caused by FromUserID. DedupKey is
// set for follow and like notifications and left NULL for comments.
type Notification struct {
	ID         string           `gorm:"type:uuid;primary_key" json:"id"`
	UserID     string           `gorm:"type:uuid;not null;index" json:"userId"`
	FromUserID string           `gorm:"type:uuid;not null" json:"fromUserId"`
	Type       NotificationType `gorm:"type:varchar(20);not null" json:"type"`
	PostID     *string          `gorm:"type:uuid" json:"postId"`
	Read       bool             `gorm:"default:false" json:"read"`
	DedupKey   *string          `gorm:"type:varchar(255);uniqueIndex" json:"-"`
	CreatedAt  time.Time        `gorm:"index" json:"createdAt"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	return nil
}
