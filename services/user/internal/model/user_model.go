package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserModel struct {
	ID           string `gorm:"type:uuid;primary_key"`
	Username     string `gorm:"type:varchar(100);uniqueIndex;not null"`
	Email        string `gorm:"type:varchar(255);uniqueIndex;not null"`
	Phone        string `gorm:"type:varchar(32);uniqueIndex;not null"`
	ProfilePhoto string `gorm:"type:varchar(500)"`
	PostCount    int    `gorm:"default:0"`
	LastPostDate *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (UserModel) TableName() string {
	return "users"
}

type FollowModel struct {
	ID          string `gorm:"type:uuid;primary_key"`
	FollowerID  string `gorm:"type:uuid;not null;uniqueIndex:idx_follows_pair"`
	FollowingID string `gorm:"type:uuid;not null;uniqueIndex:idx_follows_pair"`
	CreatedAt   time.Time
}

func (FollowModel) TableName() string {
	return "follows"
}

func (f *FollowModel) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	return nil
}

// PostModel is a read-only view of the posts table.
type PostModel struct {
	ID        string `gorm:"type:uuid;primary_key"`
	UserID    string `gorm:"type:uuid"`
	Desc      string
	Img       string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (PostModel) TableName() string {
	return "posts"
}

// SummaryRow is the projection used by follower queries.
type SummaryRow struct {
	ID           string
	Username     string
	Email        string
	ProfilePhoto string
}
