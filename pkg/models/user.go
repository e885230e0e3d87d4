package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID               string     `gorm:"type:uuid;primary_key" json:"id"`
	Username         string     `gorm:"type:varchar(100);uniqueIndex;not null" json:"username"`
	Email            string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Phone            string     `gorm:"type:varchar(32);uniqueIndex;not null" json:"phone"`
	Password         string     `gorm:"not null" json:"-"`
	ProfilePhoto     string     `gorm:"type:varchar(500)" json:"profilePhoto"`
	PostCount        int        `gorm:"default:0" json:"postCount"`
	LastPostDate     *time.Time `json:"lastPostDate"`
	StripeCustomerID string     `gorm:"type:varchar(255)" json:"-"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return nil
}

// Follow is a directed edge: FollowerID follows FollowingID.
type Follow struct {
	ID          string    `gorm:"type:uuid;primary_key" json:"id"`
	FollowerID  string    `gorm:"type:uuid;not null;uniqueIndex:idx_follows_pair" json:"followerId"`
	FollowingID string    `gorm:"type:uuid;not null;uniqueIndex:idx_follows_pair;index" json:"followingId"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (f *Follow) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	return nil
}
