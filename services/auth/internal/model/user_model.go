package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserModel struct {
	ID           string     `gorm:"type:uuid;primary_key"`
	Username     string     `gorm:"type:varchar(100);uniqueIndex;not null"`
	Email        string     `gorm:"type:varchar(255);uniqueIndex;not null"`
	Phone        string     `gorm:"type:varchar(32);uniqueIndex;not null"`
	Password     string     `gorm:"not null"`
	ProfilePhoto string     `gorm:"type:varchar(500)"`
	PostCount    int        `gorm:"default:0"`
	LastPostDate *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (UserModel) TableName() string {
	return "users"
}

func (u *UserModel) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return nil
}
