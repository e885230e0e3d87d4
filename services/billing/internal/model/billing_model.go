package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SubscriptionModel struct {
	ID                   string `gorm:"type:uuid;primary_key"`
	UserID               string `gorm:"type:uuid;not null;uniqueIndex"`
	Plan                 string
	PriceID              string
	StripeCustomerID     string
	StripeSubscriptionID string `gorm:"index"`
	Status               string
	CurrentPeriodEnd     *time.Time
	PostCount            int
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func (SubscriptionModel) TableName() string {
	return "subscriptions"
}

func (s *SubscriptionModel) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}

// UserModel is the slice of users billing reads and writes.
type UserModel struct {
	ID               string `gorm:"type:uuid;primary_key"`
	Username         string
	Email            string
	PostCount        int
	StripeCustomerID string
}

func (UserModel) TableName() string {
	return "users"
}
