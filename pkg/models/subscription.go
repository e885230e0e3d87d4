package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SubscriptionStatus string

const (
	SubscriptionActive     SubscriptionStatus = "active"
	SubscriptionInactive   SubscriptionStatus = "inactive"
	SubscriptionCanceled   SubscriptionStatus = "canceled"
	SubscriptionIncomplete SubscriptionStatus = "incomplete"
)

type Subscription struct {
	ID                   string             `gorm:"type:uuid;primary_key" json:"id"`
	UserID               string             `gorm:"type:uuid;not null;uniqueIndex" json:"userId"`
	Plan                 string             `gorm:"type:varchar(100);not null" json:"plan"`
	PriceID              string             `gorm:"type:varchar(255)" json:"priceId"`
	StripeCustomerID     string             `gorm:"type:varchar(255)" json:"stripeCustomerId"`
	StripeSubscriptionID string             `gorm:"type:varchar(255);index" json:"stripeSubscriptionId"`
	Status               SubscriptionStatus `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	CurrentPeriodEnd     *time.Time         `json:"currentPeriodEnd"`
	PostCount            int                `gorm:"default:0" json:"postCount"`
	CreatedAt            time.Time          `json:"createdAt"`
	UpdatedAt            time.Time          `json:"updatedAt"`
}

func (s *Subscription) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}

// All lists every model in dependency order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Follow{},
		&Post{},
		&Like{},
		&Comment{},
		&Notification{},
		&Subscription{},
	}
}
