package entity

import "time"

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusCanceled = "canceled"
)

type Subscription struct {
	ID                   string     `json:"id"`
	UserID               string     `json:"userId"`
	Plan                 string     `json:"plan"`
	PriceID              string     `json:"priceId"`
	StripeCustomerID     string     `json:"stripeCustomerId"`
	StripeSubscriptionID string     `json:"stripeSubscriptionId"`
	Status               string     `json:"status"`
	CurrentPeriodEnd     *time.Time `json:"currentPeriodEnd"`
	PostCount            int        `json:"postCount"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
}

func (s *Subscription) Active() bool {
	return s.Status == StatusActive
}

type Customer struct {
	ID               string
	Username         string
	Email            string
	PostCount        int
	StripeCustomerID string
}

type PostLimit struct {
	CanPost   bool `json:"canPost"`
	PostCount int  `json:"postCount"`
	PostLimit int  `json:"postLimit"`
}

type Checkout struct {
	ClientSecret   string `json:"clientSecret"`
	SubscriptionID string `json:"subscriptionId"`
}

// GatewaySubscription is the payment provider's view of a subscription.
type GatewaySubscription struct {
	ID               string
	CustomerID       string
	Status           string
	CurrentPeriodEnd time.Time
	ClientSecret     string
}

type WebhookEvent struct {
	Type             string
	SubscriptionID   string
	Status           string
	CurrentPeriodEnd time.Time
}
