// Package webapi talks to the payment provider.
package webapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"snapbuzz/services/billing/internal/entity"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

var ErrInvalidSignature = errors.New("invalid webhook signature")

type PaymentGateway interface {
	CreatePaymentIntent(ctx context.Context, amount int64, currency string) (string, error)
	CreateCustomer(ctx context.Context, email, name string) (string, error)
	// CreateSubscription starts an incomplete subscription whose first
	// invoice is paid with the returned client secret.
	CreateSubscription(ctx context.Context, customerID, priceID string) (*entity.GatewaySubscription, error)
	ChangePrice(ctx context.Context, subscriptionID, priceID string) (*entity.GatewaySubscription, error)
	CancelAtPeriodEnd(ctx context.Context, subscriptionID string) error
	GetSubscription(ctx context.Context, subscriptionID string) (*entity.GatewaySubscription, error)
	ParseWebhook(payload []byte, signature string) (*entity.WebhookEvent, error)
}

type StripeGateway struct {
	api           *client.API
	webhookSecret string
}

func NewStripeGateway(secretKey, webhookSecret string) *StripeGateway {
	return &StripeGateway{
		api:           client.New(secretKey, nil),
		webhookSecret: webhookSecret,
	}
}

func (g *StripeGateway) CreatePaymentIntent(ctx context.Context, amount int64, currency string) (string, error) {
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(amount),
		Currency:           stripe.String(currency),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
	}
	params.Context = ctx

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return "", fmt.Errorf("create payment intent: %w", err)
	}
	return pi.ClientSecret, nil
}

func (g *StripeGateway) CreateCustomer(ctx context.Context, email, name string) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(email),
		Name:  stripe.String(name),
	}
	params.Context = ctx

	customer, err := g.api.Customers.New(params)
	if err != nil {
		return "", fmt.Errorf("create customer: %w", err)
	}
	return customer.ID, nil
}

func (g *StripeGateway) CreateSubscription(ctx context.Context, customerID, priceID string) (*entity.GatewaySubscription, error) {
	params := &stripe.SubscriptionParams{
		Customer: stripe.String(customerID),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(priceID)},
		},
		PaymentBehavior: stripe.String("default_incomplete"),
	}
	params.AddExpand("latest_invoice.payment_intent")
	params.Context = ctx

	sub, err := g.api.Subscriptions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create subscription: %w", err)
	}
	return toGatewaySubscription(sub), nil
}

func (g *StripeGateway) ChangePrice(ctx context.Context, subscriptionID, priceID string) (*entity.GatewaySubscription, error) {
	current, err := g.api.Subscriptions.Get(subscriptionID, &stripe.SubscriptionParams{Params: stripe.Params{Context: ctx}})
	if err != nil {
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	if current.Items == nil || len(current.Items.Data) == 0 {
		return nil, fmt.Errorf("subscription %s has no items", subscriptionID)
	}

	params := &stripe.SubscriptionParams{
		Items: []*stripe.SubscriptionItemsParams{
			{ID: stripe.String(current.Items.Data[0].ID), Price: stripe.String(priceID)},
		},
		ProrationBehavior: stripe.String("create_prorations"),
	}
	params.AddExpand("latest_invoice.payment_intent")
	params.Context = ctx

	sub, err := g.api.Subscriptions.Update(subscriptionID, params)
	if err != nil {
		return nil, fmt.Errorf("update subscription: %w", err)
	}
	return toGatewaySubscription(sub), nil
}

func (g *StripeGateway) CancelAtPeriodEnd(ctx context.Context, subscriptionID string) error {
	params := &stripe.SubscriptionParams{CancelAtPeriodEnd: stripe.Bool(true)}
	params.Context = ctx

	if _, err := g.api.Subscriptions.Update(subscriptionID, params); err != nil {
		return fmt.Errorf("cancel subscription: %w", err)
	}
	return nil
}

func (g *StripeGateway) GetSubscription(ctx context.Context, subscriptionID string) (*entity.GatewaySubscription, error) {
	sub, err := g.api.Subscriptions.Get(subscriptionID, &stripe.SubscriptionParams{Params: stripe.Params{Context: ctx}})
	if err != nil {
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	return toGatewaySubscription(sub), nil
}

// ParseWebhook verifies the Stripe-Signature header and extracts the fields
// billing reacts to.
func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (*entity.WebhookEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := &entity.WebhookEvent{Type: string(event.Type)}
	if event.Data == nil {
		return out, nil
	}

	switch out.Type {
	case "invoice.payment_succeeded":
		var invoice stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
			return nil, fmt.Errorf("decode invoice: %w", err)
		}
		if invoice.Subscription != nil {
			out.SubscriptionID = invoice.Subscription.ID
		}
	case "customer.subscription.updated", "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("decode subscription: %w", err)
		}
		out.SubscriptionID = sub.ID
		out.Status = string(sub.Status)
		out.CurrentPeriodEnd = periodEnd(sub.CurrentPeriodEnd)
	}
	return out, nil
}

func toGatewaySubscription(sub *stripe.Subscription) *entity.GatewaySubscription {
	out := &entity.GatewaySubscription{
		ID:               sub.ID,
		Status:           string(sub.Status),
		CurrentPeriodEnd: periodEnd(sub.CurrentPeriodEnd),
	}
	if sub.Customer != nil {
		out.CustomerID = sub.Customer.ID
	}
	if sub.LatestInvoice != nil && sub.LatestInvoice.PaymentIntent != nil {
		out.ClientSecret = sub.LatestInvoice.PaymentIntent.ClientSecret
	}
	return out
}

func periodEnd(unix int64) time.Time {
	if unix == 0 {
		return time.Time{}
	}
	return time.Unix(unix, 0).UTC()
}
