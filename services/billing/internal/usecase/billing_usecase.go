package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"snapbuzz/pkg/logger"
	"snapbuzz/pkg/plans"
	"snapbuzz/services/billing/internal/entity"
	"snapbuzz/services/billing/internal/repo/persistent"
	"snapbuzz/services/billing/internal/repo/webapi"
)

var (
	ErrAmountRequired       = errors.New("Amount is required")
	ErrPlanRequired         = errors.New("Plan is required")
	ErrUnknownPrice         = errors.New("Unknown priceId")
	ErrSubscriptionRequired = errors.New("subscriptionId is required")
	ErrUserNotFound         = errors.New("User not found")
	ErrSubscriptionNotFound = errors.New("Subscription not found")
	ErrInvalidSignature     = errors.New("Webhook signature verification failed")
	// ErrGateway wraps payment provider failures.
	ErrGateway = errors.New("payment provider error")
)

type BillingUseCase interface {
	CreatePaymentIntent(ctx context.Context, amount int64) (string, error)
	SavePlan(ctx context.Context, userID, plan string) error
	// GetUserPlan returns the stored plan name, active or not.
	GetUserPlan(ctx context.Context, userID string) (string, error)
	CheckPostLimit(ctx context.Context, userID string) (*entity.PostLimit, error)

	CreateSubscription(ctx context.Context, userID, priceID string) (*entity.Checkout, error)
	SaveSubscriptionPlan(ctx context.Context, userID, plan, priceID string) (*entity.Subscription, error)
	// GetActivePlan returns the plan name only while the subscription is active.
	GetActivePlan(ctx context.Context, userID string) (string, error)
	CancelSubscription(ctx context.Context, userID, subscriptionID string) error
	SyncSubscription(ctx context.Context, userID, subscriptionID string) (*entity.Subscription, error)

	HandleWebhook(ctx context.Context, payload []byte, signature string) (string, error)
	SweepExpired(ctx context.Context) (int64, error)
}

type billingUseCase struct {
	subscriptionRepo persistent.SubscriptionRepository
	customerRepo     persistent.CustomerRepository
	gateway          webapi.PaymentGateway
	catalog          *plans.Catalog
	currency         string
	now              func() time.Time
	logger           *logger.Logger
}

func NewBillingUseCase(
	subscriptionRepo persistent.SubscriptionRepository,
	customerRepo persistent.CustomerRepository,
	gateway webapi.PaymentGateway,
	catalog *plans.Catalog,
	currency string,
	logger *logger.Logger,
) BillingUseCase {
	return &billingUseCase{
		subscriptionRepo: subscriptionRepo,
		customerRepo:     customerRepo,
		gateway:          gateway,
		catalog:          catalog,
		currency:         currency,
		now:              time.Now,
		logger:           logger,
	}
}

func (uc *billingUseCase) CreatePaymentIntent(ctx context.Context, amount int64) (string, error) {
	if amount <= 0 {
		return "", ErrAmountRequired
	}

	secret, err := uc.gateway.CreatePaymentIntent(ctx, amount, uc.currency)
	if err != nil {
		uc.logger.Error("Failed to create payment intent: %v", err)
		return "", gatewayError(err)
	}
	return secret, nil
}

func (uc *billingUseCase) SavePlan(ctx context.Context, userID, plan string) error {
	plan = strings.TrimSpace(plan)
	if plan == "" {
		return ErrPlanRequired
	}
	if _, err := uc.customer(ctx, userID); err != nil {
		return err
	}

	_, err := uc.subscriptionRepo.Upsert(ctx, &entity.Subscription{
		UserID: userID,
		Plan:   plan,
		Status: entity.StatusActive,
	}, "plan", "status", "post_count")
	if err != nil {
		return err
	}

	uc.logger.Info("User %s saved plan %s", userID, plan)
	return nil
}

func (uc *billingUseCase) GetUserPlan(ctx context.Context, userID string) (string, error) {
	sub, err := uc.subscriptionRepo.GetByUser(ctx, userID)
	if errors.Is(err, persistent.ErrNotFound) {
		return plans.NotChosen, nil
	}
	if err != nil {
		return "", err
	}
	return sub.Plan, nil
}

func (uc *billingUseCase) CheckPostLimit(ctx context.Context, userID string) (*entity.PostLimit, error) {
	plan := plans.Free
	var postCount int

	sub, err := uc.subscriptionRepo.GetByUser(ctx, userID)
	switch {
	case errors.Is(err, persistent.ErrNotFound):
		customer, err := uc.customer(ctx, userID)
		if err != nil {
			return nil, err
		}
		postCount = customer.PostCount
	case err != nil:
		return nil, err
	default:
		if sub.Active() {
			plan = sub.Plan
		}
		postCount = sub.PostCount
	}

	return &entity.PostLimit{
		CanPost:   plans.CanPost(plan, postCount),
		PostCount: postCount,
		PostLimit: plans.PostLimit(plan),
	}, nil
}

func (uc *billingUseCase) CreateSubscription(ctx context.Context, userID, priceID string) (*entity.Checkout, error) {
	plan, ok := uc.catalog.ByPriceID(priceID)
	if !ok {
		return nil, ErrUnknownPrice
	}
	customer, err := uc.customer(ctx, userID)
	if err != nil {
		return nil, err
	}

	existing, err := uc.subscriptionRepo.GetByUser(ctx, userID)
	if err != nil && !errors.Is(err, persistent.ErrNotFound) {
		return nil, err
	}
	if existing != nil && existing.Active() && existing.StripeSubscriptionID != "" {
		return uc.changePlan(ctx, existing, plan)
	}

	customerID := customer.StripeCustomerID
	if customerID == "" {
		customerID, err = uc.gateway.CreateCustomer(ctx, customer.Email, customer.Username)
		if err != nil {
			uc.logger.Error("Failed to create customer for %s: %v", userID, err)
			return nil, gatewayError(err)
		}
		if err := uc.customerRepo.SetStripeCustomerID(ctx, userID, customerID); err != nil {
			return nil, err
		}
	}

	gs, err := uc.gateway.CreateSubscription(ctx, customerID, plan.PriceID)
	if err != nil {
		uc.logger.Error("Failed to create subscription for %s: %v", userID, err)
		return nil, gatewayError(err)
	}

	_, err = uc.subscriptionRepo.Upsert(ctx, &entity.Subscription{
		UserID:               userID,
		Plan:                 plan.Name,
		PriceID:              plan.PriceID,
		StripeCustomerID:     customerID,
		StripeSubscriptionID: gs.ID,
		Status:               gs.Status,
		CurrentPeriodEnd:     timePtr(gs.CurrentPeriodEnd),
	}, "plan", "price_id", "stripe_customer_id", "stripe_subscription_id", "status", "current_period_end", "post_count")
	if err != nil {
		return nil, err
	}

	uc.logger.Info("Created subscription %s (%s) for user %s", gs.ID, plan.Name, userID)
	return &entity.Checkout{ClientSecret: gs.ClientSecret, SubscriptionID: gs.ID}, nil
}

func (uc *billingUseCase) changePlan(ctx context.Context, existing *entity.Subscription, plan plans.Plan) (*entity.Checkout, error) {
	gs, err := uc.gateway.ChangePrice(ctx, existing.StripeSubscriptionID, plan.PriceID)
	if err != nil {
		uc.logger.Error("Failed to change subscription %s: %v", existing.StripeSubscriptionID, err)
		return nil, gatewayError(err)
	}

	updates := map[string]interface{}{
		"plan":     plan.Name,
		"price_id": plan.PriceID,
	}
	if !gs.CurrentPeriodEnd.IsZero() {
		updates["current_period_end"] = gs.CurrentPeriodEnd
	}
	if err := uc.subscriptionRepo.Update(ctx, existing.ID, updates); err != nil {
		return nil, err
	}

	uc.logger.Info("Moved subscription %s to %s", gs.ID, plan.Name)
	return &entity.Checkout{ClientSecret: gs.ClientSecret, SubscriptionID: gs.ID}, nil
}

func (uc *billingUseCase) SaveSubscriptionPlan(ctx context.Context, userID, plan, priceID string) (*entity.Subscription, error) {
	catalogPlan, ok := uc.catalog.ByPriceID(priceID)
	if !ok {
		return nil, ErrUnknownPrice
	}
	if _, err := uc.customer(ctx, userID); err != nil {
		return nil, err
	}
	if plan = strings.TrimSpace(plan); plan == "" {
		plan = catalogPlan.Name
	}

	end, _ := uc.catalog.PeriodEnd(priceID, uc.now())
	return uc.subscriptionRepo.Upsert(ctx, &entity.Subscription{
		UserID:           userID,
		Plan:             plan,
		PriceID:          priceID,
		Status:           entity.StatusActive,
		CurrentPeriodEnd: timePtr(end),
	}, "plan", "price_id", "status", "current_period_end", "post_count")
}

func (uc *billingUseCase) GetActivePlan(ctx context.Context, userID string) (string, error) {
	sub, err := uc.subscriptionRepo.GetByUser(ctx, userID)
	if errors.Is(err, persistent.ErrNotFound) {
		return plans.NotChosen, nil
	}
	if err != nil {
		return "", err
	}
	if !sub.Active() {
		return plans.NotChosen, nil
	}
	return sub.Plan, nil
}

func (uc *billingUseCase) CancelSubscription(ctx context.Context, userID, subscriptionID string) error {
	sub, err := uc.owned(ctx, userID, subscriptionID)
	if err != nil {
		return err
	}

	if err := uc.gateway.CancelAtPeriodEnd(ctx, subscriptionID); err != nil {
		uc.logger.Error("Failed to cancel subscription %s: %v", subscriptionID, err)
		return gatewayError(err)
	}
	if err := uc.subscriptionRepo.Update(ctx, sub.ID, map[string]interface{}{"status": entity.StatusInactive}); err != nil {
		return err
	}

	uc.logger.Info("Subscription %s of user %s set to inactive", subscriptionID, userID)
	return nil
}

func (uc *billingUseCase) SyncSubscription(ctx context.Context, userID, subscriptionID string) (*entity.Subscription, error) {
	sub, err := uc.owned(ctx, userID, subscriptionID)
	if err != nil {
		return nil, err
	}

	gs, err := uc.gateway.GetSubscription(ctx, subscriptionID)
	if err != nil {
		uc.logger.Error("Failed to fetch subscription %s: %v", subscriptionID, err)
		return nil, gatewayError(err)
	}

	updates := map[string]interface{}{"status": gs.Status}
	if !gs.CurrentPeriodEnd.IsZero() {
		updates["current_period_end"] = gs.CurrentPeriodEnd
	}
	if err := uc.subscriptionRepo.Update(ctx, sub.ID, updates); err != nil {
		return nil, err
	}
	return uc.subscriptionRepo.GetByStripeID(ctx, subscriptionID)
}

// HandleWebhook applies a verified provider event and returns its type.
// Events for unknown subscriptions and unknown event types are acknowledged.
func (uc *billingUseCase) HandleWebhook(ctx context.Context, payload []byte, signature string) (string, error) {
	event, err := uc.gateway.ParseWebhook(payload, signature)
	if err != nil {
		if errors.Is(err, webapi.ErrInvalidSignature) {
			uc.logger.Warn("[WEBHOOK] Rejected event: %v", err)
			return "", ErrInvalidSignature
		}
		return "", err
	}

	var updates map[string]interface{}
	switch event.Type {
	case "invoice.payment_succeeded":
		updates = map[string]interface{}{"status": entity.StatusActive}
	case "customer.subscription.updated":
		updates = map[string]interface{}{"status": event.Status}
		if !event.CurrentPeriodEnd.IsZero() {
			updates["current_period_end"] = event.CurrentPeriodEnd
		}
	case "customer.subscription.deleted":
		updates = map[string]interface{}{"status": entity.StatusCanceled}
	default:
		uc.logger.Info("[WEBHOOK] Ignoring event %s", event.Type)
		return event.Type, nil
	}

	if event.SubscriptionID == "" {
		return event.Type, nil
	}

	err = uc.subscriptionRepo.UpdateByStripeID(ctx, event.SubscriptionID, updates)
	if errors.Is(err, persistent.ErrNotFound) {
		uc.logger.Warn("[WEBHOOK] %s for unknown subscription %s", event.Type, event.SubscriptionID)
		return event.Type, nil
	}
	if err != nil {
		return "", err
	}

	uc.logger.Info("[WEBHOOK] Applied %s to subscription %s", event.Type, event.SubscriptionID)
	return event.Type, nil
}

func (uc *billingUseCase) SweepExpired(ctx context.Context) (int64, error) {
	n, err := uc.subscriptionRepo.DeactivateExpired(ctx, uc.now())
	if err != nil {
		uc.logger.Error("[SWEEP] Failed to expire subscriptions: %v", err)
		return 0, err
	}
	uc.logger.Info("[SWEEP] Expired %d subscriptions", n)
	return n, nil
}

func (uc *billingUseCase) customer(ctx context.Context, userID string) (*entity.Customer, error) {
	customer, err := uc.customerRepo.GetByID(ctx, userID)
	if errors.Is(err, persistent.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return customer, err
}

// owned loads the row for a provider subscription ID. Rows of other users
// are reported as missing.
func (uc *billingUseCase) owned(ctx context.Context, userID, subscriptionID string) (*entity.Subscription, error) {
	if subscriptionID == "" {
		return nil, ErrSubscriptionRequired
	}
	sub, err := uc.subscriptionRepo.GetByStripeID(ctx, subscriptionID)
	if errors.Is(err, persistent.ErrNotFound) {
		return nil, ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, err
	}
	if sub.UserID != userID {
		return nil, ErrSubscriptionNotFound
	}
	return sub, nil
}

func gatewayError(err error) error {
	return fmt.Errorf("%w: %v", ErrGateway, err)
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
