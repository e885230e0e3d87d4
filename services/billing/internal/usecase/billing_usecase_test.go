package usecase

import (
	"context"
	"io"
	"testing"
	"time"

	"snapbuzz/pkg/logger"
	"snapbuzz/pkg/plans"
	"snapbuzz/services/billing/internal/entity"
	"snapbuzz/services/billing/internal/repo/persistent"
	"snapbuzz/services/billing/internal/repo/webapi"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSubscriptionRepository struct {
	mock.Mock
}

var _ persistent.SubscriptionRepository = (*MockSubscriptionRepository)(nil)

func (m *MockSubscriptionRepository) GetByUser(ctx context.Context, userID string) (*entity.Subscription, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) GetByStripeID(ctx context.Context, stripeSubscriptionID string) (*entity.Subscription, error) {
	args := m.Called(stripeSubscriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) Upsert(ctx context.Context, sub *entity.Subscription, columns ...string) (*entity.Subscription, error) {
	args := m.Called(sub, columns)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	return m.Called(id, updates).Error(0)
}

func (m *MockSubscriptionRepository) UpdateByStripeID(ctx context.Context, stripeSubscriptionID string, updates map[string]interface{}) error {
	return m.Called(stripeSubscriptionID, updates).Error(0)
}

func (m *MockSubscriptionRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(now)
	return args.Get(0).(int64), args.Error(1)
}

type MockCustomerRepository struct {
	mock.Mock
}

var _ persistent.CustomerRepository = (*MockCustomerRepository)(nil)

func (m *MockCustomerRepository) GetByID(ctx context.Context, id string) (*entity.Customer, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Customer), args.Error(1)
}

func (m *MockCustomerRepository) SetStripeCustomerID(ctx context.Context, id, customerID string) error {
	return m.Called(id, customerID).Error(0)
}

type MockGateway struct {
	mock.Mock
}

var _ webapi.PaymentGateway = (*MockGateway)(nil)

func (m *MockGateway) CreatePaymentIntent(ctx context.Context, amount int64, currency string) (string, error) {
	args := m.Called(amount, currency)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) CreateCustomer(ctx context.Context, email, name string) (string, error) {
	args := m.Called(email, name)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) CreateSubscription(ctx context.Context, customerID, priceID string) (*entity.GatewaySubscription, error) {
	args := m.Called(customerID, priceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.GatewaySubscription), args.Error(1)
}

func (m *MockGateway) ChangePrice(ctx context.Context, subscriptionID, priceID string) (*entity.GatewaySubscription, error) {
	args := m.Called(subscriptionID, priceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.GatewaySubscription), args.Error(1)
}

func (m *MockGateway) CancelAtPeriodEnd(ctx context.Context, subscriptionID string) error {
	return m.Called(subscriptionID).Error(0)
}

func (m *MockGateway) GetSubscription(ctx context.Context, subscriptionID string) (*entity.GatewaySubscription, error) {
	args := m.Called(subscriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.GatewaySubscription), args.Error(1)
}

func (m *MockGateway) ParseWebhook(payload []byte, signature string) (*entity.WebhookEvent, error) {
	args := m.Called(string(payload), signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.WebhookEvent), args.Error(1)
}

type fixture struct {
	subs      *MockSubscriptionRepository
	customers *MockCustomerRepository
	gateway   *MockGateway
	uc        *billingUseCase
	now       time.Time
}

func newFixture() *fixture {
	f := &fixture{
		subs:      new(MockSubscriptionRepository),
		customers: new(MockCustomerRepository),
		gateway:   new(MockGateway),
		now:       time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	uc := NewBillingUseCase(
		f.subs,
		f.customers,
		f.gateway,
		plans.NewCatalogFromPrices("price_basic", "price_standard", "price_premium"),
		"pkr",
		logger.NewWithWriters(io.Discard, io.Discard),
	).(*billingUseCase)
	uc.now = func() time.Time { return f.now }
	f.uc = uc
	return f
}

var alice = &entity.Customer{ID: "alice", Username: "alice", Email: "alice@example.com", PostCount: 3}

func TestCreatePaymentIntent(t *testing.T) {
	f := newFixture()
	f.gateway.On("CreatePaymentIntent", int64(1500), "pkr").Return("pi_secret", nil)
	f.gateway.On("CreatePaymentIntent", int64(99), "pkr").Return("", assert.AnError)

	secret, err := f.uc.CreatePaymentIntent(context.Background(), 1500)
	require.NoError(t, err)
	assert.Equal(t, "pi_secret", secret)

	_, err = f.uc.CreatePaymentIntent(context.Background(), 0)
	assert.ErrorIs(t, err, ErrAmountRequired)

	_, err = f.uc.CreatePaymentIntent(context.Background(), 99)
	assert.ErrorIs(t, err, ErrGateway)
}

func TestSavePlan(t *testing.T) {
	f := newFixture()
	f.customers.On("GetByID", "alice").Return(alice, nil)
	f.customers.On("GetByID", "ghost").Return(nil, persistent.ErrNotFound)
	f.subs.On("Upsert", mock.MatchedBy(func(s *entity.Subscription) bool {
		return s.UserID == "alice" && s.Plan == "20-posts" && s.Status == entity.StatusActive && s.PostCount == 0
	}), []string{"plan", "status", "post_count"}).Return(&entity.Subscription{}, nil)

	require.NoError(t, f.uc.SavePlan(context.Background(), "alice", "20-posts"))
	assert.ErrorIs(t, f.uc.SavePlan(context.Background(), "alice", " "), ErrPlanRequired)
	assert.ErrorIs(t, f.uc.SavePlan(context.Background(), "ghost", "Basic"), ErrUserNotFound)
	f.subs.AssertExpectations(t)
}

func TestGetUserPlan(t *testing.T) {
	f := newFixture()
	f.subs.On("GetByUser", "alice").Return(&entity.Subscription{Plan: "Basic", Status: entity.StatusInactive}, nil)
	f.subs.On("GetByUser", "bob").Return(nil, persistent.ErrNotFound)

	plan, err := f.uc.GetUserPlan(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "Basic", plan)

	plan, err = f.uc.GetUserPlan(context.Background(), "bob")
	require.NoError(t, err)
	assert.Equal(t, plans.NotChosen, plan)

	plan, err = f.uc.GetActivePlan(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, plans.NotChosen, plan)
}

func TestCheckPostLimit(t *testing.T) {
	tests := []struct {
		name     string
		sub      *entity.Subscription
		expected entity.PostLimit
	}{
		{
			name:     "no subscription counts as free",
			expected: entity.PostLimit{CanPost: true, PostCount: 3, PostLimit: 5},
		},
		{
			name:     "active basic under the limit",
			sub:      &entity.Subscription{Plan: plans.Basic, Status: entity.StatusActive, PostCount: 19},
			expected: entity.PostLimit{CanPost: true, PostCount: 19, PostLimit: 20},
		},
		{
			name:     "active basic at the limit",
			sub:      &entity.Subscription{Plan: plans.Basic, Status: entity.StatusActive, PostCount: 20},
			expected: entity.PostLimit{CanPost: false, PostCount: 20, PostLimit: 20},
		},
		{
			name:     "inactive premium falls back to free",
			sub:      &entity.Subscription{Plan: plans.Premium, Status: entity.StatusInactive, PostCount: 7},
			expected: entity.PostLimit{CanPost: false, PostCount: 7, PostLimit: 5},
		},
		{
			name:     "premium is unlimited",
			sub:      &entity.Subscription{Plan: plans.Premium, Status: entity.StatusActive, PostCount: 500},
			expected: entity.PostLimit{CanPost: true, PostCount: 500, PostLimit: plans.NoLimit},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			if tt.sub == nil {
				f.subs.On("GetByUser", "alice").Return(nil, persistent.ErrNotFound)
				f.customers.On("GetByID", "alice").Return(alice, nil)
			} else {
				f.subs.On("GetByUser", "alice").Return(tt.sub, nil)
			}

			limit, err := f.uc.CheckPostLimit(context.Background(), "alice")
			require.NoError(t, err)
			assert.Equal(t, tt.expected, *limit)
		})
	}
}

func TestCreateSubscription_New(t *testing.T) {
	f := newFixture()
	end := f.now.AddDate(0, 0, 7)
	f.customers.On("GetByID", "alice").Return(alice, nil)
	f.subs.On("GetByUser", "alice").Return(nil, persistent.ErrNotFound)
	f.gateway.On("CreateCustomer", "alice@example.com", "alice").Return("cus_1", nil)
	f.customers.On("SetStripeCustomerID", "alice", "cus_1").Return(nil)
	f.gateway.On("CreateSubscription", "cus_1", "price_basic").Return(&entity.GatewaySubscription{
		ID: "sub_1", Status: "incomplete", CurrentPeriodEnd: end, ClientSecret: "seti_secret",
	}, nil)
	f.subs.On("Upsert", mock.MatchedBy(func(s *entity.Subscription) bool {
		return s.Plan == plans.Basic && s.PriceID == "price_basic" &&
			s.StripeCustomerID == "cus_1" && s.StripeSubscriptionID == "sub_1" &&
			s.Status == "incomplete" && s.CurrentPeriodEnd != nil && s.CurrentPeriodEnd.Equal(end)
	}), mock.Anything).Return(&entity.Subscription{}, nil)

	checkout, err := f.uc.CreateSubscription(context.Background(), "alice", "price_basic")
	require.NoError(t, err)
	assert.Equal(t, &entity.Checkout{ClientSecret: "seti_secret", SubscriptionID: "sub_1"}, checkout)
	f.gateway.AssertExpectations(t)
	f.customers.AssertExpectations(t)
}

func TestCreateSubscription_ReusesCustomer(t *testing.T) {
	f := newFixture()
	customer := *alice
	customer.StripeCustomerID = "cus_existing"
	f.customers.On("GetByID", "alice").Return(&customer, nil)
	f.subs.On("GetByUser", "alice").Return(&entity.Subscription{Status: entity.StatusInactive, StripeSubscriptionID: "sub_old"}, nil)
	f.gateway.On("CreateSubscription", "cus_existing", "price_premium").Return(&entity.GatewaySubscription{ID: "sub_2", Status: "incomplete"}, nil)
	f.subs.On("Upsert", mock.Anything, mock.Anything).Return(&entity.Subscription{}, nil)

	checkout, err := f.uc.CreateSubscription(context.Background(), "alice", "price_premium")
	require.NoError(t, err)
	assert.Equal(t, "sub_2", checkout.SubscriptionID)
	f.gateway.AssertNotCalled(t, "CreateCustomer", mock.Anything, mock.Anything)
}

func TestCreateSubscription_ChangesActivePlan(t *testing.T) {
	f := newFixture()
	end := f.now.AddDate(0, 1, 0)
	f.customers.On("GetByID", "alice").Return(alice, nil)
	f.subs.On("GetByUser", "alice").Return(&entity.Subscription{ID: "row-1", Status: entity.StatusActive, StripeSubscriptionID: "sub_1"}, nil)
	f.gateway.On("ChangePrice", "sub_1", "price_standard").Return(&entity.GatewaySubscription{ID: "sub_1", CurrentPeriodEnd: end}, nil)
	f.subs.On("Update", "row-1", map[string]interface{}{
		"plan":               plans.Standard,
		"price_id":           "price_standard",
		"current_period_end": end,
	}).Return(nil)

	checkout, err := f.uc.CreateSubscription(context.Background(), "alice", "price_standard")
	require.NoError(t, err)
	assert.Equal(t, "sub_1", checkout.SubscriptionID)
	f.gateway.AssertNotCalled(t, "CreateSubscription", mock.Anything, mock.Anything)
}

func TestCreateSubscription_Errors(t *testing.T) {
	f := newFixture()
	f.customers.On("GetByID", "ghost").Return(nil, persistent.ErrNotFound)
	f.customers.On("GetByID", "alice").Return(alice, nil)
	f.subs.On("GetByUser", "alice").Return(nil, persistent.ErrNotFound)
	f.gateway.On("CreateCustomer", mock.Anything, mock.Anything).Return("", assert.AnError)

	_, err := f.uc.CreateSubscription(context.Background(), "alice", "price_unknown")
	assert.ErrorIs(t, err, ErrUnknownPrice)

	_, err = f.uc.CreateSubscription(context.Background(), "ghost", "price_basic")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = f.uc.CreateSubscription(context.Background(), "alice", "price_basic")
	assert.ErrorIs(t, err, ErrGateway)
}

func TestSaveSubscriptionPlan(t *testing.T) {
	f := newFixture()
	f.customers.On("GetByID", "alice").Return(alice, nil)
	stored := &entity.Subscription{ID: "row-1", Plan: plans.Standard}
	f.subs.On("Upsert", mock.MatchedBy(func(s *entity.Subscription) bool {
		return s.Plan == plans.Standard && s.Status == entity.StatusActive &&
			s.CurrentPeriodEnd != nil && s.CurrentPeriodEnd.Equal(f.now.AddDate(0, 0, 30))
	}), mock.Anything).Return(stored, nil)

	sub, err := f.uc.SaveSubscriptionPlan(context.Background(), "alice", "", "price_standard")
	require.NoError(t, err)
	assert.Equal(t, stored, sub)

	_, err = f.uc.SaveSubscriptionPlan(context.Background(), "alice", "Standard", "nope")
	assert.ErrorIs(t, err, ErrUnknownPrice)
}

func TestCancelSubscription(t *testing.T) {
	f := newFixture()
	f.subs.On("GetByStripeID", "sub_1").Return(&entity.Subscription{ID: "row-1", UserID: "alice"}, nil)
	f.subs.On("GetByStripeID", "sub_missing").Return(nil, persistent.ErrNotFound)
	f.gateway.On("CancelAtPeriodEnd", "sub_1").Return(nil)
	f.subs.On("Update", "row-1", map[string]interface{}{"status": entity.StatusInactive}).Return(nil)

	require.NoError(t, f.uc.CancelSubscription(context.Background(), "alice", "sub_1"))
	assert.ErrorIs(t, f.uc.CancelSubscription(context.Background(), "alice", ""), ErrSubscriptionRequired)
	assert.ErrorIs(t, f.uc.CancelSubscription(context.Background(), "alice", "sub_missing"), ErrSubscriptionNotFound)
	assert.ErrorIs(t, f.uc.CancelSubscription(context.Background(), "bob", "sub_1"), ErrSubscriptionNotFound)
	f.gateway.AssertNumberOfCalls(t, "CancelAtPeriodEnd", 1)
}

func TestSyncSubscription(t *testing.T) {
	f := newFixture()
	end := f.now.AddDate(0, 1, 0)
	synced := &entity.Subscription{ID: "row-1", UserID: "alice", Status: "past_due"}
	f.subs.On("GetByStripeID", "sub_1").Return(&entity.Subscription{ID: "row-1", UserID: "alice"}, nil).Once()
	f.gateway.On("GetSubscription", "sub_1").Return(&entity.GatewaySubscription{ID: "sub_1", Status: "past_due", CurrentPeriodEnd: end}, nil)
	f.subs.On("Update", "row-1", map[string]interface{}{"status": "past_due", "current_period_end": end}).Return(nil)
	f.subs.On("GetByStripeID", "sub_1").Return(synced, nil).Once()

	sub, err := f.uc.SyncSubscription(context.Background(), "alice", "sub_1")
	require.NoError(t, err)
	assert.Equal(t, "past_due", sub.Status)
}

func TestSyncSubscription_GatewayFailure(t *testing.T) {
	f := newFixture()
	f.subs.On("GetByStripeID", "sub_1").Return(&entity.Subscription{ID: "row-1", UserID: "alice"}, nil)
	f.gateway.On("GetSubscription", "sub_1").Return(nil, assert.AnError)

	_, err := f.uc.SyncSubscription(context.Background(), "alice", "sub_1")
	assert.ErrorIs(t, err, ErrGateway)
	f.subs.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestHandleWebhook(t *testing.T) {
	end := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		event   *entity.WebhookEvent
		updates map[string]interface{}
	}{
		{
			name:    "payment succeeded activates",
			event:   &entity.WebhookEvent{Type: "invoice.payment_succeeded", SubscriptionID: "sub_1"},
			updates: map[string]interface{}{"status": entity.StatusActive},
		},
		{
			name:    "updated syncs status and period",
			event:   &entity.WebhookEvent{Type: "customer.subscription.updated", SubscriptionID: "sub_1", Status: "past_due", CurrentPeriodEnd: end},
			updates: map[string]interface{}{"status": "past_due", "current_period_end": end},
		},
		{
			name:    "deleted cancels",
			event:   &entity.WebhookEvent{Type: "customer.subscription.deleted", SubscriptionID: "sub_1", Status: "canceled"},
			updates: map[string]interface{}{"status": entity.StatusCanceled},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.gateway.On("ParseWebhook", "{}", "sig").Return(tt.event, nil)
			f.subs.On("UpdateByStripeID", "sub_1", tt.updates).Return(nil)

			eventType, err := f.uc.HandleWebhook(context.Background(), []byte("{}"), "sig")
			require.NoError(t, err)
			assert.Equal(t, tt.event.Type, eventType)
			f.subs.AssertExpectations(t)
		})
	}
}

func TestHandleWebhook_Acknowledges(t *testing.T) {
	f := newFixture()
	f.gateway.On("ParseWebhook", "unknown", "sig").Return(&entity.WebhookEvent{Type: "charge.refunded"}, nil)
	f.gateway.On("ParseWebhook", "orphan", "sig").Return(&entity.WebhookEvent{Type: "invoice.payment_succeeded", SubscriptionID: "sub_x"}, nil)
	f.subs.On("UpdateByStripeID", "sub_x", mock.Anything).Return(persistent.ErrNotFound)

	_, err := f.uc.HandleWebhook(context.Background(), []byte("unknown"), "sig")
	assert.NoError(t, err)

	_, err = f.uc.HandleWebhook(context.Background(), []byte("orphan"), "sig")
	assert.NoError(t, err)
}

func TestHandleWebhook_BadSignature(t *testing.T) {
	f := newFixture()
	f.gateway.On("ParseWebhook", "{}", "forged").Return(nil, webapi.ErrInvalidSignature)

	_, err := f.uc.HandleWebhook(context.Background(), []byte("{}"), "forged")
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestSweepExpired(t *testing.T) {
	f := newFixture()
	f.subs.On("DeactivateExpired", f.now).Return(int64(4), nil)

	n, err := f.uc.SweepExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}
