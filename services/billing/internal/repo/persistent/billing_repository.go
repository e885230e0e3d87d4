package persistent

import (
	"context"
	"errors"
	"time"

	"snapbuzz/services/billing/internal/entity"
	"snapbuzz/services/billing/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrNotFound = errors.New("record not found")

type SubscriptionRepository interface {
	GetByUser(ctx context.Context, userID string) (*entity.Subscription, error)
	GetByStripeID(ctx context.Context, stripeSubscriptionID string) (*entity.Subscription, error)
	// Upsert inserts the user's row or, when one exists, overwrites the
	// given columns. It returns the stored row.
	Upsert(ctx context.Context, sub *entity.Subscription, columns ...string) (*entity.Subscription, error)
	Update(ctx context.Context, id string, updates map[string]interface{}) error
	UpdateByStripeID(ctx context.Context, stripeSubscriptionID string, updates map[string]interface{}) error
	// DeactivateExpired marks active rows whose period ended before now as inactive.
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
}

type subscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) GetByUser(ctx context.Context, userID string) (*entity.Subscription, error) {
	return r.first(ctx, "user_id = ?", userID)
}

func (r *subscriptionRepository) GetByStripeID(ctx context.Context, stripeSubscriptionID string) (*entity.Subscription, error) {
	return r.first(ctx, "stripe_subscription_id = ?", stripeSubscriptionID)
}

func (r *subscriptionRepository) Upsert(ctx context.Context, sub *entity.Subscription, columns ...string) (*entity.Subscription, error) {
	m := ToSubscriptionModel(sub)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns(append(columns, "updated_at")),
		}).
		Create(m).Error
	if err != nil {
		return nil, err
	}
	return r.GetByUser(ctx, sub.UserID)
}

func (r *subscriptionRepository) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	return r.update(ctx, "id = ?", id, updates)
}

func (r *subscriptionRepository) UpdateByStripeID(ctx context.Context, stripeSubscriptionID string, updates map[string]interface{}) error {
	return r.update(ctx, "stripe_subscription_id = ?", stripeSubscriptionID, updates)
}

func (r *subscriptionRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.SubscriptionModel{}).
		Where("status = ? AND current_period_end < ?", entity.StatusActive, now).
		Update("status", entity.StatusInactive)
	return res.RowsAffected, res.Error
}

func (r *subscriptionRepository) first(ctx context.Context, query string, arg string) (*entity.Subscription, error) {
	var m model.SubscriptionModel
	err := r.db.WithContext(ctx).Where(query, arg).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return ToSubscriptionEntity(&m), nil
}

func (r *subscriptionRepository) update(ctx context.Context, query, arg string, updates map[string]interface{}) error {
	res := r.db.WithContext(ctx).
		Model(&model.SubscriptionModel{}).
		Where(query, arg).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

type CustomerRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Customer, error)
	SetStripeCustomerID(ctx context.Context, id, customerID string) error
}

type customerRepository struct {
	db *gorm.DB
}

func NewCustomerRepository(db *gorm.DB) CustomerRepository {
	return &customerRepository{db: db}
}

func (r *customerRepository) GetByID(ctx context.Context, id string) (*entity.Customer, error) {
	var m model.UserModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return ToCustomerEntity(&m), nil
}

func (r *customerRepository) SetStripeCustomerID(ctx context.Context, id, customerID string) error {
	return r.db.WithContext(ctx).
		Model(&model.UserModel{}).
		Where("id = ?", id).
		Update("stripe_customer_id", customerID).Error
}
