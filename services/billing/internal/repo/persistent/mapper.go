package persistent

import (
	"snapbuzz/services/billing/internal/entity"
	"snapbuzz/services/billing/internal/model"
)

func ToSubscriptionEntity(m *model.SubscriptionModel) *entity.Subscription {
	if m == nil {
		return nil
	}

	return &entity.Subscription{
		ID:                   m.ID,
		UserID:               m.UserID,
		Plan:                 m.Plan,
		PriceID:              m.PriceID,
		StripeCustomerID:     m.StripeCustomerID,
		StripeSubscriptionID: m.StripeSubscriptionID,
		Status:               m.Status,
		CurrentPeriodEnd:     m.CurrentPeriodEnd,
		PostCount:            m.PostCount,
		CreatedAt:            m.CreatedAt,
		UpdatedAt:            m.UpdatedAt,
	}
}

func ToSubscriptionModel(e *entity.Subscription) *model.SubscriptionModel {
	if e == nil {
		return nil
	}

	return &model.SubscriptionModel{
		ID:                   e.ID,
		UserID:               e.UserID,
		Plan:                 e.Plan,
		PriceID:              e.PriceID,
		StripeCustomerID:     e.StripeCustomerID,
		StripeSubscriptionID: e.StripeSubscriptionID,
		Status:               e.Status,
		CurrentPeriodEnd:     e.CurrentPeriodEnd,
		PostCount:            e.PostCount,
		CreatedAt:            e.CreatedAt,
		UpdatedAt:            e.UpdatedAt,
	}
}

func ToCustomerEntity(m *model.UserModel) *entity.Customer {
	if m == nil {
		return nil
	}

	return &entity.Customer{
		ID:               m.ID,
		Username:         m.Username,
		Email:            m.Email,
		PostCount:        m.PostCount,
		StripeCustomerID: m.StripeCustomerID,
	}
}
