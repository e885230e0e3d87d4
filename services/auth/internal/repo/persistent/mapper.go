package persistent

import (
	"snapbuzz/services/auth/internal/entity"
	"snapbuzz/services/auth/internal/model"
)

func ToUserEntity(m *model.UserModel) *entity.User {
	if m == nil {
		return nil
	}

	return &entity.User{
		ID:           m.ID,
		Username:     m.Username,
		Email:        m.Email,
		Phone:        m.Phone,
		Password:     m.Password,
		ProfilePhoto: m.ProfilePhoto,
		PostCount:    m.PostCount,
		LastPostDate: m.LastPostDate,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func ToUserModel(e *entity.User) *model.UserModel {
	if e == nil {
		return nil
	}

	return &model.UserModel{
		ID:           e.ID,
		Username:     e.Username,
		Email:        e.Email,
		Phone:        e.Phone,
		Password:     e.Password,
		ProfilePhoto: e.ProfilePhoto,
		PostCount:    e.PostCount,
		LastPostDate: e.LastPostDate,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
}
