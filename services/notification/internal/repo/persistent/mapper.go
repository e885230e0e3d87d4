package persistent

import (
	"snapbuzz/services/notification/internal/entity"
	"snapbuzz/services/notification/internal/model"
)

func ToNotificationEntity(m *model.NotificationModel) *entity.Notification {
	if m == nil {
		return nil
	}

	return &entity.Notification{
		ID:         m.ID,
		UserID:     m.UserID,
		FromUserID: m.FromUserID,
		Type:       m.Type,
		Read:       m.Read,
		PostID:     m.PostID,
		CreatedAt:  m.CreatedAt,
		User:       toSummary(m.User),
		FromUser:   toSummary(m.FromUser),
	}
}

func ToNotificationModel(e *entity.Notification) *model.NotificationModel {
	if e == nil {
		return nil
	}

	return &model.NotificationModel{
		ID:         e.ID,
		UserID:     e.UserID,
		FromUserID: e.FromUserID,
		Type:       e.Type,
		PostID:     e.PostID,
		Read:       e.Read,
		CreatedAt:  e.CreatedAt,
	}
}

func toSummary(m model.UserModel) entity.UserSummary {
	return entity.UserSummary{ID: m.ID, Username: m.Username, ProfilePhoto: m.ProfilePhoto}
}
