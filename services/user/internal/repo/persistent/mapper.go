package persistent

import (
	"snapbuzz/services/user/internal/entity"
	"snapbuzz/services/user/internal/model"
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
		ProfilePhoto: m.ProfilePhoto,
		PostCount:    m.PostCount,
		LastPostDate: m.LastPostDate,
		CreatedAt:    m.CreatedAt,
	}
}

func ToSummaryEntities(rows []model.SummaryRow) []entity.UserSummary {
	out := make([]entity.UserSummary, len(rows))
	for i, r := range rows {
		out[i] = entity.UserSummary{
			ID:           r.ID,
			Username:     r.Username,
			Email:        r.Email,
			ProfilePhoto: r.ProfilePhoto,
		}
	}
	return out
}

func ToPostEntities(models []model.PostModel) []entity.Post {
	out := make([]entity.Post, len(models))
	for i, m := range models {
		out[i] = entity.Post{
			ID:        m.ID,
			UserID:    m.UserID,
			Desc:      m.Desc,
			Img:       m.Img,
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		}
	}
	return out
}
