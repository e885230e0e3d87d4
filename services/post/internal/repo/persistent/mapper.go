package persistent

import (
	"snapbuzz/services/post/internal/entity"
	"snapbuzz/services/post/internal/model"
)

func ToPostEntity(m *model.PostModel) *entity.Post {
	if m == nil {
		return nil
	}

	post := &entity.Post{
		ID:           m.ID,
		UserID:       m.UserID,
		Username:     m.User.Username,
		ProfilePhoto: m.User.ProfilePhoto,
		Desc:         m.Desc,
		Img:          m.Img,
		Likes:        make([]string, len(m.Likes)),
		Comments:     make([]entity.Comment, len(m.Comments)),
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}

	for i, l := range m.Likes {
		post.Likes[i] = l.UserID
	}
	for i := range m.Comments {
		post.Comments[i] = ToCommentEntity(&m.Comments[i])
	}

	return post
}

func ToPostModel(e *entity.Post) *model.PostModel {
	if e == nil {
		return nil
	}

	return &model.PostModel{
		ID:        e.ID,
		UserID:    e.UserID,
		Desc:      e.Desc,
		Img:       e.Img,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

func ToCommentEntity(m *model.CommentModel) entity.Comment {
	return entity.Comment{
		ID:           m.ID,
		PostID:       m.PostID,
		UserID:       m.UserID,
		Username:     m.User.Username,
		ProfilePhoto: m.User.ProfilePhoto,
		Text:         m.Text,
		CreatedAt:    m.CreatedAt,
	}
}

func ToSubscriptionEntity(m *model.SubscriptionModel) *entity.Subscription {
	if m == nil {
		return nil
	}

	return &entity.Subscription{
		UserID:    m.UserID,
		Plan:      m.Plan,
		Status:    m.Status,
		PostCount: m.PostCount,
	}
}
