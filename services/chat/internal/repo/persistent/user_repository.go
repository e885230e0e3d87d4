package persistent

import (
	"context"
	"errors"

	"snapbuzz/services/chat/internal/entity"
	"snapbuzz/services/chat/internal/model"

	"gorm.io/gorm"
)

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*entity.User, error)
	// Contacts returns the union of the user's followers and followees.
	Contacts(ctx context.Context, userID string) ([]*entity.User, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	var user model.UserModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return ToUserEntity(&user), nil
}

func (r *userRepository) Contacts(ctx context.Context, userID string) ([]*entity.User, error) {
	var users []model.UserModel
	err := r.db.WithContext(ctx).
		Where("id IN (SELECT following_id FROM follows WHERE follower_id = ?) OR id IN (SELECT follower_id FROM follows WHERE following_id = ?)", userID, userID).
		Order("username ASC").
		Find(&users).Error
	if err != nil {
		return nil, err
	}

	contacts := make([]*entity.User, len(users))
	for i := range users {
		contacts[i] = ToUserEntity(&users[i])
	}
	return contacts, nil
}
