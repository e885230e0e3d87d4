package persistent

import (
	"context"
	"errors"

	"snapbuzz/pkg/database"
	"snapbuzz/services/user/internal/entity"
	"snapbuzz/services/user/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrNotFound = errors.New("record not found")

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*entity.User, error)
	UpdateProfilePhoto(ctx context.Context, id, photo string) error
	UsernameTaken(ctx context.Context, username, exceptID string) (bool, error)
	UpdateUsername(ctx context.Context, id, username string) error
	PostsByUser(ctx context.Context, userID string) ([]entity.Post, error)
}

type FollowRepository interface {
	IsFollowing(ctx context.Context, followerID, followingID string) (bool, error)
	// Follow inserts the edge and reports whether it was new.
	Follow(ctx context.Context, followerID, followingID string) (bool, error)
	// Unfollow deletes the edge and reports whether one existed.
	Unfollow(ctx context.Context, followerID, followingID string) (bool, error)
	Followers(ctx context.Context, userID string) ([]entity.UserSummary, error)
	Following(ctx context.Context, userID string) ([]entity.UserSummary, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	var userModel model.UserModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&userModel).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || database.IsInvalidText(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return ToUserEntity(&userModel), nil
}

func (r *userRepository) UpdateProfilePhoto(ctx context.Context, id, photo string) error {
	return r.updateColumn(ctx, id, "profile_photo", photo)
}

func (r *userRepository) UsernameTaken(ctx context.Context, username, exceptID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.UserModel{}).
		Where("username = ? AND id <> ?", username, exceptID).
		Count(&count).Error
	return count > 0, err
}

func (r *userRepository) UpdateUsername(ctx context.Context, id, username string) error {
	return r.updateColumn(ctx, id, "username", username)
}

func (r *userRepository) PostsByUser(ctx context.Context, userID string) ([]entity.Post, error) {
	var posts []model.PostModel
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&posts).Error; err != nil {
		return nil, err
	}
	return ToPostEntities(posts), nil
}

func (r *userRepository) updateColumn(ctx context.Context, id, column string, value interface{}) error {
	res := r.db.WithContext(ctx).Model(&model.UserModel{}).Where("id = ?", id).Update(column, value)
	if database.IsInvalidText(res.Error) {
		return ErrNotFound
	}
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

type followRepository struct {
	db *gorm.DB
}

func NewFollowRepository(db *gorm.DB) FollowRepository {
	return &followRepository{db: db}
}

func (r *followRepository) IsFollowing(ctx context.Context, followerID, followingID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.FollowModel{}).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Count(&count).Error
	return count > 0, err
}

func (r *followRepository) Follow(ctx context.Context, followerID, followingID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.FollowModel{FollowerID: followerID, FollowingID: followingID})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *followRepository) Unfollow(ctx context.Context, followerID, followingID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Delete(&model.FollowModel{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *followRepository) Followers(ctx context.Context, userID string) ([]entity.UserSummary, error) {
	return r.summaries(ctx, "follows.follower_id", "follows.following_id", userID)
}

func (r *followRepository) Following(ctx context.Context, userID string) ([]entity.UserSummary, error) {
	return r.summaries(ctx, "follows.following_id", "follows.follower_id", userID)
}

// summaries joins users on joinColumn for edges whose filterColumn is userID.
func (r *followRepository) summaries(ctx context.Context, joinColumn, filterColumn, userID string) ([]entity.UserSummary, error) {
	var rows []model.SummaryRow
	err := r.db.WithContext(ctx).
		Table("users").
		Select("users.id, users.username, users.email, users.profile_photo").
		Joins("JOIN follows ON "+joinColumn+" = users.id").
		Where(filterColumn+" = ?", userID).
		Order("follows.created_at ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return ToSummaryEntities(rows), nil
}
