package persistent

import (
	"context"
	"errors"
	"time"

	"snapbuzz/pkg/database"
	"snapbuzz/services/post/internal/entity"
	"snapbuzz/services/post/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrNotFound = errors.New("record not found")

type PostRepository interface {
	GetAuthor(ctx context.Context, userID string) (*entity.Author, error)
	// CreateWithCounters inserts the post and bumps the author's post counters
	// in one transaction.
	CreateWithCounters(ctx context.Context, post *entity.Post) error
	GetByID(ctx context.Context, id string) (*entity.Post, error)
	// List returns posts newest first. A zero limit returns every post.
	List(ctx context.Context, limit, offset int) ([]*entity.Post, error)
	ListByUser(ctx context.Context, userID string) ([]*entity.Post, error)
	Feed(ctx context.Context, userID string, limit, offset int) ([]*entity.Post, error)
	UpdateDesc(ctx context.Context, id, desc string) error
	Delete(ctx context.Context, id string) error

	AddLike(ctx context.Context, postID, userID string) (bool, error)
	RemoveLike(ctx context.Context, postID, userID string) (bool, error)
	IsLiked(ctx context.Context, postID, userID string) (bool, error)
	CountLikes(ctx context.Context, postID string) (int64, error)

	AddComment(ctx context.Context, comment *entity.Comment) error
	GetComments(ctx context.Context, postID string) ([]entity.Comment, error)
	GetComment(ctx context.Context, postID, commentID string) (*entity.Comment, error)
	DeleteComment(ctx context.Context, commentID string) error
}

type SubscriptionRepository interface {
	GetByUser(ctx context.Context, userID string) (*entity.Subscription, error)
	MarkInactive(ctx context.Context, userID string) error
}

type postRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) GetAuthor(ctx context.Context, userID string) (*entity.Author, error) {
	var user model.UserModel
	err := r.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || database.IsInvalidText(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &entity.Author{
		ID:           user.ID,
		Username:     user.Username,
		ProfilePhoto: user.ProfilePhoto,
		PostCount:    user.PostCount,
	}, nil
}

func (r *postRepository) CreateWithCounters(ctx context.Context, post *entity.Post) error {
	postModel := ToPostModel(post)
	now := time.Now()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(postModel).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.UserModel{}).Where("id = ?", post.UserID).
			Updates(map[string]interface{}{
				"post_count":     gorm.Expr("post_count + ?", 1),
				"last_post_date": now,
			}).Error; err != nil {
			return err
		}
		return tx.Model(&model.SubscriptionModel{}).Where("user_id = ?", post.UserID).
			Update("post_count", gorm.Expr("post_count + ?", 1)).Error
	})
	if err != nil {
		return err
	}

	post.ID = postModel.ID
	post.CreatedAt = postModel.CreatedAt
	post.UpdatedAt = postModel.UpdatedAt
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*entity.Post, error) {
	var postModel model.PostModel
	err := r.withRelations(ctx).Where("id = ?", id).First(&postModel).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || database.IsInvalidText(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return ToPostEntity(&postModel), nil
}

func (r *postRepository) List(ctx context.Context, limit, offset int) ([]*entity.Post, error) {
	return r.find(r.page(r.withRelations(ctx), limit, offset))
}

func (r *postRepository) ListByUser(ctx context.Context, userID string) ([]*entity.Post, error) {
	return r.find(r.withRelations(ctx).Where("user_id = ?", userID))
}

func (r *postRepository) Feed(ctx context.Context, userID string, limit, offset int) ([]*entity.Post, error) {
	query := r.withRelations(ctx).
		Where("user_id IN (SELECT following_id FROM follows WHERE follower_id = ?) OR user_id = ?", userID, userID)
	return r.find(r.page(query, limit, offset))
}

func (r *postRepository) UpdateDesc(ctx context.Context, id, desc string) error {
	res := r.db.WithContext(ctx).Model(&model.PostModel{}).Where("id = ?", id).Update("desc", desc)
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

// Delete removes the post. Likes and comments go with it through the
// foreign key cascade.
func (r *postRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.PostModel{})
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

func (r *postRepository) AddLike(ctx context.Context, postID, userID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.LikeModel{PostID: postID, UserID: userID})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *postRepository) RemoveLike(ctx context.Context, postID, userID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Delete(&model.LikeModel{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *postRepository) IsLiked(ctx context.Context, postID, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.LikeModel{}).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *postRepository) CountLikes(ctx context.Context, postID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.LikeModel{}).Where("post_id = ?", postID).Count(&count).Error
	return count, err
}

func (r *postRepository) AddComment(ctx context.Context, comment *entity.Comment) error {
	commentModel := &model.CommentModel{
		PostID: comment.PostID,
		UserID: comment.UserID,
		Text:   comment.Text,
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(commentModel).Error; err != nil {
		return err
	}
	comment.ID = commentModel.ID
	comment.CreatedAt = commentModel.CreatedAt
	return nil
}

func (r *postRepository) GetComments(ctx context.Context, postID string) ([]entity.Comment, error) {
	var comments []model.CommentModel
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("post_id = ?", postID).
		Order("created_at ASC").
		Find(&comments).Error
	if err != nil {
		return nil, err
	}

	out := make([]entity.Comment, len(comments))
	for i := range comments {
		out[i] = ToCommentEntity(&comments[i])
	}
	return out, nil
}

func (r *postRepository) GetComment(ctx context.Context, postID, commentID string) (*entity.Comment, error) {
	var comment model.CommentModel
	err := r.db.WithContext(ctx).Where("id = ? AND post_id = ?", commentID, postID).First(&comment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || database.IsInvalidText(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	out := ToCommentEntity(&comment)
	return &out, nil
}

func (r *postRepository) DeleteComment(ctx context.Context, commentID string) error {
	res := r.db.WithContext(ctx).Where("id = ?", commentID).Delete(&model.CommentModel{})
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

func (r *postRepository) withRelations(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("User").
		Preload("Likes").
		Preload("Comments", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Comments.User").
		Order("created_at DESC")
}

func (r *postRepository) page(query *gorm.DB, limit, offset int) *gorm.DB {
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	return query
}

func (r *postRepository) find(query *gorm.DB) ([]*entity.Post, error) {
	var models []model.PostModel
	err := query.Find(&models).Error
	if database.IsInvalidText(err) {
		return []*entity.Post{}, nil
	}
	if err != nil {
		return nil, err
	}
	posts := make([]*entity.Post, len(models))
	for i := range models {
		posts[i] = ToPostEntity(&models[i])
	}
	return posts, nil
}

type subscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) GetByUser(ctx context.Context, userID string) (*entity.Subscription, error) {
	var sub model.SubscriptionModel
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || database.IsInvalidText(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return ToSubscriptionEntity(&sub), nil
}

func (r *subscriptionRepository) MarkInactive(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).Model(&model.SubscriptionModel{}).
		Where("user_id = ?", userID).
		Update("status", "inactive").Error
}
