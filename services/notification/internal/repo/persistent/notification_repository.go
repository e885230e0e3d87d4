package persistent

import (
	"context"
	"errors"

	"snapbuzz/pkg/database"
	"snapbuzz/services/notification/internal/entity"
	"snapbuzz/services/notification/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrMissingReference means the recipient, actor or post no longer exists.
	ErrMissingReference = errors.New("referenced user or post does not exist")
)

type NotificationRepository interface {
	UserExists(ctx context.Context, id string) (bool, error)
	// Create inserts the notification. When dedupKey is set and already
	// present nothing is inserted and false is returned.
	Create(ctx context.Context, n *entity.Notification, dedupKey *string) (bool, error)
	GetByID(ctx context.Context, id string) (*entity.Notification, error)
	ListByUser(ctx context.Context, userID string) ([]*entity.Notification, error)
	// Delete removes notifications of the given type from actor to recipient.
	// A nil postID matches regardless of post.
	Delete(ctx context.Context, recipientID, actorID, notificationType string, postID *string) (int64, error)
	MarkRead(ctx context.Context, id, userID string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}

type notificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) UserExists(ctx context.Context, id string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.UserModel{}).Where("id = ?", id).Count(&count).Error
	if database.IsInvalidText(err) {
		return false, nil
	}
	return count > 0, err
}

func (r *notificationRepository) Create(ctx context.Context, n *entity.Notification, dedupKey *string) (bool, error) {
	notificationModel := ToNotificationModel(n)
	notificationModel.DedupKey = dedupKey

	res := r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "dedup_key"}}, DoNothing: true}).
		Create(notificationModel)
	if database.IsForeignKeyViolation(res.Error) {
		return false, ErrMissingReference
	}
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	n.ID = notificationModel.ID
	n.CreatedAt = notificationModel.CreatedAt
	return true, nil
}

func (r *notificationRepository) GetByID(ctx context.Context, id string) (*entity.Notification, error) {
	var notificationModel model.NotificationModel
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("FromUser").
		Where("id = ?", id).
		First(&notificationModel).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || database.IsInvalidText(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return ToNotificationEntity(&notificationModel), nil
}

func (r *notificationRepository) ListByUser(ctx context.Context, userID string) ([]*entity.Notification, error) {
	var models []model.NotificationModel
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("FromUser").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	notifications := make([]*entity.Notification, len(models))
	for i := range models {
		notifications[i] = ToNotificationEntity(&models[i])
	}
	return notifications, nil
}

func (r *notificationRepository) Delete(ctx context.Context, recipientID, actorID, notificationType string, postID *string) (int64, error) {
	query := r.db.WithContext(ctx).
		Where("user_id = ? AND from_user_id = ? AND type = ?", recipientID, actorID, notificationType)
	if postID != nil {
		query = query.Where("post_id = ?", *postID)
	}
	res := query.Delete(&model.NotificationModel{})
	return res.RowsAffected, res.Error
}

func (r *notificationRepository) MarkRead(ctx context.Context, id, userID string) error {
	res := r.db.WithContext(ctx).Model(&model.NotificationModel{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("read", true)
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

func (r *notificationRepository) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.NotificationModel{}).
		Where("user_id = ? AND read = ?", userID, false).
		Update("read", true)
	return res.RowsAffected, res.Error
}
