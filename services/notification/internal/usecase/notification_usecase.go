package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"snapbuzz/pkg/logger"
	"snapbuzz/pkg/push"
	"snapbuzz/pkg/queue"
	"snapbuzz/services/notification/internal/entity"
	"snapbuzz/services/notification/internal/repo/persistent"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/redis/go-redis/v9"
)

var (
	ErrUserNotFound         = errors.New("User not found")
	ErrNotificationNotFound = errors.New("Notification not found")
	ErrInvalidSubscription  = errors.New("endpoint, keys.p256dh and keys.auth are required")
	ErrPushUnavailable      = errors.New("Push notifications are not available")
)

type NotificationUseCase interface {
	// HandleTask applies one queue task. Malformed tasks return an error
	// wrapping queue.ErrMalformedTask.
	HandleTask(ctx context.Context, raw map[string]interface{}) error
	GetNotifications(ctx context.Context, userID string) ([]*entity.Notification, error)
	// CreateFollowNotification records that actorID followed targetID and
	// returns the actor's own notifications.
	CreateFollowNotification(ctx context.Context, actorID, targetID string) ([]*entity.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	SavePushSubscription(ctx context.Context, userID string, sub webpush.Subscription) error
	VAPIDPublicKey() string
}

type notificationUseCase struct {
	notificationRepo persistent.NotificationRepository
	redisClient      *redis.Client
	pushStore        push.Store
	notifier         push.Notifier
	vapidPublicKey   string
	logger           *logger.Logger
}

// NewNotificationUseCase wires the use case. redisClient, pushStore and
// notifier may be nil, which disables live delivery and web push.
func NewNotificationUseCase(
	notificationRepo persistent.NotificationRepository,
	redisClient *redis.Client,
	pushStore push.Store,
	notifier push.Notifier,
	vapidPublicKey string,
	logger *logger.Logger,
) NotificationUseCase {
	return &notificationUseCase{
		notificationRepo: notificationRepo,
		redisClient:      redisClient,
		pushStore:        pushStore,
		notifier:         notifier,
		vapidPublicKey:   vapidPublicKey,
		logger:           logger,
	}
}

func (uc *notificationUseCase) HandleTask(ctx context.Context, raw map[string]interface{}) error {
	task, err := queue.ParseTask(raw)
	if err != nil {
		uc.logger.Error("[NOTIFICATION HANDLER] Invalid task: %v, task=%+v", err, raw)
		return err
	}

	uc.logger.Info("[NOTIFICATION HANDLER] Processing %s task: to=%s from=%s post=%s", task.Type, task.UserID, task.FromUserID, task.PostID)

	if task.UserID == task.FromUserID {
		uc.logger.Info("[NOTIFICATION HANDLER] Skipping self notification for user %s", task.UserID)
		return nil
	}

	var postID *string
	if task.PostID != "" {
		postID = &task.PostID
	}

	switch task.Type {
	case queue.TaskFollow, queue.TaskLike:
		_, err = uc.notify(ctx, task.UserID, task.FromUserID, task.Type, postID, true)
	case queue.TaskComment:
		_, err = uc.notify(ctx, task.UserID, task.FromUserID, task.Type, postID, false)
	case queue.TaskUnfollow:
		err = uc.retract(ctx, task.UserID, task.FromUserID, queue.TaskFollow, nil)
	case queue.TaskDislike:
		err = uc.retract(ctx, task.UserID, task.FromUserID, queue.TaskLike, postID)
	}
	return err
}

func (uc *notificationUseCase) GetNotifications(ctx context.Context, userID string) ([]*entity.Notification, error) {
	notifications, err := uc.notificationRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get notifications: %w", err)
	}
	return notifications, nil
}

func (uc *notificationUseCase) CreateFollowNotification(ctx context.Context, actorID, targetID string) ([]*entity.Notification, error) {
	exists, err := uc.notificationRepo.UserExists(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if !exists {
		return nil, ErrUserNotFound
	}

	if actorID != targetID {
		if _, err := uc.notify(ctx, targetID, actorID, queue.TaskFollow, nil, true); err != nil {
			return nil, err
		}
	}
	return uc.GetNotifications(ctx, actorID)
}

func (uc *notificationUseCase) MarkRead(ctx context.Context, userID, notificationID string) error {
	err := uc.notificationRepo.MarkRead(ctx, notificationID, userID)
	if errors.Is(err, persistent.ErrNotFound) {
		return ErrNotificationNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}

func (uc *notificationUseCase) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	updated, err := uc.notificationRepo.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return updated, nil
}

func (uc *notificationUseCase) SavePushSubscription(ctx context.Context, userID string, sub webpush.Subscription) error {
	if sub.Endpoint == "" || sub.Keys.P256dh == "" || sub.Keys.Auth == "" {
		return ErrInvalidSubscription
	}
	if uc.pushStore == nil {
		return ErrPushUnavailable
	}
	return uc.pushStore.Save(ctx, userID, sub)
}

func (uc *notificationUseCase) VAPIDPublicKey() string {
	return uc.vapidPublicKey
}

// notify stores a notification and delivers it live. With dedup set a repeat
// of the same (recipient, actor, type, post) is a no-op.
func (uc *notificationUseCase) notify(ctx context.Context, recipientID, actorID, notificationType string, postID *string, dedup bool) (bool, error) {
	n := &entity.Notification{
		UserID:     recipientID,
		FromUserID: actorID,
		Type:       notificationType,
		PostID:     postID,
	}

	var key *string
	if dedup {
		k := dedupKey(recipientID, actorID, notificationType, postID)
		key = &k
	}

	created, err := uc.notificationRepo.Create(ctx, n, key)
	if errors.Is(err, persistent.ErrMissingReference) {
		uc.logger.Warn("[NOTIFICATION HANDLER] Dropping %s notification for %s from %s: %v", notificationType, recipientID, actorID, err)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create %s notification: %w", notificationType, err)
	}
	if !created {
		uc.logger.Info("[NOTIFICATION HANDLER] Duplicate %s notification for %s from %s ignored", notificationType, recipientID, actorID)
		return false, nil
	}

	full, err := uc.notificationRepo.GetByID(ctx, n.ID)
	if err != nil {
		uc.logger.Warn("[NOTIFICATION HANDLER] Failed to reload notification %s: %v", n.ID, err)
		full = n
	}
	uc.deliver(ctx, full)
	return true, nil
}

func (uc *notificationUseCase) retract(ctx context.Context, recipientID, actorID, notificationType string, postID *string) error {
	deleted, err := uc.notificationRepo.Delete(ctx, recipientID, actorID, notificationType, postID)
	if err != nil {
		return fmt.Errorf("failed to delete %s notification: %w", notificationType, err)
	}
	uc.logger.Info("[NOTIFICATION HANDLER] Removed %d %s notification(s) for %s from %s", deleted, notificationType, recipientID, actorID)
	return nil
}

// deliver publishes to the recipient's Redis channel and sends a web push.
// Both are best effort.
func (uc *notificationUseCase) deliver(ctx context.Context, n *entity.Notification) {
	if uc.redisClient != nil {
		payload, err := json.Marshal(n)
		if err != nil {
			uc.logger.Error("[NOTIFICATION HANDLER] Failed to marshal notification %s: %v", n.ID, err)
		} else if err := uc.redisClient.Publish(ctx, Channel(n.UserID), payload).Err(); err != nil {
			uc.logger.Warn("[NOTIFICATION HANDLER] Failed to publish notification %s: %v", n.ID, err)
		}
	}

	if uc.notifier != nil {
		data := map[string]interface{}{"notificationId": n.ID, "type": n.Type}
		if n.PostID != nil {
			data["postId"] = *n.PostID
		}
		err := uc.notifier.Send(ctx, n.UserID, push.Payload{
			Title: "SnapBuzz",
			Body:  message(n),
			Icon:  n.FromUser.ProfilePhoto,
			Data:  data,
		})
		if err != nil {
			uc.logger.Warn("[NOTIFICATION HANDLER] Web push to %s failed: %v", n.UserID, err)
		}
	}
}

// Channel is the Redis pub/sub channel carrying a user's live notifications.
func Channel(userID string) string {
	return "notifications:" + userID
}

func dedupKey(recipientID, actorID, notificationType string, postID *string) string {
	post := ""
	if postID != nil {
		post = *postID
	}
	return recipientID + ":" + actorID + ":" + notificationType + ":" + post
}

func message(n *entity.Notification) string {
	name := n.FromUser.Username
	if name == "" {
		name = "Someone"
	}
	switch n.Type {
	case queue.TaskFollow:
		return name + " started following you"
	case queue.TaskLike:
		return name + " liked your post"
	case queue.TaskComment:
		return name + " commented on your post"
	default:
		return name + " interacted with you"
	}
}
