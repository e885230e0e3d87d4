package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"
	"time"

	"snapbuzz/pkg/logger"
	"snapbuzz/pkg/queue"
	"snapbuzz/pkg/storage"
	"snapbuzz/services/user/internal/entity"
	"snapbuzz/services/user/internal/repo/persistent"

	"github.com/redis/go-redis/v9"
)

const followListTTL = time.Minute

var (
	ErrUserNotFound     = errors.New("User not found")
	ErrTargetNotFound   = errors.New("User to follow not found")
	ErrFollowerNotFound = errors.New("Follower not found")
	ErrCannotFollowSelf = errors.New("You cannot follow yourself")
	ErrUsernameRequired = errors.New("Username is required")
	ErrUsernameTaken    = errors.New("Username already taken")
	ErrNoFile           = errors.New("No file uploaded")
)

type UserUseCase interface {
	GetProfile(ctx context.Context, userID string) (*entity.Profile, error)
	UpdateProfilePhoto(ctx context.Context, userID string, file *multipart.FileHeader) (string, error)
	// ToggleFollow follows or unfollows targetID and returns the new state.
	ToggleFollow(ctx context.Context, userID, targetID string) (bool, error)
	GetFollowing(ctx context.Context, userID string) ([]entity.UserSummary, error)
	GetFollowers(ctx context.Context, userID string) ([]entity.UserSummary, error)
	UpdateUsername(ctx context.Context, userID, username string) (string, error)
	GetFollower(ctx context.Context, followerID string) (*entity.User, []entity.Post, error)
}

type userUseCase struct {
	userRepo            persistent.UserRepository
	followRepo          persistent.FollowRepository
	storage             storage.Storage
	publisher           queue.Publisher
	redisClient         *redis.Client
	maxUploadSize       int64
	defaultProfilePhoto string
	logger              *logger.Logger
}

func NewUserUseCase(
	userRepo persistent.UserRepository,
	followRepo persistent.FollowRepository,
	store storage.Storage,
	publisher queue.Publisher,
	redisClient *redis.Client,
	maxUploadSize int64,
	defaultProfilePhoto string,
	logger *logger.Logger,
) UserUseCase {
	return &userUseCase{
		userRepo:            userRepo,
		followRepo:          followRepo,
		storage:             store,
		publisher:           publisher,
		redisClient:         redisClient,
		maxUploadSize:       maxUploadSize,
		defaultProfilePhoto: defaultProfilePhoto,
		logger:              logger,
	}
}

func (uc *userUseCase) GetProfile(ctx context.Context, userID string) (*entity.Profile, error) {
	user, err := uc.getUser(ctx, userID, ErrUserNotFound)
	if err != nil {
		return nil, err
	}

	followers, err := uc.GetFollowers(ctx, userID)
	if err != nil {
		return nil, err
	}
	following, err := uc.GetFollowing(ctx, userID)
	if err != nil {
		return nil, err
	}
	posts, err := uc.userRepo.PostsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load posts: %w", err)
	}

	return &entity.Profile{
		User:      *user,
		Followers: followers,
		Following: following,
		Posts:     posts,
	}, nil
}

func (uc *userUseCase) UpdateProfilePhoto(ctx context.Context, userID string, file *multipart.FileHeader) (string, error) {
	if file == nil {
		return "", ErrNoFile
	}

	user, err := uc.getUser(ctx, userID, ErrUserNotFound)
	if err != nil {
		return "", err
	}

	location, err := storage.Upload(ctx, uc.storage, file, uc.maxUploadSize, "profile", userID)
	if err != nil {
		return "", err
	}

	if err := uc.userRepo.UpdateProfilePhoto(ctx, userID, location); err != nil {
		return "", fmt.Errorf("failed to update profile photo: %w", err)
	}

	if old := user.ProfilePhoto; old != "" && old != uc.defaultProfilePhoto && old != location {
		if err := uc.storage.DeleteFile(ctx, old); err != nil {
			uc.logger.Warn("Failed to delete old profile photo %s: %v", old, err)
		}
	}

	return location, nil
}

func (uc *userUseCase) ToggleFollow(ctx context.Context, userID, targetID string) (bool, error) {
	if userID == targetID {
		return false, ErrCannotFollowSelf
	}
	if _, err := uc.getUser(ctx, userID, ErrUserNotFound); err != nil {
		return false, err
	}
	if _, err := uc.getUser(ctx, targetID, ErrTargetNotFound); err != nil {
		return false, err
	}

	following, err := uc.followRepo.IsFollowing(ctx, userID, targetID)
	if err != nil {
		return false, fmt.Errorf("failed to check follow: %w", err)
	}

	defer uc.invalidateFollowLists(ctx, userID, targetID)

	if following {
		removed, err := uc.followRepo.Unfollow(ctx, userID, targetID)
		if err != nil {
			return false, fmt.Errorf("failed to unfollow: %w", err)
		}
		if removed {
			uc.publish(queue.UnfollowTask(userID, targetID))
		}
		return false, nil
	}

	created, err := uc.followRepo.Follow(ctx, userID, targetID)
	if err != nil {
		return false, fmt.Errorf("failed to follow: %w", err)
	}
	if created {
		uc.publish(queue.FollowTask(userID, targetID))
	}
	return true, nil
}

func (uc *userUseCase) GetFollowing(ctx context.Context, userID string) ([]entity.UserSummary, error) {
	return uc.cachedList(ctx, followingKey(userID), func() ([]entity.UserSummary, error) {
		return uc.followRepo.Following(ctx, userID)
	})
}

func (uc *userUseCase) GetFollowers(ctx context.Context, userID string) ([]entity.UserSummary, error) {
	return uc.cachedList(ctx, followersKey(userID), func() ([]entity.UserSummary, error) {
		return uc.followRepo.Followers(ctx, userID)
	})
}

func (uc *userUseCase) UpdateUsername(ctx context.Context, userID, username string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return "", ErrUsernameRequired
	}

	taken, err := uc.userRepo.UsernameTaken(ctx, username, userID)
	if err != nil {
		return "", fmt.Errorf("failed to check username: %w", err)
	}
	if taken {
		return "", ErrUsernameTaken
	}

	if err := uc.userRepo.UpdateUsername(ctx, userID, username); err != nil {
		if errors.Is(err, persistent.ErrNotFound) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("failed to update username: %w", err)
	}
	return username, nil
}

func (uc *userUseCase) GetFollower(ctx context.Context, followerID string) (*entity.User, []entity.Post, error) {
	user, err := uc.getUser(ctx, followerID, ErrFollowerNotFound)
	if err != nil {
		return nil, nil, err
	}
	posts, err := uc.userRepo.PostsByUser(ctx, followerID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load posts: %w", err)
	}
	return user, posts, nil
}

func (uc *userUseCase) getUser(ctx context.Context, id string, notFound error) (*entity.User, error) {
	user, err := uc.userRepo.GetByID(ctx, id)
	if errors.Is(err, persistent.ErrNotFound) {
		return nil, notFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}

// publish runs inline so a toggle's tasks reach the queue in order.
func (uc *userUseCase) publish(task map[string]interface{}) {
	if uc.publisher == nil {
		return
	}
	uc.logger.Info("[NOTIFICATION QUEUE] Publishing %v task: from=%v to=%v", task["type"], task["from_user_id"], task["user_id"])
	if err := uc.publisher.PublishNotificationTask(task); err != nil {
		uc.logger.Error("[NOTIFICATION QUEUE] Failed to publish %v task: %v", task["type"], err)
	}
}

func (uc *userUseCase) cachedList(ctx context.Context, key string, load func() ([]entity.UserSummary, error)) ([]entity.UserSummary, error) {
	if uc.redisClient != nil {
		if raw, err := uc.redisClient.Get(ctx, key).Bytes(); err == nil {
			var cached []entity.UserSummary
			if json.Unmarshal(raw, &cached) == nil {
				return cached, nil
			}
		}
	}

	list, err := load()
	if err != nil {
		return nil, fmt.Errorf("failed to load follow list: %w", err)
	}

	if uc.redisClient != nil {
		if raw, err := json.Marshal(list); err == nil {
			uc.redisClient.Set(ctx, key, raw, followListTTL)
		}
	}
	return list, nil
}

func (uc *userUseCase) invalidateFollowLists(ctx context.Context, userID, targetID string) {
	if uc.redisClient == nil {
		return
	}
	keys := []string{followingKey(userID), followersKey(userID), followingKey(targetID), followersKey(targetID)}
	if err := uc.redisClient.Del(ctx, keys...).Err(); err != nil {
		uc.logger.Warn("Failed to invalidate follow lists: %v", err)
	}
}

func followersKey(userID string) string {
	return "user:followers:" + userID
}

func followingKey(userID string) string {
	return "user:following:" + userID
}
