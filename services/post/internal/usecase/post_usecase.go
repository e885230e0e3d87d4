package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"strconv"
	"strings"
	"time"

	"snapbuzz/pkg/logger"
	"snapbuzz/pkg/plans"
	"snapbuzz/pkg/queue"
	"snapbuzz/pkg/storage"
	"snapbuzz/services/post/internal/entity"
	"snapbuzz/services/post/internal/repo/persistent"

	"github.com/redis/go-redis/v9"
)

const (
	feedTTL      = 30 * time.Second
	likeCountTTL = 24 * time.Hour
	imagePrefix  = "posts"
)

var (
	ErrUserNotFound     = errors.New("User not found")
	ErrPostNotFound     = errors.New("Post not found")
	ErrPostLimitReached = errors.New("Post limit reached. Upgrade your plan.")
	ErrUpdateForbidden  = errors.New("You can update only your post")
	ErrDeleteForbidden  = errors.New("You can delete only your post")
	ErrEmptyComment     = errors.New("Comment text is required")
	ErrCommentNotFound  = errors.New("Comment not found")
	ErrCommentForbidden = errors.New("You can delete only your comment")
)

type PostUseCase interface {
	CreatePost(ctx context.Context, userID, desc string, img *multipart.FileHeader) (*entity.Post, error)
	ListPosts(ctx context.Context, limit, offset int) ([]*entity.Post, error)
	Feed(ctx context.Context, userID string, limit, offset int) ([]*entity.Post, error)
	GetPost(ctx context.Context, postID string) (*entity.Post, error)
	UpdatePost(ctx context.Context, postID, userID, desc string) (*entity.Post, error)
	DeletePost(ctx context.Context, postID, userID string) error
	// ToggleLike likes or unlikes the post and returns the new state and like count.
	ToggleLike(ctx context.Context, postID, userID string) (bool, int64, error)
	IsLiked(ctx context.Context, postID, userID string) (bool, error)
	UserPosts(ctx context.Context, userID string) ([]*entity.Post, error)
	AddComment(ctx context.Context, postID, userID, text string) ([]entity.Comment, error)
	GetComments(ctx context.Context, postID string) ([]entity.Comment, error)
	DeleteComment(ctx context.Context, postID, commentID, userID string) error
}

type postUseCase struct {
	postRepo      persistent.PostRepository
	subRepo       persistent.SubscriptionRepository
	storage       storage.Storage
	publisher     queue.Publisher
	redisClient   *redis.Client
	maxUploadSize int64
	logger        *logger.Logger
}

func NewPostUseCase(
	postRepo persistent.PostRepository,
	subRepo persistent.SubscriptionRepository,
	store storage.Storage,
	publisher queue.Publisher,
	redisClient *redis.Client,
	maxUploadSize int64,
	logger *logger.Logger,
) PostUseCase {
	return &postUseCase{
		postRepo:      postRepo,
		subRepo:       subRepo,
		storage:       store,
		publisher:     publisher,
		redisClient:   redisClient,
		maxUploadSize: maxUploadSize,
		logger:        logger,
	}
}

func (uc *postUseCase) CreatePost(ctx context.Context, userID, desc string, img *multipart.FileHeader) (*entity.Post, error) {
	author, err := uc.postRepo.GetAuthor(ctx, userID)
	if errors.Is(err, persistent.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if err := uc.checkPostLimit(ctx, author); err != nil {
		return nil, err
	}

	post := &entity.Post{
		UserID:       userID,
		Username:     author.Username,
		ProfilePhoto: author.ProfilePhoto,
		Desc:         desc,
		Likes:        []string{},
		Comments:     []entity.Comment{},
	}

	if img != nil {
		location, err := storage.Upload(ctx, uc.storage, img, uc.maxUploadSize, imagePrefix, userID)
		if err != nil {
			return nil, err
		}
		post.Img = location
	}

	if err := uc.postRepo.CreateWithCounters(ctx, post); err != nil {
		if post.Img != "" {
			uc.removeImage(ctx, post.Img)
		}
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	uc.invalidateFeed(ctx, userID)
	uc.logger.Info("Post %s created by %s", post.ID, userID)
	return post, nil
}

// checkPostLimit applies the caller's plan. A missing or lapsed subscription
// counts as the free plan.
func (uc *postUseCase) checkPostLimit(ctx context.Context, author *entity.Author) error {
	sub, err := uc.subRepo.GetByUser(ctx, author.ID)
	if err != nil && !errors.Is(err, persistent.ErrNotFound) {
		return fmt.Errorf("failed to load subscription: %w", err)
	}

	plan, count := plans.Free, author.PostCount
	if sub != nil {
		count = sub.PostCount
		if sub.Active() {
			plan = sub.Plan
		}
	}

	if plans.CanPost(plan, count) {
		return nil
	}

	if sub != nil && sub.Active() {
		if err := uc.subRepo.MarkInactive(ctx, author.ID); err != nil {
			uc.logger.Error("Failed to deactivate subscription for %s: %v", author.ID, err)
		}
	}
	return ErrPostLimitReached
}

func (uc *postUseCase) ListPosts(ctx context.Context, limit, offset int) ([]*entity.Post, error) {
	posts, err := uc.postRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	return posts, nil
}

func (uc *postUseCase) Feed(ctx context.Context, userID string, limit, offset int) ([]*entity.Post, error) {
	key := feedKey(userID, limit, offset)
	if uc.redisClient != nil {
		if raw, err := uc.redisClient.Get(ctx, key).Bytes(); err == nil {
			var cached []*entity.Post
			if json.Unmarshal(raw, &cached) == nil {
				return cached, nil
			}
		}
	}

	posts, err := uc.postRepo.Feed(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to load feed: %w", err)
	}

	if uc.redisClient != nil {
		if raw, err := json.Marshal(posts); err == nil {
			uc.redisClient.Set(ctx, key, raw, feedTTL)
		}
	}
	return posts, nil
}

func (uc *postUseCase) GetPost(ctx context.Context, postID string) (*entity.Post, error) {
	post, err := uc.postRepo.GetByID(ctx, postID)
	if errors.Is(err, persistent.ErrNotFound) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load post: %w", err)
	}
	return post, nil
}

func (uc *postUseCase) UpdatePost(ctx context.Context, postID, userID, desc string) (*entity.Post, error) {
	post, err := uc.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.UserID != userID {
		return nil, ErrUpdateForbidden
	}

	if err := uc.postRepo.UpdateDesc(ctx, postID, desc); err != nil {
		if errors.Is(err, persistent.ErrNotFound) {
			return nil, ErrPostNotFound
		}
		return nil, fmt.Errorf("failed to update post: %w", err)
	}
	return uc.GetPost(ctx, postID)
}

func (uc *postUseCase) DeletePost(ctx context.Context, postID, userID string) error {
	post, err := uc.GetPost(ctx, postID)
	if err != nil {
		return err
	}
	if post.UserID != userID {
		return ErrDeleteForbidden
	}

	if err := uc.postRepo.Delete(ctx, postID); err != nil {
		if errors.Is(err, persistent.ErrNotFound) {
			return ErrPostNotFound
		}
		return fmt.Errorf("failed to delete post: %w", err)
	}

	if post.Img != "" {
		uc.removeImage(ctx, post.Img)
	}
	if uc.redisClient != nil {
		uc.redisClient.Del(ctx, likesKey(postID))
	}
	return nil
}

func (uc *postUseCase) ToggleLike(ctx context.Context, postID, userID string) (bool, int64, error) {
	post, err := uc.GetPost(ctx, postID)
	if err != nil {
		return false, 0, err
	}

	liked, err := uc.postRepo.IsLiked(ctx, postID, userID)
	if err != nil {
		return false, 0, fmt.Errorf("failed to check like: %w", err)
	}

	var delta int64
	if liked {
		removed, err := uc.postRepo.RemoveLike(ctx, postID, userID)
		if err != nil {
			return false, 0, fmt.Errorf("failed to unlike post: %w", err)
		}
		if removed {
			delta = -1
			uc.publish(queue.DislikeTask(userID, post.UserID, postID))
		}
	} else {
		created, err := uc.postRepo.AddLike(ctx, postID, userID)
		if err != nil {
			return false, 0, fmt.Errorf("failed to like post: %w", err)
		}
		if created {
			delta = 1
			if post.UserID != userID {
				uc.publish(queue.LikeTask(userID, post.UserID, postID))
			}
		}
	}

	count, err := uc.likeCount(ctx, postID, delta)
	if err != nil {
		return false, 0, fmt.Errorf("failed to count likes: %w", err)
	}
	return !liked, count, nil
}

// incrIfCached adjusts the counter only if the key exists.
var incrIfCached = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
	return redis.call("INCRBY", KEYS[1], ARGV[1])
end
return false
`)

// likeCount serves the post's like count from post:likes:<id>, applying
// delta to it. A missing or unreadable key is rebuilt from the database.
func (uc *postUseCase) likeCount(ctx context.Context, postID string, delta int64) (int64, error) {
	key := likesKey(postID)
	if uc.redisClient != nil {
		var count int64
		var err error
		if delta != 0 {
			count, err = incrIfCached.Run(ctx, uc.redisClient, []string{key}, delta).Int64()
		} else {
			count, err = uc.redisClient.Get(ctx, key).Int64()
		}
		if err == nil && count >= 0 {
			return count, nil
		}
		if err != nil && !errors.Is(err, redis.Nil) {
			uc.logger.Warn("Like count cache unavailable for %s: %v", postID, err)
		}
	}

	count, err := uc.postRepo.CountLikes(ctx, postID)
	if err != nil {
		return 0, err
	}
	if uc.redisClient != nil {
		uc.redisClient.Set(ctx, key, count, likeCountTTL)
	}
	return count, nil
}

func (uc *postUseCase) IsLiked(ctx context.Context, postID, userID string) (bool, error) {
	if _, err := uc.GetPost(ctx, postID); err != nil {
		return false, err
	}
	liked, err := uc.postRepo.IsLiked(ctx, postID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to check like: %w", err)
	}
	return liked, nil
}

func (uc *postUseCase) UserPosts(ctx context.Context, userID string) ([]*entity.Post, error) {
	posts, err := uc.postRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	return posts, nil
}

func (uc *postUseCase) AddComment(ctx context.Context, postID, userID, text string) ([]entity.Comment, error) {
	post, err := uc.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyComment
	}

	comment := &entity.Comment{PostID: postID, UserID: userID, Text: text}
	if err := uc.postRepo.AddComment(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to add comment: %w", err)
	}

	if post.UserID != userID {
		uc.publish(queue.CommentTask(userID, post.UserID, postID))
	}

	return uc.GetComments(ctx, postID)
}

func (uc *postUseCase) GetComments(ctx context.Context, postID string) ([]entity.Comment, error) {
	if _, err := uc.GetPost(ctx, postID); err != nil {
		return nil, err
	}
	comments, err := uc.postRepo.GetComments(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to load comments: %w", err)
	}
	return comments, nil
}

func (uc *postUseCase) DeleteComment(ctx context.Context, postID, commentID, userID string) error {
	if _, err := uc.GetPost(ctx, postID); err != nil {
		return err
	}

	comment, err := uc.postRepo.GetComment(ctx, postID, commentID)
	if errors.Is(err, persistent.ErrNotFound) {
		return ErrCommentNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load comment: %w", err)
	}
	if comment.UserID != userID {
		return ErrCommentForbidden
	}

	if err := uc.postRepo.DeleteComment(ctx, commentID); err != nil {
		if errors.Is(err, persistent.ErrNotFound) {
			return ErrCommentNotFound
		}
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	return nil
}

func (uc *postUseCase) removeImage(ctx context.Context, location string) {
	if err := uc.storage.DeleteFile(ctx, location); err != nil {
		uc.logger.Warn("Failed to delete image %s: %v", location, err)
	}
}

// publish runs inline so a toggle's tasks reach the queue in order.
func (uc *postUseCase) publish(task map[string]interface{}) {
	if uc.publisher == nil {
		return
	}
	uc.logger.Info("[NOTIFICATION QUEUE] Publishing %v task: from=%v to=%v post=%v", task["type"], task["from_user_id"], task["user_id"], task["post_id"])
	if err := uc.publisher.PublishNotificationTask(task); err != nil {
		uc.logger.Error("[NOTIFICATION QUEUE] Failed to publish %v task: %v", task["type"], err)
	}
}

// invalidateFeed drops every cached page of the user's feed.
func (uc *postUseCase) invalidateFeed(ctx context.Context, userID string) {
	if uc.redisClient == nil {
		return
	}
	iter := uc.redisClient.Scan(ctx, 0, "feed:"+userID+":*", 100).Iterator()
	for iter.Next(ctx) {
		uc.redisClient.Del(ctx, iter.Val())
	}
	if err := iter.Err(); err != nil {
		uc.logger.Warn("Failed to invalidate feed cache for %s: %v", userID, err)
	}
}

func feedKey(userID string, limit, offset int) string {
	return "feed:" + userID + ":" + strconv.Itoa(limit) + ":" + strconv.Itoa(offset)
}

func likesKey(postID string) string {
	return "post:likes:" + postID
}
