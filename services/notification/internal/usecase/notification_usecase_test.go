package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"snapbuzz/pkg/logger"
	"snapbuzz/pkg/push"
	"snapbuzz/pkg/queue"
	"snapbuzz/services/notification/internal/entity"
	"snapbuzz/services/notification/internal/repo/persistent"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockNotificationRepository struct {
	mock.Mock
}

var _ persistent.NotificationRepository = (*MockNotificationRepository)(nil)

func (m *MockNotificationRepository) UserExists(ctx context.Context, id string) (bool, error) {
	args := m.Called(id)
	return args.Bool(0), args.Error(1)
}

func (m *MockNotificationRepository) Create(ctx context.Context, n *entity.Notification, dedupKey *string) (bool, error) {
	key := ""
	if dedupKey != nil {
		key = *dedupKey
	}
	args := m.Called(n.UserID, n.FromUserID, n.Type, key)
	if args.Bool(0) {
		n.ID = "n-1"
	}
	return args.Bool(0), args.Error(1)
}

func (m *MockNotificationRepository) GetByID(ctx context.Context, id string) (*entity.Notification, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Notification), args.Error(1)
}

func (m *MockNotificationRepository) ListByUser(ctx context.Context, userID string) ([]*entity.Notification, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Notification), args.Error(1)
}

func (m *MockNotificationRepository) Delete(ctx context.Context, recipientID, actorID, notificationType string, postID *string) (int64, error) {
	post := ""
	if postID != nil {
		post = *postID
	}
	args := m.Called(recipientID, actorID, notificationType, post)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationRepository) MarkRead(ctx context.Context, id, userID string) error {
	return m.Called(id, userID).Error(0)
}

func (m *MockNotificationRepository) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	args := m.Called(userID)
	return args.Get(0).(int64), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

var _ push.Notifier = (*MockNotifier)(nil)

func (m *MockNotifier) Send(ctx context.Context, userID string, payload push.Payload) error {
	return m.Called(userID, payload.Body).Error(0)
}

type MockPushStore struct {
	mock.Mock
}

var _ push.Store = (*MockPushStore)(nil)

func (m *MockPushStore) Save(ctx context.Context, userID string, sub webpush.Subscription) error {
	return m.Called(userID, sub.Endpoint).Error(0)
}

func (m *MockPushStore) Get(ctx context.Context, userID string) (*webpush.Subscription, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*webpush.Subscription), args.Error(1)
}

func (m *MockPushStore) Delete(ctx context.Context, userID string) error {
	return m.Called(userID).Error(0)
}

type fixture struct {
	repo     *MockNotificationRepository
	notifier *MockNotifier
	store    *MockPushStore
	uc       NotificationUseCase
}

func newFixture() *fixture {
	f := &fixture{
		repo:     new(MockNotificationRepository),
		notifier: new(MockNotifier),
		store:    new(MockPushStore),
	}
	f.uc = NewNotificationUseCase(f.repo, nil, f.store, f.notifier, "public-key",
		logger.NewWithWriters(io.Discard, io.Discard))
	return f
}

func TestHandleTask_FollowCreatesAndPushes(t *testing.T) {
	f := newFixture()
	f.repo.On("Create", "bob", "alice", "follow", "bob:alice:follow:").Return(true, nil)
	f.repo.On("GetByID", "n-1").Return(&entity.Notification{
		ID: "n-1", UserID: "bob", Type: "follow",
		FromUser: entity.UserSummary{ID: "alice", Username: "alice"},
	}, nil)
	f.notifier.On("Send", "bob", "alice started following you").Return(nil)

	err := f.uc.HandleTask(context.Background(), queue.FollowTask("alice", "bob"))

	require.NoError(t, err)
	f.notifier.AssertExpectations(t)
}

func TestHandleTask_DuplicateLikeIsSilent(t *testing.T) {
	f := newFixture()
	f.repo.On("Create", "bob", "alice", "like", "bob:alice:like:p1").Return(false, nil)

	err := f.uc.HandleTask(context.Background(), queue.LikeTask("alice", "bob", "p1"))

	require.NoError(t, err)
	f.repo.AssertNotCalled(t, "GetByID", mock.Anything)
	f.notifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestHandleTask_CommentIsNeverDeduplicated(t *testing.T) {
	f := newFixture()
	f.repo.On("Create", "bob", "alice", "comment", "").Return(true, nil)
	f.repo.On("GetByID", "n-1").Return(&entity.Notification{ID: "n-1", UserID: "bob", Type: "comment"}, nil)
	f.notifier.On("Send", "bob", "Someone commented on your post").Return(nil)

	require.NoError(t, f.uc.HandleTask(context.Background(), queue.CommentTask("alice", "bob", "p1")))
	require.NoError(t, f.uc.HandleTask(context.Background(), queue.CommentTask("alice", "bob", "p1")))

	f.repo.AssertNumberOfCalls(t, "Create", 2)
}

func TestHandleTask_UnfollowAndDislikeRetract(t *testing.T) {
	f := newFixture()
	f.repo.On("Delete", "bob", "alice", "follow", "").Return(int64(1), nil)
	f.repo.On("Delete", "bob", "alice", "like", "p1").Return(int64(1), nil)

	require.NoError(t, f.uc.HandleTask(context.Background(), queue.UnfollowTask("alice", "bob")))
	require.NoError(t, f.uc.HandleTask(context.Background(), queue.DislikeTask("alice", "bob", "p1")))

	f.repo.AssertExpectations(t)
}

func TestHandleTask_Malformed(t *testing.T) {
	f := newFixture()

	err := f.uc.HandleTask(context.Background(), map[string]interface{}{"type": "like", "user_id": "bob"})

	assert.ErrorIs(t, err, queue.ErrMalformedTask)
}

func TestHandleTask_SkipsSelf(t *testing.T) {
	f := newFixture()

	err := f.uc.HandleTask(context.Background(), queue.LikeTask("bob", "bob", "p1"))

	require.NoError(t, err)
	f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateFollowNotification(t *testing.T) {
	f := newFixture()
	f.repo.On("UserExists", "bob").Return(true, nil)
	f.repo.On("UserExists", "ghost").Return(false, nil)
	f.repo.On("Create", "bob", "alice", "follow", "bob:alice:follow:").Return(false, nil)
	f.repo.On("ListByUser", "alice").Return([]*entity.Notification{{ID: "n-9"}}, nil)

	list, err := f.uc.CreateFollowNotification(context.Background(), "alice", "bob")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = f.uc.CreateFollowNotification(context.Background(), "alice", "ghost")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestMarkRead(t *testing.T) {
	f := newFixture()
	f.repo.On("MarkRead", "n1", "bob").Return(nil)
	f.repo.On("MarkRead", "n1", "mallory").Return(persistent.ErrNotFound)

	assert.NoError(t, f.uc.MarkRead(context.Background(), "bob", "n1"))
	assert.ErrorIs(t, f.uc.MarkRead(context.Background(), "mallory", "n1"), ErrNotificationNotFound)
}

func TestSavePushSubscription(t *testing.T) {
	f := newFixture()
	f.store.On("Save", "bob", "https://push.test/abc").Return(nil)

	sub := webpush.Subscription{Endpoint: "https://push.test/abc"}
	assert.ErrorIs(t, f.uc.SavePushSubscription(context.Background(), "bob", sub), ErrInvalidSubscription)

	sub.Keys.P256dh = "key"
	sub.Keys.Auth = "auth"
	assert.NoError(t, f.uc.SavePushSubscription(context.Background(), "bob", sub))
	assert.Equal(t, "public-key", f.uc.VAPIDPublicKey())
}

func TestChannel(t *testing.T) {
	assert.Equal(t, "notifications:bob", Channel("bob"))
}

func TestHandleTask_LikeOnDeletedPostIsDropped(t *testing.T) {
	f := newFixture()
	f.repo.On("Create", "alice", "bob", "like", "alice:bob:like:deleted-post").
		Return(false, fmt.Errorf("insert: %w", persistent.ErrMissingReference))

	err := f.uc.HandleTask(context.Background(), queue.LikeTask("bob", "alice", "deleted-post"))

	require.NoError(t, err)
	f.notifier.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestHandleTask_TransientFailureIsRequeued(t *testing.T) {
	f := newFixture()
	f.repo.On("Create", "alice", "bob", "like", "alice:bob:like:p1").Return(false, errors.New("connection reset"))

	err := f.uc.HandleTask(context.Background(), queue.LikeTask("bob", "alice", "p1"))

	require.Error(t, err)
	assert.True(t, queue.ShouldRequeue(err))
}

func TestHandleTask_PublishesToRecipientChannel(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	ctx := context.Background()
	sub := rdb.Subscribe(ctx, Channel("bob"))
	t.Cleanup(func() { sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	repo := new(MockNotificationRepository)
	repo.On("Create", "bob", "alice", "follow", "bob:alice:follow:").Return(true, nil)
	repo.On("GetByID", "n-1").Return(&entity.Notification{
		ID: "n-1", UserID: "bob", Type: "follow",
		FromUser: entity.UserSummary{ID: "alice", Username: "alice"},
	}, nil)
	uc := NewNotificationUseCase(repo, rdb, nil, nil, "", logger.NewWithWriters(io.Discard, io.Discard))

	require.NoError(t, uc.HandleTask(ctx, queue.FollowTask("alice", "bob")))

	select {
	case msg := <-sub.Channel():
		var n entity.Notification
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &n))
		assert.Equal(t, "n-1", n.ID)
		assert.Equal(t, "follow", n.Type)
	case <-time.After(time.Second):
		t.Fatal("notification was not published")
	}
}
