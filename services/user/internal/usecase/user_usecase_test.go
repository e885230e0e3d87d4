package usecase

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"testing"
	"time"

	"snapbuzz/pkg/logger"
	"snapbuzz/pkg/queue"
	"snapbuzz/pkg/storage"
	"snapbuzz/services/user/internal/entity"
	"snapbuzz/services/user/internal/repo/persistent"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockUserRepository struct {
	mock.Mock
}

var _ persistent.UserRepository = (*MockUserRepository)(nil)

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockUserRepository) UpdateProfilePhoto(ctx context.Context, id, photo string) error {
	return m.Called(id, photo).Error(0)
}

func (m *MockUserRepository) UsernameTaken(ctx context.Context, username, exceptID string) (bool, error) {
	args := m.Called(username, exceptID)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) UpdateUsername(ctx context.Context, id, username string) error {
	return m.Called(id, username).Error(0)
}

func (m *MockUserRepository) PostsByUser(ctx context.Context, userID string) ([]entity.Post, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Post), args.Error(1)
}

type MockFollowRepository struct {
	mock.Mock
}

var _ persistent.FollowRepository = (*MockFollowRepository)(nil)

func (m *MockFollowRepository) IsFollowing(ctx context.Context, followerID, followingID string) (bool, error) {
	args := m.Called(followerID, followingID)
	return args.Bool(0), args.Error(1)
}

func (m *MockFollowRepository) Follow(ctx context.Context, followerID, followingID string) (bool, error) {
	args := m.Called(followerID, followingID)
	return args.Bool(0), args.Error(1)
}

func (m *MockFollowRepository) Unfollow(ctx context.Context, followerID, followingID string) (bool, error) {
	args := m.Called(followerID, followingID)
	return args.Bool(0), args.Error(1)
}

func (m *MockFollowRepository) Followers(ctx context.Context, userID string) ([]entity.UserSummary, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.UserSummary), args.Error(1)
}

func (m *MockFollowRepository) Following(ctx context.Context, userID string) ([]entity.UserSummary, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.UserSummary), args.Error(1)
}

type MockStorage struct {
	mock.Mock
}

var _ storage.Storage = (*MockStorage)(nil)

func (m *MockStorage) UploadFile(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	args := m.Called(key, contentType)
	return args.String(0), args.Error(1)
}

func (m *MockStorage) DeleteFile(ctx context.Context, location string) error {
	return m.Called(location).Error(0)
}

type chanPublisher struct {
	tasks chan map[string]interface{}
}

func newChanPublisher() *chanPublisher {
	return &chanPublisher{tasks: make(chan map[string]interface{}, 4)}
}

func (p *chanPublisher) PublishNotificationTask(task map[string]interface{}) error {
	p.tasks <- task
	return nil
}

func (p *chanPublisher) next(t *testing.T) map[string]interface{} {
	t.Helper()
	select {
	case task := <-p.tasks:
		return task
	case <-time.After(time.Second):
		t.Fatal("no task published")
		return nil
	}
}

var _ queue.Publisher = (*chanPublisher)(nil)

type fixture struct {
	users   *MockUserRepository
	follows *MockFollowRepository
	store   *MockStorage
	pub     *chanPublisher
	uc      UserUseCase
}

func newFixture() *fixture {
	f := &fixture{
		users:   new(MockUserRepository),
		follows: new(MockFollowRepository),
		store:   new(MockStorage),
		pub:     newChanPublisher(),
	}
	f.uc = NewUserUseCase(f.users, f.follows, f.store, f.pub, nil, 1024, "uploads/images.png",
		logger.NewWithWriters(io.Discard, io.Discard))
	return f
}

func fileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("profilePhoto", name)
	require.NoError(t, err)
	_, _ = part.Write(content)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("PATCH", "/me", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req.MultipartForm.File["profilePhoto"][0]
}

func TestToggleFollow_Follows(t *testing.T) {
	f := newFixture()
	f.users.On("GetByID", "alice").Return(&entity.User{ID: "alice"}, nil)
	f.users.On("GetByID", "bob").Return(&entity.User{ID: "bob"}, nil)
	f.follows.On("IsFollowing", "alice", "bob").Return(false, nil)
	f.follows.On("Follow", "alice", "bob").Return(true, nil)

	following, err := f.uc.ToggleFollow(context.Background(), "alice", "bob")

	require.NoError(t, err)
	assert.True(t, following)
	task := f.pub.next(t)
	assert.Equal(t, queue.TaskFollow, task["type"])
	assert.Equal(t, "bob", task["user_id"])
	assert.Equal(t, "alice", task["from_user_id"])
}

func TestToggleFollow_Unfollows(t *testing.T) {
	f := newFixture()
	f.users.On("GetByID", "alice").Return(&entity.User{ID: "alice"}, nil)
	f.users.On("GetByID", "bob").Return(&entity.User{ID: "bob"}, nil)
	f.follows.On("IsFollowing", "alice", "bob").Return(true, nil)
	f.follows.On("Unfollow", "alice", "bob").Return(true, nil)

	following, err := f.uc.ToggleFollow(context.Background(), "alice", "bob")

	require.NoError(t, err)
	assert.False(t, following)
	assert.Equal(t, queue.TaskUnfollow, f.pub.next(t)["type"])
}

func TestToggleFollow_RacingInsertDoesNotNotifyTwice(t *testing.T) {
	f := newFixture()
	f.users.On("GetByID", "alice").Return(&entity.User{ID: "alice"}, nil)
	f.users.On("GetByID", "bob").Return(&entity.User{ID: "bob"}, nil)
	f.follows.On("IsFollowing", "alice", "bob").Return(false, nil)
	f.follows.On("Follow", "alice", "bob").Return(false, nil)

	following, err := f.uc.ToggleFollow(context.Background(), "alice", "bob")

	require.NoError(t, err)
	assert.True(t, following)
	select {
	case task := <-f.pub.tasks:
		t.Fatalf("unexpected task %v", task)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestToggleFollow_Rejections(t *testing.T) {
	f := newFixture()
	_, err := f.uc.ToggleFollow(context.Background(), "alice", "alice")
	assert.ErrorIs(t, err, ErrCannotFollowSelf)

	f.users.On("GetByID", "alice").Return(&entity.User{ID: "alice"}, nil)
	f.users.On("GetByID", "ghost").Return(nil, persistent.ErrNotFound)
	_, err = f.uc.ToggleFollow(context.Background(), "alice", "ghost")
	assert.ErrorIs(t, err, ErrTargetNotFound)
	f.follows.AssertNotCalled(t, "IsFollowing", mock.Anything, mock.Anything)
}

func TestGetProfile(t *testing.T) {
	f := newFixture()
	f.users.On("GetByID", "alice").Return(&entity.User{ID: "alice", Username: "alice"}, nil)
	f.follows.On("Followers", "alice").Return([]entity.UserSummary{{ID: "bob"}}, nil)
	f.follows.On("Following", "alice").Return([]entity.UserSummary{}, nil)
	f.users.On("PostsByUser", "alice").Return([]entity.Post{{ID: "p1"}}, nil)

	profile, err := f.uc.GetProfile(context.Background(), "alice")

	require.NoError(t, err)
	assert.Equal(t, "alice", profile.Username)
	assert.Len(t, profile.Followers, 1)
	assert.Empty(t, profile.Following)
	assert.Len(t, profile.Posts, 1)
}

func TestUpdateProfilePhoto_ReplacesOldPhoto(t *testing.T) {
	f := newFixture()
	f.users.On("GetByID", "alice").Return(&entity.User{ID: "alice", ProfilePhoto: "uploads/profile/alice/old.png"}, nil)
	f.store.On("UploadFile", mock.MatchedBy(func(key string) bool {
		return len(key) > len("profile/alice/") && key[:len("profile/alice/")] == "profile/alice/"
	}), "image/png").Return("uploads/profile/alice/new.png", nil)
	f.users.On("UpdateProfilePhoto", "alice", "uploads/profile/alice/new.png").Return(nil)
	f.store.On("DeleteFile", "uploads/profile/alice/old.png").Return(nil)

	location, err := f.uc.UpdateProfilePhoto(context.Background(), "alice", fileHeader(t, "me.png", []byte("png")))

	require.NoError(t, err)
	assert.Equal(t, "uploads/profile/alice/new.png", location)
	f.store.AssertExpectations(t)
}

func TestUpdateProfilePhoto_KeepsDefaultPhoto(t *testing.T) {
	f := newFixture()
	f.users.On("GetByID", "alice").Return(&entity.User{ID: "alice", ProfilePhoto: "uploads/images.png"}, nil)
	f.store.On("UploadFile", mock.Anything, "image/jpeg").Return("uploads/profile/alice/new.jpg", nil)
	f.users.On("UpdateProfilePhoto", "alice", "uploads/profile/alice/new.jpg").Return(nil)

	_, err := f.uc.UpdateProfilePhoto(context.Background(), "alice", fileHeader(t, "me.jpg", []byte("jpg")))

	require.NoError(t, err)
	f.store.AssertNotCalled(t, "DeleteFile", mock.Anything)
}

func TestUpdateProfilePhoto_Rejections(t *testing.T) {
	f := newFixture()
	f.users.On("GetByID", "alice").Return(&entity.User{ID: "alice"}, nil)

	_, err := f.uc.UpdateProfilePhoto(context.Background(), "alice", nil)
	assert.ErrorIs(t, err, ErrNoFile)

	_, err = f.uc.UpdateProfilePhoto(context.Background(), "alice", fileHeader(t, "me.txt", []byte("x")))
	assert.ErrorIs(t, err, storage.ErrUnsupportedImage)

	_, err = f.uc.UpdateProfilePhoto(context.Background(), "alice", fileHeader(t, "me.png", bytes.Repeat([]byte("x"), 2048)))
	assert.ErrorIs(t, err, storage.ErrFileTooLarge)

	f.store.AssertNotCalled(t, "UploadFile", mock.Anything, mock.Anything)
}

func TestUpdateUsername(t *testing.T) {
	f := newFixture()
	f.users.On("UsernameTaken", "alice2", "alice").Return(false, nil)
	f.users.On("UsernameTaken", "bob", "alice").Return(true, nil)
	f.users.On("UpdateUsername", "alice", "alice2").Return(nil)

	name, err := f.uc.UpdateUsername(context.Background(), "alice", "  alice2 ")
	require.NoError(t, err)
	assert.Equal(t, "alice2", name)

	_, err = f.uc.UpdateUsername(context.Background(), "alice", "bob")
	assert.ErrorIs(t, err, ErrUsernameTaken)

	_, err = f.uc.UpdateUsername(context.Background(), "alice", "   ")
	assert.ErrorIs(t, err, ErrUsernameRequired)
}

func TestGetFollower_NotFound(t *testing.T) {
	f := newFixture()
	f.users.On("GetByID", "ghost").Return(nil, persistent.ErrNotFound)

	_, _, err := f.uc.GetFollower(context.Background(), "ghost")

	assert.ErrorIs(t, err, ErrFollowerNotFound)
}

func TestFollowLists_CachedUntilToggle(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	f := newFixture()
	f.uc = NewUserUseCase(f.users, f.follows, f.store, f.pub, rdb, 1024, "uploads/images.png",
		logger.NewWithWriters(io.Discard, io.Discard))
	ctx := context.Background()

	f.follows.On("Following", "alice").Return([]entity.UserSummary{{ID: "carol", Username: "carol"}}, nil)
	f.follows.On("Followers", "bob").Return([]entity.UserSummary{}, nil)

	first, err := f.uc.GetFollowing(ctx, "alice")
	require.NoError(t, err)
	second, err := f.uc.GetFollowing(ctx, "alice")
	require.NoError(t, err)
	_, err = f.uc.GetFollowers(ctx, "bob")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	f.follows.AssertNumberOfCalls(t, "Following", 1)
	assert.True(t, mr.Exists("user:following:alice"))
	assert.True(t, mr.Exists("user:followers:bob"))

	f.users.On("GetByID", "alice").Return(&entity.User{ID: "alice"}, nil)
	f.users.On("GetByID", "bob").Return(&entity.User{ID: "bob"}, nil)
	f.follows.On("IsFollowing", "alice", "bob").Return(false, nil)
	f.follows.On("Follow", "alice", "bob").Return(true, nil)

	_, err = f.uc.ToggleFollow(ctx, "alice", "bob")
	require.NoError(t, err)

	assert.False(t, mr.Exists("user:following:alice"))
	assert.False(t, mr.Exists("user:followers:bob"))

	_, err = f.uc.GetFollowing(ctx, "alice")
	require.NoError(t, err)
	f.follows.AssertNumberOfCalls(t, "Following", 2)
}

func TestToggleFollow_UnfollowThenFollowPublishInOrder(t *testing.T) {
	f := newFixture()
	f.users.On("GetByID", "alice").Return(&entity.User{ID: "alice"}, nil)
	f.users.On("GetByID", "bob").Return(&entity.User{ID: "bob"}, nil)
	f.follows.On("IsFollowing", "alice", "bob").Return(true, nil).Once()
	f.follows.On("IsFollowing", "alice", "bob").Return(false, nil).Once()
	f.follows.On("Unfollow", "alice", "bob").Return(true, nil)
	f.follows.On("Follow", "alice", "bob").Return(true, nil)

	_, err := f.uc.ToggleFollow(context.Background(), "alice", "bob")
	require.NoError(t, err)
	_, err = f.uc.ToggleFollow(context.Background(), "alice", "bob")
	require.NoError(t, err)

	assert.Equal(t, queue.TaskUnfollow, f.pub.next(t)["type"])
	assert.Equal(t, queue.TaskFollow, f.pub.next(t)["type"])
}
