package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"snapbuzz/pkg/storage"
	"snapbuzz/services/user/internal/entity"
	"snapbuzz/services/user/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockUserUseCase struct {
	mock.Mock
}

func (m *MockUserUseCase) GetProfile(ctx context.Context, userID string) (*entity.Profile, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Profile), args.Error(1)
}

func (m *MockUserUseCase) UpdateProfilePhoto(ctx context.Context, userID string, file *multipart.FileHeader) (string, error) {
	args := m.Called(userID, file.Filename)
	return args.String(0), args.Error(1)
}

func (m *MockUserUseCase) ToggleFollow(ctx context.Context, userID, targetID string) (bool, error) {
	args := m.Called(userID, targetID)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserUseCase) GetFollowing(ctx context.Context, userID string) ([]entity.UserSummary, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.UserSummary), args.Error(1)
}

func (m *MockUserUseCase) GetFollowers(ctx context.Context, userID string) ([]entity.UserSummary, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.UserSummary), args.Error(1)
}

func (m *MockUserUseCase) UpdateUsername(ctx context.Context, userID, username string) (string, error) {
	args := m.Called(userID, username)
	return args.String(0), args.Error(1)
}

func (m *MockUserUseCase) GetFollower(ctx context.Context, followerID string) (*entity.User, []entity.Post, error) {
	args := m.Called(followerID)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*entity.User), args.Get(1).([]entity.Post), args.Error(2)
}

var _ usecase.UserUseCase = (*MockUserUseCase)(nil)

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func withUser(userID string, h gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", userID)
		h(c)
	}
}

func TestGetMe_ResolvesPhotoURLs(t *testing.T) {
	mockUseCase := new(MockUserUseCase)
	handler := NewUserHandler(mockUseCase)
	router := setupTestRouter()
	router.GET("/me", withUser("alice", handler.GetMe))

	mockUseCase.On("GetProfile", "alice").Return(&entity.Profile{
		User:      entity.User{ID: "alice", Username: "alice", ProfilePhoto: "uploads/images.png"},
		Followers: []entity.UserSummary{{ID: "bob", ProfilePhoto: "https://cdn.test/bob.png"}},
		Following: []entity.UserSummary{},
		Posts:     []entity.Post{{ID: "p1", Img: "uploads/posts/alice/1.png"}},
	}, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/me", nil)
	req.Host = "api.snapbuzz.test"
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "http://api.snapbuzz.test/uploads/images.png", body["profilePhoto"])
	assert.Equal(t, "https://cdn.test/bob.png", body["followers"].([]interface{})[0].(map[string]interface{})["profilePhoto"])
	assert.Equal(t, "http://api.snapbuzz.test/uploads/posts/alice/1.png", body["posts"].([]interface{})[0].(map[string]interface{})["img"])
}

func TestToggleFollow(t *testing.T) {
	mockUseCase := new(MockUserUseCase)
	handler := NewUserHandler(mockUseCase)
	router := setupTestRouter()
	router.POST("/follow/:id", withUser("alice", handler.ToggleFollow))

	mockUseCase.On("ToggleFollow", "alice", "bob").Return(true, nil).Once()
	mockUseCase.On("ToggleFollow", "alice", "bob").Return(false, nil).Once()
	mockUseCase.On("ToggleFollow", "alice", "alice").Return(false, usecase.ErrCannotFollowSelf)
	mockUseCase.On("ToggleFollow", "alice", "ghost").Return(false, usecase.ErrTargetNotFound)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/follow/bob", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Followed user successfully and notification created","following":true}`, w.Body.String())

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("POST", "/follow/bob", nil)
	router.ServeHTTP(w, req)
	assert.JSONEq(t, `{"message":"Unfollowed user successfully","following":false}`, w.Body.String())

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("POST", "/follow/alice", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"You cannot follow yourself"}`, w.Body.String())

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("POST", "/follow/ghost", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateProfilePhoto_NoFile(t *testing.T) {
	mockUseCase := new(MockUserUseCase)
	handler := NewUserHandler(mockUseCase)
	router := setupTestRouter()
	router.PATCH("/me", withUser("alice", handler.UpdateProfilePhoto))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("PATCH", "/me", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"No file uploaded"}`, w.Body.String())
}

func TestUpdateProfilePhoto_Upload(t *testing.T) {
	mockUseCase := new(MockUserUseCase)
	handler := NewUserHandler(mockUseCase)
	router := setupTestRouter()
	router.PATCH("/me", withUser("alice", handler.UpdateProfilePhoto))

	mockUseCase.On("UpdateProfilePhoto", "alice", "me.png").Return("uploads/profile/alice/x.png", nil)
	mockUseCase.On("UpdateProfilePhoto", "alice", "me.bmp").Return("", storage.ErrUnsupportedImage)

	send := func(filename string) *httptest.ResponseRecorder {
		body := &bytes.Buffer{}
		mw := multipart.NewWriter(body)
		part, _ := mw.CreateFormFile("profilePhoto", filename)
		part.Write([]byte("img"))
		mw.Close()

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("PATCH", "/me", body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Host = "api.test"
		router.ServeHTTP(w, req)
		return w
	}

	w := send("me.png")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Profile photo updated successfully","profilePhoto":"http://api.test/uploads/profile/alice/x.png"}`, w.Body.String())

	w = send("me.bmp")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFollowLists(t *testing.T) {
	mockUseCase := new(MockUserUseCase)
	handler := NewUserHandler(mockUseCase)
	router := setupTestRouter()
	router.GET("/followedUsers", withUser("alice", handler.GetFollowedUsers))
	router.GET("/followers", withUser("alice", handler.GetFollowers))
	router.GET("/followers-following", withUser("alice", handler.GetFollowersAndFollowing))

	mockUseCase.On("GetFollowing", "alice").Return([]entity.UserSummary{{ID: "bob", Username: "bob"}}, nil)
	mockUseCase.On("GetFollowers", "alice").Return([]entity.UserSummary{{ID: "carol", Username: "carol"}}, nil)

	for path, keys := range map[string][]string{
		"/followedUsers":       {"followedUsers"},
		"/followers":           {"followers"},
		"/followers-following": {"followers", "following"},
	} {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", path, nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code, path)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		for _, k := range keys {
			assert.Len(t, body[k], 1, path+" "+k)
		}
	}
}

func TestUpdateUsername(t *testing.T) {
	mockUseCase := new(MockUserUseCase)
	handler := NewUserHandler(mockUseCase)
	router := setupTestRouter()
	router.PATCH("/me/username", withUser("alice", handler.UpdateUsername))

	mockUseCase.On("UpdateUsername", "alice", "alice2").Return("alice2", nil)
	mockUseCase.On("UpdateUsername", "alice", "bob").Return("", usecase.ErrUsernameTaken)
	mockUseCase.On("UpdateUsername", "alice", "").Return("", usecase.ErrUsernameRequired)

	cases := map[string]int{"alice2": http.StatusOK, "bob": http.StatusConflict, "": http.StatusBadRequest}
	for name, code := range cases {
		payload, _ := json.Marshal(gin.H{"username": name})
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("PATCH", "/me/username", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)
		assert.Equal(t, code, w.Code, name)
	}
}

func TestGetFollower(t *testing.T) {
	mockUseCase := new(MockUserUseCase)
	handler := NewUserHandler(mockUseCase)
	router := setupTestRouter()
	router.GET("/follower/:id", withUser("alice", handler.GetFollower))

	mockUseCase.On("GetFollower", "bob").Return(&entity.User{ID: "bob"}, []entity.Post{}, nil)
	mockUseCase.On("GetFollower", "ghost").Return(nil, nil, usecase.ErrFollowerNotFound)
	mockUseCase.On("GetFollower", "broken").Return(nil, nil, errors.New("db down"))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/follower/bob", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"follower"`)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/follower/ghost", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Follower not found"}`, w.Body.String())

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/follower/broken", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
