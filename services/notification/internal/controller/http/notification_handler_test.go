package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"snapbuzz/pkg/jwt"
	"snapbuzz/pkg/logger"
	"snapbuzz/services/notification/internal/entity"
	"snapbuzz/services/notification/internal/usecase"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockNotificationUseCase struct {
	mock.Mock
}

var _ usecase.NotificationUseCase = (*MockNotificationUseCase)(nil)

func (m *MockNotificationUseCase) HandleTask(ctx context.Context, raw map[string]interface{}) error {
	return m.Called(raw).Error(0)
}

func (m *MockNotificationUseCase) GetNotifications(ctx context.Context, userID string) ([]*entity.Notification, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Notification), args.Error(1)
}

func (m *MockNotificationUseCase) CreateFollowNotification(ctx context.Context, actorID, targetID string) ([]*entity.Notification, error) {
	args := m.Called(actorID, targetID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Notification), args.Error(1)
}

func (m *MockNotificationUseCase) MarkRead(ctx context.Context, userID, notificationID string) error {
	return m.Called(userID, notificationID).Error(0)
}

func (m *MockNotificationUseCase) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	args := m.Called(userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockNotificationUseCase) SavePushSubscription(ctx context.Context, userID string, sub webpush.Subscription) error {
	return m.Called(userID, sub.Endpoint).Error(0)
}

func (m *MockNotificationUseCase) VAPIDPublicKey() string {
	return m.Called().String(0)
}

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

func newHandler(uc usecase.NotificationUseCase) *NotificationHandler {
	return NewNotificationHandler(uc, nil, logger.NewWithWriters(io.Discard, io.Discard), jwt.NewService("test-secret-key", time.Hour))
}

func TestGetNotifications(t *testing.T) {
	mockUseCase := new(MockNotificationUseCase)
	handler := newHandler(mockUseCase)
	router := setupTestRouter()
	router.GET("/", withUser("bob", handler.GetNotifications))

	post := "p1"
	mockUseCase.On("GetNotifications", "bob").Return([]*entity.Notification{{
		ID: "n1", Type: "like", PostID: &post,
		User:     entity.UserSummary{ID: "bob"},
		FromUser: entity.UserSummary{ID: "alice", Username: "alice", ProfilePhoto: "uploads/images.png"},
	}}, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/", nil)
	req.Host = "api.test"
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Notifications []map[string]interface{} `json:"notifications"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Notifications, 1)
	assert.Equal(t, "p1", body.Notifications[0]["post"])
	assert.Equal(t, false, body.Notifications[0]["read"])
	fromUser := body.Notifications[0]["fromUser"].(map[string]interface{})
	assert.Equal(t, "http://api.test/uploads/images.png", fromUser["profilePhoto"])
}

func TestCreateFollowNotification(t *testing.T) {
	mockUseCase := new(MockNotificationUseCase)
	handler := newHandler(mockUseCase)
	router := setupTestRouter()
	router.POST("/follow", withUser("alice", handler.CreateFollowNotification))

	mockUseCase.On("CreateFollowNotification", "alice", "bob").Return([]*entity.Notification{}, nil)
	mockUseCase.On("CreateFollowNotification", "alice", "ghost").Return(nil, usecase.ErrUserNotFound)

	send := func(body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/follow", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusCreated, send(`{"followUserId":"bob"}`).Code)
	assert.Equal(t, http.StatusNotFound, send(`{"followUserId":"ghost"}`).Code)

	w := send(`{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"followUserId is required"}`, w.Body.String())
}

func TestMarkRead(t *testing.T) {
	mockUseCase := new(MockNotificationUseCase)
	handler := newHandler(mockUseCase)
	router := setupTestRouter()
	router.PATCH("/:id/read", withUser("bob", handler.MarkRead))
	router.PATCH("/read-all", withUser("bob", handler.MarkAllRead))

	mockUseCase.On("MarkRead", "bob", "n1").Return(nil)
	mockUseCase.On("MarkRead", "bob", "n2").Return(usecase.ErrNotificationNotFound)
	mockUseCase.On("MarkAllRead", "bob").Return(int64(3), nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("PATCH", "/n1/read", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("PATCH", "/n2/read", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("PATCH", "/read-all", nil)
	router.ServeHTTP(w, req)
	assert.JSONEq(t, `{"updated":3}`, w.Body.String())
}

func TestPushEndpoints(t *testing.T) {
	mockUseCase := new(MockNotificationUseCase)
	handler := newHandler(mockUseCase)
	router := setupTestRouter()
	router.GET("/push/vapid-key", withUser("bob", handler.VAPIDKey))
	router.POST("/push/subscribe", withUser("bob", handler.SubscribePush))

	mockUseCase.On("VAPIDPublicKey").Return("BPublic")
	mockUseCase.On("SavePushSubscription", "bob", "https://push.test/1").Return(nil)
	mockUseCase.On("SavePushSubscription", "bob", "").Return(usecase.ErrInvalidSubscription)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/push/vapid-key", nil)
	router.ServeHTTP(w, req)
	assert.JSONEq(t, `{"publicKey":"BPublic"}`, w.Body.String())

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("POST", "/push/subscribe", bytes.NewBufferString(`{"endpoint":"https://push.test/1","keys":{"p256dh":"k","auth":"a"}}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("POST", "/push/subscribe", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleWebSocket_Auth(t *testing.T) {
	handler := newHandler(new(MockNotificationUseCase))
	router := setupTestRouter()
	router.GET("/ws", handler.HandleWebSocket)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/ws", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/ws?token=garbage", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := jwt.NewService("test-secret-key", time.Hour).GenerateToken("bob", "bob@test.com")
	require.NoError(t, err)
	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/ws?token="+token, nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
