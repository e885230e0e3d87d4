package http

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"snapbuzz/pkg/jwt"
	"snapbuzz/pkg/logger"
	"snapbuzz/pkg/middleware"
	"snapbuzz/pkg/storage"
	"snapbuzz/services/notification/internal/entity"
	"snapbuzz/services/notification/internal/usecase"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type NotificationHandler struct {
	notificationUseCase usecase.NotificationUseCase
	redisClient         *redis.Client
	logger              *logger.Logger
	jwtService          *jwt.Service
}

func NewNotificationHandler(notificationUseCase usecase.NotificationUseCase, redisClient *redis.Client, logger *logger.Logger, jwtService *jwt.Service) *NotificationHandler {
	return &NotificationHandler{
		notificationUseCase: notificationUseCase,
		redisClient:         redisClient,
		logger:              logger,
		jwtService:          jwtService,
	}
}

type FollowNotificationRequest struct {
	FollowUserID string `json:"followUserId"`
}

// GetNotifications godoc
// @Summary      Get the caller's notifications
// @Description  Newest first, with recipient and actor summaries
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string][]entity.Notification
// @Failure      500  {object}  map[string]string
// @Router       / [get]
func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	notifications, err := h.notificationUseCase.GetNotifications(c.Request.Context(), c.GetString(middleware.ContextUserID))
	if err != nil {
		h.logger.Error("Failed to get notifications: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get notifications"})
		return
	}

	resolveAll(c, notifications)
	c.JSON(http.StatusOK, gin.H{"notifications": notifications})
}

// CreateFollowNotification godoc
// @Summary      Record a follow notification
// @Tags         notifications
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body FollowNotificationRequest true "User being followed"
// @Success      201  {object}  map[string][]entity.Notification
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /follow [post]
func (h *NotificationHandler) CreateFollowNotification(c *gin.Context) {
	var req FollowNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.FollowUserID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "followUserId is required"})
		return
	}

	notifications, err := h.notificationUseCase.CreateFollowNotification(c.Request.Context(), c.GetString(middleware.ContextUserID), req.FollowUserID)
	if err != nil {
		h.fail(c, err)
		return
	}

	resolveAll(c, notifications)
	c.JSON(http.StatusCreated, gin.H{"notifications": notifications})
}

// MarkRead godoc
// @Summary      Mark one notification read
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Notification ID"
// @Success      200  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /{id}/read [patch]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	if err := h.notificationUseCase.MarkRead(c.Request.Context(), c.GetString(middleware.ContextUserID), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}

// MarkAllRead godoc
// @Summary      Mark all of the caller's notifications read
// @Tags         notifications
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]int64
// @Router       /read-all [patch]
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	updated, err := h.notificationUseCase.MarkAllRead(c.Request.Context(), c.GetString(middleware.ContextUserID))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

// VAPIDKey godoc
// @Summary      Public VAPID key for web push
// @Tags         push
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]string
// @Router       /push/vapid-key [get]
func (h *NotificationHandler) VAPIDKey(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"publicKey": h.notificationUseCase.VAPIDPublicKey()})
}

// SubscribePush godoc
// @Summary      Register the caller's web push subscription
// @Tags         push
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body webpush.Subscription true "Push subscription"
// @Success      201  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Router       /push/subscribe [post]
func (h *NotificationHandler) SubscribePush(c *gin.Context) {
	var sub webpush.Subscription
	if err := c.ShouldBindJSON(&sub); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.notificationUseCase.SavePushSubscription(c.Request.Context(), c.GetString(middleware.ContextUserID), sub); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Subscribed to push notifications"})
}

// HandleWebSocket godoc
// @Summary      Live notification stream
// @Description  Authenticates with the token query parameter and streams new notifications
// @Tags         notifications
// @Param        token query string true "JWT"
// @Router       /ws [get]
func (h *NotificationHandler) HandleWebSocket(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Token required"})
		return
	}

	claims, err := h.jwtService.ValidateToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return
	}
	userID := claims.UserID

	if h.redisClient == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Live notifications are unavailable"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade connection to WebSocket: %v", err)
		return
	}
	defer conn.Close()

	h.logger.Info("WebSocket connected for user %s", userID)

	ctx := c.Request.Context()
	pubsub := h.redisClient.Subscribe(ctx, usecase.Channel(userID))
	defer pubsub.Close()

	var writeMu sync.Mutex
	write := func(messageType int, data []byte) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteMessage(messageType, data)
	}

	conn.SetPingHandler(func(appData string) error {
		return write(websocket.PongMessage, []byte(appData))
	})

	redisChannel := pubsub.Channel()
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-done:
				return
			case msg, ok := <-redisChannel:
				if !ok {
					return
				}
				if err := write(websocket.TextMessage, []byte(msg.Payload)); err != nil {
					h.logger.Error("Failed to write WebSocket message: %v", err)
					return
				}
			}
		}
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("WebSocket read error: %v", err)
			}
			break
		}
		// Clients that cannot send control frames ping with a text message.
		if messageType == websocket.TextMessage && string(data) == "ping" {
			if err := write(websocket.TextMessage, []byte("pong")); err != nil {
				break
			}
		}
	}

	close(done)
	h.logger.Info("WebSocket disconnected for user %s", userID)
}

func (h *NotificationHandler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, usecase.ErrUserNotFound),
		errors.Is(err, usecase.ErrNotificationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, usecase.ErrInvalidSubscription):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, usecase.ErrPushUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		h.logger.Error("Notification request failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func resolveAll(c *gin.Context, notifications []*entity.Notification) {
	scheme := storage.RequestScheme(c.Request)
	for _, n := range notifications {
		n.User.ProfilePhoto = storage.PublicURL(scheme, c.Request.Host, n.User.ProfilePhoto)
		n.FromUser.ProfilePhoto = storage.PublicURL(scheme, c.Request.Host, n.FromUser.ProfilePhoto)
	}
}
