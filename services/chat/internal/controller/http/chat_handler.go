package http

import (
	"errors"
	"net/http"

	"snapbuzz/pkg/logger"
	"snapbuzz/pkg/middleware"
	"snapbuzz/pkg/storage"
	"snapbuzz/services/chat/internal/entity"
	"snapbuzz/services/chat/internal/usecase"

	"github.com/gin-gonic/gin"
)

type ChatHandler struct {
	chatUseCase usecase.ChatUseCase
	logger      *logger.Logger
}

func NewChatHandler(chatUseCase usecase.ChatUseCase, logger *logger.Logger) *ChatHandler {
	return &ChatHandler{
		chatUseCase: chatUseCase,
		logger:      logger,
	}
}

type StartConversationRequest struct {
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
}

type SendMessageRequest struct {
	ReceiverID string `json:"receiverId"`
	Text       string `json:"text"`
}

// ListConversations godoc
// @Summary      List chat contacts
// @Description  Followers and followees of the caller with the last message exchanged
// @Tags         conversations
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string][]entity.Contact
// @Failure      500  {object}  map[string]string
// @Router       /conversations [get]
func (h *ChatHandler) ListConversations(c *gin.Context) {
	contacts, err := h.chatUseCase.ListConversations(c.Request.Context(), c.GetString(middleware.ContextUserID))
	if err != nil {
		h.fail(c, err)
		return
	}

	resolve := resolver(c)
	for _, contact := range contacts {
		contact.ProfilePhoto = resolve(contact.ProfilePhoto)
	}
	c.JSON(http.StatusOK, gin.H{"conversations": contacts})
}

// StartConversation godoc
// @Summary      Find or create a conversation
// @Tags         conversations
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body StartConversationRequest true "Members"
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /conversations [post]
func (h *ChatHandler) StartConversation(c *gin.Context) {
	var req StartConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conversationID, err := h.chatUseCase.StartConversation(c.Request.Context(), c.GetString(middleware.ContextUserID), req.SenderID, req.ReceiverID)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversationId": conversationID})
}

// GetMessages godoc
// @Summary      List messages of a conversation
// @Description  Oldest first. Only members may read.
// @Tags         messages
// @Produce      json
// @Security     BearerAuth
// @Param        conversationId path string true "Conversation ID"
// @Success      200  {object}  map[string][]entity.Message
// @Failure      400  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /messages/{conversationId} [get]
func (h *ChatHandler) GetMessages(c *gin.Context) {
	messages, err := h.chatUseCase.GetMessages(c.Request.Context(), c.GetString(middleware.ContextUserID), c.Param("conversationId"))
	if err != nil {
		h.fail(c, err)
		return
	}

	resolve := resolver(c)
	for _, msg := range messages {
		resolveMessage(resolve, msg)
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// SendMessage godoc
// @Summary      Send a message
// @Tags         messages
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        conversationId path string true "Conversation ID"
// @Param        request body SendMessageRequest true "Message"
// @Success      200  {object}  entity.Message
// @Failure      400  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /messages/{conversationId} [post]
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.chatUseCase.SendMessage(c.Request.Context(), c.GetString(middleware.ContextUserID), c.Param("conversationId"), req.ReceiverID, req.Text)
	if err != nil {
		h.fail(c, err)
		return
	}

	resolveMessage(resolver(c), msg)
	c.JSON(http.StatusOK, msg)
}

func (h *ChatHandler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, usecase.ErrReceiverRequired),
		errors.Is(err, usecase.ErrInvalidConversation),
		errors.Is(err, usecase.ErrEmptyMessage):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, usecase.ErrSenderMismatch),
		errors.Is(err, usecase.ErrNotMember):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, usecase.ErrSenderNotFound),
		errors.Is(err, usecase.ErrReceiverNotFound),
		errors.Is(err, usecase.ErrConversationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		h.logger.Error("Chat request failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func resolver(c *gin.Context) func(string) string {
	scheme := storage.RequestScheme(c.Request)
	host := c.Request.Host
	return func(location string) string {
		return storage.PublicURL(scheme, host, location)
	}
}

func resolveMessage(resolve func(string) string, msg *entity.Message) {
	msg.SenderProfilePhoto = resolve(msg.SenderProfilePhoto)
	msg.ReceiverProfilePhoto = resolve(msg.ReceiverProfilePhoto)
}
