package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"snapbuzz/pkg/logger"
	"snapbuzz/pkg/push"
	"snapbuzz/services/chat/internal/entity"
	"snapbuzz/services/chat/internal/repo/persistent"
)

const pushTimeout = 10 * time.Second

var (
	ErrReceiverRequired     = errors.New("receiverId is required")
	ErrSenderMismatch       = errors.New("You can only start conversations as yourself")
	ErrSenderNotFound       = errors.New("Sender not found")
	ErrReceiverNotFound     = errors.New("Receiver not found")
	ErrInvalidConversation  = errors.New("Invalid conversation ID")
	ErrConversationNotFound = errors.New("Conversation not found")
	ErrNotMember            = errors.New("You are not a member of this conversation")
	ErrEmptyMessage         = errors.New("Message text is required")
)

type ChatUseCase interface {
	ListConversations(ctx context.Context, userID string) ([]*entity.Contact, error)
	// StartConversation returns the ID of the conversation between the caller
	// and receiverID. senderID, when set, must equal callerID.
	StartConversation(ctx context.Context, callerID, senderID, receiverID string) (string, error)
	GetMessages(ctx context.Context, userID, conversationID string) ([]*entity.Message, error)
	SendMessage(ctx context.Context, senderID, conversationID, receiverID, text string) (*entity.Message, error)
}

type chatUseCase struct {
	conversationRepo persistent.ConversationRepository
	messageRepo      persistent.MessageRepository
	userRepo         persistent.UserRepository
	notifier         push.Notifier
	logger           *logger.Logger
}

// NewChatUseCase wires the use case. notifier may be nil.
func NewChatUseCase(
	conversationRepo persistent.ConversationRepository,
	messageRepo persistent.MessageRepository,
	userRepo persistent.UserRepository,
	notifier push.Notifier,
	logger *logger.Logger,
) ChatUseCase {
	return &chatUseCase{
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		userRepo:         userRepo,
		notifier:         notifier,
		logger:           logger,
	}
}

func (uc *chatUseCase) ListConversations(ctx context.Context, userID string) ([]*entity.Contact, error) {
	users, err := uc.userRepo.Contacts(ctx, userID)
	if err != nil {
		return nil, err
	}
	contacts := make([]*entity.Contact, 0, len(users))
	if len(users) == 0 {
		return contacts, nil
	}

	conversations, err := uc.conversationRepo.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	last := make(map[string]*string, len(conversations))
	for _, conv := range conversations {
		last[conv.Other(userID)] = conv.LastMessage
	}

	for _, u := range users {
		contacts = append(contacts, &entity.Contact{User: *u, LastMessage: last[u.ID]})
	}
	return contacts, nil
}

func (uc *chatUseCase) StartConversation(ctx context.Context, callerID, senderID, receiverID string) (string, error) {
	if receiverID == "" {
		return "", ErrReceiverRequired
	}
	if senderID != "" && senderID != callerID {
		return "", ErrSenderMismatch
	}

	if _, err := uc.userRepo.GetByID(ctx, receiverID); err != nil {
		if errors.Is(err, persistent.ErrNotFound) {
			return "", ErrReceiverNotFound
		}
		return "", err
	}

	conv, err := uc.conversationRepo.FindOrCreate(ctx, callerID, receiverID)
	if err != nil {
		return "", err
	}
	uc.logger.Info("Conversation %s ready for %s and %s", conv.ID, callerID, receiverID)
	return conv.ID, nil
}

func (uc *chatUseCase) GetMessages(ctx context.Context, userID, conversationID string) ([]*entity.Message, error) {
	if _, err := uc.membership(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	return uc.messageRepo.ListByConversation(ctx, conversationID)
}

func (uc *chatUseCase) SendMessage(ctx context.Context, senderID, conversationID, receiverID, text string) (*entity.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	conv, err := uc.membership(ctx, senderID, conversationID)
	if err != nil {
		return nil, err
	}
	if receiverID == "" {
		receiverID = conv.Other(senderID)
	}
	if !conv.HasMember(receiverID) {
		return nil, ErrNotMember
	}

	sender, err := uc.userRepo.GetByID(ctx, senderID)
	if err != nil {
		if errors.Is(err, persistent.ErrNotFound) {
			return nil, ErrSenderNotFound
		}
		return nil, err
	}
	receiver, err := uc.userRepo.GetByID(ctx, receiverID)
	if err != nil {
		if errors.Is(err, persistent.ErrNotFound) {
			return nil, ErrReceiverNotFound
		}
		return nil, err
	}

	msg := &entity.Message{
		ConversationID:       conv.ID,
		Sender:               sender.ID,
		SenderUsername:       sender.Username,
		SenderProfilePhoto:   sender.ProfilePhoto,
		Receiver:             receiver.ID,
		ReceiverUsername:     receiver.Username,
		ReceiverProfilePhoto: receiver.ProfilePhoto,
		Text:                 text,
	}
	if err := uc.messageRepo.Create(ctx, msg); err != nil {
		return nil, err
	}

	if err := uc.conversationRepo.SetLastMessage(ctx, conv.ID, text, msg.CreatedAt); err != nil {
		uc.logger.Warn("Failed to update last message of conversation %s: %v", conv.ID, err)
	}

	uc.push(receiver.ID, msg)
	return msg, nil
}

func (uc *chatUseCase) membership(ctx context.Context, userID, conversationID string) (*entity.Conversation, error) {
	conv, err := uc.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		switch {
		case errors.Is(err, persistent.ErrInvalidID):
			return nil, ErrInvalidConversation
		case errors.Is(err, persistent.ErrNotFound):
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	if !conv.HasMember(userID) {
		return nil, ErrNotMember
	}
	return conv, nil
}

func (uc *chatUseCase) push(receiverID string, msg *entity.Message) {
	if uc.notifier == nil {
		return
	}

	payload := push.Payload{
		Title: msg.SenderUsername,
		Body:  msg.Text,
		Icon:  msg.SenderProfilePhoto,
		Data: map[string]interface{}{
			"type":           "message",
			"conversationId": msg.ConversationID,
			"sender":         msg.Sender,
		},
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
		defer cancel()
		if err := uc.notifier.Send(ctx, receiverID, payload); err != nil {
			uc.logger.Warn("[CHAT PUSH] Failed to notify %s: %v", receiverID, err)
		}
	}()
}
