package persistent

import (
	"snapbuzz/services/chat/internal/entity"
	"snapbuzz/services/chat/internal/model"
)

func ToConversationEntity(d *model.ConversationDocument) *entity.Conversation {
	if d == nil {
		return nil
	}

	return &entity.Conversation{
		ID:          d.ID.Hex(),
		Members:     d.Members,
		LastMessage: d.LastMessage,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func ToMessageEntity(d *model.MessageDocument) *entity.Message {
	if d == nil {
		return nil
	}

	return &entity.Message{
		ID:                   d.ID.Hex(),
		ConversationID:       d.ConversationID.Hex(),
		Sender:               d.Sender,
		SenderUsername:       d.SenderUsername,
		SenderProfilePhoto:   d.SenderProfilePhoto,
		Receiver:             d.Receiver,
		ReceiverUsername:     d.ReceiverUsername,
		ReceiverProfilePhoto: d.ReceiverProfilePhoto,
		Text:                 d.Text,
		CreatedAt:            d.CreatedAt,
	}
}

func ToUserEntity(m *model.UserModel) *entity.User {
	if m == nil {
		return nil
	}
	return &entity.User{ID: m.ID, Username: m.Username, ProfilePhoto: m.ProfilePhoto}
}
