package persistent

import (
	"context"
	"time"

	"snapbuzz/services/chat/internal/entity"
	"snapbuzz/services/chat/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MessageRepository interface {
	Create(ctx context.Context, msg *entity.Message) error
	// ListByConversation returns messages oldest first.
	ListByConversation(ctx context.Context, conversationID string) ([]*entity.Message, error)
}

type messageRepository struct {
	coll *mongo.Collection
}

func NewMessageRepository(db *mongo.Database) MessageRepository {
	return &messageRepository{coll: db.Collection(model.MessageCollection)}
}

func (r *messageRepository) Create(ctx context.Context, msg *entity.Message) error {
	conversationID, err := primitive.ObjectIDFromHex(msg.ConversationID)
	if err != nil {
		return ErrInvalidID
	}

	doc := model.MessageDocument{
		ID:                   primitive.NewObjectID(),
		ConversationID:       conversationID,
		Sender:               msg.Sender,
		SenderUsername:       msg.SenderUsername,
		SenderProfilePhoto:   msg.SenderProfilePhoto,
		Receiver:             msg.Receiver,
		ReceiverUsername:     msg.ReceiverUsername,
		ReceiverProfilePhoto: msg.ReceiverProfilePhoto,
		Text:                 msg.Text,
		CreatedAt:            time.Now().UTC(),
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return err
	}

	msg.ID = doc.ID.Hex()
	msg.CreatedAt = doc.CreatedAt
	return nil
}

func (r *messageRepository) ListByConversation(ctx context.Context, conversationID string) ([]*entity.Message, error) {
	oid, err := primitive.ObjectIDFromHex(conversationID)
	if err != nil {
		return nil, ErrInvalidID
	}

	cursor, err := r.coll.Find(ctx, bson.M{"conversationId": oid},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []model.MessageDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	messages := make([]*entity.Message, len(docs))
	for i := range docs {
		messages[i] = ToMessageEntity(&docs[i])
	}
	return messages, nil
}
