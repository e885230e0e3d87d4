package persistent

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"snapbuzz/services/chat/internal/entity"
	"snapbuzz/services/chat/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrInvalidID = errors.New("invalid id")
)

type ConversationRepository interface {
	// FindOrCreate returns the conversation between a and b, creating it
	// atomically when it does not exist.
	FindOrCreate(ctx context.Context, a, b string) (*entity.Conversation, error)
	GetByID(ctx context.Context, id string) (*entity.Conversation, error)
	ListForUser(ctx context.Context, userID string) ([]*entity.Conversation, error)
	SetLastMessage(ctx context.Context, id, text string, at time.Time) error
}

type conversationRepository struct {
	coll *mongo.Collection
}

func NewConversationRepository(db *mongo.Database) ConversationRepository {
	return &conversationRepository{coll: db.Collection(model.ConversationCollection)}
}

// EnsureConversationIndexes creates the unique pair index and the member lookup index.
func EnsureConversationIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(model.ConversationCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "pairKey", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "members", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create conversation indexes: %w", err)
	}
	_, err = db.Collection(model.MessageCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "conversationId", Value: 1}, {Key: "createdAt", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create message index: %w", err)
	}
	return nil
}

// PairKey is the order independent key of a two member conversation.
func PairKey(a, b string) string {
	members := []string{a, b}
	sort.Strings(members)
	return strings.Join(members, ":")
}

func (r *conversationRepository) FindOrCreate(ctx context.Context, a, b string) (*entity.Conversation, error) {
	members := []string{a, b}
	sort.Strings(members)
	now := time.Now().UTC()

	var doc model.ConversationDocument
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"pairKey": PairKey(a, b)},
		bson.M{"$setOnInsert": bson.M{
			"members":     members,
			"pairKey":     PairKey(a, b),
			"lastMessage": nil,
			"createdAt":   now,
			"updatedAt":   now,
		}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert conversation: %w", err)
	}
	return ToConversationEntity(&doc), nil
}

func (r *conversationRepository) GetByID(ctx context.Context, id string) (*entity.Conversation, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrInvalidID
	}

	var doc model.ConversationDocument
	err = r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return ToConversationEntity(&doc), nil
}

func (r *conversationRepository) ListForUser(ctx context.Context, userID string) ([]*entity.Conversation, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"members": userID},
		options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []model.ConversationDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	conversations := make([]*entity.Conversation, len(docs))
	for i := range docs {
		conversations[i] = ToConversationEntity(&docs[i])
	}
	return conversations, nil
}

func (r *conversationRepository) SetLastMessage(ctx context.Context, id, text string, at time.Time) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrInvalidID
	}

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"lastMessage": text, "updatedAt": at}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
