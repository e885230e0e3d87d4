// Package push delivers web push notifications to subscribed clients.
package push

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const CollectionName = "push_subscriptions"

var ErrNoSubscription = errors.New("no push subscription")

type Subscription struct {
	UserID    string               `bson:"userId" json:"userId"`
	Sub       webpush.Subscription `bson:"sub" json:"sub"`
	UpdatedAt time.Time            `bson:"updatedAt" json:"updatedAt"`
}

type Store interface {
	Save(ctx context.Context, userID string, sub webpush.Subscription) error
	Get(ctx context.Context, userID string) (*webpush.Subscription, error)
	Delete(ctx context.Context, userID string) error
}

type MongoStore struct {
	coll *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{coll: db.Collection(CollectionName)}
}

func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create push subscription index: %w", err)
	}
	return nil
}

// Save keeps one subscription per user, replacing any earlier one.
func (s *MongoStore) Save(ctx context.Context, userID string, sub webpush.Subscription) error {
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"userId": userID},
		bson.M{"$set": Subscription{UserID: userID, Sub: sub, UpdatedAt: time.Now()}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to save push subscription: %w", err)
	}
	return nil
}

func (s *MongoStore) Get(ctx context.Context, userID string) (*webpush.Subscription, error) {
	var doc Subscription
	err := s.coll.FindOne(ctx, bson.M{"userId": userID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNoSubscription
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find push subscription: %w", err)
	}
	return &doc.Sub, nil
}

func (s *MongoStore) Delete(ctx context.Context, userID string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"userId": userID}); err != nil {
		return fmt.Errorf("failed to delete push subscription: %w", err)
	}
	return nil
}
