package database

import (
	"context"
	"fmt"
	"time"

	"snapbuzz/pkg/config"
	"snapbuzz/pkg/logger"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const mongoConnectAttempts = 3

func NewMongoClient(cfg *config.Config, log *logger.Logger) (*mongo.Client, error) {
	var lastErr error
	for attempt := 1; attempt <= mongoConnectAttempts; attempt++ {
		client, err := connectMongo(cfg.MongoURI)
		if err == nil {
			log.Info("[MONGO] Connected to %s", cfg.MongoDatabase)
			return client, nil
		}
		lastErr = err
		log.Warn("[MONGO] Connection attempt %d/%d failed: %v", attempt, mongoConnectAttempts, err)
		time.Sleep(time.Duration(attempt) * time.Second)
	}
	return nil, fmt.Errorf("failed to connect to MongoDB after %d attempts: %w", mongoConnectAttempts, lastErr)
}

func connectMongo(uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}
