package internal

import (
	"context"
	"net/http"
	"time"

	"snapbuzz/pkg/cache"
	"snapbuzz/pkg/config"
	"snapbuzz/pkg/database"
	"snapbuzz/pkg/jwt"
	"snapbuzz/pkg/logger"
	"snapbuzz/pkg/metrics"
	"snapbuzz/pkg/middleware"
	"snapbuzz/pkg/push"
	"snapbuzz/pkg/server"
	chatHTTP "snapbuzz/services/chat/internal/controller/http"
	"snapbuzz/services/chat/internal/repo/persistent"
	"snapbuzz/services/chat/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

const indexTimeout = 10 * time.Second

type App struct {
	cfg         *config.Config
	log         *logger.Logger
	db          *gorm.DB
	mongoClient *mongo.Client
	redisClient *redis.Client
	jwtService  *jwt.Service
	metrics     *metrics.Metrics
	httpServer  *http.Server
}

func NewApp(cfg *config.Config) (*App, error) {
	log := logger.New()

	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		log.Error("Failed to connect to database: %v", err)
		return nil, err
	}

	// Conversations and messages live in Mongo, so it is required here.
	mongoClient, err := database.NewMongoClient(cfg, log)
	if err != nil {
		log.Error("Failed to connect to MongoDB: %v", err)
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), indexTimeout)
	defer cancel()
	if err := persistent.EnsureConversationIndexes(ctx, mongoClient.Database(cfg.MongoDatabase)); err != nil {
		log.Error("Failed to ensure chat indexes: %v", err)
		return nil, err
	}

	redisClient, err := cache.NewRedisClient(cfg)
	if err != nil {
		log.Warn("Failed to connect to redis: %v (continuing without rate limiting)", err)
		redisClient = nil
	}

	return &App{
		cfg:         cfg,
		log:         log,
		db:          db,
		mongoClient: mongoClient,
		redisClient: redisClient,
		jwtService:  jwt.NewService(cfg.JWTSecret, cfg.JWTExpiry),
		metrics:     metrics.New("chat"),
	}, nil
}

func (a *App) Router() *gin.Engine {
	mongoDB := a.mongoClient.Database(a.cfg.MongoDatabase)

	var notifier push.Notifier
	sender := push.NewSender(push.NewMongoStore(mongoDB), a.cfg, a.log)
	if sender.Enabled() {
		notifier = sender
	} else {
		a.log.Warn("VAPID keys are not configured, message push is disabled")
	}

	chatUseCase := usecase.NewChatUseCase(
		persistent.NewConversationRepository(mongoDB),
		persistent.NewMessageRepository(mongoDB),
		persistent.NewUserRepository(a.db),
		notifier,
		a.log,
	)
	chatHandler := chatHTTP.NewChatHandler(chatUseCase, a.log)

	r := server.NewRouter(a.cfg, a.metrics)

	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware(a.jwtService))
	api.Use(middleware.RateLimitMiddleware(a.redisClient, a.cfg.RateLimitRequests, a.cfg.RateLimitWindow))
	{
		conversations := api.Group("/conversations")
		conversations.GET("", chatHandler.ListConversations)
		conversations.POST("", chatHandler.StartConversation)

		messages := api.Group("/messages")
		messages.POST("", chatHandler.StartConversation)
		messages.GET("/:conversationId", chatHandler.GetMessages)
		messages.POST("/:conversationId", chatHandler.SendMessage)
	}

	return r
}

func (a *App) Run() error {
	a.httpServer = server.Start(a.Router(), a.cfg.ServerPort, "Chat", a.log)
	return nil
}

func (a *App) Wait() {
	server.WaitForSignal()
	a.log.Info("Shutting down chat service...")
}

func (a *App) Shutdown() error {
	var closeRedis func() error
	if a.redisClient != nil {
		closeRedis = a.redisClient.Close
	}

	err := server.Shutdown(a.httpServer, a.log,
		func() error { return database.Close(a.db) },
		closeRedis,
		func() error {
			ctx, cancel := context.WithTimeout(context.Background(), server.ShutdownTimeout)
			defer cancel()
			return a.mongoClient.Disconnect(ctx)
		},
	)
	a.log.Info("Chat service exited")
	return err
}
