package internal

import (
	"net/http"

	"snapbuzz/pkg/cache"
	"snapbuzz/pkg/config"
	"snapbuzz/pkg/database"
	"snapbuzz/pkg/jwt"
	"snapbuzz/pkg/logger"
	"snapbuzz/pkg/metrics"
	"snapbuzz/pkg/middleware"
	"snapbuzz/pkg/queue"
	"snapbuzz/pkg/server"
	"snapbuzz/pkg/storage"
	postHTTP "snapbuzz/services/post/internal/controller/http"
	"snapbuzz/services/post/internal/repo/persistent"
	"snapbuzz/services/post/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type App struct {
	cfg         *config.Config
	log         *logger.Logger
	db          *gorm.DB
	redisClient *redis.Client
	queueClient *queue.Client
	storage     storage.Storage
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

	redisClient, err := cache.NewRedisClient(cfg)
	if err != nil {
		log.Warn("Failed to connect to redis: %v (continuing without cache)", err)
		redisClient = nil
	}

	store, err := storage.New(cfg, log)
	if err != nil {
		log.Error("Failed to create storage: %v", err)
		return nil, err
	}

	queueClient, err := queue.NewRabbitMQClient(cfg, log)
	if err != nil {
		log.Error("Failed to connect to RabbitMQ: %v (continuing without queue)", err)
		queueClient = nil
	}

	return &App{
		cfg:         cfg,
		log:         log,
		db:          db,
		redisClient: redisClient,
		queueClient: queueClient,
		storage:     store,
		jwtService:  jwt.NewService(cfg.JWTSecret, cfg.JWTExpiry),
		metrics:     metrics.New("post"),
	}, nil
}

func (a *App) Router() *gin.Engine {
	var publisher queue.Publisher
	if a.queueClient != nil {
		publisher = a.queueClient
	}

	postUseCase := usecase.NewPostUseCase(
		persistent.NewPostRepository(a.db),
		persistent.NewSubscriptionRepository(a.db),
		a.storage,
		publisher,
		a.redisClient,
		a.cfg.MaxUploadSize,
		a.log,
	)
	postHandler := postHTTP.NewPostHandler(postUseCase)

	r := server.NewRouter(a.cfg, a.metrics)
	if local, ok := a.storage.(*storage.Local); ok {
		r.Static("/"+storage.LocalPrefix, local.Dir())
	}

	api := r.Group("/api/posts")
	api.Use(middleware.AuthMiddleware(a.jwtService))
	api.Use(middleware.RateLimitMiddleware(a.redisClient, a.cfg.RateLimitRequests, a.cfg.RateLimitWindow))
	{
		api.POST("", postHandler.CreatePost)
		api.GET("", postHandler.ListPosts)
		api.GET("/feed", postHandler.Feed)
		api.GET("/:id", postHandler.GetPost)
		api.PUT("/:id", postHandler.UpdatePost)
		api.DELETE("/:id", postHandler.DeletePost)
		api.PUT("/:id/like", postHandler.ToggleLike)
		api.GET("/:id/like-status", postHandler.LikeStatus)
		api.GET("/:id/posts", postHandler.UserPosts)

		// :id is the post ID on the comment routes.
		api.POST("/:id/comments", postHandler.AddComment)
		api.GET("/:id/comments", postHandler.GetComments)
		api.DELETE("/:id/comments/:commentId", postHandler.DeleteComment)
	}

	return r
}

func (a *App) Run() error {
	a.httpServer = server.Start(a.Router(), a.cfg.ServerPort, "Post", a.log)
	return nil
}

func (a *App) Wait() {
	server.WaitForSignal()
	a.log.Info("Shutting down post service...")
}

func (a *App) Shutdown() error {
	var closeRedis, closeQueue func() error
	if a.redisClient != nil {
		closeRedis = a.redisClient.Close
	}
	if a.queueClient != nil {
		closeQueue = a.queueClient.Close
	}

	err := server.Shutdown(a.httpServer, a.log,
		func() error { return database.Close(a.db) },
		closeRedis,
		closeQueue,
	)
	a.log.Info("Post service exited")
	return err
}
