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
	userHTTP "snapbuzz/services/user/internal/controller/http"
	"snapbuzz/services/user/internal/repo/persistent"
	"snapbuzz/services/user/internal/usecase"

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
		metrics:     metrics.New("user"),
	}, nil
}

func (a *App) Router() *gin.Engine {
	var publisher queue.Publisher
	if a.queueClient != nil {
		publisher = a.queueClient
	}

	userUseCase := usecase.NewUserUseCase(
		persistent.NewUserRepository(a.db),
		persistent.NewFollowRepository(a.db),
		a.storage,
		publisher,
		a.redisClient,
		a.cfg.MaxUploadSize,
		a.cfg.DefaultProfilePhoto,
		a.log,
	)
	userHandler := userHTTP.NewUserHandler(userUseCase)

	r := server.NewRouter(a.cfg, a.metrics)
	if local, ok := a.storage.(*storage.Local); ok {
		r.Static("/"+storage.LocalPrefix, local.Dir())
	}

	api := r.Group("/api/user")
	api.Use(middleware.AuthMiddleware(a.jwtService))
	api.Use(middleware.RateLimitMiddleware(a.redisClient, a.cfg.RateLimitRequests, a.cfg.RateLimitWindow))
	{
		api.GET("/me", userHandler.GetMe)
		api.PATCH("/me", userHandler.UpdateProfilePhoto)
		api.PATCH("/me/username", userHandler.UpdateUsername)
		api.POST("/follow/:id", userHandler.ToggleFollow)
		api.GET("/followedUsers", userHandler.GetFollowedUsers)
		api.GET("/followers", userHandler.GetFollowers)
		api.GET("/followers-following", userHandler.GetFollowersAndFollowing)
		api.GET("/follower/:id", userHandler.GetFollower)
	}

	return r
}

func (a *App) Run() error {
	a.httpServer = server.Start(a.Router(), a.cfg.ServerPort, "User", a.log)
	return nil
}

func (a *App) Wait() {
	server.WaitForSignal()
	a.log.Info("Shutting down user service...")
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
	a.log.Info("User service exited")
	return err
}
