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
	"snapbuzz/pkg/server"
	authHTTP "snapbuzz/services/auth/internal/controller/http"
	"snapbuzz/services/auth/internal/repo/persistent"
	"snapbuzz/services/auth/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type App struct {
	cfg         *config.Config
	log         *logger.Logger
	db          *gorm.DB
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

	redisClient, err := cache.NewRedisClient(cfg)
	if err != nil {
		log.Warn("Failed to connect to redis: %v (continuing without rate limiting)", err)
		redisClient = nil
	}

	return &App{
		cfg:         cfg,
		log:         log,
		db:          db,
		redisClient: redisClient,
		jwtService:  jwt.NewService(cfg.JWTSecret, cfg.JWTExpiry),
		metrics:     metrics.New("auth"),
	}, nil
}

func (a *App) Router() *gin.Engine {
	userRepo := persistent.NewUserRepository(a.db)
	authUseCase := usecase.NewAuthUseCase(userRepo, a.jwtService, a.cfg.DefaultProfilePhoto, a.log)
	authHandler := authHTTP.NewAuthHandler(authUseCase)

	r := server.NewRouter(a.cfg, a.metrics)

	api := r.Group("/api/auth")
	api.Use(middleware.RateLimitMiddleware(a.redisClient, a.cfg.RateLimitRequests, a.cfg.RateLimitWindow))
	{
		api.POST("/signup", authHandler.Signup)
		api.POST("/login", authHandler.Login)
		api.POST("/reset-password", authHandler.ResetPassword)
		api.POST("/verify-email", authHandler.VerifyEmail)
	}

	protected := r.Group("/api/auth")
	protected.Use(middleware.AuthMiddleware(a.jwtService))
	protected.Use(middleware.RateLimitMiddleware(a.redisClient, a.cfg.RateLimitRequests, a.cfg.RateLimitWindow))
	{
		protected.GET("/me", authHandler.Me)
	}

	return r
}

func (a *App) Run() error {
	a.httpServer = server.Start(a.Router(), a.cfg.ServerPort, "Auth", a.log)
	return nil
}

func (a *App) Wait() {
	server.WaitForSignal()
	a.log.Info("Shutting down auth service...")
}

func (a *App) Shutdown() error {
	var closeRedis func() error
	if a.redisClient != nil {
		closeRedis = a.redisClient.Close
	}

	err := server.Shutdown(a.httpServer, a.log,
		func() error { return database.Close(a.db) },
		closeRedis,
	)
	a.log.Info("Auth service exited")
	return err
}
