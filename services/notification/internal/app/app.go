package internal

import (
	"context"
	"errors"
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
	"snapbuzz/pkg/queue"
	"snapbuzz/pkg/server"
	notificationHTTP "snapbuzz/services/notification/internal/controller/http"
	"snapbuzz/services/notification/internal/repo/persistent"
	"snapbuzz/services/notification/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

const taskTimeout = 30 * time.Second

type App struct {
	cfg         *config.Config
	log         *logger.Logger
	db          *gorm.DB
	mongoClient *mongo.Client
	redisClient *redis.Client
	queueClient *queue.Client
	jwtService  *jwt.Service
	metrics     *metrics.Metrics
	tasks       *prometheus.CounterVec
	useCase     usecase.NotificationUseCase
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
		log.Warn("Failed to connect to redis: %v (continuing without live notifications)", err)
		redisClient = nil
	}

	mongoClient, err := database.NewMongoClient(cfg, log)
	if err != nil {
		log.Warn("Failed to connect to MongoDB: %v (continuing without web push)", err)
		mongoClient = nil
	}

	queueClient, err := queue.NewRabbitMQClient(cfg, log)
	if err != nil {
		log.Error("Failed to connect to RabbitMQ: %v (continuing without queue)", err)
		queueClient = nil
	}

	m := metrics.New("notification")
	tasks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "snapbuzz_notification_tasks_total",
		Help: "Notification tasks consumed from the queue, by type and result.",
	}, []string{"type", "result"})
	m.Register(tasks)

	a := &App{
		cfg:         cfg,
		log:         log,
		db:          db,
		mongoClient: mongoClient,
		redisClient: redisClient,
		queueClient: queueClient,
		jwtService:  jwt.NewService(cfg.JWTSecret, cfg.JWTExpiry),
		metrics:     m,
		tasks:       tasks,
	}
	a.useCase = a.newUseCase()
	return a, nil
}

func (a *App) newUseCase() usecase.NotificationUseCase {
	var (
		store    push.Store
		notifier push.Notifier
	)
	if a.mongoClient != nil {
		mongoStore := push.NewMongoStore(a.mongoClient.Database(a.cfg.MongoDatabase))
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := mongoStore.EnsureIndexes(ctx); err != nil {
			a.log.Warn("Failed to ensure push subscription indexes: %v", err)
		}
		cancel()

		store = mongoStore
		sender := push.NewSender(mongoStore, a.cfg, a.log)
		if sender.Enabled() {
			notifier = sender
		} else {
			a.log.Warn("VAPID keys are not configured, web push is disabled")
		}
	}

	return usecase.NewNotificationUseCase(
		persistent.NewNotificationRepository(a.db),
		a.redisClient,
		store,
		notifier,
		a.cfg.VAPIDPublicKey,
		a.log,
	)
}

func (a *App) Router() *gin.Engine {
	notificationHandler := notificationHTTP.NewNotificationHandler(a.useCase, a.redisClient, a.log, a.jwtService)

	r := server.NewRouter(a.cfg, a.metrics)

	// WebSocket endpoint - handles authentication internally via query parameter
	r.GET("/api/notifications/ws", notificationHandler.HandleWebSocket)

	api := r.Group("/api/notifications")
	api.Use(middleware.AuthMiddleware(a.jwtService))
	api.Use(middleware.RateLimitMiddleware(a.redisClient, a.cfg.RateLimitRequests, a.cfg.RateLimitWindow))
	{
		api.GET("", notificationHandler.GetNotifications)
		api.POST("/follow", notificationHandler.CreateFollowNotification)
		api.PATCH("/read-all", notificationHandler.MarkAllRead)
		api.PATCH("/:id/read", notificationHandler.MarkRead)
		api.GET("/push/vapid-key", notificationHandler.VAPIDKey)
		api.POST("/push/subscribe", notificationHandler.SubscribePush)
	}

	return r
}

func (a *App) Run() error {
	if a.queueClient != nil {
		a.log.Info("Starting notification queue processor...")
		if err := a.queueClient.ConsumeNotificationTasks(a.handleTask); err != nil {
			a.log.Error("Error starting notification queue consumer: %v", err)
			return err
		}
	} else {
		a.log.Warn("Queue unavailable, notification tasks will not be consumed")
	}

	a.httpServer = server.Start(a.Router(), a.cfg.ServerPort, "Notification", a.log)
	return nil
}

func (a *App) handleTask(task map[string]interface{}) error {
	ctx, cancel := context.WithTimeout(context.Background(), taskTimeout)
	defer cancel()

	taskType, _ := task["type"].(string)
	err := a.useCase.HandleTask(ctx, task)
	switch {
	case err == nil:
		a.tasks.WithLabelValues(taskType, "ok").Inc()
	case errors.Is(err, queue.ErrMalformedTask):
		a.tasks.WithLabelValues(taskType, "malformed").Inc()
	default:
		a.tasks.WithLabelValues(taskType, "error").Inc()
	}
	return err
}

func (a *App) Wait() {
	server.WaitForSignal()
	a.log.Info("Shutting down notification service...")
}

func (a *App) Shutdown() error {
	var closeRedis, closeQueue, closeMongo func() error
	if a.redisClient != nil {
		closeRedis = a.redisClient.Close
	}
	if a.queueClient != nil {
		closeQueue = a.queueClient.Close
	}
	if a.mongoClient != nil {
		closeMongo = func() error {
			ctx, cancel := context.WithTimeout(context.Background(), server.ShutdownTimeout)
			defer cancel()
			return a.mongoClient.Disconnect(ctx)
		}
	}

	err := server.Shutdown(a.httpServer, a.log,
		func() error { return database.Close(a.db) },
		closeRedis,
		closeQueue,
		closeMongo,
	)
	a.log.Info("Notification service exited")
	return err
}
