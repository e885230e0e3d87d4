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
	"snapbuzz/pkg/plans"
	"snapbuzz/pkg/server"
	billingHTTP "snapbuzz/services/billing/internal/controller/http"
	"snapbuzz/services/billing/internal/repo/persistent"
	"snapbuzz/services/billing/internal/repo/webapi"
	"snapbuzz/services/billing/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

const sweepTimeout = time.Minute

type App struct {
	cfg         *config.Config
	log         *logger.Logger
	db          *gorm.DB
	redisClient *redis.Client
	jwtService  *jwt.Service
	metrics     *metrics.Metrics
	webhooks    *prometheus.CounterVec
	expired     prometheus.Counter
	useCase     usecase.BillingUseCase
	scheduler   *cron.Cron
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

	if cfg.StripeSecretKey == "" {
		log.Warn("STRIPE_SECRET_KEY is not set, payment calls will fail")
	}

	m := metrics.New("billing")
	webhooks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "snapbuzz_billing_webhook_events_total",
		Help: "Payment provider webhook events, by type and result.",
	}, []string{"type", "result"})
	expired := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "snapbuzz_billing_expired_subscriptions_total",
		Help: "Subscriptions set inactive by the expiry sweep.",
	})
	m.Register(webhooks, expired)

	return &App{
		cfg:         cfg,
		log:         log,
		db:          db,
		redisClient: redisClient,
		jwtService:  jwt.NewService(cfg.JWTSecret, cfg.JWTExpiry),
		metrics:     m,
		webhooks:    webhooks,
		expired:     expired,
		useCase: usecase.NewBillingUseCase(
			persistent.NewSubscriptionRepository(db),
			persistent.NewCustomerRepository(db),
			webapi.NewStripeGateway(cfg.StripeSecretKey, cfg.StripeWebhookSecret),
			plans.NewCatalog(cfg),
			cfg.StripeCurrency,
			log,
		),
	}, nil
}

func (a *App) Router() *gin.Engine {
	billingHandler := billingHTTP.NewBillingHandler(a.useCase, a.log)

	r := server.NewRouter(a.cfg, a.metrics)

	// Signed by the payment provider, not by our JWT.
	r.POST("/webhook", a.countWebhook, billingHandler.Webhook)

	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware(a.jwtService))
	api.Use(middleware.RateLimitMiddleware(a.redisClient, a.cfg.RateLimitRequests, a.cfg.RateLimitWindow))
	{
		api.POST("/create-payment-intent", billingHandler.CreatePaymentIntent)
		api.PATCH("/save-plan", billingHandler.SavePlan)
		api.GET("/get-user-plan", billingHandler.GetUserPlan)
		api.GET("/check-post-limit", billingHandler.CheckPostLimit)

		subscription := api.Group("/subscription")
		subscription.POST("/create-subscription", billingHandler.CreateSubscription)
		subscription.PATCH("/create-subscription", billingHandler.CreateSubscription)
		subscription.PATCH("/save-plan", billingHandler.SaveSubscriptionPlan)
		subscription.GET("/get-user-plan", billingHandler.GetActivePlan)
		subscription.PATCH("/update-status", billingHandler.UpdateStatus)
		subscription.GET("/:subscriptionId", billingHandler.GetSubscription)
	}

	return r
}

func (a *App) countWebhook(c *gin.Context) {
	c.Next()

	eventType := c.GetString(billingHTTP.ContextWebhookEvent)
	if eventType == "" {
		eventType = "unknown"
	}
	result := "ok"
	if c.Writer.Status() >= http.StatusBadRequest {
		result = "rejected"
	}
	a.webhooks.WithLabelValues(eventType, result).Inc()
}

func (a *App) Run() error {
	a.scheduler = cron.New()
	if _, err := a.scheduler.AddFunc(a.cfg.SubscriptionSweepSchedule, a.sweep); err != nil {
		a.log.Error("Invalid SUBSCRIPTION_SWEEP_SCHEDULE %q: %v", a.cfg.SubscriptionSweepSchedule, err)
		return err
	}
	a.scheduler.Start()
	a.log.Info("Subscription sweep scheduled: %s", a.cfg.SubscriptionSweepSchedule)

	a.httpServer = server.Start(a.Router(), a.cfg.ServerPort, "Billing", a.log)
	return nil
}

func (a *App) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	n, err := a.useCase.SweepExpired(ctx)
	if err != nil {
		return
	}
	a.expired.Add(float64(n))
}

func (a *App) Wait() {
	server.WaitForSignal()
	a.log.Info("Shutting down billing service...")
}

func (a *App) Shutdown() error {
	if a.scheduler != nil {
		<-a.scheduler.Stop().Done()
	}

	var closeRedis func() error
	if a.redisClient != nil {
		closeRedis = a.redisClient.Close
	}

	err := server.Shutdown(a.httpServer, a.log,
		func() error { return database.Close(a.db) },
		closeRedis,
	)
	a.log.Info("Billing service exited")
	return err
}
