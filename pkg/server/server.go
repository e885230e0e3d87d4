// Package server holds the HTTP wiring every service shares: CORS, health,
// swagger, metrics and graceful shutdown.
package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"snapbuzz/pkg/config"
	"snapbuzz/pkg/logger"
	"snapbuzz/pkg/metrics"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const ShutdownTimeout = 5 * time.Second

func NewRouter(cfg *config.Config, m *metrics.Metrics) *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(corsConfig(cfg.CORSAllowedOrigins)))
	r.Use(m.Middleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(m.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "Accept", "Stripe-Signature"},
		ExposeHeaders: []string{"Content-Length", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

// Start serves handler on port in the background.
func Start(handler http.Handler, port, name string, log *logger.Logger) *http.Server {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("%s service starting on port %s", name, port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Failed to start server: %v", err)
			panic(err)
		}
	}()

	return srv
}

func WaitForSignal() os.Signal {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	return <-quit
}

// Shutdown stops srv within ShutdownTimeout and then runs closers in order.
func Shutdown(srv *http.Server, log *logger.Logger, closers ...func() error) error {
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	err := srv.Shutdown(ctx)
	if err != nil {
		log.Error("Server forced to shutdown: %v", err)
	}

	for _, c := range closers {
		if c == nil {
			continue
		}
		if cerr := c(); cerr != nil {
			log.Error("Error during shutdown: %v", cerr)
		}
	}
	return err
}
