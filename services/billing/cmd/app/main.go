package main

import (
	"snapbuzz/pkg/config"
	app "snapbuzz/services/billing/internal/app"

	"github.com/gin-gonic/gin"

	_ "snapbuzz/services/billing/docs" // Swagger docs
)

// @title           SnapBuzz Billing API
// @version         1.0
// @description     Plans, Stripe payments and subscriptions.

// @host      localhost:8006
// @BasePath  /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func init() {
	gin.SetMode(gin.ReleaseMode)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	if !cfg.HasJWTSecret() {
		panic("JWT_SECRET must be set in environment variables")
	}

	application, err := app.NewApp(cfg)
	if err != nil {
		panic(err)
	}

	if err := application.Run(); err != nil {
		panic(err)
	}

	application.Wait()

	if err := application.Shutdown(); err != nil {
		panic(err)
	}
}
