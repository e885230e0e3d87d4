package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const DefaultJWTSecret = "your-secret-key-change-in-production"

type Config struct {
	// Server
	ServerPort         string
	CORSAllowedOrigins []string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// MongoDB
	MongoURI      string
	MongoDatabase string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// RabbitMQ
	RabbitMQUser     string
	RabbitMQPassword string
	RabbitMQHost     string
	RabbitMQPort     string

	// JWT
	JWTSecret string
	JWTExpiry time.Duration

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Uploads
	StorageDriver       string
	UploadDir           string
	MaxUploadSize       int64
	DefaultProfilePhoto string

	// AWS S3
	AWSRegion          string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
	AWSEndpoint        string
	S3UseSSL           string
	S3BucketName       string

	// Stripe
	StripeSecretKey     string
	StripeWebhookSecret string
	StripeCurrency      string
	StripePriceBasic    string
	StripePriceStandard string
	StripePricePremium  string

	SubscriptionSweepSchedule string

	// Web push
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubscriber string
}

func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	config := &Config{
		ServerPort:         getEnv("SERVER_PORT", "8080"),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "snapbuzz"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DATABASE", "snapbuzz"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		RabbitMQUser:     getEnv("RABBITMQ_USER", "guest"),
		RabbitMQPassword: getEnv("RABBITMQ_PASSWORD", "guest"),
		RabbitMQHost:     getEnv("RABBITMQ_HOST", "localhost"),
		RabbitMQPort:     getEnv("RABBITMQ_PORT", "5672"),

		JWTSecret: getEnv("JWT_SECRET", DefaultJWTSecret),
		JWTExpiry: getEnvDuration("JWT_EXPIRY", time.Hour),

		RateLimitRequests: getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),

		StorageDriver:       getEnv("STORAGE_DRIVER", "s3"),
		UploadDir:           getEnv("UPLOAD_DIR", "uploads"),
		MaxUploadSize:       int64(getEnvInt("MAX_UPLOAD_SIZE", 5*1024*1024)),
		DefaultProfilePhoto: getEnv("DEFAULT_PROFILE_PHOTO", "uploads/images.png"),

		AWSRegion:          getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpoint:        getEnv("AWS_ENDPOINT", ""),
		S3UseSSL:           getEnv("S3_USE_SSL", "true"),
		S3BucketName:       getEnv("S3_BUCKET_NAME", "snapbuzz-uploads"),

		StripeSecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
		StripeCurrency:      getEnv("STRIPE_CURRENCY", "pkr"),
		StripePriceBasic:    getEnv("STRIPE_PRICE_BASIC", "price_1PxpJ6Ejq94yXjk5SUq0fLS3"),
		StripePriceStandard: getEnv("STRIPE_PRICE_STANDARD", "price_1PxpLbEjq94yXjk59cvPdARL"),
		StripePricePremium:  getEnv("STRIPE_PRICE_PREMIUM", "price_1PxpHyEjq94yXjk5sLvZEWbT"),

		SubscriptionSweepSchedule: getEnv("SUBSCRIPTION_SWEEP_SCHEDULE", "@every 1h"),

		VAPIDPublicKey:  getEnv("VAPID_PUBLIC_KEY", ""),
		VAPIDPrivateKey: getEnv("VAPID_PRIVATE_KEY", ""),
		VAPIDSubscriber: getEnv("VAPID_SUBSCRIBER", "mailto:admin@snapbuzz.app"),
	}

	return config, nil
}

// HasJWTSecret reports whether a real signing secret was configured.
func (c *Config) HasJWTSecret() bool {
	return c.JWTSecret != "" && c.JWTSecret != DefaultJWTSecret
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
