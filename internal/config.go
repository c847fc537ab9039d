package internal

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env         string
	Port        int
	LogLevel    string
	DatabaseUrl string

	// SMTP Configuration. Email delivery is disabled when SMTPHost is empty.
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPFromName string

	// Storage Configuration
	StorageProvider string // "local" or "r2"

	// Local Storage (development)
	LocalStoragePath string // Base directory for local file storage
	LocalStorageURL  string // Base URL for accessing local files

	// R2 Storage (production)
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicURL       string // Optional custom domain URL

	// Payment ledger used to reconcile ambiguous plans: "postgres" reads
	// payment_logs, "stripe" reads charges from the Stripe API.
	PaymentLedger       string
	StripeSecretKey     string // Stripe API secret key (sk_test_... or sk_live_...)
	StripeWebhookSecret string // Stripe webhook signing secret (whsec_...)

	// Optional. When set, delivery idempotency claims are shared through
	// Redis instead of held in process memory.
	RedisURL string

	// Delivery tuning
	DeliveryMaxRetries  int
	DeliveryRetryDelay  time.Duration
	DeliveryTimeout     time.Duration
	LinkInlineThreshold int64
	LinkExpiry          time.Duration

	// Failure report worker
	ReportWorkers   int
	ReportQueueSize int

	// Rate limiting of POST routes, per account
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Metrics endpoint authentication
	// If both are empty, the /metrics endpoint will be unprotected (not recommended)
	MetricsUsername string
	MetricsPassword string
}

func NewConfig() (*Config, error) {
	// Load .env file if it exists (ignored in production)
	_ = godotenv.Load()

	cfg := &Config{
		Env:      getEnv("ENV", "development"),
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "debug"),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnvInt("SMTP_PORT", 1025),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:     getEnv("SMTP_FROM", "noreply@folio.app"),
		SMTPFromName: getEnv("SMTP_FROM_NAME", "Folio"),

		// Storage defaults to local filesystem for development
		StorageProvider:  getEnv("STORAGE_PROVIDER", "local"),
		LocalStoragePath: getEnv("LOCAL_STORAGE_PATH", "./storage"),
		LocalStorageURL:  getEnv("LOCAL_STORAGE_URL", "http://localhost:8080/files"),

		// R2 configuration (production only)
		R2AccountID:       getEnv("R2_ACCOUNT_ID", ""),
		R2AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
		R2SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2BucketName:      getEnv("R2_BUCKET_NAME", ""),
		R2PublicURL:       getEnv("R2_PUBLIC_URL", ""),

		PaymentLedger:       getEnv("PAYMENT_LEDGER", "postgres"),
		StripeSecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),

		RedisURL: getEnv("REDIS_URL", ""),

		DeliveryMaxRetries:  getEnvInt("DELIVERY_MAX_RETRIES", 3),
		DeliveryRetryDelay:  getEnvDuration("DELIVERY_RETRY_DELAY", time.Second),
		DeliveryTimeout:     getEnvDuration("DELIVERY_TIMEOUT", 30*time.Second),
		LinkInlineThreshold: getEnvInt64("LINK_INLINE_THRESHOLD", 5<<20),
		LinkExpiry:          getEnvDuration("LINK_EXPIRY", time.Hour),

		ReportWorkers:   getEnvInt("REPORT_WORKERS", 2),
		ReportQueueSize: getEnvInt("REPORT_QUEUE_SIZE", 256),

		RateLimitRequests: getEnvInt("RATE_LIMIT_REQUESTS", 30),
		RateLimitWindow:   getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),

		// Metrics authentication
		MetricsUsername: getEnv("METRICS_USERNAME", ""),
		MetricsPassword: getEnv("METRICS_PASSWORD", ""),
	}

	// Required
	cfg.DatabaseUrl = os.Getenv("DATABASE_URL")
	if cfg.DatabaseUrl == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings that depend on each other.
func (c *Config) Validate() error {
	switch c.StorageProvider {
	case "r2":
		if c.R2AccountID == "" {
			return fmt.Errorf("R2_ACCOUNT_ID is required when STORAGE_PROVIDER is 'r2'")
		}
		if c.R2AccessKeyID == "" {
			return fmt.Errorf("R2_ACCESS_KEY_ID is required when STORAGE_PROVIDER is 'r2'")
		}
		if c.R2SecretAccessKey == "" {
			return fmt.Errorf("R2_SECRET_ACCESS_KEY is required when STORAGE_PROVIDER is 'r2'")
		}
		if c.R2BucketName == "" {
			return fmt.Errorf("R2_BUCKET_NAME is required when STORAGE_PROVIDER is 'r2'")
		}
	case "local":
	default:
		return fmt.Errorf("STORAGE_PROVIDER must be either 'local' or 'r2', got: %s", c.StorageProvider)
	}

	switch c.PaymentLedger {
	case "stripe":
		if c.StripeSecretKey == "" {
			return fmt.Errorf("STRIPE_SECRET_KEY is required when PAYMENT_LEDGER is 'stripe'")
		}
	case "postgres":
	default:
		return fmt.Errorf("PAYMENT_LEDGER must be either 'postgres' or 'stripe', got: %s", c.PaymentLedger)
	}

	if c.DeliveryMaxRetries < 1 {
		return fmt.Errorf("DELIVERY_MAX_RETRIES must be at least 1, got: %d", c.DeliveryMaxRetries)
	}
	if c.DeliveryTimeout <= 0 {
		return fmt.Errorf("DELIVERY_TIMEOUT must be positive")
	}
	if c.ReportWorkers < 1 || c.ReportQueueSize < 1 {
		return fmt.Errorf("REPORT_WORKERS and REPORT_QUEUE_SIZE must be at least 1")
	}
	return nil
}

// EmailEnabled reports whether SMTP is configured.
func (c *Config) EmailEnabled() bool {
	return c.SMTPHost != ""
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
