// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port     string
	Env      string // "development", "staging", "production"
	LogLevel string

	// Database
	DatabaseURL string // PostgreSQL connection string (optional, uses in-memory if not set)

	// Detection engine settings
	ReplayWindow  time.Duration // how long a repeated signature counts as reuse
	TimestampSkew time.Duration // tolerated message timestamp skew
	ScanWorkers   int           // per-scan parallelism bound

	// Alerting
	AlertWebhookURL string // optional; high/critical alerts are POSTed here

	// Observability
	OTLPEndpoint string // OTLP gRPC endpoint for traces (optional)

	// Security
	AdminSecret  string // Admin API secret
	RateLimitRPS int
}

const (
	DefaultPort          = "8080"
	DefaultEnv           = "development"
	DefaultLogLevel      = "info"
	DefaultReplayWindow  = 3600 // seconds
	DefaultTimestampSkew = 300  // seconds
	DefaultScanWorkers   = 4
	DefaultRateLimit     = 100
)

// Load reads configuration from environment variables
// It loads .env file if present (for local development)
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnv("PORT", DefaultPort),
		Env:             getEnv("ENV", DefaultEnv),
		LogLevel:        getEnv("LOG_LEVEL", DefaultLogLevel),
		DatabaseURL:     os.Getenv("DATABASE_URL"), // Optional, uses in-memory if not set
		ReplayWindow:    time.Duration(getEnvInt64("REPLAY_WINDOW_SECONDS", DefaultReplayWindow)) * time.Second,
		TimestampSkew:   time.Duration(getEnvInt64("TIMESTAMP_SKEW_SECONDS", DefaultTimestampSkew)) * time.Second,
		ScanWorkers:     int(getEnvInt64("SCAN_WORKERS", DefaultScanWorkers)),
		AlertWebhookURL: os.Getenv("ALERT_WEBHOOK_URL"),
		OTLPEndpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		AdminSecret:     os.Getenv("ADMIN_SECRET"),
		RateLimitRPS:    int(getEnvInt64("RATE_LIMIT_RPS", DefaultRateLimit)),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is coherent
func (c *Config) Validate() error {
	if c.ReplayWindow <= 0 {
		return fmt.Errorf("REPLAY_WINDOW_SECONDS must be positive")
	}
	if c.TimestampSkew <= 0 {
		return fmt.Errorf("TIMESTAMP_SKEW_SECONDS must be positive")
	}
	if c.ScanWorkers <= 0 {
		return fmt.Errorf("SCAN_WORKERS must be positive")
	}
	if c.IsProduction() && c.AdminSecret == "" {
		return fmt.Errorf("ADMIN_SECRET is required in production")
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}
