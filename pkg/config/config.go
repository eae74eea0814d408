package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all process-level configuration. Pipeline knobs (thresholds,
// search terms, intervals) live in the settings table instead, so they can
// change without a restart.
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// External endpoints
	Marketplace MarketplaceConfig
	MarketData  MarketDataConfig

	// Worker
	Worker WorkerConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	URL string

	// Connection pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration. Redis is optional; with Enabled=false
// the rate limiter and caches degrade to no-ops.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// MarketplaceConfig holds the classifieds adapter configuration.
type MarketplaceConfig struct {
	BaseURL      string
	UserAgent    string
	FetchTimeout time.Duration
	RatePerSec   int
}

// MarketDataConfig holds the market metrics source used by the price
// refresh job.
type MarketDataConfig struct {
	BaseURL string
	APIKey  string
}

// WorkerConfig holds scheduler identity and tick configuration.
type WorkerConfig struct {
	// HolderID identifies this process in the lease table. Defaults to
	// hostname-pid so concurrent workers never collide.
	HolderID string

	TickInterval time.Duration
	LeaseTTL     time.Duration

	PriceRefreshInterval time.Duration
	MaintenanceInterval  time.Duration
}

// Load reads configuration from environment variables, trying .env files from
// the usual locations first.
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8087"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Marketplace: MarketplaceConfig{
			BaseURL:      getEnv("MARKETPLACE_BASE_URL", "https://www.kleinanzeigen.de"),
			UserAgent:    getEnv("MARKETPLACE_USER_AGENT", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36"),
			FetchTimeout: getEnvAsDuration("MARKETPLACE_FETCH_TIMEOUT", "45s"),
			RatePerSec:   getEnvAsInt("MARKETPLACE_RATE_PER_SEC", 1),
		},

		MarketData: MarketDataConfig{
			BaseURL: getEnv("MARKETDATA_BASE_URL", ""),
			APIKey:  getEnv("MARKETDATA_API_KEY", ""),
		},

		Worker: WorkerConfig{
			HolderID:     getEnv("WORKER_HOLDER_ID", defaultHolderID()),
			TickInterval: getEnvAsDuration("WORKER_TICK_INTERVAL", "1m"),
			LeaseTTL:     getEnvAsDuration("WORKER_LEASE_TTL", "5m"),

			PriceRefreshInterval: getEnvAsDuration("WORKER_PRICE_REFRESH_INTERVAL", "6h"),
			MaintenanceInterval:  getEnvAsDuration("WORKER_MAINTENANCE_INTERVAL", "1h"),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set.
func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Worker.LeaseTTL <= c.Worker.TickInterval {
		return fmt.Errorf("WORKER_LEASE_TTL must exceed WORKER_TICK_INTERVAL so a live holder renews before expiry")
	}

	return nil
}

func defaultHolderID() string {
	host, err := os.Hostname()
	if err != nil {
		host = "worker"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}

// loadEnvFile tries to load .env from multiple locations.
func loadEnvFile() {
	paths := []string{".env"}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
