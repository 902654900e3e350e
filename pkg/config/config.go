package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	// Application
	AppEnv   string
	LogLevel string
	ActorID  string

	// Database
	DatabaseURL    string
	DatabaseDriver string
	SQLitePath     string
	LocalMode      bool

	// Redis snapshot tier; empty disables it.
	RedisURL string

	// RabbitMQ change events; empty uses the in-process bus.
	RabbitMQURL   string
	RabbitMQQueue string

	// Availability
	ClinicTimezone       string
	CacheTTL             time.Duration
	CacheSize            int
	FetchTimeout         time.Duration
	IndexBatchSize       int
	SnapshotTTL          time.Duration
	MaxRangeDays         int
	StoreBreakerFailures int
	StoreBreakerTimeout  time.Duration
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		ActorID:  getEnv("CAREBOOK_ACTOR_ID", "00000000-0000-0000-0000-000000000001"),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		SQLitePath:  getEnv("SQLITE_PATH", ""),

		RedisURL:      getEnv("REDIS_URL", ""),
		RabbitMQURL:   getEnv("RABBITMQ_URL", ""),
		RabbitMQQueue: getEnv("RABBITMQ_QUEUE", ""),

		ClinicTimezone:       getEnv("CLINIC_TIMEZONE", "UTC"),
		CacheTTL:             getDurationEnv("AVAILABILITY_CACHE_TTL", 5*time.Minute),
		CacheSize:            getIntEnv("AVAILABILITY_CACHE_SIZE", 1024),
		FetchTimeout:         getDurationEnv("AVAILABILITY_FETCH_TIMEOUT", 5*time.Second),
		IndexBatchSize:       getIntEnv("AVAILABILITY_INDEX_BATCH_SIZE", 500),
		SnapshotTTL:          getDurationEnv("AVAILABILITY_SNAPSHOT_TTL", 24*time.Hour),
		MaxRangeDays:         getIntEnv("AVAILABILITY_MAX_RANGE_DAYS", 366),
		StoreBreakerFailures: getIntEnv("STORE_BREAKER_FAILURES", 5),
		StoreBreakerTimeout:  getDurationEnv("STORE_BREAKER_TIMEOUT", 30*time.Second),
	}

	// No DATABASE_URL means a local SQLite file.
	cfg.LocalMode = cfg.DatabaseURL == "" || strings.HasPrefix(cfg.DatabaseURL, "sqlite")
	cfg.DatabaseDriver = "postgres"
	if cfg.LocalMode {
		cfg.DatabaseDriver = "sqlite"
	}

	if _, err := cfg.Location(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Location resolves ClinicTimezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.ClinicTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid CLINIC_TIMEZONE %q: %w", c.ClinicTimezone, err)
	}
	return loc, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
