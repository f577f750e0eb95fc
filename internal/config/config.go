// Package config loads service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Lock backends.
const (
	LockBackendLocal = "local"
	LockBackendRedis = "redis"
)

// Config holds all configuration values for the service.
type Config struct {
	Port     int
	MongoURI string
	MongoDB  string

	LogLevel  string
	LogFormat string

	JWTSecret      string
	JWTExpiry      time.Duration
	CronSecretHash string

	// Cron spec for the in-process scheduler. Empty disables it.
	GenerationSchedule string
	RunTimeout         time.Duration

	LockBackend   string
	RedisAddr     string
	RedisPassword string
	LockTTL       time.Duration

	// Empty broker disables event publishing.
	MQTTBroker      string
	MQTTClientID    string
	MQTTTopicPrefix string

	RateLimitRPS   float64
	RateLimitBurst int
}

// Load reads a .env file (if any) into the environment and then builds a
// Config from environment variables, falling back to defaults.
func Load(envFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
	}

	cfg := &Config{
		MongoURI:           getString("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:            getString("MONGO_DB", "fleet"),
		LogLevel:           getString("LOG_LEVEL", "info"),
		LogFormat:          getString("LOG_FORMAT", "text"),
		JWTSecret:          getString("JWT_SECRET", "default-secret-key-change-in-production"),
		CronSecretHash:     os.Getenv("CRON_SECRET_HASH"),
		GenerationSchedule: getString("GENERATION_SCHEDULE", "0 6 * * *"),
		LockBackend:        getString("LOCK_BACKEND", LockBackendLocal),
		RedisAddr:          getString("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		MQTTBroker:         os.Getenv("MQTT_BROKER"),
		MQTTClientID:       getString("MQTT_CLIENT_ID", "fleet-reminders"),
		MQTTTopicPrefix:    getString("MQTT_TOPIC_PREFIX", "fleet/reminders"),
	}

	var err error
	if cfg.Port, err = getInt("PORT", 8080); err != nil {
		return nil, err
	}
	if cfg.JWTExpiry, err = getDuration("JWT_EXPIRY", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.RunTimeout, err = getDuration("RUN_TIMEOUT", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.LockTTL, err = getDuration("LOCK_TTL", 10*time.Minute); err != nil {
		return nil, err
	}
	if cfg.RateLimitRPS, err = getFloat("RATE_LIMIT_RPS", 1); err != nil {
		return nil, err
	}
	if cfg.RateLimitBurst, err = getInt("RATE_LIMIT_BURST", 5); err != nil {
		return nil, err
	}

	if cfg.LockBackend != LockBackendLocal && cfg.LockBackend != LockBackendRedis {
		return nil, fmt.Errorf("invalid LOCK_BACKEND %q: want %q or %q", cfg.LockBackend, LockBackendLocal, LockBackendRedis)
	}
	if cfg.RunTimeout <= 0 {
		return nil, fmt.Errorf("invalid RUN_TIMEOUT: must be positive")
	}
	if cfg.LockTTL < cfg.RunTimeout {
		return nil, fmt.Errorf("invalid LOCK_TTL: %s is shorter than RUN_TIMEOUT %s", cfg.LockTTL, cfg.RunTimeout)
	}

	return cfg, nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func getString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
