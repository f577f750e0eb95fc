package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"PORT", "MONGO_URI", "MONGO_DB", "LOG_LEVEL", "LOG_FORMAT", "JWT_SECRET", "JWT_EXPIRY",
	"CRON_SECRET_HASH", "GENERATION_SCHEDULE", "RUN_TIMEOUT", "LOCK_BACKEND", "REDIS_ADDR",
	"REDIS_PASSWORD", "LOCK_TTL", "MQTT_BROKER", "MQTT_CLIENT_ID", "MQTT_TOPIC_PREFIX",
	"RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
}

// clearEnv blanks every key Load reads so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
	}
}

func missingEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(missingEnvFile(t))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoURI)
	assert.Equal(t, "fleet", cfg.MongoDB)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 24*time.Hour, cfg.JWTExpiry)
	assert.Equal(t, "0 6 * * *", cfg.GenerationSchedule)
	assert.Equal(t, 5*time.Minute, cfg.RunTimeout)
	assert.Equal(t, LockBackendLocal, cfg.LockBackend)
	assert.Equal(t, 10*time.Minute, cfg.LockTTL)
	assert.Empty(t, cfg.MQTTBroker)
	assert.Equal(t, "fleet/reminders", cfg.MQTTTopicPrefix)
	assert.Equal(t, 1.0, cfg.RateLimitRPS)
	assert.Equal(t, 5, cfg.RateLimitBurst)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("MONGO_DB", "fleet_test")
	t.Setenv("RUN_TIMEOUT", "30s")
	t.Setenv("LOCK_TTL", "1m")
	t.Setenv("LOCK_BACKEND", "redis")
	t.Setenv("RATE_LIMIT_RPS", "0.5")

	cfg, err := Load(missingEnvFile(t))
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "fleet_test", cfg.MongoDB)
	assert.Equal(t, 30*time.Second, cfg.RunTimeout)
	assert.Equal(t, time.Minute, cfg.LockTTL)
	assert.Equal(t, LockBackendRedis, cfg.LockBackend)
	assert.Equal(t, 0.5, cfg.RateLimitRPS)
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	// godotenv does not override variables that are already set, even if empty.
	os.Unsetenv("MONGO_DB")
	os.Unsetenv("PORT")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("MONGO_DB=from_file\nPORT=7070\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("MONGO_DB")
		os.Unsetenv("PORT")
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from_file", cfg.MongoDB)
	assert.Equal(t, 7070, cfg.Port)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"port", "PORT", "eighty"},
		{"run timeout", "RUN_TIMEOUT", "soon"},
		{"negative run timeout", "RUN_TIMEOUT", "-1s"},
		{"lock ttl shorter than run timeout", "LOCK_TTL", "1s"},
		{"lock backend", "LOCK_BACKEND", "etcd"},
		{"rate", "RATE_LIMIT_RPS", "fast"},
		{"burst", "RATE_LIMIT_BURST", "lots"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.val)

			_, err := Load(missingEnvFile(t))
			assert.Error(t, err)
		})
	}
}
