package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "DB_PATH", "JWT_SECRET", "TOKEN_DURATION", "WATCH_INTERVAL", "REDIS_ADDR"} {
		t.Setenv(k, "")
	}

	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "./data/splitpay.db", cfg.DBPath)
	assert.Equal(t, 24*time.Hour, cfg.TokenDuration)
	assert.Equal(t, 3*time.Second, cfg.WatchInterval)
	assert.Equal(t, 10*time.Second, cfg.WatchFetchTimeout)
	assert.Empty(t, cfg.Redis.Addr)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("TOKEN_DURATION", "2h")
	t.Setenv("WATCH_INTERVAL", "500ms")
	t.Setenv("PAYMENTS_BASE_URL", " https://pay.example.com ")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg := Load()
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 2*time.Hour, cfg.TokenDuration)
	assert.Equal(t, 500*time.Millisecond, cfg.WatchInterval)
	assert.Equal(t, "https://pay.example.com", cfg.Payments.BaseURL)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestLoad_InvalidDurationFallsBack(t *testing.T) {
	t.Setenv("WATCH_INTERVAL", "soon")
	t.Setenv("TOKEN_DURATION", "-1h")

	cfg := Load()
	assert.Equal(t, 3*time.Second, cfg.WatchInterval)
	assert.Equal(t, 24*time.Hour, cfg.TokenDuration)
}

func TestValidate(t *testing.T) {
	cfg := Config{JWTSecret: "s"}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PAYMENTS_ANON_KEY, PAYMENTS_BASE_URL, PAYMENTS_EMAIL")

	cfg.Payments = Payments{
		BaseURL:    "https://pay.example.com",
		AnonKey:    "anon",
		Email:      "ops@example.com",
		Password:   "pw",
		PlatformID: "7",
	}
	assert.NoError(t, cfg.Validate())
}
