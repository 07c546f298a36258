// Package config reads server settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"
)

type Config struct {
	Port          string
	DBPath        string
	JWTSecret     string
	TokenDuration time.Duration
	LogLevel      string
	LogFormat     string

	Payments Payments
	Redis    Redis

	WatchInterval     time.Duration
	WatchFetchTimeout time.Duration
}

// Payments holds the platform credentials. They stay server-side.
type Payments struct {
	BaseURL         string
	AnonKey         string
	Email           string
	Password        string
	PlatformID      string
	PlatformUID     string
	ParentChannelID string
	WebhookSecret   string
}

type Redis struct {
	Addr     string
	Password string
}

const devJWTSecret = "dev-secret-change-me"

// Load reads configuration from the environment with defaults.
// Precedence: explicit env var > .env file (if loaded by the caller) > default.
func Load() Config {
	return Config{
		Port:          getEnv("PORT", "8080"),
		DBPath:        getEnv("DB_PATH", "./data/splitpay.db"),
		JWTSecret:     getEnv("JWT_SECRET", devJWTSecret),
		TokenDuration: getDuration("TOKEN_DURATION", 24*time.Hour),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "text"),
		Payments: Payments{
			BaseURL:         getEnv("PAYMENTS_BASE_URL", ""),
			AnonKey:         getEnv("PAYMENTS_ANON_KEY", ""),
			Email:           getEnv("PAYMENTS_EMAIL", ""),
			Password:        getEnv("PAYMENTS_PASSWORD", ""),
			PlatformID:      getEnv("PAYMENTS_PLATFORM_ID", ""),
			PlatformUID:     getEnv("PAYMENTS_PLATFORM_UID", ""),
			ParentChannelID: getEnv("PAYMENTS_PARENT_CHANNEL_ID", ""),
			WebhookSecret:   getEnv("PAYMENTS_WEBHOOK_SECRET", ""),
		},
		Redis: Redis{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
		},
		WatchInterval:     getDuration("WATCH_INTERVAL", 3*time.Second),
		WatchFetchTimeout: getDuration("WATCH_FETCH_TIMEOUT", 10*time.Second),
	}
}

// Validate reports settings the server cannot start without.
func (c Config) Validate() error {
	var missing []string
	for name, v := range map[string]string{
		"PAYMENTS_BASE_URL":    c.Payments.BaseURL,
		"PAYMENTS_ANON_KEY":    c.Payments.AnonKey,
		"PAYMENTS_EMAIL":       c.Payments.Email,
		"PAYMENTS_PASSWORD":    c.Payments.Password,
		"PAYMENTS_PLATFORM_ID": c.Payments.PlatformID,
	} {
		if v == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}
	if c.JWTSecret == devJWTSecret {
		slog.Warn("JWT_SECRET not set, using development secret")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		slog.Warn("Invalid duration, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}
