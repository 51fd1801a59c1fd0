package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	defaultAppName          = "BosphorusPay"
	defaultAppEnv           = "development"
	defaultPort             = "8080"
	defaultLogLevel         = "info"
	defaultPendingThreshold = "1000"
	defaultShutdownDelay    = 10 * time.Second
	defaultIdempotencyTTL   = 24 * time.Hour
	defaultLockTimeout      = 5 * time.Second
	defaultAccessTokenTTL   = 15 * time.Minute
	defaultRefreshTokenTTL  = 720 * time.Hour
)

// Config captures application runtime configuration loaded from environment
// variables. PendingThreshold is read once at startup and immutable after.
type Config struct {
	AppName          string
	AppEnv           string
	Port             string
	LogLevel         string
	DatabaseURL      string
	RedisURL         string
	JWTSecret        string
	RefreshSecret    string
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration
	PendingThreshold decimal.Decimal
	ShutdownPeriod   time.Duration
	IdempotencyTTL   time.Duration
	LockTimeout      time.Duration
}

// Load reads configuration values from the environment and populates a
// Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:         getEnv("APP_NAME", defaultAppName),
		AppEnv:          getEnv("APP_ENV", defaultAppEnv),
		Port:            getEnv("PORT", defaultPort),
		LogLevel:        strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisURL:        os.Getenv("REDIS_URL"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		RefreshSecret:   os.Getenv("REFRESH_SECRET"),
		AccessTokenTTL:  defaultAccessTokenTTL,
		RefreshTokenTTL: defaultRefreshTokenTTL,
		ShutdownPeriod:  defaultShutdownDelay,
		IdempotencyTTL:  defaultIdempotencyTTL,
		LockTimeout:     defaultLockTimeout,
	}

	threshold, err := decimal.NewFromString(getEnv("PENDING_THRESHOLD", defaultPendingThreshold))
	if err != nil {
		return Config{}, fmt.Errorf("invalid PENDING_THRESHOLD: %w", err)
	}
	if !threshold.IsPositive() {
		return Config{}, fmt.Errorf("PENDING_THRESHOLD must be positive, got %s", threshold)
	}
	cfg.PendingThreshold = threshold

	for _, d := range []struct {
		envVar string
		dst    *time.Duration
	}{
		{"SHUTDOWN_TIMEOUT", &cfg.ShutdownPeriod},
		{"IDEMPOTENCY_TTL", &cfg.IdempotencyTTL},
		{"LOCK_TIMEOUT", &cfg.LockTimeout},
		{"ACCESS_TOKEN_TTL", &cfg.AccessTokenTTL},
		{"REFRESH_TOKEN_TTL", &cfg.RefreshTokenTTL},
	} {
		if v := os.Getenv(d.envVar); v != "" {
			parsed, err := time.ParseDuration(v)
			if err != nil {
				return Config{}, fmt.Errorf("invalid %s: %w", d.envVar, err)
			}
			*d.dst = parsed
		}
	}

	if cfg.IsDev() {
		if cfg.JWTSecret == "" {
			cfg.JWTSecret = "dev-access-secret"
		}
		if cfg.RefreshSecret == "" {
			cfg.RefreshSecret = "dev-refresh-secret"
		}
		return cfg, nil
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL must be set")
	}
	if cfg.RedisURL == "" {
		return Config{}, fmt.Errorf("REDIS_URL must be set")
	}
	if cfg.JWTSecret == "" || cfg.RefreshSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET and REFRESH_SECRET must be set")
	}

	return cfg, nil
}

// IsDev reports whether the app runs in a development environment, where
// missing backends fall back to in-memory implementations.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
