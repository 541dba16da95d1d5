package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultHTTPAddr               = ":8080"
	defaultDatabaseURL            = "carbooking.db"
	defaultJWTSecret              = "change-me-jwt-secret"
	defaultAuthTokenTTL           = "24h"
	defaultSessionTokenTTL        = "72h"
	defaultStagingBackend         = "sql"
	defaultBadgerPath             = "data/staging"
	defaultRedisAddr              = "localhost:6379"
	defaultStagingTTL             = "0s"
	defaultProfileRefreshInterval = "30s"
	defaultRateLimitPerMinute     = "120"
)

const (
	StagingSQL    = "sql"
	StagingBadger = "badger"
	StagingRedis  = "redis"
)

type Config struct {
	AppEnv                 string
	HTTPAddr               string
	DatabaseURL            string
	JWTSecret              string
	AuthTokenTTL           time.Duration
	SessionTokenTTL        time.Duration
	StagingBackend         string
	BadgerPath             string
	RedisAddr              string
	RedisPassword          string
	RedisDB                int
	StagingTTL             time.Duration
	ProfileRefreshInterval time.Duration
	LogLevel               string
	RateLimitPerMinute     int
	CORSAllowedOrigins     []string

	// Zero values keep the built-in default table.
	DefaultVehiclePricePerDay float64
	DefaultLocation           string
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	cfg.AppEnv = strings.ToLower(appEnv)

	cfg.HTTPAddr = strings.TrimSpace(getEnv("HTTP_ADDR", defaultHTTPAddr))
	cfg.DatabaseURL = strings.TrimSpace(getEnv("DATABASE_URL", defaultDatabaseURL))
	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", defaultJWTSecret))
	cfg.StagingBackend = strings.ToLower(strings.TrimSpace(getEnv("STAGING_BACKEND", defaultStagingBackend)))
	cfg.BadgerPath = strings.TrimSpace(getEnv("BADGER_PATH", defaultBadgerPath))
	cfg.RedisAddr = strings.TrimSpace(getEnv("REDIS_ADDR", defaultRedisAddr))
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.LogLevel = strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	cfg.DefaultLocation = strings.TrimSpace(os.Getenv("DEFAULT_LOCATION"))
	if extra := os.Getenv("CORS_ALLOWED_ORIGINS"); extra != "" {
		cfg.CORSAllowedOrigins = strings.Split(extra, ",")
	}

	var err error
	cfg.AuthTokenTTL, err = parseDurationEnv("AUTH_TOKEN_TTL", defaultAuthTokenTTL)
	if err != nil {
		return nil, err
	}
	cfg.SessionTokenTTL, err = parseDurationEnv("SESSION_TOKEN_TTL", defaultSessionTokenTTL)
	if err != nil {
		return nil, err
	}
	cfg.StagingTTL, err = parseDurationEnv("STAGING_TTL", defaultStagingTTL)
	if err != nil {
		return nil, err
	}
	cfg.ProfileRefreshInterval, err = parseDurationEnv("PROFILE_REFRESH_INTERVAL", defaultProfileRefreshInterval)
	if err != nil {
		return nil, err
	}
	cfg.RedisDB, err = parseIntEnv("REDIS_DB", "0")
	if err != nil {
		return nil, err
	}
	cfg.RateLimitPerMinute, err = parseIntEnv("RATE_LIMIT_PER_MINUTE", defaultRateLimitPerMinute)
	if err != nil {
		return nil, err
	}
	cfg.DefaultVehiclePricePerDay, err = parseFloatEnv("DEFAULT_VEHICLE_PRICE_PER_DAY", "0")
	if err != nil {
		return nil, err
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return isProdLike(c.AppEnv)
}

func validateConfig(cfg *Config) error {
	if cfg.HTTPAddr == "" {
		return fmt.Errorf("HTTP_ADDR must not be empty")
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must not be empty")
	}
	if cfg.AuthTokenTTL <= 0 {
		return fmt.Errorf("AUTH_TOKEN_TTL must be > 0")
	}
	if cfg.SessionTokenTTL <= 0 {
		return fmt.Errorf("SESSION_TOKEN_TTL must be > 0")
	}
	if cfg.StagingTTL < 0 {
		return fmt.Errorf("STAGING_TTL must be >= 0")
	}
	if cfg.ProfileRefreshInterval <= 0 {
		return fmt.Errorf("PROFILE_REFRESH_INTERVAL must be > 0")
	}
	if cfg.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be > 0")
	}
	if cfg.DefaultVehiclePricePerDay < 0 {
		return fmt.Errorf("DEFAULT_VEHICLE_PRICE_PER_DAY must be >= 0")
	}

	switch cfg.StagingBackend {
	case StagingSQL:
	case StagingBadger:
		if cfg.BadgerPath == "" {
			return fmt.Errorf("BADGER_PATH must be set when STAGING_BACKEND=badger")
		}
	case StagingRedis:
		if cfg.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR must be set when STAGING_BACKEND=redis")
		}
	default:
		return fmt.Errorf("STAGING_BACKEND must be one of: sql, badger, redis")
	}

	if isProdLike(cfg.AppEnv) {
		if isEmptyOrDefault(cfg.JWTSecret, defaultJWTSecret) {
			return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
		}
	}

	return nil
}

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}

func parseDurationEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func parseIntEnv(name, fallback string) (int, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return n, nil
}

func parseFloatEnv(name, fallback string) (float64, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return f, nil
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
