// Package config loads process settings from an optional .env file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Backend is the static record a client uses to reach the backend service.
type Backend struct {
	// ProjectID scopes ID tokens; tokens issued for another project are rejected.
	ProjectID string
	// APIKey is sent with every backend call.
	APIKey string
	// AuthDomain is the public host the web UI is served from.
	AuthDomain string
	// URL is the backend service base URL. Empty means in-process.
	URL string
}

// Config holds the settings for cmd/backend and cmd/web.
type Config struct {
	Backend Backend

	// BackendAddr is the listen address of cmd/backend.
	BackendAddr string
	// DBDriver is "sqlite" or "postgres"; DBDSN is its data source.
	DBDriver string
	DBDSN    string
	// JWTSecret signs ID tokens; TokenTTL bounds their lifetime.
	JWTSecret string
	TokenTTL  time.Duration

	// WebAddr is the listen address of cmd/web.
	WebAddr string
	// SessionTTL is how long an idle browser session keeps its client core.
	SessionTTL time.Duration
	// NotifyTTL is how long a notification stays visible.
	NotifyTTL time.Duration

	LogLevel  string
	LogFormat string
}

// Load reads .env (when present) and then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function, applying defaults.
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, fallback string) string {
		if value := strings.TrimSpace(getenv(key)); value != "" {
			return value
		}
		return fallback
	}

	cfg := &Config{
		Backend: Backend{
			ProjectID:  get("FINTRACK_PROJECT_ID", "fintrack-dev"),
			APIKey:     get("FINTRACK_API_KEY", ""),
			AuthDomain: get("FINTRACK_AUTH_DOMAIN", "localhost"),
			URL:        get("BACKEND_URL", ""),
		},
		BackendAddr: get("BACKEND_ADDR", ":8081"),
		DBDriver:    get("DB_DRIVER", "sqlite"),
		DBDSN:       get("DB_DSN", "./data/fintrack.db"),
		JWTSecret:   get("JWT_SECRET", ""),
		WebAddr:     get("WEB_ADDR", ":8080"),
		LogLevel:    get("LOG_LEVEL", "info"),
		LogFormat:   get("LOG_FORMAT", "text"),
	}

	var err error
	if cfg.TokenTTL, err = duration(get("TOKEN_TTL", "1h"), "TOKEN_TTL"); err != nil {
		return nil, err
	}
	if cfg.SessionTTL, err = duration(get("SESSION_TTL", "24h"), "SESSION_TTL"); err != nil {
		return nil, err
	}
	if cfg.NotifyTTL, err = duration(get("NOTIFY_TTL", "5s"), "NOTIFY_TTL"); err != nil {
		return nil, err
	}

	switch cfg.DBDriver {
	case "sqlite", "postgres":
	default:
		return nil, fmt.Errorf("DB_DRIVER must be sqlite or postgres, got %q", cfg.DBDriver)
	}

	return cfg, nil
}

// Validate checks settings that cmd/backend cannot run without.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if len(c.JWTSecret) < 16 {
		return errors.New("JWT_SECRET must be at least 16 characters")
	}
	return nil
}

func duration(value, key string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return d, nil
}
