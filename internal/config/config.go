// Package config loads the server configuration from the environment.
//
// LOAD ORDER:
//  1. An optional .env file (joho/godotenv). Real environment variables win over it.
//  2. Environment variables, read by viper's AutomaticEnv.
//  3. The defaults below.
//
// Every key needs a default, even an empty one: viper only unmarshals keys it knows
// about, and AutomaticEnv alone doesn't register any.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds every setting the server and the cmd tools read.
type Config struct {
	Env    string `mapstructure:"APP_ENV"`
	Port   int    `mapstructure:"PORT"`
	DBPath string `mapstructure:"DB_PATH"`

	JWTSecret  string        `mapstructure:"JWT_SECRET"`
	SessionTTL time.Duration `mapstructure:"SESSION_TTL"`

	GitHubClientID     string `mapstructure:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string `mapstructure:"GITHUB_CLIENT_SECRET"`
	GitHubCallbackURL  string `mapstructure:"GITHUB_CALLBACK_URL"`
	GitHubAPIURL       string `mapstructure:"GITHUB_API_URL"`

	// Empty RedisURL disables write rate limiting.
	RedisURL        string        `mapstructure:"REDIS_URL"`
	RateLimitWrites int           `mapstructure:"RATE_LIMIT_WRITES"`
	RateLimitWindow time.Duration `mapstructure:"RATE_LIMIT_WINDOW"`
}

const devSecret = "dev-only-secret-change-me-please"

var defaults = map[string]any{
	"APP_ENV":              "development",
	"PORT":                 8080,
	"DB_PATH":              "data/repohub.db",
	"JWT_SECRET":           devSecret,
	"SESSION_TTL":          24 * time.Hour,
	"GITHUB_CLIENT_ID":     "",
	"GITHUB_CLIENT_SECRET": "",
	"GITHUB_CALLBACK_URL":  "",
	"GITHUB_API_URL":       "https://api.github.com",
	"REDIS_URL":            "",
	"RATE_LIMIT_WRITES":    30,
	"RATE_LIMIT_WINDOW":    time.Minute,
}

// Load reads .env (if present) and the environment, applies defaults and validates.
func Load() (*Config, error) {
	// Missing .env is the normal case in production.
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decoding: %w", err)
	}

	if cfg.GitHubCallbackURL == "" {
		cfg.GitHubCallbackURL = fmt.Sprintf("http://localhost:%d/auth/github/callback", cfg.Port)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// IsProduction reports whether APP_ENV is "production" or "prod".
func (c *Config) IsProduction() bool {
	return c.Env == "production" || c.Env == "prod"
}

// NewLogger returns the structured logger for this environment: human-readable text
// at debug level in development, JSON at info level in production so log shippers
// can parse it.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	if c.IsProduction() {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// Validate checks the settings. Production is strict: a real secret and OAuth
// credentials are mandatory there.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT %d is out of range", c.Port)
	}
	if c.DBPath == "" {
		return errors.New("DB_PATH is required")
	}
	if len(c.JWTSecret) < 16 {
		return errors.New("JWT_SECRET must be at least 16 characters")
	}
	if c.SessionTTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	if c.RedisURL != "" && (c.RateLimitWrites <= 0 || c.RateLimitWindow <= 0) {
		return errors.New("RATE_LIMIT_WRITES and RATE_LIMIT_WINDOW must be positive when REDIS_URL is set")
	}

	if c.IsProduction() {
		if c.JWTSecret == devSecret {
			return errors.New("JWT_SECRET must be changed from the default value in production")
		}
		if len(c.JWTSecret) < 32 {
			return errors.New("JWT_SECRET must be at least 32 characters in production")
		}
		if c.GitHubClientID == "" || c.GitHubClientSecret == "" {
			return errors.New("GITHUB_CLIENT_ID and GITHUB_CLIENT_SECRET are required in production")
		}
	}
	return nil
}
