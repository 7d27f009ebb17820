// Package config loads runtime configuration from environment variables.
//
// Every binary in cmd/ calls Load once at startup. A .env file in the working
// directory is read first if present (handy for local development); real
// environment variables always win over values from the file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds every setting the server, seed tool and snapshot job read.
type Config struct {
	Port          int           `env:"PORT" envDefault:"8000"`
	DBPath        string        `env:"DB_PATH" envDefault:"data/octofit.db"`
	PublicBaseURL string        `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8000"`
	JWTSecret     string        `env:"JWT_SECRET"`
	TokenTTL      time.Duration `env:"TOKEN_TTL" envDefault:"24h"`

	GitHubClientID     string `env:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string `env:"GITHUB_CLIENT_SECRET"`
	GitHubCallbackURL  string `env:"GITHUB_CALLBACK_URL"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	LeaderboardPageSize int `env:"LEADERBOARD_PAGE_SIZE" envDefault:"10"`
	// LeaderboardRefresh is how often the server rebuilds leaderboard
	// snapshots in the background. 0 disables it; cmd/snapshot still works.
	LeaderboardRefresh time.Duration `env:"LEADERBOARD_REFRESH_INTERVAL" envDefault:"15m"`
}

// Load reads an optional .env file and parses the environment into a Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: reading .env: %w", err)
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config: parsing environment: %w", err)
	}
	if cfg.GitHubCallbackURL == "" {
		cfg.GitHubCallbackURL = strings.TrimRight(cfg.PublicBaseURL, "/") + "/api/auth/github/callback"
	}
	return &cfg, nil
}

// Validate checks settings the server cannot run without. The seed tool and
// snapshot job do not issue tokens and skip it.
func (c *Config) Validate() error {
	if len(c.JWTSecret) < 16 {
		return errors.New("config: JWT_SECRET must be at least 16 characters")
	}
	if c.TokenTTL <= 0 {
		return errors.New("config: TOKEN_TTL must be positive")
	}
	if c.LeaderboardPageSize <= 0 {
		return errors.New("config: LEADERBOARD_PAGE_SIZE must be positive")
	}
	if c.LeaderboardRefresh < 0 {
		return errors.New("config: LEADERBOARD_REFRESH_INTERVAL must not be negative")
	}
	if _, err := c.level(); err != nil {
		return err
	}
	return nil
}

// GitHubEnabled reports whether GitHub OAuth credentials are configured.
func (c *Config) GitHubEnabled() bool {
	return c.GitHubClientID != "" && c.GitHubClientSecret != ""
}

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func (c *Config) NewLogger() *slog.Logger {
	level, err := c.level()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(c.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func (c *Config) level() (slog.Level, error) {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("config: unknown LOG_LEVEL %q", c.LogLevel)
}
