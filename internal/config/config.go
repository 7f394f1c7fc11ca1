package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	// Core
	BotToken    string `env:"BOT_TOKEN,required,notEmpty"`
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`

	// Reminders
	Timezone           string        `env:"TIMEZONE" envDefault:"Europe/Rome"`
	SweepHour          int           `env:"SWEEP_HOUR" envDefault:"9"`
	KmCheckOnUpdate    bool          `env:"KM_CHECK_ON_UPDATE" envDefault:"false"`
	DeliveryRetryDelay time.Duration `env:"DELIVERY_RETRY_DELAY" envDefault:"15m"`

	// Bot behavior
	RateLimitPerMinute int  `env:"RATE_LIMIT_PER_MINUTE" envDefault:"30"`
	DropPendingUpdates bool `env:"BOT_DROP_PENDING_UPDATES" envDefault:"false"`

	// Logging
	LogLevel          string `env:"LOG_LEVEL" envDefault:"info"`
	LogTelegramChatID int64  `env:"LOG_TELEGRAM_CHAT_ID"`

	location *time.Location
}

// Load reads an optional .env file and then the process environment.
// Variables already set in the environment win over the file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return Parse()
}

// Parse reads the configuration from the process environment only.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("TIMEZONE %q: %w", c.Timezone, err)
	}
	c.location = loc

	if c.SweepHour < 0 || c.SweepHour > 23 {
		return fmt.Errorf("SWEEP_HOUR must be 0-23, got %d", c.SweepHour)
	}
	if c.DeliveryRetryDelay <= 0 {
		return fmt.Errorf("DELIVERY_RETRY_DELAY must be positive, got %s", c.DeliveryRetryDelay)
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive, got %d", c.RateLimitPerMinute)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Location is the zone dates are entered in and reminders are shown in.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// SlogLevel returns the configured log level, falling back to info.
func (c *Config) SlogLevel() slog.Level {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL %q: %w", s, err)
	}
	return level, nil
}
