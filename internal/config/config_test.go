package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("DATABASE_URL", "postgres://localhost/carlog")
}

func TestParseDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Rome", cfg.Location().String())
	assert.Equal(t, 9, cfg.SweepHour)
	assert.False(t, cfg.KmCheckOnUpdate)
	assert.Equal(t, 15*time.Minute, cfg.DeliveryRetryDelay)
	assert.Equal(t, 30, cfg.RateLimitPerMinute)
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
	assert.Zero(t, cfg.LogTelegramChatID)
}

func TestParseOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("SWEEP_HOUR", "6")
	t.Setenv("KM_CHECK_ON_UPDATE", "true")
	t.Setenv("DELIVERY_RETRY_DELAY", "2m")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_TELEGRAM_CHAT_ID", "-100123")

	cfg, err := Parse()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, cfg.Location())
	assert.Equal(t, 6, cfg.SweepHour)
	assert.True(t, cfg.KmCheckOnUpdate)
	assert.Equal(t, 2*time.Minute, cfg.DeliveryRetryDelay)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.Equal(t, int64(-100123), cfg.LogTelegramChatID)
}

func TestParseMissingToken(t *testing.T) {
	t.Setenv("BOT_TOKEN", "")
	t.Setenv("DATABASE_URL", "postgres://localhost/carlog")

	_, err := Parse()
	assert.Error(t, err)
}

func TestParseRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"TIMEZONE":              "Mars/Olympus",
		"SWEEP_HOUR":            "24",
		"DELIVERY_RETRY_DELAY":  "0s",
		"RATE_LIMIT_PER_MINUTE": "0",
		"LOG_LEVEL":             "loud",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			setRequired(t)
			t.Setenv(key, value)
			_, err := Parse()
			assert.Error(t, err)
		})
	}
}
