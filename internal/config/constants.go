package config

import "time"

const (
	// Telegram limits
	MaxTelegramMessageLen = 4096

	// History shows the most recent records per vehicle.
	HistoryLimit = 30

	// Reminders listed per message before the list is cut.
	MaxListedReminders = 50

	// Export archive
	ExportFilePrefix = "carlog-export"

	// Upper bound for a single handler's storage work.
	RequestTimeout = 15 * time.Second

	// Rate limiter buckets idle longer than this are dropped.
	RateLimitIdleTTL = 10 * time.Minute
)
