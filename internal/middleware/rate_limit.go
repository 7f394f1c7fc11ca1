package middleware

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/carlog/internal/config"
	"golang.org/x/time/rate"
)

const rateLimitedText = "⏳ Too many requests. Please wait a moment."

// Limiter keeps one token bucket per chat.
type Limiter struct {
	perMinute int
	now       func() time.Time

	mu      sync.Mutex
	buckets map[int64]*bucket
	swept   time.Time
}

type bucket struct {
	limiter *rate.Limiter
	seen    time.Time
}

// NewLimiter allows perMinute messages per chat, with bursts up to the
// same amount.
func NewLimiter(perMinute int) *Limiter {
	return &Limiter{
		perMinute: perMinute,
		now:       time.Now,
		buckets:   make(map[int64]*bucket),
	}
}

// Allow reports whether chatID may send another message now.
func (l *Limiter) Allow(chatID int64) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.swept) > config.RateLimitIdleTTL {
		for id, b := range l.buckets {
			if now.Sub(b.seen) > config.RateLimitIdleTTL {
				delete(l.buckets, id)
			}
		}
		l.swept = now
	}

	b, ok := l.buckets[chatID]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.perMinute)), l.perMinute)}
		l.buckets[chatID] = b
	}
	b.seen = now
	return b.limiter.AllowN(now, 1)
}

// RateLimit returns middleware that enforces per-minute rate limits.
func RateLimit(l *Limiter) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			// Only rate limit messages (not callbacks or other updates)
			if update.Message == nil {
				next(ctx, b, update)
				return
			}

			chatID := update.Message.Chat.ID
			if !l.Allow(chatID) {
				slog.Debug("rate limited", "chat_id", chatID, "limit", l.perMinute)
				b.SendMessage(ctx, &bot.SendMessageParams{
					ChatID: chatID,
					Text:   rateLimitedText,
				})
				return
			}

			next(ctx, b, update)
		}
	}
}
