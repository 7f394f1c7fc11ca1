package middleware

import (
	"context"
	"log/slog"
	"runtime/debug"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Recover returns middleware that recovers from panics. report, if
// set, also receives the panic, e.g. to mirror it to the log chat.
func Recover(report func(chatID int64, panicValue any)) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			defer func() {
				if r := recover(); r != nil {
					chatID := ChatID(update)
					slog.Error("panic recovered in handler",
						"panic", r,
						"chat_id", chatID,
						"stack", string(debug.Stack()),
					)
					if report != nil {
						report(chatID, r)
					}
				}
			}()
			next(ctx, b, update)
		}
	}
}
