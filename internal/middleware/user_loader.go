package middleware

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/carlog/internal/domain"
)

type ctxKey string

const UserKey ctxKey = "user"

// UserFinder resolves the user bound to a chat, creating it on first
// contact.
type UserFinder interface {
	FindOrCreate(ctx context.Context, chatID int64) (*domain.User, bool, error)
}

// GetUser extracts user from context.
func GetUser(ctx context.Context) *domain.User {
	u, ok := ctx.Value(UserKey).(*domain.User)
	if !ok {
		return nil
	}
	return u
}

// WithUser stores u in ctx.
func WithUser(ctx context.Context, u *domain.User) context.Context {
	return context.WithValue(ctx, UserKey, u)
}

// UserLoader returns middleware that loads the chat's user into context.
// onCreate, if set, runs once for every newly created user.
func UserLoader(users UserFinder, onCreate func(*domain.User)) bot.Middleware {
	return func(next bot.HandlerFunc) bot.HandlerFunc {
		return func(ctx context.Context, b *bot.Bot, update *models.Update) {
			chatID := ChatID(update)
			if chatID == 0 {
				next(ctx, b, update)
				return
			}

			user, created, err := users.FindOrCreate(ctx, chatID)
			if err != nil {
				slog.Error("failed to load user", "error", err, "chat_id", chatID)
			} else if user != nil {
				ctx = WithUser(ctx, user)
				if created {
					slog.Info("user registered", "user_id", user.ID, "chat_id", chatID)
					if onCreate != nil {
						onCreate(user)
					}
				}
			}

			next(ctx, b, update)
		}
	}
}
