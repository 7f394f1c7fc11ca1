package handler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/carlog/internal/config"
	"github.com/set-night/carlog/internal/conversation"
	"github.com/set-night/carlog/internal/domain"
	"github.com/set-night/carlog/internal/middleware"
	"github.com/set-night/carlog/internal/telegram"
)

// Store is what the command surface reads and deletes outside of flows.
type Store interface {
	ListVehicles(ctx context.Context, userID int64) ([]domain.Vehicle, error)
	GetVehicle(ctx context.Context, userID, vehicleID int64) (*domain.Vehicle, error)
	DeleteVehicle(ctx context.Context, userID, vehicleID int64) error
	History(ctx context.Context, userID, vehicleID int64) ([]domain.MaintenanceRecord, error)
	ListActiveReminders(ctx context.Context, userID int64) ([]domain.ReminderDue, error)
	CancelReminder(ctx context.Context, userID, reminderID int64) error
	Snapshot(ctx context.Context, userID int64) (*domain.Snapshot, error)
}

// Handler holds all dependencies needed by command and callback handlers.
type Handler struct {
	bot      *bot.Bot
	cfg      *config.Config
	store    Store
	engine   *conversation.Engine
	sender   *telegram.Sender
	tgLogger *telegram.Logger
	now      func() time.Time
}

// Deps contains all dependencies required to construct a Handler.
type Deps struct {
	Bot      *bot.Bot
	Cfg      *config.Config
	Store    Store
	Engine   *conversation.Engine
	Sender   *telegram.Sender
	TgLogger *telegram.Logger
}

// New creates a new Handler from the provided dependencies.
func New(deps Deps) *Handler {
	return &Handler{
		bot:      deps.Bot,
		cfg:      deps.Cfg,
		store:    deps.Store,
		engine:   deps.Engine,
		sender:   deps.Sender,
		tgLogger: deps.TgLogger,
		now:      time.Now,
	}
}

const (
	genericErrorText = "⚠️ Something went wrong. Please try again."
	goneText         = "That item no longer exists."
	noUserText       = "⚠️ Could not load your profile right now. Please try again."
)

func (h *Handler) loc() *time.Location {
	return h.cfg.Location()
}

// user returns the chat's user or tells the chat why there is none.
func (h *Handler) user(ctx context.Context, chatID int64) *domain.User {
	u := middleware.GetUser(ctx)
	if u == nil {
		h.send(ctx, chatID, noUserText, nil)
	}
	return u
}

func (h *Handler) send(ctx context.Context, chatID int64, text string, markup models.ReplyMarkup) {
	if err := h.sender.SendLongMessage(ctx, chatID, text, markup); err != nil {
		slog.Error("send message failed", "error", err, "chat_id", chatID)
	}
}

// sendReply renders an engine reply: inline choices while a flow runs,
// the main menu once it is done.
func (h *Handler) sendReply(ctx context.Context, chatID int64, r conversation.Reply) {
	var markup models.ReplyMarkup
	switch {
	case len(r.Choices) > 0:
		markup = telegram.ChoicesKeyboard(r.Choices)
	case r.Done:
		markup = telegram.MainMenu()
	}
	h.send(ctx, chatID, r.Text, markup)
}

// fail reports err to the chat in user terms and to the operators in
// full.
func (h *Handler) fail(ctx context.Context, chatID int64, err error, where string) {
	var verr *domain.ValidationError
	switch {
	case domain.IsNotFound(err):
		h.send(ctx, chatID, goneText, nil)
		return
	case errors.As(err, &verr):
		h.send(ctx, chatID, "⚠️ Expected "+verr.Expected+".", nil)
		return
	}

	slog.Error("handler failed", "error", err, "where", where, "chat_id", chatID)
	h.tgLogger.LogError(err, where)
	h.send(ctx, chatID, genericErrorText, nil)
}

// withTimeout bounds the storage work of one update.
func withTimeout(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		ctx, cancel := context.WithTimeout(ctx, config.RequestTimeout)
		defer cancel()
		next(ctx, b, update)
	}
}
