package handler

import (
	"context"
	"errors"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/carlog/internal/conversation"
	"github.com/set-night/carlog/internal/domain"
	"github.com/set-night/carlog/internal/telegram"
)

const (
	unknownInputText   = "I didn't get that. Pick something from the menu below or send /help."
	unknownCommandText = "Unknown command. Send /help for the list."
	restartedText      = "This conversation was restarted. Continue from the latest message."
)

func (h *Handler) handleAddVehicle(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.startFlow(ctx, update, conversation.FlowAddVehicle)
}

func (h *Handler) handleUpdateKm(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.startFlow(ctx, update, conversation.FlowUpdateOdometer)
}

func (h *Handler) handleAddMaintenance(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.startFlow(ctx, update, conversation.FlowAddMaintenance)
}

func (h *Handler) handleSetTimeReminder(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.startFlow(ctx, update, conversation.FlowSetTimeReminder)
}

func (h *Handler) handleSetKmReminder(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.startFlow(ctx, update, conversation.FlowSetKmReminder)
}

func (h *Handler) startFlow(ctx context.Context, update *models.Update, flow conversation.Flow, opts ...conversation.StartOption) {
	if update.Message == nil {
		return
	}
	h.start(ctx, update.Message.Chat.ID, flow, opts...)
}

func (h *Handler) start(ctx context.Context, chatID int64, flow conversation.Flow, opts ...conversation.StartOption) {
	user := h.user(ctx, chatID)
	if user == nil {
		return
	}
	reply, err := h.engine.Start(ctx, user.ID, flow, opts...)
	if err != nil {
		h.fail(ctx, chatID, err, "start "+string(flow))
		return
	}
	h.sendReply(ctx, chatID, reply)
}

func (h *Handler) handleCancel(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID
	h.feed(ctx, chatID, conversation.ActionInput(domain.Action{Kind: domain.ActionCancel}))
}

// HandleText routes free text to the open conversation, if any.
func (h *Handler) HandleText(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}
	chatID := update.Message.Chat.ID
	text := update.Message.Text

	if strings.HasPrefix(text, "/") {
		h.send(ctx, chatID, unknownCommandText, nil)
		return
	}
	if !h.feed(ctx, chatID, conversation.TextInput(text)) {
		h.send(ctx, chatID, unknownInputText, telegram.MainMenu())
	}
}

// feed hands one input to the engine and renders the outcome. It
// reports false when no conversation claimed the input.
func (h *Handler) feed(ctx context.Context, chatID int64, in conversation.Input) bool {
	user := h.user(ctx, chatID)
	if user == nil {
		return true
	}

	reply, handled, err := h.engine.Handle(ctx, user.ID, in)
	switch {
	case errors.Is(err, conversation.ErrStaleSession):
		h.send(ctx, chatID, restartedText, nil)
		return true
	case err != nil:
		h.fail(ctx, chatID, err, "conversation step")
		return true
	case !handled:
		return false
	}
	h.sendReply(ctx, chatID, reply)
	return true
}
