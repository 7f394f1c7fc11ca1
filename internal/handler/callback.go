package handler

import (
	"context"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/carlog/internal/conversation"
	"github.com/set-night/carlog/internal/domain"
)

const expiredButtonText = "This button has expired."

// callback is the pressed button's origin.
type callback struct {
	id        string
	chatID    int64
	messageID int
}

func callbackOf(q *models.CallbackQuery) callback {
	cb := callback{id: q.ID, chatID: q.From.ID}
	if msg := q.Message.Message; msg != nil {
		cb.chatID = msg.Chat.ID
		cb.messageID = msg.ID
	}
	return cb
}

// HandleCallback decodes the button token once and dispatches on its
// kind. Flow selections go to the conversation engine.
func (h *Handler) HandleCallback(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	cb := callbackOf(update.CallbackQuery)

	action, err := domain.ParseAction(update.CallbackQuery.Data)
	if err != nil {
		slog.Warn("unknown callback data", "error", err, "chat_id", cb.chatID)
		h.sender.AnswerCallback(ctx, cb.id, expiredButtonText)
		return
	}

	user := h.user(ctx, cb.chatID)
	if user == nil {
		h.sender.AnswerCallback(ctx, cb.id, "")
		return
	}

	switch action.Kind {
	case domain.ActionNoop:
		h.sender.AnswerCallback(ctx, cb.id, "")

	case domain.ActionVehicle:
		h.sender.AnswerCallback(ctx, cb.id, "")
		h.showVehicle(ctx, cb, user.ID, action.ID)

	case domain.ActionVehicleKm:
		h.sender.AnswerCallback(ctx, cb.id, "")
		h.updateKmFromCard(ctx, cb, action.ID)

	case domain.ActionVehicleHistory, domain.ActionHistoryVehicle:
		h.sender.AnswerCallback(ctx, cb.id, "")
		h.showHistory(ctx, cb.chatID, user.ID, action.ID)

	case domain.ActionVehicleDelete:
		h.sender.AnswerCallback(ctx, cb.id, "")
		h.deleteVehicle(ctx, cb, user.ID, action.ID)

	case domain.ActionReminderCancel:
		h.cancelReminder(ctx, cb, user.ID, action.ID)

	default:
		// Flow selections and cancel.
		if h.feed(ctx, cb.chatID, conversation.ActionInput(action)) {
			h.sender.AnswerCallback(ctx, cb.id, "")
			h.edit(ctx, cb, "", nil)
			return
		}
		h.sender.AnswerCallback(ctx, cb.id, expiredButtonText)
	}
}

// edit replaces the pressed message. An empty text only strips its
// buttons so a selection cannot be pressed twice.
func (h *Handler) edit(ctx context.Context, cb callback, text string, markup *models.InlineKeyboardMarkup) {
	if cb.messageID == 0 {
		if text != "" {
			h.send(ctx, cb.chatID, text, markupOrNil(markup))
		}
		return
	}
	if text == "" {
		if err := h.sender.ClearButtons(ctx, cb.chatID, cb.messageID); err != nil {
			slog.Debug("clear buttons failed", "error", err, "chat_id", cb.chatID)
		}
		return
	}
	if err := h.sender.EditMessage(ctx, cb.chatID, cb.messageID, text, markup); err != nil {
		slog.Warn("edit message failed, sending instead", "error", err, "chat_id", cb.chatID)
		h.send(ctx, cb.chatID, text, markupOrNil(markup))
	}
}

func markupOrNil(m *models.InlineKeyboardMarkup) models.ReplyMarkup {
	if m == nil {
		return nil
	}
	return m
}
