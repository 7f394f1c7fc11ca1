package handler

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/carlog/internal/config"
	"github.com/set-night/carlog/internal/domain"
	"github.com/set-night/carlog/internal/telegram"
)

const (
	noRemindersText       = "No active reminders. Create one with /set_time_reminder or /set_km_reminder."
	reminderCancelledText = "Reminder cancelled"
	remindersHeader       = "⏰ <b>Active reminders</b>\n\n"
)

func (h *Handler) handleReminders(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID
	user := h.user(ctx, chatID)
	if user == nil {
		return
	}

	reminders, err := h.store.ListActiveReminders(ctx, user.ID)
	if err != nil {
		h.fail(ctx, chatID, err, "list reminders")
		return
	}
	text, markup := RemindersView(reminders, h.loc())
	h.send(ctx, chatID, text, markupOrNil(markup))
}

// cancelReminder deactivates the reminder and redraws the list in place.
func (h *Handler) cancelReminder(ctx context.Context, cb callback, userID, reminderID int64) {
	err := h.store.CancelReminder(ctx, userID, reminderID)
	switch {
	case domain.IsNotFound(err):
		h.sender.AnswerCallback(ctx, cb.id, goneText)
	case err != nil:
		h.sender.AnswerCallback(ctx, cb.id, "")
		h.fail(ctx, cb.chatID, err, "cancel reminder")
		return
	default:
		h.sender.AnswerCallback(ctx, cb.id, reminderCancelledText)
	}

	reminders, err := h.store.ListActiveReminders(ctx, userID)
	if err != nil {
		h.fail(ctx, cb.chatID, err, "list reminders")
		return
	}
	text, markup := RemindersView(reminders, h.loc())
	h.edit(ctx, cb, text, markup)
}

// RemindersView lists active reminders with one cancel button each.
// The keyboard is nil when there is nothing to list.
func RemindersView(reminders []domain.ReminderDue, loc *time.Location) (string, *models.InlineKeyboardMarkup) {
	if len(reminders) == 0 {
		return noRemindersText, nil
	}

	var sb strings.Builder
	sb.WriteString(remindersHeader)
	rows := make([][]models.InlineKeyboardButton, 0, len(reminders))
	for i, r := range reminders {
		if i == config.MaxListedReminders {
			fmt.Fprintf(&sb, "… and %d more\n", len(reminders)-i)
			break
		}
		fmt.Fprintf(&sb, "%d. %s\n", i+1, ReminderLine(r, loc))
		rows = append(rows, telegram.ButtonRow(telegram.ActionButton(
			fmt.Sprintf("✖️ Cancel %d. %s", i+1, telegram.Truncate(r.Description, 32)),
			domain.Action{Kind: domain.ActionReminderCancel, ID: r.ID},
		)))
	}
	return strings.TrimRight(sb.String(), "\n"), telegram.InlineKeyboard(rows...)
}

// ReminderLine is one reminder: description, vehicle and trigger.
func ReminderLine(r domain.ReminderDue, loc *time.Location) string {
	trigger := ""
	switch r.Kind {
	case domain.ReminderTime:
		if r.DueAt != nil {
			trigger = "📅 " + r.DueAt.In(loc).Format("2006-01-02 15:04")
		}
	case domain.ReminderKm:
		if r.KmThreshold != nil {
			trigger = fmt.Sprintf("📟 at %d km (now %d km)", *r.KmThreshold, r.KmCurrent)
		}
	}
	return fmt.Sprintf("<b>%s</b> · %s · %s",
		html.EscapeString(r.Description), html.EscapeString(r.VehicleName), trigger)
}
