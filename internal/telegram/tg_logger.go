package telegram

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"time"

	"github.com/set-night/carlog/internal/domain"
)

type LogType string

const (
	LogTypeError         LogType = "error"
	LogTypeRegistration  LogType = "registration"
	LogTypeReminderFired LogType = "reminderFired"
)

// Logger mirrors notable events to an operator chat. A zero chat id
// disables it.
type Logger struct {
	sender *Sender
	chatID int64
	now    func() time.Time
}

func NewLogger(sender *Sender, chatID int64) *Logger {
	return &Logger{sender: sender, chatID: chatID, now: time.Now}
}

func (l *Logger) Enabled() bool { return l != nil && l.chatID != 0 }

func (l *Logger) Log(logType LogType, message string) {
	if !l.Enabled() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	message = Truncate(message, MaxLogMessageLen)
	if err := l.sender.SendHTML(ctx, l.chatID, message); err != nil {
		slog.Error("failed to send telegram log", "type", logType, "error", err)
	}
}

// MaxLogMessageLen keeps log entries to a single message.
const MaxLogMessageLen = 4000

func (l *Logger) LogError(err error, where string) {
	if !l.Enabled() {
		return
	}
	msg := fmt.Sprintf("❌ <b>Error</b>\n\n<b>Context:</b> %s\n<b>Error:</b> <code>%s</code>\n<b>Time:</b> %s",
		html.EscapeString(where), html.EscapeString(err.Error()), l.now().Format("2006-01-02 15:04:05"))
	l.Log(LogTypeError, msg)
}

func (l *Logger) LogRegistration(u *domain.User) {
	if !l.Enabled() {
		return
	}
	msg := fmt.Sprintf("👤 <b>New user</b>\n\n<b>ID:</b> <code>%d</code>\n<b>Chat:</b> <code>%d</code>",
		u.ID, u.ChatID)
	l.Log(LogTypeRegistration, msg)
}

func (l *Logger) LogReminderFired(r domain.ReminderDue) {
	if !l.Enabled() {
		return
	}
	msg := fmt.Sprintf("⏰ <b>Reminder fired</b>\n\n<b>ID:</b> <code>%d</code>\n<b>Kind:</b> %s\n<b>Chat:</b> <code>%d</code>",
		r.ID, r.Kind, r.ChatID)
	l.Log(LogTypeReminderFired, msg)
}
