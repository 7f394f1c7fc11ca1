package telegram

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/carlog/internal/config"
)

// API is the part of *bot.Bot the sender uses.
type API interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	EditMessageText(ctx context.Context, params *bot.EditMessageTextParams) (*models.Message, error)
	EditMessageReplyMarkup(ctx context.Context, params *bot.EditMessageReplyMarkupParams) (*models.Message, error)
	SendDocument(ctx context.Context, params *bot.SendDocumentParams) (*models.Message, error)
	AnswerCallbackQuery(ctx context.Context, params *bot.AnswerCallbackQueryParams) (bool, error)
}

// Sender sends HTML messages and falls back to plain text when Telegram
// rejects the markup.
type Sender struct {
	api API
}

func NewSender(api API) *Sender {
	return &Sender{api: api}
}

// SendHTML sends text to chatID, split into parts if needed.
func (s *Sender) SendHTML(ctx context.Context, chatID int64, text string) error {
	return s.SendLongMessage(ctx, chatID, text, nil)
}

// SendLongMessage sends a potentially long message, splitting it into parts if needed.
// The reply markup is attached to the last part only.
func (s *Sender) SendLongMessage(ctx context.Context, chatID int64, text string, markup models.ReplyMarkup) error {
	parts := SplitMessage(text, config.MaxTelegramMessageLen)

	for i, part := range parts {
		params := &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      part,
			ParseMode: models.ParseModeHTML,
		}
		if i == len(parts)-1 && markup != nil {
			params.ReplyMarkup = markup
		}

		_, err := s.api.SendMessage(ctx, params)
		if err != nil {
			// Fallback to plain text
			slog.Warn("html send failed, falling back to plain text", "error", err, "chat_id", chatID)
			params.ParseMode = ""
			params.Text = PlainText(part)
			if _, err = s.api.SendMessage(ctx, params); err != nil {
				return fmt.Errorf("send message: %w", err)
			}
		}
	}

	return nil
}

// EditMessage replaces the text and inline keyboard of a message.
func (s *Sender) EditMessage(ctx context.Context, chatID int64, messageID int, text string, markup *models.InlineKeyboardMarkup) error {
	text = Truncate(text, config.MaxTelegramMessageLen)

	params := &bot.EditMessageTextParams{
		ChatID:    chatID,
		MessageID: messageID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	}
	if markup != nil {
		params.ReplyMarkup = markup
	}
	_, err := s.api.EditMessageText(ctx, params)
	if err != nil {
		// Fallback to plain text
		params.ParseMode = ""
		params.Text = PlainText(text)
		_, err = s.api.EditMessageText(ctx, params)
	}
	if err != nil {
		return fmt.Errorf("edit message: %w", err)
	}
	return nil
}

// ClearButtons removes the inline keyboard of a message.
func (s *Sender) ClearButtons(ctx context.Context, chatID int64, messageID int) error {
	_, err := s.api.EditMessageReplyMarkup(ctx, &bot.EditMessageReplyMarkupParams{
		ChatID:      chatID,
		MessageID:   messageID,
		ReplyMarkup: &models.InlineKeyboardMarkup{InlineKeyboard: [][]models.InlineKeyboardButton{}},
	})
	if err != nil {
		return fmt.Errorf("clear buttons: %w", err)
	}
	return nil
}

// SendDocument uploads data as a file named filename.
func (s *Sender) SendDocument(ctx context.Context, chatID int64, filename string, data []byte, caption string) error {
	_, err := s.api.SendDocument(ctx, &bot.SendDocumentParams{
		ChatID:    chatID,
		Document:  &models.InputFileUpload{Filename: filename, Data: bytes.NewReader(data)},
		Caption:   caption,
		ParseMode: models.ParseModeHTML,
	})
	if err != nil {
		return fmt.Errorf("send document: %w", err)
	}
	return nil
}

// AnswerCallback acknowledges a button press, optionally with a toast.
func (s *Sender) AnswerCallback(ctx context.Context, callbackID, text string) {
	_, err := s.api.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: callbackID,
		Text:            text,
	})
	if err != nil {
		slog.Debug("answer callback failed", "error", err)
	}
}
