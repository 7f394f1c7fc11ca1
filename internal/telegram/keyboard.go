package telegram

import (
	"github.com/go-telegram/bot/models"
	"github.com/set-night/carlog/internal/conversation"
	"github.com/set-night/carlog/internal/domain"
)

// Main menu labels. A message with exactly one of these texts is
// treated like the matching command.
const (
	MenuVehicles    = "🚗 Vehicles"
	MenuMaintenance = "🔧 Maintenance"
	MenuReminders   = "⏰ Reminders"
	MenuExport      = "📦 Export"
	MenuHelp        = "❓ Help"
)

// InlineButton creates a single inline keyboard button.
func InlineButton(text, callbackData string) models.InlineKeyboardButton {
	return models.InlineKeyboardButton{
		Text:         text,
		CallbackData: callbackData,
	}
}

// ActionButton creates a button whose callback data encodes a.
func ActionButton(text string, a domain.Action) models.InlineKeyboardButton {
	return InlineButton(text, a.Token())
}

// InlineKeyboard creates an inline keyboard from rows of buttons.
func InlineKeyboard(rows ...[]models.InlineKeyboardButton) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{
		InlineKeyboard: rows,
	}
}

// ButtonRow creates a row of inline buttons.
func ButtonRow(buttons ...models.InlineKeyboardButton) []models.InlineKeyboardButton {
	return buttons
}

// ChoicesKeyboard lays out conversation choices one per row. It returns
// nil when there is nothing to show.
func ChoicesKeyboard(choices []conversation.Choice) *models.InlineKeyboardMarkup {
	if len(choices) == 0 {
		return nil
	}
	rows := make([][]models.InlineKeyboardButton, 0, len(choices))
	for _, c := range choices {
		rows = append(rows, ButtonRow(InlineButton(c.Label, c.Token)))
	}
	return InlineKeyboard(rows...)
}

// MainMenu is the persistent reply keyboard shown under the input box.
func MainMenu() *models.ReplyKeyboardMarkup {
	return &models.ReplyKeyboardMarkup{
		Keyboard: [][]models.KeyboardButton{
			{{Text: MenuVehicles}, {Text: MenuMaintenance}},
			{{Text: MenuReminders}, {Text: MenuExport}},
			{{Text: MenuHelp}},
		},
		ResizeKeyboard: true,
		IsPersistent:   true,
	}
}
