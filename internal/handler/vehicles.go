package handler

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/carlog/internal/config"
	"github.com/set-night/carlog/internal/conversation"
	"github.com/set-night/carlog/internal/domain"
	"github.com/set-night/carlog/internal/telegram"
)

const (
	noVehiclesText      = "You have no vehicles yet. Add one with /add_vehicle."
	vehicleDeletedText  = "🗑 Vehicle deleted together with its maintenance and reminders."
	chooseHistoryText   = "📜 Whose history?"
	emptyHistoryText    = "No maintenance logged yet for <b>%s</b>. Add one with /add_maintenance."
	vehicleListHeader   = "🚗 <b>Your vehicles</b>\n\nTap one for details."
	historyHeaderFormat = "📜 <b>%s</b> · last %d records\n\n"
)

func (h *Handler) handleVehicles(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID
	user := h.user(ctx, chatID)
	if user == nil {
		return
	}

	vehicles, err := h.store.ListVehicles(ctx, user.ID)
	if err != nil {
		h.fail(ctx, chatID, err, "list vehicles")
		return
	}
	if len(vehicles) == 0 {
		h.send(ctx, chatID, noVehiclesText, nil)
		return
	}
	h.send(ctx, chatID, vehicleListHeader, vehicleButtons(vehicles, domain.ActionVehicle))
}

func (h *Handler) handleHistory(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID
	user := h.user(ctx, chatID)
	if user == nil {
		return
	}

	vehicles, err := h.store.ListVehicles(ctx, user.ID)
	if err != nil {
		h.fail(ctx, chatID, err, "list vehicles")
		return
	}
	switch len(vehicles) {
	case 0:
		h.send(ctx, chatID, noVehiclesText, nil)
	case 1:
		h.showHistory(ctx, chatID, user.ID, vehicles[0].ID)
	default:
		h.send(ctx, chatID, chooseHistoryText, vehicleButtons(vehicles, domain.ActionHistoryVehicle))
	}
}

// showVehicle edits the pressed message into the vehicle card.
func (h *Handler) showVehicle(ctx context.Context, cb callback, userID, vehicleID int64) {
	v, err := h.store.GetVehicle(ctx, userID, vehicleID)
	if err != nil {
		h.fail(ctx, cb.chatID, err, "get vehicle")
		return
	}
	h.edit(ctx, cb, VehicleCard(v), telegram.InlineKeyboard(
		telegram.ButtonRow(
			telegram.ActionButton("📟 Update km", domain.Action{Kind: domain.ActionVehicleKm, ID: v.ID}),
			telegram.ActionButton("📜 History", domain.Action{Kind: domain.ActionVehicleHistory, ID: v.ID}),
		),
		telegram.ButtonRow(
			telegram.ActionButton("🗑 Delete", domain.Action{Kind: domain.ActionVehicleDelete, ID: v.ID}),
		),
	))
}

func (h *Handler) updateKmFromCard(ctx context.Context, cb callback, vehicleID int64) {
	h.start(ctx, cb.chatID, conversation.FlowUpdateOdometer, conversation.WithVehicle(vehicleID))
}

func (h *Handler) deleteVehicle(ctx context.Context, cb callback, userID, vehicleID int64) {
	if err := h.store.DeleteVehicle(ctx, userID, vehicleID); err != nil {
		h.fail(ctx, cb.chatID, err, "delete vehicle")
		return
	}
	h.edit(ctx, cb, vehicleDeletedText, nil)
}

func (h *Handler) showHistory(ctx context.Context, chatID, userID, vehicleID int64) {
	v, err := h.store.GetVehicle(ctx, userID, vehicleID)
	if err != nil {
		h.fail(ctx, chatID, err, "get vehicle")
		return
	}
	records, err := h.store.History(ctx, userID, vehicleID)
	if err != nil {
		h.fail(ctx, chatID, err, "maintenance history")
		return
	}
	h.send(ctx, chatID, HistoryText(v, records), nil)
}

// VehicleCard renders every known field of v.
func VehicleCard(v *domain.Vehicle) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🚗 <b>%s</b>\n\n", html.EscapeString(v.DisplayName()))
	field := func(label string, value *string) {
		if value != nil && *value != "" {
			fmt.Fprintf(&sb, "%s: %s\n", label, html.EscapeString(*value))
		}
	}
	field("Plate", v.Plate)
	field("Brand", v.Brand)
	field("Model", v.Model)
	if v.Year != nil {
		fmt.Fprintf(&sb, "Year: %d\n", *v.Year)
	}
	fmt.Fprintf(&sb, "Odometer: %d km\n", v.KmCurrent)
	field("Notes", v.Notes)
	return strings.TrimRight(sb.String(), "\n")
}

// HistoryText lists records newest first, one per line.
func HistoryText(v *domain.Vehicle, records []domain.MaintenanceRecord) string {
	name := html.EscapeString(v.DisplayName())
	if len(records) == 0 {
		return fmt.Sprintf(emptyHistoryText, name)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, historyHeaderFormat, name, config.HistoryLimit)
	for _, m := range records {
		fmt.Fprintf(&sb, "• %s <b>%s</b>", m.Date, html.EscapeString(m.Type))
		if m.Km != nil {
			fmt.Fprintf(&sb, " · %d km", *m.Km)
		}
		if m.Cost != nil {
			fmt.Fprintf(&sb, " · %s", m.Cost.StringFixed(2))
		}
		if m.Notes != nil && *m.Notes != "" {
			fmt.Fprintf(&sb, " · <i>%s</i>", html.EscapeString(*m.Notes))
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func vehicleButtons(vehicles []domain.Vehicle, kind domain.ActionKind) *models.InlineKeyboardMarkup {
	rows := make([][]models.InlineKeyboardButton, 0, len(vehicles))
	for i := range vehicles {
		v := &vehicles[i]
		label := fmt.Sprintf("%s · %d km", v.DisplayName(), v.KmCurrent)
		rows = append(rows, telegram.ButtonRow(telegram.ActionButton(label, domain.Action{Kind: kind, ID: v.ID})))
	}
	return telegram.InlineKeyboard(rows...)
}
