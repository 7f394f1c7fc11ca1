package handler

import (
	"context"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/set-night/carlog/internal/telegram"
)

const welcomeText = "👋 <b>Welcome to CarLog!</b>\n\n" +
	"I keep track of your vehicles, their maintenance and the reminders you need.\n\n" +
	helpText

const helpText = "📋 <b>Commands:</b>\n" +
	"/vehicles — Your vehicles\n" +
	"/add_vehicle — Add a vehicle\n" +
	"/update_km — Update the odometer\n" +
	"/add_maintenance — Log a maintenance\n" +
	"/history — Maintenance history\n" +
	"/set_time_reminder — Reminder on a date\n" +
	"/set_km_reminder — Reminder at a mileage\n" +
	"/reminders — Active reminders\n" +
	"/export — Download all your data\n" +
	"/cancel — Stop the current operation\n\n" +
	"Send <code>-</code> to skip an optional field."

const maintenanceMenuText = "🔧 <b>Maintenance</b>\n\n" +
	"/add_maintenance — Log a maintenance\n" +
	"/history — Maintenance history"

func (h *Handler) handleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	h.send(ctx, update.Message.Chat.ID, welcomeText, telegram.MainMenu())
}

func (h *Handler) handleHelp(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	h.send(ctx, update.Message.Chat.ID, helpText, telegram.MainMenu())
}

func (h *Handler) handleMaintenanceMenu(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	h.send(ctx, update.Message.Chat.ID, maintenanceMenuText, nil)
}
