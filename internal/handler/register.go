package handler

import (
	"github.com/go-telegram/bot"
	"github.com/set-night/carlog/internal/telegram"
)

// Register registers all command and callback handlers on the bot instance.
// Free text is handled by HandleText, installed as the bot's default
// handler in main.
func (h *Handler) Register() {
	// Commands
	h.command("/start", h.handleStart)
	h.command("/help", h.handleHelp)
	h.command("/vehicles", h.handleVehicles)
	h.command("/add_vehicle", h.handleAddVehicle)
	h.command("/update_km", h.handleUpdateKm)
	h.command("/add_maintenance", h.handleAddMaintenance)
	h.command("/history", h.handleHistory)
	h.command("/set_time_reminder", h.handleSetTimeReminder)
	h.command("/set_km_reminder", h.handleSetKmReminder)
	h.command("/reminders", h.handleReminders)
	h.command("/export", h.handleExport)
	h.command("/cancel", h.handleCancel)

	// Main menu buttons
	h.menu(telegram.MenuVehicles, h.handleVehicles)
	h.menu(telegram.MenuMaintenance, h.handleMaintenanceMenu)
	h.menu(telegram.MenuReminders, h.handleReminders)
	h.menu(telegram.MenuExport, h.handleExport)
	h.menu(telegram.MenuHelp, h.handleHelp)

	// Every inline button goes through one decoder.
	h.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "", bot.MatchTypePrefix, withTimeout(h.HandleCallback))
}

func (h *Handler) command(name string, fn bot.HandlerFunc) {
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, name, bot.MatchTypePrefix, withTimeout(fn))
}

func (h *Handler) menu(label string, fn bot.HandlerFunc) {
	h.bot.RegisterHandler(bot.HandlerTypeMessageText, label, bot.MatchTypeExact, withTimeout(fn))
}

// DefaultHandler is installed with bot.WithDefaultHandler.
func (h *Handler) DefaultHandler() bot.HandlerFunc {
	return withTimeout(h.HandleText)
}
