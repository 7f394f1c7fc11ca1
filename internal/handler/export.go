package handler

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
	"github.com/set-night/carlog/internal/config"
	"github.com/set-night/carlog/internal/export"
)

const exportCaption = "📦 Your data: one CSV per table plus an Excel workbook."

func (h *Handler) handleExport(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID
	user := h.user(ctx, chatID)
	if user == nil {
		return
	}

	snap, err := h.store.Snapshot(ctx, user.ID)
	if err != nil {
		h.fail(ctx, chatID, err, "export snapshot")
		return
	}
	if len(snap.Vehicles) == 0 {
		h.send(ctx, chatID, noVehiclesText, nil)
		return
	}

	data, err := export.Archive(snap)
	if err != nil {
		h.fail(ctx, chatID, err, "export archive")
		return
	}
	if err := h.sender.SendDocument(ctx, chatID, h.exportFileName(), data, exportCaption); err != nil {
		h.fail(ctx, chatID, err, "send export")
	}
}

func (h *Handler) exportFileName() string {
	return fmt.Sprintf("%s-%s-%s.zip",
		config.ExportFilePrefix,
		h.now().In(h.loc()).Format("20060102"),
		uuid.NewString()[:8],
	)
}
