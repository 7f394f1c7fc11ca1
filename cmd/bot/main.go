package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	carlog "github.com/set-night/carlog"
	"github.com/set-night/carlog/internal/clock"
	"github.com/set-night/carlog/internal/config"
	"github.com/set-night/carlog/internal/conversation"
	"github.com/set-night/carlog/internal/domain"
	"github.com/set-night/carlog/internal/handler"
	"github.com/set-night/carlog/internal/middleware"
	"github.com/set-night/carlog/internal/notify"
	"github.com/set-night/carlog/internal/repository"
	"github.com/set-night/carlog/internal/scheduler"
	"github.com/set-night/carlog/internal/service"
	"github.com/set-night/carlog/internal/telegram"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	// Setup context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to database
	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Run migrations
	migrationsFS, err := fs.Sub(carlog.MigrationsFS, "migrations")
	if err != nil {
		slog.Error("failed to load embedded migrations", "error", err)
		os.Exit(1)
	}
	if err := repository.RunMigrations(cfg.DatabaseURL, migrationsFS); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	queries := repository.New(pool)

	// Initialize services
	userService := service.NewUserService(pool, queries)
	vehicleService := service.NewVehicleService(pool, queries)
	maintenanceService := service.NewMaintenanceService(pool, queries)
	reminderService := service.NewReminderService(pool, queries)
	exportService := service.NewExportService(pool, queries)
	sessionService := service.NewSessionService(pool, queries)
	records := &service.Records{
		Vehicles:    vehicleService,
		Maintenance: maintenanceService,
		Reminders:   reminderService,
		Export:      exportService,
	}

	clk := clock.Real()
	engine := conversation.NewEngine(records, sessionService, clk, cfg.Location())
	restored, err := engine.Restore(ctx)
	if err != nil {
		slog.Error("failed to restore conversations", "error", err)
		os.Exit(1)
	}
	slog.Info("conversations restored", "count", restored)

	// Handler and log chat are built after the bot; the closures below
	// only run once updates flow.
	var (
		h        *handler.Handler
		tgLogger *telegram.Logger
	)

	opts := []bot.Option{
		bot.WithMiddlewares(
			middleware.Recover(func(chatID int64, p any) {
				tgLogger.LogError(fmt.Errorf("panic: %v", p), fmt.Sprintf("update from chat %d", chatID))
			}),
			middleware.Logging(),
			middleware.RateLimit(middleware.NewLimiter(cfg.RateLimitPerMinute)),
			middleware.UserLoader(userService, func(u *domain.User) {
				tgLogger.LogRegistration(u)
			}),
		),
		bot.WithDefaultHandler(func(ctx context.Context, b *bot.Bot, update *models.Update) {
			if h == nil {
				return
			}
			h.DefaultHandler()(ctx, b, update)
		}),
	}

	b, err := bot.New(cfg.BotToken, opts...)
	if err != nil {
		slog.Error("failed to create bot", "error", err)
		os.Exit(1)
	}

	// Get bot info
	me, err := b.GetMe(ctx)
	if err != nil {
		slog.Error("failed to get bot info", "error", err)
		os.Exit(1)
	}
	slog.Info("bot info retrieved", "id", me.ID, "username", me.Username)

	if cfg.DropPendingUpdates {
		if _, err := b.DeleteWebhook(ctx, &bot.DeleteWebhookParams{DropPendingUpdates: true}); err != nil {
			slog.Warn("failed to drop pending updates", "error", err)
		}
	}

	sender := telegram.NewSender(b)
	tgLogger = telegram.NewLogger(sender, cfg.LogTelegramChatID)

	// Reminder scheduler
	sched := scheduler.New(reminderService, notify.NewDispatcher(sender, cfg.Location()), clk, scheduler.Config{
		Location:   cfg.Location(),
		SweepHour:  cfg.SweepHour,
		RetryDelay: cfg.DeliveryRetryDelay,
		OnFire:     tgLogger.LogReminderFired,
	})
	vehicleService.SetScheduler(sched, cfg.KmCheckOnUpdate)
	reminderService.SetScheduler(sched)

	// Initialize handler
	h = handler.New(handler.Deps{
		Bot:      b,
		Cfg:      cfg,
		Store:    records,
		Engine:   engine,
		Sender:   sender,
		TgLogger: tgLogger,
	})

	// Register all handlers
	h.Register()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sched.Run(gctx)
	})
	g.Go(func() error {
		slog.Info("starting bot", "username", me.Username, "id", me.ID)
		b.Start(gctx)
		return nil
	})

	if err := g.Wait(); err != nil {
		slog.Error("shutdown with error", "error", err)
		os.Exit(1)
	}

	// Graceful shutdown
	slog.Info("bot stopped gracefully")
}
