package main

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	chemtutor "github.com/studykit/chemtutor"
	"github.com/studykit/chemtutor/internal/config"
	"github.com/studykit/chemtutor/internal/handler"
	"github.com/studykit/chemtutor/internal/middleware"
	"github.com/studykit/chemtutor/internal/repository"
	"github.com/studykit/chemtutor/internal/service"
	"github.com/studykit/chemtutor/internal/telegram"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

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
	migrationsFS, err := fs.Sub(chemtutor.MigrationsFS, "migrations")
	if err != nil {
		slog.Error("failed to load embedded migrations", "error", err)
		os.Exit(1)
	}
	if err := repository.RunMigrations(cfg.DatabaseURL, migrationsFS); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Repositories
	users := repository.NewUsers(pool)
	sessions := repository.NewSessions(pool)
	usage := repository.NewUsage(pool)

	// Services
	userService := service.NewUserService(users)
	sessionService := service.NewSessionService(sessions, users)
	usageService := service.NewUsageService(usage)
	gemini := service.NewGeminiService(cfg)
	inflight := service.NewInflight()

	// Handler pointer for use in the default handler closure
	var h *handler.Handler

	opts := []bot.Option{
		bot.WithMiddlewares(
			middleware.Recover(),
			middleware.Logging(),
			middleware.RateLimit(),
			middleware.UserLoader(userService, cfg),
		),
		bot.WithDefaultHandler(func(ctx context.Context, b *bot.Bot, update *models.Update) {
			if h == nil {
				return
			}
			// Photo and document uploads carry no text, so they land here
			// instead of the registered text handlers.
			if update.Message != nil {
				h.HandleAssistantMessage(ctx, b, update)
			}
		}),
	}

	b, err := bot.New(cfg.BotToken, opts...)
	if err != nil {
		slog.Error("failed to create bot", "error", err)
		os.Exit(1)
	}

	if cfg.DropPendingUpdates {
		b.DeleteWebhook(ctx, &bot.DeleteWebhookParams{DropPendingUpdates: true})
	}

	me, err := b.GetMe(ctx)
	if err != nil {
		slog.Error("failed to get bot info", "error", err)
		os.Exit(1)
	}

	chLogger := telegram.NewChannelLogger(b, cfg)

	h = handler.New(handler.Deps{
		Bot:            b,
		Cfg:            cfg,
		UserService:    userService,
		SessionService: sessionService,
		UsageService:   usageService,
		Gemini:         gemini,
		Inflight:       inflight,
		ChLogger:       chLogger,
	})
	h.Register()

	// Plain text in private chats goes to the active assistant mode.
	b.RegisterHandler(bot.HandlerTypeMessageText, "", bot.MatchTypePrefix, func(ctx context.Context, b *bot.Bot, update *models.Update) {
		if update.Message == nil {
			return
		}
		if len(update.Message.Text) > 0 && update.Message.Text[0] == '/' {
			return
		}
		h.HandleAssistantMessage(ctx, b, update)
	})

	slog.Info("starting bot", "username", me.Username, "id", me.ID)
	b.Start(ctx)

	slog.Info("bot stopped gracefully")
}
