package handler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/studykit/chemtutor/internal/middleware"
)

func (h *Handler) handleUsage(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Chat.Type != "private" {
		return
	}
	user := middleware.GetUser(ctx)
	if user == nil {
		return
	}

	requests, tokens, cost, err := h.usageService.TotalsByUser(ctx, user.ID)
	if err != nil {
		slog.Error("usage totals", "error", err)
		return
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text: fmt.Sprintf("📊 *Your usage*\n\nRequests: %d\nTokens: %d\nEstimated cost: $%.4f",
			requests, tokens, costFloat(cost)),
		ParseMode: models.ParseModeMarkdown,
	})
}

func (h *Handler) handleStats(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Chat.Type != "private" {
		return
	}
	user := middleware.GetUser(ctx)
	if user == nil || !user.IsAdmin {
		return
	}

	users, err := h.userService.Count(ctx)
	if err != nil {
		slog.Error("count users", "error", err)
		return
	}
	requests, cost, err := h.usageService.Totals(ctx)
	if err != nil {
		slog.Error("global usage totals", "error", err)
		return
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text: fmt.Sprintf("📈 *Stats*\n\nUsers: %d\nRequests: %d\nTotal cost: $%.4f",
			users, requests, costFloat(cost)),
		ParseMode: models.ParseModeMarkdown,
	})
}
