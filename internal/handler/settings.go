package handler

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/studykit/chemtutor/internal/config"
	"github.com/studykit/chemtutor/internal/domain"
	"github.com/studykit/chemtutor/internal/middleware"
	tg "github.com/studykit/chemtutor/internal/telegram"
)

func (h *Handler) handleMode(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Chat.Type != "private" {
		return
	}
	user := middleware.GetUser(ctx)
	if user == nil {
		return
	}

	chatLabel, solveLabel := "📚 Tutor chat", "🧮 Problem solver"
	if user.Mode == domain.ModeSolve {
		solveLabel += " ✅"
	} else {
		chatLabel += " ✅"
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text: "Choose how I should handle your messages:\n\n" +
			"📚 *Tutor chat* — upload material, then discuss it turn by turn.\n" +
			"🧮 *Problem solver* — each message is solved on its own, no context kept.",
		ParseMode: models.ParseModeMarkdown,
		ReplyMarkup: tg.InlineKeyboard(
			tg.ButtonRow(tg.InlineButton(chatLabel, "mode_chat")),
			tg.ButtonRow(tg.InlineButton(solveLabel, "mode_solve")),
		),
	})
}

func (h *Handler) handleModeCallback(ctx context.Context, b *bot.Bot, update *models.Update) {
	cb := update.CallbackQuery
	if cb == nil || cb.Message.Message == nil {
		return
	}
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: cb.ID})

	user := middleware.GetUser(ctx)
	if user == nil {
		return
	}

	mode := domain.ModeChat
	confirmation := "📚 Tutor chat enabled. Upload material or keep the conversation going."
	if cb.Data == "mode_solve" {
		mode = domain.ModeSolve
		confirmation = "🧮 Problem solver enabled. Send a problem as text or a photo."
	}

	if err := h.userService.SetMode(ctx, user.ID, mode); err != nil {
		slog.Error("set mode", "error", err)
		return
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: cb.Message.Message.Chat.ID,
		Text:   confirmation,
	})
}

func (h *Handler) handleSettings(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Chat.Type != "private" {
		return
	}
	user := middleware.GetUser(ctx)
	if user == nil {
		return
	}

	var tempRow []models.InlineKeyboardButton
	for _, t := range config.TemperatureOptions {
		label := fmt.Sprintf("%.1f", t)
		if t == user.Temperature {
			label += " ✅"
		}
		tempRow = append(tempRow, tg.InlineButton(label, fmt.Sprintf("set_temp_%.1f", t)))
	}

	costLabel := "💰 Show request cost: off"
	if user.ShowCost {
		costLabel = "💰 Show request cost: on"
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text: fmt.Sprintf("⚙️ *Settings*\n\nModel: `%s`\nTemperature: %.1f\n\n"+
			"Temperature applies to new sessions.",
			user.SelectedModel, user.Temperature),
		ParseMode: models.ParseModeMarkdown,
		ReplyMarkup: tg.InlineKeyboard(
			tempRow,
			tg.ButtonRow(tg.InlineButton(costLabel, "set_cost_toggle")),
		),
	})
}

func (h *Handler) handleSettingsCallback(ctx context.Context, b *bot.Bot, update *models.Update) {
	cb := update.CallbackQuery
	if cb == nil || cb.Message.Message == nil {
		return
	}
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: cb.ID})

	user := middleware.GetUser(ctx)
	if user == nil {
		return
	}
	chatID := cb.Message.Message.Chat.ID

	switch {
	case strings.HasPrefix(cb.Data, "set_temp_"):
		temp, err := strconv.ParseFloat(strings.TrimPrefix(cb.Data, "set_temp_"), 64)
		if err != nil {
			return
		}
		if err := h.userService.SetTemperature(ctx, user.ID, temp); err != nil {
			slog.Error("set temperature", "error", err)
			return
		}
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   fmt.Sprintf("🌡 Temperature set to %.1f for new sessions.", temp),
		})

	case cb.Data == "set_cost_toggle":
		if err := h.userService.SetShowCost(ctx, user.ID, !user.ShowCost); err != nil {
			slog.Error("toggle show cost", "error", err)
			return
		}
		text := "💰 Cost display enabled."
		if user.ShowCost {
			text = "💰 Cost display disabled."
		}
		b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text})
	}
}
