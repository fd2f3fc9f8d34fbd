package handler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/shopspring/decimal"
	"github.com/studykit/chemtutor/internal/config"
	"github.com/studykit/chemtutor/internal/domain"
	"github.com/studykit/chemtutor/internal/service"
	tg "github.com/studykit/chemtutor/internal/telegram"
)

// handleSolveMessage is the stateless one-shot solver flow. No session, no
// transcript: each submission stands alone and only usage is recorded.
func (h *Handler) handleSolveMessage(ctx context.Context, b *bot.Bot, update *models.Update, user *domain.User) {
	msg := update.Message
	chatID := msg.Chat.ID

	if err := h.inflight.Begin(chatID); err != nil {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "⏳ Please wait for the previous solution to finish.",
		})
		return
	}
	defer h.inflight.End(chatID)

	if remaining, err := checkCooldown(user, config.Cooldown); err != nil {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   fmt.Sprintf("⏳ Please wait %d seconds.", int(remaining.Seconds())+1),
		})
		return
	}
	h.userService.UpdateLastInteraction(ctx, user.ID)

	question := messageText(msg)

	file, err := h.ingestAttachment(ctx, b, msg)
	if err != nil {
		slog.Error("ingest problem attachment", "error", err, "chat_id", chatID)
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "❌ Could not read that file. Please try uploading it again.",
		})
		return
	}

	if strings.TrimSpace(question) == "" && file == nil {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "💬 Send the problem text or a photo of the problem.",
		})
		return
	}

	stopTyping := tg.StartTyping(ctx, b, chatID)
	defer stopTyping()

	statusMsg, _ := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   "⏳ Deriving the solution...",
	})

	reqCtx, cancel := context.WithTimeout(ctx, config.RequestTimeout)
	defer cancel()

	solution, usage, gwErr := h.gemini.Solve(reqCtx, user.SelectedModel, file, question)
	if gwErr != nil {
		slog.Error("gemini solve", "error", gwErr, "chat_id", chatID)
		h.chLogger.LogError(gwErr, "solve")
		if statusMsg != nil {
			tg.EditLongMessage(ctx, b, chatID, statusMsg.ID, service.UserMessage(gwErr))
		}
		return
	}

	cost := h.usageService.Record(ctx, user.ID, user.SelectedModel, usage)
	h.chLogger.LogUsage(user.TelegramID, user.SelectedModel, usage.PromptTokens, usage.CompletionTokens, costFloat(cost))

	if statusMsg != nil {
		b.DeleteMessage(ctx, &bot.DeleteMessageParams{
			ChatID:    chatID,
			MessageID: statusMsg.ID,
		})
	}

	tg.SendLongMessage(ctx, b, chatID, solution, nil)

	if user.ShowCost {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text: fmt.Sprintf("💰 Cost: $%.6f | Tokens: %d→%d",
				costFloat(cost), usage.PromptTokens, usage.CompletionTokens),
		})
	}
}

func costFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
