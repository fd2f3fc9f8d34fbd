package handler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/studykit/chemtutor/internal/config"
	"github.com/studykit/chemtutor/internal/domain"
	"github.com/studykit/chemtutor/internal/middleware"
	"github.com/studykit/chemtutor/internal/service"
	tg "github.com/studykit/chemtutor/internal/telegram"
)

// HandleAssistantMessage routes a non-command private message to the flow
// selected by the user's mode.
func (h *Handler) HandleAssistantMessage(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Chat.Type != "private" {
		return
	}
	if strings.HasPrefix(update.Message.Text, "/") {
		return
	}

	user := middleware.GetUser(ctx)
	if user == nil {
		return
	}

	if user.Mode == domain.ModeSolve {
		h.handleSolveMessage(ctx, b, update, user)
		return
	}
	h.handleChatMessage(ctx, b, update, user)
}

// handleChatMessage is the conversational summarizer flow: one session per
// user, append-only transcript, document on the first turn.
func (h *Handler) handleChatMessage(ctx context.Context, b *bot.Bot, update *models.Update, user *domain.User) {
	msg := update.Message
	chatID := msg.Chat.ID

	// One in-flight request per chat.
	if err := h.inflight.Begin(chatID); err != nil {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "⏳ Please wait for the reply to your previous request.",
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

	text := messageText(msg)

	// An attachment starts a fresh session bound to the document.
	doc, err := h.ingestAttachment(ctx, b, msg)
	if err != nil {
		slog.Error("ingest attachment", "error", err, "chat_id", chatID)
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "❌ Could not read that file. Please try uploading it again.",
		})
		return
	}

	var session *domain.StudySession
	if doc != nil {
		session, err = h.sessionService.StartWithDocument(ctx, user, doc)
		if err != nil {
			slog.Error("start session with document", "error", err)
			h.sendSessionError(ctx, b, chatID)
			return
		}
		if text == "" {
			// No caption: hold the document for the first turn.
			b.SendMessage(ctx, &bot.SendMessageParams{
				ChatID:    chatID,
				Text:      fmt.Sprintf("📄 *%s* attached. Ask me anything about it!", doc.Name),
				ParseMode: models.ParseModeMarkdown,
			})
			return
		}
	} else {
		session, err = h.sessionService.FindOrCreate(ctx, user)
		if err != nil {
			slog.Error("find or create session", "error", err)
			h.sendSessionError(ctx, b, chatID)
			return
		}
	}

	msgCount, err := h.sessionService.CountMessages(ctx, session.ID)
	if err != nil {
		slog.Error("count messages", "error", err)
		return
	}

	if limitErr := checkTranscriptBudget(msgCount); limitErr != nil {
		session, err = h.sessionService.Reset(ctx, user)
		if err != nil {
			slog.Error("reset session on limit", "error", err)
			return
		}
		msgCount = 0
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   fmt.Sprintf("📝 Message limit reached (%d). Session reset.", config.MaxMessages),
		})
	}

	pending := session.PendingDocument()

	if err := validateSubmission(text, pending != nil, msgCount); err != nil {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "💬 Send a question, or upload study material to begin.",
		})
		return
	}

	history, err := h.sessionService.Messages(ctx, session.ID)
	if err != nil {
		slog.Error("get session messages", "error", err)
		return
	}

	stopTyping := tg.StartTyping(ctx, b, chatID)
	defer stopTyping()

	statusMsg, _ := b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   "⏳ Thinking...",
	})

	reqCtx, cancel := context.WithTimeout(ctx, config.RequestTimeout)
	defer cancel()

	reply, usage, gwErr := h.gemini.Converse(reqCtx, session, history, text, pending)

	// The transcript records every attempt: the user turn always lands, and
	// the document counts as consumed once the first turn has gone out.
	h.sessionService.AddMessage(ctx, session.ID, domain.RoleUser, text, pending != nil)
	if pending != nil {
		h.sessionService.MarkDocConsumed(ctx, session)
	}

	if gwErr != nil {
		slog.Error("gemini converse", "error", gwErr, "session_id", session.ID)
		h.chLogger.LogError(gwErr, "converse")
		errText := service.UserMessage(gwErr)
		h.sessionService.AddMessage(ctx, session.ID, domain.RoleAssistant, errText, false)
		if statusMsg != nil {
			tg.EditLongMessage(ctx, b, chatID, statusMsg.ID, errText)
		}
		return
	}

	h.sessionService.AddMessage(ctx, session.ID, domain.RoleAssistant, reply, false)
	cost := h.usageService.Record(ctx, user.ID, session.Model, usage)
	h.chLogger.LogUsage(user.TelegramID, session.Model, usage.PromptTokens, usage.CompletionTokens, costFloat(cost))

	if statusMsg != nil {
		b.DeleteMessage(ctx, &bot.DeleteMessageParams{
			ChatID:    chatID,
			MessageID: statusMsg.ID,
		})
	}

	tg.SendLongMessage(ctx, b, chatID, reply, nil)

	if user.ShowCost {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text: fmt.Sprintf("💰 Cost: $%.6f | Tokens: %d→%d",
				costFloat(cost), usage.PromptTokens, usage.CompletionTokens),
		})
	}
}

func (h *Handler) sendSessionError(ctx context.Context, b *bot.Bot, chatID int64) {
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   "❌ Could not prepare a session. Please try again.",
	})
}

// validateSubmission rejects an empty first submission: nothing to say,
// nothing attached, nothing said before.
func validateSubmission(text string, hasPendingDoc bool, priorMessages int64) error {
	if strings.TrimSpace(text) == "" && !hasPendingDoc && priorMessages == 0 {
		return domain.ErrEmptySubmission
	}
	return nil
}

// checkCooldown reports how long the user must still wait; a non-zero
// remainder comes with domain.ErrCooldown.
func checkCooldown(user *domain.User, cooldown time.Duration) (time.Duration, error) {
	elapsed := time.Since(user.LastInteraction)
	if elapsed >= cooldown {
		return 0, nil
	}
	return cooldown - elapsed, domain.ErrCooldown
}

// checkTranscriptBudget rejects sessions that hit the per-session message
// cap; the caller resets to a fresh session.
func checkTranscriptBudget(count int64) error {
	if count >= config.MaxMessages {
		return domain.ErrMessageLimit
	}
	return nil
}

func messageText(msg *models.Message) string {
	if msg.Caption != "" {
		return msg.Caption
	}
	return msg.Text
}
