package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/studykit/chemtutor/internal/config"
	"github.com/studykit/chemtutor/internal/domain"
	"github.com/studykit/chemtutor/internal/middleware"
	tg "github.com/studykit/chemtutor/internal/telegram"
)

func (h *Handler) handleEnd(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Chat.Type != "private" {
		return
	}

	user := middleware.GetUser(ctx)
	if user == nil {
		return
	}

	chatID := update.Message.Chat.ID
	if _, err := h.sessionService.Reset(ctx, user); err != nil {
		slog.Error("reset session", "error", err)
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "❌ Could not reset the session.",
		})
		return
	}
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   "🔄 Session reset. A fresh conversation begins.",
	})
}

func (h *Handler) handleSessions(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Chat.Type != "private" {
		return
	}

	user := middleware.GetUser(ctx)
	if user == nil {
		return
	}

	h.sendSessionsPage(ctx, b, update.Message.Chat.ID, user, 0, false, 0)
}

func (h *Handler) sendSessionsPage(ctx context.Context, b *bot.Bot, chatID int64, user *domain.User, page int, edit bool, messageID int) {
	total, err := h.sessionService.CountByUser(ctx, user.ID)
	if err != nil {
		slog.Error("count sessions", "error", err)
		return
	}

	totalPages := int(math.Ceil(float64(total) / float64(config.SessionsPerPage)))
	if totalPages == 0 {
		totalPages = 1
	}
	if page >= totalPages {
		page = totalPages - 1
	}

	sessions, err := h.sessionService.ListByUser(ctx, user.ID, config.SessionsPerPage, page*config.SessionsPerPage)
	if err != nil {
		slog.Error("list sessions", "error", err)
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📂 *Study sessions* (%d)\n\n", total))

	var rows [][]models.InlineKeyboardButton
	for _, s := range sessions {
		label := fmt.Sprintf("📝 %s", s.CreatedAt.Format("02.01 15:04"))
		if s.DocName != "" {
			label = sessionLabel(s.DocName)
		} else if firstMsg, _ := h.sessionService.FirstMessage(ctx, s.ID); firstMsg != nil && firstMsg.Body != "" {
			label = sessionLabel(firstMsg.Body)
		}
		if user.ActiveSessionID != nil && *user.ActiveSessionID == s.ID {
			label += " ✅"
		}
		rows = append(rows, tg.ButtonRow(
			tg.InlineButton(label, fmt.Sprintf("sess_switch_%d", s.ID)),
			tg.InlineButton("🗑", fmt.Sprintf("sess_del_%d", s.ID)),
		))
	}

	if totalPages > 1 {
		rows = append(rows, tg.PaginationRow(page, totalPages, "sessions_page"))
	}

	text := sb.String()
	markup := tg.InlineKeyboard(rows...)

	if edit {
		b.EditMessageText(ctx, &bot.EditMessageTextParams{
			ChatID:      chatID,
			MessageID:   messageID,
			Text:        text,
			ParseMode:   models.ParseModeMarkdown,
			ReplyMarkup: markup,
		})
		return
	}
	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ParseMode:   models.ParseModeMarkdown,
		ReplyMarkup: markup,
	})
}

func sessionLabel(s string) string {
	runes := []rune(s)
	if len(runes) > 30 {
		return string(runes[:30]) + "..."
	}
	return s
}

// handleSessionsCallback serves the pagination buttons.
func (h *Handler) handleSessionsCallback(ctx context.Context, b *bot.Bot, update *models.Update) {
	cb := update.CallbackQuery
	if cb == nil || cb.Message.Message == nil {
		return
	}
	b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: cb.ID})

	user := middleware.GetUser(ctx)
	if user == nil {
		return
	}

	page, err := strconv.Atoi(strings.TrimPrefix(cb.Data, "sessions_page_"))
	if err != nil {
		return
	}
	h.sendSessionsPage(ctx, b, cb.Message.Message.Chat.ID, user, page, true, cb.Message.Message.ID)
}

// handleSessionCallback serves switch and delete buttons.
func (h *Handler) handleSessionCallback(ctx context.Context, b *bot.Bot, update *models.Update) {
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
	case strings.HasPrefix(cb.Data, "sess_switch_"):
		sessionID, err := strconv.ParseInt(strings.TrimPrefix(cb.Data, "sess_switch_"), 10, 64)
		if err != nil {
			return
		}
		if err := h.sessionService.SwitchTo(ctx, user.ID, sessionID); err != nil {
			if errors.Is(err, domain.ErrSessionNotFound) {
				b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: "❌ Session not found."})
				return
			}
			slog.Error("switch session", "error", err)
			return
		}
		user.ActiveSessionID = &sessionID
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "✅ Switched. The conversation continues from that session.",
		})

	case strings.HasPrefix(cb.Data, "sess_del_"):
		sessionID, err := strconv.ParseInt(strings.TrimPrefix(cb.Data, "sess_del_"), 10, 64)
		if err != nil {
			return
		}
		if err := h.sessionService.Delete(ctx, user.ID, sessionID); err != nil {
			if errors.Is(err, domain.ErrSessionNotFound) {
				b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: "❌ Session not found."})
				return
			}
			slog.Error("delete session", "error", err)
			return
		}
		if user.ActiveSessionID != nil && *user.ActiveSessionID == sessionID {
			user.ActiveSessionID = nil
		}
		h.sendSessionsPage(ctx, b, chatID, user, 0, true, cb.Message.Message.ID)
	}
}
