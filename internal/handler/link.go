package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	neturl "net/url"
	"path"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/studykit/chemtutor/internal/config"
	"github.com/studykit/chemtutor/internal/domain"
	"github.com/studykit/chemtutor/internal/ingest"
	"github.com/studykit/chemtutor/internal/middleware"
)

// handleLink ingests a web page of course notes as the session document:
// /link <url> starts a fresh session bound to the extracted text.
func (h *Handler) handleLink(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Chat.Type != "private" {
		return
	}
	user := middleware.GetUser(ctx)
	if user == nil {
		return
	}
	chatID := update.Message.Chat.ID

	url := strings.TrimSpace(strings.TrimPrefix(update.Message.Text, "/link"))
	if url == "" {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "Usage: /link <url> — loads a page of course notes into a new session.",
		})
		return
	}
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "https://" + url
	}

	reqCtx, cancel := context.WithTimeout(ctx, config.IngestTimeout)
	defer cancel()

	client := &http.Client{Timeout: config.IngestTimeout}

	var doc *domain.TransferFile
	var err error
	if name, ok := directFileName(url); ok {
		doc, err = ingest.FetchDocument(reqCtx, client, url, name)
	} else {
		doc, err = ingest.FromURL(reqCtx, client, url)
	}
	if err != nil {
		slog.Error("ingest url", "error", err, "url", url)
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   "❌ Could not read that page. Check the link and try again.",
		})
		return
	}

	if _, err := h.sessionService.StartWithDocument(ctx, user, doc); err != nil {
		slog.Error("start session with url document", "error", err)
		h.sendSessionError(ctx, b, chatID)
		return
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      fmt.Sprintf("📄 *%s* loaded. Ask me anything about it!", doc.Name),
		ParseMode: models.ParseModeMarkdown,
	})
}

// directFileName reports whether the url points at a document file rather
// than a page, returning the name to ingest it under.
func directFileName(rawURL string) (string, bool) {
	u, err := neturl.Parse(rawURL)
	if err != nil {
		return "", false
	}
	base := path.Base(u.Path)
	switch strings.ToLower(path.Ext(base)) {
	case ".pdf", ".md", ".txt":
		return base, true
	}
	return "", false
}
