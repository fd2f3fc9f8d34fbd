package handler

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/studykit/chemtutor/internal/middleware"
)

func (h *Handler) handleStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Chat.Type != "private" {
		return
	}

	user := middleware.GetUser(ctx)
	if user == nil {
		return
	}

	welcomeText := fmt.Sprintf(
		"👋 Hi, *%s*!\n\n"+
			"I am your chemical engineering tutor. Upload a PDF or an image of "+
			"your course material and I will help you study it, or switch to "+
			"solver mode for a worked problem solution.\n\n"+
			"📋 *Commands:*\n"+
			"/mode — Switch between tutor chat and problem solver\n"+
			"/link <url> — Load a page of course notes into the session\n"+
			"/sessions — Manage study sessions\n"+
			"/settings — Temperature and cost display\n"+
			"/usage — Your usage totals\n"+
			"/end — Reset the current session\n\n"+
			"Just send a message or a file to begin!",
		user.FirstName,
	)

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    update.Message.Chat.ID,
		Text:      welcomeText,
		ParseMode: models.ParseModeMarkdown,
	})
}
