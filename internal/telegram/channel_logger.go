package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/studykit/chemtutor/internal/config"
)

// ChannelLogger mirrors operational events to an admin Telegram channel,
// split by forum topic.
type ChannelLogger struct {
	bot *bot.Bot
	cfg *config.Config
}

func NewChannelLogger(b *bot.Bot, cfg *config.Config) *ChannelLogger {
	return &ChannelLogger{bot: b, cfg: cfg}
}

func (l *ChannelLogger) send(topicID int, message string) {
	if l.cfg.LogTelegramChatID == 0 || topicID == 0 {
		return
	}

	if len([]rune(message)) > MaxMessageLen {
		message = string([]rune(message)[:MaxMessageLen-20]) + "\n\n... (truncated)"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := l.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:          l.cfg.LogTelegramChatID,
		Text:            message,
		ParseMode:       "Markdown",
		MessageThreadID: topicID,
	})
	if err != nil {
		slog.Error("failed to send telegram log", "error", err)
	}
}

func (l *ChannelLogger) LogError(err error, context string) {
	msg := fmt.Sprintf("❌ *Error*\n\n*Context:* %s\n*Error:* `%s`\n*Time:* %s",
		context, err.Error(), time.Now().Format("2006-01-02 15:04:05"))
	l.send(l.cfg.LogTopicError, msg)
}

func (l *ChannelLogger) LogUsage(telegramID int64, model string, promptTokens, completionTokens int, cost float64) {
	msg := fmt.Sprintf("📊 *AI Request*\n\n*User:* `%d`\n*Model:* %s\n*Tokens:* %d→%d\n*Cost:* $%.6f",
		telegramID, model, promptTokens, completionTokens, cost)
	l.send(l.cfg.LogTopicUsage, msg)
}
