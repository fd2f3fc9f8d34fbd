package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/studykit/chemtutor/internal/config"
)

func fakeBot(t *testing.T) *bot.Bot {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ok":true,"result":{}}`)
	}))
	t.Cleanup(server.Close)

	b, err := bot.New("123:test", bot.WithServerURL(server.URL), bot.WithSkipGetMe())
	if err != nil {
		t.Fatalf("create bot: %v", err)
	}
	return b
}

func messageUpdate(chatID int64) *models.Update {
	return &models.Update{
		Message: &models.Message{
			Chat: models.Chat{ID: chatID, Type: "private"},
		},
	}
}

func TestRateLimit(t *testing.T) {
	b := fakeBot(t)
	mw := RateLimit()

	passed := 0
	handler := mw(func(ctx context.Context, b *bot.Bot, update *models.Update) {
		passed++
	})

	for i := 0; i < config.RateLimitPerMinute+3; i++ {
		handler(context.Background(), b, messageUpdate(1))
	}

	if passed != config.RateLimitPerMinute {
		t.Fatalf("passed = %d, want %d", passed, config.RateLimitPerMinute)
	}
}

func TestRateLimitPerChat(t *testing.T) {
	b := fakeBot(t)
	mw := RateLimit()

	passed := map[int64]int{}
	handler := mw(func(ctx context.Context, b *bot.Bot, update *models.Update) {
		passed[update.Message.Chat.ID]++
	})

	// Exhaust chat 1; chat 2 must be unaffected.
	for i := 0; i < config.RateLimitPerMinute+1; i++ {
		handler(context.Background(), b, messageUpdate(1))
	}
	handler(context.Background(), b, messageUpdate(2))

	if passed[1] != config.RateLimitPerMinute {
		t.Fatalf("chat 1 passed = %d, want %d", passed[1], config.RateLimitPerMinute)
	}
	if passed[2] != 1 {
		t.Fatalf("chat 2 passed = %d, want 1", passed[2])
	}
}

func TestRateLimitSkipsNonMessages(t *testing.T) {
	b := fakeBot(t)
	mw := RateLimit()

	passed := 0
	handler := mw(func(ctx context.Context, b *bot.Bot, update *models.Update) {
		passed++
	})

	for i := 0; i < config.RateLimitPerMinute*2; i++ {
		handler(context.Background(), b, &models.Update{
			CallbackQuery: &models.CallbackQuery{ID: "cb"},
		})
	}

	if passed != config.RateLimitPerMinute*2 {
		t.Fatalf("callbacks must bypass the limiter, passed = %d", passed)
	}
}
