package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TokenUsage reports token counts for one model call.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
}

// UsageRecord is one accounted model call.
type UsageRecord struct {
	ID               int64
	UserID           int64
	Model            string
	PromptTokens     int
	CompletionTokens int
	Cost             decimal.Decimal
	CreatedAt        time.Time
}
