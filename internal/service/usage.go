package service

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"
	"github.com/studykit/chemtutor/internal/config"
	"github.com/studykit/chemtutor/internal/domain"
	"github.com/studykit/chemtutor/internal/repository"
)

var million = decimal.NewFromInt(1_000_000)

// UsageService accounts token usage and cost for every successful model call.
type UsageService struct {
	usage *repository.Usage
}

func NewUsageService(usage *repository.Usage) *UsageService {
	return &UsageService{usage: usage}
}

// CalculateCost prices a call from the per-1M-token table. Unknown models
// cost zero.
func CalculateCost(model string, usage domain.TokenUsage) decimal.Decimal {
	pricing, ok := config.Pricing[model]
	if !ok {
		return decimal.Zero
	}
	promptCost := decimal.NewFromInt(int64(usage.PromptTokens)).
		Mul(decimal.NewFromFloat(pricing.Prompt)).Div(million)
	completionCost := decimal.NewFromInt(int64(usage.CompletionTokens)).
		Mul(decimal.NewFromFloat(pricing.Completion)).Div(million)
	return promptCost.Add(completionCost)
}

// Record logs one call. Failures are logged and swallowed: accounting must
// never break a delivered reply.
func (s *UsageService) Record(ctx context.Context, userID int64, model string, usage domain.TokenUsage) decimal.Decimal {
	cost := CalculateCost(model, usage)
	err := s.usage.Record(ctx, &domain.UsageRecord{
		UserID:           userID,
		Model:            model,
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		Cost:             cost,
	})
	if err != nil {
		slog.Error("record usage", "error", err, "user_id", userID, "model", model)
	}
	return cost
}

func (s *UsageService) TotalsByUser(ctx context.Context, userID int64) (int64, int64, decimal.Decimal, error) {
	return s.usage.TotalsByUser(ctx, userID)
}

func (s *UsageService) Totals(ctx context.Context) (int64, decimal.Decimal, error) {
	return s.usage.Totals(ctx)
}
