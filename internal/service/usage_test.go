package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/studykit/chemtutor/internal/domain"
)

func TestCalculateCost(t *testing.T) {
	cases := []struct {
		name  string
		model string
		usage domain.TokenUsage
		want  string
	}{
		{
			name:  "priced model",
			model: "gemini-3-pro-preview",
			usage: domain.TokenUsage{PromptTokens: 1_000_000, CompletionTokens: 500_000},
			// 1M * $2/1M + 0.5M * $12/1M
			want: "8",
		},
		{
			name:  "small request",
			model: "gemini-2.5-flash",
			usage: domain.TokenUsage{PromptTokens: 1000, CompletionTokens: 2000},
			// 1000 * 0.30/1M + 2000 * 2.50/1M
			want: "0.0053",
		},
		{
			name:  "unknown model is free",
			model: "some-local-model",
			usage: domain.TokenUsage{PromptTokens: 99999, CompletionTokens: 99999},
			want:  "0",
		},
		{
			name:  "zero usage",
			model: "gemini-3-pro-preview",
			usage: domain.TokenUsage{},
			want:  "0",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := CalculateCost(tc.model, tc.usage)
			want, err := decimal.NewFromString(tc.want)
			if err != nil {
				t.Fatalf("bad want: %v", err)
			}
			if !got.Equal(want) {
				t.Fatalf("cost = %s, want %s", got, want)
			}
		})
	}
}

// Costs cross the persistence boundary as text; the round trip must be
// exact, not a float approximation.
func TestCostTextRoundTrip(t *testing.T) {
	cost := CalculateCost("gemini-2.5-flash", domain.TokenUsage{PromptTokens: 1000, CompletionTokens: 2000})
	parsed, err := decimal.NewFromString(cost.String())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !parsed.Equal(cost) {
		t.Fatalf("round trip changed the cost: %s != %s", parsed, cost)
	}
}
