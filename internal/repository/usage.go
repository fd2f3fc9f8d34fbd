package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/studykit/chemtutor/internal/domain"
)

type Usage struct {
	db *pgxpool.Pool
}

func NewUsage(db *pgxpool.Pool) *Usage {
	return &Usage{db: db}
}

func (r *Usage) Record(ctx context.Context, rec *domain.UsageRecord) error {
	// Cost rides as text so the NUMERIC column keeps the decimal exact.
	_, err := r.db.Exec(ctx, `
		INSERT INTO usage_log (user_id, model, prompt_tokens, completion_tokens, cost)
		VALUES ($1, $2, $3, $4, $5::numeric)`,
		rec.UserID, rec.Model, rec.PromptTokens, rec.CompletionTokens, rec.Cost.String())
	if err != nil {
		return fmt.Errorf("record usage: %w", err)
	}
	return nil
}

// TotalsByUser returns request count, summed tokens and summed cost.
func (r *Usage) TotalsByUser(ctx context.Context, userID int64) (requests int64, tokens int64, cost decimal.Decimal, err error) {
	var costText string
	err = r.db.QueryRow(ctx, `
		SELECT count(*),
		       COALESCE(sum(prompt_tokens + completion_tokens), 0),
		       COALESCE(sum(cost), 0)::text
		FROM usage_log
		WHERE user_id = $1`, userID).
		Scan(&requests, &tokens, &costText)
	if err != nil {
		return 0, 0, decimal.Zero, fmt.Errorf("usage totals: %w", err)
	}
	cost, err = decimal.NewFromString(costText)
	if err != nil {
		return 0, 0, decimal.Zero, fmt.Errorf("parse cost: %w", err)
	}
	return requests, tokens, cost, nil
}

// Totals returns global request count and summed cost, for /stats.
func (r *Usage) Totals(ctx context.Context) (requests int64, cost decimal.Decimal, err error) {
	var costText string
	err = r.db.QueryRow(ctx, `
		SELECT count(*), COALESCE(sum(cost), 0)::text FROM usage_log`).
		Scan(&requests, &costText)
	if err != nil {
		return 0, decimal.Zero, fmt.Errorf("usage totals: %w", err)
	}
	cost, err = decimal.NewFromString(costText)
	if err != nil {
		return 0, decimal.Zero, fmt.Errorf("parse cost: %w", err)
	}
	return requests, cost, nil
}
