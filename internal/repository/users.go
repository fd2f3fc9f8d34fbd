package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/studykit/chemtutor/internal/domain"
)

type Users struct {
	db *pgxpool.Pool
}

func NewUsers(db *pgxpool.Pool) *Users {
	return &Users{db: db}
}

const userColumns = `id, telegram_id, is_admin, first_name, username, mode,
	selected_model, temperature, show_cost, active_session_id,
	last_interaction, created_at, updated_at`

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	var mode string
	err := row.Scan(
		&u.ID, &u.TelegramID, &u.IsAdmin, &u.FirstName, &u.Username, &mode,
		&u.SelectedModel, &u.Temperature, &u.ShowCost, &u.ActiveSessionID,
		&u.LastInteraction, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.Mode = domain.Mode(mode)
	return &u, nil
}

func (r *Users) GetByTelegramID(ctx context.Context, telegramID int64) (*domain.User, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE telegram_id = $1`, telegramID)
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (r *Users) Create(ctx context.Context, telegramID int64, firstName, username string, isAdmin bool, defaultModel string, defaultTemperature float64) (*domain.User, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO users (telegram_id, first_name, username, is_admin, selected_model, temperature)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+userColumns,
		telegramID, firstName, username, isAdmin, defaultModel, defaultTemperature)
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (r *Users) UpdateInfo(ctx context.Context, id int64, firstName, username string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE users SET first_name = $2, username = $3, updated_at = now() WHERE id = $1`,
		id, firstName, username)
	return err
}

func (r *Users) UpdateLastInteraction(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx,
		`UPDATE users SET last_interaction = now(), updated_at = now() WHERE id = $1`, id)
	return err
}

func (r *Users) SetMode(ctx context.Context, id int64, mode domain.Mode) error {
	_, err := r.db.Exec(ctx,
		`UPDATE users SET mode = $2, updated_at = now() WHERE id = $1`, id, string(mode))
	return err
}

func (r *Users) SetTemperature(ctx context.Context, id int64, temperature float64) error {
	_, err := r.db.Exec(ctx,
		`UPDATE users SET temperature = $2, updated_at = now() WHERE id = $1`, id, temperature)
	return err
}

func (r *Users) SetShowCost(ctx context.Context, id int64, showCost bool) error {
	_, err := r.db.Exec(ctx,
		`UPDATE users SET show_cost = $2, updated_at = now() WHERE id = $1`, id, showCost)
	return err
}

func (r *Users) SetActiveSession(ctx context.Context, id int64, sessionID *int64) error {
	_, err := r.db.Exec(ctx,
		`UPDATE users SET active_session_id = $2, updated_at = now() WHERE id = $1`, id, sessionID)
	return err
}

func (r *Users) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM users`).Scan(&n)
	return n, err
}
