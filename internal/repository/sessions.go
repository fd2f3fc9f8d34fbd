package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/studykit/chemtutor/internal/domain"
)

type Sessions struct {
	db *pgxpool.Pool
}

func NewSessions(db *pgxpool.Pool) *Sessions {
	return &Sessions{db: db}
}

const sessionColumns = `id, user_id, model, temperature, doc_name, doc_mime,
	doc_data, doc_consumed, created_at, updated_at`

func scanSession(row pgx.Row) (*domain.StudySession, error) {
	var s domain.StudySession
	err := row.Scan(
		&s.ID, &s.UserID, &s.Model, &s.Temperature, &s.DocName, &s.DocMime,
		&s.DocData, &s.DocConsumed, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Sessions) Create(ctx context.Context, userID int64, model string, temperature float64, doc *domain.TransferFile) (*domain.StudySession, error) {
	var name, mime string
	var data []byte
	if doc != nil {
		name, mime, data = doc.Name, doc.MimeType, doc.Data
	}
	row := r.db.QueryRow(ctx, `
		INSERT INTO study_sessions (user_id, model, temperature, doc_name, doc_mime, doc_data)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+sessionColumns,
		userID, model, temperature, name, mime, data)
	s, err := scanSession(row)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return s, nil
}

func (r *Sessions) GetByID(ctx context.Context, id int64) (*domain.StudySession, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM study_sessions WHERE id = $1`, id)
	s, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return s, nil
}

func (r *Sessions) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.StudySession, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+sessionColumns+` FROM study_sessions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.StudySession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

func (r *Sessions) CountByUser(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx,
		`SELECT count(*) FROM study_sessions WHERE user_id = $1`, userID).Scan(&n)
	return n, err
}

// DeleteOldest removes a user's n oldest sessions.
func (r *Sessions) DeleteOldest(ctx context.Context, userID int64, n int) error {
	_, err := r.db.Exec(ctx, `
		DELETE FROM study_sessions
		WHERE id IN (
			SELECT id FROM study_sessions
			WHERE user_id = $1
			ORDER BY created_at ASC
			LIMIT $2
		)`, userID, n)
	return err
}

// Delete removes a session only when userID owns it. A foreign or missing
// id is reported as not found.
func (r *Sessions) Delete(ctx context.Context, id, userID int64) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM study_sessions WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// MarkDocConsumed records that the session's first turn has carried the
// attached document.
func (r *Sessions) MarkDocConsumed(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx,
		`UPDATE study_sessions SET doc_consumed = TRUE, updated_at = now() WHERE id = $1`, id)
	return err
}

func (r *Sessions) AddMessage(ctx context.Context, sessionID int64, role, body string, hasFile bool) (*domain.SessionMessage, error) {
	var m domain.SessionMessage
	err := r.db.QueryRow(ctx, `
		INSERT INTO session_messages (session_id, role, body, has_file)
		VALUES ($1, $2, $3, $4)
		RETURNING id, session_id, role, body, has_file, created_at`,
		sessionID, role, body, hasFile).
		Scan(&m.ID, &m.SessionID, &m.Role, &m.Body, &m.HasFile, &m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("add message: %w", err)
	}
	return &m, nil
}

func (r *Sessions) Messages(ctx context.Context, sessionID int64) ([]domain.SessionMessage, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, session_id, role, body, has_file, created_at
		FROM session_messages
		WHERE session_id = $1
		ORDER BY id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get messages: %w", err)
	}
	defer rows.Close()

	var msgs []domain.SessionMessage
	for rows.Next() {
		var m domain.SessionMessage
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Body, &m.HasFile, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func (r *Sessions) CountMessages(ctx context.Context, sessionID int64) (int64, error) {
	var n int64
	err := r.db.QueryRow(ctx,
		`SELECT count(*) FROM session_messages WHERE session_id = $1`, sessionID).Scan(&n)
	return n, err
}

func (r *Sessions) FirstMessage(ctx context.Context, sessionID int64) (*domain.SessionMessage, error) {
	var m domain.SessionMessage
	err := r.db.QueryRow(ctx, `
		SELECT id, session_id, role, body, has_file, created_at
		FROM session_messages
		WHERE session_id = $1
		ORDER BY id
		LIMIT 1`, sessionID).
		Scan(&m.ID, &m.SessionID, &m.Role, &m.Body, &m.HasFile, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get first message: %w", err)
	}
	return &m, nil
}
