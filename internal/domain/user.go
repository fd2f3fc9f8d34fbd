package domain

import "time"

// Mode selects which assistant flow handles a user's messages.
type Mode string

const (
	// ModeChat is the conversational summarizer flow bound to a session.
	ModeChat Mode = "chat"
	// ModeSolve is the stateless one-shot problem solver.
	ModeSolve Mode = "solve"
)

type User struct {
	ID              int64
	TelegramID      int64
	IsAdmin         bool
	FirstName       string
	Username        string
	Mode            Mode
	SelectedModel   string
	Temperature     float64
	ShowCost        bool
	ActiveSessionID *int64
	LastInteraction time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
