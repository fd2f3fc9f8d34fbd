package service

import (
	"context"
	"fmt"

	"github.com/studykit/chemtutor/internal/config"
	"github.com/studykit/chemtutor/internal/domain"
	"github.com/studykit/chemtutor/internal/repository"
)

// SessionService owns the session transcript: creation, append-only message
// history and the active-session pointer per user.
type SessionService struct {
	sessions *repository.Sessions
	users    *repository.Users
}

func NewSessionService(sessions *repository.Sessions, users *repository.Users) *SessionService {
	return &SessionService{sessions: sessions, users: users}
}

// FindOrCreate returns the user's active session, creating a fresh one
// (empty transcript, no document) when none exists.
func (s *SessionService) FindOrCreate(ctx context.Context, user *domain.User) (*domain.StudySession, error) {
	if user.ActiveSessionID != nil {
		session, err := s.sessions.GetByID(ctx, *user.ActiveSessionID)
		if err == nil {
			return session, nil
		}
		if err != domain.ErrSessionNotFound {
			return nil, err
		}
	}
	return s.createNew(ctx, user, nil)
}

// StartWithDocument discards the active session and starts a fresh one
// bound to doc. The document rides on the session's first turn.
func (s *SessionService) StartWithDocument(ctx context.Context, user *domain.User, doc *domain.TransferFile) (*domain.StudySession, error) {
	return s.createNew(ctx, user, doc)
}

// Reset discards the active session and starts a fresh empty one.
func (s *SessionService) Reset(ctx context.Context, user *domain.User) (*domain.StudySession, error) {
	user.ActiveSessionID = nil
	if err := s.users.SetActiveSession(ctx, user.ID, nil); err != nil {
		return nil, fmt.Errorf("clear active session: %w", err)
	}
	return s.createNew(ctx, user, nil)
}

func (s *SessionService) createNew(ctx context.Context, user *domain.User, doc *domain.TransferFile) (*domain.StudySession, error) {
	count, err := s.sessions.CountByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("count sessions: %w", err)
	}
	if count >= config.MaxSessions {
		if err := s.sessions.DeleteOldest(ctx, user.ID, int(count-config.MaxSessions+1)); err != nil {
			return nil, fmt.Errorf("delete oldest sessions: %w", err)
		}
	}

	session, err := s.sessions.Create(ctx, user.ID, user.SelectedModel, user.Temperature, doc)
	if err != nil {
		return nil, err
	}

	if err := s.users.SetActiveSession(ctx, user.ID, &session.ID); err != nil {
		return nil, fmt.Errorf("set active session: %w", err)
	}
	user.ActiveSessionID = &session.ID
	return session, nil
}

func (s *SessionService) GetByID(ctx context.Context, sessionID int64) (*domain.StudySession, error) {
	return s.sessions.GetByID(ctx, sessionID)
}

func (s *SessionService) ListByUser(ctx context.Context, userID int64, limit, offset int) ([]domain.StudySession, error) {
	return s.sessions.ListByUser(ctx, userID, limit, offset)
}

func (s *SessionService) CountByUser(ctx context.Context, userID int64) (int64, error) {
	return s.sessions.CountByUser(ctx, userID)
}

// Delete removes one of userID's sessions; anyone else's session is
// reported as not found.
func (s *SessionService) Delete(ctx context.Context, userID, sessionID int64) error {
	return s.sessions.Delete(ctx, sessionID, userID)
}

// SwitchTo activates one of userID's sessions. Callback data arrives from
// the client, so a session owned by someone else is treated as missing.
func (s *SessionService) SwitchTo(ctx context.Context, userID, sessionID int64) error {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if !session.OwnedBy(userID) {
		return domain.ErrSessionNotFound
	}
	return s.users.SetActiveSession(ctx, userID, &sessionID)
}

// AddMessage appends one transcript entry; entries are never updated or
// reordered afterwards.
func (s *SessionService) AddMessage(ctx context.Context, sessionID int64, role, body string, hasFile bool) (*domain.SessionMessage, error) {
	return s.sessions.AddMessage(ctx, sessionID, role, body, hasFile)
}

func (s *SessionService) Messages(ctx context.Context, sessionID int64) ([]domain.SessionMessage, error) {
	return s.sessions.Messages(ctx, sessionID)
}

func (s *SessionService) CountMessages(ctx context.Context, sessionID int64) (int64, error) {
	return s.sessions.CountMessages(ctx, sessionID)
}

func (s *SessionService) FirstMessage(ctx context.Context, sessionID int64) (*domain.SessionMessage, error) {
	return s.sessions.FirstMessage(ctx, sessionID)
}

// MarkDocConsumed records that the first turn carried the document; no
// later turn may attach a file.
func (s *SessionService) MarkDocConsumed(ctx context.Context, session *domain.StudySession) error {
	if err := s.sessions.MarkDocConsumed(ctx, session.ID); err != nil {
		return err
	}
	session.DocConsumed = true
	return nil
}
