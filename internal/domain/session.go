package domain

import "time"

// Message roles within a session transcript.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// StudySession is a bound conversation context: one attached document at
// most, generation parameters, and an append-only transcript.
type StudySession struct {
	ID          int64
	UserID      int64
	Model       string
	Temperature float64

	// Attached document. DocConsumed flips true once the first turn has
	// carried the document to the model; later turns are text only.
	DocName     string
	DocMime     string
	DocData     []byte
	DocConsumed bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// OwnedBy reports whether the session belongs to userID.
func (s *StudySession) OwnedBy(userID int64) bool {
	return s.UserID == userID
}

// HasDocument reports whether a document is attached to the session.
func (s *StudySession) HasDocument() bool {
	return len(s.DocData) > 0
}

// PendingDocument returns the attached document if the first turn has not
// shipped it yet.
func (s *StudySession) PendingDocument() *TransferFile {
	if !s.HasDocument() || s.DocConsumed {
		return nil
	}
	return &TransferFile{Name: s.DocName, MimeType: s.DocMime, Data: s.DocData}
}

// SessionMessage is a single transcript entry. Messages are append-only and
// ordered by insertion.
type SessionMessage struct {
	ID        int64
	SessionID int64
	Role      string
	Body      string
	HasFile   bool
	CreatedAt time.Time
}
