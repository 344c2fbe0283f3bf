package mentorship

import (
	"context"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Implementations live in infrastructure/persistence. Every state change is a
// conditional write: the implementation applies it only if the row is still
// in the expected state, so two racing callers cannot both succeed.
// ══════════════════════════════════════════════════════════════════════════════

// RequestFilter narrows request listings. Empty fields do not filter.
type RequestFilter struct {
	StudentID string
	AlumniID  string
	Status    RequestStatus
}

// RequestRepository stores mentorship requests.
type RequestRepository interface {
	// ─────────────────────────────────────────────────────────────────────────
	// Commands
	// ─────────────────────────────────────────────────────────────────────────

	// Create inserts a pending request.
	// Returns ErrDuplicateActiveRequest if the pair already has a pending or
	// accepted request, even when the pre-check raced.
	Create(ctx context.Context, req *Request) error

	// Decide sets status and decided_at only if the request is still pending.
	// Returns ErrRequestNotFound or ErrRequestAlreadyDecided otherwise.
	Decide(ctx context.Context, id string, decision RequestStatus, at time.Time) error

	// ─────────────────────────────────────────────────────────────────────────
	// Queries
	// ─────────────────────────────────────────────────────────────────────────

	// GetByID returns ErrRequestNotFound when absent.
	GetByID(ctx context.Context, id string) (*Request, error)

	// HasActive reports whether the pair has a pending or accepted request.
	HasActive(ctx context.Context, studentID, alumniID string) (bool, error)

	// List returns matching requests, newest first, with display names.
	List(ctx context.Context, filter RequestFilter) ([]*Request, error)

	// ListReadyToPropose returns accepted requests with no linked session,
	// newest first.
	ListReadyToPropose(ctx context.Context, filter RequestFilter) ([]*Request, error)

	// Count returns how many requests match.
	Count(ctx context.Context, filter RequestFilter) (int, error)
}

// SessionFilter narrows session listings. Empty fields do not filter.
type SessionFilter struct {
	StudentID string
	AlumniID  string
	Status    SessionStatus
}

// SessionRepository stores mentorship sessions.
type SessionRepository interface {
	// ─────────────────────────────────────────────────────────────────────────
	// Commands
	// ─────────────────────────────────────────────────────────────────────────

	// Create inserts a proposed session.
	// Returns ErrSessionAlreadyProposed if another session references the
	// same request.
	Create(ctx context.Context, session *Session) error

	// Confirm sets status confirmed and the meeting link only if the session
	// is still pending confirmation.
	// Returns ErrSessionNotFound, ErrSessionNotPending, or ErrMeetingLinkTaken.
	Confirm(ctx context.Context, id, meetingLink string, at time.Time) error

	// Transition moves a session from one status to another only if it is
	// still in from. Used for complete and cancel.
	Transition(ctx context.Context, id string, from, to SessionStatus, at time.Time) error

	// UpdateContent overwrites the alumnus' notes in any state.
	UpdateContent(ctx context.Context, id, content string) error

	// ─────────────────────────────────────────────────────────────────────────
	// Queries
	// ─────────────────────────────────────────────────────────────────────────

	// GetByID returns ErrSessionNotFound when absent.
	GetByID(ctx context.Context, id string) (*Session, error)

	// ExistsForRequest reports whether any session references the request.
	ExistsForRequest(ctx context.Context, requestID string) (bool, error)

	// List returns matching sessions, latest session date first.
	List(ctx context.Context, filter SessionFilter) ([]*Session, error)

	// Count returns how many sessions match.
	Count(ctx context.Context, filter SessionFilter) (int, error)
}

// FeedbackRepository stores append-only feedback.
type FeedbackRepository interface {
	// Create inserts feedback. There is no update or delete.
	Create(ctx context.Context, fb *Feedback) error

	// Summary aggregates every rating of the alumnus.
	Summary(ctx context.Context, alumniID string) (RatingSummary, error)

	// ListByAlumni returns feedback for the alumnus, newest first.
	ListByAlumni(ctx context.Context, alumniID string) ([]*Feedback, error)

	// ListByStudent returns feedback the student submitted, newest first.
	ListByStudent(ctx context.Context, studentID string) ([]*Feedback, error)
}

// LinkGenerator issues meeting links. Each call returns a fresh random link.
type LinkGenerator interface {
	NewLink() (string, error)
}
