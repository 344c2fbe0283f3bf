package mentorship

import (
	"strings"
	"time"

	"github.com/alem-hub/mentorship-portal/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SESSION STATUS & MODE
// ══════════════════════════════════════════════════════════════════════════════

// SessionStatus is the state of a mentorship session.
//
//	pending_confirmation ──confirm──▶ confirmed ──complete──▶ completed
//	        │
//	        └──────cancel──────▶ cancelled
type SessionStatus string

const (
	SessionPendingConfirmation SessionStatus = "pending_confirmation"
	SessionConfirmed           SessionStatus = "confirmed"
	SessionCompleted           SessionStatus = "completed"
	SessionCancelled           SessionStatus = "cancelled"
)

// IsValid checks if the status is known.
func (s SessionStatus) IsValid() bool {
	switch s {
	case SessionPendingConfirmation, SessionConfirmed, SessionCompleted, SessionCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no transition leaves this state.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionCompleted || s == SessionCancelled
}

// HasMeetingLink reports whether a session in this state must carry a link.
func (s SessionStatus) HasMeetingLink() bool {
	return s == SessionConfirmed || s == SessionCompleted
}

// ParseSessionStatus accepts any casing.
func ParseSessionStatus(s string) (SessionStatus, error) {
	status := SessionStatus(strings.ToLower(strings.TrimSpace(s)))
	if !status.IsValid() {
		return "", ErrUnknownSessionStatus
	}
	return status, nil
}

// Mode is how the session takes place.
type Mode string

const (
	ModeOnline   Mode = "online"
	ModeInPerson Mode = "in_person"
)

// IsValid checks if the mode is known.
func (m Mode) IsValid() bool {
	return m == ModeOnline || m == ModeInPerson
}

// ParseMode accepts "Online", "In-person", "in_person" and similar.
func ParseMode(s string) (Mode, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	normalized = strings.NewReplacer("-", "_", " ", "_").Replace(normalized)
	m := Mode(normalized)
	if !m.IsValid() {
		return "", ErrUnknownMode
	}
	return m, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SESSION ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// Session is a scheduled meeting between a student and an alumnus.
type Session struct {
	ID string
	// RequestID links the originating request; empty when the session was
	// created outside the request flow.
	RequestID string
	StudentID string
	AlumniID  string

	Date   time.Time
	Mode   Mode
	Topics string
	// Content holds the alumnus' notes; the student can only read it.
	Content string

	// MeetingLink is empty until confirmation and never changes after.
	MeetingLink string
	ProposedBy  shared.Role
	Status      SessionStatus

	CreatedAt   time.Time
	ConfirmedAt *time.Time
	CompletedAt *time.Time
	CancelledAt *time.Time

	// Display names, filled by list queries only.
	StudentName string
	AlumniName  string
}

// NewSessionParams holds the inputs for NewSession.
type NewSessionParams struct {
	ID         string
	RequestID  string
	StudentID  string
	AlumniID   string
	Date       time.Time
	Mode       Mode
	Topics     string
	ProposedBy shared.Role
	CreatedAt  time.Time
}

// NewSession creates a session awaiting the counter-party's confirmation.
func NewSession(params NewSessionParams) (*Session, error) {
	if params.ID == "" || params.StudentID == "" || params.AlumniID == "" {
		return nil, ErrSessionIncomplete
	}
	if params.Date.IsZero() {
		return nil, ErrSessionDateRequired
	}
	if !params.Mode.IsValid() {
		return nil, ErrUnknownMode
	}
	if params.ProposedBy != shared.RoleStudent && params.ProposedBy != shared.RoleAlumni {
		return nil, ErrInvalidProposer
	}
	if params.CreatedAt.IsZero() {
		params.CreatedAt = time.Now().UTC()
	}

	return &Session{
		ID:         params.ID,
		RequestID:  params.RequestID,
		StudentID:  params.StudentID,
		AlumniID:   params.AlumniID,
		Date:       params.Date,
		Mode:       params.Mode,
		Topics:     strings.TrimSpace(params.Topics),
		ProposedBy: params.ProposedBy,
		Status:     SessionPendingConfirmation,
		CreatedAt:  params.CreatedAt,
	}, nil
}

// CanConfirm checks the confirmation guard without changing anything.
func (s *Session) CanConfirm(role shared.Role) error {
	if s.Status != SessionPendingConfirmation {
		return ErrSessionNotPending
	}
	if role == s.ProposedBy {
		return ErrConfirmOwnProposal
	}
	return nil
}

// Confirm approves the proposal on behalf of the counter-party and attaches
// the meeting link.
func (s *Session) Confirm(role shared.Role, link string, at time.Time) error {
	if err := s.CanConfirm(role); err != nil {
		return err
	}
	if link == "" {
		return ErrMeetingLinkRequired
	}

	s.Status = SessionConfirmed
	s.MeetingLink = link
	s.ConfirmedAt = &at
	return nil
}

// Complete marks a confirmed session as done. There is no way back.
func (s *Session) Complete(at time.Time) error {
	if s.Status != SessionConfirmed {
		return ErrSessionNotConfirmed
	}

	s.Status = SessionCompleted
	s.CompletedAt = &at
	return nil
}

// Cancel withdraws a proposal that has not been confirmed yet.
func (s *Session) Cancel(at time.Time) error {
	if s.Status != SessionPendingConfirmation {
		return ErrSessionNotPending
	}

	s.Status = SessionCancelled
	s.CancelledAt = &at
	return nil
}

// IsParty reports whether the actor is this session's student or alumnus.
func (s *Session) IsParty(actor shared.Actor) bool {
	return actor.Is(s.StudentID, shared.RoleStudent) || actor.Is(s.AlumniID, shared.RoleAlumni)
}

// IsMentor reports whether the actor is this session's alumnus.
func (s *Session) IsMentor(actor shared.Actor) bool {
	return actor.Is(s.AlumniID, shared.RoleAlumni)
}

// LinkInvariantHolds reports whether the meeting link is present exactly in
// the states that require it.
func (s *Session) LinkInvariantHolds() bool {
	return (s.MeetingLink != "") == s.Status.HasMeetingLink()
}
