// Package mentorship holds the request, session and feedback lifecycle.
//
// A student asks an alumnus for mentorship (Request). Once the alumnus
// accepts, either side may propose one Session for it, which the other side
// confirms, after which it can be completed. Students rate alumni through
// Feedback; the rating aggregate is derived, never stored.
package mentorship

import (
	"strings"
	"time"

	"github.com/alem-hub/mentorship-portal/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST STATUS
// ══════════════════════════════════════════════════════════════════════════════

// RequestStatus is the state of a mentorship request.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestAccepted RequestStatus = "accepted"
	RequestDeclined RequestStatus = "declined"
)

// IsValid checks if the status is known.
func (s RequestStatus) IsValid() bool {
	switch s {
	case RequestPending, RequestAccepted, RequestDeclined:
		return true
	}
	return false
}

// IsActive reports whether a request in this state blocks a new request for
// the same student and alumnus.
func (s RequestStatus) IsActive() bool {
	return s == RequestPending || s == RequestAccepted
}

// IsDecision reports whether the status is a legal outcome of decideRequest.
func (s RequestStatus) IsDecision() bool {
	return s == RequestAccepted || s == RequestDeclined
}

// ParseRequestStatus accepts any casing ("Pending", "ACCEPTED").
func ParseRequestStatus(s string) (RequestStatus, error) {
	status := RequestStatus(strings.ToLower(strings.TrimSpace(s)))
	if !status.IsValid() {
		return "", ErrUnknownRequestStatus
	}
	return status, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// Request is a student's solicitation for mentorship from one alumnus.
type Request struct {
	ID        string
	StudentID string
	AlumniID  string
	Message   string
	Status    RequestStatus

	CreatedAt time.Time
	// DecidedAt is set exactly once, when the alumnus accepts or declines.
	DecidedAt *time.Time

	// Display names, filled by list queries only.
	StudentName string
	AlumniName  string
}

// NewRequestParams holds the inputs for NewRequest.
type NewRequestParams struct {
	ID        string
	StudentID string
	AlumniID  string
	Message   string
	CreatedAt time.Time
}

// NewRequest creates a pending request.
func NewRequest(params NewRequestParams) (*Request, error) {
	if params.ID == "" || params.StudentID == "" || params.AlumniID == "" {
		return nil, ErrRequestIncomplete
	}
	if params.CreatedAt.IsZero() {
		params.CreatedAt = time.Now().UTC()
	}

	return &Request{
		ID:        params.ID,
		StudentID: params.StudentID,
		AlumniID:  params.AlumniID,
		Message:   strings.TrimSpace(params.Message),
		Status:    RequestPending,
		CreatedAt: params.CreatedAt,
	}, nil
}

// Decide moves a pending request to Accepted or Declined and stamps the
// decision time. A decided request cannot be decided again.
func (r *Request) Decide(decision RequestStatus, at time.Time) error {
	if !decision.IsDecision() {
		return ErrInvalidDecision
	}
	if r.Status != RequestPending {
		return ErrRequestAlreadyDecided
	}

	r.Status = decision
	r.DecidedAt = &at
	return nil
}

// IsParty reports whether the actor is the requesting student or the
// target alumnus.
func (r *Request) IsParty(actor shared.Actor) bool {
	return actor.Is(r.StudentID, shared.RoleStudent) || actor.Is(r.AlumniID, shared.RoleAlumni)
}

// IsReadyToPropose reports whether a session may be proposed, given whether
// one already references this request.
func (r *Request) IsReadyToPropose(hasSession bool) bool {
	return r.Status == RequestAccepted && !hasSession
}
