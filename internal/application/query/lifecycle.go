package query

import (
	"context"
	"fmt"
	"sort"

	"github.com/alem-hub/mentorship-portal/internal/domain/mentorship"
	"github.com/alem-hub/mentorship-portal/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LIFECYCLE QUERIES
// What a student or alumnus sees of their own requests and sessions. Every
// read goes to the store; nothing here is cached.
// ══════════════════════════════════════════════════════════════════════════════

// ListRequestsQuery lists the actor's requests. Status is optional.
type ListRequestsQuery struct {
	Actor  shared.Actor
	Status string
}

// ListSessionsQuery lists the actor's sessions. Status is optional.
type ListSessionsQuery struct {
	Actor  shared.Actor
	Status string
}

// SessionContent is the alumnus' notes on a session.
type SessionContent struct {
	SessionID string `json:"session_id"`
	Content   string `json:"content"`
}

// StudentStats are the counters on a student's dashboard.
type StudentStats struct {
	CompletedSessions int `json:"completed_sessions"`
	PendingRequests   int `json:"pending_requests"`
	AcceptedRequests  int `json:"accepted_requests"`
	UpcomingSessions  int `json:"upcoming_sessions"`
}

// PastMentorDTO is an alumnus the student has had a session with.
type PastMentorDTO struct {
	AlumniID      string `json:"alumni_id"`
	Name          string `json:"name"`
	FeedbackGiven bool   `json:"feedback_given"`
}

// StudentFeedback is a student's feedback page: who they can rate and what
// they already submitted.
type StudentFeedback struct {
	Mentors   []PastMentorDTO `json:"mentors"`
	Submitted []FeedbackDTO   `json:"submitted"`
}

// LifecycleHandler answers the lifecycle queries.
type LifecycleHandler struct {
	requests mentorship.RequestRepository
	sessions mentorship.SessionRepository
	feedback mentorship.FeedbackRepository
}

// NewLifecycleHandler creates a new LifecycleHandler.
func NewLifecycleHandler(
	requests mentorship.RequestRepository,
	sessions mentorship.SessionRepository,
	feedback mentorship.FeedbackRepository,
) *LifecycleHandler {
	return &LifecycleHandler{requests: requests, sessions: sessions, feedback: feedback}
}

// requestScope limits a filter to what the actor may see. Admins see all.
func requestScope(actor shared.Actor) (mentorship.RequestFilter, error) {
	switch actor.Role {
	case shared.RoleStudent:
		return mentorship.RequestFilter{StudentID: actor.UserID}, nil
	case shared.RoleAlumni:
		return mentorship.RequestFilter{AlumniID: actor.UserID}, nil
	case shared.RoleAdmin:
		return mentorship.RequestFilter{}, nil
	}
	return mentorship.RequestFilter{}, mentorship.ErrNotParty
}

func sessionScope(actor shared.Actor) (mentorship.SessionFilter, error) {
	f, err := requestScope(actor)
	return mentorship.SessionFilter{StudentID: f.StudentID, AlumniID: f.AlumniID}, err
}

// ListByStatus returns the actor's requests, newest first.
func (h *LifecycleHandler) ListByStatus(ctx context.Context, q ListRequestsQuery) ([]RequestDTO, error) {
	filter, err := requestScope(q.Actor)
	if err != nil {
		return nil, err
	}
	if q.Status != "" {
		if filter.Status, err = mentorship.ParseRequestStatus(q.Status); err != nil {
			return nil, err
		}
	}

	reqs, err := h.requests.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list_requests: %w", err)
	}
	return toRequestDTOs(reqs), nil
}

// ReadyToPropose returns the actor's accepted requests that have no session
// yet, newest first.
func (h *LifecycleHandler) ReadyToPropose(ctx context.Context, actor shared.Actor) ([]RequestDTO, error) {
	filter, err := requestScope(actor)
	if err != nil {
		return nil, err
	}
	reqs, err := h.requests.ListReadyToPropose(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("ready_to_propose: %w", err)
	}
	return toRequestDTOs(reqs), nil
}

func toRequestDTOs(reqs []*mentorship.Request) []RequestDTO {
	out := make([]RequestDTO, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, NewRequestDTO(r))
	}
	return out
}

// ListSessions returns the actor's sessions, latest date first.
func (h *LifecycleHandler) ListSessions(ctx context.Context, q ListSessionsQuery) ([]SessionDTO, error) {
	filter, err := sessionScope(q.Actor)
	if err != nil {
		return nil, err
	}
	if q.Status != "" {
		if filter.Status, err = mentorship.ParseSessionStatus(q.Status); err != nil {
			return nil, err
		}
	}

	sessions, err := h.sessions.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list_sessions: %w", err)
	}
	out := make([]SessionDTO, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, NewSessionDTO(s))
	}
	return out, nil
}

// GetContent returns a session's notes. Either party may read them.
func (h *LifecycleHandler) GetContent(ctx context.Context, actor shared.Actor, sessionID string) (*SessionContent, error) {
	session, err := h.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get_content: %w", err)
	}
	if !session.IsParty(actor) && !actor.IsAdmin() {
		return nil, mentorship.ErrNotParty
	}
	return &SessionContent{SessionID: session.ID, Content: session.Content}, nil
}

// StudentStats counts the student's sessions and requests.
func (h *LifecycleHandler) StudentStats(ctx context.Context, actor shared.Actor) (*StudentStats, error) {
	if !actor.IsStudent() {
		return nil, mentorship.ErrStudentsOnly
	}

	var stats StudentStats
	counters := []struct {
		dst   *int
		count func() (int, error)
	}{
		{&stats.CompletedSessions, func() (int, error) {
			return h.sessions.Count(ctx, mentorship.SessionFilter{StudentID: actor.UserID, Status: mentorship.SessionCompleted})
		}},
		{&stats.UpcomingSessions, func() (int, error) {
			return h.sessions.Count(ctx, mentorship.SessionFilter{StudentID: actor.UserID, Status: mentorship.SessionConfirmed})
		}},
		{&stats.PendingRequests, func() (int, error) {
			return h.requests.Count(ctx, mentorship.RequestFilter{StudentID: actor.UserID, Status: mentorship.RequestPending})
		}},
		{&stats.AcceptedRequests, func() (int, error) {
			return h.requests.Count(ctx, mentorship.RequestFilter{StudentID: actor.UserID, Status: mentorship.RequestAccepted})
		}},
	}
	for _, c := range counters {
		n, err := c.count()
		if err != nil {
			return nil, fmt.Errorf("student_stats: %w", err)
		}
		*c.dst = n
	}
	return &stats, nil
}

// StudentFeedback lists the distinct alumni the student has had sessions
// with, ordered by name, and the feedback the student submitted, newest
// first. Cancelled sessions count.
func (h *LifecycleHandler) StudentFeedback(ctx context.Context, actor shared.Actor) (*StudentFeedback, error) {
	if !actor.IsStudent() {
		return nil, mentorship.ErrStudentsOnly
	}

	sessions, err := h.sessions.List(ctx, mentorship.SessionFilter{StudentID: actor.UserID})
	if err != nil {
		return nil, fmt.Errorf("student_feedback: %w", err)
	}
	submitted, err := h.feedback.ListByStudent(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("student_feedback: %w", err)
	}

	rated := make(map[string]bool, len(submitted))
	out := &StudentFeedback{
		Mentors:   make([]PastMentorDTO, 0),
		Submitted: make([]FeedbackDTO, 0, len(submitted)),
	}
	for _, fb := range submitted {
		rated[fb.AlumniID] = true
		out.Submitted = append(out.Submitted, NewFeedbackDTO(fb))
	}

	seen := make(map[string]struct{})
	for _, s := range sessions {
		if _, ok := seen[s.AlumniID]; ok {
			continue
		}
		seen[s.AlumniID] = struct{}{}
		out.Mentors = append(out.Mentors, PastMentorDTO{
			AlumniID:      s.AlumniID,
			Name:          s.AlumniName,
			FeedbackGiven: rated[s.AlumniID],
		})
	}
	sort.Slice(out.Mentors, func(i, j int) bool {
		if out.Mentors[i].Name != out.Mentors[j].Name {
			return out.Mentors[i].Name < out.Mentors[j].Name
		}
		return out.Mentors[i].AlumniID < out.Mentors[j].AlumniID
	})
	return out, nil
}
