package memory

import (
	"context"
	"sort"
	"time"

	"github.com/alem-hub/mentorship-portal/internal/domain/mentorship"
)

// ══════════════════════════════════════════════════════════════════════════════
// REQUESTS
// ══════════════════════════════════════════════════════════════════════════════

// RequestRepo implements mentorship.RequestRepository.
type RequestRepo struct {
	s *Store
}

func cloneRequest(r *mentorship.Request) *mentorship.Request {
	c := *r
	if r.DecidedAt != nil {
		t := *r.DecidedAt
		c.DecidedAt = &t
	}
	return &c
}

// Create implements mentorship.RequestRepository.
func (r *RequestRepo) Create(ctx context.Context, req *mentorship.Request) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.hasActiveLocked(req.StudentID, req.AlumniID) {
		return mentorship.ErrDuplicateActiveRequest
	}
	r.s.st.requests[req.ID] = cloneRequest(req)
	return nil
}

// Decide implements mentorship.RequestRepository.
func (r *RequestRepo) Decide(ctx context.Context, id string, decision mentorship.RequestStatus, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	req, ok := r.s.st.requests[id]
	if !ok {
		return mentorship.ErrRequestNotFound
	}
	return req.Decide(decision, at)
}

// GetByID implements mentorship.RequestRepository.
func (r *RequestRepo) GetByID(ctx context.Context, id string) (*mentorship.Request, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	req, ok := r.s.st.requests[id]
	if !ok {
		return nil, mentorship.ErrRequestNotFound
	}
	return cloneRequest(req), nil
}

// HasActive implements mentorship.RequestRepository.
func (r *RequestRepo) HasActive(ctx context.Context, studentID, alumniID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.hasActiveLocked(studentID, alumniID), nil
}

func (r *RequestRepo) hasActiveLocked(studentID, alumniID string) bool {
	for _, req := range r.s.st.requests {
		if req.StudentID == studentID && req.AlumniID == alumniID && req.Status.IsActive() {
			return true
		}
	}
	return false
}

func matchRequest(req *mentorship.Request, f mentorship.RequestFilter) bool {
	if f.StudentID != "" && req.StudentID != f.StudentID {
		return false
	}
	if f.AlumniID != "" && req.AlumniID != f.AlumniID {
		return false
	}
	if f.Status != "" && req.Status != f.Status {
		return false
	}
	return true
}

func (r *RequestRepo) collect(f mentorship.RequestFilter, keep func(*mentorship.Request) bool) []*mentorship.Request {
	out := make([]*mentorship.Request, 0)
	for _, req := range r.s.st.requests {
		if !matchRequest(req, f) || !keep(req) {
			continue
		}
		c := cloneRequest(req)
		c.StudentName = r.s.studentName(req.StudentID)
		c.AlumniName = r.s.alumniName(req.AlumniID)
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// List implements mentorship.RequestRepository.
func (r *RequestRepo) List(ctx context.Context, filter mentorship.RequestFilter) ([]*mentorship.Request, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.collect(filter, func(*mentorship.Request) bool { return true }), nil
}

// ListReadyToPropose implements mentorship.RequestRepository.
func (r *RequestRepo) ListReadyToPropose(ctx context.Context, filter mentorship.RequestFilter) ([]*mentorship.Request, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	linked := make(map[string]struct{}, len(r.s.st.sessions))
	for _, s := range r.s.st.sessions {
		if s.RequestID != "" {
			linked[s.RequestID] = struct{}{}
		}
	}

	filter.Status = mentorship.RequestAccepted
	return r.collect(filter, func(req *mentorship.Request) bool {
		_, has := linked[req.ID]
		return !has
	}), nil
}

// Count implements mentorship.RequestRepository.
func (r *RequestRepo) Count(ctx context.Context, filter mentorship.RequestFilter) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	n := 0
	for _, req := range r.s.st.requests {
		if matchRequest(req, filter) {
			n++
		}
	}
	return n, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SESSIONS
// ══════════════════════════════════════════════════════════════════════════════

// SessionRepo implements mentorship.SessionRepository.
type SessionRepo struct {
	s *Store
}

func cloneSession(s *mentorship.Session) *mentorship.Session {
	c := *s
	for _, p := range []**time.Time{&c.ConfirmedAt, &c.CompletedAt, &c.CancelledAt} {
		if *p != nil {
			t := **p
			*p = &t
		}
	}
	return &c
}

// Create implements mentorship.SessionRepository.
func (r *SessionRepo) Create(ctx context.Context, session *mentorship.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if session.RequestID != "" {
		for _, existing := range r.s.st.sessions {
			if existing.RequestID == session.RequestID {
				return mentorship.ErrSessionAlreadyProposed
			}
		}
	}
	r.s.st.sessions[session.ID] = cloneSession(session)
	return nil
}

// Confirm implements mentorship.SessionRepository.
func (r *SessionRepo) Confirm(ctx context.Context, id, meetingLink string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	session, ok := r.s.st.sessions[id]
	if !ok {
		return mentorship.ErrSessionNotFound
	}
	if session.Status != mentorship.SessionPendingConfirmation {
		return mentorship.ErrSessionNotPending
	}
	for _, other := range r.s.st.sessions {
		if other.MeetingLink != "" && other.MeetingLink == meetingLink {
			return mentorship.ErrMeetingLinkTaken
		}
	}

	session.Status = mentorship.SessionConfirmed
	session.MeetingLink = meetingLink
	session.ConfirmedAt = &at
	return nil
}

// Transition implements mentorship.SessionRepository.
func (r *SessionRepo) Transition(ctx context.Context, id string, from, to mentorship.SessionStatus, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	session, ok := r.s.st.sessions[id]
	if !ok {
		return mentorship.ErrSessionNotFound
	}
	if session.Status != from {
		return transitionError(from)
	}

	session.Status = to
	switch to {
	case mentorship.SessionCompleted:
		session.CompletedAt = &at
	case mentorship.SessionCancelled:
		session.CancelledAt = &at
	}
	return nil
}

// transitionError names the guard that failed for a given expected state.
func transitionError(from mentorship.SessionStatus) error {
	if from == mentorship.SessionConfirmed {
		return mentorship.ErrSessionNotConfirmed
	}
	return mentorship.ErrSessionNotPending
}

// UpdateContent implements mentorship.SessionRepository.
func (r *SessionRepo) UpdateContent(ctx context.Context, id, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	session, ok := r.s.st.sessions[id]
	if !ok {
		return mentorship.ErrSessionNotFound
	}
	session.Content = content
	return nil
}

// GetByID implements mentorship.SessionRepository.
func (r *SessionRepo) GetByID(ctx context.Context, id string) (*mentorship.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	session, ok := r.s.st.sessions[id]
	if !ok {
		return nil, mentorship.ErrSessionNotFound
	}
	return cloneSession(session), nil
}

// ExistsForRequest implements mentorship.SessionRepository.
func (r *SessionRepo) ExistsForRequest(ctx context.Context, requestID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, s := range r.s.st.sessions {
		if s.RequestID == requestID {
			return true, nil
		}
	}
	return false, nil
}

func matchSession(s *mentorship.Session, f mentorship.SessionFilter) bool {
	if f.StudentID != "" && s.StudentID != f.StudentID {
		return false
	}
	if f.AlumniID != "" && s.AlumniID != f.AlumniID {
		return false
	}
	if f.Status != "" && s.Status != f.Status {
		return false
	}
	return true
}

// List implements mentorship.SessionRepository.
func (r *SessionRepo) List(ctx context.Context, filter mentorship.SessionFilter) ([]*mentorship.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*mentorship.Session, 0)
	for _, s := range r.s.st.sessions {
		if !matchSession(s, filter) {
			continue
		}
		c := cloneSession(s)
		c.StudentName = r.s.studentName(s.StudentID)
		c.AlumniName = r.s.alumniName(s.AlumniID)
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date.Equal(out[j].Date) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].Date.After(out[j].Date)
	})
	return out, nil
}

// Count implements mentorship.SessionRepository.
func (r *SessionRepo) Count(ctx context.Context, filter mentorship.SessionFilter) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	n := 0
	for _, s := range r.s.st.sessions {
		if matchSession(s, filter) {
			n++
		}
	}
	return n, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// FEEDBACK
// ══════════════════════════════════════════════════════════════════════════════

// FeedbackRepo implements mentorship.FeedbackRepository.
type FeedbackRepo struct {
	s *Store
}

// Create implements mentorship.FeedbackRepository.
func (r *FeedbackRepo) Create(ctx context.Context, fb *mentorship.Feedback) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c := *fb
	r.s.st.feedback = append(r.s.st.feedback, &c)
	return nil
}

// Summary implements mentorship.FeedbackRepository.
func (r *FeedbackRepo) Summary(ctx context.Context, alumniID string) (mentorship.RatingSummary, error) {
	if err := ctx.Err(); err != nil {
		return mentorship.RatingSummary{}, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.summaryLocked(alumniID), nil
}

func (r *FeedbackRepo) summaryLocked(alumniID string) mentorship.RatingSummary {
	ratings := make([]mentorship.Rating, 0)
	for _, fb := range r.s.st.feedback {
		if fb.AlumniID == alumniID {
			ratings = append(ratings, fb.Rating)
		}
	}
	return mentorship.SummarizeRatings(alumniID, ratings)
}

// ListByAlumni implements mentorship.FeedbackRepository.
func (r *FeedbackRepo) ListByAlumni(ctx context.Context, alumniID string) ([]*mentorship.Feedback, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*mentorship.Feedback, 0)
	for _, fb := range r.s.st.feedback {
		if fb.AlumniID != alumniID {
			continue
		}
		c := *fb
		c.StudentName = r.s.studentName(fb.StudentID)
		out = append(out, &c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// ListByStudent implements mentorship.FeedbackRepository.
func (r *FeedbackRepo) ListByStudent(ctx context.Context, studentID string) ([]*mentorship.Feedback, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*mentorship.Feedback, 0)
	for _, fb := range r.s.st.feedback {
		if fb.StudentID != studentID {
			continue
		}
		c := *fb
		c.AlumniName = r.s.alumniName(fb.AlumniID)
		out = append(out, &c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
