package mentorship

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/mentorship-portal/internal/domain/shared"
)

func newTestRequest(t *testing.T) *Request {
	t.Helper()
	req, err := NewRequest(NewRequestParams{
		ID:        "req-1",
		StudentID: "stu-1",
		AlumniID:  "alu-1",
		Message:   "  Hi  ",
	})
	require.NoError(t, err)
	return req
}

func newTestSession(t *testing.T, proposer shared.Role) *Session {
	t.Helper()
	s, err := NewSession(NewSessionParams{
		ID:         "ses-1",
		RequestID:  "req-1",
		StudentID:  "stu-1",
		AlumniID:   "alu-1",
		Date:       time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Mode:       ModeOnline,
		Topics:     "resume review",
		ProposedBy: proposer,
	})
	require.NoError(t, err)
	return s
}

func TestNewRequest(t *testing.T) {
	req := newTestRequest(t)

	assert.Equal(t, RequestPending, req.Status)
	assert.Equal(t, "Hi", req.Message)
	assert.Nil(t, req.DecidedAt)
	assert.False(t, req.CreatedAt.IsZero())

	_, err := NewRequest(NewRequestParams{ID: "x", StudentID: "s"})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestRequest_Decide(t *testing.T) {
	at := time.Date(2024, 4, 2, 10, 0, 0, 0, time.UTC)

	t.Run("accept stamps decision date", func(t *testing.T) {
		req := newTestRequest(t)
		require.NoError(t, req.Decide(RequestAccepted, at))
		assert.Equal(t, RequestAccepted, req.Status)
		require.NotNil(t, req.DecidedAt)
		assert.Equal(t, at, *req.DecidedAt)
	})

	t.Run("no re-decision", func(t *testing.T) {
		req := newTestRequest(t)
		require.NoError(t, req.Decide(RequestDeclined, at))
		err := req.Decide(RequestAccepted, at)
		assert.ErrorIs(t, err, shared.ErrInvalidTransition)
		assert.Equal(t, RequestDeclined, req.Status)
	})

	t.Run("pending is not a decision", func(t *testing.T) {
		req := newTestRequest(t)
		assert.ErrorIs(t, req.Decide(RequestPending, at), shared.ErrInvalidInput)
	})
}

func TestRequestStatus(t *testing.T) {
	assert.True(t, RequestPending.IsActive())
	assert.True(t, RequestAccepted.IsActive())
	assert.False(t, RequestDeclined.IsActive())

	s, err := ParseRequestStatus("Accepted")
	require.NoError(t, err)
	assert.Equal(t, RequestAccepted, s)

	_, err = ParseRequestStatus("archived")
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestRequest_IsParty(t *testing.T) {
	req := newTestRequest(t)

	assert.True(t, req.IsParty(shared.Actor{UserID: "stu-1", Role: shared.RoleStudent}))
	assert.True(t, req.IsParty(shared.Actor{UserID: "alu-1", Role: shared.RoleAlumni}))
	assert.False(t, req.IsParty(shared.Actor{UserID: "stu-1", Role: shared.RoleAlumni}))
	assert.False(t, req.IsParty(shared.Actor{UserID: "stu-2", Role: shared.RoleStudent}))
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want Mode
		ok   bool
	}{
		{"Online", ModeOnline, true},
		{"In-person", ModeInPerson, true},
		{"in person", ModeInPerson, true},
		{"in_person", ModeInPerson, true},
		{"hybrid", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			m, err := ParseMode(tt.in)
			if !tt.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, m)
		})
	}
}

func TestNewSession_Validation(t *testing.T) {
	base := NewSessionParams{
		ID:         "s",
		StudentID:  "stu",
		AlumniID:   "alu",
		Date:       time.Now(),
		Mode:       ModeOnline,
		ProposedBy: shared.RoleStudent,
	}

	noDate := base
	noDate.Date = time.Time{}
	_, err := NewSession(noDate)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	adminProposer := base
	adminProposer.ProposedBy = shared.RoleAdmin
	_, err = NewSession(adminProposer)
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	s, err := NewSession(base)
	require.NoError(t, err)
	assert.Equal(t, SessionPendingConfirmation, s.Status)
	assert.Empty(t, s.MeetingLink)
	assert.True(t, s.LinkInvariantHolds())
}

func TestSession_ConfirmationAsymmetry(t *testing.T) {
	at := time.Now().UTC()

	t.Run("student proposal confirmed by alumnus", func(t *testing.T) {
		s := newTestSession(t, shared.RoleStudent)

		err := s.Confirm(shared.RoleStudent, "https://meet.example.com/abcd-efgh-ijkl", at)
		assert.ErrorIs(t, err, shared.ErrInvalidTransition)
		assert.Equal(t, SessionPendingConfirmation, s.Status)

		require.NoError(t, s.Confirm(shared.RoleAlumni, "https://meet.example.com/abcd-efgh-ijkl", at))
		assert.Equal(t, SessionConfirmed, s.Status)
		assert.NotEmpty(t, s.MeetingLink)
		assert.True(t, s.LinkInvariantHolds())
	})

	t.Run("alumni proposal confirmed by student", func(t *testing.T) {
		s := newTestSession(t, shared.RoleAlumni)

		assert.ErrorIs(t, s.CanConfirm(shared.RoleAlumni), shared.ErrInvalidTransition)
		assert.NoError(t, s.CanConfirm(shared.RoleStudent))
	})

	t.Run("link required", func(t *testing.T) {
		s := newTestSession(t, shared.RoleStudent)
		assert.ErrorIs(t, s.Confirm(shared.RoleAlumni, "", at), shared.ErrInvalidInput)
	})
}

func TestSession_MonotonicLifecycle(t *testing.T) {
	at := time.Now().UTC()
	link := "https://meet.example.com/aaaa-bbbb-cccc"

	s := newTestSession(t, shared.RoleStudent)

	assert.ErrorIs(t, s.Complete(at), shared.ErrInvalidTransition, "cannot complete before confirmation")

	require.NoError(t, s.Confirm(shared.RoleAlumni, link, at))
	assert.ErrorIs(t, s.Cancel(at), shared.ErrInvalidTransition, "cannot cancel once confirmed")
	assert.ErrorIs(t, s.Confirm(shared.RoleAlumni, "other", at), shared.ErrInvalidTransition)
	assert.Equal(t, link, s.MeetingLink, "link is stable")

	require.NoError(t, s.Complete(at))
	assert.Equal(t, SessionCompleted, s.Status)
	assert.True(t, s.LinkInvariantHolds())

	assert.ErrorIs(t, s.Complete(at), shared.ErrInvalidTransition)
	assert.ErrorIs(t, s.Cancel(at), shared.ErrInvalidTransition)
	assert.Equal(t, link, s.MeetingLink)
}

func TestSession_Cancel(t *testing.T) {
	s := newTestSession(t, shared.RoleAlumni)
	at := time.Now().UTC()

	require.NoError(t, s.Cancel(at))
	assert.Equal(t, SessionCancelled, s.Status)
	assert.True(t, s.Status.IsTerminal())
	assert.Empty(t, s.MeetingLink)
	assert.True(t, s.LinkInvariantHolds())

	assert.ErrorIs(t, s.Confirm(shared.RoleStudent, "link", at), shared.ErrInvalidTransition)
}

func TestSession_Roles(t *testing.T) {
	s := newTestSession(t, shared.RoleStudent)

	mentor := shared.Actor{UserID: "alu-1", Role: shared.RoleAlumni}
	student := shared.Actor{UserID: "stu-1", Role: shared.RoleStudent}
	stranger := shared.Actor{UserID: "alu-2", Role: shared.RoleAlumni}

	assert.True(t, s.IsParty(mentor))
	assert.True(t, s.IsParty(student))
	assert.False(t, s.IsParty(stranger))

	assert.True(t, s.IsMentor(mentor))
	assert.False(t, s.IsMentor(student))
}

func TestRating(t *testing.T) {
	for _, v := range []int{0, 6, -1} {
		_, err := NewRating(v)
		assert.ErrorIs(t, err, shared.ErrInvalidRating, "rating %d", v)
	}

	r, err := NewRating(3)
	require.NoError(t, err)
	assert.Equal(t, 3, r.Int())
}

func TestNewFeedback_RatingCheckedFirst(t *testing.T) {
	_, err := NewFeedback(NewFeedbackParams{Rating: 9})
	assert.ErrorIs(t, err, shared.ErrInvalidRating)

	fb, err := NewFeedback(NewFeedbackParams{
		ID:        "fb-1",
		StudentID: "stu-1",
		AlumniID:  "alu-1",
		Rating:    5,
		Comments:  " great ",
	})
	require.NoError(t, err)
	assert.Equal(t, Rating(5), fb.Rating)
	assert.Equal(t, "great", fb.Comments)
}

func TestRatingSummary(t *testing.T) {
	empty := SummarizeRatings("alu-1", nil)
	assert.False(t, empty.HasRatings)
	assert.Zero(t, empty.Value)
	assert.Zero(t, empty.Count)

	s := SummarizeRatings("alu-1", []Rating{5, 4, 4})
	assert.True(t, s.HasRatings)
	assert.Equal(t, 3, s.Count)
	assert.InDelta(t, 4.3333, s.Value, 0.001)
	assert.Equal(t, 4.33, s.Rounded())

	assert.Equal(t, s, NewRatingSummary("alu-1", 13, 3))
}
