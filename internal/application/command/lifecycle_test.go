package command

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/mentorship-portal/internal/domain/mentorship"
	"github.com/alem-hub/mentorship-portal/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REQUESTS
// ══════════════════════════════════════════════════════════════════════════════

func TestCreateRequest_DeclineThenRequestAgain(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	first, err := f.create.Handle(ctx, CreateRequestCommand{Actor: student, AlumniID: "a1", Message: "Hi"})
	require.NoError(t, err)
	assert.Equal(t, mentorship.RequestPending, first.Status)

	_, err = f.create.Handle(ctx, CreateRequestCommand{Actor: student, AlumniID: "a1"})
	assert.ErrorIs(t, err, shared.ErrDuplicateActiveRequest)

	decided, err := f.decide.Handle(ctx, DecideRequestCommand{Actor: alumnus, RequestID: first.ID, Decision: "declined"})
	require.NoError(t, err)
	assert.Equal(t, mentorship.RequestDeclined, decided.Status)
	require.NotNil(t, decided.DecidedAt)

	second, err := f.create.Handle(ctx, CreateRequestCommand{Actor: student, AlumniID: "a1", Message: "Hi again"})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, mentorship.RequestPending, second.Status)
}

func TestCreateRequest_AcceptedStillBlocks(t *testing.T) {
	f := newFixture(t)
	f.acceptedRequest(t)

	_, err := f.create.Handle(context.Background(), CreateRequestCommand{Actor: student, AlumniID: "a1"})
	assert.ErrorIs(t, err, shared.ErrDuplicateActiveRequest)
}

func TestCreateRequest_Guards(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	tests := []struct {
		name string
		cmd  CreateRequestCommand
		kind error
	}{
		{"alumni cannot request", CreateRequestCommand{Actor: alumnus, AlumniID: "a1"}, shared.ErrForbidden},
		{"unapproved alumnus", CreateRequestCommand{Actor: student, AlumniID: "a2"}, shared.ErrNotFound},
		{"unknown alumnus", CreateRequestCommand{Actor: student, AlumniID: "nope"}, shared.ErrNotFound},
		{"missing alumnus", CreateRequestCommand{Actor: student}, shared.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.create.Handle(ctx, tt.cmd)
			assert.ErrorIs(t, err, tt.kind)
		})
	}
	assert.Empty(t, f.bus.types())
}

func TestCreateRequest_Concurrent(t *testing.T) {
	f := newFixture(t)

	const n = 24
	var ok, dup int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.create.Handle(context.Background(), CreateRequestCommand{Actor: student, AlumniID: "a1"})
			switch {
			case err == nil:
				atomic.AddInt32(&ok, 1)
			case errors.Is(err, shared.ErrDuplicateActiveRequest):
				atomic.AddInt32(&dup, 1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.EqualValues(t, 1, ok)
	assert.EqualValues(t, n-1, dup)
}

func TestDecideRequest_Guards(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	req, err := f.create.Handle(ctx, CreateRequestCommand{Actor: student, AlumniID: "a1"})
	require.NoError(t, err)

	_, err = f.decide.Handle(ctx, DecideRequestCommand{Actor: student, RequestID: req.ID, Decision: "accepted"})
	assert.ErrorIs(t, err, shared.ErrForbidden)

	_, err = f.decide.Handle(ctx, DecideRequestCommand{Actor: alumnus, RequestID: req.ID, Decision: "pending"})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = f.decide.Handle(ctx, DecideRequestCommand{Actor: alumnus, RequestID: "missing", Decision: "accepted"})
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = f.decide.Handle(ctx, DecideRequestCommand{Actor: alumnus, RequestID: req.ID, Decision: "accepted"})
	require.NoError(t, err)
	_, err = f.decide.Handle(ctx, DecideRequestCommand{Actor: alumnus, RequestID: req.ID, Decision: "declined"})
	assert.ErrorIs(t, err, shared.ErrInvalidTransition)
}

func TestDecideRequest_Concurrent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	req, err := f.create.Handle(ctx, CreateRequestCommand{Actor: student, AlumniID: "a1"})
	require.NoError(t, err)

	const n = 16
	var ok int32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		decision := "accepted"
		if i%2 == 1 {
			decision = "declined"
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.decide.Handle(ctx, DecideRequestCommand{Actor: alumnus, RequestID: req.ID, Decision: decision}); err == nil {
				atomic.AddInt32(&ok, 1)
			} else {
				assert.ErrorIs(t, err, shared.ErrInvalidTransition)
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, ok)
}

// ══════════════════════════════════════════════════════════════════════════════
// SESSIONS
// ══════════════════════════════════════════════════════════════════════════════

func TestProposeSession_RequiresAccepted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	req, err := f.create.Handle(ctx, CreateRequestCommand{Actor: student, AlumniID: "a1"})
	require.NoError(t, err)

	_, err = f.propose.Handle(ctx, ProposeSessionCommand{
		Actor: student, RequestID: req.ID, Date: time.Now(), Mode: "online",
	})
	assert.ErrorIs(t, err, shared.ErrInvalidTransition)
	assert.ErrorIs(t, err, mentorship.ErrRequestNotAccepted)
}

func TestProposeSession_OncePerRequest(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	req := f.acceptedRequest(t)
	cmd := ProposeSessionCommand{Actor: student, RequestID: req.ID, Date: time.Now(), Mode: "in-person", Topics: "career"}

	s, err := f.propose.Handle(ctx, cmd)
	require.NoError(t, err)
	assert.Equal(t, mentorship.ModeInPerson, s.Mode)
	assert.Equal(t, shared.RoleStudent, s.ProposedBy)
	assert.Empty(t, s.MeetingLink)

	cmd.Actor = alumnus
	_, err = f.propose.Handle(ctx, cmd)
	assert.ErrorIs(t, err, mentorship.ErrSessionAlreadyProposed)
}

func TestProposeSession_Guards(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	req := f.acceptedRequest(t)

	_, err := f.propose.Handle(ctx, ProposeSessionCommand{Actor: outsider, RequestID: req.ID, Date: time.Now(), Mode: "online"})
	assert.ErrorIs(t, err, shared.ErrForbidden)

	_, err = f.propose.Handle(ctx, ProposeSessionCommand{Actor: student, RequestID: req.ID, Date: time.Now(), Mode: "carrier pigeon"})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = f.propose.Handle(ctx, ProposeSessionCommand{Actor: student, RequestID: req.ID, Mode: "online"})
	assert.ErrorIs(t, err, mentorship.ErrSessionDateRequired)
}

func TestProposeSession_ConcurrentBothParties(t *testing.T) {
	f := newFixture(t)
	req := f.acceptedRequest(t)

	const n = 20
	var ok int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		actor := student
		if i%2 == 1 {
			actor = alumnus
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.propose.Handle(context.Background(), ProposeSessionCommand{
				Actor: actor, RequestID: req.ID, Date: time.Now(), Mode: "online",
			})
			if err == nil {
				atomic.AddInt32(&ok, 1)
				return
			}
			assert.ErrorIs(t, err, mentorship.ErrSessionAlreadyProposed)
		}()
	}
	close(start)
	wg.Wait()

	assert.EqualValues(t, 1, ok)
	n2, err := f.store.Sessions().Count(context.Background(), mentorship.SessionFilter{StudentID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, 1, n2)
}

func TestConfirmSession_Asymmetry(t *testing.T) {
	tests := []struct {
		name     string
		proposer shared.Actor
		confirms shared.Actor
		rejected shared.Actor
	}{
		{"student proposes", student, alumnus, student},
		{"alumnus proposes", alumnus, student, alumnus},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(t)
			s := f.proposedSession(t, tt.proposer)

			_, err := f.confirm.Handle(ctx, ConfirmSessionCommand{Actor: tt.rejected, SessionID: s.ID})
			assert.ErrorIs(t, err, shared.ErrInvalidTransition)
			assert.ErrorIs(t, err, mentorship.ErrConfirmOwnProposal)

			confirmed, err := f.confirm.Handle(ctx, ConfirmSessionCommand{Actor: tt.confirms, SessionID: s.ID})
			require.NoError(t, err)
			assert.Equal(t, mentorship.SessionConfirmed, confirmed.Status)
			assert.NotEmpty(t, confirmed.MeetingLink)
		})
	}
}

func TestConfirmSession_OutsiderForbidden(t *testing.T) {
	f := newFixture(t)
	s := f.proposedSession(t, student)

	_, err := f.confirm.Handle(context.Background(), ConfirmSessionCommand{Actor: outsider, SessionID: s.ID})
	assert.ErrorIs(t, err, shared.ErrForbidden)
}

func TestConfirmSession_LinkIsStable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.proposedSession(t, student)

	confirmed, err := f.confirm.Handle(ctx, ConfirmSessionCommand{Actor: alumnus, SessionID: s.ID})
	require.NoError(t, err)

	_, err = f.confirm.Handle(ctx, ConfirmSessionCommand{Actor: alumnus, SessionID: s.ID})
	assert.ErrorIs(t, err, mentorship.ErrSessionNotPending)

	completed, err := f.sessions.Complete(ctx, CompleteSessionCommand{Actor: student, SessionID: s.ID})
	require.NoError(t, err)
	assert.Equal(t, confirmed.MeetingLink, completed.MeetingLink)

	stored, err := f.store.Sessions().GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, confirmed.MeetingLink, stored.MeetingLink)
	assert.True(t, stored.LinkInvariantHolds())
}

func TestConfirmSession_RetriesOnLinkCollision(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	first := f.proposedSession(t, student)

	links := &stubLinks{links: []string{"https://meet/taken", "https://meet/taken", "https://meet/fresh"}}
	f.confirm = NewConfirmSessionHandler(f.store.Sessions(), links, f.bus, nil)

	_, err := f.confirm.Handle(ctx, ConfirmSessionCommand{Actor: alumnus, SessionID: first.ID})
	require.NoError(t, err)

	second := f.proposedSessionFor(t, outsider, alumnus, outsider)

	got, err := f.confirm.Handle(ctx, ConfirmSessionCommand{Actor: alumnus, SessionID: second.ID})
	require.NoError(t, err)
	assert.Equal(t, "https://meet/fresh", got.MeetingLink)
}

func TestConfirmSession_GivesUpAfterRepeatedCollisions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	first := f.proposedSession(t, student)

	links := &stubLinks{links: []string{"dup", "dup", "dup", "dup"}}
	f.confirm = NewConfirmSessionHandler(f.store.Sessions(), links, f.bus, nil)
	_, err := f.confirm.Handle(ctx, ConfirmSessionCommand{Actor: alumnus, SessionID: first.ID})
	require.NoError(t, err)

	second := f.proposedSessionFor(t, outsider, alumnus, outsider)
	_, err = f.confirm.Handle(ctx, ConfirmSessionCommand{Actor: alumnus, SessionID: second.ID})
	assert.ErrorIs(t, err, mentorship.ErrMeetingLinkTaken)

	stored, err := f.store.Sessions().GetByID(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, mentorship.SessionPendingConfirmation, stored.Status)
	assert.Empty(t, stored.MeetingLink)
}

func TestConfirmSession_Concurrent(t *testing.T) {
	f := newFixture(t)
	s := f.proposedSession(t, student)

	const n = 16
	var ok int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.confirm.Handle(context.Background(), ConfirmSessionCommand{Actor: alumnus, SessionID: s.ID})
			if err == nil {
				atomic.AddInt32(&ok, 1)
				return
			}
			assert.ErrorIs(t, err, shared.ErrInvalidTransition)
		}()
	}
	close(start)
	wg.Wait()

	assert.EqualValues(t, 1, ok)
}

func TestSessionLifecycle_IsMonotonic(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.proposedSession(t, alumnus)

	_, err := f.sessions.Complete(ctx, CompleteSessionCommand{Actor: student, SessionID: s.ID})
	assert.ErrorIs(t, err, mentorship.ErrSessionNotConfirmed)

	_, err = f.confirm.Handle(ctx, ConfirmSessionCommand{Actor: student, SessionID: s.ID})
	require.NoError(t, err)

	_, err = f.sessions.Cancel(ctx, CancelSessionCommand{Actor: student, SessionID: s.ID})
	assert.ErrorIs(t, err, shared.ErrInvalidTransition)

	_, err = f.sessions.Complete(ctx, CompleteSessionCommand{Actor: alumnus, SessionID: s.ID})
	require.NoError(t, err)

	for _, attempt := range []func() error{
		func() error {
			_, err := f.confirm.Handle(ctx, ConfirmSessionCommand{Actor: student, SessionID: s.ID})
			return err
		},
		func() error {
			_, err := f.sessions.Complete(ctx, CompleteSessionCommand{Actor: student, SessionID: s.ID})
			return err
		},
		func() error {
			_, err := f.sessions.Cancel(ctx, CancelSessionCommand{Actor: alumnus, SessionID: s.ID})
			return err
		},
	} {
		assert.ErrorIs(t, attempt(), shared.ErrInvalidTransition)
	}

	stored, err := f.store.Sessions().GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, mentorship.SessionCompleted, stored.Status)
}

func TestCancelSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.proposedSession(t, student)

	_, err := f.sessions.Cancel(ctx, CancelSessionCommand{Actor: outsider, SessionID: s.ID})
	assert.ErrorIs(t, err, shared.ErrForbidden)

	cancelled, err := f.sessions.Cancel(ctx, CancelSessionCommand{Actor: alumnus, SessionID: s.ID})
	require.NoError(t, err)
	assert.Equal(t, mentorship.SessionCancelled, cancelled.Status)
	assert.Empty(t, cancelled.MeetingLink)
	assert.True(t, cancelled.LinkInvariantHolds())

	_, err = f.confirm.Handle(ctx, ConfirmSessionCommand{Actor: alumnus, SessionID: s.ID})
	assert.ErrorIs(t, err, shared.ErrInvalidTransition)

	// The request keeps its session link and cannot be proposed again.
	ready, err := f.store.Requests().ListReadyToPropose(ctx, mentorship.RequestFilter{StudentID: "s1"})
	require.NoError(t, err)
	assert.Empty(t, ready)
}

func TestRecordContent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.proposedSession(t, student)

	err := f.content.Handle(ctx, RecordContentCommand{Actor: student, SessionID: s.ID, Content: "my notes"})
	assert.ErrorIs(t, err, mentorship.ErrNotMentor)

	// Allowed in every state, including after cancellation.
	require.NoError(t, f.content.Handle(ctx, RecordContentCommand{Actor: alumnus, SessionID: s.ID, Content: "agenda"}))
	_, err = f.sessions.Cancel(ctx, CancelSessionCommand{Actor: student, SessionID: s.ID})
	require.NoError(t, err)
	require.NoError(t, f.content.Handle(ctx, RecordContentCommand{Actor: alumnus, SessionID: s.ID, Content: "  follow-up  "}))

	stored, err := f.store.Sessions().GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "follow-up", stored.Content)
}

// ══════════════════════════════════════════════════════════════════════════════
// FEEDBACK & END-TO-END
// ══════════════════════════════════════════════════════════════════════════════

func TestSubmitFeedback_RatingBounds(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	for _, rating := range []int{0, 6, -1} {
		_, err := f.feedback.Handle(ctx, SubmitFeedbackCommand{Actor: student, AlumniID: "a1", Rating: rating})
		assert.ErrorIs(t, err, shared.ErrInvalidRating, "rating %d", rating)
	}

	// The rating check runs before anything else.
	_, err := f.feedback.Handle(ctx, SubmitFeedbackCommand{Actor: alumnus, AlumniID: "nope", Rating: 9})
	assert.ErrorIs(t, err, shared.ErrInvalidRating)

	_, err = f.feedback.Handle(ctx, SubmitFeedbackCommand{Actor: student, AlumniID: "a1", Rating: 3})
	require.NoError(t, err)

	_, err = f.feedback.Handle(ctx, SubmitFeedbackCommand{Actor: alumnus, AlumniID: "a1", Rating: 3})
	assert.ErrorIs(t, err, shared.ErrForbidden)
}

func TestEndToEnd_RequestToRating(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	empty, err := f.store.Feedback().Summary(ctx, "a1")
	require.NoError(t, err)
	assert.False(t, empty.HasRatings)
	assert.Zero(t, empty.Value)

	req, err := f.create.Handle(ctx, CreateRequestCommand{Actor: student, AlumniID: "a1", Message: "Hi"})
	require.NoError(t, err)
	_, err = f.decide.Handle(ctx, DecideRequestCommand{Actor: alumnus, RequestID: req.ID, Decision: "accepted"})
	require.NoError(t, err)

	s, err := f.propose.Handle(ctx, ProposeSessionCommand{
		Actor: student, RequestID: req.ID,
		Date: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), Mode: "Online", Topics: "resume review",
	})
	require.NoError(t, err)
	assert.Equal(t, mentorship.SessionPendingConfirmation, s.Status)
	assert.Equal(t, shared.RoleStudent, s.ProposedBy)

	s, err = f.confirm.Handle(ctx, ConfirmSessionCommand{Actor: alumnus, SessionID: s.ID})
	require.NoError(t, err)
	assert.Equal(t, mentorship.SessionConfirmed, s.Status)
	assert.NotEmpty(t, s.MeetingLink)

	s, err = f.sessions.Complete(ctx, CompleteSessionCommand{Actor: student, SessionID: s.ID})
	require.NoError(t, err)
	assert.Equal(t, mentorship.SessionCompleted, s.Status)

	_, err = f.feedback.Handle(ctx, SubmitFeedbackCommand{Actor: student, AlumniID: "a1", Rating: 5, Comments: "great"})
	require.NoError(t, err)

	summary, err := f.store.Feedback().Summary(ctx, "a1")
	require.NoError(t, err)
	assert.True(t, summary.HasRatings)
	assert.Equal(t, 5.0, summary.Value)

	assert.Equal(t, []shared.EventType{
		shared.EventRequestCreated,
		shared.EventRequestDecided,
		shared.EventSessionProposed,
		shared.EventSessionConfirmed,
		shared.EventSessionCompleted,
		shared.EventFeedbackSubmitted,
	}, f.bus.types())
}

func TestPublishFailureDoesNotFailCommand(t *testing.T) {
	f := newFixture(t)
	f.bus.fail = true

	_, err := f.create.Handle(context.Background(), CreateRequestCommand{Actor: student, AlumniID: "a1"})
	assert.NoError(t, err)
}

func TestClockIsUsedForTimestamps(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	pinned := time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)
	f.create.WithClock(func() time.Time { return pinned })
	f.decide.WithClock(func() time.Time { return pinned.Add(time.Hour) })

	req, err := f.create.Handle(ctx, CreateRequestCommand{Actor: student, AlumniID: "a1"})
	require.NoError(t, err)
	assert.Equal(t, pinned, req.CreatedAt)

	req, err = f.decide.Handle(ctx, DecideRequestCommand{Actor: alumnus, RequestID: req.ID, Decision: "accepted"})
	require.NoError(t, err)
	assert.Equal(t, pinned.Add(time.Hour), *req.DecidedAt)
}
