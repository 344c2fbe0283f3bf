package command

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alem-hub/mentorship-portal/internal/domain/directory"
	"github.com/alem-hub/mentorship-portal/internal/domain/mentorship"
	"github.com/alem-hub/mentorship-portal/internal/domain/shared"
	"github.com/alem-hub/mentorship-portal/internal/infrastructure/meeting"
	"github.com/alem-hub/mentorship-portal/internal/infrastructure/persistence/memory"
)

var (
	student = shared.Actor{UserID: "s1", Role: shared.RoleStudent}
	alumnus = shared.Actor{UserID: "a1", Role: shared.RoleAlumni}
	admin   = shared.Actor{UserID: "root", Role: shared.RoleAdmin}
	// outsider is a real student who is not party to s1's mentorships.
	outsider = shared.Actor{UserID: "s2", Role: shared.RoleStudent}
)

// recordingBus captures published events.
type recordingBus struct {
	mu     sync.Mutex
	events []shared.Event
	fail   bool
}

func (b *recordingBus) Publish(e shared.Event) error {
	if b.fail {
		return errors.New("bus down")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
	return nil
}

func (b *recordingBus) types() []shared.EventType {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]shared.EventType, 0, len(b.events))
	for _, e := range b.events {
		out = append(out, e.EventType())
	}
	return out
}

type fixture struct {
	store *memory.Store
	bus   *recordingBus

	create   *CreateRequestHandler
	decide   *DecideRequestHandler
	propose  *ProposeSessionHandler
	confirm  *ConfirmSessionHandler
	sessions *SessionTransitionHandler
	content  *RecordContentHandler
	feedback *SubmitFeedbackHandler
	place    *UpsertPlacementHandler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	dir := store.Directory()

	require.NoError(t, dir.CreateStudent(ctx, &directory.Student{ID: "s1", Name: "Aigerim", Email: "s1@uni.kz"}))
	require.NoError(t, dir.CreateStudent(ctx, &directory.Student{ID: "s2", Name: "Timur", Email: "s2@uni.kz"}))
	require.NoError(t, dir.CreateAlumni(ctx, &directory.Alumni{ID: "a1", Name: "Bolat", Email: "a1@corp.kz", IndustryID: 1}))
	require.NoError(t, dir.CreateAlumni(ctx, &directory.Alumni{ID: "a2", Name: "Unapproved", Email: "a2@corp.kz", IndustryID: 1}))
	require.NoError(t, dir.ApproveAlumni(ctx, "a1"))

	bus := &recordingBus{}
	return &fixture{
		store:    store,
		bus:      bus,
		create:   NewCreateRequestHandler(store.Requests(), dir, bus, nil),
		decide:   NewDecideRequestHandler(store.Requests(), bus, nil),
		propose:  NewProposeSessionHandler(store.Requests(), store.Sessions(), bus, nil),
		confirm:  NewConfirmSessionHandler(store.Sessions(), meeting.NewGenerator("https://meet.example.com"), bus, nil),
		sessions: NewSessionTransitionHandler(store.Sessions(), bus, nil),
		content:  NewRecordContentHandler(store.Sessions(), nil),
		feedback: NewSubmitFeedbackHandler(store.Feedback(), dir, bus, nil),
		place:    NewUpsertPlacementHandler(store.Placements(), dir, bus, nil),
	}
}

// acceptedRequest creates s1→a1 and accepts it.
func (f *fixture) acceptedRequest(t *testing.T) *mentorship.Request {
	t.Helper()
	return f.acceptedRequestFor(t, student, alumnus)
}

func (f *fixture) acceptedRequestFor(t *testing.T, stu, alu shared.Actor) *mentorship.Request {
	t.Helper()
	ctx := context.Background()
	req, err := f.create.Handle(ctx, CreateRequestCommand{Actor: stu, AlumniID: alu.UserID, Message: "Hi"})
	require.NoError(t, err)
	req, err = f.decide.Handle(ctx, DecideRequestCommand{Actor: alu, RequestID: req.ID, Decision: "Accepted"})
	require.NoError(t, err)
	return req
}

// proposedSession proposes a session on a fresh s1→a1 request as by.
func (f *fixture) proposedSession(t *testing.T, by shared.Actor) *mentorship.Session {
	t.Helper()
	return f.proposedSessionFor(t, student, alumnus, by)
}

func (f *fixture) proposedSessionFor(t *testing.T, stu, alu, by shared.Actor) *mentorship.Session {
	t.Helper()
	req := f.acceptedRequestFor(t, stu, alu)
	s, err := f.propose.Handle(context.Background(), ProposeSessionCommand{
		Actor:     by,
		RequestID: req.ID,
		Date:      time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Mode:      "Online",
		Topics:    "resume review",
	})
	require.NoError(t, err)
	return s
}

// stubLinks returns the queued links in order, then fails.
type stubLinks struct {
	mu    sync.Mutex
	links []string
}

func (s *stubLinks) NewLink() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.links) == 0 {
		return "", errors.New("out of links")
	}
	l := s.links[0]
	s.links = s.links[1:]
	return l, nil
}
