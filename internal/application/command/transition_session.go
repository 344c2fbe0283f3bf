package command

import (
	"context"
	"fmt"
	"time"

	"github.com/alem-hub/mentorship-portal/internal/domain/mentorship"
	"github.com/alem-hub/mentorship-portal/internal/domain/shared"
	"github.com/alem-hub/mentorship-portal/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETE / CANCEL SESSION COMMANDS
// Either party may complete a confirmed session or withdraw one that is
// still awaiting confirmation. Both are one-way.
// ══════════════════════════════════════════════════════════════════════════════

// CompleteSessionCommand marks a confirmed session as done.
type CompleteSessionCommand struct {
	Actor     shared.Actor
	SessionID string `validate:"required"`
}

// CancelSessionCommand withdraws a proposal.
type CancelSessionCommand struct {
	Actor     shared.Actor
	SessionID string `validate:"required"`
}

// SessionTransitionHandler handles CompleteSessionCommand and
// CancelSessionCommand.
type SessionTransitionHandler struct {
	sessions mentorship.SessionRepository
	events   publisher
	log      *logger.Logger
	now      Clock
}

// NewSessionTransitionHandler creates a new SessionTransitionHandler.
func NewSessionTransitionHandler(
	sessions mentorship.SessionRepository,
	eventPublisher shared.EventPublisher,
	log *logger.Logger,
) *SessionTransitionHandler {
	log = orNop(log).With(logger.Component("session_transition"))
	return &SessionTransitionHandler{
		sessions: sessions,
		events:   publisher{bus: eventPublisher, log: log},
		log:      log,
		now:      systemClock,
	}
}

// WithClock overrides the time source.
func (h *SessionTransitionHandler) WithClock(c Clock) *SessionTransitionHandler {
	h.now = orSystem(c)
	return h
}

// Complete executes a CompleteSessionCommand.
func (h *SessionTransitionHandler) Complete(ctx context.Context, cmd CompleteSessionCommand) (*mentorship.Session, error) {
	if err := validateCommand("CompleteSession", cmd); err != nil {
		return nil, err
	}
	return h.transition(ctx, cmd.Actor, cmd.SessionID,
		mentorship.SessionConfirmed, mentorship.SessionCompleted,
		(*mentorship.Session).Complete, shared.EventSessionCompleted)
}

// Cancel executes a CancelSessionCommand.
func (h *SessionTransitionHandler) Cancel(ctx context.Context, cmd CancelSessionCommand) (*mentorship.Session, error) {
	if err := validateCommand("CancelSession", cmd); err != nil {
		return nil, err
	}
	return h.transition(ctx, cmd.Actor, cmd.SessionID,
		mentorship.SessionPendingConfirmation, mentorship.SessionCancelled,
		(*mentorship.Session).Cancel, shared.EventSessionCancelled)
}

func (h *SessionTransitionHandler) transition(
	ctx context.Context,
	actor shared.Actor,
	sessionID string,
	from, to mentorship.SessionStatus,
	apply func(*mentorship.Session, time.Time) error,
	eventType shared.EventType,
) (*mentorship.Session, error) {
	session, err := h.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("session_transition: %w", err)
	}
	if !session.IsParty(actor) {
		return nil, mentorship.ErrNotParty
	}

	at := h.now()
	if err := apply(session, at); err != nil {
		return nil, err
	}
	if err := h.sessions.Transition(ctx, session.ID, from, to, at); err != nil {
		return nil, fmt.Errorf("session_transition: %w", err)
	}

	h.log.Info("session transitioned",
		logger.SessionID(session.ID),
		logger.String("from", string(from)),
		logger.String("to", string(to)),
		logger.Role(string(actor.Role)),
	)
	h.events.publish(shared.NewSessionEvent(eventType,
		session.ID, session.RequestID, session.StudentID, session.AlumniID, actor.Role))
	return session, nil
}
