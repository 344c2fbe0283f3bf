package command

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/alem-hub/mentorship-portal/internal/domain/mentorship"
	"github.com/alem-hub/mentorship-portal/internal/domain/shared"
	"github.com/alem-hub/mentorship-portal/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROPOSE SESSION COMMAND
// Either party of an accepted request proposes the one session it may have.
// The proposer's role is recorded so only the counter-party can confirm.
// ══════════════════════════════════════════════════════════════════════════════

// ProposeSessionCommand contains the proposed date, mode and topics.
type ProposeSessionCommand struct {
	Actor     shared.Actor
	RequestID string `validate:"required"`
	Date      time.Time
	Mode      string `validate:"required"`
	Topics    string `validate:"max=2000"`
}

// ProposeSessionHandler handles the ProposeSessionCommand.
type ProposeSessionHandler struct {
	requests mentorship.RequestRepository
	sessions mentorship.SessionRepository
	events   publisher
	log      *logger.Logger
	now      Clock
}

// NewProposeSessionHandler creates a new ProposeSessionHandler.
func NewProposeSessionHandler(
	requests mentorship.RequestRepository,
	sessions mentorship.SessionRepository,
	eventPublisher shared.EventPublisher,
	log *logger.Logger,
) *ProposeSessionHandler {
	log = orNop(log).With(logger.Component("propose_session"))
	return &ProposeSessionHandler{
		requests: requests,
		sessions: sessions,
		events:   publisher{bus: eventPublisher, log: log},
		log:      log,
		now:      systemClock,
	}
}

// WithClock overrides the time source.
func (h *ProposeSessionHandler) WithClock(c Clock) *ProposeSessionHandler {
	h.now = orSystem(c)
	return h
}

// Handle executes the command.
func (h *ProposeSessionHandler) Handle(ctx context.Context, cmd ProposeSessionCommand) (*mentorship.Session, error) {
	if err := validateCommand("ProposeSession", cmd); err != nil {
		return nil, err
	}
	mode, err := mentorship.ParseMode(cmd.Mode)
	if err != nil {
		return nil, err
	}

	req, err := h.requests.GetByID(ctx, cmd.RequestID)
	if err != nil {
		return nil, fmt.Errorf("propose_session: %w", err)
	}
	if !req.IsParty(cmd.Actor) {
		return nil, mentorship.ErrNotParty
	}
	if req.Status != mentorship.RequestAccepted {
		return nil, mentorship.ErrRequestNotAccepted
	}

	linked, err := h.sessions.ExistsForRequest(ctx, req.ID)
	if err != nil {
		return nil, fmt.Errorf("propose_session: check linked session: %w", err)
	}
	if !req.IsReadyToPropose(linked) {
		return nil, mentorship.ErrSessionAlreadyProposed
	}

	session, err := mentorship.NewSession(mentorship.NewSessionParams{
		ID:         uuid.NewString(),
		RequestID:  req.ID,
		StudentID:  req.StudentID,
		AlumniID:   req.AlumniID,
		Date:       cmd.Date,
		Mode:       mode,
		Topics:     cmd.Topics,
		ProposedBy: cmd.Actor.Role,
		CreatedAt:  h.now(),
	})
	if err != nil {
		return nil, err
	}

	// A racing proposal for the same request loses here.
	if err := h.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("propose_session: %w", err)
	}

	h.log.Info("session proposed",
		logger.SessionID(session.ID),
		logger.RequestID(req.ID),
		logger.Role(string(cmd.Actor.Role)),
	)
	h.events.publish(shared.NewSessionEvent(shared.EventSessionProposed,
		session.ID, session.RequestID, session.StudentID, session.AlumniID, cmd.Actor.Role))
	return session, nil
}
