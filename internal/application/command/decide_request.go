package command

import (
	"context"
	"fmt"

	"github.com/alem-hub/mentorship-portal/internal/domain/mentorship"
	"github.com/alem-hub/mentorship-portal/internal/domain/shared"
	"github.com/alem-hub/mentorship-portal/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// DECIDE REQUEST COMMAND
// The target alumnus accepts or declines a pending request, exactly once.
// ══════════════════════════════════════════════════════════════════════════════

// DecideRequestCommand carries the alumnus' decision.
type DecideRequestCommand struct {
	Actor     shared.Actor
	RequestID string `validate:"required"`
	// Decision is "accepted" or "declined", any casing.
	Decision string `validate:"required"`
}

// DecideRequestHandler handles the DecideRequestCommand.
type DecideRequestHandler struct {
	requests mentorship.RequestRepository
	events   publisher
	log      *logger.Logger
	now      Clock
}

// NewDecideRequestHandler creates a new DecideRequestHandler.
func NewDecideRequestHandler(
	requests mentorship.RequestRepository,
	eventPublisher shared.EventPublisher,
	log *logger.Logger,
) *DecideRequestHandler {
	log = orNop(log).With(logger.Component("decide_request"))
	return &DecideRequestHandler{
		requests: requests,
		events:   publisher{bus: eventPublisher, log: log},
		log:      log,
		now:      systemClock,
	}
}

// WithClock overrides the time source.
func (h *DecideRequestHandler) WithClock(c Clock) *DecideRequestHandler {
	h.now = orSystem(c)
	return h
}

// Handle executes the command and returns the decided request.
func (h *DecideRequestHandler) Handle(ctx context.Context, cmd DecideRequestCommand) (*mentorship.Request, error) {
	if err := validateCommand("DecideRequest", cmd); err != nil {
		return nil, err
	}

	decision, err := mentorship.ParseRequestStatus(cmd.Decision)
	if err != nil {
		return nil, err
	}
	if !decision.IsDecision() {
		return nil, mentorship.ErrInvalidDecision
	}

	req, err := h.requests.GetByID(ctx, cmd.RequestID)
	if err != nil {
		return nil, fmt.Errorf("decide_request: %w", err)
	}
	if !cmd.Actor.Is(req.AlumniID, shared.RoleAlumni) {
		return nil, mentorship.ErrNotParty
	}

	// Checks the local copy first so the common error needs no write.
	at := h.now()
	if err := req.Decide(decision, at); err != nil {
		return nil, err
	}
	if err := h.requests.Decide(ctx, req.ID, decision, at); err != nil {
		return nil, fmt.Errorf("decide_request: %w", err)
	}

	h.log.Info("mentorship request decided",
		logger.RequestID(req.ID),
		logger.String("decision", string(decision)),
	)
	h.events.publish(shared.NewRequestDecidedEvent(req.ID, req.StudentID, req.AlumniID, string(decision)))
	return req, nil
}
