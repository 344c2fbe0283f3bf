package command

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/alem-hub/mentorship-portal/internal/domain/directory"
	"github.com/alem-hub/mentorship-portal/internal/domain/mentorship"
	"github.com/alem-hub/mentorship-portal/internal/domain/shared"
	"github.com/alem-hub/mentorship-portal/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// CREATE REQUEST COMMAND
// A student asks an approved alumnus for mentorship. At most one pending or
// accepted request may exist per pair.
// ══════════════════════════════════════════════════════════════════════════════

// CreateRequestCommand contains the data to open a mentorship request.
type CreateRequestCommand struct {
	Actor    shared.Actor
	AlumniID string `validate:"required"`
	Message  string `validate:"max=2000"`
}

// CreateRequestHandler handles the CreateRequestCommand.
type CreateRequestHandler struct {
	requests  mentorship.RequestRepository
	directory directory.Repository
	events    publisher
	log       *logger.Logger
	now       Clock
}

// NewCreateRequestHandler creates a new CreateRequestHandler.
func NewCreateRequestHandler(
	requests mentorship.RequestRepository,
	dir directory.Repository,
	eventPublisher shared.EventPublisher,
	log *logger.Logger,
) *CreateRequestHandler {
	log = orNop(log).With(logger.Component("create_request"))
	return &CreateRequestHandler{
		requests:  requests,
		directory: dir,
		events:    publisher{bus: eventPublisher, log: log},
		log:       log,
		now:       systemClock,
	}
}

// WithClock overrides the time source.
func (h *CreateRequestHandler) WithClock(c Clock) *CreateRequestHandler {
	h.now = orSystem(c)
	return h
}

// Handle executes the command.
func (h *CreateRequestHandler) Handle(ctx context.Context, cmd CreateRequestCommand) (*mentorship.Request, error) {
	if err := validateCommand("CreateRequest", cmd); err != nil {
		return nil, err
	}
	if !cmd.Actor.IsStudent() {
		return nil, mentorship.ErrStudentsOnly
	}

	alumnus, err := h.directory.GetAlumni(ctx, cmd.AlumniID)
	if err != nil {
		return nil, fmt.Errorf("create_request: %w", err)
	}
	// An alumnus still waiting for approval is not visible to students.
	if !alumnus.CanMentor() {
		return nil, directory.ErrAlumniNotFound
	}

	// Fast path; the store's unique index is the real guard.
	active, err := h.requests.HasActive(ctx, cmd.Actor.UserID, cmd.AlumniID)
	if err != nil {
		return nil, fmt.Errorf("create_request: check active: %w", err)
	}
	if active {
		return nil, mentorship.ErrDuplicateActiveRequest
	}

	req, err := mentorship.NewRequest(mentorship.NewRequestParams{
		ID:        uuid.NewString(),
		StudentID: cmd.Actor.UserID,
		AlumniID:  cmd.AlumniID,
		Message:   cmd.Message,
		CreatedAt: h.now(),
	})
	if err != nil {
		return nil, err
	}

	if err := h.requests.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("create_request: %w", err)
	}

	h.log.Info("mentorship request created",
		logger.RequestID(req.ID),
		logger.StudentID(req.StudentID),
		logger.AlumniID(req.AlumniID),
	)
	h.events.publish(shared.NewRequestCreatedEvent(req.ID, req.StudentID, req.AlumniID))
	return req, nil
}
