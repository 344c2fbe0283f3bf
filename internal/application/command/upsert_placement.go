package command

import (
	"context"
	"fmt"
	"time"

	"github.com/alem-hub/mentorship-portal/internal/domain/directory"
	"github.com/alem-hub/mentorship-portal/internal/domain/placement"
	"github.com/alem-hub/mentorship-portal/internal/domain/shared"
	"github.com/alem-hub/mentorship-portal/pkg/logger"
)

// UpsertPlacementCommand records a student's placement status.
type UpsertPlacementCommand struct {
	Actor     shared.Actor
	StudentID string `validate:"required"`
	IsPlaced  bool
	Company   string `validate:"max=200"`
	Date      time.Time
}

// UpsertPlacementResult reports whether the placement log was appended.
type UpsertPlacementResult struct {
	Placement *placement.Placement
	Logged    bool
}

// UpsertPlacementHandler handles the UpsertPlacementCommand.
type UpsertPlacementHandler struct {
	placements placement.Repository
	directory  directory.Repository
	events     publisher
	log        *logger.Logger
}

// NewUpsertPlacementHandler creates a new UpsertPlacementHandler.
func NewUpsertPlacementHandler(
	placements placement.Repository,
	dir directory.Repository,
	eventPublisher shared.EventPublisher,
	log *logger.Logger,
) *UpsertPlacementHandler {
	log = orNop(log).With(logger.Component("upsert_placement"))
	return &UpsertPlacementHandler{
		placements: placements,
		directory:  dir,
		events:     publisher{bus: eventPublisher, log: log},
		log:        log,
	}
}

// Handle executes the command.
func (h *UpsertPlacementHandler) Handle(ctx context.Context, cmd UpsertPlacementCommand) (*UpsertPlacementResult, error) {
	if err := validateCommand("UpsertPlacement", cmd); err != nil {
		return nil, err
	}
	if !cmd.Actor.IsAdmin() {
		return nil, directory.ErrAdminOnly
	}

	if _, err := h.directory.GetStudent(ctx, cmd.StudentID); err != nil {
		return nil, fmt.Errorf("upsert_placement: %w", err)
	}

	p, err := placement.NewPlacement(cmd.StudentID, cmd.IsPlaced, cmd.Company, cmd.Date)
	if err != nil {
		return nil, err
	}
	logged, err := h.placements.Upsert(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("upsert_placement: %w", err)
	}

	h.log.Info("placement recorded",
		logger.StudentID(p.StudentID),
		logger.Bool("is_placed", p.IsPlaced),
		logger.Bool("logged", logged),
	)
	h.events.publish(shared.NewPlacementRecordedEvent(p.StudentID, p.IsPlaced, p.Company, logged))
	return &UpsertPlacementResult{Placement: p, Logged: logged}, nil
}
