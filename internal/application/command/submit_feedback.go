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
// SUBMIT FEEDBACK COMMAND
// A student rates an alumnus. Feedback is keyed by student, alumnus and date
// only, so it does not require a completed session.
// ══════════════════════════════════════════════════════════════════════════════

// SubmitFeedbackCommand contains a rating from 1 to 5 and optional comments.
type SubmitFeedbackCommand struct {
	Actor    shared.Actor
	AlumniID string `validate:"required"`
	Rating   int
	Comments string `validate:"max=5000"`
}

// SubmitFeedbackHandler handles the SubmitFeedbackCommand.
type SubmitFeedbackHandler struct {
	feedback  mentorship.FeedbackRepository
	directory directory.Repository
	events    publisher
	log       *logger.Logger
	now       Clock
}

// NewSubmitFeedbackHandler creates a new SubmitFeedbackHandler.
func NewSubmitFeedbackHandler(
	feedback mentorship.FeedbackRepository,
	dir directory.Repository,
	eventPublisher shared.EventPublisher,
	log *logger.Logger,
) *SubmitFeedbackHandler {
	log = orNop(log).With(logger.Component("submit_feedback"))
	return &SubmitFeedbackHandler{
		feedback:  feedback,
		directory: dir,
		events:    publisher{bus: eventPublisher, log: log},
		log:       log,
		now:       systemClock,
	}
}

// WithClock overrides the time source.
func (h *SubmitFeedbackHandler) WithClock(c Clock) *SubmitFeedbackHandler {
	h.now = orSystem(c)
	return h
}

// Handle executes the command.
func (h *SubmitFeedbackHandler) Handle(ctx context.Context, cmd SubmitFeedbackCommand) (*mentorship.Feedback, error) {
	// The rating is rejected before anything else is looked at.
	if _, err := mentorship.NewRating(cmd.Rating); err != nil {
		return nil, err
	}
	if err := validateCommand("SubmitFeedback", cmd); err != nil {
		return nil, err
	}
	if !cmd.Actor.IsStudent() {
		return nil, mentorship.ErrStudentsOnly
	}

	if _, err := h.directory.GetAlumni(ctx, cmd.AlumniID); err != nil {
		return nil, fmt.Errorf("submit_feedback: %w", err)
	}

	fb, err := mentorship.NewFeedback(mentorship.NewFeedbackParams{
		ID:        uuid.NewString(),
		StudentID: cmd.Actor.UserID,
		AlumniID:  cmd.AlumniID,
		Rating:    cmd.Rating,
		Comments:  cmd.Comments,
		CreatedAt: h.now(),
	})
	if err != nil {
		return nil, err
	}
	if err := h.feedback.Create(ctx, fb); err != nil {
		return nil, fmt.Errorf("submit_feedback: %w", err)
	}

	h.log.Info("feedback submitted",
		logger.AlumniID(fb.AlumniID),
		logger.StudentID(fb.StudentID),
		logger.Int("rating", fb.Rating.Int()),
	)
	h.events.publish(shared.NewFeedbackSubmittedEvent(fb.StudentID, fb.AlumniID, fb.Rating.Int()))
	return fb, nil
}
