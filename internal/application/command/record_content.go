package command

import (
	"context"
	"fmt"
	"strings"

	"github.com/alem-hub/mentorship-portal/internal/domain/mentorship"
	"github.com/alem-hub/mentorship-portal/internal/domain/shared"
	"github.com/alem-hub/mentorship-portal/pkg/logger"
)

// RecordContentCommand overwrites the alumnus' notes on a session. Allowed
// in every session state.
type RecordContentCommand struct {
	Actor     shared.Actor
	SessionID string `validate:"required"`
	Content   string `validate:"max=20000"`
}

// RecordContentHandler handles the RecordContentCommand.
type RecordContentHandler struct {
	sessions mentorship.SessionRepository
	log      *logger.Logger
}

// NewRecordContentHandler creates a new RecordContentHandler.
func NewRecordContentHandler(sessions mentorship.SessionRepository, log *logger.Logger) *RecordContentHandler {
	return &RecordContentHandler{
		sessions: sessions,
		log:      orNop(log).With(logger.Component("record_content")),
	}
}

// Handle executes the command.
func (h *RecordContentHandler) Handle(ctx context.Context, cmd RecordContentCommand) error {
	if err := validateCommand("RecordContent", cmd); err != nil {
		return err
	}

	session, err := h.sessions.GetByID(ctx, cmd.SessionID)
	if err != nil {
		return fmt.Errorf("record_content: %w", err)
	}
	if !session.IsMentor(cmd.Actor) {
		return mentorship.ErrNotMentor
	}

	if err := h.sessions.UpdateContent(ctx, session.ID, strings.TrimSpace(cmd.Content)); err != nil {
		return fmt.Errorf("record_content: %w", err)
	}

	h.log.Debug("session content recorded", logger.SessionID(session.ID))
	return nil
}
