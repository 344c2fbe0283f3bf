package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/alem-hub/mentorship-portal/internal/domain/mentorship"
	"github.com/alem-hub/mentorship-portal/internal/domain/shared"
	"github.com/alem-hub/mentorship-portal/pkg/logger"
)

// maxLinkAttempts bounds how many fresh links are drawn when the store
// reports a collision.
const maxLinkAttempts = 3

// ══════════════════════════════════════════════════════════════════════════════
// CONFIRM SESSION COMMAND
// The counter-party approves a proposal. The meeting link is issued at this
// instant and never changes afterwards.
// ══════════════════════════════════════════════════════════════════════════════

// ConfirmSessionCommand identifies the session being confirmed.
type ConfirmSessionCommand struct {
	Actor     shared.Actor
	SessionID string `validate:"required"`
}

// ConfirmSessionHandler handles the ConfirmSessionCommand.
type ConfirmSessionHandler struct {
	sessions mentorship.SessionRepository
	links    mentorship.LinkGenerator
	events   publisher
	log      *logger.Logger
	now      Clock
}

// NewConfirmSessionHandler creates a new ConfirmSessionHandler.
func NewConfirmSessionHandler(
	sessions mentorship.SessionRepository,
	links mentorship.LinkGenerator,
	eventPublisher shared.EventPublisher,
	log *logger.Logger,
) *ConfirmSessionHandler {
	log = orNop(log).With(logger.Component("confirm_session"))
	return &ConfirmSessionHandler{
		sessions: sessions,
		links:    links,
		events:   publisher{bus: eventPublisher, log: log},
		log:      log,
		now:      systemClock,
	}
}

// WithClock overrides the time source.
func (h *ConfirmSessionHandler) WithClock(c Clock) *ConfirmSessionHandler {
	h.now = orSystem(c)
	return h
}

// Handle executes the command and returns the confirmed session.
func (h *ConfirmSessionHandler) Handle(ctx context.Context, cmd ConfirmSessionCommand) (*mentorship.Session, error) {
	if err := validateCommand("ConfirmSession", cmd); err != nil {
		return nil, err
	}

	session, err := h.sessions.GetByID(ctx, cmd.SessionID)
	if err != nil {
		return nil, fmt.Errorf("confirm_session: %w", err)
	}
	if !session.IsParty(cmd.Actor) {
		return nil, mentorship.ErrNotParty
	}
	if err := session.CanConfirm(cmd.Actor.Role); err != nil {
		return nil, err
	}

	at := h.now()
	for attempt := 1; ; attempt++ {
		link, err := h.links.NewLink()
		if err != nil {
			return nil, fmt.Errorf("confirm_session: generate meeting link: %w", err)
		}

		err = h.sessions.Confirm(ctx, session.ID, link, at)
		if err == nil {
			if err := session.Confirm(cmd.Actor.Role, link, at); err != nil {
				return nil, err
			}
			break
		}
		if !errors.Is(err, mentorship.ErrMeetingLinkTaken) || attempt >= maxLinkAttempts {
			return nil, fmt.Errorf("confirm_session: %w", err)
		}
		h.log.Warn("meeting link collision, drawing a new one",
			logger.SessionID(session.ID),
			logger.Int("attempt", attempt),
		)
	}

	h.log.Info("session confirmed",
		logger.SessionID(session.ID),
		logger.Role(string(cmd.Actor.Role)),
	)
	event := shared.NewSessionEvent(shared.EventSessionConfirmed,
		session.ID, session.RequestID, session.StudentID, session.AlumniID, cmd.Actor.Role)
	event.MeetingLink = session.MeetingLink
	h.events.publish(event)
	return session, nil
}
