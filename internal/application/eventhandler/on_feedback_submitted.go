// Package eventhandler contains domain event handlers.
package eventhandler

import (
	"context"
	"time"

	"github.com/alem-hub/mentorship-portal/internal/domain/shared"
	"github.com/alem-hub/mentorship-portal/pkg/circuitbreaker"
	"github.com/alem-hub/mentorship-portal/pkg/logger"
	"github.com/alem-hub/mentorship-portal/pkg/retry"
)

// RatingInvalidator drops a cached rating summary.
type RatingInvalidator interface {
	InvalidateRating(ctx context.Context, alumniID string) error
}

// ═══════════════════════════════════════════════════════════════════════════
// ON FEEDBACK SUBMITTED HANDLER
// Drops the cached rating of the reviewed alumnus so the next read derives
// it again from feedback. The event's aggregate is the alumnus, which also
// holds for events relayed over Redis.
// ═══════════════════════════════════════════════════════════════════════════

// OnFeedbackSubmittedHandler invalidates rating caches.
type OnFeedbackSubmittedHandler struct {
	cache   RatingInvalidator
	logger  *logger.Logger
	retrier *retry.Retrier
	timeout time.Duration
}

// NewOnFeedbackSubmittedHandler creates a new handler.
func NewOnFeedbackSubmittedHandler(cache RatingInvalidator, log *logger.Logger) *OnFeedbackSubmittedHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &OnFeedbackSubmittedHandler{
		cache:  cache,
		logger: log.With(logger.Component("on_feedback_submitted")),
		retrier: retry.New(
			retry.WithMaxAttempts(3),
			retry.WithInitialDelay(50*time.Millisecond),
			retry.WithMaxDelay(200*time.Millisecond),
		),
		timeout: 2 * time.Second,
	}
}

// Handle implements shared.EventHandler. Transient cache failures are
// retried briefly, then logged and swallowed; the cached entry also expires
// on its own.
func (h *OnFeedbackSubmittedHandler) Handle(event shared.Event) error {
	if event.EventType() != shared.EventFeedbackSubmitted {
		h.logger.Warn("received unexpected event", logger.String("event_type", string(event.EventType())))
		return nil
	}

	alumniID := event.AggregateID()
	if alumniID == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	err := h.retrier.Do(ctx, func(ctx context.Context) error {
		err := h.cache.InvalidateRating(ctx, alumniID)
		if circuitbreaker.IsRejection(err) {
			return retry.Permanent(err)
		}
		return err
	})
	if err != nil {
		h.logger.Warn("failed to invalidate rating cache", logger.AlumniID(alumniID), logger.Err(err))
		return nil
	}
	h.logger.Debug("rating cache invalidated", logger.AlumniID(alumniID))
	return nil
}

// Register subscribes the handler inline, so a rating read issued after
// submitFeedback returns never sees the entry it replaces.
func (h *OnFeedbackSubmittedHandler) Register(bus shared.InlineSubscriber) error {
	return bus.SubscribeInline(shared.EventFeedbackSubmitted, h.Handle)
}
