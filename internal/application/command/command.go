// Package command contains write operations (CQRS - Commands).
//
// Every handler takes the acting user explicitly, checks the cheap guards
// itself and leaves the racy ones to the repository's conditional writes.
// Events are published only after the write succeeded.
package command

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/alem-hub/mentorship-portal/internal/domain/shared"
	"github.com/alem-hub/mentorship-portal/pkg/logger"
)

var validate = validator.New()

// validateCommand runs struct tag validation and turns failures into an
// InvalidInput domain error listing the offending fields.
func validateCommand(op string, cmd any) error {
	err := validate.Struct(cmd)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return shared.WrapError("command", op, shared.ErrInvalidInput, "invalid command", err)
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, strings.ToLower(fe.Field())+" ("+fe.Tag()+")")
	}
	return shared.NewDomainError("command", op, shared.ErrInvalidInput, "invalid fields: "+strings.Join(fields, ", "))
}

// publisher wraps an optional event bus. A failed publish is logged and
// otherwise ignored: the write it describes has already been committed.
type publisher struct {
	bus shared.EventPublisher
	log *logger.Logger
}

func (p publisher) publish(event shared.Event) {
	if p.bus == nil {
		return
	}
	if err := p.bus.Publish(event); err != nil {
		p.log.Warn("failed to publish event",
			logger.String("event_type", string(event.EventType())),
			logger.String("aggregate_id", event.AggregateID()),
			logger.Err(err),
		)
	}
}

func orNop(l *logger.Logger) *logger.Logger {
	if l == nil {
		return logger.Nop()
	}
	return l
}

// Clock returns the current time. Handlers use it so tests can pin dates.
type Clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }

func orSystem(c Clock) Clock {
	if c == nil {
		return systemClock
	}
	return c
}
