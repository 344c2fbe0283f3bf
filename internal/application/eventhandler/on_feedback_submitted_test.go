package eventhandler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/mentorship-portal/internal/domain/shared"
	"github.com/alem-hub/mentorship-portal/pkg/circuitbreaker"
)

type invalidatorFunc func(ctx context.Context, alumniID string) error

func (f invalidatorFunc) InvalidateRating(ctx context.Context, alumniID string) error {
	return f(ctx, alumniID)
}

type subscriberFunc func(eventType shared.EventType, handler shared.EventHandler) error

func (f subscriberFunc) SubscribeInline(eventType shared.EventType, handler shared.EventHandler) error {
	return f(eventType, handler)
}

func TestOnFeedbackSubmitted_InvalidatesReviewedAlumnus(t *testing.T) {
	var got []string
	h := NewOnFeedbackSubmittedHandler(invalidatorFunc(func(ctx context.Context, id string) error {
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		got = append(got, id)
		return nil
	}), nil)

	require.NoError(t, h.Handle(shared.NewFeedbackSubmittedEvent("s1", "a1", 5)))
	require.NoError(t, h.Handle(shared.NewAlumniApprovedEvent("a2", "root")))

	assert.Equal(t, []string{"a1"}, got)
}

func TestOnFeedbackSubmitted_SwallowsCacheErrors(t *testing.T) {
	h := NewOnFeedbackSubmittedHandler(invalidatorFunc(func(context.Context, string) error {
		return errors.New("redis down")
	}), nil)

	assert.NoError(t, h.Handle(shared.NewFeedbackSubmittedEvent("s1", "a1", 2)))
}

func TestOnFeedbackSubmitted_RetriesTransientErrors(t *testing.T) {
	calls := 0
	h := NewOnFeedbackSubmittedHandler(invalidatorFunc(func(context.Context, string) error {
		calls++
		if calls < 3 {
			return errors.New("i/o timeout")
		}
		return nil
	}), nil)

	require.NoError(t, h.Handle(shared.NewFeedbackSubmittedEvent("s1", "a1", 4)))
	assert.Equal(t, 3, calls)
}

func TestOnFeedbackSubmitted_OpenBreakerIsNotRetried(t *testing.T) {
	calls := 0
	h := NewOnFeedbackSubmittedHandler(invalidatorFunc(func(context.Context, string) error {
		calls++
		return circuitbreaker.ErrOpen
	}), nil)

	require.NoError(t, h.Handle(shared.NewFeedbackSubmittedEvent("s1", "a1", 4)))
	assert.Equal(t, 1, calls)
}

func TestOnFeedbackSubmitted_Register(t *testing.T) {
	var subscribed shared.EventType
	h := NewOnFeedbackSubmittedHandler(invalidatorFunc(func(context.Context, string) error { return nil }), nil)

	err := h.Register(subscriberFunc(func(et shared.EventType, _ shared.EventHandler) error {
		subscribed = et
		return nil
	}))
	require.NoError(t, err)
	assert.Equal(t, shared.EventFeedbackSubmitted, subscribed)
}
