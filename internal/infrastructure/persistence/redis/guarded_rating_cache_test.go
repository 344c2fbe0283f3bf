package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/mentorship-portal/internal/domain/mentorship"
	"github.com/alem-hub/mentorship-portal/pkg/circuitbreaker"
)

func TestGuardedRatingCache_OpensWhenRedisIsDown(t *testing.T) {
	ctx := context.Background()
	cache, mr := newTestCache(t)
	breaker := circuitbreaker.New("test",
		circuitbreaker.WithFailureThreshold(2),
		circuitbreaker.WithCoolDown(time.Hour),
	)
	g := NewGuardedRatingCache(NewRatingCache(cache, time.Minute), breaker)

	require.NoError(t, g.SetRating(ctx, mentorship.NewRatingSummary("a1", 9, 2), 0))
	got, found, err := g.GetRating(ctx, "a1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 2, got.Count)

	mr.Close()

	_, _, err = g.GetRating(ctx, "a1")
	require.Error(t, err)
	_, _, err = g.GetRating(ctx, "a1")
	require.Error(t, err)
	assert.Equal(t, circuitbreaker.StateOpen, breaker.State())

	_, _, err = g.GetRating(ctx, "a1")
	assert.ErrorIs(t, err, circuitbreaker.ErrOpen)
	assert.True(t, circuitbreaker.IsRejection(err))
}
