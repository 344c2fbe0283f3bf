package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/mentorship-portal/internal/application/command"
	"github.com/alem-hub/mentorship-portal/internal/application/eventhandler"
	"github.com/alem-hub/mentorship-portal/internal/application/query"
	"github.com/alem-hub/mentorship-portal/internal/domain/directory"
	"github.com/alem-hub/mentorship-portal/internal/domain/shared"
	"github.com/alem-hub/mentorship-portal/internal/infrastructure/persistence/memory"
	"github.com/alem-hub/mentorship-portal/internal/infrastructure/persistence/redis"
	"github.com/alem-hub/mentorship-portal/pkg/circuitbreaker"
	"github.com/alem-hub/mentorship-portal/pkg/logger"
)

func TestNewEventBus_RatingReadAfterFeedbackIsFresh(t *testing.T) {
	ctx := context.Background()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := redis.NewCacheFromClient(client)

	bus, err := NewEventBus(cache, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = bus.Close() })

	store := memory.NewStore()
	dir := store.Directory()
	require.NoError(t, dir.CreateStudent(ctx, &directory.Student{ID: "s1", Name: "Aigerim", Email: "s1@uni.kz"}))
	require.NoError(t, dir.CreateAlumni(ctx, &directory.Alumni{ID: "a1", Name: "Bolat", Email: "a1@corp.kz", IndustryID: 1}))
	require.NoError(t, dir.ApproveAlumni(ctx, "a1"))

	ratingCache := redis.NewGuardedRatingCache(
		redis.NewRatingCache(cache, time.Minute),
		circuitbreaker.CacheBreaker(nil),
	)
	require.NoError(t, eventhandler.NewOnFeedbackSubmittedHandler(ratingCache, nil).Register(bus))

	ratings := query.NewRatingHandler(store.Feedback(), dir, ratingCache, nil)
	submit := command.NewSubmitFeedbackHandler(store.Feedback(), dir, bus, nil)

	// Caches HasRatings=false.
	before, err := ratings.AverageRating(ctx, "a1")
	require.NoError(t, err)
	require.False(t, before.HasRatings)

	for i, want := range []struct {
		rating int
		avg    float64
	}{{5, 5.0}, {3, 4.0}} {
		_, err = submit.Handle(ctx, command.SubmitFeedbackCommand{
			Actor:    shared.Actor{UserID: "s1", Role: shared.RoleStudent},
			AlumniID: "a1",
			Rating:   want.rating,
		})
		require.NoError(t, err)

		got, err := ratings.AverageRating(ctx, "a1")
		require.NoError(t, err)
		assert.True(t, got.HasRatings)
		assert.Equal(t, want.avg, got.Value, "read %d right after feedback", i)
		assert.Equal(t, i+1, got.Count)
	}
}
