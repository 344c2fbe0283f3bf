package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/mentorship-portal/internal/domain/mentorship"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCacheFromClient(client), mr
}

func TestRatingCache_MissThenHit(t *testing.T) {
	ctx := context.Background()
	cache, _ := newTestCache(t)
	rc := NewRatingCache(cache, time.Minute)

	_, found, err := rc.GetRating(ctx, "a1")
	require.NoError(t, err)
	assert.False(t, found)

	want := mentorship.NewRatingSummary("a1", 13, 3)
	require.NoError(t, rc.SetRating(ctx, want, 0))

	got, found, err := rc.GetRating(ctx, "a1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, want, got)
}

func TestRatingCache_EntriesExpire(t *testing.T) {
	ctx := context.Background()
	cache, mr := newTestCache(t)
	rc := NewRatingCache(cache, time.Minute)

	require.NoError(t, rc.SetRating(ctx, mentorship.NewRatingSummary("a1", 5, 1), 0))
	mr.FastForward(2 * time.Minute)

	_, found, err := rc.GetRating(ctx, "a1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRatingCache_InvalidateKeepsRanking(t *testing.T) {
	ctx := context.Background()
	cache, _ := newTestCache(t)
	rc := NewRatingCache(cache, 0)

	require.NoError(t, rc.SetRating(ctx, mentorship.NewRatingSummary("a1", 4, 1), 0))
	require.NoError(t, rc.InvalidateRating(ctx, "a1"))

	_, found, err := rc.GetRating(ctx, "a1")
	require.NoError(t, err)
	assert.False(t, found)

	top, err := rc.TopRated(ctx, 5)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "a1", top[0].AlumniID)
}

func TestRatingCache_Ranking(t *testing.T) {
	ctx := context.Background()
	cache, _ := newTestCache(t)
	rc := NewRatingCache(cache, 0)

	require.NoError(t, rc.SetRating(ctx, mentorship.NewRatingSummary("stale", 5, 1), 0))
	require.NoError(t, rc.ReplaceRanking(ctx, []VersionedSummary{
		{Summary: mentorship.NewRatingSummary("a1", 7, 2)},
		{Summary: mentorship.NewRatingSummary("a2", 5, 1)},
		{Summary: mentorship.NewRatingSummary("a3", 0, 0)},
		{Summary: mentorship.NewRatingSummary("a4", 3, 1)},
	}))

	top, err := rc.TopRated(ctx, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "a2", top[0].AlumniID)
	assert.Equal(t, 5.0, top[0].Value)
	assert.Equal(t, "a1", top[1].AlumniID)

	all, err := rc.TopRated(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, all, 3, "unrated and stale alumni are not ranked")

	// An alumnus losing all ratings leaves the ranking.
	require.NoError(t, rc.SetRating(ctx, mentorship.RatingSummary{AlumniID: "a4"}, 0))
	all, err = rc.TopRated(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestRatingCache_InvalidationRejectsStaleWrite(t *testing.T) {
	ctx := context.Background()
	cache, _ := newTestCache(t)
	rc := NewRatingCache(cache, time.Minute)

	// A reader takes the version, then derives an old summary while new
	// feedback lands and invalidates the entry.
	version, err := rc.RatingVersion(ctx, "a1")
	require.NoError(t, err)
	require.NoError(t, rc.InvalidateRating(ctx, "a1"))

	require.NoError(t, rc.SetRating(ctx, mentorship.RatingSummary{AlumniID: "a1"}, version))
	_, found, err := rc.GetRating(ctx, "a1")
	require.NoError(t, err)
	assert.False(t, found, "stale summary must not be stored")

	current, err := rc.RatingVersion(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, version+1, current)

	fresh := mentorship.NewRatingSummary("a1", 5, 1)
	require.NoError(t, rc.SetRating(ctx, fresh, current))
	got, found, err := rc.GetRating(ctx, "a1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, fresh, got)
}

func TestRatingCache_ReplaceRankingSkipsInvalidatedEntries(t *testing.T) {
	ctx := context.Background()
	cache, _ := newTestCache(t)
	rc := NewRatingCache(cache, time.Minute)

	require.NoError(t, rc.InvalidateRating(ctx, "a2"))
	require.NoError(t, rc.ReplaceRanking(ctx, []VersionedSummary{
		{Summary: mentorship.NewRatingSummary("a1", 4, 1), Version: 0},
		{Summary: mentorship.NewRatingSummary("a2", 3, 1), Version: 0},
	}))

	_, found, err := rc.GetRating(ctx, "a1")
	require.NoError(t, err)
	assert.True(t, found)
	_, found, err = rc.GetRating(ctx, "a2")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRatingCache_Unavailable(t *testing.T) {
	ctx := context.Background()
	cache, mr := newTestCache(t)
	rc := NewRatingCache(cache, 0)
	mr.Close()

	_, _, err := rc.GetRating(ctx, "a1")
	assert.Error(t, err)
	assert.Error(t, rc.SetRating(ctx, mentorship.NewRatingSummary("a1", 5, 1), 0))
}

func TestLocks(t *testing.T) {
	ctx := context.Background()
	cache, _ := newTestCache(t)

	require.NoError(t, cache.AcquireLock(ctx, "job", "worker-1", time.Minute))
	assert.ErrorIs(t, cache.AcquireLock(ctx, "job", "worker-2", time.Minute), ErrLockHeld)

	// Only the owner can release.
	require.NoError(t, cache.ReleaseLock(ctx, "job", "worker-2"))
	assert.ErrorIs(t, cache.AcquireLock(ctx, "job", "worker-2", time.Minute), ErrLockHeld)

	require.NoError(t, cache.ReleaseLock(ctx, "job", "worker-1"))
	assert.NoError(t, cache.AcquireLock(ctx, "job", "worker-2", time.Minute))
}
