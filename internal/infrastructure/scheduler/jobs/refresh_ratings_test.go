package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/mentorship-portal/internal/domain/directory"
	"github.com/alem-hub/mentorship-portal/internal/domain/mentorship"
	"github.com/alem-hub/mentorship-portal/internal/infrastructure/persistence/memory"
	"github.com/alem-hub/mentorship-portal/internal/infrastructure/persistence/redis"
)

type fixture struct {
	store  *memory.Store
	cache  *redis.Cache
	rating *redis.RatingCache
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := redis.NewCacheFromClient(client)

	store := memory.NewStore()
	dir := store.Directory()
	for _, id := range []string{"a1", "a2", "a3"} {
		require.NoError(t, dir.CreateAlumni(ctx, &directory.Alumni{
			ID: id, Name: id, Email: id + "@corp.kz", PasswordHash: "x", IndustryID: 1,
		}))
		require.NoError(t, dir.ApproveAlumni(ctx, id))
	}
	for i, fb := range []struct {
		alumni string
		rating int
	}{{"a1", 3}, {"a1", 4}, {"a2", 5}} {
		require.NoError(t, store.Feedback().Create(ctx, &mentorship.Feedback{
			ID: string(rune('f' + i)), StudentID: "s1", AlumniID: fb.alumni,
			Rating: mentorship.Rating(fb.rating), CreatedAt: time.Now().UTC(),
		}))
	}

	return fixture{store: store, cache: cache, rating: redis.NewRatingCache(cache, time.Minute)}
}

func TestRefreshRatingsJob_RebuildsRanking(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	job := NewRefreshRatingsJob(f.store.Directory(), f.store.Feedback(), f.rating, f.cache, nil)

	require.NoError(t, job.Run(ctx))

	top, err := f.rating.TopRated(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 2, "alumni without feedback are not ranked")
	assert.Equal(t, "a2", top[0].AlumniID)
	assert.Equal(t, "a1", top[1].AlumniID)
	assert.Equal(t, 3.5, top[1].Value)

	cached, found, err := f.rating.GetRating(ctx, "a1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 2, cached.Count)

	stats := job.LastStats()
	require.NotNil(t, stats)
	assert.Equal(t, 3, stats.Alumni)
	assert.Equal(t, 2, stats.Ranked)
	assert.False(t, stats.Skipped)

	// The lock is released after the run.
	assert.NoError(t, f.cache.AcquireLock(ctx, job.Name(), "someone-else", time.Minute))
}

func TestRefreshRatingsJob_SkipsWhenLocked(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	job := NewRefreshRatingsJob(f.store.Directory(), f.store.Feedback(), f.rating, f.cache, nil)

	require.NoError(t, f.cache.AcquireLock(ctx, job.Name(), "other-worker", time.Minute))
	require.NoError(t, job.Run(ctx))

	assert.True(t, job.LastStats().Skipped)
	top, err := f.rating.TopRated(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, top)
}

type failingLister struct{}

func (failingLister) ListApprovedAlumniIDs(context.Context) ([]string, error) {
	return nil, errors.New("db down")
}

func TestRefreshRatingsJob_PropagatesErrors(t *testing.T) {
	f := newFixture(t)
	job := NewRefreshRatingsJob(failingLister{}, f.store.Feedback(), f.rating, nil, nil)

	err := job.Run(context.Background())
	assert.ErrorContains(t, err, "db down")
}
