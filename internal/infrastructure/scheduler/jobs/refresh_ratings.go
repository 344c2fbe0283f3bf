// Package jobs contains the portal's scheduled jobs.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/alem-hub/mentorship-portal/internal/domain/mentorship"
	"github.com/alem-hub/mentorship-portal/internal/infrastructure/persistence/redis"
	"github.com/alem-hub/mentorship-portal/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// REFRESH MENTOR RATINGS JOB
// ══════════════════════════════════════════════════════════════════════════════

// AlumniLister lists the alumni that can be ranked.
type AlumniLister interface {
	ListApprovedAlumniIDs(ctx context.Context) ([]string, error)
}

// RankingWriter replaces the cached mentor ranking.
type RankingWriter interface {
	RatingVersion(ctx context.Context, alumniID string) (int64, error)
	ReplaceRanking(ctx context.Context, entries []redis.VersionedSummary) error
}

// Locker guards a run across worker instances.
type Locker interface {
	AcquireLock(ctx context.Context, resource, owner string, ttl time.Duration) error
	ReleaseLock(ctx context.Context, resource, owner string) error
}

// RefreshRatingsJob recomputes every approved alumnus' rating from the
// feedback store and rewrites the cached ranking in one step. It repairs
// anything the per-write invalidation missed.
type RefreshRatingsJob struct {
	alumni   AlumniLister
	feedback mentorship.FeedbackRepository
	ranking  RankingWriter
	locker   Locker
	owner    string
	lockTTL  time.Duration
	logger   *logger.Logger

	lastStats atomic.Pointer[RefreshStats]
}

// RefreshStats describes one run.
type RefreshStats struct {
	StartedAt   time.Time
	CompletedAt time.Time
	Alumni      int
	Ranked      int
	Skipped     bool
}

// NewRefreshRatingsJob creates the job. locker may be nil when only one
// worker runs.
func NewRefreshRatingsJob(
	alumni AlumniLister,
	feedback mentorship.FeedbackRepository,
	ranking RankingWriter,
	locker Locker,
	log *logger.Logger,
) *RefreshRatingsJob {
	if log == nil {
		log = logger.Nop()
	}
	return &RefreshRatingsJob{
		alumni:   alumni,
		feedback: feedback,
		ranking:  ranking,
		locker:   locker,
		owner:    uuid.NewString(),
		lockTTL:  redis.TTLDistributedLock,
		logger:   log.With(logger.Component("refresh_ratings_job")),
	}
}

// Name returns the job name.
func (j *RefreshRatingsJob) Name() string {
	return "refresh_mentor_ratings"
}

// Description returns a human-readable description.
func (j *RefreshRatingsJob) Description() string {
	return "Recomputes mentor ratings and rebuilds the top mentors ranking"
}

// LastStats returns the stats of the last finished run, or nil.
func (j *RefreshRatingsJob) LastStats() *RefreshStats {
	return j.lastStats.Load()
}

// Run executes the job. Another instance holding the lock makes this run a
// no-op.
func (j *RefreshRatingsJob) Run(ctx context.Context) error {
	stats := &RefreshStats{StartedAt: time.Now().UTC()}
	defer func() {
		stats.CompletedAt = time.Now().UTC()
		j.lastStats.Store(stats)
	}()

	if j.locker != nil {
		err := j.locker.AcquireLock(ctx, j.Name(), j.owner, j.lockTTL)
		if errors.Is(err, redis.ErrLockHeld) {
			j.logger.Info("another worker is refreshing ratings, skipping")
			stats.Skipped = true
			return nil
		}
		if err != nil {
			return fmt.Errorf("acquire lock: %w", err)
		}
		defer func() {
			// The run context may already be done.
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := j.locker.ReleaseLock(releaseCtx, j.Name(), j.owner); err != nil {
				j.logger.Warn("failed to release lock", logger.Err(err))
			}
		}()
	}

	ids, err := j.alumni.ListApprovedAlumniIDs(ctx)
	if err != nil {
		return fmt.Errorf("list alumni: %w", err)
	}
	stats.Alumni = len(ids)

	entries := make([]redis.VersionedSummary, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		// Feedback submitted after this read bumps the version and keeps
		// the summary below out of the cache.
		version, err := j.ranking.RatingVersion(ctx, id)
		if err != nil {
			return fmt.Errorf("read rating version %s: %w", id, err)
		}
		summary, err := j.feedback.Summary(ctx, id)
		if err != nil {
			return fmt.Errorf("summarize %s: %w", id, err)
		}
		if summary.HasRatings {
			stats.Ranked++
		}
		entries = append(entries, redis.VersionedSummary{Summary: summary, Version: version})
	}

	if err := j.ranking.ReplaceRanking(ctx, entries); err != nil {
		return fmt.Errorf("replace ranking: %w", err)
	}

	j.logger.Info("mentor ratings refreshed",
		logger.Int("alumni", stats.Alumni),
		logger.Int("ranked", stats.Ranked),
	)
	return nil
}
