package redis

import (
	"context"

	"github.com/alem-hub/mentorship-portal/internal/domain/mentorship"
	"github.com/alem-hub/mentorship-portal/pkg/circuitbreaker"
)

// ══════════════════════════════════════════════════════════════════════════════
// GUARDED RATING CACHE
// Puts a circuit breaker in front of the rating cache used on the request
// path. While Redis is down readers get circuitbreaker.ErrOpen immediately
// and fall through to the feedback store.
// ══════════════════════════════════════════════════════════════════════════════

// GuardedRatingCache wraps a RatingCache with a breaker.
type GuardedRatingCache struct {
	inner   *RatingCache
	breaker *circuitbreaker.Breaker
}

// NewGuardedRatingCache creates a GuardedRatingCache.
func NewGuardedRatingCache(inner *RatingCache, breaker *circuitbreaker.Breaker) *GuardedRatingCache {
	return &GuardedRatingCache{inner: inner, breaker: breaker}
}

func (g *GuardedRatingCache) GetRating(ctx context.Context, alumniID string) (mentorship.RatingSummary, bool, error) {
	var (
		summary mentorship.RatingSummary
		found   bool
	)
	err := g.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		summary, found, err = g.inner.GetRating(ctx, alumniID)
		return err
	})
	return summary, found, err
}

func (g *GuardedRatingCache) RatingVersion(ctx context.Context, alumniID string) (int64, error) {
	var version int64
	err := g.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		version, err = g.inner.RatingVersion(ctx, alumniID)
		return err
	})
	return version, err
}

func (g *GuardedRatingCache) SetRating(ctx context.Context, summary mentorship.RatingSummary, version int64) error {
	return g.breaker.Execute(ctx, func(ctx context.Context) error {
		return g.inner.SetRating(ctx, summary, version)
	})
}

func (g *GuardedRatingCache) InvalidateRating(ctx context.Context, alumniID string) error {
	return g.breaker.Execute(ctx, func(ctx context.Context) error {
		return g.inner.InvalidateRating(ctx, alumniID)
	})
}

func (g *GuardedRatingCache) TopRated(ctx context.Context, limit int) ([]mentorship.RatingSummary, error) {
	var out []mentorship.RatingSummary
	err := g.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		out, err = g.inner.TopRated(ctx, limit)
		return err
	})
	return out, err
}

// Breaker exposes the breaker for health reporting.
func (g *GuardedRatingCache) Breaker() *circuitbreaker.Breaker {
	return g.breaker
}
