package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alem-hub/mentorship-portal/internal/domain/mentorship"
)

// ══════════════════════════════════════════════════════════════════════════════
// RATING CACHE
//
// Layout:
//   - String "rating:{alumniID}" holds the RatingSummary JSON, with a TTL.
//   - String "rating-version:{alumniID}" counts invalidations. A summary is
//     only stored if the counter did not move while it was derived.
//   - Sorted set "mentors:top" maps alumniID -> average rating. The worker
//     rebuilds it; SetRating keeps it roughly current in between.
//
// The summary is derived data. An entry is only ever a shortcut for the
// aggregate query, so every failure here is survivable by the caller.
// ══════════════════════════════════════════════════════════════════════════════

// RatingCache caches alumni rating summaries.
type RatingCache struct {
	cache *Cache
	ttl   time.Duration
}

// NewRatingCache creates a RatingCache. A non-positive ttl uses TTLRating.
func NewRatingCache(cache *Cache, ttl time.Duration) *RatingCache {
	if ttl <= 0 {
		ttl = TTLRating
	}
	return &RatingCache{cache: cache, ttl: ttl}
}

// GetRating returns the cached summary. found is false on a miss.
func (r *RatingCache) GetRating(ctx context.Context, alumniID string) (mentorship.RatingSummary, bool, error) {
	var summary mentorship.RatingSummary
	err := r.cache.Get(ctx, RatingKey(alumniID), &summary)
	if errors.Is(err, ErrCacheMiss) {
		return mentorship.RatingSummary{}, false, nil
	}
	if err != nil {
		return mentorship.RatingSummary{}, false, err
	}
	return summary, true, nil
}

// RatingVersion returns the invalidation counter of an alumnus. Read it
// before deriving a summary and hand it to SetRating.
func (r *RatingCache) RatingVersion(ctx context.Context, alumniID string) (int64, error) {
	if alumniID == "" {
		return 0, ErrCacheKeyEmpty
	}
	v, err := r.cache.Client().Get(ctx, RatingVersionKey(alumniID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

// setRatingScript writes the summary only while the version counter still
// holds the value read before the summary was derived. Returns 1 if written.
var setRatingScript = redis.NewScript(`
local current = tonumber(redis.call("GET", KEYS[2]) or "0")
if current ~= tonumber(ARGV[1]) then
	return 0
end
redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
return 1
`)

// storeIfCurrent reports whether summary was written.
func (r *RatingCache) storeIfCurrent(ctx context.Context, summary mentorship.RatingSummary, version int64) (bool, error) {
	if summary.AlumniID == "" {
		return false, ErrCacheKeyEmpty
	}
	data, err := marshalSummary(summary)
	if err != nil {
		return false, err
	}
	n, err := setRatingScript.Run(ctx, r.cache.Client(),
		[]string{RatingKey(summary.AlumniID), RatingVersionKey(summary.AlumniID)},
		version, data, r.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// SetRating stores summary and updates the alumnus' place in the ranking.
// version is the RatingVersion read before summary was derived; if the entry
// was invalidated since, summary is stale and nothing is written.
func (r *RatingCache) SetRating(ctx context.Context, summary mentorship.RatingSummary, version int64) error {
	stored, err := r.storeIfCurrent(ctx, summary, version)
	if err != nil || !stored {
		return err
	}
	if summary.HasRatings {
		return r.cache.Client().ZAdd(ctx, KeyTopMentors, redis.Z{Score: summary.Value, Member: summary.AlumniID}).Err()
	}
	return r.cache.Client().ZRem(ctx, KeyTopMentors, summary.AlumniID).Err()
}

// InvalidateRating drops the cached summary and bumps its version, so a
// summary derived before this call can no longer be stored. The ranking
// entry stays until the next rebuild; readers re-derive the value when
// hydrating it.
func (r *RatingCache) InvalidateRating(ctx context.Context, alumniID string) error {
	if alumniID == "" {
		return ErrCacheKeyEmpty
	}
	pipe := r.cache.Client().TxPipeline()
	pipe.Incr(ctx, RatingVersionKey(alumniID))
	pipe.Expire(ctx, RatingVersionKey(alumniID), TTLRatingVersion)
	pipe.Del(ctx, RatingKey(alumniID))
	_, err := pipe.Exec(ctx)
	return err
}

// TopRated returns up to limit ranked alumni, highest average first.
func (r *RatingCache) TopRated(ctx context.Context, limit int) ([]mentorship.RatingSummary, error) {
	if limit <= 0 {
		return nil, nil
	}
	members, err := r.cache.Client().ZRevRangeWithScores(ctx, KeyTopMentors, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	out := make([]mentorship.RatingSummary, 0, len(members))
	for _, z := range members {
		id, ok := z.Member.(string)
		if !ok {
			continue
		}
		out = append(out, mentorship.RatingSummary{AlumniID: id, HasRatings: true, Value: z.Score})
	}
	return out, nil
}

// VersionedSummary pairs a summary with the RatingVersion read before it
// was derived.
type VersionedSummary struct {
	Summary mentorship.RatingSummary
	Version int64
}

// ReplaceRanking swaps the whole ranking in one transaction, then stores
// each summary whose version is still current. Unrated alumni are cached
// but left out of the ranking.
func (r *RatingCache) ReplaceRanking(ctx context.Context, entries []VersionedSummary) error {
	pipe := r.cache.Client().TxPipeline()
	pipe.Del(ctx, KeyTopMentors)
	for _, e := range entries {
		if e.Summary.AlumniID != "" && e.Summary.HasRatings {
			pipe.ZAdd(ctx, KeyTopMentors, redis.Z{Score: e.Summary.Value, Member: e.Summary.AlumniID})
		}
	}
	pipe.Expire(ctx, KeyTopMentors, TTLTopMentors)
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}

	for _, e := range entries {
		if e.Summary.AlumniID == "" {
			continue
		}
		if _, err := r.storeIfCurrent(ctx, e.Summary, e.Version); err != nil {
			return err
		}
	}
	return nil
}

func marshalSummary(s mentorship.RatingSummary) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCacheSerialization, err)
	}
	return data, nil
}
