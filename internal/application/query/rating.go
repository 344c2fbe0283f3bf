package query

import (
	"context"
	"fmt"

	"github.com/alem-hub/mentorship-portal/internal/domain/directory"
	"github.com/alem-hub/mentorship-portal/internal/domain/mentorship"
	"github.com/alem-hub/mentorship-portal/pkg/logger"
)

// RatingCache stores derived rating summaries. Implementations may be
// unavailable at any time; callers treat every error as a miss.
type RatingCache interface {
	GetRating(ctx context.Context, alumniID string) (summary mentorship.RatingSummary, found bool, err error)
	// RatingVersion changes whenever the alumnus' entry is invalidated.
	RatingVersion(ctx context.Context, alumniID string) (int64, error)
	// SetRating stores summary unless the entry was invalidated after
	// version was read.
	SetRating(ctx context.Context, summary mentorship.RatingSummary, version int64) error
	// TopRated returns up to limit summaries ordered by value, highest first.
	// Only AlumniID, HasRatings and Value are populated.
	TopRated(ctx context.Context, limit int) ([]mentorship.RatingSummary, error)
}

// TopMentorDTO is one entry of the top-rated mentor list.
type TopMentorDTO struct {
	Rank          int     `json:"rank"`
	AlumniID      string  `json:"alumni_id"`
	Name          string  `json:"name"`
	Industry      string  `json:"industry"`
	RatingAverage float64 `json:"rating_average"`
	RatingCount   int     `json:"rating_count"`
}

// ══════════════════════════════════════════════════════════════════════════════
// RATING QUERIES
// The rating aggregate is derived from feedback on every read. Redis only
// saves the aggregate query; a cold or broken cache falls through.
// ══════════════════════════════════════════════════════════════════════════════

// RatingHandler answers rating and feedback queries.
type RatingHandler struct {
	feedback  mentorship.FeedbackRepository
	directory directory.Repository
	cache     RatingCache
	log       *logger.Logger
}

// NewRatingHandler creates a new RatingHandler. cache may be nil.
func NewRatingHandler(
	feedback mentorship.FeedbackRepository,
	dir directory.Repository,
	cache RatingCache,
	log *logger.Logger,
) *RatingHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &RatingHandler{
		feedback:  feedback,
		directory: dir,
		cache:     cache,
		log:       log.With(logger.Component("rating_query")),
	}
}

// AverageRating returns the rating summary of an alumnus. An alumnus with no
// feedback yields HasRatings=false, not an error.
func (h *RatingHandler) AverageRating(ctx context.Context, alumniID string) (mentorship.RatingSummary, error) {
	var (
		version   int64
		cacheable bool
	)
	if h.cache != nil {
		summary, found, err := h.cache.GetRating(ctx, alumniID)
		switch {
		case err != nil:
			h.log.Warn("rating cache read failed", logger.AlumniID(alumniID), logger.Err(err))
		case found:
			return summary, nil
		default:
			// Taken before the store read: feedback landing in between
			// bumps the version and the write below is dropped.
			version, err = h.cache.RatingVersion(ctx, alumniID)
			if err != nil {
				h.log.Warn("rating cache version read failed", logger.AlumniID(alumniID), logger.Err(err))
			} else {
				cacheable = true
			}
		}
	}

	summary, err := h.feedback.Summary(ctx, alumniID)
	if err != nil {
		return mentorship.RatingSummary{}, fmt.Errorf("average_rating: %w", err)
	}

	if cacheable {
		if err := h.cache.SetRating(ctx, summary, version); err != nil {
			h.log.Warn("rating cache write failed", logger.AlumniID(alumniID), logger.Err(err))
		}
	}
	return summary, nil
}

// ListFeedback returns the feedback of an alumnus, newest first.
func (h *RatingHandler) ListFeedback(ctx context.Context, alumniID string) ([]FeedbackDTO, error) {
	if _, err := h.directory.GetAlumni(ctx, alumniID); err != nil {
		return nil, fmt.Errorf("list_feedback: %w", err)
	}
	rows, err := h.feedback.ListByAlumni(ctx, alumniID)
	if err != nil {
		return nil, fmt.Errorf("list_feedback: %w", err)
	}

	out := make([]FeedbackDTO, 0, len(rows))
	for _, fb := range rows {
		out = append(out, NewFeedbackDTO(fb))
	}
	return out, nil
}

// TopMentors returns the best rated approved alumni. It reads the ranking the
// worker maintains and falls back to a directory scan when that is empty.
func (h *RatingHandler) TopMentors(ctx context.Context, limit int) ([]TopMentorDTO, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	if h.cache != nil {
		ranked, err := h.cache.TopRated(ctx, limit)
		if err != nil {
			h.log.Warn("top mentors cache read failed", logger.Err(err))
		} else if len(ranked) > 0 {
			return h.hydrate(ctx, ranked)
		}
	}

	profiles, err := h.directory.SearchMentors(ctx, directory.MentorFilter{})
	if err != nil {
		return nil, fmt.Errorf("top_mentors: %w", err)
	}
	ranked := RankProfiles(profiles, limit)

	out := make([]TopMentorDTO, 0, len(ranked))
	for i, p := range ranked {
		out = append(out, TopMentorDTO{
			Rank:          i + 1,
			AlumniID:      p.AlumniID,
			Name:          p.Name,
			Industry:      p.IndustryName,
			RatingAverage: p.RatingAverage,
			RatingCount:   p.RatingCount,
		})
	}
	return out, nil
}

func (h *RatingHandler) hydrate(ctx context.Context, ranked []mentorship.RatingSummary) ([]TopMentorDTO, error) {
	out := make([]TopMentorDTO, 0, len(ranked))
	for _, r := range ranked {
		a, err := h.directory.GetAlumni(ctx, r.AlumniID)
		if err != nil {
			// The ranking may lag behind the directory.
			continue
		}
		summary, err := h.AverageRating(ctx, r.AlumniID)
		if err != nil {
			return nil, err
		}
		out = append(out, TopMentorDTO{
			Rank:          len(out) + 1,
			AlumniID:      a.ID,
			Name:          a.Name,
			Industry:      a.IndustryName,
			RatingAverage: summary.Rounded(),
			RatingCount:   summary.Count,
		})
	}
	return out, nil
}

// RankProfiles orders rated mentors by average, then by count, then by name,
// and keeps the first limit. Unrated mentors are left out.
func RankProfiles(profiles []*directory.MentorProfile, limit int) []*directory.MentorProfile {
	rated := make([]*directory.MentorProfile, 0, len(profiles))
	for _, p := range profiles {
		if p.RatingCount > 0 {
			rated = append(rated, p)
		}
	}
	sortProfiles(rated)
	if len(rated) > limit {
		rated = rated[:limit]
	}
	return rated
}
