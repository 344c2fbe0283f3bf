package mentorship

import (
	"math"
	"strings"
	"time"
)

// Rating is a feedback score from 1 to 5 inclusive.
type Rating int

const (
	MinRating Rating = 1
	MaxRating Rating = 5
)

// IsValid checks if the rating is within range.
func (r Rating) IsValid() bool {
	return r >= MinRating && r <= MaxRating
}

// Int returns the underlying int value.
func (r Rating) Int() int {
	return int(r)
}

// NewRating validates value.
func NewRating(value int) (Rating, error) {
	r := Rating(value)
	if !r.IsValid() {
		return 0, ErrRatingOutOfRange
	}
	return r, nil
}

// Feedback is a student's review of an alumnus. It is keyed by the student,
// the alumnus and the date only; it does not point at a session, so a
// student can review any alumnus. Rows are never updated or deleted.
type Feedback struct {
	ID        string
	StudentID string
	AlumniID  string
	Rating    Rating
	Comments  string
	CreatedAt time.Time

	// Display names, filled by list queries only.
	StudentName string
	AlumniName  string
}

// NewFeedbackParams holds the inputs for NewFeedback.
type NewFeedbackParams struct {
	ID        string
	StudentID string
	AlumniID  string
	Rating    int
	Comments  string
	CreatedAt time.Time
}

// NewFeedback validates the rating before anything else is looked at.
func NewFeedback(params NewFeedbackParams) (*Feedback, error) {
	rating, err := NewRating(params.Rating)
	if err != nil {
		return nil, err
	}
	if params.ID == "" || params.StudentID == "" || params.AlumniID == "" {
		return nil, ErrFeedbackIncomplete
	}
	if params.CreatedAt.IsZero() {
		params.CreatedAt = time.Now().UTC()
	}

	return &Feedback{
		ID:        params.ID,
		StudentID: params.StudentID,
		AlumniID:  params.AlumniID,
		Rating:    rating,
		Comments:  strings.TrimSpace(params.Comments),
		CreatedAt: params.CreatedAt,
	}, nil
}

// RatingSummary is the derived mean of every feedback rating of an alumnus.
// Value is 0 when HasRatings is false; a real mean is never below 1.
type RatingSummary struct {
	AlumniID   string  `json:"alumni_id"`
	HasRatings bool    `json:"has_ratings"`
	Value      float64 `json:"value"`
	Count      int     `json:"count"`
}

// NewRatingSummary builds a summary from a sum and a count as returned by
// SQL aggregates.
func NewRatingSummary(alumniID string, sum, count int) RatingSummary {
	if count <= 0 {
		return RatingSummary{AlumniID: alumniID}
	}
	return RatingSummary{
		AlumniID:   alumniID,
		HasRatings: true,
		Value:      float64(sum) / float64(count),
		Count:      count,
	}
}

// SummarizeRatings computes the summary over an in-memory slice.
func SummarizeRatings(alumniID string, ratings []Rating) RatingSummary {
	sum := 0
	for _, r := range ratings {
		sum += int(r)
	}
	return NewRatingSummary(alumniID, sum, len(ratings))
}

// Rounded returns Value rounded to two decimals for display.
func (s RatingSummary) Rounded() float64 {
	return math.Round(s.Value*100) / 100
}
