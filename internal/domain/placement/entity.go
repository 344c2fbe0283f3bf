// Package placement tracks whether students have been placed with a company.
// It touches the mentorship lifecycle only through reporting.
package placement

import (
	"context"
	"strings"
	"time"

	"github.com/alem-hub/mentorship-portal/internal/domain/shared"
)

// Placement is the single placement record of a student.
type Placement struct {
	StudentID string
	IsPlaced  bool
	Company   string
	// Date is the placement day; zero when not placed.
	Date      time.Time
	UpdatedAt time.Time
}

// NewPlacement validates an upsert payload.
func NewPlacement(studentID string, isPlaced bool, company string, date time.Time) (*Placement, error) {
	company = strings.TrimSpace(company)
	if studentID == "" {
		return nil, ErrStudentRequired
	}
	if isPlaced && company == "" {
		return nil, ErrCompanyRequired
	}
	if isPlaced && date.IsZero() {
		return nil, ErrDateRequired
	}

	return &Placement{
		StudentID: studentID,
		IsPlaced:  isPlaced,
		Company:   company,
		Date:      date,
		UpdatedAt: time.Now().UTC(),
	}, nil
}

// ShouldLog reports whether saving next over prev is a transition to placed.
// prev is nil when the student had no record.
func ShouldLog(prev, next *Placement) bool {
	if next == nil || !next.IsPlaced {
		return false
	}
	return prev == nil || !prev.IsPlaced
}

// LogEntry is an immutable record of a student becoming placed.
type LogEntry struct {
	ID            int64     `json:"id"`
	StudentID     string    `json:"student_id"`
	StudentName   string    `json:"student_name,omitempty"`
	Company       string    `json:"company"`
	PlacementDate time.Time `json:"placement_date"`
	LoggedAt      time.Time `json:"logged_at"`
}

// NewLogEntry builds the log row for p.
func NewLogEntry(p *Placement, at time.Time) *LogEntry {
	return &LogEntry{
		StudentID:     p.StudentID,
		Company:       p.Company,
		PlacementDate: p.Date,
		LoggedAt:      at,
	}
}

// TrendPoint is the number of placements on one day.
type TrendPoint struct {
	Date  time.Time `json:"date"`
	Count int       `json:"count"`
}

// Repository stores placements and their log.
type Repository interface {
	// Upsert inserts or replaces the student's placement. In the same
	// transaction it appends a LogEntry when ShouldLog(previous, p) holds,
	// and reports whether it did.
	Upsert(ctx context.Context, p *Placement) (logged bool, err error)

	// Get returns ErrPlacementNotFound when the student has no record.
	Get(ctx context.Context, studentID string) (*Placement, error)

	CountPlaced(ctx context.Context) (int, error)

	// Trends groups placed students by placement date, oldest first.
	Trends(ctx context.Context) ([]TrendPoint, error)

	// Log returns every log entry, newest first.
	Log(ctx context.Context) ([]*LogEntry, error)
}

const domain = "placement"

var (
	ErrPlacementNotFound = shared.NewDomainError(domain, "Get", shared.ErrNotFound, "placement not found")
	ErrStudentRequired   = shared.NewDomainError(domain, "Upsert", shared.ErrInvalidInput, "student is required")
	ErrCompanyRequired   = shared.NewDomainError(domain, "Upsert", shared.ErrInvalidInput, "company is required when placed")
	ErrDateRequired      = shared.NewDomainError(domain, "Upsert", shared.ErrInvalidInput, "placement date is required when placed")
)
