package query

import (
	"context"
	"fmt"

	"github.com/alem-hub/mentorship-portal/internal/domain/directory"
	"github.com/alem-hub/mentorship-portal/internal/domain/placement"
	"github.com/alem-hub/mentorship-portal/internal/domain/shared"
)

// SiteStatistics are the headline numbers of the admin dashboard.
type SiteStatistics struct {
	TotalStudents  int     `json:"total_students"`
	TotalAlumni    int     `json:"total_alumni"`
	PlacedStudents int     `json:"placed_students"`
	PlacementRate  float64 `json:"placement_rate"`
}

// PlacementHandler answers the placement reports. Every method is admin only.
type PlacementHandler struct {
	placements placement.Repository
	directory  directory.Repository
}

// NewPlacementHandler creates a new PlacementHandler.
func NewPlacementHandler(placements placement.Repository, dir directory.Repository) *PlacementHandler {
	return &PlacementHandler{placements: placements, directory: dir}
}

// SiteStatistics counts students, approved alumni and placed students.
func (h *PlacementHandler) SiteStatistics(ctx context.Context, actor shared.Actor) (*SiteStatistics, error) {
	if !actor.IsAdmin() {
		return nil, directory.ErrAdminOnly
	}

	counts, err := h.directory.Counts(ctx)
	if err != nil {
		return nil, fmt.Errorf("site_statistics: %w", err)
	}
	placed, err := h.placements.CountPlaced(ctx)
	if err != nil {
		return nil, fmt.Errorf("site_statistics: %w", err)
	}

	stats := &SiteStatistics{
		TotalStudents:  counts.Students,
		TotalAlumni:    counts.ApprovedAlumni,
		PlacedStudents: placed,
	}
	if counts.Students > 0 {
		stats.PlacementRate = float64(placed) / float64(counts.Students)
	}
	return stats, nil
}

// Trends returns placements per day, oldest first.
func (h *PlacementHandler) Trends(ctx context.Context, actor shared.Actor) ([]placement.TrendPoint, error) {
	if !actor.IsAdmin() {
		return nil, directory.ErrAdminOnly
	}
	return h.placements.Trends(ctx)
}

// Log returns the placement log, newest first.
func (h *PlacementHandler) Log(ctx context.Context, actor shared.Actor) ([]*placement.LogEntry, error) {
	if !actor.IsAdmin() {
		return nil, directory.ErrAdminOnly
	}
	return h.placements.Log(ctx)
}

// Get returns one student's placement. Admins may read any student; a
// student may read their own.
func (h *PlacementHandler) Get(ctx context.Context, actor shared.Actor, studentID string) (*placement.Placement, error) {
	if !actor.IsAdmin() && !actor.Is(studentID, shared.RoleStudent) {
		return nil, directory.ErrAdminOnly
	}
	return h.placements.Get(ctx, studentID)
}
