package memory

import (
	"context"
	"sort"
	"time"

	"github.com/alem-hub/mentorship-portal/internal/domain/placement"
	"github.com/alem-hub/mentorship-portal/pkg/timeutil"
)

// PlacementRepo implements placement.Repository.
type PlacementRepo struct {
	s *Store
}

// Upsert implements placement.Repository. The placement write and the log
// append happen under the same lock.
func (r *PlacementRepo) Upsert(ctx context.Context, p *placement.Placement) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	prev := r.s.st.placements[p.StudentID]
	logged := placement.ShouldLog(prev, p)

	c := *p
	r.s.st.placements[p.StudentID] = &c

	if logged {
		r.s.st.nextLogID++
		entry := placement.NewLogEntry(p, time.Now().UTC())
		entry.ID = r.s.st.nextLogID
		r.s.st.placeLog = append(r.s.st.placeLog, entry)
	}
	return logged, nil
}

// Get implements placement.Repository.
func (r *PlacementRepo) Get(ctx context.Context, studentID string) (*placement.Placement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.st.placements[studentID]
	if !ok {
		return nil, placement.ErrPlacementNotFound
	}
	c := *p
	return &c, nil
}

// CountPlaced implements placement.Repository.
func (r *PlacementRepo) CountPlaced(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	n := 0
	for _, p := range r.s.st.placements {
		if p.IsPlaced {
			n++
		}
	}
	return n, nil
}

// Trends implements placement.Repository.
func (r *PlacementRepo) Trends(ctx context.Context) ([]placement.TrendPoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	byDay := make(map[time.Time]int)
	for _, p := range r.s.st.placements {
		if p.IsPlaced && !p.Date.IsZero() {
			byDay[timeutil.StartOfDay(p.Date)]++
		}
	}

	out := make([]placement.TrendPoint, 0, len(byDay))
	for day, n := range byDay {
		out = append(out, placement.TrendPoint{Date: day, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// Log implements placement.Repository.
func (r *PlacementRepo) Log(ctx context.Context) ([]*placement.LogEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*placement.LogEntry, 0, len(r.s.st.placeLog))
	for i := len(r.s.st.placeLog) - 1; i >= 0; i-- {
		c := *r.s.st.placeLog[i]
		c.StudentName = r.s.studentName(c.StudentID)
		out = append(out, &c)
	}
	return out, nil
}
