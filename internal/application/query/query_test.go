package query

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/mentorship-portal/internal/domain/directory"
	"github.com/alem-hub/mentorship-portal/internal/domain/mentorship"
	"github.com/alem-hub/mentorship-portal/internal/domain/placement"
	"github.com/alem-hub/mentorship-portal/internal/domain/shared"
	"github.com/alem-hub/mentorship-portal/internal/infrastructure/persistence/memory"
)

var (
	student = shared.Actor{UserID: "s1", Role: shared.RoleStudent}
	other   = shared.Actor{UserID: "s2", Role: shared.RoleStudent}
	alumnus = shared.Actor{UserID: "a1", Role: shared.RoleAlumni}
	admin   = shared.Actor{UserID: "root", Role: shared.RoleAdmin}
)

// seed builds a store with two students, two approved alumni, one pending
// alumnus, and the requests s1→a1 (accepted) and s2→a2 (pending).
func seed(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	dir := store.Directory()

	require.NoError(t, dir.CreateStudent(ctx, &directory.Student{ID: "s1", Name: "Aigerim", Email: "s1@uni.kz"}))
	require.NoError(t, dir.CreateStudent(ctx, &directory.Student{ID: "s2", Name: "Timur", Email: "s2@uni.kz"}))
	require.NoError(t, dir.CreateAlumni(ctx, &directory.Alumni{ID: "a1", Name: "Bolat", Email: "a1@corp.kz", IndustryID: 1}))
	require.NoError(t, dir.CreateAlumni(ctx, &directory.Alumni{ID: "a2", Name: "Saule", Email: "a2@corp.kz", IndustryID: 2}))
	require.NoError(t, dir.CreateAlumni(ctx, &directory.Alumni{ID: "a3", Name: "Pending", Email: "a3@corp.kz", IndustryID: 2}))
	require.NoError(t, dir.ApproveAlumni(ctx, "a1"))
	require.NoError(t, dir.ApproveAlumni(ctx, "a2"))

	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, pair := range [][2]string{{"s1", "a1"}, {"s2", "a2"}} {
		req, err := mentorship.NewRequest(mentorship.NewRequestParams{
			ID: "r" + pair[0], StudentID: pair[0], AlumniID: pair[1],
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		})
		require.NoError(t, err)
		require.NoError(t, store.Requests().Create(ctx, req))
	}
	require.NoError(t, store.Requests().Decide(ctx, "rs1", mentorship.RequestAccepted, base.Add(2*time.Hour)))
	return store
}

func addFeedback(t *testing.T, store *memory.Store, alumniID string, ratings ...int) {
	t.Helper()
	for i, r := range ratings {
		fb, err := mentorship.NewFeedback(mentorship.NewFeedbackParams{
			ID: alumniID + "-fb-" + string(rune('a'+i)), StudentID: "s1", AlumniID: alumniID, Rating: r,
		})
		require.NoError(t, err)
		require.NoError(t, store.Feedback().Create(context.Background(), fb))
	}
}

// fakeCache is an in-process RatingCache with switchable failure.
type fakeCache struct {
	mu       sync.Mutex
	entries  map[string]mentorship.RatingSummary
	versions map[string]int64
	top      []mentorship.RatingSummary
	fail     bool
	sets     int
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		entries:  make(map[string]mentorship.RatingSummary),
		versions: make(map[string]int64),
	}
}

func (c *fakeCache) GetRating(_ context.Context, id string) (mentorship.RatingSummary, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return mentorship.RatingSummary{}, false, errors.New("cache down")
	}
	s, ok := c.entries[id]
	return s, ok, nil
}

func (c *fakeCache) RatingVersion(_ context.Context, id string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return 0, errors.New("cache down")
	}
	return c.versions[id], nil
}

func (c *fakeCache) invalidate(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.versions[id]++
	delete(c.entries, id)
}

func (c *fakeCache) SetRating(_ context.Context, s mentorship.RatingSummary, version int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("cache down")
	}
	if c.versions[s.AlumniID] != version {
		return nil
	}
	c.sets++
	c.entries[s.AlumniID] = s
	return nil
}

func (c *fakeCache) TopRated(_ context.Context, limit int) ([]mentorship.RatingSummary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return nil, errors.New("cache down")
	}
	if len(c.top) > limit {
		return c.top[:limit], nil
	}
	return c.top, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// RATING
// ══════════════════════════════════════════════════════════════════════════════

func TestAverageRating_NoFeedback(t *testing.T) {
	store := seed(t)
	h := NewRatingHandler(store.Feedback(), store.Directory(), nil, nil)

	got, err := h.AverageRating(context.Background(), "a1")
	require.NoError(t, err)
	assert.False(t, got.HasRatings)
	assert.Zero(t, got.Value)
}

func TestAverageRating_ReadThroughCache(t *testing.T) {
	ctx := context.Background()
	store := seed(t)
	addFeedback(t, store, "a1", 5, 4, 4)
	cache := newFakeCache()
	h := NewRatingHandler(store.Feedback(), store.Directory(), cache, nil)

	got, err := h.AverageRating(ctx, "a1")
	require.NoError(t, err)
	assert.InDelta(t, 4.333, got.Value, 0.001)
	assert.Equal(t, 3, got.Count)
	assert.Equal(t, 1, cache.sets)

	// A hit does not write again.
	_, err = h.AverageRating(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets)
}

// feedbackDuringSummary runs landed once, right after the first summary is
// derived, as if new feedback arrived while the read was in flight.
type feedbackDuringSummary struct {
	mentorship.FeedbackRepository
	once   sync.Once
	landed func()
}

func (f *feedbackDuringSummary) Summary(ctx context.Context, alumniID string) (mentorship.RatingSummary, error) {
	s, err := f.FeedbackRepository.Summary(ctx, alumniID)
	f.once.Do(f.landed)
	return s, err
}

func TestAverageRating_InvalidationDuringReadIsNotOverwritten(t *testing.T) {
	ctx := context.Background()
	store := seed(t)
	cache := newFakeCache()
	repo := &feedbackDuringSummary{FeedbackRepository: store.Feedback()}
	repo.landed = func() {
		addFeedback(t, store, "a1", 5)
		cache.invalidate("a1")
	}
	h := NewRatingHandler(repo, store.Directory(), cache, nil)

	first, err := h.AverageRating(ctx, "a1")
	require.NoError(t, err)
	assert.False(t, first.HasRatings)
	assert.Zero(t, cache.sets, "summary derived before the invalidation is dropped")

	second, err := h.AverageRating(ctx, "a1")
	require.NoError(t, err)
	assert.True(t, second.HasRatings)
	assert.Equal(t, 5.0, second.Value)
}

func TestAverageRating_BrokenCacheFallsThrough(t *testing.T) {
	store := seed(t)
	addFeedback(t, store, "a1", 2, 3)
	cache := newFakeCache()
	cache.fail = true
	h := NewRatingHandler(store.Feedback(), store.Directory(), cache, nil)

	got, err := h.AverageRating(context.Background(), "a1")
	require.NoError(t, err)
	assert.Equal(t, 2.5, got.Value)
}

func TestTopMentors_FallbackRanksDirectory(t *testing.T) {
	store := seed(t)
	addFeedback(t, store, "a1", 4, 4)
	addFeedback(t, store, "a2", 5)
	h := NewRatingHandler(store.Feedback(), store.Directory(), newFakeCache(), nil)

	got, err := h.TopMentors(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a2", got[0].AlumniID)
	assert.Equal(t, 1, got[0].Rank)
	assert.Equal(t, "a1", got[1].AlumniID)
	assert.Equal(t, 2, got[1].RatingCount)
}

func TestTopMentors_FromCacheSkipsUnknown(t *testing.T) {
	store := seed(t)
	addFeedback(t, store, "a1", 3)
	cache := newFakeCache()
	cache.top = []mentorship.RatingSummary{
		{AlumniID: "gone", HasRatings: true, Value: 5},
		{AlumniID: "a1", HasRatings: true, Value: 3},
	}
	h := NewRatingHandler(store.Feedback(), store.Directory(), cache, nil)

	got, err := h.TopMentors(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, TopMentorDTO{Rank: 1, AlumniID: "a1", Name: "Bolat", Industry: "Software", RatingAverage: 3, RatingCount: 1}, got[0])
}

func TestListFeedback(t *testing.T) {
	store := seed(t)
	addFeedback(t, store, "a1", 5)
	h := NewRatingHandler(store.Feedback(), store.Directory(), nil, nil)

	got, err := h.ListFeedback(context.Background(), "a1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 5, got[0].Rating)

	_, err = h.ListFeedback(context.Background(), "nobody")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestRankProfiles(t *testing.T) {
	profiles := []*directory.MentorProfile{
		{AlumniID: "x", Name: "Xenia", RatingAverage: 4.5, RatingCount: 2},
		{AlumniID: "u", Name: "Unrated"},
		{AlumniID: "b", Name: "Berik", RatingAverage: 4.5, RatingCount: 2},
		{AlumniID: "m", Name: "Many", RatingAverage: 4.5, RatingCount: 9},
		{AlumniID: "t", Name: "Top", RatingAverage: 5, RatingCount: 1},
	}
	got := RankProfiles(profiles, 3)

	ids := make([]string, 0, len(got))
	for _, p := range got {
		ids = append(ids, p.AlumniID)
	}
	assert.Equal(t, []string{"t", "m", "b"}, ids)
}

// ══════════════════════════════════════════════════════════════════════════════
// LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

func TestListByStatus_ScopedToActor(t *testing.T) {
	ctx := context.Background()
	store := seed(t)
	h := NewLifecycleHandler(store.Requests(), store.Sessions(), store.Feedback())

	tests := []struct {
		name  string
		actor shared.Actor
		want  []string
	}{
		{"student sees own", student, []string{"rs1"}},
		{"alumnus sees own", alumnus, []string{"rs1"}},
		{"admin sees all newest first", admin, []string{"rs2", "rs1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := h.ListByStatus(ctx, ListRequestsQuery{Actor: tt.actor})
			require.NoError(t, err)
			ids := make([]string, 0, len(got))
			for _, r := range got {
				ids = append(ids, r.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}

	pending, err := h.ListByStatus(ctx, ListRequestsQuery{Actor: admin, Status: "pending"})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "Timur", pending[0].StudentName)

	_, err = h.ListByStatus(ctx, ListRequestsQuery{Actor: admin, Status: "bogus"})
	assert.Error(t, err)
}

func TestReadyToPropose_AndContent(t *testing.T) {
	ctx := context.Background()
	store := seed(t)
	h := NewLifecycleHandler(store.Requests(), store.Sessions(), store.Feedback())

	ready, err := h.ReadyToPropose(ctx, student)
	require.NoError(t, err)
	require.Len(t, ready, 1)

	s, err := mentorship.NewSession(mentorship.NewSessionParams{
		ID: "sess-1", RequestID: "rs1", StudentID: "s1", AlumniID: "a1",
		Date: time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC), Mode: mentorship.ModeOnline, ProposedBy: shared.RoleStudent,
	})
	require.NoError(t, err)
	require.NoError(t, store.Sessions().Create(ctx, s))
	require.NoError(t, store.Sessions().UpdateContent(ctx, "sess-1", "notes"))

	ready, err = h.ReadyToPropose(ctx, student)
	require.NoError(t, err)
	assert.Empty(t, ready)

	content, err := h.GetContent(ctx, student, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "notes", content.Content)

	_, err = h.GetContent(ctx, admin, "sess-1")
	assert.NoError(t, err)

	_, err = h.GetContent(ctx, other, "sess-1")
	assert.ErrorIs(t, err, shared.ErrForbidden)

	sessions, err := h.ListSessions(ctx, ListSessionsQuery{Actor: alumnus, Status: "pending_confirmation"})
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "2024-04-02", sessions[0].Date)
}

func TestStudentStats(t *testing.T) {
	ctx := context.Background()
	store := seed(t)
	h := NewLifecycleHandler(store.Requests(), store.Sessions(), store.Feedback())

	stats, err := h.StudentStats(ctx, student)
	require.NoError(t, err)
	assert.Equal(t, StudentStats{AcceptedRequests: 1}, *stats)

	stats, err = h.StudentStats(ctx, other)
	require.NoError(t, err)
	assert.Equal(t, StudentStats{PendingRequests: 1}, *stats)

	_, err = h.StudentStats(ctx, alumnus)
	assert.ErrorIs(t, err, shared.ErrForbidden)
}

func TestStudentFeedback_PastMentorsAndSubmitted(t *testing.T) {
	ctx := context.Background()
	store := seed(t)
	h := NewLifecycleHandler(store.Requests(), store.Sessions(), store.Feedback())

	date := time.Date(2024, 4, 2, 0, 0, 0, 0, time.UTC)
	for i, alumniID := range []string{"a2", "a1", "a1"} {
		s, err := mentorship.NewSession(mentorship.NewSessionParams{
			ID: fmt.Sprintf("sess-%d", i), StudentID: "s1", AlumniID: alumniID,
			Date: date.AddDate(0, 0, i), Mode: mentorship.ModeOnline, ProposedBy: shared.RoleStudent,
		})
		require.NoError(t, err)
		require.NoError(t, store.Sessions().Create(ctx, s))
	}
	for _, p := range []mentorship.NewFeedbackParams{
		{ID: "fb-old", StudentID: "s1", AlumniID: "a1", Rating: 3, CreatedAt: date},
		{ID: "fb-new", StudentID: "s1", AlumniID: "a1", Rating: 5, Comments: "Helpful", CreatedAt: date.Add(time.Hour)},
		{ID: "fb-other", StudentID: "s2", AlumniID: "a2", Rating: 4, CreatedAt: date},
	} {
		fb, err := mentorship.NewFeedback(p)
		require.NoError(t, err)
		require.NoError(t, store.Feedback().Create(ctx, fb))
	}

	got, err := h.StudentFeedback(ctx, student)
	require.NoError(t, err)
	assert.Equal(t, []PastMentorDTO{
		{AlumniID: "a1", Name: "Bolat", FeedbackGiven: true},
		{AlumniID: "a2", Name: "Saule"},
	}, got.Mentors)
	require.Len(t, got.Submitted, 2)
	assert.Equal(t, "fb-new", got.Submitted[0].ID)
	assert.Equal(t, "a1", got.Submitted[0].AlumniID)
	assert.Equal(t, "Bolat", got.Submitted[0].AlumniName)
	assert.Equal(t, "Helpful", got.Submitted[0].Comments)
	assert.Empty(t, got.Submitted[0].StudentName)

	none, err := h.StudentFeedback(ctx, shared.Actor{UserID: "s3", Role: shared.RoleStudent})
	require.NoError(t, err)
	assert.NotNil(t, none.Mentors)
	assert.Empty(t, none.Mentors)
	assert.Empty(t, none.Submitted)

	_, err = h.StudentFeedback(ctx, alumnus)
	assert.ErrorIs(t, err, shared.ErrForbidden)
}

// ══════════════════════════════════════════════════════════════════════════════
// DIRECTORY & PLACEMENT
// ══════════════════════════════════════════════════════════════════════════════

func TestFindMentors(t *testing.T) {
	ctx := context.Background()
	store := seed(t)
	h := NewDirectoryHandler(store.Directory())

	all, err := h.FindMentors(ctx, FindMentorsQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	fin, err := h.FindMentors(ctx, FindMentorsQuery{Industry: "fin"})
	require.NoError(t, err)
	require.Len(t, fin, 1)
	assert.Equal(t, "a2", fin[0].AlumniID)

	_, err = h.FindMentors(ctx, FindMentorsQuery{MinRating: 6})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestIndustry_SkillsAndApprovedMentors(t *testing.T) {
	ctx := context.Background()
	store := seed(t)
	h := NewDirectoryHandler(store.Directory())

	got, err := h.Industry(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Finance", got.Name)
	assert.NotEmpty(t, got.Description)

	skills := make([]string, 0, len(got.Skills))
	for _, sk := range got.Skills {
		skills = append(skills, sk.Name)
	}
	assert.Equal(t, []string{"Data Analysis", "Python", "SQL"}, skills)

	require.Len(t, got.Mentors, 1)
	assert.Equal(t, "a2", got.Mentors[0].AlumniID)

	_, err = h.Industry(ctx, 99)
	assert.ErrorIs(t, err, directory.ErrIndustryNotFound)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestUsers_AdminListingIsCapped(t *testing.T) {
	ctx := context.Background()
	store := seed(t)
	h := NewDirectoryHandler(store.Directory())

	_, err := h.Users(ctx, student)
	assert.ErrorIs(t, err, shared.ErrForbidden)

	users, err := h.Users(ctx, admin)
	require.NoError(t, err)
	require.Len(t, users.Students, 2)
	assert.Equal(t, "Aigerim", users.Students[0].Name)
	assert.Equal(t, "s1@uni.kz", users.Students[0].Email)

	alumni := make([]string, 0, len(users.Alumni))
	for _, a := range users.Alumni {
		alumni = append(alumni, fmt.Sprintf("%s:%t", a.ID, a.Approved))
	}
	assert.Equal(t, []string{"a1:true", "a3:false", "a2:true"}, alumni)

	for i := 0; i < UserListLimit; i++ {
		require.NoError(t, store.Directory().CreateStudent(ctx, &directory.Student{
			ID: fmt.Sprintf("bulk-%02d", i), Name: fmt.Sprintf("Zz %02d", i), Email: fmt.Sprintf("bulk%02d@uni.kz", i),
		}))
	}
	users, err = h.Users(ctx, admin)
	require.NoError(t, err)
	assert.Len(t, users.Students, UserListLimit)
	assert.Equal(t, "Aigerim", users.Students[0].Name)
}

func TestPendingAlumni_AdminOnly(t *testing.T) {
	ctx := context.Background()
	store := seed(t)
	h := NewDirectoryHandler(store.Directory())

	_, err := h.PendingAlumni(ctx, alumnus)
	assert.ErrorIs(t, err, shared.ErrForbidden)

	pending, err := h.PendingAlumni(ctx, admin)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "a3", pending[0].ID)
}

func TestPlacementReports(t *testing.T) {
	ctx := context.Background()
	store := seed(t)
	h := NewPlacementHandler(store.Placements(), store.Directory())

	p, err := placement.NewPlacement("s1", true, "Kaspi", time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	_, err = store.Placements().Upsert(ctx, p)
	require.NoError(t, err)

	stats, err := h.SiteStatistics(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, SiteStatistics{TotalStudents: 2, TotalAlumni: 2, PlacedStudents: 1, PlacementRate: 0.5}, *stats)

	trends, err := h.Trends(ctx, admin)
	require.NoError(t, err)
	require.Len(t, trends, 1)
	assert.Equal(t, 1, trends[0].Count)

	log, err := h.Log(ctx, admin)
	require.NoError(t, err)
	require.Len(t, log, 1)

	own, err := h.Get(ctx, student, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Kaspi", own.Company)

	_, err = h.Get(ctx, other, "s1")
	assert.ErrorIs(t, err, shared.ErrForbidden)
	_, err = h.Get(ctx, admin, "s2")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	for _, call := range []func() error{
		func() error { _, err := h.SiteStatistics(ctx, student); return err },
		func() error { _, err := h.Trends(ctx, alumnus); return err },
		func() error { _, err := h.Log(ctx, student); return err },
	} {
		assert.ErrorIs(t, call(), shared.ErrForbidden)
	}
}
