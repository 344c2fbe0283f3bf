// Package memory provides an in-memory implementation of the portal's
// repositories, used for tests and ephemeral environments. A single mutex
// serializes every write, which gives the same conditional-write guarantees
// as the unique indexes and guarded UPDATEs of the postgres store.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/alem-hub/mentorship-portal/internal/domain/directory"
	"github.com/alem-hub/mentorship-portal/internal/domain/mentorship"
	"github.com/alem-hub/mentorship-portal/internal/domain/placement"
	"github.com/alem-hub/mentorship-portal/internal/domain/shared"
)

// Compile-time contract assertions.
var (
	_ mentorship.RequestRepository  = (*RequestRepo)(nil)
	_ mentorship.SessionRepository  = (*SessionRepo)(nil)
	_ mentorship.FeedbackRepository = (*FeedbackRepo)(nil)
	_ directory.Repository          = (*DirectoryRepo)(nil)
	_ placement.Repository          = (*PlacementRepo)(nil)
)

// DefaultIndustries seeds a new store.
var DefaultIndustries = []directory.Industry{
	{ID: 1, Name: "Software", Description: "Product engineering and platforms"},
	{ID: 2, Name: "Finance", Description: "Banking, fintech and investment"},
	{ID: 3, Name: "Consulting", Description: "Management and technology consulting"},
	{ID: 4, Name: "Healthcare", Description: "Hospitals, pharma and health tech"},
	{ID: 5, Name: "Manufacturing", Description: "Industrial and hardware"},
}

// DefaultSkills seeds a new store.
var DefaultSkills = []directory.Skill{
	{ID: 1, Name: "Go"},
	{ID: 2, Name: "Python"},
	{ID: 3, Name: "SQL"},
	{ID: 4, Name: "Machine Learning"},
	{ID: 5, Name: "Cloud"},
	{ID: 6, Name: "Product Management"},
	{ID: 7, Name: "Data Analysis"},
	{ID: 8, Name: "Public Speaking"},
}

// DefaultIndustrySkills maps an industry id to the ids of its key skills.
var DefaultIndustrySkills = map[int][]int{
	1: {1, 2, 5},
	2: {2, 3, 7},
	3: {6, 7, 8},
	4: {2, 4, 7},
	5: {3, 6, 7},
}

type state struct {
	requests map[string]*mentorship.Request
	sessions map[string]*mentorship.Session
	feedback []*mentorship.Feedback

	students map[string]*directory.Student
	alumni   map[string]*directory.Alumni
	admins   map[string]*directory.Account
	// emails indexes role+email to the owner's id.
	emails     map[string]string
	industries []directory.Industry
	skills     []directory.Skill
	// industrySkills maps an industry id to skill ids.
	industrySkills map[int][]int

	placements map[string]*placement.Placement
	placeLog   []*placement.LogEntry
	nextLogID  int64
}

// Store holds all in-memory state. Use the accessor methods to get the
// per-aggregate repositories.
type Store struct {
	mu sync.RWMutex
	st state
}

// NewStore returns an empty store seeded with reference data.
func NewStore() *Store {
	s := &Store{
		st: state{
			requests:   make(map[string]*mentorship.Request),
			sessions:   make(map[string]*mentorship.Session),
			students:   make(map[string]*directory.Student),
			alumni:     make(map[string]*directory.Alumni),
			admins:     make(map[string]*directory.Account),
			emails:     make(map[string]string),
			placements: make(map[string]*placement.Placement),

			industrySkills: make(map[int][]int, len(DefaultIndustrySkills)),
		},
	}
	s.st.industries = append(s.st.industries, DefaultIndustries...)
	s.st.skills = append(s.st.skills, DefaultSkills...)
	for id, skills := range DefaultIndustrySkills {
		s.st.industrySkills[id] = append([]int(nil), skills...)
	}
	return s
}

// Requests returns the request repository.
func (s *Store) Requests() *RequestRepo { return &RequestRepo{s: s} }

// Sessions returns the session repository.
func (s *Store) Sessions() *SessionRepo { return &SessionRepo{s: s} }

// Feedback returns the feedback repository.
func (s *Store) Feedback() *FeedbackRepo { return &FeedbackRepo{s: s} }

// Directory returns the directory repository.
func (s *Store) Directory() *DirectoryRepo { return &DirectoryRepo{s: s} }

// Placements returns the placement repository.
func (s *Store) Placements() *PlacementRepo { return &PlacementRepo{s: s} }

// Ping always succeeds; it lets the store stand in for a database in health
// checks.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func emailKey(role shared.Role, email string) string {
	return string(role) + "|" + strings.ToLower(strings.TrimSpace(email))
}

func (s *Store) studentName(id string) string {
	if st, ok := s.st.students[id]; ok {
		return st.Name
	}
	return ""
}

func (s *Store) alumniName(id string) string {
	if a, ok := s.st.alumni[id]; ok {
		return a.Name
	}
	return ""
}
