package query

import (
	"context"
	"fmt"
	"sort"

	"github.com/alem-hub/mentorship-portal/internal/domain/directory"
	"github.com/alem-hub/mentorship-portal/internal/domain/shared"
)

// FindMentorsQuery filters the approved-alumni directory.
type FindMentorsQuery struct {
	Name      string
	Industry  string
	Skill     string
	MinRating float64
}

// Validate clamps the rating filter into range.
func (q *FindMentorsQuery) Validate() error {
	if q.MinRating < 0 || q.MinRating > 5 {
		return shared.NewDomainError("query", "FindMentors", shared.ErrInvalidInput, "min_rating must be between 0 and 5")
	}
	return nil
}

// UserListLimit caps each list of the admin user listing.
const UserListLimit = 50

// IndustryDetail is an industry with its key skills and approved mentors.
type IndustryDetail struct {
	directory.Industry
	Skills  []directory.Skill          `json:"skills"`
	Mentors []*directory.MentorProfile `json:"mentors"`
}

// UserListing is the admin view of registered accounts.
type UserListing struct {
	Students []StudentDTO `json:"students"`
	Alumni   []AlumniDTO  `json:"alumni"`
}

// DirectoryHandler answers directory queries.
type DirectoryHandler struct {
	directory directory.Repository
}

// NewDirectoryHandler creates a new DirectoryHandler.
func NewDirectoryHandler(dir directory.Repository) *DirectoryHandler {
	return &DirectoryHandler{directory: dir}
}

// FindMentors lists approved alumni matching the filters, ordered by name.
func (h *DirectoryHandler) FindMentors(ctx context.Context, q FindMentorsQuery) ([]*directory.MentorProfile, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	profiles, err := h.directory.SearchMentors(ctx, directory.MentorFilter{
		Name:      q.Name,
		Industry:  q.Industry,
		Skill:     q.Skill,
		MinRating: q.MinRating,
	})
	if err != nil {
		return nil, fmt.Errorf("find_mentors: %w", err)
	}
	return profiles, nil
}

// Industries lists the industry reference data.
func (h *DirectoryHandler) Industries(ctx context.Context) ([]directory.Industry, error) {
	return h.directory.ListIndustries(ctx)
}

// Skills lists the skill reference data.
func (h *DirectoryHandler) Skills(ctx context.Context) ([]directory.Skill, error) {
	return h.directory.ListSkills(ctx)
}

// Industry returns one industry with its skills and approved mentors.
func (h *DirectoryHandler) Industry(ctx context.Context, id int) (*IndustryDetail, error) {
	ind, err := h.directory.GetIndustry(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("industry: %w", err)
	}
	skills, err := h.directory.IndustrySkills(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("industry: %w", err)
	}
	mentors, err := h.directory.SearchMentors(ctx, directory.MentorFilter{IndustryID: id})
	if err != nil {
		return nil, fmt.Errorf("industry: %w", err)
	}
	return &IndustryDetail{Industry: *ind, Skills: skills, Mentors: mentors}, nil
}

// Users lists students and alumni by name, up to UserListLimit of each.
// Admin only.
func (h *DirectoryHandler) Users(ctx context.Context, actor shared.Actor) (*UserListing, error) {
	if !actor.IsAdmin() {
		return nil, directory.ErrAdminOnly
	}
	students, err := h.directory.ListStudents(ctx, UserListLimit)
	if err != nil {
		return nil, fmt.Errorf("users: %w", err)
	}
	alumni, err := h.directory.ListAlumni(ctx, UserListLimit)
	if err != nil {
		return nil, fmt.Errorf("users: %w", err)
	}

	out := &UserListing{
		Students: make([]StudentDTO, 0, len(students)),
		Alumni:   make([]AlumniDTO, 0, len(alumni)),
	}
	for _, s := range students {
		out.Students = append(out.Students, NewStudentDTO(s))
	}
	for _, a := range alumni {
		out.Alumni = append(out.Alumni, NewAlumniDTO(a))
	}
	return out, nil
}

// PendingAlumni lists alumni awaiting approval. Admin only.
func (h *DirectoryHandler) PendingAlumni(ctx context.Context, actor shared.Actor) ([]AlumniDTO, error) {
	if !actor.IsAdmin() {
		return nil, directory.ErrAdminOnly
	}
	pending, err := h.directory.ListPendingAlumni(ctx)
	if err != nil {
		return nil, fmt.Errorf("pending_alumni: %w", err)
	}
	out := make([]AlumniDTO, 0, len(pending))
	for _, a := range pending {
		out = append(out, NewAlumniDTO(a))
	}
	return out, nil
}

func sortProfiles(p []*directory.MentorProfile) {
	sort.SliceStable(p, func(i, j int) bool {
		if p[i].RatingAverage != p[j].RatingAverage {
			return p[i].RatingAverage > p[j].RatingAverage
		}
		if p[i].RatingCount != p[j].RatingCount {
			return p[i].RatingCount > p[j].RatingCount
		}
		return p[i].Name < p[j].Name
	})
}
