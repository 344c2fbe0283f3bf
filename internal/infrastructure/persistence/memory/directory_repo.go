package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/alem-hub/mentorship-portal/internal/domain/directory"
	"github.com/alem-hub/mentorship-portal/internal/domain/shared"
)

// DirectoryRepo implements directory.Repository.
type DirectoryRepo struct {
	s *Store
}

// CreateStudent implements directory.Repository.
func (r *DirectoryRepo) CreateStudent(ctx context.Context, st *directory.Student) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := emailKey(shared.RoleStudent, st.Email)
	if _, taken := r.s.st.emails[key]; taken {
		return directory.ErrEmailTaken
	}
	c := *st
	c.Skills = append([]string(nil), st.Skills...)
	r.s.st.students[st.ID] = &c
	r.s.st.emails[key] = st.ID
	return nil
}

// CreateAlumni implements directory.Repository.
func (r *DirectoryRepo) CreateAlumni(ctx context.Context, a *directory.Alumni) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := emailKey(shared.RoleAlumni, a.Email)
	if _, taken := r.s.st.emails[key]; taken {
		return directory.ErrEmailTaken
	}
	if r.industryLocked(a.IndustryID) == nil {
		return directory.ErrIndustryNotFound
	}
	c := *a
	c.Skills = append([]string(nil), a.Skills...)
	r.s.st.alumni[a.ID] = &c
	r.s.st.emails[key] = a.ID
	return nil
}

// CreateAdmin implements directory.Repository.
func (r *DirectoryRepo) CreateAdmin(ctx context.Context, acc *directory.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := emailKey(shared.RoleAdmin, acc.Email)
	if _, taken := r.s.st.emails[key]; taken {
		return directory.ErrEmailTaken
	}
	c := *acc
	c.Role = shared.RoleAdmin
	c.Approved = true
	r.s.st.admins[acc.ID] = &c
	r.s.st.emails[key] = acc.ID
	return nil
}

// ApproveAlumni implements directory.Repository.
func (r *DirectoryRepo) ApproveAlumni(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.st.alumni[id]
	if !ok {
		return directory.ErrAlumniNotFound
	}
	a.Approved = true
	return nil
}

// ReplaceSkills implements directory.Repository.
func (r *DirectoryRepo) ReplaceSkills(ctx context.Context, role shared.Role, ownerID string, names []string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	known := make(map[string]string, len(r.s.st.skills))
	for _, sk := range r.s.st.skills {
		known[strings.ToLower(sk.Name)] = sk.Name
	}
	applied := make([]string, 0, len(names))
	for _, n := range directory.NormalizeSkills(names) {
		if canonical, ok := known[strings.ToLower(n)]; ok {
			applied = append(applied, canonical)
		}
	}

	switch role {
	case shared.RoleStudent:
		st, ok := r.s.st.students[ownerID]
		if !ok {
			return nil, directory.ErrStudentNotFound
		}
		st.Skills = applied
	case shared.RoleAlumni:
		a, ok := r.s.st.alumni[ownerID]
		if !ok {
			return nil, directory.ErrAlumniNotFound
		}
		a.Skills = applied
	default:
		return nil, directory.ErrSkillsOwnerOnly
	}
	return append([]string(nil), applied...), nil
}

// GetStudent implements directory.Repository.
func (r *DirectoryRepo) GetStudent(ctx context.Context, id string) (*directory.Student, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	st, ok := r.s.st.students[id]
	if !ok {
		return nil, directory.ErrStudentNotFound
	}
	c := *st
	c.Skills = append([]string(nil), st.Skills...)
	return &c, nil
}

// GetAlumni implements directory.Repository.
func (r *DirectoryRepo) GetAlumni(ctx context.Context, id string) (*directory.Alumni, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	a, ok := r.s.st.alumni[id]
	if !ok {
		return nil, directory.ErrAlumniNotFound
	}
	return r.alumniCopyLocked(a), nil
}

func (r *DirectoryRepo) alumniCopyLocked(a *directory.Alumni) *directory.Alumni {
	c := *a
	c.Skills = append([]string(nil), a.Skills...)
	if ind := r.industryLocked(a.IndustryID); ind != nil {
		c.IndustryName = ind.Name
	}
	return &c
}

func (r *DirectoryRepo) industryLocked(id int) *directory.Industry {
	for i := range r.s.st.industries {
		if r.s.st.industries[i].ID == id {
			return &r.s.st.industries[i]
		}
	}
	return nil
}

// FindAccount implements directory.Repository.
func (r *DirectoryRepo) FindAccount(ctx context.Context, role shared.Role, email string) (*directory.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.st.emails[emailKey(role, email)]
	if !ok {
		return nil, directory.ErrInvalidCredentials
	}

	switch role {
	case shared.RoleStudent:
		st := r.s.st.students[id]
		return &directory.Account{ID: st.ID, Name: st.Name, Email: st.Email, PasswordHash: st.PasswordHash, Role: role, Approved: true}, nil
	case shared.RoleAlumni:
		a := r.s.st.alumni[id]
		return &directory.Account{ID: a.ID, Name: a.Name, Email: a.Email, PasswordHash: a.PasswordHash, Role: role, Approved: a.Approved}, nil
	default:
		c := *r.s.st.admins[id]
		return &c, nil
	}
}

// ListPendingAlumni implements directory.Repository.
func (r *DirectoryRepo) ListPendingAlumni(ctx context.Context) ([]*directory.Alumni, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*directory.Alumni, 0)
	for _, a := range r.s.st.alumni {
		if !a.Approved {
			out = append(out, r.alumniCopyLocked(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ListApprovedAlumniIDs implements directory.Repository.
func (r *DirectoryRepo) ListApprovedAlumniIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]string, 0)
	for id, a := range r.s.st.alumni {
		if a.Approved {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out, nil
}

// ListIndustries implements directory.Repository.
func (r *DirectoryRepo) ListIndustries(ctx context.Context) ([]directory.Industry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := append([]directory.Industry(nil), r.s.st.industries...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ListSkills implements directory.Repository.
func (r *DirectoryRepo) ListSkills(ctx context.Context) ([]directory.Skill, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := append([]directory.Skill(nil), r.s.st.skills...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// GetIndustry implements directory.Repository.
func (r *DirectoryRepo) GetIndustry(ctx context.Context, id int) (*directory.Industry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	ind := r.industryLocked(id)
	if ind == nil {
		return nil, directory.ErrIndustryNotFound
	}
	c := *ind
	return &c, nil
}

// IndustrySkills implements directory.Repository.
func (r *DirectoryRepo) IndustrySkills(ctx context.Context, industryID int) ([]directory.Skill, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	ids := make(map[int]struct{})
	for _, id := range r.s.st.industrySkills[industryID] {
		ids[id] = struct{}{}
	}
	out := make([]directory.Skill, 0, len(ids))
	for _, sk := range r.s.st.skills {
		if _, ok := ids[sk.ID]; ok {
			out = append(out, sk)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ListStudents implements directory.Repository.
func (r *DirectoryRepo) ListStudents(ctx context.Context, limit int) ([]*directory.Student, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*directory.Student, 0, len(r.s.st.students))
	for _, st := range r.s.st.students {
		c := *st
		c.Skills = append([]string(nil), st.Skills...)
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ListAlumni implements directory.Repository.
func (r *DirectoryRepo) ListAlumni(ctx context.Context, limit int) ([]*directory.Alumni, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*directory.Alumni, 0, len(r.s.st.alumni))
	for _, a := range r.s.st.alumni {
		out = append(out, r.alumniCopyLocked(a))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// SearchMentors implements directory.Repository.
func (r *DirectoryRepo) SearchMentors(ctx context.Context, filter directory.MentorFilter) ([]*directory.MentorProfile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	name := strings.ToLower(strings.TrimSpace(filter.Name))
	industry := strings.ToLower(strings.TrimSpace(filter.Industry))
	skill := strings.ToLower(strings.TrimSpace(filter.Skill))
	feedback := r.s.Feedback()

	out := make([]*directory.MentorProfile, 0)
	for _, a := range r.s.st.alumni {
		if !a.Approved {
			continue
		}
		full := r.alumniCopyLocked(a)
		if name != "" && !strings.Contains(strings.ToLower(full.Name), name) {
			continue
		}
		if industry != "" && !strings.Contains(strings.ToLower(full.IndustryName), industry) {
			continue
		}
		if filter.IndustryID > 0 && full.IndustryID != filter.IndustryID {
			continue
		}
		if skill != "" && !containsFold(full.Skills, skill) {
			continue
		}

		summary := feedback.summaryLocked(a.ID)
		if filter.MinRating > 0 && summary.Value < filter.MinRating {
			continue
		}

		out = append(out, &directory.MentorProfile{
			AlumniID:          full.ID,
			Name:              full.Name,
			Designation:       full.Designation,
			YearsOfExperience: full.YearsOfExperience,
			IndustryName:      full.IndustryName,
			Skills:            full.Skills,
			RatingAverage:     summary.Rounded(),
			RatingCount:       summary.Count,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func containsFold(list []string, want string) bool {
	for _, v := range list {
		if strings.ToLower(v) == want {
			return true
		}
	}
	return false
}

// Counts implements directory.Repository.
func (r *DirectoryRepo) Counts(ctx context.Context) (directory.Counts, error) {
	if err := ctx.Err(); err != nil {
		return directory.Counts{}, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c := directory.Counts{Students: len(r.s.st.students)}
	for _, a := range r.s.st.alumni {
		if a.Approved {
			c.ApprovedAlumni++
		}
	}
	return c, nil
}
