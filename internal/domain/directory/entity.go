// Package directory models the people on the portal: students, alumni and
// administrators, plus the industry and skill reference data used to find
// mentors.
package directory

import (
	"net/mail"
	"strings"
	"time"

	"github.com/alem-hub/mentorship-portal/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REFERENCE DATA
// ══════════════════════════════════════════════════════════════════════════════

// Industry groups alumni by field of work.
type Industry struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Skill is a named competency attached to students and alumni.
type Skill struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// ══════════════════════════════════════════════════════════════════════════════
// PEOPLE
// ══════════════════════════════════════════════════════════════════════════════

// Student is a current student looking for mentorship.
type Student struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Semester     int
	Department   string
	Phone        string
	Skills       []string
	CreatedAt    time.Time
}

// Alumni is a graduate who can mentor once an admin approves the account.
type Alumni struct {
	ID                string
	Name              string
	Email             string
	PasswordHash      string
	GraduatingYear    int
	IndustryID        int
	IndustryName      string
	Designation       string
	YearsOfExperience int
	Phone             string
	Approved          bool
	Skills            []string
	CreatedAt         time.Time
}

// Account is the login view of any person, independent of role.
type Account struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         shared.Role
	// Approved is always true for students and admins.
	Approved bool
}

// NewStudentParams holds the inputs for NewStudent.
type NewStudentParams struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Semester     int
	Department   string
	Phone        string
}

// NewStudent validates and builds a Student.
func NewStudent(params NewStudentParams) (*Student, error) {
	name := strings.TrimSpace(params.Name)
	email, err := normalizeEmail(params.Email)
	if err != nil {
		return nil, err
	}
	if params.ID == "" || name == "" || params.PasswordHash == "" {
		return nil, ErrProfileIncomplete
	}
	if params.Semester < 0 || params.Semester > 12 {
		return nil, ErrInvalidSemester
	}

	return &Student{
		ID:           params.ID,
		Name:         name,
		Email:        email,
		PasswordHash: params.PasswordHash,
		Semester:     params.Semester,
		Department:   strings.TrimSpace(params.Department),
		Phone:        strings.TrimSpace(params.Phone),
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// NewAlumniParams holds the inputs for NewAlumni.
type NewAlumniParams struct {
	ID                string
	Name              string
	Email             string
	PasswordHash      string
	GraduatingYear    int
	IndustryID        int
	Designation       string
	YearsOfExperience int
	Phone             string
}

// NewAlumni builds an unapproved Alumni.
func NewAlumni(params NewAlumniParams) (*Alumni, error) {
	name := strings.TrimSpace(params.Name)
	email, err := normalizeEmail(params.Email)
	if err != nil {
		return nil, err
	}
	if params.ID == "" || name == "" || params.PasswordHash == "" {
		return nil, ErrProfileIncomplete
	}
	if params.IndustryID <= 0 {
		return nil, ErrIndustryNotFound
	}
	if params.YearsOfExperience < 0 {
		return nil, ErrInvalidExperience
	}

	return &Alumni{
		ID:                params.ID,
		Name:              name,
		Email:             email,
		PasswordHash:      params.PasswordHash,
		GraduatingYear:    params.GraduatingYear,
		IndustryID:        params.IndustryID,
		Designation:       strings.TrimSpace(params.Designation),
		YearsOfExperience: params.YearsOfExperience,
		Phone:             strings.TrimSpace(params.Phone),
		Approved:          false,
		CreatedAt:         time.Now().UTC(),
	}, nil
}

// CanMentor reports whether the alumnus may receive requests.
func (a *Alumni) CanMentor() bool {
	return a.Approved
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", ErrInvalidEmail
	}
	return strings.ToLower(addr.Address), nil
}

// NormalizeSkills trims, drops blanks and de-duplicates case-insensitively,
// keeping the first spelling.
func NormalizeSkills(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		key := strings.ToLower(n)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, n)
	}
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// MENTOR SEARCH
// ══════════════════════════════════════════════════════════════════════════════

// MentorFilter narrows the approved-alumni directory. Zero values do not
// filter. Text filters are case-insensitive substring matches except Skill,
// which must equal a skill name. IndustryID matches exactly.
type MentorFilter struct {
	Name       string
	Industry   string
	IndustryID int
	Skill      string
	MinRating  float64
}

// MentorProfile is an approved alumnus as shown in search results.
type MentorProfile struct {
	AlumniID          string   `json:"alumni_id"`
	Name              string   `json:"name"`
	Designation       string   `json:"designation"`
	YearsOfExperience int      `json:"years_of_experience"`
	IndustryName      string   `json:"industry"`
	Skills            []string `json:"skills"`
	RatingAverage     float64  `json:"rating_average"`
	RatingCount       int      `json:"rating_count"`
}

// Counts are the headline numbers for the admin dashboard.
type Counts struct {
	Students       int `json:"total_students"`
	ApprovedAlumni int `json:"total_alumni"`
}
