package directory

import (
	"context"

	"github.com/alem-hub/mentorship-portal/internal/domain/shared"
)

// Repository stores people and reference data.
type Repository interface {
	// ─────────────────────────────────────────────────────────────────────────
	// Registration & approval
	// ─────────────────────────────────────────────────────────────────────────

	// CreateStudent returns ErrEmailTaken on a duplicate email.
	CreateStudent(ctx context.Context, s *Student) error

	// CreateAlumni returns ErrEmailTaken or ErrIndustryNotFound.
	CreateAlumni(ctx context.Context, a *Alumni) error

	// CreateAdmin returns ErrEmailTaken on a duplicate email.
	CreateAdmin(ctx context.Context, acc *Account) error

	// ApproveAlumni returns ErrAlumniNotFound when no such alumnus exists.
	ApproveAlumni(ctx context.Context, id string) error

	// ReplaceSkills swaps the owner's skills for the known names among
	// names, in one transaction. It returns the names actually stored.
	ReplaceSkills(ctx context.Context, role shared.Role, ownerID string, names []string) ([]string, error)

	// ─────────────────────────────────────────────────────────────────────────
	// Lookups
	// ─────────────────────────────────────────────────────────────────────────

	GetStudent(ctx context.Context, id string) (*Student, error)

	// GetAlumni returns the alumnus regardless of approval.
	GetAlumni(ctx context.Context, id string) (*Alumni, error)

	// FindAccount returns the login record for role and email, or
	// ErrInvalidCredentials if none exists.
	FindAccount(ctx context.Context, role shared.Role, email string) (*Account, error)

	ListPendingAlumni(ctx context.Context) ([]*Alumni, error)
	ListApprovedAlumniIDs(ctx context.Context) ([]string, error)

	// ListStudents and ListAlumni return at most limit accounts ordered by
	// name. Alumni are listed regardless of approval.
	ListStudents(ctx context.Context, limit int) ([]*Student, error)
	ListAlumni(ctx context.Context, limit int) ([]*Alumni, error)

	ListIndustries(ctx context.Context) ([]Industry, error)
	ListSkills(ctx context.Context) ([]Skill, error)

	// GetIndustry returns ErrIndustryNotFound when no such industry exists.
	GetIndustry(ctx context.Context, id int) (*Industry, error)

	// IndustrySkills lists the key skills of an industry, ordered by name.
	IndustrySkills(ctx context.Context, industryID int) ([]Skill, error)

	// SearchMentors lists approved alumni matching filter, ordered by name.
	SearchMentors(ctx context.Context, filter MentorFilter) ([]*MentorProfile, error)

	Counts(ctx context.Context) (Counts, error)
}
