package directory

import "github.com/alem-hub/mentorship-portal/internal/domain/shared"

const domain = "directory"

var (
	ErrStudentNotFound = shared.NewDomainError(domain, "FindStudent", shared.ErrNotFound, "student not found")
	// An unapproved alumnus is invisible to students, so it reads as not found.
	ErrAlumniNotFound     = shared.NewDomainError(domain, "FindAlumni", shared.ErrNotFound, "alumnus not found or not approved")
	ErrIndustryNotFound   = shared.NewDomainError(domain, "FindIndustry", shared.ErrNotFound, "industry not found")
	ErrEmailTaken         = shared.NewDomainError(domain, "Register", shared.ErrAlreadyExists, "email already registered")
	ErrInvalidEmail       = shared.NewDomainError(domain, "Register", shared.ErrInvalidInput, "invalid email address")
	ErrProfileIncomplete  = shared.NewDomainError(domain, "Register", shared.ErrInvalidInput, "name, email and password are required")
	ErrInvalidSemester    = shared.NewDomainError(domain, "Register", shared.ErrInvalidInput, "semester must be between 0 and 12")
	ErrInvalidExperience  = shared.NewDomainError(domain, "Register", shared.ErrInvalidInput, "years of experience cannot be negative")
	ErrInvalidCredentials = shared.NewDomainError(domain, "Authenticate", shared.ErrUnauthorized, "invalid email or password")
	ErrAwaitingApproval   = shared.NewDomainError(domain, "Authenticate", shared.ErrPendingApproval, "alumni account is awaiting admin approval")
	ErrAdminOnly          = shared.NewDomainError(domain, "Authorize", shared.ErrForbidden, "administrator role required")
	ErrSkillsOwnerOnly    = shared.NewDomainError(domain, "ReplaceSkills", shared.ErrForbidden, "only students and alumni have skills")
)
