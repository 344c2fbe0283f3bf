package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/alem-hub/mentorship-portal/internal/domain/directory"
	"github.com/alem-hub/mentorship-portal/internal/domain/mentorship"
	"github.com/alem-hub/mentorship-portal/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ERROR HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// Constraint names from migrations.go that carry domain meaning.
const (
	constraintActivePair      = "uq_requests_active_pair"
	constraintSessionRequest  = "uq_sessions_request"
	constraintMeetingLink     = "uq_sessions_meeting_link"
	constraintStudentEmail    = "uq_students_email"
	constraintAlumniEmail     = "uq_alumni_email"
	constraintAdminEmail      = "uq_admins_email"
	constraintAlumniIndustry  = "fk_alumni_industry"
	constraintPlacementPerson = "fk_placements_student"
)

var constraintErrors = map[string]error{
	constraintActivePair:      mentorship.ErrDuplicateActiveRequest,
	constraintSessionRequest:  mentorship.ErrSessionAlreadyProposed,
	constraintMeetingLink:     mentorship.ErrMeetingLinkTaken,
	constraintStudentEmail:    directory.ErrEmailTaken,
	constraintAlumniEmail:     directory.ErrEmailTaken,
	constraintAdminEmail:      directory.ErrEmailTaken,
	constraintAlumniIndustry:  directory.ErrIndustryNotFound,
	constraintPlacementPerson: directory.ErrStudentNotFound,
}

// IsUniqueViolation checks if the error is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}

// IsForeignKeyViolation checks if the error is a foreign key violation.
func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503" // foreign_key_violation
	}
	return false
}

// IsNoRows checks if the error is a "no rows" error.
func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// mapError turns a driver error into the portal's error taxonomy.
// Named constraint violations become the matching domain error; other
// unique and foreign key violations become AlreadyExists and NotFound.
// Remaining server-side failures stay plain errors. Anything that never
// reached the server becomes ErrStoreUnavailable.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if shared.Kind(err) != nil {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if IsNoRows(err) {
		return shared.WrapError("postgres", op, shared.ErrNotFound, "record not found", err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if domainErr, ok := constraintErrors[pgErr.ConstraintName]; ok {
			return domainErr
		}
		switch {
		case IsUniqueViolation(err):
			return shared.WrapError("postgres", op, shared.ErrAlreadyExists, "record already exists", err)
		case IsForeignKeyViolation(err):
			return shared.WrapError("postgres", op, shared.ErrNotFound, "referenced record not found", err)
		}
		return fmt.Errorf("postgres.%s: %w", op, err)
	}

	return shared.WrapError("postgres", op, shared.ErrStoreUnavailable, "database unavailable", err)
}
