// Package shared contains common domain types, errors, events, and the actor
// context used across all domain packages. This package has zero external
// dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base error kinds, matched with errors.Is().
var (
	// Lifecycle taxonomy
	ErrDuplicateActiveRequest = errors.New("an active mentorship request already exists")
	ErrInvalidTransition      = errors.New("invalid state transition")
	ErrInvalidRating          = errors.New("rating must be between 1 and 5")
	ErrNotFound               = errors.New("entity not found")
	ErrStoreUnavailable       = errors.New("store unavailable")

	// Directory and access
	ErrAlreadyExists   = errors.New("entity already exists")
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrPendingApproval = errors.New("account pending approval")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "mentorship", "directory", "placement"
	Op      string // Operation that failed, e.g., "CreateRequest"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Kind returns the taxonomy kind of err, or nil if err carries none.
func Kind(err error) error {
	for _, k := range []error{
		ErrDuplicateActiveRequest,
		ErrInvalidTransition,
		ErrInvalidRating,
		ErrNotFound,
		ErrStoreUnavailable,
		ErrAlreadyExists,
		ErrInvalidInput,
		ErrUnauthorized,
		ErrForbidden,
		ErrPendingApproval,
	} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsStoreUnavailable reports whether the store could not be reached.
func IsStoreUnavailable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}
