package mentorship

import "github.com/alem-hub/mentorship-portal/internal/domain/shared"

const domain = "mentorship"

// Request errors
var (
	ErrRequestNotFound        = shared.NewDomainError(domain, "FindRequest", shared.ErrNotFound, "mentorship request not found")
	ErrDuplicateActiveRequest = shared.NewDomainError(domain, "CreateRequest", shared.ErrDuplicateActiveRequest, "a pending or accepted request to this alumnus already exists")
	ErrRequestIncomplete      = shared.NewDomainError(domain, "CreateRequest", shared.ErrInvalidInput, "request id, student and alumnus are required")
	ErrUnknownRequestStatus   = shared.NewDomainError(domain, "ParseStatus", shared.ErrInvalidInput, "unknown request status")
	ErrInvalidDecision        = shared.NewDomainError(domain, "DecideRequest", shared.ErrInvalidInput, "decision must be accepted or declined")
	ErrRequestAlreadyDecided  = shared.NewDomainError(domain, "DecideRequest", shared.ErrInvalidTransition, "request is no longer pending")
	ErrRequestNotAccepted     = shared.NewDomainError(domain, "ProposeSession", shared.ErrInvalidTransition, "request has not been accepted")
)

// Session errors
var (
	ErrSessionNotFound        = shared.NewDomainError(domain, "FindSession", shared.ErrNotFound, "mentorship session not found")
	ErrSessionAlreadyProposed = shared.NewDomainError(domain, "ProposeSession", shared.ErrInvalidTransition, "a session was already proposed for this request")
	ErrSessionIncomplete      = shared.NewDomainError(domain, "ProposeSession", shared.ErrInvalidInput, "session id, student and alumnus are required")
	ErrSessionDateRequired    = shared.NewDomainError(domain, "ProposeSession", shared.ErrInvalidInput, "session date is required")
	ErrInvalidProposer        = shared.NewDomainError(domain, "ProposeSession", shared.ErrInvalidInput, "sessions are proposed by a student or an alumnus")
	ErrUnknownMode            = shared.NewDomainError(domain, "ParseMode", shared.ErrInvalidInput, "mode must be online or in_person")
	ErrUnknownSessionStatus   = shared.NewDomainError(domain, "ParseStatus", shared.ErrInvalidInput, "unknown session status")
	ErrSessionNotPending      = shared.NewDomainError(domain, "TransitionSession", shared.ErrInvalidTransition, "session is not awaiting confirmation")
	ErrConfirmOwnProposal     = shared.NewDomainError(domain, "ConfirmSession", shared.ErrInvalidTransition, "the proposer cannot confirm their own session")
	ErrSessionNotConfirmed    = shared.NewDomainError(domain, "CompleteSession", shared.ErrInvalidTransition, "session is not confirmed")
	ErrMeetingLinkRequired    = shared.NewDomainError(domain, "ConfirmSession", shared.ErrInvalidInput, "meeting link is required")
	// ErrMeetingLinkTaken signals a link collision; the caller draws a new one.
	ErrMeetingLinkTaken = shared.NewDomainError(domain, "ConfirmSession", shared.ErrAlreadyExists, "meeting link already issued")
)

// Feedback errors
var (
	ErrRatingOutOfRange   = shared.NewDomainError(domain, "SubmitFeedback", shared.ErrInvalidRating, "rating must be between 1 and 5")
	ErrFeedbackIncomplete = shared.NewDomainError(domain, "SubmitFeedback", shared.ErrInvalidInput, "feedback id, student and alumnus are required")
)

// Access errors
var (
	ErrNotParty     = shared.NewDomainError(domain, "Authorize", shared.ErrForbidden, "actor is not a party to this mentorship")
	ErrNotMentor    = shared.NewDomainError(domain, "Authorize", shared.ErrForbidden, "only the session's alumnus may do this")
	ErrStudentsOnly = shared.NewDomainError(domain, "Authorize", shared.ErrForbidden, "only students may do this")
)
