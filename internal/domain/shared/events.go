package shared

import (
	"encoding/json"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. Each is published after the write it describes has
// been committed.
const (
	// Request events
	EventRequestCreated EventType = "mentorship.request_created"
	EventRequestDecided EventType = "mentorship.request_decided"

	// Session events
	EventSessionProposed  EventType = "mentorship.session_proposed"
	EventSessionConfirmed EventType = "mentorship.session_confirmed"
	EventSessionCompleted EventType = "mentorship.session_completed"
	EventSessionCancelled EventType = "mentorship.session_cancelled"

	// Feedback events
	EventFeedbackSubmitted EventType = "feedback.submitted"

	// Directory and placement events
	EventAlumniApproved    EventType = "directory.alumni_approved"
	EventPlacementRecorded EventType = "placement.recorded"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Request Events
// ═══════════════════════════════════════════════════════════════════════════

// RequestCreatedEvent is emitted when a student asks an alumnus for mentorship.
type RequestCreatedEvent struct {
	BaseEvent
	StudentID string `json:"student_id"`
	AlumniID  string `json:"alumni_id"`
}

// Payload implements Event interface.
func (e RequestCreatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id": e.StudentID,
		"alumni_id":  e.AlumniID,
	}
}

// NewRequestCreatedEvent creates a new RequestCreatedEvent.
func NewRequestCreatedEvent(requestID, studentID, alumniID string) RequestCreatedEvent {
	return RequestCreatedEvent{
		BaseEvent: NewBaseEvent(EventRequestCreated, requestID),
		StudentID: studentID,
		AlumniID:  alumniID,
	}
}

// RequestDecidedEvent is emitted when an alumnus accepts or declines.
type RequestDecidedEvent struct {
	BaseEvent
	StudentID string `json:"student_id"`
	AlumniID  string `json:"alumni_id"`
	Decision  string `json:"decision"`
}

// Payload implements Event interface.
func (e RequestDecidedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id": e.StudentID,
		"alumni_id":  e.AlumniID,
		"decision":   e.Decision,
	}
}

// NewRequestDecidedEvent creates a new RequestDecidedEvent.
func NewRequestDecidedEvent(requestID, studentID, alumniID, decision string) RequestDecidedEvent {
	return RequestDecidedEvent{
		BaseEvent: NewBaseEvent(EventRequestDecided, requestID),
		StudentID: studentID,
		AlumniID:  alumniID,
		Decision:  decision,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Session Events
// ═══════════════════════════════════════════════════════════════════════════

// SessionEvent covers every session transition; Type tells them apart.
type SessionEvent struct {
	BaseEvent
	RequestID   string `json:"request_id,omitempty"`
	StudentID   string `json:"student_id"`
	AlumniID    string `json:"alumni_id"`
	ActorRole   string `json:"actor_role"`
	MeetingLink string `json:"meeting_link,omitempty"`
}

// Payload implements Event interface.
func (e SessionEvent) Payload() map[string]interface{} {
	p := map[string]interface{}{
		"request_id": e.RequestID,
		"student_id": e.StudentID,
		"alumni_id":  e.AlumniID,
		"actor_role": e.ActorRole,
	}
	if e.MeetingLink != "" {
		p["meeting_link"] = e.MeetingLink
	}
	return p
}

// NewSessionEvent creates a session transition event of the given type.
func NewSessionEvent(eventType EventType, sessionID, requestID, studentID, alumniID string, actorRole Role) SessionEvent {
	return SessionEvent{
		BaseEvent: NewBaseEvent(eventType, sessionID),
		RequestID: requestID,
		StudentID: studentID,
		AlumniID:  alumniID,
		ActorRole: string(actorRole),
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Feedback Events
// ═══════════════════════════════════════════════════════════════════════════

// FeedbackSubmittedEvent is emitted when a student rates an alumnus. The
// aggregate is the alumnus, since that is whose rating changed.
type FeedbackSubmittedEvent struct {
	BaseEvent
	StudentID string `json:"student_id"`
	AlumniID  string `json:"alumni_id"`
	Rating    int    `json:"rating"`
}

// Payload implements Event interface.
func (e FeedbackSubmittedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id": e.StudentID,
		"alumni_id":  e.AlumniID,
		"rating":     e.Rating,
	}
}

// NewFeedbackSubmittedEvent creates a new FeedbackSubmittedEvent.
func NewFeedbackSubmittedEvent(studentID, alumniID string, rating int) FeedbackSubmittedEvent {
	return FeedbackSubmittedEvent{
		BaseEvent: NewBaseEvent(EventFeedbackSubmitted, alumniID),
		StudentID: studentID,
		AlumniID:  alumniID,
		Rating:    rating,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Directory & Placement Events
// ═══════════════════════════════════════════════════════════════════════════

// AlumniApprovedEvent is emitted when an admin approves an alumni account.
type AlumniApprovedEvent struct {
	BaseEvent
	ApprovedBy string `json:"approved_by"`
}

// Payload implements Event interface.
func (e AlumniApprovedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"approved_by": e.ApprovedBy,
	}
}

// NewAlumniApprovedEvent creates a new AlumniApprovedEvent.
func NewAlumniApprovedEvent(alumniID, adminID string) AlumniApprovedEvent {
	return AlumniApprovedEvent{
		BaseEvent:  NewBaseEvent(EventAlumniApproved, alumniID),
		ApprovedBy: adminID,
	}
}

// PlacementRecordedEvent is emitted after a placement upsert.
type PlacementRecordedEvent struct {
	BaseEvent
	IsPlaced bool   `json:"is_placed"`
	Company  string `json:"company,omitempty"`
	Logged   bool   `json:"logged"`
}

// Payload implements Event interface.
func (e PlacementRecordedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"is_placed": e.IsPlaced,
		"company":   e.Company,
		"logged":    e.Logged,
	}
}

// NewPlacementRecordedEvent creates a new PlacementRecordedEvent.
func NewPlacementRecordedEvent(studentID string, isPlaced bool, company string, logged bool) PlacementRecordedEvent {
	return PlacementRecordedEvent{
		BaseEvent: NewBaseEvent(EventPlacementRecorded, studentID),
		IsPlaced:  isPlaced,
		Company:   company,
		Logged:    logged,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Envelope (for serialization and transport)
// ═══════════════════════════════════════════════════════════════════════════

// EventEnvelope wraps an event for transport between processes.
type EventEnvelope struct {
	ID          string          `json:"id"`
	Source      string          `json:"source"`
	Type        EventType       `json:"type"`
	AggregateID string          `json:"aggregate_id"`
	Timestamp   time.Time       `json:"timestamp"`
	Payload     json.RawMessage `json:"payload"`
}

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// InlineSubscriber registers handlers that run on the publisher's goroutine
// and finish before Publish returns, whatever the bus' delivery mode.
type InlineSubscriber interface {
	SubscribeInline(eventType EventType, handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
