package shared

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent represents an event that occurred in the domain
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	AggregateID() uuid.UUID
	AggregateType() string
	ActorID() uuid.UUID
}

// BaseDomainEvent provides common fields for all domain events
type BaseDomainEvent struct {
	ID        uuid.UUID `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	AggID     uuid.UUID `json:"aggregate_id"`
	AggType   string    `json:"aggregate_type"`
	Actor     uuid.UUID `json:"actor_id"`
}

// EventID returns the unique event identifier
func (e *BaseDomainEvent) EventID() uuid.UUID {
	return e.ID
}

// EventType returns the type of the event
func (e *BaseDomainEvent) EventType() string {
	return e.Type
}

// OccurredAt returns when the event occurred
func (e *BaseDomainEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID returns the ID of the aggregate that produced this event
func (e *BaseDomainEvent) AggregateID() uuid.UUID {
	return e.AggID
}

// AggregateType returns the type of the aggregate
func (e *BaseDomainEvent) AggregateType() string {
	return e.AggType
}

// ActorID returns the user that caused the event, uuid.Nil for system actions
func (e *BaseDomainEvent) ActorID() uuid.UUID {
	return e.Actor
}

// NewBaseDomainEvent creates a new base domain event
func NewBaseDomainEvent(eventType, aggType string, aggID, actorID uuid.UUID) BaseDomainEvent {
	return BaseDomainEvent{
		ID:        uuid.New(),
		Type:      eventType,
		Timestamp: Now(),
		AggID:     aggID,
		AggType:   aggType,
		Actor:     actorID,
	}
}

// LifecycleEvent is the event recorded for create/update/soft-delete/restore
// transitions. All three aggregates share it; the type string tells them apart.
type LifecycleEvent struct {
	BaseDomainEvent
}

// NewLifecycleEvent builds a lifecycle event such as "task.soft_deleted"
func NewLifecycleEvent(aggType, transition string, aggID, actorID uuid.UUID) *LifecycleEvent {
	return &LifecycleEvent{
		BaseDomainEvent: NewBaseDomainEvent(aggType+"."+transition, aggType, aggID, actorID),
	}
}

// Lifecycle transitions
const (
	TransitionCreated     = "created"
	TransitionUpdated     = "updated"
	TransitionSoftDeleted = "soft_deleted"
	TransitionRestored    = "restored"
)
