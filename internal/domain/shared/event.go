package shared

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent is a fact about a committed ledger operation
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	AggregateID() uuid.UUID
	AggregateType() string
}

// BaseDomainEvent is embedded by every ledger event. The JSON names are the
// envelope the audit log and the serializer share.
type BaseDomainEvent struct {
	ID      uuid.UUID `json:"event_id"`
	Type    string    `json:"event_type"`
	At      time.Time `json:"occurred_at"`
	AggID   uuid.UUID `json:"aggregate_id"`
	AggType string    `json:"aggregate_type"`
}

func (e *BaseDomainEvent) EventID() uuid.UUID     { return e.ID }
func (e *BaseDomainEvent) EventType() string      { return e.Type }
func (e *BaseDomainEvent) OccurredAt() time.Time  { return e.At }
func (e *BaseDomainEvent) AggregateID() uuid.UUID { return e.AggID }
func (e *BaseDomainEvent) AggregateType() string  { return e.AggType }

// NewBaseDomainEvent stamps a new event with a fresh id and the current UTC time
func NewBaseDomainEvent(eventType, aggType string, aggID uuid.UUID) BaseDomainEvent {
	return BaseDomainEvent{
		ID:      uuid.New(),
		Type:    eventType,
		At:      time.Now().UTC(),
		AggID:   aggID,
		AggType: aggType,
	}
}
