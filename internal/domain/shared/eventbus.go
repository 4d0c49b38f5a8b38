package shared

import "context"

// EventHandler reacts to ledger events after the operation that raised them
// has committed. A handler error is reported by the bus; it never undoes the
// operation.
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error
	// EventTypes lists the types the handler wants; empty means all
	EventTypes() []string
}

// EventPublisher is what ledger services depend on
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventBus is a publisher with a subscription list and a lifecycle
type EventBus interface {
	EventPublisher
	// Subscribe registers handler for eventTypes, or for every type when none are given
	Subscribe(handler EventHandler, eventTypes ...string)
	Unsubscribe(handler EventHandler)
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
