package shared

import "context"

// EventHandler reacts to ledger events after they are committed
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error
	// EventTypes lists the types the handler wants; nil means every event
	EventTypes() []string
}

// EventPublisher is the side of the bus the application services see.
// Publishing never fails a business operation that already committed.
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventBus is a publisher that handlers can subscribe to
type EventBus interface {
	EventPublisher
	Subscribe(handler EventHandler, eventTypes ...string)
}
