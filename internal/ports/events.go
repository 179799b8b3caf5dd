package ports

import "context"

// EventPublisher delivers workflow events to observers.
type EventPublisher interface {
	// Publish sends an event. Implementations must not block on slow observers.
	Publish(ctx context.Context, event Event) error
}

// Event is a workflow notification.
type Event interface {
	// EventType returns the routing name, e.g. "daily.explanation.ready".
	EventType() string

	// Payload returns the data to serialize.
	Payload() any
}

// NopPublisher discards every event.
type NopPublisher struct{}

// Publish implements EventPublisher.
func (NopPublisher) Publish(context.Context, Event) error { return nil }
