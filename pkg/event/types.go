package event

import (
	"context"
	"fmt"
)

type EventType string

// Event is anything that can travel on the bus.
type Event interface {
	EventType() EventType
}

// Handler processes one event. Returned errors are logged by the bus and
// never reach the publisher.
type Handler func(ctx context.Context, e Event) error

// Publisher is the side of the bus that commands depend on.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// ListenerError records a failed listener invocation.
type ListenerError struct {
	Listener  string
	EventType EventType
	Panic     bool
	Err       error
}

func (e *ListenerError) Error() string {
	if e.Panic {
		return fmt.Sprintf("listener %s panicked on %s: %v", e.Listener, e.EventType, e.Err)
	}
	return fmt.Sprintf("listener %s failed on %s: %v", e.Listener, e.EventType, e.Err)
}

func (e *ListenerError) Unwrap() error {
	return e.Err
}
