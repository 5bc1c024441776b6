package dispatch

import (
	"time"

	"github.com/google/uuid"
)

// timeNow is a variable to allow testing with fixed timestamps.
var timeNow = time.Now

// Event is a single published occurrence on the dispatcher.
// Events are immutable once constructed; a middleware stage that needs to
// alter one returns a replacement instead of mutating in place.
type Event struct {
	// Name is the event name (e.g., "performance.recorded").
	// Names are arbitrary strings; there is no registry.
	Name string

	// Payload contains the event-specific data.
	Payload any

	// ID is a unique identifier for this event instance.
	ID string

	// Timestamp is when the event was created.
	Timestamp time.Time

	// Source identifies the component that published the event.
	Source string

	// Fields holds caller-supplied extra fields attached at publish time.
	Fields map[string]any
}

// newEvent constructs an event at publish time.
func newEvent(name string, payload any, opts ...PublishOption) Event {
	ev := Event{
		Name:      name,
		Payload:   payload,
		ID:        uuid.NewString(),
		Timestamp: timeNow(),
	}
	for _, opt := range opts {
		opt(&ev)
	}
	return ev
}

// PublishOption attaches optional metadata to an event at publish time.
type PublishOption func(*Event)

// WithSource sets the publishing component's identifier.
func WithSource(source string) PublishOption {
	return func(e *Event) {
		e.Source = source
	}
}

// WithField attaches an extra named field to the event.
func WithField(key string, value any) PublishOption {
	return func(e *Event) {
		if e.Fields == nil {
			e.Fields = make(map[string]any)
		}
		e.Fields[key] = value
	}
}

// WithFields attaches multiple extra fields to the event.
func WithFields(fields map[string]any) PublishOption {
	return func(e *Event) {
		if len(fields) == 0 {
			return
		}
		if e.Fields == nil {
			e.Fields = make(map[string]any, len(fields))
		}
		for k, v := range fields {
			e.Fields[k] = v
		}
	}
}
