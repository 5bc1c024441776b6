package dispatch

import (
	"context"
	"time"
)

// Handler processes a delivered event and returns an optional result value.
// Handlers may block; the dispatcher waits for each handler to return before
// invoking the next one for the same publish.
type Handler func(ctx context.Context, event Event) (any, error)

// Middleware transforms an event before it is delivered to subscribers.
// Stages run in registration order. A stage that returns an error is logged
// and skipped; the prior event continues down the chain unchanged. One bad
// stage must not block delivery.
type Middleware func(event Event) (Event, error)

// Predicate gates conditional publishing.
type Predicate func(payload any) bool

// Result records the outcome of one handler invocation during a publish.
// Results are returned in delivery order.
type Result struct {
	// SubscriptionID identifies the subscription whose handler ran.
	SubscriptionID string

	// Value is the handler's return value, nil on failure.
	Value any

	// Err is the handler's error or recovered panic, nil on success.
	Err error
}

// ChainStep is one entry in a PublishChain sequence.
type ChainStep struct {
	// Name is the event name to publish.
	Name string

	// Payload is the event payload.
	Payload any

	// Delay, when positive, pauses before this step is published.
	Delay time.Duration
}

// Stats contains dispatcher counters and live sizes.
type Stats struct {
	// EventsPublished is the total number of events published.
	EventsPublished uint64

	// HandlersInvoked is the total number of handler invocations.
	HandlersInvoked uint64

	// HandlerErrors is the number of handlers that returned errors.
	HandlerErrors uint64

	// HandlerPanics is the number of handlers that panicked.
	HandlerPanics uint64

	// MiddlewareErrors is the number of middleware stages that failed.
	MiddlewareErrors uint64

	// Subscribers is the current number of per-name subscriptions.
	Subscribers int

	// Wildcards is the current number of wildcard subscriptions.
	Wildcards int

	// KnownEvents is the number of event names with live subscribers.
	KnownEvents int

	// HistorySize is the number of retained history entries.
	HistorySize int

	// Middleware is the number of registered middleware stages.
	Middleware int
}
