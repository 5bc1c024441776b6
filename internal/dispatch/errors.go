package dispatch

import (
	"errors"
	"fmt"
)

// Sentinel errors for the dispatcher.
var (
	// ErrDispatcherDisposed is returned when operations are attempted on a
	// disposed dispatcher.
	ErrDispatcherDisposed = errors.New("dispatcher is disposed")

	// ErrWaitTimeout is returned by WaitFor when no matching event arrives
	// within the timeout.
	ErrWaitTimeout = errors.New("wait for event timed out")

	// ErrNilHandler is returned when a nil handler is provided.
	ErrNilHandler = errors.New("handler cannot be nil")

	// ErrEmptyEventName is returned when an event name is empty.
	ErrEmptyEventName = errors.New("event name cannot be empty")

	// ErrHandlerPanic is returned when a handler panics during delivery.
	ErrHandlerPanic = errors.New("handler panicked")
)

// PanicError wraps a recovered handler panic as an error.
type PanicError struct {
	// SubscriptionID is the ID of the subscription whose handler panicked.
	SubscriptionID string

	// EventName is the name of the event being delivered.
	EventName string

	// Value is the value passed to panic().
	Value any

	// Stack is the stack trace captured at recovery.
	Stack []byte
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("handler panic for subscription %s on event %s: %v", e.SubscriptionID, e.EventName, e.Value)
}

// Is allows errors.Is to match PanicError with ErrHandlerPanic.
func (e *PanicError) Is(target error) bool {
	return target == ErrHandlerPanic
}
