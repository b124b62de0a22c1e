package event

import (
	"errors"
	"fmt"
)

// Sentinel errors for the event bus.
var (
	// ErrInvalidKind is returned when a subscription kind is empty or malformed.
	ErrInvalidKind = errors.New("invalid event kind")

	// ErrInvalidEvent is returned for nil events or events with an invalid kind.
	ErrInvalidEvent = errors.New("invalid event")

	// ErrNilHandler is returned when a nil handler is provided.
	ErrNilHandler = errors.New("handler cannot be nil")

	// ErrSubscriberClosed is returned when subscribing through a closed Subscriber.
	ErrSubscriberClosed = errors.New("subscriber is closed")
)

// HandlerError wraps an error returned by a handler.
type HandlerError struct {
	// Token identifies the subscription whose handler failed.
	Token Token

	// Kind is the kind being delivered.
	Kind Kind

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *HandlerError) Error() string {
	return "handler error for subscription " + e.Token.String() + " on kind " + string(e.Kind) + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *HandlerError) Unwrap() error {
	return e.Err
}

// KindMismatchError is returned by typed handlers that receive an event of
// an unexpected Go type under their kind.
type KindMismatchError struct {
	Kind Kind
	Want string
	Got  string
}

// Error implements the error interface.
func (e *KindMismatchError) Error() string {
	return fmt.Sprintf("event kind %q: expected %s, got %s", e.Kind, e.Want, e.Got)
}
