package event

import "reflect"

// Handler receives events from the bus.
type Handler interface {
	// Handle processes the event. A non-nil error aborts the current pass.
	Handle(e Event) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(e Event) error

// Handle calls f(e).
func (f HandlerFunc) Handle(e Event) error {
	return f(e)
}

// TypedHandlerFunc handles one concrete event type.
type TypedHandlerFunc[T Event] func(e T) error

// AsHandler wraps a typed handler. The returned handler fails with a
// *KindMismatchError when it receives an event that is not a T.
func AsHandler[T Event](fn TypedHandlerFunc[T]) Handler {
	return HandlerFunc(func(e Event) error {
		typed, ok := e.(T)
		if !ok {
			return &KindMismatchError{
				Kind: e.Kind(),
				Want: reflect.TypeFor[T]().String(),
				Got:  reflect.TypeOf(e).String(),
			}
		}
		return fn(typed)
	})
}

// Subscribable is implemented by Bus and Subscriber.
type Subscribable interface {
	Subscribe(kind Kind, h Handler) (Token, error)
}

// On subscribes a typed callback to kind.
func On[T Event](s Subscribable, kind Kind, fn func(e T) error) (Token, error) {
	if fn == nil {
		return Token{}, ErrNilHandler
	}
	return s.Subscribe(kind, AsHandler(TypedHandlerFunc[T](fn)))
}

// Stats is a point-in-time snapshot of bus counters.
type Stats struct {
	// Subscriptions is the number of registered subscriptions.
	Subscriptions int

	// Pending is the number of queued, undispatched events.
	Pending int

	// EventsTriggered counts Trigger calls that were accepted.
	EventsTriggered uint64

	// EventsQueued counts Queue calls that were accepted.
	EventsQueued uint64

	// EventsDispatched counts queued events delivered by Dispatch.
	EventsDispatched uint64

	// HandlersExecuted counts handler invocations.
	HandlersExecuted uint64

	// HandlerErrors counts handler invocations that returned an error.
	HandlerErrors uint64
}
