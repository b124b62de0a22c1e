package event

import (
	"reflect"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Bus routes events to the handlers subscribed to their kind.
//
// A Bus must not be copied after first use.
type Bus struct {
	registry *registry
	queue    queue
	config   busConfig
	log      zerolog.Logger

	eventsTriggered  atomic.Uint64
	eventsQueued     atomic.Uint64
	eventsDispatched atomic.Uint64
	handlersExecuted atomic.Uint64
	handlerErrors    atomic.Uint64
}

// New creates an independent bus.
func New(opts ...Option) *Bus {
	config := defaultBusConfig()
	for _, opt := range opts {
		opt(&config)
	}
	return &Bus{
		registry: newRegistry(),
		config:   config,
		log:      config.logger.With().Str("component", "event").Logger(),
	}
}

// Subscribe registers h for events of the given kind and returns the token
// that identifies the subscription. Subscribing the same handler twice
// creates two subscriptions.
func (b *Bus) Subscribe(kind Kind, h Handler) (Token, error) {
	return b.subscribe(kind, h, false)
}

// SubscribeFunc registers a function handler.
func (b *Bus) SubscribeFunc(kind Kind, fn HandlerFunc) (Token, error) {
	return b.subscribe(kind, fn, false)
}

// SubscribeOnce registers h for the next event of the given kind only.
// The subscription is removed when it is delivered, whatever the outcome.
func (b *Bus) SubscribeOnce(kind Kind, h Handler) (Token, error) {
	return b.subscribe(kind, h, true)
}

func (b *Bus) subscribe(kind Kind, h Handler, once bool) (Token, error) {
	if isNilHandler(h) {
		return Token{}, ErrNilHandler
	}
	if !kind.IsValid() {
		return Token{}, ErrInvalidKind
	}

	sub := newSubscription(kind, h, once)
	b.registry.add(sub)

	b.log.Debug().
		Str("kind", string(kind)).
		Stringer("token", sub.token).
		Bool("once", once).
		Msg("subscribed")
	return sub.token, nil
}

// Unsubscribe removes the subscription identified by tok from kind.
// Unknown tokens, tokens of another kind and repeated calls are no-ops
// and report false.
func (b *Bus) Unsubscribe(kind Kind, tok Token) bool {
	if b.registry.remove(kind, tok) == nil {
		return false
	}
	b.log.Debug().
		Str("kind", string(kind)).
		Stringer("token", tok).
		Msg("unsubscribed")
	return true
}

// UnsubscribeHandler removes every subscription of kind whose handler equals
// h and returns how many were removed. Only comparable handler values can
// match; function values never do, nor do values that hold one.
func (b *Bus) UnsubscribeHandler(kind Kind, h Handler) int {
	if isNilHandler(h) || !reflect.ValueOf(h).Comparable() {
		return 0
	}
	removed := b.registry.removeWhere(kind, func(s *subscription) bool {
		return s.handler == h
	})
	if len(removed) > 0 {
		b.log.Debug().
			Str("kind", string(kind)).
			Int("removed", len(removed)).
			Msg("unsubscribed handler")
	}
	return len(removed)
}

// Trigger delivers e immediately, on the calling goroutine, to every handler
// subscribed to its kind in subscription order. Delivery stops once a
// handler stops propagation. The first handler error aborts the pass and is
// returned as a *HandlerError. Handler panics propagate to the caller.
func (b *Bus) Trigger(e Event) error {
	if !validEvent(e) {
		return ErrInvalidEvent
	}
	stamp(e, b.config.source)
	b.eventsTriggered.Add(1)
	return b.deliver(e)
}

// Queue stores e for the next Dispatch. It never runs handlers.
func (b *Bus) Queue(e Event) error {
	if !validEvent(e) {
		return ErrInvalidEvent
	}
	stamp(e, b.config.source)
	b.queue.push(e)
	b.eventsQueued.Add(1)
	return nil
}

// Dispatch triggers every event queued before the call, oldest first.
// Events queued by handlers during the drain wait for the next Dispatch.
//
// If a handler fails or panics, the events of the batch that were not yet
// delivered go back to the front of the queue and the failure propagates.
func (b *Bus) Dispatch() error {
	batch := b.queue.take()
	if len(batch) == 0 {
		return nil
	}

	next := 0
	defer func() {
		if next < len(batch) {
			b.queue.requeue(batch[next:])
		}
	}()

	for next < len(batch) {
		e := batch[next]
		next++
		b.eventsDispatched.Add(1)
		if err := b.deliver(e); err != nil {
			return err
		}
	}
	return nil
}

// deliver runs the handlers for e against a snapshot of the registry.
func (b *Bus) deliver(e Event) error {
	kind := e.Kind()
	subs := b.registry.snapshot(kind)
	if len(subs) == 0 {
		return nil
	}

	b.log.Trace().
		Str("kind", string(kind)).
		Int("handlers", len(subs)).
		Msg("delivering")

	for _, sub := range subs {
		if e.IsPropagationStopped() {
			break
		}
		if !sub.claim() {
			continue
		}

		b.handlersExecuted.Add(1)
		if err := b.invoke(sub, e); err != nil {
			b.handlerErrors.Add(1)
			b.log.Debug().
				Err(err).
				Str("kind", string(kind)).
				Stringer("token", sub.token).
				Msg("handler failed")
			return &HandlerError{Token: sub.token, Kind: kind, Err: err}
		}
	}
	return nil
}

func (b *Bus) invoke(sub *subscription, e Event) error {
	if sub.once {
		defer b.registry.remove(sub.kind, sub.token)
	}
	return sub.handler.Handle(e)
}

// Pending returns the number of queued events.
func (b *Bus) Pending() int {
	return b.queue.len()
}

// Count returns the number of subscriptions for kind.
func (b *Bus) Count(kind Kind) int {
	return b.registry.count(kind)
}

// Kinds returns the kinds that currently have subscribers, sorted.
func (b *Bus) Kinds() []Kind {
	return b.registry.kinds()
}

// Reset drops every subscription and every queued event.
func (b *Bus) Reset() {
	subs := b.registry.clear()
	dropped := b.queue.drop()
	b.log.Debug().
		Int("subscriptions", subs).
		Int("pending", dropped).
		Msg("reset")
}

// Stats returns current bus counters.
func (b *Bus) Stats() Stats {
	return Stats{
		Subscriptions:    b.registry.len(),
		Pending:          b.queue.len(),
		EventsTriggered:  b.eventsTriggered.Load(),
		EventsQueued:     b.eventsQueued.Load(),
		EventsDispatched: b.eventsDispatched.Load(),
		HandlersExecuted: b.handlersExecuted.Load(),
		HandlerErrors:    b.handlerErrors.Load(),
	}
}

func isNilHandler(h Handler) bool {
	if h == nil {
		return true
	}
	if fn, ok := h.(HandlerFunc); ok && fn == nil {
		return true
	}
	return false
}
