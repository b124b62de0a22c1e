package event

import "sync"

// Subscriber tracks the subscriptions made by one owner so they can be
// released together with Close.
type Subscriber struct {
	bus    *Bus
	mu     sync.Mutex
	owned  []owned
	closed bool
}

type owned struct {
	kind  Kind
	token Token
}

// NewSubscriber creates a Subscriber on the given bus.
func NewSubscriber(bus *Bus) *Subscriber {
	return &Subscriber{bus: bus}
}

// Subscribe registers h on the underlying bus and tracks the subscription.
func (s *Subscriber) Subscribe(kind Kind, h Handler) (Token, error) {
	return s.track(kind, func() (Token, error) {
		return s.bus.Subscribe(kind, h)
	})
}

// SubscribeFunc registers a function handler.
func (s *Subscriber) SubscribeFunc(kind Kind, fn HandlerFunc) (Token, error) {
	return s.Subscribe(kind, fn)
}

// SubscribeOnce registers a one-shot handler.
func (s *Subscriber) SubscribeOnce(kind Kind, h Handler) (Token, error) {
	return s.track(kind, func() (Token, error) {
		return s.bus.SubscribeOnce(kind, h)
	})
}

func (s *Subscriber) track(kind Kind, subscribe func() (Token, error)) (Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Token{}, ErrSubscriberClosed
	}
	tok, err := subscribe()
	if err != nil {
		return Token{}, err
	}
	s.owned = append(s.owned, owned{kind: kind, token: tok})
	return tok, nil
}

// Unsubscribe removes one tracked subscription.
func (s *Subscriber) Unsubscribe(kind Kind, tok Token) bool {
	s.mu.Lock()
	for i, o := range s.owned {
		if o.kind == kind && o.token == tok {
			s.owned = append(s.owned[:i], s.owned[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	return s.bus.Unsubscribe(kind, tok)
}

// Bus returns the underlying bus.
func (s *Subscriber) Bus() *Bus {
	return s.bus
}

// Count returns the number of tracked subscriptions. One-shot subscriptions
// that already fired are still counted until Close.
func (s *Subscriber) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.owned)
}

// Close removes every tracked subscription from the bus and rejects further
// subscriptions. It returns the number of subscriptions actually removed.
func (s *Subscriber) Close() int {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0
	}
	s.closed = true
	owned := s.owned
	s.owned = nil
	s.mu.Unlock()

	removed := 0
	for _, o := range owned {
		if s.bus.Unsubscribe(o.kind, o.token) {
			removed++
		}
	}
	return removed
}

// IsClosed reports whether Close has been called.
func (s *Subscriber) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
