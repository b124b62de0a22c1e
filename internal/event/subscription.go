package event

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// Token identifies one subscription. It is returned by Subscribe and passed
// back to Unsubscribe. The zero Token never matches a subscription.
type Token struct {
	id uuid.UUID
}

func newToken() Token {
	return Token{id: uuid.New()}
}

// IsZero reports whether the token is the zero value.
func (t Token) IsZero() bool {
	return t.id == uuid.Nil
}

// String returns the token in canonical UUID form.
func (t Token) String() string {
	if t.IsZero() {
		return "<none>"
	}
	return t.id.String()
}

// subscription is a registry entry.
type subscription struct {
	token   Token
	kind    Kind
	handler Handler
	once    bool
	active  atomic.Bool
}

func newSubscription(kind Kind, h Handler, once bool) *subscription {
	s := &subscription{
		token:   newToken(),
		kind:    kind,
		handler: h,
		once:    once,
	}
	s.active.Store(true)
	return s
}

// isActive reports whether the subscription still receives events.
func (s *subscription) isActive() bool {
	return s.active.Load()
}

// cancel deactivates the subscription. It reports whether this call did it.
func (s *subscription) cancel() bool {
	return s.active.Swap(false)
}

// claim reports whether the subscription may run for the current event.
// One-shot subscriptions are consumed by the first successful claim.
func (s *subscription) claim() bool {
	if s.once {
		return s.active.CompareAndSwap(true, false)
	}
	return s.active.Load()
}
