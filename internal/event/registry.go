package event

import (
	"slices"
	"sync"
)

// registry maps kinds to their subscriptions in subscription order.
type registry struct {
	mu      sync.RWMutex
	byKind  map[Kind][]*subscription
	byToken map[Token]*subscription
}

func newRegistry() *registry {
	return &registry{
		byKind:  make(map[Kind][]*subscription),
		byToken: make(map[Token]*subscription),
	}
}

// add appends a subscription to its kind's list.
func (r *registry) add(sub *subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byKind[sub.kind] = append(r.byKind[sub.kind], sub)
	r.byToken[sub.token] = sub
}

// remove deletes the subscription for tok if it belongs to kind.
// The removed subscription is cancelled. Returns nil when nothing matched.
func (r *registry) remove(kind Kind, tok Token) *subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.byToken[tok]
	if !ok || sub.kind != kind {
		return nil
	}
	r.unlink(sub)
	return sub
}

// removeWhere deletes every subscription of kind for which match is true.
func (r *registry) removeWhere(kind Kind, match func(*subscription) bool) []*subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []*subscription
	for _, sub := range r.byKind[kind] {
		if match(sub) {
			removed = append(removed, sub)
		}
	}
	for _, sub := range removed {
		r.unlink(sub)
	}
	return removed
}

// unlink removes sub from both indexes. Caller holds the write lock.
func (r *registry) unlink(sub *subscription) {
	sub.cancel()
	delete(r.byToken, sub.token)

	subs := slices.DeleteFunc(r.byKind[sub.kind], func(s *subscription) bool {
		return s == sub
	})
	if len(subs) == 0 {
		delete(r.byKind, sub.kind)
		return
	}
	r.byKind[sub.kind] = subs
}

// snapshot returns a copy of kind's subscriptions that is safe to iterate
// without the lock.
func (r *registry) snapshot(kind Kind) []*subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Clone(r.byKind[kind])
}

// count returns the number of subscriptions for kind.
func (r *registry) count(kind Kind) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.byKind[kind])
}

// len returns the total number of subscriptions.
func (r *registry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.byToken)
}

// kinds returns every kind with at least one subscription, sorted.
func (r *registry) kinds() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]Kind, 0, len(r.byKind))
	for k := range r.byKind {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}

// clear removes and cancels everything. Returns the number removed.
func (r *registry) clear() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.byToken)
	for _, sub := range r.byToken {
		sub.cancel()
	}
	r.byKind = make(map[Kind][]*subscription)
	r.byToken = make(map[Token]*subscription)
	return n
}
