package event

import "sync"

// queue holds events waiting for Dispatch. It has its own lock, independent
// of the registry.
type queue struct {
	mu      sync.Mutex
	pending []Event
}

func (q *queue) push(e Event) {
	q.mu.Lock()
	q.pending = append(q.pending, e)
	q.mu.Unlock()
}

// take swaps out everything queued so far.
func (q *queue) take() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()

	batch := q.pending
	q.pending = nil
	return batch
}

// requeue puts events back in front of anything queued since take.
func (q *queue) requeue(events []Event) {
	if len(events) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	merged := make([]Event, 0, len(events)+len(q.pending))
	merged = append(merged, events...)
	q.pending = append(merged, q.pending...)
}

func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.pending)
}

// drop discards everything queued and returns how many events were dropped.
func (q *queue) drop() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.pending)
	q.pending = nil
	return n
}
