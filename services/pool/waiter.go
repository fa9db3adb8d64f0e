package pool

import (
	"time"

	"browsergate/models/browser"
)

// waiter is one queued acquisition request (spec §3 WaiterQueue). result
// is a single-shot completion slot: the Manager sends exactly once, either
// an instance or an error, into a channel buffered for one value; the
// channel is never closed.
type waiter struct {
	sessionID string
	arrival   time.Time
	seq       uint64 // tie-break for simultaneous arrivals
	deadline  time.Time
	result    chan waiterResult
}

type waiterResult struct {
	instance *browser.Instance
	err      error
}

// waiterQueue is a plain FIFO; the Manager's mutex serializes all access,
// so no internal locking is needed here (spec §5: "the waiter queue" is
// one of the two structures mutation is serialized over).
type waiterQueue struct {
	items []*waiter
}

func (q *waiterQueue) push(w *waiter) {
	q.items = append(q.items, w)
}

func (q *waiterQueue) popFront() *waiter {
	if len(q.items) == 0 {
		return nil
	}
	w := q.items[0]
	q.items = q.items[1:]
	return w
}

func (q *waiterQueue) len() int {
	return len(q.items)
}

// removeExpired scans the queue for waiters whose deadline has elapsed,
// removes them in place and returns them for the caller to fail with
// Timeout outside the lock.
func (q *waiterQueue) removeExpired(now time.Time) []*waiter {
	var expired []*waiter
	kept := q.items[:0]
	for _, w := range q.items {
		if !w.deadline.After(now) {
			expired = append(expired, w)
			continue
		}
		kept = append(kept, w)
	}
	q.items = kept
	return expired
}

// drainAll empties the queue and returns every waiter, for shutdown.
func (q *waiterQueue) drainAll() []*waiter {
	out := q.items
	q.items = nil
	return out
}
