package rtcall

import (
	"context"
	"sync"
)

// eventQueue is the connection's inbound FIFO. Producers (the native
// callback thread, the mock engine) never block: the buffer is unbounded
// and push is a short critical section. Exactly one consumer pops.
//
// Delivery order is the push order; nothing is coalesced or dropped while
// the queue is open. Closing discards whatever is buffered.
type eventQueue struct {
	mu     sync.Mutex
	items  []*Event
	closed bool
	wake   chan struct{} // cap 1, nudges a waiting consumer
}

func newEventQueue() *eventQueue {
	return &eventQueue{wake: make(chan struct{}, 1)}
}

// push appends an event. Returns false if the queue has been closed, in
// which case the event is discarded (the connection already left).
func (q *eventQueue) push(ev *Event) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, ev)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return true
}

// pop removes the oldest event, suspending until one is available, the
// queue closes, or ctx is done.
func (q *eventQueue) pop(ctx context.Context) (*Event, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			ev := q.items[0]
			q.items[0] = nil
			q.items = q.items[1:]
			q.mu.Unlock()
			return ev, nil
		}
		if q.closed {
			q.mu.Unlock()
			return nil, ErrConnectionClosed
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-q.wake:
		}
	}
}

// close discards buffered events and wakes any blocked consumer.
// Safe to call more than once.
func (q *eventQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.items = nil
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *eventQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
