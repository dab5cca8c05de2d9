// Package bus carries protocol events from the network adapter to the single
// dispatch loop, in arrival order.
package bus

import (
	"context"
	"sync"
)

// DefaultSize is the queue capacity used by the daemon.
const DefaultSize = 256

// Queue is a FIFO event queue with a single consumer. Publish blocks while
// the queue is full; events are never dropped or reordered.
type Queue struct {
	ch   chan Event
	done chan struct{}
	once sync.Once
}

// New creates a queue holding up to size pending events.
func New(size int) *Queue {
	if size <= 0 {
		size = DefaultSize
	}
	return &Queue{
		ch:   make(chan Event, size),
		done: make(chan struct{}),
	}
}

// Publish enqueues evt. It returns false if the queue was closed first.
func (q *Queue) Publish(evt Event) bool {
	select {
	case <-q.done:
		return false
	default:
	}
	select {
	case q.ch <- evt:
		return true
	case <-q.done:
		return false
	}
}

// Next blocks until an event is available, the queue is closed, or ctx is
// done. ok is false in the latter two cases.
func (q *Queue) Next(ctx context.Context) (evt Event, ok bool) {
	select {
	case evt = <-q.ch:
		return evt, true
	case <-q.done:
		return nil, false
	case <-ctx.Done():
		return nil, false
	}
}

// Len returns the number of pending events.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Close stops accepting events and releases blocked publishers and the
// consumer. Safe to call more than once.
func (q *Queue) Close() {
	q.once.Do(func() { close(q.done) })
}
