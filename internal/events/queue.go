package events

import (
	"context"
	"time"
)

// defaultCapacity is generous enough that Emit never blocks in practice;
// the queue is logically unbounded (spec §4.4), a bounded channel with
// headroom is simpler than an unbounded linked list and still never
// stalls a caller under the load this kernel is designed for.
const defaultCapacity = 4096

// Queue is the kernel's single-consumer FIFO event channel.
type Queue struct {
	ch chan Event
}

// NewQueue constructs a Queue with room for defaultCapacity events.
func NewQueue() *Queue {
	return &Queue{ch: make(chan Event, defaultCapacity)}
}

// Emit enqueues an event. It blocks only if the queue is saturated,
// which under normal operation (single consumer draining continuously)
// should not happen.
func (q *Queue) Emit(e Event) {
	q.ch <- e
}

// Dequeue waits up to timeout for the next event. A returned ok=false
// means the timeout elapsed or ctx was cancelled with nothing to
// dispatch — the kernel loop checks ctx and otherwise treats it as its
// cue to tick().
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (Event, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case e := <-q.ch:
		return e, true
	case <-timer.C:
		return Event{}, false
	case <-ctx.Done():
		return Event{}, false
	}
}
