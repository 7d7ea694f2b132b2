// Package segment implements the Segment Queue (SQ): a bounded FIFO handoff
// between the planning graph, which renders finite audio segments, and the
// transport, which streams them out in order.
//
// A voice mixer juggling barge-in preemption for interactive speech needs a
// priority heap; segment production has only one producer and one strict
// order, so the queue here is a plain bounded channel rather than a
// [container/heap]. Capacity itself is the backpressure mechanism: a full
// queue means the scheduler should slow down, not drop or reorder anything.
package segment

import (
	"context"
	"fmt"
	"time"
)

// Handle identifies one rendered segment file ready for transport.
type Handle struct {
	SessionID string
	Index     int
	TrackID   string
	FilePath  string
	Duration  time.Duration
	UsedVoice bool
}

// Queue is a bounded FIFO of [Handle] values. All methods are safe for
// concurrent use.
type Queue struct {
	items  chan Handle
	closed chan struct{}
}

// New returns a Queue that holds at most capacity segments before Offer
// blocks.
func New(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue{
		items:  make(chan Handle, capacity),
		closed: make(chan struct{}),
	}
}

// Offer enqueues h, blocking until space is available, ctx is done, or the
// queue is closed.
func (q *Queue) Offer(ctx context.Context, h Handle) error {
	select {
	case <-q.closed:
		return fmt.Errorf("segment queue: closed")
	default:
	}
	select {
	case q.items <- h:
		return nil
	case <-q.closed:
		return fmt.Errorf("segment queue: closed")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ConsumeHead removes and returns the oldest queued segment, blocking until
// one is available, ctx is done, or the queue is closed with nothing left to
// drain. Segments already buffered when Close is called are still delivered.
func (q *Queue) ConsumeHead(ctx context.Context) (Handle, error) {
	select {
	case h := <-q.items:
		return h, nil
	case <-ctx.Done():
		return Handle{}, ctx.Err()
	case <-q.closed:
		select {
		case h := <-q.items:
			return h, nil
		default:
			return Handle{}, fmt.Errorf("segment queue: closed")
		}
	}
}

// PeekLen returns the number of segments currently queued. Used by the
// scheduler's queue-depth gate (spec: q_size >= 3 suppresses non-urgent
// planning).
func (q *Queue) PeekLen() int {
	return len(q.items)
}

// Cap returns the queue's bound.
func (q *Queue) Cap() int {
	return cap(q.items)
}

// Close stops accepting new offers. Segments already queued remain available
// to ConsumeHead until drained, after which ConsumeHead returns an error.
// Close is idempotent.
func (q *Queue) Close() {
	select {
	case <-q.closed:
		return // already closed
	default:
		close(q.closed)
	}
}
