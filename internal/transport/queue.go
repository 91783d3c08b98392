package transport

import (
	"context"
	"io"
	"sync"
)

// Queue bridges a push producer into pull-shaped consumption. Notifications
// arriving before the consumer asks for them are buffered in strict FIFO
// order; a blocked consumer is woken as soon as one arrives. Single producer,
// single consumer.
//
// The producer side is Put, End, and Fail; the consumer side is Next. After
// End or Fail the producer methods become no-ops, and Next drains whatever
// was buffered first before reporting the terminal state. A stored failure
// is raised to the consumer, never swallowed into a silent end.
type Queue struct {
	mu     sync.Mutex
	items  []string
	err    error
	done   bool
	notify chan struct{}
}

// NewQueue returns an empty queue ready for one stream.
func NewQueue() *Queue {
	return &Queue{notify: make(chan struct{}, 1)}
}

// Put appends one chunk.
func (q *Queue) Put(chunk string) {
	q.mu.Lock()
	if q.done || q.err != nil {
		q.mu.Unlock()
		return
	}
	q.items = append(q.items, chunk)
	q.mu.Unlock()
	q.wake()
}

// End marks the natural end of the stream.
func (q *Queue) End() {
	q.mu.Lock()
	q.done = true
	q.mu.Unlock()
	q.wake()
}

// Fail stores the terminal error raised to the consumer.
func (q *Queue) Fail(err error) {
	q.mu.Lock()
	if !q.done && q.err == nil {
		q.err = err
	}
	q.mu.Unlock()
	q.wake()
}

// Next returns the next buffered chunk, waiting for one when the FIFO is
// empty. io.EOF signals the natural end; a Fail error is returned once the
// buffer is drained.
func (q *Queue) Next(ctx context.Context) (string, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			chunk := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return chunk, nil
		}
		if q.err != nil {
			err := q.err
			q.mu.Unlock()
			return "", err
		}
		if q.done {
			q.mu.Unlock()
			return "", io.EOF
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-q.notify:
		}
	}
}

func (q *Queue) wake() {
	select {
	case q.notify <- struct{}{}:
	default:
	}
}
