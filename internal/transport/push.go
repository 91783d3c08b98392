package transport

import (
	"context"
	"fmt"
	"sync"
)

// Push receives raw text chunks delivered asynchronously over a Bridge and
// exposes them in the pull Source shape. Chunks arriving before the consumer
// asks are absorbed by the FIFO queue; a stream-failed notification is stored
// and raised once the buffer is drained.
type Push struct {
	id        string
	queue     *Queue
	unsub     func()
	closeOnce sync.Once
}

// NewPush subscribes to the bridge's chunk, end, and error channels for
// streamID. The returned source owns the subscription; Close unregisters all
// three listeners exactly once.
func NewPush(b *Bridge, streamID string) *Push {
	q := NewQueue()
	p := &Push{id: streamID, queue: q}
	p.unsub = b.subscribe(streamID,
		q.Put,
		q.End,
		func(message string) {
			q.Fail(fmt.Errorf("stream %s failed: %s", streamID, message))
		},
	)
	return p
}

// StreamID returns the identifier this source is subscribed to.
func (p *Push) StreamID() string { return p.id }

// Next returns the next delivered chunk, in arrival order.
func (p *Push) Next(ctx context.Context) (string, error) {
	return p.queue.Next(ctx)
}

// Close unregisters the bridge listeners. Idempotent.
func (p *Push) Close() error {
	p.closeOnce.Do(p.unsub)
	return nil
}

func (p *Push) Kind() Kind { return KindPush }
