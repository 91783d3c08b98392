package transport

import (
	"sync"

	"github.com/google/uuid"
)

// Bridge routes push-transport notifications to their stream's consumer,
// keyed by stream identifier. It models the embedding runtime's independent
// chunk, end, and error event channels as three listener registries.
// Producers emit through Chunk/End/Fail;
// consumers receive in pull shape through a Push source.
//
// Notifications for an identifier nobody is subscribed to are dropped, the
// same way an unlistened native event is.
type Bridge struct {
	mu      sync.Mutex
	onChunk map[string]func(string)
	onEnd   map[string]func()
	onError map[string]func(string)
}

// NewBridge returns an empty bridge.
func NewBridge() *Bridge {
	return &Bridge{
		onChunk: make(map[string]func(string)),
		onEnd:   make(map[string]func()),
		onError: make(map[string]func(string)),
	}
}

// NewStreamID mints an identifier for a new push stream.
func NewStreamID() string {
	return uuid.New().String()
}

// Chunk delivers one chunk of decoded text for the stream.
func (b *Bridge) Chunk(streamID, data string) {
	b.mu.Lock()
	h := b.onChunk[streamID]
	b.mu.Unlock()
	if h != nil {
		h(data)
	}
}

// End signals that the stream ended normally.
func (b *Bridge) End(streamID string) {
	b.mu.Lock()
	h := b.onEnd[streamID]
	b.mu.Unlock()
	if h != nil {
		h()
	}
}

// Fail signals that the stream failed with the given message.
func (b *Bridge) Fail(streamID, message string) {
	b.mu.Lock()
	h := b.onError[streamID]
	b.mu.Unlock()
	if h != nil {
		h(message)
	}
}

// subscribe registers the three listeners for streamID and returns the
// function that unregisters all of them.
func (b *Bridge) subscribe(streamID string, onChunk func(string), onEnd func(), onError func(string)) func() {
	b.mu.Lock()
	b.onChunk[streamID] = onChunk
	b.onEnd[streamID] = onEnd
	b.onError[streamID] = onError
	b.mu.Unlock()
	return func() {
		b.mu.Lock()
		delete(b.onChunk, streamID)
		delete(b.onEnd, streamID)
		delete(b.onError, streamID)
		b.mu.Unlock()
	}
}
