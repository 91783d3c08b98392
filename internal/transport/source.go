package transport

import "context"

// Kind identifies which transport adapter a session drives. It is decided
// once by the caller's environment probe and injected at construction, never
// detected mid-stream.
type Kind int

const (
	// KindPull reads chunks from an HTTP response body.
	KindPull Kind = iota
	// KindPush receives chunks asynchronously over a Bridge.
	KindPush
)

func (k Kind) String() string {
	switch k {
	case KindPull:
		return "pull"
	case KindPush:
		return "push"
	default:
		return "unknown"
	}
}

// ParseKind maps a transport name from config to a Kind.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "pull", "":
		return KindPull, true
	case "push":
		return KindPush, true
	default:
		return 0, false
	}
}

// Source produces a lazy, finite, non-restartable sequence of raw text
// chunks. Chunks carry no framing guarantee.
//
// Next blocks until a chunk is available and returns io.EOF at the natural
// end of data. Any other error is terminal. Close releases the adapter's
// resources (reader unlock, listener de-registration); it is idempotent and
// must be called on every termination path.
type Source interface {
	Next(ctx context.Context) (string, error)
	Close() error
	Kind() Kind
}
