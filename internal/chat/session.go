package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/opspilot/go-chatstream/internal/sse"
	"github.com/opspilot/go-chatstream/internal/transport"
)

// ErrNoEvents reports a stream that ended normally without yielding a single
// domain event. "Zero events, no error" is not a valid way for a chat turn
// to finish.
var ErrNoEvents = errors.New("no valid response received")

// ErrClosed is returned by Next after the caller cancelled the session.
var ErrClosed = errors.New("stream session closed")

// State is the session's position in its lifecycle.
type State int

const (
	StateIdle State = iota
	StateStreaming
	StateCompleted
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Options configures a session.
type Options struct {
	// Logger receives malformed-payload warnings and lifecycle debug logs.
	// Nil means slog.Default().
	Logger *slog.Logger

	// IdleTimeout bounds the wait for each chunk from the transport. Zero
	// means wait forever, which matches the platform's historical behavior
	// of trusting the transport to signal end or error.
	IdleTimeout time.Duration
}

// Session drives one transport through the line buffer, frame parser, and
// envelope classifier, and yields domain events to the caller. One session
// per chat turn; not safe for concurrent consumers.
type Session struct {
	ctx    context.Context
	src    transport.Source
	opts   Options
	logger *slog.Logger

	lines  sse.LineBuffer
	frames sse.FrameParser

	events   []*Event
	gotEvent bool
	state    State
	err      error

	closeOnce sync.Once
	closeErr  error
}

// NewSession wraps an already-constructed transport source. Most callers use
// OpenResponse or OpenBridge instead.
func NewSession(ctx context.Context, src transport.Source, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		ctx:    ctx,
		src:    src,
		opts:   opts,
		logger: logger.With("transport", src.Kind().String()),
	}
}

// State reports the session's current lifecycle state.
func (s *Session) State() State { return s.state }

// Next returns the next domain event, in the exact order its frame was
// completed from the byte stream. io.EOF reports natural completion after at
// least one event. Any other error is terminal, and the transport is already
// released when Next returns it.
func (s *Session) Next() (*Event, error) {
	if s.state == StateIdle {
		s.state = StateStreaming
	}
	for {
		if len(s.events) > 0 {
			evt := s.events[0]
			s.events = s.events[1:]
			return evt, nil
		}
		if s.err != nil {
			return nil, s.err
		}

		chunk, err := s.nextChunk()
		switch {
		case err == nil:
			s.processFrames(s.frames.ParseLines(s.lines.Append(chunk)))
		case err == io.EOF:
			s.finish()
		default:
			s.fail(err)
		}
	}
}

// Close releases the transport. Calling it before the session reached a
// terminal state is the cancellation path; the release is identical to the
// Completed and Failed paths and happens exactly once. Idempotent.
func (s *Session) Close() error {
	if s.err == nil {
		s.state = StateCancelled
		s.err = ErrClosed
		s.logger.Debug("stream session cancelled")
	}
	return s.release()
}

// processFrames classifies each data frame in order. Once an error envelope
// is seen the session is failed and every remaining frame is discarded, even
// though its bytes were already received.
func (s *Session) processFrames(frames []sse.Frame) {
	for _, f := range frames {
		if s.err != nil {
			return
		}
		if f.Kind != sse.FrameData {
			continue
		}
		env := sse.Classify(f.Text)
		switch env.Kind {
		case sse.KindSentinel:
			// The server is done sending useful data; the transport's own
			// end-of-stream signal still terminates the session.
			s.logger.Debug("received done sentinel")
		case sse.KindMalformed:
			s.logger.Warn("skipping malformed stream payload", "payload", preview(f.Text))
		case sse.KindErrorEnvelope:
			s.fail(&sse.ServerError{Message: env.Message})
		case sse.KindDomainEvent:
			typ, _ := env.Data["type"].(string)
			s.gotEvent = true
			s.events = append(s.events, &Event{Type: typ, Raw: env.Raw, Data: env.Data})
		}
	}
}

// finish handles the transport's natural end: flush the line carry, then
// either complete or convert an empty stream into an error. Events still
// queued are delivered before Next reports io.EOF.
func (s *Session) finish() {
	if tail, ok := s.lines.Flush(); ok {
		s.processFrames([]sse.Frame{s.frames.ParseLine(tail)})
	}
	if s.err != nil {
		return
	}
	if !s.gotEvent {
		s.fail(ErrNoEvents)
		return
	}
	s.complete()
}

func (s *Session) complete() {
	s.state = StateCompleted
	s.err = io.EOF
	s.release()
	s.logger.Debug("stream session completed")
}

// fail moves the session to the error terminal state. The transport is
// released before the error becomes observable to the caller.
func (s *Session) fail(err error) {
	s.state = StateFailed
	s.err = err
	s.release()
	s.logger.Debug("stream session failed", "error", err)
}

func (s *Session) release() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.src.Close()
	})
	return s.closeErr
}

// nextChunk performs one transport pull, bounded by the optional idle
// timeout. A blocked response-body read does not watch the context, so the
// deadline releases the transport to unblock it; the release is the same
// one the terminal states perform and happens once.
func (s *Session) nextChunk() (string, error) {
	if s.opts.IdleTimeout <= 0 {
		return s.src.Next(s.ctx)
	}
	ctx, cancel := context.WithTimeout(s.ctx, s.opts.IdleTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, func() { s.release() })
	chunk, err := s.src.Next(ctx)
	if !stop() && s.ctx.Err() == nil {
		return "", fmt.Errorf("no data received within %v", s.opts.IdleTimeout)
	}
	return chunk, err
}

const previewLen = 120

func preview(s string) string {
	if len(s) <= previewLen {
		return s
	}
	return s[:previewLen] + "..."
}
