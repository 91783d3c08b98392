package chat

import (
	"context"
	"net/http"

	"github.com/opspilot/go-chatstream/internal/transport"
)

// OpenResponse starts a pull-transport session over a streaming HTTP
// response handed over by the HTTP layer. A JSON (non-stream) response is
// rejected here, before any session exists: the server's embedded error when
// it carries one, transport.ErrUnexpectedFormat otherwise.
func OpenResponse(ctx context.Context, resp *http.Response, opts Options) (*Session, error) {
	src, err := transport.NewPull(resp)
	if err != nil {
		return nil, err
	}
	return NewSession(ctx, src, opts), nil
}

// OpenBridge starts a push-transport session consuming the bridge's chunk,
// end, and error notifications for streamID.
func OpenBridge(ctx context.Context, b *transport.Bridge, streamID string, opts Options) *Session {
	return NewSession(ctx, transport.NewPush(b, streamID), opts)
}
