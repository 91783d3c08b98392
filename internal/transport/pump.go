package transport

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/opspilot/go-chatstream/internal/sse"
)

// Pump reads a streaming HTTP response and replays it over the bridge as
// push notifications for streamID, the way the platform's native proxy feeds
// the embedded chat client. Every chunk delivered is a complete "data: ..."
// line: partial lines are reassembled first, bare "data:" markers are merged
// with their following payload line, comments and blanks are not forwarded,
// and the trailing buffer is flushed at end of stream.
//
// Pump blocks until the body is exhausted or fails; callers run it on its
// own goroutine and consume through a Push subscribed to the same streamID.
func Pump(b *Bridge, streamID string, resp *http.Response) {
	if resp.StatusCode >= 400 {
		resp.Body.Close()
		b.Fail(streamID, fmt.Sprintf("HTTP error: %d", resp.StatusCode))
		return
	}
	body, err := decodeBody(resp)
	if err != nil {
		resp.Body.Close()
		b.Fail(streamID, err.Error())
		return
	}
	defer body.Close()

	var lines sse.LineBuffer
	var frames sse.FrameParser
	chunks := 0
	buf := make([]byte, 4096)
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			for _, frame := range frames.ParseLines(lines.Append(string(buf[:n]))) {
				if frame.Kind != sse.FrameData {
					continue
				}
				b.Chunk(streamID, "data: "+frame.Text+"\n")
				chunks++
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			b.Fail(streamID, fmt.Sprintf("stream read error: %v", readErr))
			return
		}
	}
	if tail, ok := lines.Flush(); ok {
		if frame := frames.ParseLine(tail); frame.Kind == sse.FrameData {
			b.Chunk(streamID, "data: "+frame.Text+"\n")
			chunks++
		}
	}
	slog.Debug("push pump completed", "stream_id", streamID, "chunks", chunks)
	b.End(streamID)
}
