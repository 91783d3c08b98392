package transport

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/opspilot/go-chatstream/internal/sse"
)

// chunkedReader returns one predefined chunk per Read call.
type chunkedReader struct {
	chunks [][]byte
	closed int
}

func (r *chunkedReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	r.chunks = r.chunks[1:]
	return n, nil
}

func (r *chunkedReader) Close() error {
	r.closed++
	return nil
}

func streamResponse(body io.ReadCloser) *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"text/event-stream"}},
		Body:       body,
	}
}

func drainPull(t *testing.T, p *Pull) string {
	t.Helper()
	var out strings.Builder
	for {
		chunk, err := p.Next(context.Background())
		if err == io.EOF {
			return out.String()
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		out.WriteString(chunk)
	}
}

func TestPullReadsChunks(t *testing.T) {
	body := &chunkedReader{chunks: [][]byte{
		[]byte("data: {\"type\":\"token\""),
		[]byte(",\"text\":\"hi\"}\n\n"),
	}}
	p, err := NewPull(streamResponse(body))
	if err != nil {
		t.Fatal(err)
	}
	got := drainPull(t, p)
	want := "data: {\"type\":\"token\",\"text\":\"hi\"}\n\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestPullReassemblesSplitRunes(t *testing.T) {
	text := "data: {\"text\":\"héllo → 世界\"}\n"
	raw := []byte(text)
	// Split inside the three-byte arrow and the CJK runes.
	var chunks [][]byte
	for i := 0; i < len(raw); i += 1 {
		chunks = append(chunks, raw[i:i+1])
	}
	p, err := NewPull(streamResponse(&chunkedReader{chunks: chunks}))
	if err != nil {
		t.Fatal(err)
	}
	got := drainPull(t, p)
	if got != text {
		t.Errorf("got %q, want %q", got, text)
	}
	// Every returned chunk must have been valid UTF-8 on its own; drainPull
	// concatenating them equal to the source proves no byte was reordered.
}

func TestPullJSONBodyWithErrorEnvelope(t *testing.T) {
	resp := &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"application/json; charset=utf-8"}},
		Body:       io.NopCloser(strings.NewReader(`{"result":false,"error":"bad token"}`)),
	}
	_, err := NewPull(resp)
	var serverErr *sse.ServerError
	if !errors.As(err, &serverErr) {
		t.Fatalf("expected *sse.ServerError, got %v", err)
	}
	if serverErr.Message != "bad token" {
		t.Errorf("message = %q", serverErr.Message)
	}
}

func TestPullJSONBodyWithoutError(t *testing.T) {
	resp := &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(`{"result":true,"data":{}}`)),
	}
	if _, err := NewPull(resp); !errors.Is(err, ErrUnexpectedFormat) {
		t.Errorf("expected ErrUnexpectedFormat, got %v", err)
	}
}

func TestPullCloseIsIdempotent(t *testing.T) {
	body := &chunkedReader{chunks: [][]byte{[]byte("data: x\n")}}
	p, err := NewPull(streamResponse(body))
	if err != nil {
		t.Fatal(err)
	}
	p.Close()
	p.Close()
	if body.closed != 1 {
		t.Errorf("body closed %d times, want exactly once", body.closed)
	}
}

func TestPullGzipBody(t *testing.T) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	zw.Write([]byte("data: {\"type\":\"ping\"}\n\n"))
	zw.Close()

	resp := &http.Response{
		StatusCode: http.StatusOK,
		Header: http.Header{
			"Content-Type":     []string{"text/event-stream"},
			"Content-Encoding": []string{"gzip"},
		},
		Body: io.NopCloser(&buf),
	}
	p, err := NewPull(resp)
	if err != nil {
		t.Fatal(err)
	}
	got := drainPull(t, p)
	if got != "data: {\"type\":\"ping\"}\n\n" {
		t.Errorf("got %q", got)
	}
}

func TestPullContextCancellation(t *testing.T) {
	body := &chunkedReader{chunks: [][]byte{[]byte("data: x\n")}}
	p, err := NewPull(streamResponse(body))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Next(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestIncompleteRuneSuffix(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want int
	}{
		{"ascii", []byte("abc"), 0},
		{"complete multi-byte", []byte("héllo"), 0},
		{"split two-byte", []byte{'a', 0xC3}, 1},
		{"split three-byte after one", []byte{0xE2, 0x86}, 2},
		{"complete three-byte", []byte{0xE2, 0x86, 0x92}, 0},
		{"empty", nil, 0},
		{"lone continuation bytes pass through", []byte{0x80, 0x80, 0x80, 0x80, 0x80}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := incompleteRuneSuffix(tt.in); got != tt.want {
				t.Errorf("incompleteRuneSuffix(%v) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}
