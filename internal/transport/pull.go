package transport

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/andybalholm/brotli"

	"github.com/opspilot/go-chatstream/internal/sse"
)

// ErrUnexpectedFormat reports a 200-status response that was a JSON document
// instead of an event stream and carried no recognizable error inside.
var ErrUnexpectedFormat = errors.New("unexpected response format")

// maxErrorBodySize caps how much of a non-streaming body the probe reads.
const maxErrorBodySize = 1 << 20

const readBufferSize = 16 * 1024

// Pull reads raw text chunks from a streaming HTTP response body. Bytes are
// decoded to text incrementally: a multi-byte character split across read
// boundaries is carried until its remaining bytes arrive.
type Pull struct {
	body      io.ReadCloser
	buf       []byte
	carry     []byte
	err       error
	closeOnce sync.Once
	closeErr  error
}

// NewPull wraps a response handed over by the HTTP layer. Before streaming
// begins it inspects the declared content type: a JSON body is parsed eagerly
// and surfaced as the server's own error when it contains one, or as
// ErrUnexpectedFormat when it does not; a non-streaming success response is
// not part of this protocol. The body is fully consumed and closed in that
// case.
func NewPull(resp *http.Response) (*Pull, error) {
	if isJSONContentType(resp.Header.Get("Content-Type")) {
		defer resp.Body.Close()
		raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		if err != nil {
			return nil, fmt.Errorf("read non-streaming response: %w", err)
		}
		return nil, errorFromJSONBody(raw)
	}
	body, err := decodeBody(resp)
	if err != nil {
		resp.Body.Close()
		return nil, err
	}
	return &Pull{
		body: body,
		buf:  make([]byte, readBufferSize),
	}, nil
}

// Next performs one blocking read and returns the decoded text. io.EOF marks
// the end of the body; the partial-rune carry, if any, is flushed as the
// final chunk before that.
func (p *Pull) Next(ctx context.Context) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	for {
		if err := ctx.Err(); err != nil {
			p.err = err
			return "", err
		}
		n, err := p.body.Read(p.buf)
		if n > 0 {
			chunk := p.decode(p.buf[:n])
			if err == io.EOF {
				chunk += p.flushCarry()
				p.err = io.EOF
			} else if err != nil {
				p.err = fmt.Errorf("read stream: %w", err)
			}
			if chunk != "" {
				return chunk, nil
			}
			if p.err != nil {
				return "", p.err
			}
			continue
		}
		if err == io.EOF {
			p.err = io.EOF
			if tail := p.flushCarry(); tail != "" {
				return tail, nil
			}
			return "", io.EOF
		}
		if err != nil {
			p.err = fmt.Errorf("read stream: %w", err)
			return "", p.err
		}
	}
}

// decode appends bytes to the carry and returns the longest prefix that ends
// on a rune boundary.
func (p *Pull) decode(b []byte) string {
	data := b
	if len(p.carry) > 0 {
		data = append(p.carry, b...)
		p.carry = nil
	}
	cut := len(data) - incompleteRuneSuffix(data)
	if cut < len(data) {
		p.carry = append([]byte(nil), data[cut:]...)
	}
	return string(data[:cut])
}

func (p *Pull) flushCarry() string {
	if len(p.carry) == 0 {
		return ""
	}
	tail := string(p.carry)
	p.carry = nil
	return tail
}

// Close releases the response body exactly once. Safe on every termination
// path, including caller abandonment mid-stream.
func (p *Pull) Close() error {
	p.closeOnce.Do(func() {
		p.closeErr = p.body.Close()
	})
	return p.closeErr
}

func (p *Pull) Kind() Kind { return KindPull }

// incompleteRuneSuffix returns the length of a trailing incomplete UTF-8
// sequence, or 0 when the data ends on a rune boundary. Garbage that cannot
// be the start of a rune is passed through rather than held forever.
func incompleteRuneSuffix(b []byte) int {
	for i := 1; i <= utf8.UTFMax && i <= len(b); i++ {
		c := b[len(b)-i]
		if c < utf8.RuneSelf {
			return 0
		}
		if c >= 0xC0 { // start of a multi-byte sequence
			if utf8.FullRune(b[len(b)-i:]) {
				return 0
			}
			return i
		}
	}
	return 0
}

func isJSONContentType(ct string) bool {
	mediaType := strings.TrimSpace(strings.Split(ct, ";")[0])
	return strings.EqualFold(mediaType, "application/json")
}

// errorFromJSONBody turns a JSON document received in place of an event
// stream into the error the caller sees: the server's embedded error when the
// body matches the platform's error shape, ErrUnexpectedFormat otherwise.
func errorFromJSONBody(raw []byte) error {
	if env := sse.Classify(string(raw)); env.Kind == sse.KindErrorEnvelope {
		return &sse.ServerError{Message: env.Message}
	}
	return ErrUnexpectedFormat
}

// decodeBody unwraps the content encoding negotiated by the HTTP layer so the
// adapter always streams plain text.
func decodeBody(resp *http.Response) (io.ReadCloser, error) {
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "", "identity":
		return resp.Body, nil
	case "gzip":
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip response: %w", err)
		}
		return &decodedBody{Reader: zr, underlying: resp.Body}, nil
	case "br":
		return &decodedBody{Reader: brotli.NewReader(resp.Body), underlying: resp.Body}, nil
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", resp.Header.Get("Content-Encoding"))
	}
}

// decodedBody closes the underlying response body, not just the decompressor.
type decodedBody struct {
	io.Reader
	underlying io.Closer
}

func (d *decodedBody) Close() error {
	return d.underlying.Close()
}
