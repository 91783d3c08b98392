package sse

import "strings"

// LineBuffer reassembles complete lines from arbitrarily-chunked text.
// Chunks carry no framing guarantee: one chunk may hold zero, one, or many
// lines, and may split a line mid-payload. The buffer keeps the incomplete
// trailing fragment and hands it back on the next Append or on Flush.
type LineBuffer struct {
	carry strings.Builder
}

// Append adds decoded text and returns every line completed by it, in order.
// The trailing fragment after the last newline (possibly empty) is retained.
func (b *LineBuffer) Append(chunk string) []string {
	if chunk == "" {
		return nil
	}
	b.carry.WriteString(chunk)
	buf := b.carry.String()
	if !strings.Contains(buf, "\n") {
		return nil
	}
	parts := strings.Split(buf, "\n")
	b.carry.Reset()
	b.carry.WriteString(parts[len(parts)-1])
	return parts[:len(parts)-1]
}

// Flush returns the retained fragment as a final, possibly incomplete line.
// Must be called once at end-of-stream; ok is false when nothing was pending.
func (b *LineBuffer) Flush() (line string, ok bool) {
	line = b.carry.String()
	b.carry.Reset()
	return line, line != ""
}
