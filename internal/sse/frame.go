package sse

import "strings"

// FrameKind classifies one complete SSE line.
type FrameKind int

const (
	// FrameBlank is an empty line (after trimming).
	FrameBlank FrameKind = iota
	// FrameComment is a line starting with ":" (keep-alive noise).
	FrameComment
	// FrameData carries a payload string extracted from a "data:" line.
	FrameData
	// FrameIgnored is any other line the client does not need, including a
	// bare "data:" marker whose payload arrives on the following line.
	FrameIgnored
)

// Frame is the parse result for one line. Text holds the payload for
// FrameData and the comment text for FrameComment.
type Frame struct {
	Kind FrameKind
	Text string
}

// FrameParser classifies completed lines into frames. It is stateful: a bare
// "data:" marker (payload on the following line) sets a pending flag that
// survives blank lines, comments, and chunk boundaries, the same way the
// platform's stream proxy carried its pending-prefix marker. The zero value
// is ready to use.
type FrameParser struct {
	pending bool
}

// ParseLine classifies one complete line.
func (p *FrameParser) ParseLine(line string) Frame {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return Frame{Kind: FrameBlank}
	}
	if strings.HasPrefix(trimmed, ":") {
		return Frame{Kind: FrameComment, Text: strings.TrimSpace(trimmed[1:])}
	}
	if strings.HasPrefix(trimmed, "data:") {
		payload := strings.TrimSpace(trimmed[len("data:"):])
		if payload == "" {
			// Payload arrives on the next non-blank, non-comment line.
			p.pending = true
			return Frame{Kind: FrameIgnored}
		}
		p.pending = false
		return Frame{Kind: FrameData, Text: payload}
	}
	if p.pending {
		p.pending = false
		return Frame{Kind: FrameData, Text: trimmed}
	}
	// Unknown field lines (event:, id:, retry:, ...) are not an error; the
	// upstream may emit framing the client does not need.
	return Frame{Kind: FrameIgnored}
}

// ParseLines classifies a batch of completed lines in order.
func (p *FrameParser) ParseLines(lines []string) []Frame {
	if len(lines) == 0 {
		return nil
	}
	frames := make([]Frame, 0, len(lines))
	for _, line := range lines {
		frames = append(frames, p.ParseLine(line))
	}
	return frames
}
