package chat

import (
	"io"
	"strings"
)

// Result holds the assembled content of a fully-consumed chat turn.
type Result struct {
	Text   string
	Events int
}

// Collect drains the session and concatenates the text of its events. It is
// the non-streaming convenience for callers that want the whole reply at once.
// The session is closed regardless of outcome.
func Collect(s *Session) (Result, error) {
	defer s.Close()

	var text strings.Builder
	var out Result
	for {
		evt, err := s.Next()
		if err == io.EOF {
			out.Text = text.String()
			return out, nil
		}
		if err != nil {
			out.Text = text.String()
			return out, err
		}
		out.Events++
		text.WriteString(evt.Text())
	}
}
