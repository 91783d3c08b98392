package chat

import "encoding/json"

// Event is one domain event decoded from the stream and yielded to the
// caller: a token, a state update, or any other application object the
// server emits. Type is the payload's "type" field when present.
type Event struct {
	Type string
	Raw  json.RawMessage
	Data map[string]any
}

// Text returns the event's text field, or "" when absent. Token events carry
// their delta here.
func (e *Event) Text() string {
	if s, ok := e.Data["text"].(string); ok {
		return s
	}
	if s, ok := e.Data["content"].(string); ok {
		return s
	}
	return ""
}
