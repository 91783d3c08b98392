package sse

import (
	"encoding/json"
	"strings"
)

// Done is the literal payload marking the server's intended end of useful
// data. It is matched before any JSON handling and never parsed.
const Done = "[DONE]"

// EnvelopeKind classifies a decoded data payload.
type EnvelopeKind int

const (
	// KindDomainEvent is a successfully parsed object that is not an error shape.
	KindDomainEvent EnvelopeKind = iota
	// KindErrorEnvelope is an application-level failure embedded in the stream.
	KindErrorEnvelope
	// KindSentinel is the literal [DONE] payload.
	KindSentinel
	// KindMalformed is a payload that fails JSON parsing. Recoverable: the
	// caller logs and skips it.
	KindMalformed
)

// Envelope is the classification result for one data payload.
type Envelope struct {
	Kind    EnvelopeKind
	Data    map[string]any
	Raw     json.RawMessage
	Message string // server message for KindErrorEnvelope, may be empty
}

// Classify parses a data payload and decides what it is. The [DONE] sentinel
// is recognized before JSON parsing. A parse failure is KindMalformed, never
// an error: keep-alive noise is expected on this wire.
func Classify(payload string) Envelope {
	payload = strings.TrimSpace(payload)
	if payload == Done {
		return Envelope{Kind: KindSentinel}
	}
	var data map[string]any
	if err := json.Unmarshal([]byte(payload), &data); err != nil {
		return Envelope{Kind: KindMalformed, Raw: json.RawMessage(payload)}
	}
	if isErrorShape(data) {
		return Envelope{Kind: KindErrorEnvelope, Data: data, Message: ErrorMessage(data)}
	}
	return Envelope{Kind: KindDomainEvent, Data: data, Raw: json.RawMessage(payload)}
}

// isErrorShape applies the platform's error predicate: result === false, an
// error field without a type field, or a recognized error type tag.
func isErrorShape(data map[string]any) bool {
	if v, ok := data["result"].(bool); ok && !v {
		return true
	}
	typ, hasType := data["type"]
	if _, hasErr := data["error"]; hasErr && !hasType {
		return true
	}
	if s, ok := typ.(string); ok && (s == "ERROR" || s == "RUN_ERROR") {
		return true
	}
	return false
}

// ErrorMessage extracts a human-readable message from an error-shaped
// payload: the error field first, then message, then a nested error object.
// Returns "" when nothing usable is present.
func ErrorMessage(data map[string]any) string {
	if v, ok := data["error"].(string); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	if v, ok := data["message"].(string); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	if nested, ok := data["error"].(map[string]any); ok {
		if msg := ErrorMessage(nested); msg != "" {
			return msg
		}
	}
	return ""
}
