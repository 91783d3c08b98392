// Package mockserver simulates the platform's streaming bot API for local
// development and tests.
package mockserver

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server serves scripted SSE chat responses. The message field of the
// request selects the script:
//
//	"error"      an error envelope inside a 200 OK stream
//	"empty"      a stream that ends without a single event
//	"json-error" a JSON error document instead of an event stream
//	"bare"       a payload delivered after a bare "data:" marker
//	"noisy"      tokens interleaved with comments and unparsable lines
//
// Anything else is echoed back one token per word.
type Server struct {
	// Delay is inserted between frames to make chunk boundaries visible to
	// interactive consumers. Zero for tests.
	Delay time.Duration
}

// Router returns the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Post("/api/bot/chat", s.handleChat)
	return r
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]any{"result": false, "error": "invalid JSON body"})
		return
	}

	if req.Message == "json-error" {
		// A 200 with a JSON document where the client expects a stream.
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"result": false, "error": "bot is disabled"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	emit := func(format string, args ...any) {
		fmt.Fprintf(w, format, args...)
		flusher.Flush()
		if s.Delay > 0 {
			time.Sleep(s.Delay)
		}
	}

	switch req.Message {
	case "error":
		emit("data: {\"type\":\"token\",\"text\":\"partial\"}\n\n")
		emit("data: {\"result\":false,\"error\":\"skill execution failed\"}\n\n")
	case "empty":
		emit(": nothing to say\n\n")
	case "bare":
		emit("data:\n{\"type\":\"token\",\"text\":\"merged\"}\n\n")
		emit("data: [DONE]\n\n")
	case "noisy":
		emit(": keep-alive\n\n")
		emit("data: {\"type\":\"token\",\"text\":\"signal\"}\n\n")
		emit("data: <html>not json</html>\n\n")
		emit("data: {\"type\":\"token\",\"text\":\" through\"}\n\n")
		emit("data: [DONE]\n\n")
	default:
		s.echoTokens(emit, req.Message)
	}
	slog.Debug("mock chat served", "message", req.Message)
}

// echoTokens streams the message back word by word, the way the bot streams
// a reply token by token.
func (s *Server) echoTokens(emit func(string, ...any), message string) {
	words := strings.Fields(message)
	if len(words) == 0 {
		words = []string{"(empty)"}
	}
	for i, word := range words {
		text := word
		if i > 0 {
			text = " " + word
		}
		payload, _ := json.Marshal(map[string]any{"type": "token", "text": text})
		emit("data: %s\n\n", payload)
	}
	done, _ := json.Marshal(map[string]any{"type": "end", "total_tokens": len(words)})
	emit("data: %s\n\n", done)
	emit("data: [DONE]\n\n")
}
