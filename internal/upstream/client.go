package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/opspilot/go-chatstream/internal/sse"
)

// streamHTTPTimeout is the maximum time allowed for one chat-turn request.
// SSE streams can be long-lived, so the timeout is generous.
const streamHTTPTimeout = 5 * time.Minute

// ChatRequest is the payload for one chat turn against the platform's bot
// API.
type ChatRequest struct {
	BotID   string `json:"bot_id,omitempty"`
	Message string `json:"message"`
	Stream  bool   `json:"stream"`
}

// Client issues streaming chat requests to the ops platform. It is the thin
// HTTP boundary: it builds the request and checks the status, and hands the
// raw response to the streaming engine. Retry policy, if any, belongs to the
// caller.
type Client struct {
	BaseURL string
	Token   string
	Verbose bool

	httpClient *http.Client
}

// NewClient creates a client for the given server.
func NewClient(baseURL, token string, verbose bool) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Token:      token,
		Verbose:    verbose,
		httpClient: &http.Client{Timeout: streamHTTPTimeout},
	}
}

// StreamChat sends one chat turn and returns the raw streaming response. A
// non-2xx status is consumed here and surfaced as an error carrying the
// server's message when one can be extracted.
func (c *Client) StreamChat(ctx context.Context, req ChatRequest) (*http.Response, error) {
	req.Stream = true
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/api/bot/chat", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if c.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.Token)
	}

	if c.Verbose {
		slog.Info("upstream.request", "url", httpReq.URL.String(), "message_chars", len(req.Message))
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("chat request failed: %w", err)
	}
	if c.Verbose {
		slog.Info("upstream.response", "status", resp.StatusCode, "content_type", resp.Header.Get("Content-Type"))
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return nil, fmt.Errorf("server returned HTTP %d: %s", resp.StatusCode, errorBodyPreview(raw))
	}
	return resp, nil
}

// errorBodyPreview extracts the server's message from an error body, falling
// back to a compacted preview of the raw bytes.
func errorBodyPreview(raw []byte) string {
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err == nil {
		if msg := sse.ErrorMessage(data); msg != "" {
			return msg
		}
	}
	clean := strings.Join(strings.Fields(string(raw)), " ")
	if clean == "" {
		return "empty error body"
	}
	if len(clean) > 280 {
		return clean[:280] + "..."
	}
	return clean
}
