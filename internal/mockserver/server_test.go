package mockserver

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/opspilot/go-chatstream/internal/chat"
	"github.com/opspilot/go-chatstream/internal/sse"
	"github.com/opspilot/go-chatstream/internal/transport"
	"github.com/opspilot/go-chatstream/internal/upstream"
)

func startMock(t *testing.T) (*httptest.Server, *upstream.Client) {
	t.Helper()
	srv := httptest.NewServer((&Server{}).Router())
	t.Cleanup(srv.Close)
	return srv, upstream.NewClient(srv.URL, "", false)
}

func TestEchoRoundTrip(t *testing.T) {
	_, client := startMock(t)

	resp, err := client.StreamChat(context.Background(), upstream.ChatRequest{Message: "hello streaming world"})
	if err != nil {
		t.Fatal(err)
	}
	session, err := chat.OpenResponse(context.Background(), resp, chat.Options{})
	if err != nil {
		t.Fatal(err)
	}
	res, err := chat.Collect(session)
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != "hello streaming world" {
		t.Errorf("text = %q", res.Text)
	}
	// Three tokens plus the end event.
	if res.Events != 4 {
		t.Errorf("events = %d, want 4", res.Events)
	}
}

func TestErrorEnvelopeRoundTrip(t *testing.T) {
	_, client := startMock(t)

	resp, err := client.StreamChat(context.Background(), upstream.ChatRequest{Message: "error"})
	if err != nil {
		t.Fatal(err)
	}
	session, err := chat.OpenResponse(context.Background(), resp, chat.Options{})
	if err != nil {
		t.Fatal(err)
	}
	_, err = chat.Collect(session)
	var serverErr *sse.ServerError
	if !errors.As(err, &serverErr) || serverErr.Message != "skill execution failed" {
		t.Errorf("expected skill execution failed, got %v", err)
	}
}

func TestEmptyStreamRoundTrip(t *testing.T) {
	_, client := startMock(t)

	resp, err := client.StreamChat(context.Background(), upstream.ChatRequest{Message: "empty"})
	if err != nil {
		t.Fatal(err)
	}
	session, err := chat.OpenResponse(context.Background(), resp, chat.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := chat.Collect(session); !errors.Is(err, chat.ErrNoEvents) {
		t.Errorf("expected ErrNoEvents, got %v", err)
	}
}

func TestJSONErrorBodyRoundTrip(t *testing.T) {
	_, client := startMock(t)

	resp, err := client.StreamChat(context.Background(), upstream.ChatRequest{Message: "json-error"})
	if err != nil {
		t.Fatal(err)
	}
	_, err = chat.OpenResponse(context.Background(), resp, chat.Options{})
	var serverErr *sse.ServerError
	if !errors.As(err, &serverErr) || serverErr.Message != "bot is disabled" {
		t.Errorf("expected bot is disabled, got %v", err)
	}
}

func TestBareDataMarkerRoundTrip(t *testing.T) {
	_, client := startMock(t)

	resp, err := client.StreamChat(context.Background(), upstream.ChatRequest{Message: "bare"})
	if err != nil {
		t.Fatal(err)
	}
	session, err := chat.OpenResponse(context.Background(), resp, chat.Options{})
	if err != nil {
		t.Fatal(err)
	}
	res, err := chat.Collect(session)
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != "merged" {
		t.Errorf("text = %q", res.Text)
	}
}

func TestNoisyStreamRoundTrip(t *testing.T) {
	_, client := startMock(t)

	resp, err := client.StreamChat(context.Background(), upstream.ChatRequest{Message: "noisy"})
	if err != nil {
		t.Fatal(err)
	}
	session, err := chat.OpenResponse(context.Background(), resp, chat.Options{})
	if err != nil {
		t.Fatal(err)
	}
	res, err := chat.Collect(session)
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != "signal through" {
		t.Errorf("text = %q", res.Text)
	}
}

func TestPushTransportRoundTrip(t *testing.T) {
	// The same server consumed over the push path: an HTTP response pumped
	// through a bridge must read identically to the pull path.
	_, client := startMock(t)

	resp, err := client.StreamChat(context.Background(), upstream.ChatRequest{Message: "hello streaming world"})
	if err != nil {
		t.Fatal(err)
	}

	b := transport.NewBridge()
	id := transport.NewStreamID()
	session := chat.OpenBridge(context.Background(), b, id, chat.Options{})
	go transport.Pump(b, id, resp)

	res, err := chat.Collect(session)
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != "hello streaming world" {
		t.Errorf("text = %q", res.Text)
	}
}
