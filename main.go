package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/opspilot/go-chatstream/internal/chat"
	"github.com/opspilot/go-chatstream/internal/config"
	"github.com/opspilot/go-chatstream/internal/logger"
	"github.com/opspilot/go-chatstream/internal/mockserver"
	"github.com/opspilot/go-chatstream/internal/transport"
	"github.com/opspilot/go-chatstream/internal/upstream"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: chatstream <command> [flags]")
		fmt.Fprintln(os.Stderr, "Commands: chat, mock, version")
		os.Exit(1)
	}

	switch os.Args[1] {
	case "chat":
		os.Exit(cmdChat())
	case "mock":
		os.Exit(cmdMock())
	case "version":
		fmt.Println("chatstream " + version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		fmt.Fprintln(os.Stderr, "Commands: chat, mock, version")
		os.Exit(1)
	}
}

func cmdChat() int {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)
	cfg := config.Load()

	fs.StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "Chat server base URL")
	fs.StringVar(&cfg.Token, "token", cfg.Token, "Bearer token")
	fs.StringVar(&cfg.BotID, "bot", cfg.BotID, "Bot identifier")
	fs.StringVar(&cfg.Transport, "transport", cfg.Transport, "Stream transport (pull|push)")
	fs.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "Enable verbose logging")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format (text|json)")
	fs.DurationVar(&cfg.IdleTimeout, "idle-timeout", cfg.IdleTimeout, "Abort if no data arrives for this long (0 disables)")
	fs.Parse(os.Args[2:])

	logger.Setup(cfg.Verbose, cfg.LogFormat)

	message := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if message == "" {
		fmt.Fprintln(os.Stderr, "Usage: chatstream chat [flags] <message>")
		return 1
	}

	kind, ok := transport.ParseKind(cfg.Transport)
	if !ok {
		slog.Error("unknown transport", "transport", cfg.Transport)
		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nInterrupted.")
		cancel()
	}()

	client := upstream.NewClient(cfg.ServerURL, cfg.Token, cfg.Verbose)
	resp, err := client.StreamChat(ctx, upstream.ChatRequest{
		BotID:   cfg.BotID,
		Message: message,
		Stream:  true,
	})
	if err != nil {
		slog.Error("request failed", "error", err)
		return 1
	}

	opts := chat.Options{IdleTimeout: cfg.IdleTimeout}

	var session *chat.Session
	switch kind {
	case transport.KindPush:
		b := transport.NewBridge()
		id := transport.NewStreamID()
		session = chat.OpenBridge(ctx, b, id, opts)
		go transport.Pump(b, id, resp)
	default:
		session, err = chat.OpenResponse(ctx, resp, opts)
		if err != nil {
			slog.Error("stream rejected", "error", err)
			return 1
		}
	}
	defer session.Close()

	if err := streamToStdout(session); err != nil {
		slog.Error("stream failed", "error", err)
		return 1
	}
	return 0
}

// streamToStdout prints event text as it arrives, so the reply renders
// token by token the way a chat UI would.
func streamToStdout(session *chat.Session) error {
	wrote := false
	for {
		evt, err := session.Next()
		if err != nil {
			if wrote {
				fmt.Println()
			}
			if err == io.EOF {
				return nil
			}
			return err
		}
		if text := evt.Text(); text != "" {
			fmt.Print(text)
			wrote = true
		}
	}
}

func cmdMock() int {
	fs := flag.NewFlagSet("mock", flag.ExitOnError)
	cfg := config.Load()

	fs.StringVar(&cfg.MockHost, "host", cfg.MockHost, "Bind host")
	fs.IntVar(&cfg.MockPort, "port", cfg.MockPort, "Listen port")
	fs.DurationVar(&cfg.MockDelay, "delay", cfg.MockDelay, "Pause between emitted frames")
	fs.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "Enable verbose logging")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format (text|json)")
	fs.Parse(os.Args[2:])

	logger.Setup(cfg.Verbose, cfg.LogFormat)

	mock := &mockserver.Server{Delay: cfg.MockDelay}
	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.MockHost, cfg.MockPort),
		Handler: mock.Router(),
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx) //nolint:errcheck
	}()

	slog.Info("mock chat server starting", "host", cfg.MockHost, "port", cfg.MockPort)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		return 1
	}
	return 0
}
