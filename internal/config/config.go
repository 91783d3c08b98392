package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ServerURLDefault = "http://127.0.0.1:8000"
	MockHostDefault  = "127.0.0.1"
	MockPortDefault  = 8000
)

// Config holds all chat client and mock server configuration.
type Config struct {
	ServerURL   string
	Token       string
	BotID       string
	Transport   string
	Verbose     bool
	LogFormat   string
	IdleTimeout time.Duration

	MockHost  string
	MockPort  int
	MockDelay time.Duration
}

// Load reads an optional .env file and builds a Config from environment
// variables. A missing .env file is not an error.
func Load() *Config {
	godotenv.Load() //nolint:errcheck
	return DefaultFromEnv()
}

// DefaultFromEnv creates a Config with defaults from environment variables.
func DefaultFromEnv() *Config {
	return &Config{
		ServerURL:   envOrDefault("CHATSTREAM_SERVER_URL", ServerURLDefault),
		Token:       strings.TrimSpace(os.Getenv("CHATSTREAM_TOKEN")),
		BotID:       strings.TrimSpace(os.Getenv("CHATSTREAM_BOT_ID")),
		Transport:   envLower("CHATSTREAM_TRANSPORT", "pull"),
		Verbose:     envBool("CHATSTREAM_VERBOSE"),
		LogFormat:   envLower("CHATSTREAM_LOG_FORMAT", "text"),
		IdleTimeout: envDuration("CHATSTREAM_IDLE_TIMEOUT"),
		MockHost:    envOrDefault("CHATSTREAM_MOCK_HOST", MockHostDefault),
		MockPort:    envInt("CHATSTREAM_MOCK_PORT", MockPortDefault),
		MockDelay:   envDuration("CHATSTREAM_MOCK_DELAY"),
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return defaultVal
}

func envLower(key, defaultVal string) string {
	if v := strings.ToLower(strings.TrimSpace(os.Getenv(key))); v != "" {
		return v
	}
	return defaultVal
}

func envBool(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

func envInt(key string, defaultVal int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

func envDuration(key string) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return 0
}
