// internal/config/config.go
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// TransportConfig holds connection-lifecycle settings
type TransportConfig struct {
	ServerURL         string
	ReconnectAttempts int
	ReconnectDelay    time.Duration
}

// ChatConfig holds client-core tuning knobs
type ChatConfig struct {
	PageSize       int
	SettleDelay    time.Duration
	RequestTimeout time.Duration
}

// CacheConfig holds the optional local history cache settings
type CacheConfig struct {
	MongoURI string
	Enabled  bool
}

// Config holds the complete application configuration
type Config struct {
	Transport *TransportConfig
	Chat      *ChatConfig
	Cache     *CacheConfig
	Token     string
	Debug     bool
}

// DefaultTransportConfig provides default connection settings
func DefaultTransportConfig() *TransportConfig {
	return &TransportConfig{
		ServerURL:         "http://localhost:8080",
		ReconnectAttempts: 5,
		ReconnectDelay:    1 * time.Second,
	}
}

// DefaultChatConfig provides default client-core settings
func DefaultChatConfig() *ChatConfig {
	return &ChatConfig{
		PageSize:       20,
		SettleDelay:    400 * time.Millisecond,
		RequestTimeout: 5 * time.Second,
	}
}

// LoadConfig loads configuration from environment variables and applies defaults
func LoadConfig() (*Config, error) {
	// Silent failure if no .env exists, which is fine
	_ = godotenv.Load()

	transport := DefaultTransportConfig()
	if url := os.Getenv("PAWCHAT_SERVER_URL"); url != "" {
		transport.ServerURL = url
	}
	if attemptsStr := os.Getenv("PAWCHAT_RECONNECT_ATTEMPTS"); attemptsStr != "" {
		if attempts, err := strconv.Atoi(attemptsStr); err == nil && attempts > 0 {
			transport.ReconnectAttempts = attempts
		}
	}
	if delayStr := os.Getenv("PAWCHAT_RECONNECT_DELAY_MS"); delayStr != "" {
		if ms, err := strconv.Atoi(delayStr); err == nil && ms > 0 {
			transport.ReconnectDelay = time.Duration(ms) * time.Millisecond
		}
	}

	chat := DefaultChatConfig()
	if sizeStr := os.Getenv("PAWCHAT_PAGE_SIZE"); sizeStr != "" {
		if size, err := strconv.Atoi(sizeStr); err == nil && size > 0 {
			chat.PageSize = size
		}
	}
	if settleStr := os.Getenv("PAWCHAT_SETTLE_DELAY_MS"); settleStr != "" {
		if ms, err := strconv.Atoi(settleStr); err == nil && ms >= 0 {
			chat.SettleDelay = time.Duration(ms) * time.Millisecond
		}
	}

	cache := &CacheConfig{}
	if uri := os.Getenv("MONGODB_URI"); uri != "" {
		cache.MongoURI = uri
		cache.Enabled = true
	}

	config := &Config{
		Transport: transport,
		Chat:      chat,
		Cache:     cache,
		Token:     os.Getenv("PAWCHAT_TOKEN"),
	}

	if debug := os.Getenv("DEBUG"); debug == "true" {
		config.Debug = true
	}

	return config, nil
}
