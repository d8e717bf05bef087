// Package vision sends a question plus a captured screenshot to a cloud
// vision-language model and returns the raw reply text. One caller exists
// per provider; all speak plain HTTP so the wire format stays visible.
package vision

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

// Message is one prior conversation entry sent for context.
// Role is "user" or "assistant".
type Message struct {
	Role    string
	Content string
}

// Request carries everything one model call needs. ImagePNG may be nil for
// text-only calls (credential verification, context-free asks).
type Request struct {
	System   string
	Context  []Message
	Prompt   string
	ImagePNG []byte
}

// Usage reports token counts when the provider returns them.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Result is the raw model output before any structured parsing.
type Result struct {
	Text  string
	Usage Usage
}

// CallFunc is the signature for a vision model call.
type CallFunc func(ctx context.Context, req Request) (Result, error)

// Config holds configuration for creating a caller.
type Config struct {
	Provider string // "openai", "anthropic", or "ollama"
	Model    string // e.g. "gpt-4o", "claude-haiku-4-5-20251001"
	APIKey   string
	BaseURL  string // override base URL
	Timeout  time.Duration
	Client   *http.Client // override HTTP client, mainly for tests
}

// APIError is returned when the provider answers with a non-2xx status.
// The pipeline inspects StatusCode to classify credential and quota failures.
type APIError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.StatusCode, e.Body)
}

const defaultTimeout = 120 * time.Second

// NewCaller creates a CallFunc for the configured provider.
// Ollama needs no API key; the other providers expect cfg.APIKey to be
// resolved by the caller before this point.
func NewCaller(cfg Config) (CallFunc, error) {
	provider := strings.ToLower(cfg.Provider)
	model := cfg.Model

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	switch provider {
	case ProviderOpenAI, "":
		if model == "" {
			model = "gpt-4o"
		}
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "https://api.openai.com"
		}
		return newOpenAICaller(client, cfg.APIKey, model, baseURL), nil

	case ProviderAnthropic:
		if model == "" {
			model = "claude-haiku-4-5-20251001"
		}
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "https://api.anthropic.com"
		}
		return newAnthropicCaller(client, cfg.APIKey, model, baseURL), nil

	case ProviderOllama:
		if model == "" {
			model = "llama3.2-vision"
		}
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		return newOllamaCaller(client, model, baseURL), nil

	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

// SupportedProviders returns the providers NewCaller accepts.
func SupportedProviders() []string {
	return []string{ProviderOpenAI, ProviderAnthropic, ProviderOllama}
}

// IsSupportedProvider reports whether the given provider name is recognized.
func IsSupportedProvider(provider string) bool {
	switch strings.ToLower(provider) {
	case ProviderOpenAI, ProviderAnthropic, ProviderOllama:
		return true
	default:
		return false
	}
}
