package translator

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ============================================================================
// PROVIDER — AI boundary for question → plan
// ============================================================================
// A Provider is the ONLY component that calls an external AI service. It
// receives a fully built prompt and returns the model's raw text. It never
// sees the dataset: prompts carry column metadata, vocabularies and a few
// redacted sample rows.
//
// Implementations: Anthropic Messages API (default), Gemini generateContent.
// ============================================================================

// Provider sends one prompt and returns the completion text.
type Provider interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// Provider names.
const (
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// DefaultTimeout bounds a single HTTP exchange.
const DefaultTimeout = 30 * time.Second

// Config holds provider configuration.
type Config struct {
	Provider  string // anthropic | gemini
	APIKey    string // consumer's key, read from the environment
	Model     string
	Endpoint  string // empty = provider default
	MaxTokens int
	Timeout   time.Duration
}

// DefaultAnthropicConfig returns a Config with Anthropic defaults.
func DefaultAnthropicConfig(apiKey string) Config {
	return Config{
		Provider:  ProviderAnthropic,
		APIKey:    apiKey,
		Model:     "claude-sonnet-4-20250514",
		Endpoint:  "https://api.anthropic.com",
		MaxTokens: 1024,
		Timeout:   DefaultTimeout,
	}
}

// DefaultGeminiConfig returns a Config with Gemini defaults.
func DefaultGeminiConfig(apiKey string) Config {
	return Config{
		Provider: ProviderGemini,
		APIKey:   apiKey,
		Model:    "gemini-2.5-flash-lite",
		Endpoint: "https://generativelanguage.googleapis.com/v1beta/models",
		Timeout:  DefaultTimeout,
	}
}

// NewProvider builds the provider named by cfg.Provider (anthropic when
// empty). A missing API key returns ErrCapabilityUnavailable: no credential
// is a mode constraint, not a failure.
func NewProvider(cfg Config) (Provider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: no API key configured", ErrCapabilityUnavailable)
	}
	switch strings.ToLower(cfg.Provider) {
	case "", ProviderAnthropic:
		return NewAnthropic(cfg), nil
	case ProviderGemini:
		return NewGemini(cfg), nil
	}
	return nil, fmt.Errorf("unknown provider %q (want %s or %s)", cfg.Provider, ProviderAnthropic, ProviderGemini)
}

// ============================================================================
// HTTP HELPERS
// ============================================================================

// maxResponseBytes caps how much of a reply body is read.
const maxResponseBytes = 1 << 20

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// send performs req and returns the body of a 200 response. Transport
// failures and non-200 statuses become a *CallError wrapping
// ErrCapabilityUnavailable.
func send(client *http.Client, provider string, req *http.Request) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, unavailable(provider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, unavailable(provider, fmt.Errorf("read response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &CallError{
			Provider: provider,
			Status:   resp.StatusCode,
			Kind:     ErrCapabilityUnavailable,
			Msg:      truncate(strings.TrimSpace(string(body)), 200),
		}
	}
	return body, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
