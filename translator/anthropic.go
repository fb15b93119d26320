package translator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// ============================================================================
// ANTHROPIC PROVIDER — Messages API
// ============================================================================

const anthropicVersion = "2023-06-01"

// AnthropicProvider implements Provider using the Anthropic Messages API.
type AnthropicProvider struct {
	config Config
	client *http.Client
}

// NewAnthropic creates an Anthropic provider. Empty fields take the
// DefaultAnthropicConfig values.
func NewAnthropic(cfg Config) *AnthropicProvider {
	def := DefaultAnthropicConfig(cfg.APIKey)
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = def.Endpoint
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = def.MaxTokens
	}
	cfg.Provider = ProviderAnthropic

	return &AnthropicProvider{
		config: cfg,
		client: newHTTPClient(cfg.Timeout),
	}
}

func (a *AnthropicProvider) Name() string { return ProviderAnthropic }

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends prompt as a single user message and returns the first
// text block of the reply.
func (a *AnthropicProvider) Complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(anthropicRequest{
		Model:     a.config.Model,
		MaxTokens: a.config.MaxTokens,
		Messages:  []anthropicMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := strings.TrimSuffix(a.config.Endpoint, "/") + "/v1/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", unavailable(ProviderAnthropic, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", a.config.APIKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	raw, err := send(a.client, ProviderAnthropic, req)
	if err != nil {
		return "", err
	}

	var resp anthropicResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", malformed(ProviderAnthropic, "decode reply: %v", err)
	}
	if resp.Error != nil {
		return "", &CallError{Provider: ProviderAnthropic, Kind: ErrCapabilityUnavailable, Msg: resp.Error.Type + ": " + resp.Error.Message}
	}
	for _, block := range resp.Content {
		if block.Type == "text" && strings.TrimSpace(block.Text) != "" {
			return block.Text, nil
		}
	}
	return "", malformed(ProviderAnthropic, "reply has no text content")
}
