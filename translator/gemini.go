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
// GEMINI PROVIDER — generateContent
// ============================================================================

// GeminiProvider implements Provider using the Google Gemini API.
type GeminiProvider struct {
	config Config
	client *http.Client
}

// NewGemini creates a Gemini provider. Empty fields take the
// DefaultGeminiConfig values.
func NewGemini(cfg Config) *GeminiProvider {
	def := DefaultGeminiConfig(cfg.APIKey)
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = def.Endpoint
	}
	cfg.Provider = ProviderGemini

	return &GeminiProvider{
		config: cfg,
		client: newHTTPClient(cfg.Timeout),
	}
}

func (g *GeminiProvider) Name() string { return ProviderGemini }

// geminiRequest is the Gemini API request body.
type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenerationConfig struct {
	MaxOutputTokens int `json:"maxOutputTokens,omitempty"`
}

// geminiResponse is the Gemini API response body.
type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// Complete sends a prompt to the Gemini API and returns the text response.
// The key travels in the x-goog-api-key header so it never lands in URLs
// or logs.
func (g *GeminiProvider) Complete(ctx context.Context, prompt string) (string, error) {
	reqBody := geminiRequest{
		Contents: []geminiContent{{
			Parts: []geminiPart{{Text: prompt}},
		}},
	}
	if g.config.MaxTokens > 0 {
		reqBody.GenerationConfig = &geminiGenerationConfig{MaxOutputTokens: g.config.MaxTokens}
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:generateContent", strings.TrimSuffix(g.config.Endpoint, "/"), g.config.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return "", unavailable(ProviderGemini, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.config.APIKey)

	body, err := send(g.client, ProviderGemini, req)
	if err != nil {
		return "", err
	}

	var geminiResp geminiResponse
	if err := json.Unmarshal(body, &geminiResp); err != nil {
		return "", malformed(ProviderGemini, "decode reply: %v", err)
	}
	if geminiResp.Error != nil {
		return "", &CallError{
			Provider: ProviderGemini,
			Status:   geminiResp.Error.Code,
			Kind:     ErrCapabilityUnavailable,
			Msg:      geminiResp.Error.Message,
		}
	}
	if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
		return "", malformed(ProviderGemini, "empty response")
	}
	return geminiResp.Candidates[0].Content.Parts[0].Text, nil
}
