package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	anthropicAPIVersion = "2023-06-01"
	// AnthropicBaseURL is the Messages API endpoint
	AnthropicBaseURL = "https://api.anthropic.com/v1/messages"
	defaultMaxTokens = 4096
)

type anthropicRequest struct {
	Model       string             `json:"model"`
	Messages    []anthropicMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature *float32           `json:"temperature,omitempty"`
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
	} `json:"error,omitempty"`
}

// AnthropicOptions configure the Messages API client
type AnthropicOptions struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float32
	MaxTokens   int
	HTTPClient  *http.Client
}

// AnthropicClient calls the Anthropic Messages API over plain HTTP
type AnthropicClient struct {
	httpClient *http.Client
	opts       AnthropicOptions
}

// NewAnthropicClient creates a client. The API key is required.
func NewAnthropicClient(opts AnthropicOptions) (*AnthropicClient, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY is missing")
	}
	if opts.Model == "" {
		return nil, fmt.Errorf("anthropic model is not set")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = AnthropicBaseURL
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 120 * time.Second}
	}
	return &AnthropicClient{httpClient: hc, opts: opts}, nil
}

// Name implements Completer
func (a *AnthropicClient) Name() string { return "anthropic:" + a.opts.Model }

// Complete implements Completer
func (a *AnthropicClient) Complete(ctx context.Context, messages []Message) (string, error) {
	if err := validate(messages); err != nil {
		return "", err
	}
	system, rest := splitSystem(messages)

	payload := anthropicRequest{
		Model:     a.opts.Model,
		System:    system,
		MaxTokens: a.opts.MaxTokens,
	}
	if a.opts.Temperature > 0 {
		t := a.opts.Temperature
		payload.Temperature = &t
	}
	for _, m := range rest {
		payload.Messages = append(payload.Messages, anthropicMessage{Role: strings.ToLower(m.Role), Content: m.Content})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.opts.BaseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-api-key", a.opts.APIKey)
	req.Header.Set("anthropic-version", anthropicAPIVersion)
	req.Header.Set("content-type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", statusError("anthropic", resp.StatusCode, string(raw))
	}

	var out anthropicResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("anthropic error %s: %s", out.Error.Type, out.Error.Message)
	}

	var text strings.Builder
	for _, c := range out.Content {
		if c.Type == "text" {
			text.WriteString(c.Text)
		}
	}
	if text.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return text.String(), nil
}
