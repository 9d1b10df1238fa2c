package completion

import (
	"context"
	"fmt"
	"strings"

	genai "google.golang.org/genai"
)

// GeminiOptions configure the Gemini client
type GeminiOptions struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float32
	MaxTokens   int
	JSONMode    bool
}

// GeminiClient is a thin wrapper around the official genai client
type GeminiClient struct {
	cli  *genai.Client
	opts GeminiOptions
}

// NewGeminiClient creates a client against the Gemini API backend
func NewGeminiClient(ctx context.Context, opts GeminiOptions) (*GeminiClient, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is missing")
	}
	if opts.Model == "" {
		return nil, fmt.Errorf("gemini model is not set")
	}
	cc := &genai.ClientConfig{APIKey: opts.APIKey, Backend: genai.BackendGeminiAPI}
	if opts.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}
	cli, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiClient{cli: cli, opts: opts}, nil
}

// Name implements Completer
func (g *GeminiClient) Name() string { return "gemini:" + g.opts.Model }

// Complete implements Completer. Assistant turns are sent with the "model"
// role.
func (g *GeminiClient) Complete(ctx context.Context, messages []Message) (string, error) {
	if err := validate(messages); err != nil {
		return "", err
	}
	system, rest := splitSystem(messages)

	contents := make([]*genai.Content, 0, len(rest))
	for _, m := range rest {
		role := "user"
		if strings.EqualFold(m.Role, RoleAssistant) {
			role = "model"
		}
		contents = append(contents, &genai.Content{Role: role, Parts: []*genai.Part{{Text: m.Content}}})
	}

	temperature := g.opts.Temperature
	cfg := &genai.GenerateContentConfig{Temperature: &temperature}
	if g.opts.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(g.opts.MaxTokens)
	}
	if g.opts.JSONMode {
		cfg.ResponseMIMEType = "application/json"
	}
	if system != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}

	resp, err := g.cli.Models.GenerateContent(ctx, g.opts.Model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrEmptyResponse
	}
	var text strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}
	if text.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return text.String(), nil
}
