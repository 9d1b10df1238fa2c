package completion

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// GroqBaseURL is Groq's OpenAI-compatible endpoint
const GroqBaseURL = "https://api.groq.com/openai/v1"

// OpenAIOptions configure an OpenAI-compatible chat client
type OpenAIOptions struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float32
	MaxTokens   int
	JSONMode    bool
	Provider    string // reported by Name; defaults to "openai"
}

// OpenAIClient talks to the Chat Completions API. Groq is served by the same
// client with GroqBaseURL.
type OpenAIClient struct {
	client *openai.Client
	opts   OpenAIOptions
}

// NewOpenAIClient creates a client. The API key is required.
func NewOpenAIClient(opts OpenAIOptions) (*OpenAIClient, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("%s API key is missing", providerName(opts.Provider))
	}
	if opts.Model == "" {
		return nil, fmt.Errorf("%s model is not set", providerName(opts.Provider))
	}
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	}
	return &OpenAIClient{client: openai.NewClientWithConfig(cfg), opts: opts}, nil
}

// NewGroqClient creates an OpenAI-compatible client pointed at Groq
func NewGroqClient(opts OpenAIOptions) (*OpenAIClient, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = GroqBaseURL
	}
	opts.Provider = "groq"
	return NewOpenAIClient(opts)
}

func providerName(p string) string {
	if p == "" {
		return "openai"
	}
	return p
}

// Name implements Completer
func (o *OpenAIClient) Name() string {
	return providerName(o.opts.Provider) + ":" + o.opts.Model
}

// Complete implements Completer
func (o *OpenAIClient) Complete(ctx context.Context, messages []Message) (string, error) {
	if err := validate(messages); err != nil {
		return "", err
	}

	req := openai.ChatCompletionRequest{
		Model:       o.opts.Model,
		Messages:    make([]openai.ChatCompletionMessage, 0, len(messages)),
		Temperature: o.opts.Temperature,
		MaxTokens:   o.opts.MaxTokens,
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    strings.ToLower(m.Role),
			Content: m.Content,
		})
	}
	if o.opts.JSONMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", statusError(providerName(o.opts.Provider), apiErr.HTTPStatusCode, apiErr.Message)
		}
		var reqErr *openai.RequestError
		if errors.As(err, &reqErr) {
			return "", statusError(providerName(o.opts.Provider), reqErr.HTTPStatusCode, string(reqErr.Body))
		}
		return "", fmt.Errorf("%s request failed: %w", providerName(o.opts.Provider), err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}
