package completion

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/smith-xyz/topobench/pkg/config"
)

// Providers lists the supported provider names
var Providers = []string{"openai", "groq", "anthropic", "gemini", "oracle", "fake"}

// APIKeyEnv maps providers to the environment variable holding their key
var APIKeyEnv = map[string]string{
	"openai":    "OPENAI_API_KEY",
	"groq":      "GROQ_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
	"gemini":    "GEMINI_API_KEY",
}

// New builds the configured provider and wraps it so that every attempt is
// paced and bounded by the timeout, with transient failures retried. The
// "oracle" provider answers with the statically extracted call graph and the
// "fake" provider answers "{}" to everything.
func New(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (Completer, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	apiKey := os.Getenv(APIKeyEnv[provider])

	var (
		base Completer
		err  error
	)
	switch provider {
	case "openai", "groq":
		opts := OpenAIOptions{
			APIKey:      apiKey,
			Model:       cfg.Model,
			BaseURL:     cfg.BaseURL,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			JSONMode:    cfg.JSONMode,
			Provider:    provider,
		}
		if provider == "groq" {
			base, err = NewGroqClient(opts)
		} else {
			base, err = NewOpenAIClient(opts)
		}
	case "anthropic":
		base, err = NewAnthropicClient(AnthropicOptions{
			APIKey:      apiKey,
			Model:       cfg.Model,
			BaseURL:     cfg.BaseURL,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
		})
	case "gemini":
		base, err = NewGeminiClient(ctx, GeminiOptions{
			APIKey:      apiKey,
			Model:       cfg.Model,
			BaseURL:     cfg.BaseURL,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			JSONMode:    cfg.JSONMode,
		})
	case "oracle":
		base = NewOracle()
	case "fake":
		s := NewScripted("{}")
		s.Repeat = true
		base = s
	default:
		return nil, fmt.Errorf("unsupported provider %q (want one of %s)", cfg.Provider, strings.Join(Providers, ", "))
	}
	if err != nil {
		return nil, err
	}

	logger.Debug("completion provider ready", "provider", base.Name(), "rps", cfg.RPS, "timeout", cfg.Timeout.Duration)

	var c Completer = NewWithTimeout(base, cfg.Timeout.Duration)
	c = NewRateLimited(c, cfg.RPS, cfg.Burst)
	return NewRetrying(c, 3, 0, logger), nil
}
