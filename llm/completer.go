// Package llm provides completion clients for the hosted language models
// digests are built with.
package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"digestbot/config"
)

// Completer sends one prompt and returns the model's text answer.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// New builds the completer selected by cfg.Provider.
func New(cfg config.LLMConfig, logger *zap.Logger) (Completer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("missing API key for %s", cfg.Provider)
	}
	logger = logger.With(zap.String("component", "llm"), zap.String("provider", cfg.Provider), zap.String("model", cfg.Model))

	switch cfg.Provider {
	case "cohere":
		return NewCohere(cfg.APIKey, cfg.Model, cfg.Timeout, logger), nil
	case "openai":
		return NewOpenAI(cfg.Endpoint, cfg.APIKey, cfg.Model, cfg.Timeout, logger), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
