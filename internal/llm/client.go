// Package llm provides wrapper interfaces and implementations for LLM interactions.
package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/easeaico/context-agent/internal/config"
)

// Completer is the model boundary: one prompt in, one completion out.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Embedder provides text embedding capability.
type Embedder interface {
	// Embed generates an embedding vector for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)
}

// NewCompleter builds the completer selected by cfg.LLMProvider.
func NewCompleter(ctx context.Context, cfg config.Config, logger *zap.Logger) (Completer, error) {
	switch cfg.LLMProvider {
	case "openai":
		return NewOpenAIClient(OpenAIConfig{
			BaseURL: cfg.ModelURL + "/v1",
			Model:   cfg.Model,
			Logger:  logger,
		}), nil
	case "gemini":
		return NewGeminiClient(ctx, cfg.APIKey, cfg.Model, "")
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.LLMProvider)
	}
}

// NewEmbedder builds the embedder selected by cfg.EmbedProvider.
func NewEmbedder(ctx context.Context, cfg config.Config, logger *zap.Logger) (Embedder, error) {
	switch cfg.EmbedProvider {
	case "local":
		return NewHashEmbedder(0), nil
	case "openai":
		return NewOpenAIClient(OpenAIConfig{
			BaseURL:    cfg.ModelURL + "/v1",
			EmbedModel: cfg.EmbedModel,
			Logger:     logger,
		}), nil
	case "gemini":
		return NewGeminiClient(ctx, cfg.APIKey, "", cfg.EmbedModel)
	default:
		return nil, fmt.Errorf("unknown embed provider: %s", cfg.EmbedProvider)
	}
}
