// Package ai wraps the LLM providers used for page summaries behind one interface.
package ai

import (
	"context"
	"errors"
	"fmt"
	"io"

	"linkedin-insights/internal/config"
	"linkedin-insights/internal/telemetry"

	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// ErrNotConfigured is returned when no provider is selected or its key is missing.
var ErrNotConfigured = errors.New("ai provider not configured")

// Generator turns a prompt into model text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Model() string
}

// NewGenerator builds the generator selected by AI_PROVIDER.
func NewGenerator(cfg *config.Config, metrics *telemetry.Metrics) (Generator, error) {
	switch cfg.AIProvider {
	case config.AIGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("%w: GEMINI_API_KEY is not set", ErrNotConfigured)
		}
		return NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiTier, metrics)

	case config.AIOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("%w: OPENAI_API_KEY is not set", ErrNotConfigured)
		}
		llm, err := openai.New(openai.WithToken(cfg.OpenAIAPIKey), openai.WithModel(cfg.OpenAIModel))
		if err != nil {
			return nil, fmt.Errorf("create openai client: %w", err)
		}
		return NewLangChainGenerator(llm, cfg.OpenAIModel, metrics), nil

	case config.AIOllama:
		llm, err := ollama.New(ollama.WithModel(cfg.OllamaModel), ollama.WithServerURL(cfg.OllamaURL))
		if err != nil {
			return nil, fmt.Errorf("create ollama client: %w", err)
		}
		return NewLangChainGenerator(llm, cfg.OllamaModel, metrics), nil

	default:
		return nil, ErrNotConfigured
	}
}

// Close releases the generator's client when it holds one. A nil generator is fine.
func Close(g Generator) error {
	if closer, ok := g.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
