package ai

import (
	"context"
	"fmt"
	"strings"

	"linkedin-insights/internal/telemetry"

	"github.com/tmc/langchaingo/llms"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

type caller interface {
	Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error)
}

// LangChainGenerator drives OpenAI or Ollama models through langchaingo in JSON mode.
type LangChainGenerator struct {
	llm     caller
	model   string
	metrics *telemetry.Metrics
}

func NewLangChainGenerator(llm caller, model string, metrics *telemetry.Metrics) *LangChainGenerator {
	return &LangChainGenerator{llm: llm, model: model, metrics: metrics}
}

func (g *LangChainGenerator) Model() string { return g.model }

func (g *LangChainGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, span := otel.Tracer("ai-client").Start(ctx, "llm.generate")
	defer span.End()
	span.SetAttributes(attribute.String("ai.model", g.model))

	text, err := g.llm.Call(ctx, prompt, llms.WithJSONMode(), llms.WithTemperature(0.4))
	if err != nil {
		span.RecordError(err)
		g.metrics.RecordAIRequest(ctx, g.model, "error")
		return "", fmt.Errorf("%s generate: %w", g.model, err)
	}

	g.metrics.RecordAIRequest(ctx, g.model, "ok")
	g.metrics.RecordTokensUsed(ctx, int64(estimateTokens(prompt)+estimateTokens(text)), g.model)
	return strings.TrimSpace(text), nil
}
