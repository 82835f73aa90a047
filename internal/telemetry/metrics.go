package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all application metrics. A nil *Metrics records nothing.
type Metrics struct {
	RequestCounter      metric.Int64Counter
	RequestDuration     metric.Float64Histogram
	ScrapeCounter       metric.Int64Counter
	ScrapeDuration      metric.Float64Histogram
	CacheLookups        metric.Int64Counter
	AIRequests          metric.Int64Counter
	TokensUsed          metric.Int64Counter
	CircuitBreakerState metric.Int64Counter
}

// InitMetrics initializes all application metrics
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter("linkedin-insights")

	requestCounter, err := meter.Int64Counter(
		"http.requests.total",
		metric.WithDescription("Total HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"http.request.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	scrapeCounter, err := meter.Int64Counter(
		"scraper.scrapes.total",
		metric.WithDescription("Company page scrapes by method and outcome"),
	)
	if err != nil {
		return nil, err
	}

	scrapeDuration, err := meter.Float64Histogram(
		"scraper.scrape.duration",
		metric.WithDescription("Company page scrape duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	cacheLookups, err := meter.Int64Counter(
		"cache.lookups.total",
		metric.WithDescription("Cache lookups by result"),
	)
	if err != nil {
		return nil, err
	}

	aiRequests, err := meter.Int64Counter(
		"ai.requests.total",
		metric.WithDescription("AI summary requests by provider and outcome"),
	)
	if err != nil {
		return nil, err
	}

	tokensUsed, err := meter.Int64Counter(
		"ai.tokens.used",
		metric.WithDescription("Total LLM tokens used"),
	)
	if err != nil {
		return nil, err
	}

	circuitBreakerState, err := meter.Int64Counter(
		"circuit_breaker.state_changes",
		metric.WithDescription("Circuit breaker state changes"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		RequestCounter:      requestCounter,
		RequestDuration:     requestDuration,
		ScrapeCounter:       scrapeCounter,
		ScrapeDuration:      scrapeDuration,
		CacheLookups:        cacheLookups,
		AIRequests:          aiRequests,
		TokensUsed:          tokensUsed,
		CircuitBreakerState: circuitBreakerState,
	}, nil
}

// RecordRequest records HTTP request metrics
func (m *Metrics) RecordRequest(ctx context.Context, method, path, status string, duration float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.path", path),
		attribute.String("http.status", status),
	)

	m.RequestCounter.Add(ctx, 1, attrs)
	m.RequestDuration.Record(ctx, duration, attrs)
}

func (m *Metrics) RecordScrape(ctx context.Context, method string, success bool, duration float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("scraper.method", method),
		attribute.Bool("scraper.success", success),
	)

	m.ScrapeCounter.Add(ctx, 1, attrs)
	m.ScrapeDuration.Record(ctx, duration, attrs)
}

func (m *Metrics) RecordCacheLookup(ctx context.Context, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.Add(ctx, 1, metric.WithAttributes(attribute.String("cache.result", result)))
}

func (m *Metrics) RecordAIRequest(ctx context.Context, model, outcome string) {
	if m == nil {
		return
	}
	m.AIRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("ai.model", model),
		attribute.String("ai.outcome", outcome),
	))
}

// RecordTokensUsed records LLM token usage
func (m *Metrics) RecordTokensUsed(ctx context.Context, tokens int64, model string) {
	if m == nil {
		return
	}
	m.TokensUsed.Add(ctx, tokens, metric.WithAttributes(attribute.String("ai.model", model)))
}

// RecordCircuitBreakerState records circuit breaker state changes
func (m *Metrics) RecordCircuitBreakerState(ctx context.Context, service, state string) {
	if m == nil {
		return
	}
	m.CircuitBreakerState.Add(ctx, 1, metric.WithAttributes(
		attribute.String("service", service),
		attribute.String("state", state),
	))
}
