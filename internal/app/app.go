// Package app builds the services shared by the API server, the worker and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"linkedin-insights/internal/ai"
	"linkedin-insights/internal/cache"
	"linkedin-insights/internal/config"
	"linkedin-insights/internal/database"
	"linkedin-insights/internal/events"
	"linkedin-insights/internal/logger"
	"linkedin-insights/internal/scraper"
	"linkedin-insights/internal/telemetry"
	"linkedin-insights/services"
)

type App struct {
	Config    *config.Config
	Pool      *pgxpool.Pool
	Redis     *redis.Client // nil when Redis is unreachable
	Metrics   *telemetry.Metrics
	Publisher events.Publisher
	Generator ai.Generator // nil when no AI provider is configured

	Pages     *services.PageService
	Summaries *services.SummaryService
	Exports   *services.ExportService
}

// Build connects Postgres, applies the schema and wires the services. A Redis
// outage downgrades the cache to process memory instead of failing.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	metrics, err := telemetry.InitMetrics()
	if err != nil {
		logger.Warn("Metrics disabled", "error", err)
		metrics = nil
	}

	pool, err := config.ConnectPostgres(cfg)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	a := &App{Config: cfg, Pool: pool, Metrics: metrics}

	var pageCache services.PageCache
	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		logger.Warn("Redis unavailable, using in-memory cache", "error", err)
		pageCache = cache.NewMemoryCache(cfg.CacheTTL)
	} else {
		a.Redis = rdb
		pageCache = cache.NewRedisCache(rdb, cfg.CachePrefix, cfg.CacheTTL)
	}

	s, err := scraper.New(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	generator, err := ai.NewGenerator(cfg, metrics)
	switch {
	case errors.Is(err, ai.ErrNotConfigured):
		logger.Warn("AI summaries unavailable", "provider", cfg.AIProvider, "reason", err)
		generator = nil
	case err != nil:
		a.Close()
		return nil, fmt.Errorf("create ai generator: %w", err)
	}

	a.Generator = generator
	a.Publisher = events.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	a.Pages = services.NewPageService(database.NewStore(pool), pageCache, s, a.Publisher, metrics, scraper.Options{
		MaxPosts:     cfg.MaxPosts,
		MaxEmployees: cfg.MaxEmployees,
		Timeout:      cfg.ScrapeTimeout,
	})
	a.Summaries = services.NewSummaryService(a.Pages, generator, cfg.AIFallbackSummary)
	a.Exports = services.NewExportService(a.Pages)

	logger.Info("Services ready",
		"scraping_method", s.Name(),
		"cache", pageCache.Backend(),
		"ai_model", a.Summaries.Model(),
		"kafka", len(cfg.KafkaBrokers) > 0,
	)
	return a, nil
}

// Close releases every connection Build opened.
func (a *App) Close() {
	if err := ai.Close(a.Generator); err != nil {
		logger.Warn("Error closing AI client", "error", err)
	}
	if a.Publisher != nil {
		if err := a.Publisher.Close(); err != nil {
			logger.Warn("Error closing event publisher", "error", err)
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
	if a.Pool != nil {
		a.Pool.Close()
	}
}
