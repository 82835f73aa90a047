package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"linkedin-insights/internal/app"
	"linkedin-insights/internal/config"
	"linkedin-insights/internal/logger"
	"linkedin-insights/internal/queue"
	"linkedin-insights/internal/telemetry"
	"linkedin-insights/middleware"
	"linkedin-insights/routes"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.InitLogger(cfg)

	if err := run(cfg); err != nil {
		logger.Error("Server stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("Server exited")
}

// run serves until SIGINT or SIGTERM. Returning lets deferred cleanup run before main exits.
func run(cfg *config.Config) error {
	if cfg.TracingEnabled {
		shutdownTracer, err := telemetry.InitTracer(context.Background(), cfg.ServiceName, cfg.OTLPEndpoint, 1.0)
		if err != nil {
			logger.Warn("Tracing disabled", "error", err)
		} else {
			defer shutdownTracer()
		}
	}

	a, err := app.Build(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("start services: %w", err)
	}
	defer a.Close()

	// Initialize Gin router
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddlewareWithOrigins(cfg.CORSOrigins))
	router.Use(middleware.RequestSizeLimit(cfg.MaxBodyBytes))
	if cfg.TracingEnabled {
		router.Use(middleware.TracingMiddleware(cfg.ServiceName))
		router.Use(middleware.EnrichTrace())
	}
	router.Use(middleware.MetricsMiddleware(a.Metrics))

	handlers := routes.PageHandlers{
		Pages:         a.Pages,
		Summaries:     a.Summaries,
		Exports:       a.Exports,
		ScrapeTimeout: cfg.ScrapeTimeout,
	}

	if a.Redis != nil {
		router.Use(middleware.RateLimitMiddleware(a.Redis, cfg.RateLimitReqs, time.Duration(cfg.RateLimitWindow)*time.Second))

		redisOpt, err := config.AsynqRedisOpt(cfg)
		if err != nil {
			return fmt.Errorf("invalid Redis settings for task queue: %w", err)
		}
		enqueuer := queue.NewEnqueuer(redisOpt)
		defer enqueuer.Close()
		handlers.Refresh = enqueuer
	} else {
		logger.Warn("Rate limiting and background refresh disabled without Redis")
	}

	if cfg.AdminJWTSecret == "" {
		logger.Warn("ADMIN_JWT_SECRET is not set, admin routes are unauthenticated")
	}

	// Setup routes
	routes.SetupHealthRoutes(router, routes.ServiceInfo{
		Name:       cfg.ServiceName,
		Version:    version,
		AIProvider: cfg.AIProvider,
	}, a.Pages, a.Summaries)
	routes.SetupPageRoutes(router, handlers)
	routes.SetupCacheRoutes(router, cfg.AdminJWTSecret, a.Pages)

	// Create HTTP server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Server starting", "port", cfg.Port, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		return fmt.Errorf("listen on :%s: %w", cfg.Port, err)
	case <-quit:
	}
	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}
	return nil
}
