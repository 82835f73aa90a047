package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"linkedin-insights/internal/app"
	"linkedin-insights/internal/config"
	"linkedin-insights/internal/logger"
	"linkedin-insights/internal/queue"
	"linkedin-insights/internal/scheduler"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.InitLogger(cfg)

	if err := run(cfg); err != nil {
		logger.Error("Worker stopped", "error", err)
		os.Exit(1)
	}
}

// run processes tasks until SIGINT or SIGTERM so deferred cleanup always runs.
func run(cfg *config.Config) error {
	a, err := app.Build(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("start services: %w", err)
	}
	defer a.Close()

	// Redis options for Asynq
	redisOpt, err := config.AsynqRedisOpt(cfg)
	if err != nil {
		return fmt.Errorf("invalid Redis settings: %w", err)
	}

	// Create Asynq server
	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 4, // vendor APIs and the browser do not take much parallelism
			Queues: map[string]int{
				queue.QueueDefault: 3,
				queue.QueueLow:     1,
			},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("Task failed", "type", task.Type(), "payload", string(task.Payload()), "error", err)
			}),
		},
	)

	// Create mux and register handlers
	mux := asynq.NewServeMux()
	queue.NewTaskProcessor(a.Pages).Register(mux)

	if cfg.RefreshInterval > 0 {
		enqueuer := queue.NewEnqueuer(redisOpt)
		defer enqueuer.Close()

		sched := scheduler.New()
		job := scheduler.StaleRefreshJob(a.Pages, enqueuer, cfg.StaleAfter, cfg.RefreshBatch)
		if err := sched.ScheduleInterval("stale-refresh", cfg.RefreshInterval, job); err != nil {
			return fmt.Errorf("schedule stale refresh: %w", err)
		}
		sched.Start()
		defer sched.Stop()

		logger.Info("Stale refresh scheduled",
			"every", cfg.RefreshInterval.String(),
			"stale_after", cfg.StaleAfter.String(),
			"batch", cfg.RefreshBatch,
		)
	}

	if err := server.Start(mux); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}
	logger.Info("Worker started", "redis", redisOpt.Addr, "queues", []string{queue.QueueDefault, queue.QueueLow})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down worker...")
	server.Shutdown()
	return nil
}
