package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"linkedin-insights/internal/logger"
	"linkedin-insights/models"
	"linkedin-insights/services"
)

const (
	TaskRefreshPage = "page:refresh"

	// QueueDefault carries on-demand refreshes, QueueLow the scheduled stale sweep.
	QueueDefault = "default"
	QueueLow     = "low"
)

// ErrAlreadyQueued is returned when a refresh of the same page is still pending.
var ErrAlreadyQueued = errors.New("refresh already queued")

type RefreshPagePayload struct {
	PageID string `json:"page_id"`
}

// NewRefreshPageTask builds a refresh task. Duplicate tasks for one page are
// rejected for the uniqueness window.
func NewRefreshPageTask(pageID, queueName string) (*asynq.Task, error) {
	payload, err := json.Marshal(RefreshPagePayload{PageID: pageID})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskRefreshPage,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(5*time.Minute),
		asynq.Unique(10*time.Minute),
		asynq.Queue(queueName),
	), nil
}

// Enqueuer submits refresh tasks to the worker.
type Enqueuer struct {
	client *asynq.Client
}

func NewEnqueuer(opt asynq.RedisConnOpt) *Enqueuer {
	return &Enqueuer{client: asynq.NewClient(opt)}
}

// EnqueueRefresh queues a refresh of pageID and returns the task id.
func (e *Enqueuer) EnqueueRefresh(ctx context.Context, pageID, queueName string) (string, error) {
	task, err := NewRefreshPageTask(pageID, queueName)
	if err != nil {
		return "", err
	}

	info, err := e.client.EnqueueContext(ctx, task)
	if errors.Is(err, asynq.ErrDuplicateTask) {
		return "", ErrAlreadyQueued
	}
	if err != nil {
		return "", fmt.Errorf("enqueue %s for %s: %w", TaskRefreshPage, pageID, err)
	}
	return info.ID, nil
}

func (e *Enqueuer) Close() error {
	return e.client.Close()
}

// Refresher is implemented by services.PageService.
type Refresher interface {
	Refresh(ctx context.Context, pageID string) (*models.PageDetail, error)
}

// Task handlers
type TaskProcessor struct {
	pages Refresher
}

func NewTaskProcessor(pages Refresher) *TaskProcessor {
	return &TaskProcessor{pages: pages}
}

// Register wires the processor's handlers into mux.
func (p *TaskProcessor) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskRefreshPage, p.ProcessRefreshPage)
}

func (p *TaskProcessor) ProcessRefreshPage(ctx context.Context, t *asynq.Task) error {
	var payload RefreshPagePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %w", asynq.SkipRetry)
	}

	detail, err := p.pages.Refresh(ctx, payload.PageID)
	switch {
	case errors.Is(err, services.ErrInvalidPageID), errors.Is(err, services.ErrPageNotFound):
		// Retrying cannot make a missing page appear
		logger.Warn("Dropping refresh task", "page_id", payload.PageID, "error", err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	case errors.Is(err, services.ErrStaleServed):
		logger.Warn("Refresh failed, stored page kept", "page_id", payload.PageID, "error", err)
		return err
	case err != nil:
		return err
	}

	logger.Info("Page refreshed",
		"page_id", detail.PageID,
		"posts", len(detail.Posts),
		"employees", len(detail.Employees),
	)
	return nil
}
