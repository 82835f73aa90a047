// Package scheduler runs the periodic sweep that queues refreshes of stale pages.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/go-co-op/gocron"

	"linkedin-insights/internal/logger"
	"linkedin-insights/internal/queue"
)

// Scheduler manages scheduled refresh jobs
type Scheduler struct {
	scheduler *gocron.Scheduler
}

// New creates a scheduler running jobs in UTC
func New() *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.TagsUnique()
	s.SingletonModeAll()

	return &Scheduler{scheduler: s}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.scheduler.StartAsync()
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// ScheduleInterval schedules a job to run at regular intervals
func (s *Scheduler) ScheduleInterval(tag string, every time.Duration, job func() error) error {
	_, err := s.scheduler.Every(every).Tag(tag).Do(func() {
		if err := job(); err != nil {
			logger.Error("Scheduled job failed", "tag", tag, "error", err)
		}
	})
	return err
}

// StaleLister is implemented by services.PageService.
type StaleLister interface {
	StalePageIDs(ctx context.Context, before time.Time, limit int) ([]string, error)
}

// RefreshEnqueuer is implemented by queue.Enqueuer.
type RefreshEnqueuer interface {
	EnqueueRefresh(ctx context.Context, pageID, queueName string) (string, error)
}

// StaleRefreshJob queues a low-priority refresh for up to batch pages not
// updated within staleAfter. Pages already queued are skipped.
func StaleRefreshJob(pages StaleLister, enq RefreshEnqueuer, staleAfter time.Duration, batch int) func() error {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		ids, err := pages.StalePageIDs(ctx, time.Now().Add(-staleAfter), batch)
		if err != nil {
			return err
		}

		queued := 0
		for _, id := range ids {
			_, err := enq.EnqueueRefresh(ctx, id, queue.QueueLow)
			if errors.Is(err, queue.ErrAlreadyQueued) {
				continue
			}
			if err != nil {
				return err
			}
			queued++
		}

		logger.Info("Stale page sweep", "stale", len(ids), "queued", queued)
		return nil
	}
}
