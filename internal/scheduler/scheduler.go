// Package scheduler enqueues the recurring scrape job that feeds the
// pipeline.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/newsforge/pipeline/internal/logger"
	"github.com/newsforge/pipeline/internal/queue"
)

// Enqueuer pushes jobs onto named queues.
type Enqueuer interface {
	Enqueue(ctx context.Context, queueName string, payload any) (*queue.Job, error)
}

// Scheduler fires a full scrape of all active sources on a fixed
// interval. A run that is still in flight when the next tick arrives is
// not a concern here: scrape jobs are idempotent through the dedup layer.
type Scheduler struct {
	cron     *cron.Cron
	queues   Enqueuer
	interval time.Duration
	logger   logger.Logger
}

func New(queues Enqueuer, interval time.Duration, log logger.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		queues:   queues,
		interval: interval,
		logger:   log,
	}
}

// Start registers the recurring scrape and launches the cron loop. The
// context bounds the enqueue calls made from cron ticks.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.interval <= 0 {
		return fmt.Errorf("scrape interval must be positive, got %s", s.interval)
	}

	spec := fmt.Sprintf("@every %s", s.interval)

	if _, err := s.cron.AddFunc(spec, func() { s.TriggerScrape(ctx) }); err != nil {
		return fmt.Errorf("register scrape schedule: %w", err)
	}

	s.cron.Start()
	s.logger.Info("scrape scheduler started", logger.Duration("interval", s.interval))

	return nil
}

// Stop halts the cron loop and waits for any in-flight trigger to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scrape scheduler stopped")
}

// TriggerScrape enqueues one scrape covering every active source.
func (s *Scheduler) TriggerScrape(ctx context.Context) {
	job, err := s.queues.Enqueue(ctx, queue.QueueScrape, queue.ScrapePayload{})
	if err != nil {
		s.logger.Error("failed to enqueue scheduled scrape", logger.Error(err))
		return
	}

	s.logger.Info("scheduled scrape enqueued", logger.String("job_id", job.ID))
}
