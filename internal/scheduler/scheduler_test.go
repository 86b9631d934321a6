//nolint:testpackage // Trigger path is exercised without waiting on cron ticks
package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/newsforge/pipeline/internal/logger"
	"github.com/newsforge/pipeline/internal/queue"
)

type mockEnqueuer struct {
	calls []string
	err   error
}

func (m *mockEnqueuer) Enqueue(_ context.Context, queueName string, _ any) (*queue.Job, error) {
	m.calls = append(m.calls, queueName)
	if m.err != nil {
		return nil, m.err
	}
	return &queue.Job{ID: "job-1", Queue: queueName}, nil
}

func TestTriggerScrape_EnqueuesFullScrape(t *testing.T) {
	enq := &mockEnqueuer{}
	s := New(enq, 5*time.Minute, logger.NewNopLogger())

	s.TriggerScrape(context.Background())

	if len(enq.calls) != 1 || enq.calls[0] != queue.QueueScrape {
		t.Errorf("enqueue calls = %v, want one scrape", enq.calls)
	}
}

func TestTriggerScrape_EnqueueFailureIsLoggedNotFatal(t *testing.T) {
	enq := &mockEnqueuer{err: errors.New("redis down")}
	s := New(enq, 5*time.Minute, logger.NewNopLogger())

	// Must not panic; the next tick will try again.
	s.TriggerScrape(context.Background())
}

func TestScheduler_StartStop(t *testing.T) {
	enq := &mockEnqueuer{}
	s := New(enq, time.Hour, logger.NewNopLogger())

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	s.Stop()
}

func TestScheduler_InvalidIntervalRejected(t *testing.T) {
	enq := &mockEnqueuer{}
	s := New(enq, 0, logger.NewNopLogger())

	if err := s.Start(context.Background()); err == nil {
		t.Error("expected error for zero interval")
		s.Stop()
	}
}
