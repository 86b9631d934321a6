package queue

import (
	"context"
	"sync"
	"time"

	"github.com/newsforge/pipeline/internal/logger"
	"github.com/newsforge/pipeline/internal/metrics"
)

// HandlerFunc processes one job. A returned error marks the job failed and
// hands it to the broker's retry path.
type HandlerFunc func(ctx context.Context, job *Job) error

const (
	// defaultPopTimeout bounds each blocking pop so workers notice Stop.
	defaultPopTimeout = 2 * time.Second
)

// WorkerPool runs a fixed number of workers per registered queue. Jobs within
// a queue execute concurrently across its workers; queues never block each
// other.
type WorkerPool struct {
	fabric      *Fabric
	logger      logger.Logger
	metrics     *metrics.Metrics
	concurrency int
	popTimeout  time.Duration

	handlers map[string]HandlerFunc

	stopChan chan struct{}
	wg       sync.WaitGroup
	started  bool
	mu       sync.Mutex
}

// NewWorkerPool creates a worker pool over the fabric. concurrency is the
// worker count per queue; metrics may be nil.
func NewWorkerPool(fabric *Fabric, concurrency int, m *metrics.Metrics, log logger.Logger) *WorkerPool {
	if concurrency < 1 {
		concurrency = 1
	}
	return &WorkerPool{
		fabric:      fabric,
		logger:      log,
		metrics:     m,
		concurrency: concurrency,
		popTimeout:  defaultPopTimeout,
		handlers:    make(map[string]HandlerFunc),
		stopChan:    make(chan struct{}),
	}
}

// Register binds a handler to a queue. Must be called before Start.
func (p *WorkerPool) Register(queue string, handler HandlerFunc) {
	p.handlers[queue] = handler
}

// Start launches the worker goroutines. Calling Start twice is a no-op.
func (p *WorkerPool) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	for queue, handler := range p.handlers {
		for i := 0; i < p.concurrency; i++ {
			p.wg.Add(1)
			go p.run(ctx, queue, handler)
		}
	}

	p.logger.Info("worker pool started",
		logger.Int("queues", len(p.handlers)),
		logger.Int("concurrency", p.concurrency),
	)
}

// Stop gracefully stops the pool, waiting for in-flight jobs to finish.
// A job that is already running is not interruptible.
func (p *WorkerPool) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()

	close(p.stopChan)
	p.wg.Wait()
	p.logger.Info("worker pool stopped")
}

func (p *WorkerPool) run(ctx context.Context, queue string, handler HandlerFunc) {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopChan:
			return
		case <-ctx.Done():
			return
		default:
		}

		job, err := p.fabric.pop(ctx, queue, p.popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Error("failed to pop job",
				logger.String("queue", queue),
				logger.Error(err),
			)
			continue
		}
		if job == nil {
			continue
		}

		p.process(ctx, job, handler)
	}
}

// process runs the handler and applies the broker outcome policy: completed
// jobs are archived; failed jobs are archived and requeued while attempts
// remain. Handler errors are terminal for the attempt, never swallowed
// silently.
func (p *WorkerPool) process(ctx context.Context, job *Job, handler HandlerFunc) {
	start := time.Now()
	err := handler(ctx, job)
	elapsed := time.Since(start)

	if err == nil {
		p.fabric.recordCompleted(ctx, job)
		if p.metrics != nil {
			p.metrics.ObserveJob(job.Queue, "completed", elapsed)
		}
		p.logger.Debug("job completed",
			logger.String("queue", job.Queue),
			logger.String("job_id", job.ID),
			logger.Duration("elapsed", elapsed),
		)
		return
	}

	job.Attempts++
	p.fabric.recordFailed(ctx, job)
	if p.metrics != nil {
		p.metrics.ObserveJob(job.Queue, "failed", elapsed)
	}

	requeued := p.fabric.retry(ctx, job)
	p.logger.Error("job failed",
		logger.String("queue", job.Queue),
		logger.String("job_id", job.ID),
		logger.Int("attempts", job.Attempts),
		logger.Bool("requeued", requeued),
		logger.Error(err),
	)
}
