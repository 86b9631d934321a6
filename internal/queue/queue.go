// Package queue implements the Redis-backed job queue fabric: five named
// queues, each with an independent worker pool pulling jobs concurrently.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/newsforge/pipeline/internal/logger"
)

// Queue names. One queue per pipeline stage.
const (
	QueueScrape      = "scrape"
	QueueRewrite     = "rewrite"
	QueuePlagiarism  = "plagiarism-check"
	QueueModerate    = "moderate"
	QueuePublish     = "publish"
	QueueFactCheck   = "fact-check"
	QueueSocialMedia = "social-media"
	QueueImage       = "image-generation"
)

// AllQueues returns every queue name in pipeline order.
func AllQueues() []string {
	return []string{
		QueueScrape, QueueRewrite, QueuePlagiarism,
		QueueModerate, QueuePublish, QueueFactCheck,
		QueueSocialMedia, QueueImage,
	}
}

const (
	// completedRetention is how many completed jobs each queue keeps.
	completedRetention = 10
	// failedRetention is how many failed jobs each queue keeps.
	failedRetention = 5
)

// Job is a single unit of queued work.
type Job struct {
	ID         string          `json:"id"`
	Queue      string          `json:"queue"`
	Payload    json.RawMessage `json:"payload"`
	Attempts   int             `json:"attempts"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// ScrapePayload is the payload for scrape jobs. An empty SourceID means
// "all active sources".
type ScrapePayload struct {
	SourceID string `json:"source_id,omitempty"`
}

// ArticlePayload is the payload for every per-article stage job.
type ArticlePayload struct {
	ArticleID string `json:"article_id"`
}

// Fabric is the queue broker handle. It is constructed once at process start
// and passed by reference to anything that enqueues jobs; there are no
// package-level singletons.
type Fabric struct {
	redis       redis.UniversalClient
	logger      logger.Logger
	maxAttempts int
}

// NewFabric creates a queue fabric over the given Redis client. maxAttempts
// bounds broker-level retries of failed jobs; values below one are treated
// as one (no retry).
func NewFabric(client redis.UniversalClient, maxAttempts int, log logger.Logger) *Fabric {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Fabric{
		redis:       client,
		logger:      log,
		maxAttempts: maxAttempts,
	}
}

func pendingKey(queue string) string   { return "queue:" + queue + ":pending" }
func completedKey(queue string) string { return "queue:" + queue + ":completed" }
func failedKey(queue string) string    { return "queue:" + queue + ":failed" }

// Enqueue adds a job with the given payload to a queue.
func (f *Fabric) Enqueue(ctx context.Context, queue string, payload any) (*Job, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	job := &Job{
		ID:         uuid.New().String(),
		Queue:      queue,
		Payload:    raw,
		EnqueuedAt: time.Now().UTC(),
	}

	if err := f.push(ctx, job); err != nil {
		return nil, err
	}

	f.logger.Debug("job enqueued",
		logger.String("queue", queue),
		logger.String("job_id", job.ID),
	)
	return job, nil
}

func (f *Fabric) push(ctx context.Context, job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := f.redis.LPush(ctx, pendingKey(job.Queue), data).Err(); err != nil {
		return fmt.Errorf("enqueue job: %w", err)
	}
	return nil
}

// pop blocks up to timeout for the next job on a queue. It returns nil when
// the timeout elapses with no work.
func (f *Fabric) pop(ctx context.Context, queue string, timeout time.Duration) (*Job, error) {
	result, err := f.redis.BRPop(ctx, timeout, pendingKey(queue)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("pop job: %w", err)
	}

	// BRPOP returns [key, value].
	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return nil, fmt.Errorf("unmarshal job: %w", err)
	}
	return &job, nil
}

// recordCompleted archives a finished job, trimming the archive to the most
// recent entries per the broker retention policy.
func (f *Fabric) recordCompleted(ctx context.Context, job *Job) {
	f.record(ctx, completedKey(job.Queue), job, completedRetention)
}

// recordFailed archives a failed job attempt.
func (f *Fabric) recordFailed(ctx context.Context, job *Job) {
	f.record(ctx, failedKey(job.Queue), job, failedRetention)
}

func (f *Fabric) record(ctx context.Context, key string, job *Job, retention int64) {
	data, err := json.Marshal(job)
	if err != nil {
		f.logger.Error("failed to marshal job for archive", logger.Error(err))
		return
	}

	pipe := f.redis.TxPipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, retention-1)
	if _, err := pipe.Exec(ctx); err != nil {
		f.logger.Error("failed to archive job",
			logger.String("key", key),
			logger.Error(err),
		)
	}
}

// retry re-enqueues a failed job when attempts remain. It reports whether
// the job was requeued.
func (f *Fabric) retry(ctx context.Context, job *Job) bool {
	if job.Attempts >= f.maxAttempts {
		return false
	}
	if err := f.push(ctx, job); err != nil {
		f.logger.Error("failed to requeue job",
			logger.String("queue", job.Queue),
			logger.String("job_id", job.ID),
			logger.Error(err),
		)
		return false
	}
	return true
}

// Depth returns the number of pending jobs on a queue.
func (f *Fabric) Depth(ctx context.Context, queue string) (int64, error) {
	n, err := f.redis.LLen(ctx, pendingKey(queue)).Result()
	if err != nil {
		return 0, fmt.Errorf("queue depth: %w", err)
	}
	return n, nil
}

// Stats returns pending/completed/failed counts for every queue.
func (f *Fabric) Stats(ctx context.Context) (map[string]QueueStats, error) {
	stats := make(map[string]QueueStats, len(AllQueues()))
	for _, queue := range AllQueues() {
		pending, err := f.redis.LLen(ctx, pendingKey(queue)).Result()
		if err != nil {
			return nil, fmt.Errorf("stats for %s: %w", queue, err)
		}
		completed, err := f.redis.LLen(ctx, completedKey(queue)).Result()
		if err != nil {
			return nil, fmt.Errorf("stats for %s: %w", queue, err)
		}
		failed, err := f.redis.LLen(ctx, failedKey(queue)).Result()
		if err != nil {
			return nil, fmt.Errorf("stats for %s: %w", queue, err)
		}
		stats[queue] = QueueStats{Pending: pending, Completed: completed, Failed: failed}
	}
	return stats, nil
}

// QueueStats holds per-queue counters for monitoring.
type QueueStats struct {
	Pending   int64 `json:"pending"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}
