// Package pipeline implements the stage handlers that move an article from
// ingestion to publication, plus the registration glue binding them to
// queues.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/newsforge/pipeline/internal/ai"
	"github.com/newsforge/pipeline/internal/domain"
	"github.com/newsforge/pipeline/internal/fetch"
	"github.com/newsforge/pipeline/internal/logger"
	"github.com/newsforge/pipeline/internal/metrics"
	"github.com/newsforge/pipeline/internal/queue"
)

// ArticleStore is the article persistence surface the stages need.
type ArticleStore interface {
	Create(ctx context.Context, article *domain.Article) error
	GetByID(ctx context.Context, id string) (*domain.Article, error)
	Update(ctx context.Context, article *domain.Article) error
}

// SourceStore is the source persistence surface the scrape stage needs.
type SourceStore interface {
	GetByID(ctx context.Context, id string) (*domain.Source, error)
	ListActive(ctx context.Context) ([]domain.Source, error)
	TouchLastScraped(ctx context.Context, id string, at time.Time) error
}

// JobLogStore records stage execution audit trails.
type JobLogStore interface {
	Insert(ctx context.Context, log *domain.JobLog) error
	Finish(ctx context.Context, log *domain.JobLog) error
}

// Enqueuer pushes follow-up jobs onto named queues.
type Enqueuer interface {
	Enqueue(ctx context.Context, queueName string, payload any) (*queue.Job, error)
}

// CacheInvalidator clears read-side caches after publication.
type CacheInvalidator interface {
	InvalidateArticles(ctx context.Context) error
}

// Deduplicator answers whether a content fingerprint was already ingested.
type Deduplicator interface {
	Seen(ctx context.Context, hash string) (bool, error)
}

// Deps bundles everything the stage handlers depend on.
type Deps struct {
	Articles    ArticleStore
	Sources     SourceStore
	JobLogs     JobLogStore
	Fetcher     fetch.Fetcher
	Dedup       Deduplicator
	Transformer ai.ContentTransformer
	Plagiarism  ai.PlagiarismChecker
	Moderation  ai.ModerationChecker
	FactChecker ai.FactChecker
	Social      ai.SocialComposer
	Images      ai.ImageGenerator
	Queues      Enqueuer
	Cache       CacheInvalidator
	Metrics     *metrics.Metrics
	Logger      logger.Logger

	// AutoAdvance chains each completed stage into the next queue. When
	// false every stage must be triggered explicitly.
	AutoAdvance bool
}

// Stages holds the stage handlers. Construct with NewStages and bind to a
// worker pool with Register.
type Stages struct {
	deps Deps
	now  func() time.Time
}

func NewStages(deps Deps) *Stages {
	return &Stages{
		deps: deps,
		now:  time.Now,
	}
}

// Register binds every stage handler to its queue on the pool.
func (s *Stages) Register(pool *queue.WorkerPool) {
	pool.Register(queue.QueueScrape, s.HandleScrape)
	pool.Register(queue.QueueRewrite, s.HandleRewrite)
	pool.Register(queue.QueuePlagiarism, s.HandlePlagiarism)
	pool.Register(queue.QueueModerate, s.HandleModerate)
	pool.Register(queue.QueuePublish, s.HandlePublish)
	pool.Register(queue.QueueFactCheck, s.HandleFactCheck)
	pool.Register(queue.QueueSocialMedia, s.HandleSocialMedia)
	pool.Register(queue.QueueImage, s.HandleImageGeneration)
}

// startLog opens a running audit record before the stage does any work.
// Audit persistence failures are logged and swallowed; they never change
// the stage outcome.
func (s *Stages) startLog(ctx context.Context, jobType domain.JobType, meta domain.JobMeta) *domain.JobLog {
	jobLog := domain.NewJobLog(jobType, meta, s.now())
	if err := s.deps.JobLogs.Insert(ctx, jobLog); err != nil {
		s.deps.Logger.Warn("failed to insert job log",
			logger.String("job_type", string(jobType)),
			logger.Error(err),
		)
	}

	return jobLog
}

// finishLog finalizes the audit record from the stage result. Like
// startLog, persistence failures are swallowed.
func (s *Stages) finishLog(ctx context.Context, jobLog *domain.JobLog, meta domain.JobMeta, stageErr error) {
	if stageErr != nil {
		jobLog.Meta = meta
		jobLog.Fail(stageErr, s.now())
	} else {
		jobLog.Complete(meta, s.now())
	}

	if err := s.deps.JobLogs.Finish(ctx, jobLog); err != nil {
		s.deps.Logger.Warn("failed to finish job log",
			logger.String("job_type", string(jobLog.JobType)),
			logger.String("job_log_id", jobLog.ID),
			logger.Error(err),
		)
	}
}

// advance enqueues the next stage for an article when auto-advance is on.
func (s *Stages) advance(ctx context.Context, queueName, articleID string) {
	if !s.deps.AutoAdvance {
		return
	}

	if _, err := s.deps.Queues.Enqueue(ctx, queueName, queue.ArticlePayload{ArticleID: articleID}); err != nil {
		s.deps.Logger.Error("failed to advance article to next stage",
			logger.String("queue", queueName),
			logger.String("article_id", articleID),
			logger.Error(err),
		)
	}
}

func articlePayload(job *queue.Job) (*queue.ArticlePayload, error) {
	var payload queue.ArticlePayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	if payload.ArticleID == "" {
		return nil, fmt.Errorf("payload missing article_id")
	}

	return &payload, nil
}

// category returns the article's category name, or empty when unset.
func category(article *domain.Article) string {
	if article.CategoryID == nil {
		return ""
	}

	return *article.CategoryID
}
