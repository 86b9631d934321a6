package pipeline

import (
	"context"
	"fmt"

	"github.com/newsforge/pipeline/internal/domain"
	"github.com/newsforge/pipeline/internal/logger"
	"github.com/newsforge/pipeline/internal/queue"
)

// HandlePublish makes the article live. Publication gates are enforced by
// the domain model; cache invalidation failure is logged but does not
// unpublish the article.
func (s *Stages) HandlePublish(ctx context.Context, job *queue.Job) error {
	payload, err := articlePayload(job)
	if err != nil {
		return err
	}

	jobLog := s.startLog(ctx, domain.JobTypePublish, domain.JobMeta{
		JobID:     job.ID,
		ArticleID: payload.ArticleID,
	})
	meta := jobLog.Meta

	article, err := s.deps.Articles.GetByID(ctx, payload.ArticleID)
	if err != nil {
		err = fmt.Errorf("load article: %w", err)
		s.finishLog(ctx, jobLog, meta, err)

		return err
	}

	if err := article.Publish(s.now()); err != nil {
		s.finishLog(ctx, jobLog, meta, err)

		return err
	}

	if err := s.deps.Articles.Update(ctx, article); err != nil {
		err = fmt.Errorf("persist publication: %w", err)
		s.finishLog(ctx, jobLog, meta, err)

		return err
	}

	if err := s.deps.Cache.InvalidateArticles(ctx); err != nil {
		s.deps.Logger.Warn("cache invalidation failed after publish",
			logger.String("article_id", article.ID),
			logger.Error(err),
		)
	}

	if s.deps.Metrics != nil {
		s.deps.Metrics.ArticlePublished()
	}

	s.deps.Logger.Info("article published",
		logger.String("article_id", article.ID),
		logger.String("slug", article.Slug),
	)

	s.finishLog(ctx, jobLog, meta, nil)

	s.advance(ctx, queue.QueueSocialMedia, article.ID)

	return nil
}
