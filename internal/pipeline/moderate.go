package pipeline

import (
	"context"
	"fmt"

	"github.com/newsforge/pipeline/internal/domain"
	"github.com/newsforge/pipeline/internal/logger"
	"github.com/newsforge/pipeline/internal/queue"
)

// HandleModerate runs the editorial gate and SEO generation. Both are
// always attempted: an SEO failure never blocks the verdict, and a checker
// outage defaults to approved so a transient outage does not blacklist
// good content.
func (s *Stages) HandleModerate(ctx context.Context, job *queue.Job) error {
	payload, err := articlePayload(job)
	if err != nil {
		return err
	}

	jobLog := s.startLog(ctx, domain.JobTypeModerate, domain.JobMeta{
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

	if article.Status == domain.StatusRejected {
		meta.Extra = map[string]string{"skipped": "article is rejected"}
		s.finishLog(ctx, jobLog, meta, nil)

		return nil
	}

	approved := true
	verdict, moderateErr := s.deps.Moderation.Moderate(ctx, article.Title, article.Content)
	if moderateErr != nil {
		s.deps.Logger.Warn("moderation unavailable, defaulting to approved",
			logger.String("article_id", article.ID),
			logger.Error(moderateErr),
		)
		meta.Extra = map[string]string{"check_skipped": moderateErr.Error()}
	} else {
		approved = verdict.Approved
		meta.Approved = &verdict.Approved
		if verdict.Reason != "" {
			meta.Extra = map[string]string{"reason": verdict.Reason}
		}
	}

	seo, seoErr := s.deps.Transformer.GenerateSEO(ctx, article.Title, article.Summary, article.Tags)
	if seoErr != nil {
		s.deps.Logger.Warn("seo generation failed",
			logger.String("article_id", article.ID),
			logger.Error(seoErr),
		)
	} else {
		article.SEO = *seo
	}

	if !approved {
		article.Reject()
		s.deps.Logger.Info("article rejected by moderation",
			logger.String("article_id", article.ID),
			logger.String("reason", verdict.Reason),
		)
	}

	if err := s.deps.Articles.Update(ctx, article); err != nil {
		err = fmt.Errorf("persist moderation result: %w", err)
		s.finishLog(ctx, jobLog, meta, err)

		return err
	}

	s.finishLog(ctx, jobLog, meta, nil)

	if approved {
		s.advance(ctx, queue.QueuePublish, article.ID)
	}

	return nil
}
