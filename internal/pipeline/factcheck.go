package pipeline

import (
	"context"
	"fmt"

	"github.com/newsforge/pipeline/internal/domain"
	"github.com/newsforge/pipeline/internal/logger"
	"github.com/newsforge/pipeline/internal/queue"
)

// reviewConfidenceFloor is the checker confidence above which an
// unreliable verdict pulls the article into editorial review. Low
// confidence verdicts only annotate the article.
const reviewConfidenceFloor = 70

// HandleFactCheck verifies the article's claims and records the result.
// A confident unreliable verdict flags the article for human review
// unless it is already live.
func (s *Stages) HandleFactCheck(ctx context.Context, job *queue.Job) error {
	payload, err := articlePayload(job)
	if err != nil {
		return err
	}

	jobLog := s.startLog(ctx, domain.JobTypeFactCheck, domain.JobMeta{
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

	result, err := s.deps.FactChecker.FactCheck(ctx, article.Title, article.Content)
	if err != nil {
		err = fmt.Errorf("fact check: %w", err)
		s.finishLog(ctx, jobLog, meta, err)

		return err
	}

	article.FactCheck = &domain.FactCheck{
		IsReliable:  result.IsReliable,
		Confidence:  result.Confidence,
		Issues:      result.Issues,
		Suggestions: result.Suggestions,
		CheckedAt:   s.now().UTC(),
	}

	needsReview := !result.IsReliable &&
		result.Confidence > reviewConfidenceFloor &&
		article.Status != domain.StatusPublished

	if needsReview {
		article.Status = domain.StatusNeedsReview
		s.deps.Logger.Info("article flagged for review",
			logger.String("article_id", article.ID),
			logger.Int("confidence", result.Confidence),
			logger.Strings("issues", result.Issues),
		)
	}

	if err := s.deps.Articles.Update(ctx, article); err != nil {
		err = fmt.Errorf("persist fact check: %w", err)
		s.finishLog(ctx, jobLog, meta, err)

		return err
	}

	meta.Confidence = result.Confidence
	reliable := result.IsReliable
	meta.Approved = &reliable
	s.finishLog(ctx, jobLog, meta, nil)

	return nil
}
