package pipeline

import (
	"context"
	"fmt"

	"github.com/newsforge/pipeline/internal/domain"
	"github.com/newsforge/pipeline/internal/logger"
	"github.com/newsforge/pipeline/internal/queue"
)

// HandlePlagiarism scores the article against published material and
// applies the checker's approval verdict. When the checker itself is
// unavailable the article passes with a zero score; blocking the whole
// pipeline on a sidecar outage is worse than letting an unchecked article
// through to moderation.
func (s *Stages) HandlePlagiarism(ctx context.Context, job *queue.Job) error {
	payload, err := articlePayload(job)
	if err != nil {
		return err
	}

	jobLog := s.startLog(ctx, domain.JobTypePlagiarism, domain.JobMeta{
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
	result, err := s.deps.Plagiarism.CheckPlagiarism(ctx, article.Content, article.Title)
	if err != nil {
		s.deps.Logger.Warn("plagiarism check unavailable, passing article through",
			logger.String("article_id", article.ID),
			logger.Error(err),
		)

		article.SetPlagiarismScore(0)
		meta.Extra = map[string]string{"check_skipped": err.Error()}
	} else {
		approved = result.Approved
		article.SetPlagiarismScore(result.Score)
		meta.PlagiarismScore = article.AIInfo.PlagiarismScore
		meta.Matches = len(result.Matches)
	}

	meta.Approved = &approved

	if !approved {
		article.Reject()
		s.deps.Logger.Info("article rejected for plagiarism",
			logger.String("article_id", article.ID),
			logger.Int("score", article.AIInfo.PlagiarismScore),
		)
	}

	if err := s.deps.Articles.Update(ctx, article); err != nil {
		err = fmt.Errorf("persist plagiarism result: %w", err)
		s.finishLog(ctx, jobLog, meta, err)

		return err
	}

	s.finishLog(ctx, jobLog, meta, nil)

	if approved {
		s.advance(ctx, queue.QueueModerate, article.ID)
	}

	return nil
}
