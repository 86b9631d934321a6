package pipeline

import (
	"context"
	"fmt"

	"github.com/newsforge/pipeline/internal/domain"
	"github.com/newsforge/pipeline/internal/logger"
	"github.com/newsforge/pipeline/internal/queue"
)

// HandleImageGeneration illustrates an article that arrived without any
// image. Articles that already carry one are skipped; a generated picture
// never replaces source material.
func (s *Stages) HandleImageGeneration(ctx context.Context, job *queue.Job) error {
	payload, err := articlePayload(job)
	if err != nil {
		return err
	}

	jobLog := s.startLog(ctx, domain.JobTypeImage, domain.JobMeta{
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

	if len(article.Images) > 0 {
		meta.Extra = map[string]string{"skipped": "article already has images"}
		s.finishLog(ctx, jobLog, meta, nil)

		return nil
	}

	image, err := s.deps.Images.GenerateImage(ctx, article.Title, article.Summary)
	if err != nil {
		err = fmt.Errorf("generate image: %w", err)
		s.finishLog(ctx, jobLog, meta, err)

		return err
	}

	alt := image.Alt
	if alt == "" {
		alt = article.Title
	}
	article.Images = append(article.Images, domain.Image{URL: image.URL, Alt: alt})

	if err := s.deps.Articles.Update(ctx, article); err != nil {
		err = fmt.Errorf("persist generated image: %w", err)
		s.finishLog(ctx, jobLog, meta, err)

		return err
	}

	s.deps.Logger.Info("article image generated",
		logger.String("article_id", article.ID),
		logger.String("image_url", image.URL),
	)

	s.finishLog(ctx, jobLog, meta, nil)

	return nil
}
