package pipeline

import (
	"context"
	"fmt"

	"github.com/newsforge/pipeline/internal/ai"
	"github.com/newsforge/pipeline/internal/domain"
	"github.com/newsforge/pipeline/internal/logger"
	"github.com/newsforge/pipeline/internal/queue"
)

// HandleRewrite transforms the raw scraped text into publishable copy.
// A rewrite failure is a stage failure; the broker retries it.
func (s *Stages) HandleRewrite(ctx context.Context, job *queue.Job) error {
	payload, err := articlePayload(job)
	if err != nil {
		return err
	}

	jobLog := s.startLog(ctx, domain.JobTypeRewrite, domain.JobMeta{
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

	result, err := s.deps.Transformer.Rewrite(ctx, ai.RewriteInput{
		Title:    article.Title,
		Summary:  article.Summary,
		Content:  article.Content,
		Category: category(article),
		Tone:     ai.ToneFor(category(article)),
	})
	if err != nil {
		err = fmt.Errorf("rewrite: %w", err)
		s.finishLog(ctx, jobLog, meta, err)

		return err
	}

	// The service's SEO title wins, then its plain title; an empty result
	// never blanks the article's own title.
	switch {
	case result.SEOTitle != "":
		article.Title = result.SEOTitle
	case result.Title != "":
		article.Title = result.Title
	}
	if result.Summary != "" {
		article.Summary = result.Summary
	}
	if result.Content != "" {
		article.Content = result.Content
	}
	if result.Author != "" {
		article.Author = result.Author
	}
	if result.MetaDescription != "" {
		article.SEO.MetaDescription = result.MetaDescription
	}
	if len(result.Keywords) > 0 {
		article.SEO.Keywords = result.Keywords
	}
	article.AIInfo.Rewritten = true
	article.SetConfidence(result.Confidence)
	article.MergeTags(result.Tags)

	if err := s.deps.Articles.Update(ctx, article); err != nil {
		err = fmt.Errorf("persist rewrite: %w", err)
		s.finishLog(ctx, jobLog, meta, err)

		return err
	}

	s.deps.Logger.Info("article rewritten",
		logger.String("article_id", article.ID),
		logger.Int("confidence", article.AIInfo.Confidence),
	)

	meta.Confidence = article.AIInfo.Confidence
	s.finishLog(ctx, jobLog, meta, nil)

	s.advance(ctx, queue.QueuePlagiarism, article.ID)

	return nil
}
