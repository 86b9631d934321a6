package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/newsforge/pipeline/internal/dedup"
	"github.com/newsforge/pipeline/internal/domain"
	"github.com/newsforge/pipeline/internal/fetch"
	"github.com/newsforge/pipeline/internal/logger"
	"github.com/newsforge/pipeline/internal/queue"
)

// HandleScrape ingests new articles from one source or from every active
// source. Failures are isolated per source and per item: one bad feed or
// one malformed entry never aborts the rest of the run. The stage fails
// only when every targeted source failed.
func (s *Stages) HandleScrape(ctx context.Context, job *queue.Job) error {
	var payload queue.ScrapePayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	jobLog := s.startLog(ctx, domain.JobTypeScrape, domain.JobMeta{
		JobID:    job.ID,
		SourceID: payload.SourceID,
	})

	sources, err := s.targetSources(ctx, payload.SourceID)
	if err != nil {
		s.finishLog(ctx, jobLog, jobLog.Meta, err)
		return err
	}

	meta := domain.JobMeta{JobID: job.ID, SourceID: payload.SourceID}

	var failedSources int

	for i := range sources {
		source := &sources[i]

		total, created, srcErr := s.scrapeSource(ctx, source)
		meta.TotalItems += total
		meta.NewArticles += created

		if srcErr != nil {
			failedSources++
			s.deps.Logger.Warn("source scrape failed",
				logger.String("source_id", source.ID),
				logger.String("source_name", source.Name),
				logger.Error(srcErr),
			)

			continue
		}

		meta.SourcesProcessed++

		if err := s.deps.Sources.TouchLastScraped(ctx, source.ID, s.now()); err != nil {
			s.deps.Logger.Warn("failed to update last scraped time",
				logger.String("source_id", source.ID),
				logger.Error(err),
			)
		}
	}

	if len(sources) > 0 && failedSources == len(sources) {
		err := fmt.Errorf("all %d sources failed", failedSources)
		s.finishLog(ctx, jobLog, meta, err)

		return err
	}

	s.deps.Logger.Info("scrape completed",
		logger.Int("sources_processed", meta.SourcesProcessed),
		logger.Int("total_items", meta.TotalItems),
		logger.Int("new_articles", meta.NewArticles),
	)
	s.finishLog(ctx, jobLog, meta, nil)

	return nil
}

// targetSources resolves the scrape scope: one source by ID, or all
// active sources when the ID is empty.
func (s *Stages) targetSources(ctx context.Context, sourceID string) ([]domain.Source, error) {
	if sourceID != "" {
		source, err := s.deps.Sources.GetByID(ctx, sourceID)
		if err != nil {
			return nil, fmt.Errorf("resolve source %s: %w", sourceID, err)
		}

		return []domain.Source{*source}, nil
	}

	sources, err := s.deps.Sources.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active sources: %w", err)
	}

	return sources, nil
}

// scrapeSource fetches one source and ingests its items. It returns the
// item count, the number of newly created articles, and an error only
// when the fetch itself failed.
func (s *Stages) scrapeSource(ctx context.Context, source *domain.Source) (total, created int, err error) {
	items, err := s.deps.Fetcher.Fetch(ctx, source)
	if err != nil {
		return 0, 0, err
	}

	for i := range items {
		ok, itemErr := s.ingestItem(ctx, source, &items[i])
		if itemErr != nil {
			s.deps.Logger.Warn("item ingestion failed",
				logger.String("source_id", source.ID),
				logger.String("item_url", items[i].URL),
				logger.Error(itemErr),
			)

			continue
		}

		if ok {
			created++
		}
	}

	return len(items), created, nil
}

// ingestItem fingerprints one item and persists it unless already seen.
// It reports whether a new article was created.
func (s *Stages) ingestItem(ctx context.Context, source *domain.Source, item *fetch.Item) (bool, error) {
	hash := dedup.Fingerprint(item.Title, item.Summary, source.ID)

	seen, err := s.deps.Dedup.Seen(ctx, hash)
	if err != nil {
		return false, fmt.Errorf("dedup lookup: %w", err)
	}
	if seen {
		return false, nil
	}

	article, err := domain.NewArticle(hash, item.Title, item.Summary, item.Content, source.ID)
	if err != nil {
		return false, err
	}

	article.SourceURL = item.URL
	article.Author = item.Author
	if source.Language != "" {
		article.Language = source.Language
	}
	if len(source.CategoryIDs) > 0 {
		categoryID := source.CategoryIDs[0]
		article.CategoryID = &categoryID
	}
	if item.Category != "" {
		article.MergeTags([]string{item.Category})
	}
	if item.ImageURL != "" {
		article.Images = append(article.Images, domain.Image{URL: item.ImageURL, Alt: item.Title})
	}

	if err := s.deps.Articles.Create(ctx, article); err != nil {
		// A concurrent scrape can win the insert race after our dedup
		// check; that is a skip, not a failure.
		if errors.Is(err, domain.ErrDuplicateContent) {
			return false, nil
		}

		return false, fmt.Errorf("create article: %w", err)
	}

	s.advance(ctx, queue.QueueRewrite, article.ID)

	return true, nil
}
