package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/newsforge/pipeline/internal/domain"
	"github.com/newsforge/pipeline/internal/logger"
	"github.com/newsforge/pipeline/internal/queue"
)

// HandleSocialMedia composes platform posts promoting a published
// article. Unpublished articles are skipped; promoting a draft would
// link readers to a page that does not exist yet.
func (s *Stages) HandleSocialMedia(ctx context.Context, job *queue.Job) error {
	payload, err := articlePayload(job)
	if err != nil {
		return err
	}

	jobLog := s.startLog(ctx, domain.JobTypeSocialMedia, domain.JobMeta{
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

	if article.Status != domain.StatusPublished {
		meta.Extra = map[string]string{"skipped": "article is not published"}
		s.finishLog(ctx, jobLog, meta, nil)

		return nil
	}

	posts, err := s.deps.Social.ComposePosts(ctx, article.Title, article.Summary, "/articles/"+article.Slug)
	if err != nil {
		err = fmt.Errorf("compose posts: %w", err)
		s.finishLog(ctx, jobLog, meta, err)

		return err
	}

	composed := make(map[string]string, len(posts))
	for _, post := range posts {
		text := post.Text
		if len(post.Hashtags) > 0 {
			text += " " + strings.Join(post.Hashtags, " ")
		}
		composed[post.Platform] = text
	}

	article.SocialMedia = &domain.SocialMedia{
		Posts:       composed,
		GeneratedAt: s.now().UTC(),
	}

	if err := s.deps.Articles.Update(ctx, article); err != nil {
		err = fmt.Errorf("persist social posts: %w", err)
		s.finishLog(ctx, jobLog, meta, err)

		return err
	}

	s.deps.Logger.Info("social posts composed",
		logger.String("article_id", article.ID),
		logger.Int("platforms", len(composed)),
	)

	meta.Extra = map[string]string{"platforms": fmt.Sprintf("%d", len(composed))}
	s.finishLog(ctx, jobLog, meta, nil)

	return nil
}
