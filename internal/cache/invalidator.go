// Package cache invalidates read-side Redis caches after article state
// changes.
package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/newsforge/pipeline/internal/logger"
)

// Namespaces cleared after a publish. Trending lists and detail pages are
// rebuilt lazily by the read side on the next request.
var invalidationPatterns = []string{
	"articles:trending:*",
	"articles:detail:*",
}

const scanBatchSize = 100

// Invalidator clears cached article views so readers never serve stale
// content after a publish.
type Invalidator struct {
	redis  redis.UniversalClient
	logger logger.Logger
}

func NewInvalidator(client redis.UniversalClient, log logger.Logger) *Invalidator {
	return &Invalidator{
		redis:  client,
		logger: log,
	}
}

// InvalidateArticles deletes every key under the article cache namespaces.
// Deletion is coarse: all trending and detail entries go, not just the
// published article's.
func (i *Invalidator) InvalidateArticles(ctx context.Context) error {
	var removed int

	for _, pattern := range invalidationPatterns {
		n, err := i.deleteMatching(ctx, pattern)
		if err != nil {
			return fmt.Errorf("invalidating %s: %w", pattern, err)
		}
		removed += n
	}

	i.logger.Info("article caches invalidated", logger.Int("keys_removed", removed))

	return nil
}

func (i *Invalidator) deleteMatching(ctx context.Context, pattern string) (int, error) {
	var (
		cursor  uint64
		removed int
	)

	for {
		keys, next, err := i.redis.Scan(ctx, cursor, pattern, scanBatchSize).Result()
		if err != nil {
			return removed, fmt.Errorf("scanning keys: %w", err)
		}

		if len(keys) > 0 {
			if err := i.redis.Del(ctx, keys...).Err(); err != nil {
				return removed, fmt.Errorf("deleting keys: %w", err)
			}
			removed += len(keys)
		}

		cursor = next
		if cursor == 0 {
			return removed, nil
		}
	}
}
