//nolint:testpackage // Exercising scan batching requires same package access
package cache

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/newsforge/pipeline/internal/logger"
)

func newTestInvalidator(t *testing.T) (*Invalidator, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewInvalidator(client, logger.NewNopLogger()), mr
}

func TestInvalidator_ClearsArticleNamespaces(t *testing.T) {
	inv, mr := newTestInvalidator(t)

	mr.Set("articles:trending:technology", "[...]")
	mr.Set("articles:trending:politics", "[...]")
	mr.Set("articles:detail:a-1", "{...}")
	mr.Set("articles:detail:a-2", "{...}")
	mr.Set("sources:active", "[...]")

	if err := inv.InvalidateArticles(context.Background()); err != nil {
		t.Fatalf("InvalidateArticles() error = %v", err)
	}

	for _, key := range []string{
		"articles:trending:technology",
		"articles:trending:politics",
		"articles:detail:a-1",
		"articles:detail:a-2",
	} {
		if mr.Exists(key) {
			t.Errorf("key %q should have been deleted", key)
		}
	}

	if !mr.Exists("sources:active") {
		t.Error("keys outside the article namespaces must survive")
	}
}

func TestInvalidator_EmptyCacheIsNoop(t *testing.T) {
	inv, _ := newTestInvalidator(t)

	if err := inv.InvalidateArticles(context.Background()); err != nil {
		t.Fatalf("InvalidateArticles() error = %v", err)
	}
}

func TestInvalidator_DeletesBeyondScanBatch(t *testing.T) {
	inv, mr := newTestInvalidator(t)

	for i := 0; i < scanBatchSize*2+7; i++ {
		mr.Set(fmt.Sprintf("articles:detail:a-%d", i), "{...}")
	}

	if err := inv.InvalidateArticles(context.Background()); err != nil {
		t.Fatalf("InvalidateArticles() error = %v", err)
	}

	if len(mr.Keys()) != 0 {
		t.Errorf("expected empty keyspace, %d keys remain", len(mr.Keys()))
	}
}
