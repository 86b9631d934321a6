// Package fetch pulls raw article candidates from configured news sources.
package fetch

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/newsforge/pipeline/internal/domain"
	"github.com/newsforge/pipeline/internal/logger"
)

// Item is a raw article candidate pulled from a source, before
// deduplication and rewriting.
type Item struct {
	Title       string
	Summary     string
	Content     string
	URL         string
	ImageURL    string
	Author      string
	Category    string
	PublishedAt *time.Time
}

// Fetcher pulls the current set of items from a single source.
type Fetcher interface {
	Fetch(ctx context.Context, source *domain.Source) ([]Item, error)
}

// Options configures the outbound HTTP behavior shared by all fetchers.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	APIKey    string
}

const defaultTimeout = 15 * time.Second

// Dispatcher routes a source to the fetcher matching its type.
type Dispatcher struct {
	rss    Fetcher
	api    Fetcher
	logger logger.Logger
}

// NewDispatcher builds a dispatcher with RSS and API fetchers sharing one
// HTTP client.
func NewDispatcher(opts Options, log logger.Logger) *Dispatcher {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}

	client := &http.Client{Timeout: opts.Timeout}

	return &Dispatcher{
		rss:    NewRSSFetcher(client, opts.UserAgent, NewExtractor(client, opts.UserAgent)),
		api:    NewAPIFetcher(client, opts.UserAgent, opts.APIKey),
		logger: log,
	}
}

// Fetch pulls items from the source using the fetcher for its type.
func (d *Dispatcher) Fetch(ctx context.Context, source *domain.Source) ([]Item, error) {
	switch source.Type {
	case domain.SourceTypeRSS:
		return d.rss.Fetch(ctx, source)
	case domain.SourceTypeAPI:
		return d.api.Fetch(ctx, source)
	default:
		return nil, fmt.Errorf("source %s: unsupported type %q", source.ID, source.Type)
	}
}

func newGetRequest(ctx context.Context, url, userAgent string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}

	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}

	return req, nil
}
