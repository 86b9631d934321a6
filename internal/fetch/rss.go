package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/newsforge/pipeline/internal/domain"
)

// RSSFetcher pulls items from a source's RSS/Atom feeds. An optional
// extractor backfills body, summary and image for entries that carry only a
// headline and link.
type RSSFetcher struct {
	client    *http.Client
	userAgent string
	extractor *Extractor
}

func NewRSSFetcher(client *http.Client, userAgent string, extractor *Extractor) *RSSFetcher {
	return &RSSFetcher{
		client:    client,
		userAgent: userAgent,
		extractor: extractor,
	}
}

// Fetch reads every feed URL of the source and flattens the entries.
// A source without feed URLs yields no items and no error.
func (f *RSSFetcher) Fetch(ctx context.Context, source *domain.Source) ([]Item, error) {
	var items []Item

	for _, feedURL := range source.FeedURLs {
		feedItems, err := f.fetchFeed(ctx, feedURL)
		if err != nil {
			return nil, fmt.Errorf("feed %s: %w", feedURL, err)
		}

		items = append(items, feedItems...)
	}

	return items, nil
}

func (f *RSSFetcher) fetchFeed(ctx context.Context, feedURL string) ([]Item, error) {
	body, err := f.get(ctx, feedURL)
	if err != nil {
		return nil, err
	}

	parsed, err := gofeed.NewParser().ParseString(body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	items := make([]Item, 0, len(parsed.Items))

	for _, entry := range parsed.Items {
		link := entryLink(entry)
		if link == "" || entry.Title == "" {
			continue
		}

		item := Item{
			Title:       strings.TrimSpace(entry.Title),
			Summary:     strings.TrimSpace(entry.Description),
			Content:     strings.TrimSpace(entry.Content),
			URL:         link,
			ImageURL:    entryImage(entry),
			Author:      entryAuthor(entry),
			PublishedAt: entry.PublishedParsed,
		}
		if len(entry.Categories) > 0 {
			item.Category = strings.ToLower(strings.TrimSpace(entry.Categories[0]))
		}

		f.enrich(ctx, &item)

		items = append(items, item)
	}

	return items, nil
}

// enrich backfills missing fields from the linked article page. Extraction
// failures leave the item as the feed described it.
func (f *RSSFetcher) enrich(ctx context.Context, item *Item) {
	if f.extractor == nil || item.Content != "" {
		return
	}

	page, err := f.extractor.ExtractPage(ctx, item.URL)
	if err != nil {
		return
	}

	item.Content = page.Body
	if item.Summary == "" {
		item.Summary = page.Description
	}
	if item.ImageURL == "" {
		item.ImageURL = page.ImageURL
	}
}

func (f *RSSFetcher) get(ctx context.Context, url string) (string, error) {
	req, err := newGetRequest(ctx, url, f.userAgent)
	if err != nil {
		return "", err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	return string(raw), nil
}

// entryLink prefers the explicit link, falling back to a GUID that looks
// like a URL.
func entryLink(entry *gofeed.Item) string {
	if entry.Link != "" {
		return entry.Link
	}

	if strings.HasPrefix(entry.GUID, "http") {
		return entry.GUID
	}

	return ""
}

func entryAuthor(entry *gofeed.Item) string {
	for _, author := range entry.Authors {
		if author != nil && author.Name != "" {
			return author.Name
		}
	}

	return ""
}

func entryImage(entry *gofeed.Item) string {
	if entry.Image != nil {
		return entry.Image.URL
	}

	for _, enc := range entry.Enclosures {
		if strings.HasPrefix(enc.Type, "image/") {
			return enc.URL
		}
	}

	return ""
}
