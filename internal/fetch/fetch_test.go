//nolint:testpackage // Table tests cover unexported helpers directly
package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/newsforge/pipeline/internal/domain"
	"github.com/newsforge/pipeline/internal/logger"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:dc="http://purl.org/dc/elements/1.1/">
  <channel>
    <title>Example News</title>
    <item>
      <title>Markets rally on rate decision</title>
      <link>https://example.com/markets-rally</link>
      <description>Stocks climbed after the announcement.</description>
      <dc:creator>Jane Reporter</dc:creator>
      <category>Business</category>
      <pubDate>Mon, 02 Jan 2006 15:04:05 GMT</pubDate>
    </item>
    <item>
      <title></title>
      <link>https://example.com/untitled</link>
    </item>
    <item>
      <title>Storm warning issued</title>
      <link>https://example.com/storm-warning</link>
    </item>
  </channel>
</rss>`

func TestRSSFetcher_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(sampleRSS))
	}))
	defer srv.Close()

	fetcher := NewRSSFetcher(srv.Client(), "newsforge/1.0", nil)
	source := &domain.Source{
		ID:       "src-1",
		Type:     domain.SourceTypeRSS,
		FeedURLs: domain.StringList{srv.URL},
	}

	items, err := fetcher.Fetch(context.Background(), source)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2 (untitled entry skipped)", len(items))
	}

	first := items[0]
	if first.Title != "Markets rally on rate decision" {
		t.Errorf("Title = %q", first.Title)
	}
	if first.Summary != "Stocks climbed after the announcement." {
		t.Errorf("Summary = %q", first.Summary)
	}
	if first.Category != "business" {
		t.Errorf("Category = %q, want lowercased", first.Category)
	}
	if first.Author != "Jane Reporter" {
		t.Errorf("Author = %q", first.Author)
	}
	if first.PublishedAt == nil {
		t.Error("PublishedAt should be parsed")
	}
}

func TestRSSFetcher_MultipleFeeds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleRSS))
	}))
	defer srv.Close()

	fetcher := NewRSSFetcher(srv.Client(), "", nil)
	source := &domain.Source{
		Type:     domain.SourceTypeRSS,
		FeedURLs: domain.StringList{srv.URL + "/a", srv.URL + "/b"},
	}

	items, err := fetcher.Fetch(context.Background(), source)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(items) != 4 {
		t.Errorf("got %d items, want 4 across both feeds", len(items))
	}
}

func TestRSSFetcher_EnrichesFromArticlePage(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	feed := `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Thin Feed</title>
  <item>
    <title>Bridge closure extended</title>
    <link>` + srv.URL + `/bridge-closure</link>
  </item>
</channel></rss>`

	mux.HandleFunc("/feed", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(feed))
	})
	mux.HandleFunc("/bridge-closure", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head>
			<meta property="og:description" content="Repairs run through October.">
			<meta property="og:image" content="` + srv.URL + `/bridge.jpg">
		</head><body><article><p>Crews found further damage.</p></article></body></html>`))
	})

	fetcher := NewRSSFetcher(srv.Client(), "", NewExtractor(srv.Client(), ""))
	source := &domain.Source{Type: domain.SourceTypeRSS, FeedURLs: domain.StringList{srv.URL + "/feed"}}

	items, err := fetcher.Fetch(context.Background(), source)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}

	item := items[0]
	if !strings.Contains(item.Content, "Crews found further damage.") {
		t.Errorf("Content = %q, want page body", item.Content)
	}
	if item.Summary != "Repairs run through October." {
		t.Errorf("Summary = %q, want og:description", item.Summary)
	}
	if item.ImageURL != srv.URL+"/bridge.jpg" {
		t.Errorf("ImageURL = %q, want og:image", item.ImageURL)
	}
}

func TestRSSFetcher_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	fetcher := NewRSSFetcher(srv.Client(), "", nil)
	source := &domain.Source{FeedURLs: domain.StringList{srv.URL}}

	if _, err := fetcher.Fetch(context.Background(), source); err == nil {
		t.Error("expected error on 500 response")
	}
}

func TestAPIFetcher_Fetch(t *testing.T) {
	var gotKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-Api-Key")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"status": "ok",
			"articles": [
				{
					"title": "Election results announced",
					"description": "Final tallies released overnight.",
					"content": "Full story body.",
					"author": "Sam Writer",
					"url": "https://example.com/election",
					"urlToImage": "https://example.com/election.jpg",
					"publishedAt": "2026-08-29T10:00:00Z"
				},
				{"title": "", "url": "https://example.com/blank"}
			]
		}`))
	}))
	defer srv.Close()

	fetcher := NewAPIFetcher(srv.Client(), "newsforge/1.0", "secret-key")
	source := &domain.Source{ID: "src-2", Type: domain.SourceTypeAPI, URL: srv.URL}

	items, err := fetcher.Fetch(context.Background(), source)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if gotKey != "secret-key" {
		t.Errorf("X-Api-Key = %q", gotKey)
	}
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1 (blank title skipped)", len(items))
	}

	item := items[0]
	if item.ImageURL != "https://example.com/election.jpg" {
		t.Errorf("ImageURL = %q", item.ImageURL)
	}
	if item.Author != "Sam Writer" {
		t.Errorf("Author = %q", item.Author)
	}
	want := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	if item.PublishedAt == nil || !item.PublishedAt.Equal(want) {
		t.Errorf("PublishedAt = %v, want %v", item.PublishedAt, want)
	}
}

func TestAPIFetcher_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "error", "articles": []}`))
	}))
	defer srv.Close()

	fetcher := NewAPIFetcher(srv.Client(), "", "")
	source := &domain.Source{Type: domain.SourceTypeAPI, URL: srv.URL}

	if _, err := fetcher.Fetch(context.Background(), source); err == nil {
		t.Error("expected error on api error status")
	}
}

func TestDispatcher_UnsupportedType(t *testing.T) {
	d := NewDispatcher(Options{}, logger.NewNopLogger())
	source := &domain.Source{ID: "src-3", Type: "carrier-pigeon"}

	if _, err := d.Fetch(context.Background(), source); err == nil {
		t.Error("expected error for unsupported source type")
	}
}

func TestParseMeta(t *testing.T) {
	html := `<html><head>
		<title>Fallback Title</title>
		<meta property="og:title" content="Quake hits coastal region">
		<meta property="og:description" content="A magnitude 6 quake struck at dawn.">
		<meta property="og:image" content="https://example.com/quake.jpg">
	</head><body>
		<nav>site nav</nav>
		<article><script>junk()</script><p>Residents reported shaking.</p></article>
		<footer>footer text</footer>
	</body></html>`

	meta, err := ParseMeta(strings.NewReader(html))
	if err != nil {
		t.Fatalf("ParseMeta() error = %v", err)
	}

	if meta.Title != "Quake hits coastal region" {
		t.Errorf("Title = %q, want og:title", meta.Title)
	}
	if meta.Description != "A magnitude 6 quake struck at dawn." {
		t.Errorf("Description = %q", meta.Description)
	}
	if meta.ImageURL != "https://example.com/quake.jpg" {
		t.Errorf("ImageURL = %q", meta.ImageURL)
	}
	if !strings.Contains(meta.Body, "Residents reported shaking.") {
		t.Errorf("Body = %q, want article text", meta.Body)
	}
	if strings.Contains(meta.Body, "junk()") || strings.Contains(meta.Body, "site nav") {
		t.Errorf("Body = %q, non-content elements must be stripped", meta.Body)
	}
}

func TestParseMeta_TitleFallback(t *testing.T) {
	html := `<html><head><title> Plain Title </title></head><body></body></html>`

	meta, err := ParseMeta(strings.NewReader(html))
	if err != nil {
		t.Fatalf("ParseMeta() error = %v", err)
	}
	if meta.Title != "Plain Title" {
		t.Errorf("Title = %q, want trimmed document title", meta.Title)
	}
}
