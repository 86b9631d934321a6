package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/newsforge/pipeline/internal/domain"
)

// APIFetcher pulls items from JSON news API sources. The source URL is
// queried as-is; the API key is sent as the X-Api-Key header.
type APIFetcher struct {
	client    *http.Client
	userAgent string
	apiKey    string
}

func NewAPIFetcher(client *http.Client, userAgent, apiKey string) *APIFetcher {
	return &APIFetcher{
		client:    client,
		userAgent: userAgent,
		apiKey:    apiKey,
	}
}

type apiResponse struct {
	Status   string       `json:"status"`
	Articles []apiArticle `json:"articles"`
}

type apiArticle struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
	Author      string `json:"author"`
	URL         string `json:"url"`
	URLToImage  string `json:"urlToImage"`
	PublishedAt string `json:"publishedAt"`
}

// Fetch queries the source's API endpoint and maps the response articles.
// Entries without a title or URL are skipped.
func (f *APIFetcher) Fetch(ctx context.Context, source *domain.Source) ([]Item, error) {
	req, err := newGetRequest(ctx, source.URL, f.userAgent)
	if err != nil {
		return nil, err
	}

	if f.apiKey != "" {
		req.Header.Set("X-Api-Key", f.apiKey)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var decoded apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if decoded.Status != "" && decoded.Status != "ok" {
		return nil, fmt.Errorf("api status %q", decoded.Status)
	}

	items := make([]Item, 0, len(decoded.Articles))

	for _, a := range decoded.Articles {
		if a.Title == "" || a.URL == "" {
			continue
		}

		item := Item{
			Title:    strings.TrimSpace(a.Title),
			Summary:  strings.TrimSpace(a.Description),
			Content:  strings.TrimSpace(a.Content),
			URL:      a.URL,
			ImageURL: a.URLToImage,
			Author:   strings.TrimSpace(a.Author),
		}

		if a.PublishedAt != "" {
			if ts, parseErr := time.Parse(time.RFC3339, a.PublishedAt); parseErr == nil {
				item.PublishedAt = &ts
			}
		}

		items = append(items, item)
	}

	return items, nil
}
