package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/newsforge/pipeline/internal/domain"
)

const defaultTimeout = 30 * time.Second

// Client talks to the external AI service over HTTP. It implements every
// capability interface in this package.
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type rewriteRequest struct {
	Title    string `json:"title"`
	Summary  string `json:"summary"`
	Content  string `json:"content"`
	Category string `json:"category,omitempty"`
	Tone     string `json:"tone"`
}

type rewriteResponse struct {
	Title           string   `json:"title"`
	Summary         string   `json:"summary"`
	Content         string   `json:"content"`
	Confidence      int      `json:"confidence"`
	Tags            []string `json:"tags"`
	SEOTitle        string   `json:"seo_title"`
	MetaDescription string   `json:"meta_description"`
	Keywords        []string `json:"keywords"`
	Author          string   `json:"author"`
}

// Rewrite transforms raw source text into publishable copy.
func (c *Client) Rewrite(ctx context.Context, input RewriteInput) (*RewriteResult, error) {
	req := rewriteRequest{
		Title:    input.Title,
		Summary:  input.Summary,
		Content:  input.Content,
		Category: input.Category,
		Tone:     string(input.Tone),
	}

	var resp rewriteResponse
	if err := c.post(ctx, "/rewrite", req, &resp); err != nil {
		return nil, err
	}

	return &RewriteResult{
		Title:           resp.Title,
		Summary:         resp.Summary,
		Content:         resp.Content,
		Confidence:      resp.Confidence,
		Tags:            resp.Tags,
		SEOTitle:        resp.SEOTitle,
		MetaDescription: resp.MetaDescription,
		Keywords:        resp.Keywords,
		Author:          resp.Author,
	}, nil
}

type seoRequest struct {
	Title   string   `json:"title"`
	Summary string   `json:"summary"`
	Tags    []string `json:"tags,omitempty"`
}

type seoResponse struct {
	MetaDescription string   `json:"meta_description"`
	Keywords        []string `json:"keywords"`
}

// GenerateSEO produces search metadata for an article.
func (c *Client) GenerateSEO(ctx context.Context, title, summary string, tags []string) (*domain.SEO, error) {
	req := seoRequest{Title: title, Summary: summary, Tags: tags}

	var resp seoResponse
	if err := c.post(ctx, "/seo", req, &resp); err != nil {
		return nil, err
	}

	return &domain.SEO{
		MetaDescription: resp.MetaDescription,
		Keywords:        resp.Keywords,
	}, nil
}

type plagiarismRequest struct {
	Content string `json:"content"`
	Title   string `json:"title"`
}

type plagiarismResponse struct {
	Score    int      `json:"score"`
	Matches  []string `json:"matches"`
	Approved bool     `json:"approved"`
}

// CheckPlagiarism scores the content against published material. The
// service renders the approval verdict itself.
func (c *Client) CheckPlagiarism(ctx context.Context, content, title string) (*PlagiarismResult, error) {
	var resp plagiarismResponse
	if err := c.post(ctx, "/plagiarism", plagiarismRequest{Content: content, Title: title}, &resp); err != nil {
		return nil, err
	}

	return &PlagiarismResult{Score: resp.Score, Matches: resp.Matches, Approved: resp.Approved}, nil
}

type moderateRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type moderateResponse struct {
	Approved bool   `json:"approved"`
	Reason   string `json:"reason"`
}

// Moderate applies the editorial policy gate.
func (c *Client) Moderate(ctx context.Context, title, content string) (*ModerationResult, error) {
	var resp moderateResponse
	if err := c.post(ctx, "/moderate", moderateRequest{Title: title, Content: content}, &resp); err != nil {
		return nil, err
	}

	return &ModerationResult{Approved: resp.Approved, Reason: resp.Reason}, nil
}

type factCheckRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type factCheckResponse struct {
	IsReliable  bool     `json:"is_reliable"`
	Confidence  int      `json:"confidence"`
	Issues      []string `json:"issues"`
	Suggestions []string `json:"suggestions"`
}

// FactCheck verifies the article's claims.
func (c *Client) FactCheck(ctx context.Context, title, content string) (*FactCheckResult, error) {
	var resp factCheckResponse
	if err := c.post(ctx, "/fact-check", factCheckRequest{Title: title, Content: content}, &resp); err != nil {
		return nil, err
	}

	return &FactCheckResult{
		IsReliable:  resp.IsReliable,
		Confidence:  resp.Confidence,
		Issues:      resp.Issues,
		Suggestions: resp.Suggestions,
	}, nil
}

type socialRequest struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
	URL     string `json:"url"`
}

type socialResponse struct {
	Posts []struct {
		Platform string   `json:"platform"`
		Text     string   `json:"text"`
		Hashtags []string `json:"hashtags"`
	} `json:"posts"`
}

// ComposePosts writes promotional copy per platform.
func (c *Client) ComposePosts(ctx context.Context, title, summary, url string) ([]SocialPost, error) {
	var resp socialResponse
	if err := c.post(ctx, "/social", socialRequest{Title: title, Summary: summary, URL: url}, &resp); err != nil {
		return nil, err
	}

	posts := make([]SocialPost, 0, len(resp.Posts))
	for _, p := range resp.Posts {
		posts = append(posts, SocialPost{Platform: p.Platform, Text: p.Text, Hashtags: p.Hashtags})
	}

	return posts, nil
}

type imageRequest struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

type imageResponse struct {
	URL string `json:"url"`
	Alt string `json:"alt"`
}

// GenerateImage produces an illustration for the article.
func (c *Client) GenerateImage(ctx context.Context, title, summary string) (*ImageResult, error) {
	var resp imageResponse
	if err := c.post(ctx, "/image", imageRequest{Title: title, Summary: summary}, &resp); err != nil {
		return nil, err
	}

	return &ImageResult{URL: resp.URL, Alt: resp.Alt}, nil
}

// post sends a JSON request and decodes the JSON response. Transport
// failures and 5xx responses wrap ErrUnavailable; 4xx responses are plain
// errors since retrying the same payload cannot help.
func (c *Client) post(ctx context.Context, path string, reqBody, respPtr any) error {
	raw, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("%w: status %d from %s", ErrUnavailable, resp.StatusCode, path)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("ai service returned %d from %s", resp.StatusCode, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(respPtr); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
