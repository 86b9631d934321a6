package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PageMeta holds article metadata extracted from a fetched HTML page.
type PageMeta struct {
	Title       string
	Description string
	ImageURL    string
	Body        string
}

// nonContentSelectors lists elements stripped before body extraction.
const nonContentSelectors = "script, style, nav, header, footer, aside"

// Extractor fetches an article page and pulls OpenGraph metadata and body
// text. Used to enrich feed items that carry only a headline and link.
type Extractor struct {
	client    *http.Client
	userAgent string
}

func NewExtractor(client *http.Client, userAgent string) *Extractor {
	return &Extractor{
		client:    client,
		userAgent: userAgent,
	}
}

// ExtractPage fetches the URL and parses its metadata.
func (e *Extractor) ExtractPage(ctx context.Context, pageURL string) (*PageMeta, error) {
	req, err := newGetRequest(ctx, pageURL, e.userAgent)
	if err != nil {
		return nil, err
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return ParseMeta(resp.Body)
}

// ParseMeta extracts article metadata from an HTML document.
func ParseMeta(r io.Reader) (*PageMeta, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	return &PageMeta{
		Title:       pageTitle(doc),
		Description: metaDescription(doc),
		ImageURL:    metaImage(doc),
		Body:        bodyText(doc),
	}, nil
}

// pageTitle prefers og:title over the document title.
func pageTitle(doc *goquery.Document) string {
	if og, exists := doc.Find("meta[property='og:title']").Attr("content"); exists {
		return strings.TrimSpace(og)
	}

	return strings.TrimSpace(doc.Find("title").First().Text())
}

func metaDescription(doc *goquery.Document) string {
	if og, exists := doc.Find("meta[property='og:description']").Attr("content"); exists {
		return strings.TrimSpace(og)
	}

	if desc, exists := doc.Find("meta[name='description']").Attr("content"); exists {
		return strings.TrimSpace(desc)
	}

	return ""
}

func metaImage(doc *goquery.Document) string {
	if og, exists := doc.Find("meta[property='og:image']").Attr("content"); exists {
		return strings.TrimSpace(og)
	}

	return ""
}

// bodyText prefers <article> content, falling back to <body> with
// non-content elements stripped.
func bodyText(doc *goquery.Document) string {
	article := doc.Find("article").First()
	if article.Length() > 0 {
		article.Find(nonContentSelectors).Remove()
		return strings.TrimSpace(article.Text())
	}

	body := doc.Find("body").First()
	if body.Length() > 0 {
		body.Find(nonContentSelectors).Remove()
		return strings.TrimSpace(body.Text())
	}

	return ""
}
