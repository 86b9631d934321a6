// Package domain contains the core domain models for the ingestion pipeline.
package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Status represents the lifecycle state of an article.
type Status string

const (
	StatusDraft       Status = "draft"
	StatusPublished   Status = "published"
	StatusRejected    Status = "rejected"
	StatusNeedsReview Status = "needs_review"
)

// validStatuses maps every recognised Status value to true for O(1) lookup.
var validStatuses = map[Status]bool{
	StatusDraft:       true,
	StatusPublished:   true,
	StatusRejected:    true,
	StatusNeedsReview: true,
}

// IsValid reports whether s is a recognised article status.
func (s Status) IsValid() bool {
	return validStatuses[s]
}

const (
	minScore = 0
	maxScore = 100

	// MaxPlagiarismScore is the highest plagiarism score an article may carry
	// and still be publishable.
	MaxPlagiarismScore = 20

	maxSummaryLen = 300
)

// AIInfo holds the processing metadata written by the rewrite and plagiarism
// stages.
type AIInfo struct {
	Rewritten       bool `json:"rewritten"`
	Confidence      int  `json:"confidence"`
	PlagiarismScore int  `json:"plagiarism_score"`
}

// SEO holds search metadata generated by the moderation stage.
type SEO struct {
	MetaDescription string   `json:"meta_description"`
	Keywords        []string `json:"keywords"`
}

// Image is a single article image reference.
type Image struct {
	URL     string `json:"url"`
	Alt     string `json:"alt"`
	Caption string `json:"caption,omitempty"`
	Width   int    `json:"width,omitempty"`
	Height  int    `json:"height,omitempty"`
}

// FactCheck is populated by the fact-check stage and absent otherwise.
type FactCheck struct {
	IsReliable  bool      `json:"is_reliable"`
	Confidence  int       `json:"confidence"`
	Issues      []string  `json:"issues"`
	Suggestions []string  `json:"suggestions"`
	CheckedAt   time.Time `json:"checked_at"`
}

// SocialMedia is populated by the social-media stage and absent otherwise.
type SocialMedia struct {
	Posts       map[string]string `json:"posts"`
	GeneratedAt time.Time         `json:"generated_at"`
}

// Translation is a translated rendition of the article body.
type Translation struct {
	Title        string    `json:"title"`
	Content      string    `json:"content"`
	Summary      string    `json:"summary"`
	Language     string    `json:"language"`
	Confidence   int       `json:"confidence"`
	TranslatedAt time.Time `json:"translated_at"`
}

// Article is the unit of work flowing through the pipeline. It is created in
// draft by the scrape stage and mutated in place by every subsequent stage.
type Article struct {
	ID          string        `db:"id"           json:"id"`
	Hash        string        `db:"hash"         json:"hash"`
	Slug        string        `db:"slug"         json:"slug"`
	Title       string        `db:"title"        json:"title"`
	Summary     string        `db:"summary"      json:"summary"`
	Content     string        `db:"content"      json:"content"`
	Images      Images        `db:"images"       json:"images"`
	Tags        Tags          `db:"tags"         json:"tags"`
	Author      string        `db:"author"       json:"author"`
	Language    string        `db:"language"     json:"language"`
	CategoryID  *string       `db:"category_id"  json:"category_id,omitempty"`
	SourceID    string        `db:"source_id"    json:"source_id"`
	SourceURL   string        `db:"source_url"   json:"source_url"`
	Status      Status        `db:"status"       json:"status"`
	AIInfo      AIInfo        `db:"-"            json:"ai_info"`
	SEO         SEO           `db:"-"            json:"seo"`
	FactCheck   *FactCheck    `db:"-"            json:"fact_check,omitempty"`
	SocialMedia *SocialMedia  `db:"-"            json:"social_media,omitempty"`
	Translations []Translation `db:"-"           json:"translations,omitempty"`
	PublishedAt *time.Time    `db:"published_at" json:"published_at,omitempty"`
	ViewCount   int64         `db:"view_count"   json:"view_count"`
	Version     int64         `db:"version"      json:"version"`
	CreatedAt   time.Time     `db:"created_at"   json:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at"   json:"updated_at"`
}

// Images is a JSONB-mapped slice of Image.
type Images []Image

// Tags is a JSONB-mapped slice of strings.
type Tags []string

// Value implements driver.Valuer for database storage.
func (im Images) Value() (driver.Value, error) {
	if im == nil {
		im = Images{}
	}
	return json.Marshal(im)
}

// Scan implements sql.Scanner for database retrieval.
func (im *Images) Scan(value any) error {
	if value == nil {
		*im = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("images: unsupported scan type %T", value)
	}
	return json.Unmarshal(bytes, im)
}

// Value implements driver.Valuer for database storage.
func (t Tags) Value() (driver.Value, error) {
	if t == nil {
		t = Tags{}
	}
	return json.Marshal(t)
}

// Scan implements sql.Scanner for database retrieval.
func (t *Tags) Scan(value any) error {
	if value == nil {
		*t = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("tags: unsupported scan type %T", value)
	}
	return json.Unmarshal(bytes, t)
}

// NewArticle creates a draft article with validation. The hash is the content
// fingerprint computed by the dedup package; it is unique across all articles
// and never reused.
func NewArticle(hash, title, summary, content, sourceID string) (*Article, error) {
	if hash == "" {
		return nil, fmt.Errorf("%w: hash is required", ErrInvalidArticle)
	}
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidArticle)
	}
	if sourceID == "" {
		return nil, fmt.Errorf("%w: source_id is required", ErrInvalidArticle)
	}

	if len(summary) > maxSummaryLen {
		summary = summary[:maxSummaryLen]
	}

	now := time.Now().UTC()
	return &Article{
		Hash:      hash,
		Slug:      Slugify(title),
		Title:     title,
		Summary:   summary,
		Content:   content,
		Images:    Images{},
		Tags:      Tags{},
		Language:  "en",
		SourceID:  sourceID,
		Status:    StatusDraft,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Publishable reports whether the article satisfies the publication gates:
// it is not rejected and its plagiarism score is at or below the threshold.
func (a *Article) Publishable() error {
	if a.Status == StatusRejected {
		return fmt.Errorf("%w: cannot publish rejected article", ErrPreconditionViolation)
	}
	if a.AIInfo.PlagiarismScore > MaxPlagiarismScore {
		return fmt.Errorf("%w: plagiarism score %d exceeds threshold %d",
			ErrPreconditionViolation, a.AIInfo.PlagiarismScore, MaxPlagiarismScore)
	}
	return nil
}

// Publish transitions the article to published and stamps publishedAt exactly
// once. It fails with ErrPreconditionViolation and no mutation when the
// publication gates are not satisfied.
func (a *Article) Publish(now time.Time) error {
	if err := a.Publishable(); err != nil {
		return err
	}
	a.Status = StatusPublished
	if a.PublishedAt == nil {
		t := now.UTC()
		a.PublishedAt = &t
	}
	return nil
}

// Reject transitions the article to rejected. Rejection is terminal for the
// pipeline: downstream stages must not be enqueued for a rejected article.
// PublishedAt is cleared so it stays set only while the article is
// published, even when a published article is pulled back.
func (a *Article) Reject() {
	a.Status = StatusRejected
	a.PublishedAt = nil
}

// SetPlagiarismScore records the plagiarism score, clamped to 0-100.
func (a *Article) SetPlagiarismScore(score int) {
	if score < minScore {
		score = minScore
	}
	if score > maxScore {
		score = maxScore
	}
	a.AIInfo.PlagiarismScore = score
}

// SetConfidence records the rewrite confidence, clamped to 0-100.
func (a *Article) SetConfidence(confidence int) {
	if confidence < minScore {
		confidence = minScore
	}
	if confidence > maxScore {
		confidence = maxScore
	}
	a.AIInfo.Confidence = confidence
}

// MergeTags unions the given tags into the article's tag set, preserving the
// order of first appearance.
func (a *Article) MergeTags(tags []string) {
	seen := make(map[string]bool, len(a.Tags)+len(tags))
	for _, tag := range a.Tags {
		seen[tag] = true
	}
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		a.Tags = append(a.Tags, tag)
	}
}

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify derives a URL-safe slug from a title.
func Slugify(title string) string {
	slug := strings.ToLower(title)
	slug = nonSlugChars.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}
