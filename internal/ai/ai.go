// Package ai defines the content intelligence capabilities the pipeline
// stages depend on, plus an HTTP client for the external AI service.
package ai

import (
	"context"
	"errors"

	"github.com/newsforge/pipeline/internal/domain"
)

// ErrUnavailable reports that the AI service could not be reached or
// returned a server error. Stages decide per capability whether that is
// fatal or degradable.
var ErrUnavailable = errors.New("ai service unavailable")

// Tone steers the rewriting voice.
type Tone string

const (
	ToneInformative Tone = "informative"
	ToneUrgent      Tone = "urgent"
)

// RewriteInput carries the raw article text into a rewrite request.
type RewriteInput struct {
	Title    string
	Summary  string
	Content  string
	Category string
	Tone     Tone
}

// RewriteResult is the transformed article text with the model's
// self-reported confidence (0 to 100). SEOTitle, MetaDescription, Keywords
// and Author are optional; the service omits them when it has nothing
// better than the input.
type RewriteResult struct {
	Title           string
	Summary         string
	Content         string
	Confidence      int
	Tags            []string
	SEOTitle        string
	MetaDescription string
	Keywords        []string
	Author          string
}

// PlagiarismResult reports overlap with already-published material.
// Score runs 0 to 100; Matches lists the overlapping source URLs. Approved
// is the checker's own verdict and is authoritative over any local
// reading of the score.
type PlagiarismResult struct {
	Score    int
	Matches  []string
	Approved bool
}

// ModerationResult is the editorial gate verdict.
type ModerationResult struct {
	Approved bool
	Reason   string
}

// FactCheckResult scores the reliability of an article's claims.
type FactCheckResult struct {
	IsReliable  bool
	Confidence  int
	Issues      []string
	Suggestions []string
}

// SocialPost is composed copy for one platform.
type SocialPost struct {
	Platform string
	Text     string
	Hashtags []string
}

// ContentTransformer rewrites article text and produces SEO metadata.
type ContentTransformer interface {
	Rewrite(ctx context.Context, input RewriteInput) (*RewriteResult, error)
	GenerateSEO(ctx context.Context, title, summary string, tags []string) (*domain.SEO, error)
}

// PlagiarismChecker scores content overlap against published material and
// renders an approval verdict.
type PlagiarismChecker interface {
	CheckPlagiarism(ctx context.Context, content, title string) (*PlagiarismResult, error)
}

// ModerationChecker applies the editorial policy gate.
type ModerationChecker interface {
	Moderate(ctx context.Context, title, content string) (*ModerationResult, error)
}

// FactChecker verifies article claims against known sources.
type FactChecker interface {
	FactCheck(ctx context.Context, title, content string) (*FactCheckResult, error)
}

// SocialComposer writes platform-specific promotional copy.
type SocialComposer interface {
	ComposePosts(ctx context.Context, title, summary, url string) ([]SocialPost, error)
}

// ImageResult is a generated illustration for an article.
type ImageResult struct {
	URL string
	Alt string
}

// ImageGenerator produces an illustration for articles that arrived
// without one.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, title, summary string) (*ImageResult, error)
}

// ToneFor picks the rewriting voice for a category. Breaking news reads
// urgent; everything else stays informative.
func ToneFor(category string) Tone {
	if category == "breaking" {
		return ToneUrgent
	}

	return ToneInformative
}
