// Package dedup computes content fingerprints and gates duplicate ingestion.
package dedup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/newsforge/pipeline/internal/domain"
	"github.com/newsforge/pipeline/internal/logger"
)

// Fingerprint returns the deterministic content hash for an incoming item:
// the SHA-256 hex digest of the normalized title, summary and source
// identity. Identical (title, summary, source) triples always produce the
// same fingerprint; collision probability is accepted as negligible.
func Fingerprint(title, summary, sourceID string) string {
	h := sha256.New()
	h.Write([]byte(normalize(title)))
	h.Write([]byte{0})
	h.Write([]byte(normalize(summary)))
	h.Write([]byte{0})
	h.Write([]byte(sourceID))
	return hex.EncodeToString(h.Sum(nil))
}

// normalize lowercases and collapses internal whitespace so that trivial
// formatting differences between feed fetches do not defeat deduplication.
func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// ArticleLookup is the read side of the article store used by the
// deduplication gate.
type ArticleLookup interface {
	GetByHash(ctx context.Context, hash string) (*domain.Article, error)
}

// Deduplicator rejects previously seen items by content fingerprint. The
// check is read-only; the insert-or-skip race between concurrent scrape jobs
// is resolved by the article store's unique constraint on hash.
type Deduplicator struct {
	articles ArticleLookup
	logger   logger.Logger
}

// NewDeduplicator creates a deduplicator over the given article lookup.
func NewDeduplicator(articles ArticleLookup, log logger.Logger) *Deduplicator {
	return &Deduplicator{
		articles: articles,
		logger:   log,
	}
}

// Seen reports whether an article with the given fingerprint already exists.
// Lookup failures other than not-found are returned to the caller; a
// transient store error must not be mistaken for "new content".
func (d *Deduplicator) Seen(ctx context.Context, hash string) (bool, error) {
	_, err := d.articles.GetByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	d.logger.Debug("duplicate content fingerprint",
		logger.String("hash", hash),
	)
	return true, nil
}
