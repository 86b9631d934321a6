package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/newsforge/pipeline/internal/domain"
)

// sourceColumns is the column list for SELECT on sources.
const sourceColumns = `id, name, url, feed_urls, language, category_ids,
	source_type, active, last_scraped, created_at, updated_at`

// SourceRepository manages Source persistence.
type SourceRepository struct {
	db *sqlx.DB
}

// NewSourceRepository creates a new repository.
func NewSourceRepository(db *sqlx.DB) *SourceRepository {
	return &SourceRepository{db: db}
}

// Create inserts a new source.
func (r *SourceRepository) Create(ctx context.Context, source *domain.Source) error {
	if source.ID == "" {
		source.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	source.CreatedAt = now
	source.UpdatedAt = now

	query := `
		INSERT INTO sources (
			id, name, url, feed_urls, language, category_ids,
			source_type, active, last_scraped, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.ExecContext(ctx, query,
		source.ID, source.Name, source.URL, source.FeedURLs, source.Language,
		source.CategoryIDs, source.Type, source.Active, source.LastScraped,
		source.CreatedAt, source.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert source: %w", err)
	}

	return nil
}

// GetByID loads a source, returning domain.ErrNotFound when absent.
func (r *SourceRepository) GetByID(ctx context.Context, id string) (*domain.Source, error) {
	var source domain.Source
	query := `SELECT ` + sourceColumns + ` FROM sources WHERE id = $1`

	if err := r.db.GetContext(ctx, &source, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get source: %w", err)
	}

	return &source, nil
}

// ListActive returns all sources with the active flag set.
func (r *SourceRepository) ListActive(ctx context.Context) ([]domain.Source, error) {
	var sources []domain.Source
	query := `SELECT ` + sourceColumns + ` FROM sources WHERE active = TRUE ORDER BY name`

	if err := r.db.SelectContext(ctx, &sources, query); err != nil {
		return nil, fmt.Errorf("list active sources: %w", err)
	}

	return sources, nil
}

// TouchLastScraped advances the source's lastScraped timestamp. Last writer
// wins; the value is advisory metadata, not a correctness gate.
func (r *SourceRepository) TouchLastScraped(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE sources SET last_scraped = $1, updated_at = NOW() WHERE id = $2`

	result, err := r.db.ExecContext(ctx, query, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("touch last scraped: %w", err)
	}

	rows, rowsErr := result.RowsAffected()
	if rowsErr != nil {
		return fmt.Errorf("get affected rows: %w", rowsErr)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}

	return nil
}
