package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/newsforge/pipeline/internal/domain"
)

// pqUniqueViolation is the PostgreSQL error code for unique_violation.
const pqUniqueViolation = "23505"

// articleColumns is the column list for SELECT on articles (single source for
// schema changes).
const articleColumns = `id, hash, slug, title, summary, content, images, tags,
	author, language, category_id, source_id, source_url, status,
	ai_rewritten, ai_confidence, ai_plagiarism_score,
	seo_meta_description, seo_keywords, fact_check, social_media, translations,
	published_at, view_count, version, created_at, updated_at`

// articleRow is the flat scan target for the articles table. The nested
// sub-records on domain.Article are stored as discrete columns (aiInfo, seo)
// or JSONB blobs (factCheck, socialMedia, translations).
type articleRow struct {
	ID                 string            `db:"id"`
	Hash               string            `db:"hash"`
	Slug               string            `db:"slug"`
	Title              string            `db:"title"`
	Summary            string            `db:"summary"`
	Content            string            `db:"content"`
	Images             domain.Images     `db:"images"`
	Tags               domain.Tags       `db:"tags"`
	Author             string            `db:"author"`
	Language           string            `db:"language"`
	CategoryID         *string           `db:"category_id"`
	SourceID           string            `db:"source_id"`
	SourceURL          string            `db:"source_url"`
	Status             string            `db:"status"`
	AIRewritten        bool              `db:"ai_rewritten"`
	AIConfidence       int               `db:"ai_confidence"`
	AIPlagiarismScore  int               `db:"ai_plagiarism_score"`
	SEOMetaDescription string            `db:"seo_meta_description"`
	SEOKeywords        domain.StringList `db:"seo_keywords"`
	FactCheck          factCheckJSON     `db:"fact_check"`
	SocialMedia        socialMediaJSON   `db:"social_media"`
	Translations       translationsJSON  `db:"translations"`
	PublishedAt        *time.Time        `db:"published_at"`
	ViewCount          int64             `db:"view_count"`
	Version            int64             `db:"version"`
	CreatedAt          time.Time         `db:"created_at"`
	UpdatedAt          time.Time         `db:"updated_at"`
}

func (r *articleRow) toDomain() *domain.Article {
	return &domain.Article{
		ID:        r.ID,
		Hash:      r.Hash,
		Slug:      r.Slug,
		Title:     r.Title,
		Summary:   r.Summary,
		Content:   r.Content,
		Images:    r.Images,
		Tags:      r.Tags,
		Author:    r.Author,
		Language:  r.Language,
		CategoryID: r.CategoryID,
		SourceID:  r.SourceID,
		SourceURL: r.SourceURL,
		Status:    domain.Status(r.Status),
		AIInfo: domain.AIInfo{
			Rewritten:       r.AIRewritten,
			Confidence:      r.AIConfidence,
			PlagiarismScore: r.AIPlagiarismScore,
		},
		SEO: domain.SEO{
			MetaDescription: r.SEOMetaDescription,
			Keywords:        r.SEOKeywords,
		},
		FactCheck:    r.FactCheck.value,
		SocialMedia:  r.SocialMedia.value,
		Translations: r.Translations.value,
		PublishedAt:  r.PublishedAt,
		ViewCount:    r.ViewCount,
		Version:      r.Version,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

// ArticleRepository manages Article persistence.
type ArticleRepository struct {
	db *sqlx.DB
}

// NewArticleRepository creates a new repository.
func NewArticleRepository(db *sqlx.DB) *ArticleRepository {
	return &ArticleRepository{db: db}
}

// Create inserts a new draft article. A hash unique violation is reported as
// domain.ErrDuplicateContent: the item was already ingested and the caller
// should skip it, not fail.
func (r *ArticleRepository) Create(ctx context.Context, article *domain.Article) error {
	if article.ID == "" {
		article.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	article.CreatedAt = now
	article.UpdatedAt = now

	query := `
		INSERT INTO articles (
			id, hash, slug, title, summary, content, images, tags,
			author, language, category_id, source_id, source_url, status,
			ai_rewritten, ai_confidence, ai_plagiarism_score,
			seo_meta_description, seo_keywords,
			published_at, view_count, version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23, $24)
	`

	_, err := r.db.ExecContext(ctx, query,
		article.ID, article.Hash, article.Slug, article.Title, article.Summary,
		article.Content, article.Images, article.Tags,
		article.Author, article.Language, article.CategoryID, article.SourceID,
		article.SourceURL, article.Status,
		article.AIInfo.Rewritten, article.AIInfo.Confidence, article.AIInfo.PlagiarismScore,
		article.SEO.MetaDescription, domain.StringList(article.SEO.Keywords),
		article.PublishedAt, article.ViewCount, article.Version,
		article.CreatedAt, article.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return domain.ErrDuplicateContent
		}
		return fmt.Errorf("insert article: %w", err)
	}

	return nil
}

// GetByID loads an article, returning domain.ErrNotFound when absent.
func (r *ArticleRepository) GetByID(ctx context.Context, id string) (*domain.Article, error) {
	var row articleRow
	query := `SELECT ` + articleColumns + ` FROM articles WHERE id = $1`

	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get article: %w", err)
	}

	return row.toDomain(), nil
}

// GetByHash checks for an existing article with the given content fingerprint.
func (r *ArticleRepository) GetByHash(ctx context.Context, hash string) (*domain.Article, error) {
	var row articleRow
	query := `SELECT ` + articleColumns + ` FROM articles WHERE hash = $1`

	if err := r.db.GetContext(ctx, &row, query, hash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get article by hash: %w", err)
	}

	return row.toDomain(), nil
}

// Update saves the article with an optimistic version check: the UPDATE only
// matches the version the caller loaded, and the stored version is
// incremented. A zero-row update against an existing article means a
// concurrent writer won the race and yields domain.ErrVersionConflict.
func (r *ArticleRepository) Update(ctx context.Context, article *domain.Article) error {
	query := `
		UPDATE articles SET
			slug = $1, title = $2, summary = $3, content = $4,
			images = $5, tags = $6, author = $7, language = $8,
			category_id = $9, status = $10,
			ai_rewritten = $11, ai_confidence = $12, ai_plagiarism_score = $13,
			seo_meta_description = $14, seo_keywords = $15,
			fact_check = $16, social_media = $17, translations = $18,
			published_at = $19, version = version + 1, updated_at = NOW()
		WHERE id = $20 AND version = $21
	`

	result, err := r.db.ExecContext(ctx, query,
		article.Slug, article.Title, article.Summary, article.Content,
		article.Images, article.Tags, article.Author, article.Language,
		article.CategoryID, article.Status,
		article.AIInfo.Rewritten, article.AIInfo.Confidence, article.AIInfo.PlagiarismScore,
		article.SEO.MetaDescription, domain.StringList(article.SEO.Keywords),
		factCheckJSON{article.FactCheck}, socialMediaJSON{article.SocialMedia},
		translationsJSON{article.Translations},
		article.PublishedAt,
		article.ID, article.Version,
	)
	if err != nil {
		return fmt.Errorf("update article: %w", err)
	}

	rows, rowsErr := result.RowsAffected()
	if rowsErr != nil {
		return fmt.Errorf("get affected rows: %w", rowsErr)
	}
	if rows == 0 {
		exists, existsErr := r.exists(ctx, article.ID)
		if existsErr != nil {
			return existsErr
		}
		if !exists {
			return domain.ErrNotFound
		}
		return domain.ErrVersionConflict
	}

	article.Version++
	return nil
}

func (r *ArticleRepository) exists(ctx context.Context, id string) (bool, error) {
	var found bool
	query := `SELECT EXISTS (SELECT 1 FROM articles WHERE id = $1)`
	if err := r.db.GetContext(ctx, &found, query, id); err != nil {
		return false, fmt.Errorf("check article exists: %w", err)
	}
	return found, nil
}
