package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/newsforge/pipeline/internal/domain"
)

// jobLogColumns is the column list for SELECT on job_logs.
const jobLogColumns = `id, job_type, status, started_at, finished_at,
	duration_ms, meta, created_at, updated_at`

// JobLogRepository manages the append-only job log audit trail. Records are
// inserted at stage entry and finalized at stage exit; the pipeline never
// deletes them.
type JobLogRepository struct {
	db *sqlx.DB
}

// NewJobLogRepository creates a new repository.
func NewJobLogRepository(db *sqlx.DB) *JobLogRepository {
	return &JobLogRepository{db: db}
}

// Insert persists a freshly created (running) job log.
func (r *JobLogRepository) Insert(ctx context.Context, log *domain.JobLog) error {
	if log.ID == "" {
		log.ID = uuid.New().String()
	}

	query := `
		INSERT INTO job_logs (
			id, job_type, status, started_at, finished_at,
			duration_ms, meta, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, query,
		log.ID, log.JobType, log.Status, log.StartedAt, log.FinishedAt,
		log.DurationMS, log.Meta, log.CreatedAt, log.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job log: %w", err)
	}

	return nil
}

// Finish writes the terminal status, finish time, duration and result meta.
func (r *JobLogRepository) Finish(ctx context.Context, log *domain.JobLog) error {
	query := `
		UPDATE job_logs
		SET status = $1, finished_at = $2, duration_ms = $3, meta = $4, updated_at = $5
		WHERE id = $6
	`

	result, err := r.db.ExecContext(ctx, query,
		log.Status, log.FinishedAt, log.DurationMS, log.Meta, log.UpdatedAt, log.ID,
	)
	if err != nil {
		return fmt.Errorf("finish job log: %w", err)
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

// ListRecent returns the most recent job logs, optionally filtered by type.
func (r *JobLogRepository) ListRecent(ctx context.Context, jobType domain.JobType, limit int) ([]domain.JobLog, error) {
	var logs []domain.JobLog

	if jobType == "" {
		query := `SELECT ` + jobLogColumns + ` FROM job_logs ORDER BY started_at DESC LIMIT $1`
		if err := r.db.SelectContext(ctx, &logs, query, limit); err != nil {
			return nil, fmt.Errorf("list job logs: %w", err)
		}
		return logs, nil
	}

	query := `SELECT ` + jobLogColumns + ` FROM job_logs WHERE job_type = $1 ORDER BY started_at DESC LIMIT $2`
	if err := r.db.SelectContext(ctx, &logs, query, jobType, limit); err != nil {
		return nil, fmt.Errorf("list job logs: %w", err)
	}

	return logs, nil
}
