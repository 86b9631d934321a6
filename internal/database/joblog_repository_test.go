package database_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/newsforge/pipeline/internal/database"
	"github.com/newsforge/pipeline/internal/domain"
)

func TestJobLogRepository_InsertAndFinish(t *testing.T) {
	sqlxDB, mock := newMockDB(t)
	repo := database.NewJobLogRepository(sqlxDB)
	ctx := context.Background()

	started := time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC)
	log := domain.NewJobLog(domain.JobTypeScrape, domain.JobMeta{SourceID: "src-1"}, started)

	mock.ExpectExec("INSERT INTO job_logs").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Insert(ctx, log); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if log.ID == "" {
		t.Error("expected Insert to assign an ID")
	}

	log.Complete(domain.JobMeta{SourceID: "src-1", TotalItems: 12, NewArticles: 4}, started.Add(time.Second))

	mock.ExpectExec("UPDATE job_logs").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Finish(ctx, log); err != nil {
		t.Errorf("Finish() error = %v", err)
	}

	if expectErr := mock.ExpectationsWereMet(); expectErr != nil {
		t.Errorf("unfulfilled expectations: %v", expectErr)
	}
}

func TestJobLogRepository_Finish_NotFound(t *testing.T) {
	sqlxDB, mock := newMockDB(t)
	repo := database.NewJobLogRepository(sqlxDB)
	ctx := context.Background()

	log := domain.NewJobLog(domain.JobTypePublish, domain.JobMeta{}, time.Now().UTC())
	log.ID = "gone"
	log.Fail(errors.New("boom"), time.Now().UTC())

	mock.ExpectExec("UPDATE job_logs").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Finish(ctx, log); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Finish() error = %v, want ErrNotFound", err)
	}
}

func TestJobLogRepository_ListRecent(t *testing.T) {
	sqlxDB, mock := newMockDB(t)
	repo := database.NewJobLogRepository(sqlxDB)
	ctx := context.Background()

	columns := []string{
		"id", "job_type", "status", "started_at", "finished_at",
		"duration_ms", "meta", "created_at", "updated_at",
	}
	now := time.Now().UTC()
	rows := sqlmock.NewRows(columns).
		AddRow("l-1", "scrape", "completed", now, now, int64(10), []byte(`{}`), now, now).
		AddRow("l-2", "scrape", "failed", now, now, int64(5), []byte(`{"error":"boom"}`), now, now)

	mock.ExpectQuery("SELECT (.+) FROM job_logs WHERE job_type").
		WithArgs("scrape", 20).
		WillReturnRows(rows)

	logs, err := repo.ListRecent(ctx, domain.JobTypeScrape, 20)
	if err != nil {
		t.Fatalf("ListRecent() error = %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("ListRecent() returned %d logs, want 2", len(logs))
	}
	if logs[1].Meta.Error != "boom" {
		t.Errorf("Meta.Error = %q, want %q", logs[1].Meta.Error, "boom")
	}
}
