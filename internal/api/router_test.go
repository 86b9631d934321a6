//nolint:testpackage // Router internals are wired directly
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/newsforge/pipeline/internal/domain"
	"github.com/newsforge/pipeline/internal/logger"
	"github.com/newsforge/pipeline/internal/queue"
)

type mockArticles struct {
	getByIDFn func(ctx context.Context, id string) (*domain.Article, error)
}

func (m *mockArticles) GetByID(ctx context.Context, id string) (*domain.Article, error) {
	return m.getByIDFn(ctx, id)
}

type mockSources struct {
	createFn     func(ctx context.Context, source *domain.Source) error
	getByIDFn    func(ctx context.Context, id string) (*domain.Source, error)
	listActiveFn func(ctx context.Context) ([]domain.Source, error)
}

func (m *mockSources) Create(ctx context.Context, source *domain.Source) error {
	return m.createFn(ctx, source)
}

func (m *mockSources) GetByID(ctx context.Context, id string) (*domain.Source, error) {
	return m.getByIDFn(ctx, id)
}

func (m *mockSources) ListActive(ctx context.Context) ([]domain.Source, error) {
	return m.listActiveFn(ctx)
}

type mockJobLogs struct {
	listRecentFn func(ctx context.Context, jobType domain.JobType, limit int) ([]domain.JobLog, error)
}

func (m *mockJobLogs) ListRecent(ctx context.Context, jobType domain.JobType, limit int) ([]domain.JobLog, error) {
	return m.listRecentFn(ctx, jobType, limit)
}

type mockQueues struct {
	enqueued []string
	err      error
}

func (m *mockQueues) Enqueue(_ context.Context, queueName string, _ any) (*queue.Job, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.enqueued = append(m.enqueued, queueName)
	return &queue.Job{ID: "job-1", Queue: queueName}, nil
}

func (m *mockQueues) Stats(context.Context) (map[string]queue.QueueStats, error) {
	return map[string]queue.QueueStats{
		queue.QueueScrape: {Pending: 2, Completed: 5, Failed: 1},
	}, nil
}

type mockPinger struct{ err error }

func (m *mockPinger) Ping(context.Context) error { return m.err }

type testRouter struct {
	articles *mockArticles
	sources  *mockSources
	jobLogs  *mockJobLogs
	queues   *mockQueues
	engine   http.Handler
}

func newTestRouter() *testRouter {
	tr := &testRouter{
		articles: &mockArticles{},
		sources:  &mockSources{},
		jobLogs:  &mockJobLogs{},
		queues:   &mockQueues{},
	}

	router := NewRouter(Deps{
		Articles: tr.articles,
		Sources:  tr.sources,
		JobLogs:  tr.jobLogs,
		Queues:   tr.queues,
		DB:       &mockPinger{},
		Redis:    &mockPinger{},
		Logger:   logger.NewNopLogger(),
	})
	tr.engine = router.Engine()

	return tr
}

func (tr *testRouter) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	tr.engine.ServeHTTP(rec, req)

	return rec
}

func TestHealthCheck(t *testing.T) {
	tr := newTestRouter()

	rec := tr.do(t, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != healthStatusHealthy {
		t.Errorf("status = %v", body["status"])
	}
}

func TestHealthCheck_DegradedOnBackendFailure(t *testing.T) {
	tr := &testRouter{
		articles: &mockArticles{},
		sources:  &mockSources{},
		jobLogs:  &mockJobLogs{},
		queues:   &mockQueues{},
	}
	router := NewRouter(Deps{
		Articles: tr.articles,
		Sources:  tr.sources,
		JobLogs:  tr.jobLogs,
		Queues:   tr.queues,
		DB:       &mockPinger{err: errors.New("connection refused")},
		Redis:    &mockPinger{},
		Logger:   logger.NewNopLogger(),
	})
	tr.engine = router.Engine()

	rec := tr.do(t, http.MethodGet, "/health", "")

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != healthStatusDegraded {
		t.Errorf("status = %v, want degraded", body["status"])
	}
}

func TestTriggerScrape_AllSources(t *testing.T) {
	tr := newTestRouter()

	rec := tr.do(t, http.MethodPost, "/api/v1/scrape", "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if len(tr.queues.enqueued) != 1 || tr.queues.enqueued[0] != queue.QueueScrape {
		t.Errorf("enqueued = %v", tr.queues.enqueued)
	}
}

func TestTriggerScrape_SingleSource(t *testing.T) {
	tr := newTestRouter()

	rec := tr.do(t, http.MethodPost, "/api/v1/scrape", `{"source_id": "src-1"}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestStageTrigger_EnqueuesForExistingArticle(t *testing.T) {
	tr := newTestRouter()
	tr.articles.getByIDFn = func(_ context.Context, id string) (*domain.Article, error) {
		return &domain.Article{ID: id}, nil
	}

	rec := tr.do(t, http.MethodPost, "/api/v1/articles/a-1/publish", "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if len(tr.queues.enqueued) != 1 || tr.queues.enqueued[0] != queue.QueuePublish {
		t.Errorf("enqueued = %v", tr.queues.enqueued)
	}
}

func TestStageTrigger_GenerateImage(t *testing.T) {
	tr := newTestRouter()
	tr.articles.getByIDFn = func(_ context.Context, id string) (*domain.Article, error) {
		return &domain.Article{ID: id}, nil
	}

	rec := tr.do(t, http.MethodPost, "/api/v1/articles/a-1/generate-image", "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if len(tr.queues.enqueued) != 1 || tr.queues.enqueued[0] != queue.QueueImage {
		t.Errorf("enqueued = %v, want %s", tr.queues.enqueued, queue.QueueImage)
	}
}

func TestStageTrigger_UnknownArticle404(t *testing.T) {
	tr := newTestRouter()
	tr.articles.getByIDFn = func(context.Context, string) (*domain.Article, error) {
		return nil, domain.ErrNotFound
	}

	rec := tr.do(t, http.MethodPost, "/api/v1/articles/missing/rewrite", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if len(tr.queues.enqueued) != 0 {
		t.Errorf("enqueued = %v, missing article must not enqueue", tr.queues.enqueued)
	}
}

func TestGetArticle_InternalErrorIsGeneric(t *testing.T) {
	tr := newTestRouter()
	tr.articles.getByIDFn = func(context.Context, string) (*domain.Article, error) {
		return nil, errors.New("pq: relation articles does not exist")
	}

	rec := tr.do(t, http.MethodGet, "/api/v1/articles/a-1", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "pq:") {
		t.Error("response must not leak database internals")
	}
}

func TestCreateSource_Validation(t *testing.T) {
	tr := newTestRouter()
	tr.sources.createFn = func(context.Context, *domain.Source) error { return nil }

	rec := tr.do(t, http.MethodPost, "/api/v1/sources", `{"name": "Example"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 on missing source_type", rec.Code)
	}

	rec = tr.do(t, http.MethodPost, "/api/v1/sources",
		`{"name": "Example", "source_type": "rss", "feed_urls": ["https://example.com/rss"]}`)
	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestListJobLogs_FiltersAndLimits(t *testing.T) {
	tr := newTestRouter()

	var gotType domain.JobType
	var gotLimit int
	tr.jobLogs.listRecentFn = func(_ context.Context, jobType domain.JobType, limit int) ([]domain.JobLog, error) {
		gotType = jobType
		gotLimit = limit
		return []domain.JobLog{{ID: "log-1", JobType: jobType}}, nil
	}

	rec := tr.do(t, http.MethodGet, "/api/v1/joblogs?type=scrape&limit=5", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if gotType != domain.JobTypeScrape || gotLimit != 5 {
		t.Errorf("filter = (%q, %d)", gotType, gotLimit)
	}
}

func TestListJobLogs_UnknownTypeRejected(t *testing.T) {
	tr := newTestRouter()

	rec := tr.do(t, http.MethodGet, "/api/v1/joblogs?type=banana", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestQueueStats(t *testing.T) {
	tr := newTestRouter()

	rec := tr.do(t, http.MethodGet, "/api/v1/queues", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body struct {
		Queues map[string]queue.QueueStats `json:"queues"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Queues[queue.QueueScrape].Pending != 2 {
		t.Errorf("stats = %+v", body.Queues)
	}
}
