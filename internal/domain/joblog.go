package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// JobType identifies which pipeline stage a job log belongs to.
type JobType string

const (
	JobTypeScrape      JobType = "scrape"
	JobTypeRewrite     JobType = "rewrite"
	JobTypePlagiarism  JobType = "plagiarism-check"
	JobTypeModerate    JobType = "moderate"
	JobTypePublish     JobType = "publish"
	JobTypeFactCheck   JobType = "fact-check"
	JobTypeSocialMedia JobType = "social-media"
	JobTypeImage       JobType = "image-generation"
)

// validJobTypes maps every recognised JobType value to true for O(1) lookup.
var validJobTypes = map[JobType]bool{
	JobTypeScrape:      true,
	JobTypeRewrite:     true,
	JobTypePlagiarism:  true,
	JobTypeModerate:    true,
	JobTypePublish:     true,
	JobTypeFactCheck:   true,
	JobTypeSocialMedia: true,
	JobTypeImage:       true,
}

// IsValid reports whether t is a recognised job type.
func (t JobType) IsValid() bool {
	return validJobTypes[t]
}

// JobStatus represents the state of a job log record.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// JobMeta carries stage-specific result fields on a job log. The fixed fields
// cover every stage's known outputs; Extra holds forward-compatible
// string-keyed extensions.
type JobMeta struct {
	JobID            string `json:"job_id,omitempty"`
	SourceID         string `json:"source_id,omitempty"`
	ArticleID        string `json:"article_id,omitempty"`
	Error            string `json:"error,omitempty"`
	TotalItems       int    `json:"total_items,omitempty"`
	NewArticles      int    `json:"new_articles,omitempty"`
	SourcesProcessed int    `json:"sources_processed,omitempty"`
	Confidence       int    `json:"confidence,omitempty"`
	PlagiarismScore  int    `json:"plagiarism_score,omitempty"`
	Approved         *bool  `json:"approved,omitempty"`
	Matches          int    `json:"matches,omitempty"`

	Extra map[string]string `json:"extra,omitempty"`
}

// Value implements driver.Valuer for database storage.
func (m JobMeta) Value() (driver.Value, error) {
	return json.Marshal(m)
}

// Scan implements sql.Scanner for database retrieval.
func (m *JobMeta) Scan(value any) error {
	if value == nil {
		*m = JobMeta{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("job meta: unsupported scan type %T", value)
	}
	return json.Unmarshal(bytes, m)
}

// JobLog is the append-only audit record of a single stage execution attempt.
// It is owned exclusively by the stage handler that created it.
type JobLog struct {
	ID         string     `db:"id"          json:"id"`
	JobType    JobType    `db:"job_type"    json:"job_type"`
	Status     JobStatus  `db:"status"      json:"status"`
	StartedAt  time.Time  `db:"started_at"  json:"started_at"`
	FinishedAt *time.Time `db:"finished_at" json:"finished_at,omitempty"`
	DurationMS *int64     `db:"duration_ms" json:"duration_ms,omitempty"`
	Meta       JobMeta    `db:"meta"        json:"meta"`
	CreatedAt  time.Time  `db:"created_at"  json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at"  json:"updated_at"`
}

// NewJobLog creates a running job log stamped at now. Handlers create the
// record before doing any work.
func NewJobLog(jobType JobType, meta JobMeta, now time.Time) *JobLog {
	now = now.UTC()
	return &JobLog{
		JobType:   jobType,
		Status:    JobStatusRunning,
		StartedAt: now,
		Meta:      meta,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Complete finalizes the log as completed with the given result meta. The
// error field of the previous meta is preserved empty; duration is derived
// from the start and finish times.
func (l *JobLog) Complete(meta JobMeta, now time.Time) {
	l.Status = JobStatusCompleted
	l.Meta = meta
	l.finish(now)
}

// Fail finalizes the log as failed, augmenting the meta with the error text.
func (l *JobLog) Fail(err error, now time.Time) {
	l.Status = JobStatusFailed
	if err != nil {
		l.Meta.Error = err.Error()
	}
	l.finish(now)
}

// Terminal reports whether the log has reached completed or failed.
func (l *JobLog) Terminal() bool {
	return l.Status == JobStatusCompleted || l.Status == JobStatusFailed
}

func (l *JobLog) finish(now time.Time) {
	now = now.UTC()
	l.FinishedAt = &now
	duration := now.Sub(l.StartedAt).Milliseconds()
	l.DurationMS = &duration
	l.UpdatedAt = now
}
