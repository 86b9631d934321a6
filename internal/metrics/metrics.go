// Package metrics exposes Prometheus instrumentation for the pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the pipeline's Prometheus collectors.
type Metrics struct {
	jobsProcessed     *prometheus.CounterVec
	jobDuration       *prometheus.HistogramVec
	articlesPublished prometheus.Counter
}

// New creates the collectors and registers them with the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		jobsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_jobs_processed_total",
			Help: "Jobs processed per queue, labelled by terminal status.",
		}, []string{"queue", "status"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pipeline_job_duration_seconds",
			Help:    "Stage handler execution time per queue.",
			Buckets: prometheus.DefBuckets,
		}, []string{"queue"}),
		articlesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pipeline_articles_published_total",
			Help: "Articles that reached the published state.",
		}),
	}

	reg.MustRegister(m.jobsProcessed, m.jobDuration, m.articlesPublished)
	return m
}

// ObserveJob records a terminal job outcome and its duration.
func (m *Metrics) ObserveJob(queue, status string, duration time.Duration) {
	m.jobsProcessed.WithLabelValues(queue, status).Inc()
	m.jobDuration.WithLabelValues(queue).Observe(duration.Seconds())
}

// ArticlePublished increments the published-articles counter.
func (m *Metrics) ArticlePublished() {
	m.articlesPublished.Inc()
}
