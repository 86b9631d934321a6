// Package api exposes the admin HTTP surface: stage triggers, job log
// inspection, source management, and health/metrics endpoints.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/newsforge/pipeline/internal/domain"
	"github.com/newsforge/pipeline/internal/logger"
	"github.com/newsforge/pipeline/internal/queue"
)

const (
	healthCheckTimeout   = 2 * time.Second
	healthStatusHealthy  = "healthy"
	healthStatusDegraded = "degraded"
	serviceVersion       = "1.0.0"
)

// ArticleReader loads articles for inspection endpoints.
type ArticleReader interface {
	GetByID(ctx context.Context, id string) (*domain.Article, error)
}

// SourceStore manages scrape sources.
type SourceStore interface {
	Create(ctx context.Context, source *domain.Source) error
	GetByID(ctx context.Context, id string) (*domain.Source, error)
	ListActive(ctx context.Context) ([]domain.Source, error)
}

// JobLogReader lists recent stage executions.
type JobLogReader interface {
	ListRecent(ctx context.Context, jobType domain.JobType, limit int) ([]domain.JobLog, error)
}

// QueueFabric is the broker surface the API needs: triggering stages and
// reading queue counters.
type QueueFabric interface {
	Enqueue(ctx context.Context, queueName string, payload any) (*queue.Job, error)
	Stats(ctx context.Context) (map[string]queue.QueueStats, error)
}

// Pinger reports backend connectivity for health checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Router holds the API dependencies.
type Router struct {
	articles ArticleReader
	sources  SourceStore
	jobLogs  JobLogReader
	queues   QueueFabric
	db       Pinger
	redis    Pinger
	registry *prometheus.Registry
	logger   logger.Logger
	debug    bool
}

// Deps bundles the router's collaborators.
type Deps struct {
	Articles ArticleReader
	Sources  SourceStore
	JobLogs  JobLogReader
	Queues   QueueFabric
	DB       Pinger
	Redis    Pinger
	Registry *prometheus.Registry
	Logger   logger.Logger
	Debug    bool
}

func NewRouter(deps Deps) *Router {
	return &Router{
		articles: deps.Articles,
		sources:  deps.Sources,
		jobLogs:  deps.JobLogs,
		queues:   deps.Queues,
		db:       deps.DB,
		redis:    deps.Redis,
		registry: deps.Registry,
		logger:   deps.Logger,
		debug:    deps.Debug,
	}
}

// Engine builds the gin engine with all routes registered.
func (r *Router) Engine() *gin.Engine {
	if !r.debug {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.GET("/health", r.healthCheck)
	if r.registry != nil {
		engine.GET("/metrics", gin.WrapH(
			promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{}),
		))
	}

	v1 := engine.Group("/api/v1")

	v1.POST("/scrape", r.triggerScrape)

	articles := v1.Group("/articles")
	articles.GET("/:id", r.getArticle)
	articles.POST("/:id/rewrite", r.stageTrigger(queue.QueueRewrite))
	articles.POST("/:id/plagiarism-check", r.stageTrigger(queue.QueuePlagiarism))
	articles.POST("/:id/moderate", r.stageTrigger(queue.QueueModerate))
	articles.POST("/:id/publish", r.stageTrigger(queue.QueuePublish))
	articles.POST("/:id/fact-check", r.stageTrigger(queue.QueueFactCheck))
	articles.POST("/:id/social-media", r.stageTrigger(queue.QueueSocialMedia))
	articles.POST("/:id/generate-image", r.stageTrigger(queue.QueueImage))

	sources := v1.Group("/sources")
	sources.GET("", r.listSources)
	sources.POST("", r.createSource)
	sources.GET("/:id", r.getSource)

	v1.GET("/joblogs", r.listJobLogs)
	v1.GET("/queues", r.queueStats)

	return engine
}

// healthCheck reports service status with backend connectivity.
func (r *Router) healthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	health := gin.H{
		"status":  healthStatusHealthy,
		"service": "pipeline",
		"version": serviceVersion,
	}

	dbConnected := r.db != nil && r.db.Ping(ctx) == nil
	redisConnected := r.redis != nil && r.redis.Ping(ctx) == nil

	health["database"] = gin.H{"connected": dbConnected}
	health["redis"] = gin.H{"connected": redisConnected}

	if !dbConnected || !redisConnected {
		health["status"] = healthStatusDegraded
	}

	c.JSON(http.StatusOK, health)
}
