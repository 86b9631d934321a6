package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/newsforge/pipeline/internal/domain"
	"github.com/newsforge/pipeline/internal/logger"
	"github.com/newsforge/pipeline/internal/queue"
)

const defaultJobLogLimit = 50

// triggerScrape enqueues a scrape of one source or all active sources.
// POST /api/v1/scrape
func (r *Router) triggerScrape(c *gin.Context) {
	var req struct {
		SourceID string `json:"source_id"`
	}
	// An empty body means scrape everything.
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid request payload",
				"details": err.Error(),
			})
			return
		}
	}

	job, err := r.queues.Enqueue(c.Request.Context(), queue.QueueScrape, queue.ScrapePayload{SourceID: req.SourceID})
	if err != nil {
		r.logger.Error("failed to enqueue scrape", logger.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to enqueue scrape"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"job_id": job.ID,
		"queue":  job.Queue,
	})
}

// stageTrigger returns a handler enqueuing the given stage for one article.
// POST /api/v1/articles/:id/<stage>
func (r *Router) stageTrigger(queueName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		articleID := c.Param("id")

		if _, err := r.articles.GetByID(c.Request.Context(), articleID); err != nil {
			handleLookupError(c, err, "article")
			return
		}

		job, err := r.queues.Enqueue(c.Request.Context(), queueName, queue.ArticlePayload{ArticleID: articleID})
		if err != nil {
			r.logger.Error("failed to enqueue stage",
				logger.String("queue", queueName),
				logger.String("article_id", articleID),
				logger.Error(err),
			)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to enqueue job"})
			return
		}

		c.JSON(http.StatusAccepted, gin.H{
			"job_id":     job.ID,
			"queue":      job.Queue,
			"article_id": articleID,
		})
	}
}

// getArticle retrieves an article by ID.
// GET /api/v1/articles/:id
func (r *Router) getArticle(c *gin.Context) {
	article, err := r.articles.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleLookupError(c, err, "article")
		return
	}

	c.JSON(http.StatusOK, article)
}

// listSources returns all active sources.
// GET /api/v1/sources
func (r *Router) listSources(c *gin.Context) {
	sources, err := r.sources.ListActive(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list sources"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sources": sources,
		"count":   len(sources),
	})
}

// createSource registers a new scrape source.
// POST /api/v1/sources
func (r *Router) createSource(c *gin.Context) {
	var source domain.Source
	if err := c.ShouldBindJSON(&source); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request payload",
			"details": err.Error(),
		})
		return
	}

	if source.Name == "" || source.Type == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and source_type are required"})
		return
	}
	if source.Type != domain.SourceTypeRSS && source.Type != domain.SourceTypeAPI {
		c.JSON(http.StatusBadRequest, gin.H{"error": "source_type must be rss or api"})
		return
	}

	if err := r.sources.Create(c.Request.Context(), &source); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create source"})
		return
	}

	c.JSON(http.StatusCreated, source)
}

// getSource retrieves a source by ID.
// GET /api/v1/sources/:id
func (r *Router) getSource(c *gin.Context) {
	source, err := r.sources.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleLookupError(c, err, "source")
		return
	}

	c.JSON(http.StatusOK, source)
}

// listJobLogs returns recent stage executions, optionally filtered by type.
// GET /api/v1/joblogs?type=scrape&limit=20
func (r *Router) listJobLogs(c *gin.Context) {
	jobType := domain.JobType(c.Query("type"))
	if jobType != "" && !jobType.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown job type"})
		return
	}

	limit := defaultJobLogLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	logs, err := r.jobLogs.ListRecent(c.Request.Context(), jobType, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list job logs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"job_logs": logs,
		"count":    len(logs),
	})
}

// queueStats returns pending/completed/failed counters per queue.
// GET /api/v1/queues
func (r *Router) queueStats(c *gin.Context) {
	stats, err := r.queues.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read queue stats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"queues": stats})
}

// handleLookupError maps a repository error onto an HTTP response without
// leaking internals.
func handleLookupError(c *gin.Context, err error, resource string) {
	if errors.Is(err, domain.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": resource + " not found"})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load " + resource})
}
