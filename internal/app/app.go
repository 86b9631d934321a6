// Package app wires the pipeline service together and manages its
// lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"

	"github.com/newsforge/pipeline/internal/ai"
	"github.com/newsforge/pipeline/internal/api"
	"github.com/newsforge/pipeline/internal/cache"
	"github.com/newsforge/pipeline/internal/config"
	"github.com/newsforge/pipeline/internal/database"
	"github.com/newsforge/pipeline/internal/dedup"
	"github.com/newsforge/pipeline/internal/fetch"
	"github.com/newsforge/pipeline/internal/logger"
	"github.com/newsforge/pipeline/internal/metrics"
	"github.com/newsforge/pipeline/internal/pipeline"
	"github.com/newsforge/pipeline/internal/queue"
	"github.com/newsforge/pipeline/internal/redis"
	"github.com/newsforge/pipeline/internal/scheduler"
)

// DefaultShutdownTimeout bounds graceful HTTP shutdown.
const DefaultShutdownTimeout = 30 * time.Second

// App holds the fully wired service.
type App struct {
	config    *config.Config
	logger    logger.Logger
	db        *sqlx.DB
	redis     *goredis.Client
	fabric    *queue.Fabric
	pool      *queue.WorkerPool
	scheduler *scheduler.Scheduler
	router    *api.Router
	version   string
}

// Options configures App construction.
type Options struct {
	ConfigPath string
	Version    string
}

// New loads configuration, connects the backends, and wires every
// component. Callers own Close.
func New(opts Options) (*App, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	appLogger, err := logger.NewLogger(cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	appLogger = appLogger.With(
		logger.String("service", "pipeline"),
		logger.String("version", opts.Version),
	)

	db, err := database.NewPostgresConnection(database.Config{
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		DBName:   cfg.Postgres.DBName,
		SSLMode:  cfg.Postgres.SSLMode,
	})
	if err != nil {
		_ = appLogger.Sync()
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	redisClient, err := redis.NewClient(cfg.Redis)
	if err != nil {
		database.Close(db)
		_ = appLogger.Sync()
		return nil, err
	}

	articles := database.NewArticleRepository(db)
	sources := database.NewSourceRepository(db)
	jobLogs := database.NewJobLogRepository(db)

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	fabric := queue.NewFabric(redisClient, cfg.Pipeline.MaxAttempts, appLogger)
	pool := queue.NewWorkerPool(fabric, cfg.Pipeline.WorkerConcurrency, m, appLogger)

	aiClient := ai.NewClient(cfg.AI.BaseURL, cfg.AI.Timeout)

	stages := pipeline.NewStages(pipeline.Deps{
		Articles: articles,
		Sources:  sources,
		JobLogs:  jobLogs,
		Fetcher: fetch.NewDispatcher(fetch.Options{
			Timeout:   cfg.Fetch.Timeout,
			UserAgent: cfg.Fetch.UserAgent,
			APIKey:    cfg.Fetch.APIKey,
		}, appLogger),
		Dedup:       dedup.NewDeduplicator(articles, appLogger),
		Transformer: aiClient,
		Plagiarism:  aiClient,
		Moderation:  aiClient,
		FactChecker: aiClient,
		Social:      aiClient,
		Images:      aiClient,
		Queues:      fabric,
		Cache:       cache.NewInvalidator(redisClient, appLogger),
		Metrics:     m,
		Logger:      appLogger,
		AutoAdvance: cfg.Pipeline.AutoAdvance,
	})
	stages.Register(pool)

	router := api.NewRouter(api.Deps{
		Articles: articles,
		Sources:  sources,
		JobLogs:  jobLogs,
		Queues:   fabric,
		DB:       dbPinger{db},
		Redis:    redisPinger{redisClient},
		Registry: registry,
		Logger:   appLogger,
		Debug:    cfg.Debug,
	})

	return &App{
		config:    cfg,
		logger:    appLogger,
		db:        db,
		redis:     redisClient,
		fabric:    fabric,
		pool:      pool,
		scheduler: scheduler.New(fabric, cfg.Pipeline.ScrapeInterval, appLogger),
		router:    router,
		version:   opts.Version,
	}, nil
}

// RunWorker starts the queue workers and the scrape scheduler, blocking
// until a shutdown signal or context cancellation.
func (a *App) RunWorker(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.pool.Start(ctx)
	if err := a.scheduler.Start(ctx); err != nil {
		a.pool.Stop()
		return err
	}

	a.logger.Info("worker started",
		logger.Int("concurrency", a.config.Pipeline.WorkerConcurrency),
		logger.Duration("scrape_interval", a.config.Pipeline.ScrapeInterval),
		logger.Bool("auto_advance", a.config.Pipeline.AutoAdvance),
	)

	waitForSignal(ctx)
	a.logger.Info("shutting down worker")

	a.scheduler.Stop()
	cancel()
	a.pool.Stop()

	return nil
}

// RunAPI serves the admin HTTP API, blocking until a shutdown signal or
// context cancellation.
func (a *App) RunAPI(ctx context.Context) error {
	server := &http.Server{
		Addr:         a.config.Server.Address,
		Handler:      a.router.Engine(),
		ReadTimeout:  a.config.Server.ReadTimeout,
		WriteTimeout: a.config.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		a.logger.Info("api server listening", logger.String("address", server.Addr))
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	case <-signalOrDone(ctx):
	}

	a.logger.Info("shutting down api server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api server shutdown: %w", err)
	}

	return nil
}

// Close releases backend connections.
func (a *App) Close() error {
	if err := a.redis.Close(); err != nil {
		a.logger.Warn("failed to close redis client", logger.Error(err))
	}
	if err := database.Close(a.db); err != nil {
		a.logger.Warn("failed to close database", logger.Error(err))
	}

	return a.logger.Sync()
}

// Logger exposes the application logger for entrypoint error reporting.
func (a *App) Logger() logger.Logger {
	return a.logger
}

func waitForSignal(ctx context.Context) {
	<-signalOrDone(ctx)
}

// signalOrDone returns a channel closed on SIGINT/SIGTERM or context end.
func signalOrDone(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case <-sigChan:
		case <-ctx.Done():
		}
		close(done)
	}()

	return done
}

type dbPinger struct{ db *sqlx.DB }

func (p dbPinger) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

type redisPinger struct{ client *goredis.Client }

func (p redisPinger) Ping(ctx context.Context) error { return p.client.Ping(ctx).Err() }
