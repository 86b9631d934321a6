// Package config loads and validates the pipeline service configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultReadTimeoutSeconds is the default HTTP read timeout in seconds.
	DefaultReadTimeoutSeconds = 10
	// DefaultWriteTimeoutSeconds is the default HTTP write timeout in seconds.
	DefaultWriteTimeoutSeconds = 30
	// DefaultScrapeInterval is how often the recurring scrape job is enqueued.
	DefaultScrapeInterval = 5 * time.Minute
	// DefaultWorkerConcurrency is the per-queue worker count.
	DefaultWorkerConcurrency = 2
	// DefaultMaxAttempts is the broker-level retry limit per job.
	DefaultMaxAttempts = 3
	// DefaultFetchTimeout bounds a single feed or article fetch.
	DefaultFetchTimeout = 10 * time.Second
)

// Config is the top-level service configuration.
type Config struct {
	Debug    bool           `yaml:"debug"` // Controls log level and format
	Server   ServerConfig   `yaml:"server"`
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	AI       AIConfig       `yaml:"ai"`
	Fetch    FetchConfig    `yaml:"fetch"`
}

// ServerConfig configures the admin HTTP API.
type ServerConfig struct {
	Address      string        `yaml:"address"`       // e.g. ":8080"
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // Default: 10s
	WriteTimeout time.Duration `yaml:"write_timeout"` // Default: 30s
}

// PostgresConfig holds database connection settings.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// RedisConfig holds queue/cache broker settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// PipelineConfig controls queue workers and stage chaining.
type PipelineConfig struct {
	ScrapeInterval    time.Duration `yaml:"scrape_interval"`    // Recurring scrape cadence
	WorkerConcurrency int           `yaml:"worker_concurrency"` // Workers per queue
	MaxAttempts       int           `yaml:"max_attempts"`       // Broker retry limit
	AutoAdvance       bool          `yaml:"auto_advance"`       // Chain stages automatically
}

// AIConfig points at the external AI capability service.
type AIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// FetchConfig bounds outbound feed/article requests.
type FetchConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
	APIKey    string        `yaml:"api_key"` // Key for api-type sources
}

// Validate checks required fields after defaults are applied.
func (c *Config) Validate() error {
	if c.Redis.Addr == "" {
		return errors.New("redis.addr is required")
	}
	if c.Postgres.Host == "" {
		return errors.New("postgres.host is required")
	}
	if c.Postgres.DBName == "" {
		return errors.New("postgres.dbname is required")
	}
	if c.Pipeline.ScrapeInterval <= 0 {
		return fmt.Errorf("pipeline.scrape_interval must be positive, got %v", c.Pipeline.ScrapeInterval)
	}
	if c.Pipeline.WorkerConcurrency <= 0 {
		return fmt.Errorf("pipeline.worker_concurrency must be positive, got %d", c.Pipeline.WorkerConcurrency)
	}
	if c.AI.BaseURL == "" {
		return errors.New("ai.base_url is required")
	}
	return nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeoutSeconds * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeoutSeconds * time.Second
	}
	if cfg.Postgres.Port == "" {
		cfg.Postgres.Port = "5432"
	}
	if cfg.Postgres.SSLMode == "" {
		cfg.Postgres.SSLMode = "disable"
	}
	if cfg.Pipeline.ScrapeInterval == 0 {
		cfg.Pipeline.ScrapeInterval = DefaultScrapeInterval
	}
	if cfg.Pipeline.WorkerConcurrency == 0 {
		cfg.Pipeline.WorkerConcurrency = DefaultWorkerConcurrency
	}
	if cfg.Pipeline.MaxAttempts == 0 {
		cfg.Pipeline.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.AI.Timeout == 0 {
		cfg.AI.Timeout = 30 * time.Second
	}
	if cfg.Fetch.Timeout == 0 {
		cfg.Fetch.Timeout = DefaultFetchTimeout
	}
	if cfg.Fetch.UserAgent == "" {
		cfg.Fetch.UserAgent = "newsforge-pipeline/1.0"
	}
}

// overrideWithEnvVars overrides configuration with environment variables.
func overrideWithEnvVars(cfg *Config) {
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("POSTGRES_PORT"); v != "" {
		cfg.Postgres.Port = v
	}
	if v := os.Getenv("POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("POSTGRES_DB"); v != "" {
		cfg.Postgres.DBName = v
	}
	if v := os.Getenv("AI_BASE_URL"); v != "" {
		cfg.AI.BaseURL = v
	}
	if v := os.Getenv("NEWS_API_KEY"); v != "" {
		cfg.Fetch.APIKey = v
	}
	if v := os.Getenv("PIPELINE_AUTO_ADVANCE"); v != "" {
		cfg.Pipeline.AutoAdvance = parseBool(v)
	}
	if v := os.Getenv("PIPELINE_PORT"); v != "" {
		cfg.Server.Address = ":" + v
	}
	if v := os.Getenv("APP_DEBUG"); v != "" {
		cfg.Debug = parseBool(v)
	}
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	return err == nil && b
}

// Load reads, defaults, env-overrides, and validates the configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	setDefaults(&cfg)
	overrideWithEnvVars(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}
