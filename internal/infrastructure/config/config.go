package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server       ServerConfig
	Orchestrator OrchestratorConfig
	Breaker      BreakerConfig
	Pipeline     PipelineConfig
	Logging      LogConfig
	RateLimit    RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            string        `envconfig:"PORT" default:"8888"`
	Host            string        `envconfig:"HOST" default:"0.0.0.0"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"15s"`
	AllowedOrigins  []string      `envconfig:"CORS_ORIGINS" default:"*"`
}

// OrchestratorConfig holds worker pool and pipeline execution settings.
type OrchestratorConfig struct {
	Workers         int    `envconfig:"WORKERS" default:"10"`
	QueueSize       int    `envconfig:"QUEUE_SIZE" default:"256"`
	ErrorPolicy     string `envconfig:"ERROR_POLICY" default:"continue"`
	DrainOnShutdown bool   `envconfig:"DRAIN_ON_SHUTDOWN" default:"false"`
	UniqueNames     bool   `envconfig:"UNIQUE_MODULE_NAMES" default:"false"`
}

// BreakerConfig holds per-module circuit breaker settings.
type BreakerConfig struct {
	Enabled     bool          `envconfig:"BREAKER_ENABLED" default:"false"`
	MaxFailures uint32        `envconfig:"BREAKER_MAX_FAILURES" default:"5"`
	Timeout     time.Duration `envconfig:"BREAKER_TIMEOUT" default:"30s"`
}

// PipelineConfig holds the module manifest location.
type PipelineConfig struct {
	File  string `envconfig:"PIPELINE_FILE"`
	Watch bool   `envconfig:"PIPELINE_WATCH" default:"false"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8888",
			Host:            "0.0.0.0",
			ShutdownTimeout: 15 * time.Second,
			AllowedOrigins:  []string{"*"},
		},
		Orchestrator: OrchestratorConfig{
			Workers:     10,
			QueueSize:   256,
			ErrorPolicy: "continue",
		},
		Breaker: BreakerConfig{
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}

// Validate checks values envconfig cannot constrain by type.
func (c *Config) Validate() error {
	switch {
	case c.Orchestrator.Workers <= 0:
		return fmt.Errorf("WORKERS must be positive, got %d", c.Orchestrator.Workers)
	case c.Orchestrator.QueueSize <= 0:
		return fmt.Errorf("QUEUE_SIZE must be positive, got %d", c.Orchestrator.QueueSize)
	case c.Breaker.Enabled && c.Breaker.MaxFailures == 0:
		return fmt.Errorf("BREAKER_MAX_FAILURES must be positive when the breaker is enabled")
	case c.Pipeline.Watch && c.Pipeline.File == "":
		return fmt.Errorf("PIPELINE_WATCH requires PIPELINE_FILE")
	}
	switch c.Orchestrator.ErrorPolicy {
	case "continue", "abort", "ignore":
	default:
		return fmt.Errorf("ERROR_POLICY must be continue, abort or ignore, got %q", c.Orchestrator.ErrorPolicy)
	}
	return nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}
