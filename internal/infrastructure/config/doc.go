// Package config provides 12-factor configuration management for the
// MicroMind orchestrator service.
//
// Configuration is loaded from environment variables with sensible defaults.
// CLI flags can override environment variables for development flexibility.
//
// Configuration Sections:
//   - Server: HTTP listener (port, host, shutdown timeout, CORS origins)
//   - Orchestrator: worker pool size, queue capacity, error policy
//   - Breaker: per-module circuit breaker
//   - Pipeline: module manifest file and hot reload
//   - Logging: Log level and output format
//   - RateLimit: Per-IP rate limiting configuration
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Server running on %s\n", cfg.Addr())
//
// Environment Variables:
//   - PORT, HOST, SHUTDOWN_TIMEOUT, CORS_ORIGINS
//   - WORKERS, QUEUE_SIZE, ERROR_POLICY, DRAIN_ON_SHUTDOWN, UNIQUE_MODULE_NAMES
//   - BREAKER_ENABLED, BREAKER_MAX_FAILURES, BREAKER_TIMEOUT
//   - PIPELINE_FILE, PIPELINE_WATCH
//   - LOG_LEVEL, LOG_DEV
//   - RATE_LIMIT_RPS, RATE_LIMIT_BURST, RATE_LIMIT_ENABLED
package config
