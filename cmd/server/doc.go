// Package main is the entry point for the MicroMind orchestrator server.
//
// The server runs a pool of workers that pass text records through a chain
// of processing modules (language, sentiment, topic, response) and exposes
// the chain over HTTP.
//
// Architecture:
//
//	Client → HTTP API → work queue → workers → module chain (head → tail)
//
// The server provides:
//   - REST API for module management and record submission
//   - WebSocket streaming for interactive processing
//   - Pipeline manifests (YAML, TOML, JSON) with hot reload
//   - Prometheus metrics at /metrics
//   - Rate limiting and CORS
//
// Configuration:
//   - Environment variables (12-factor)
//   - CLI flags (override env vars)
//   - Defaults for development
//
// Usage:
//
//	# Production mode
//	./server -port 8888 -workers 16 -pipeline pipeline.yaml -watch
//
//	# Development mode (colored logs, debug level)
//	./server -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
