/*
Package monitoring provides performance monitoring and metrics collection.

# Overview

This package implements Prometheus-based metrics for the orchestrator
service: HTTP traffic, the work queue, worker utilisation, and per-module
process calls and failures.

# Features

- HTTP request metrics (latency, throughput, size)
- Record metrics (submitted, processed by status, pipeline latency)
- Module metrics (calls, duration, capability failures)
- Queue depth and busy worker gauges
- JSON snapshot for the health endpoint

# Usage

	reg := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(reg)

	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	timer := monitoring.NewTimer(metrics, "sentiment")
	// ... call the module ...
	timer.Stop(monitoring.StatusSuccess)

A nil *Metrics is accepted everywhere and records nothing, so components can
run without a collector in tests.
*/
package monitoring
