/*
Package tracing provides lightweight request tracing.

# Overview

Each HTTP request and each pipeline pass gets a span. Spans carry a trace ID
that is propagated through X-Trace-ID headers and the request context, so a
record submitted over HTTP can be followed through every module that touched
it in the structured log.

# Usage

	tracer := tracing.New("micromind", logger)
	defer tracer.Close()

	router.Use(tracing.HTTPMiddleware(tracer))

	span, ctx := tracer.StartSpan(ctx, "pipeline")
	defer func() {
		span.Finish()
		tracer.Submit(span)
	}()
	span.SetTag("record_id", rec.ID.String())

# Trace Format

- X-Trace-ID: Unique identifier for the entire request flow
- X-Span-ID: Identifier for the current operation

Finished spans are buffered (1000) and logged by a single collector
goroutine; when the buffer is full new spans are dropped with a warning.
*/
package tracing
