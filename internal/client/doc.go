/*
Package client is a Go client for the orchestrator HTTP API.

	c := client.New(client.DefaultConfig())
	rec, err := c.Process(ctx, "Dobrý den, děkuji")

Requests pass through a rate limiter and a circuit breaker. A 503 (full
queue, orchestrator stopping) is retried; 5xx responses and transport
errors count against the breaker, 4xx responses do not.
*/
package client
