/*
Package resilience provides a circuit breaker used to isolate misbehaving
pipeline modules.

# Overview

When the orchestrator is configured with breaker settings, every registered
module gets its own Breaker. A module whose Process keeps failing trips its
breaker and is skipped with ErrCircuitOpen until the timeout elapses; the
breaker then half-opens and lets a limited number of trial calls through.

# Usage

	breaker := resilience.New("sentiment", resilience.Settings{
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: resilience.ConsecutiveFailures(5),
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn("breaker state changed",
				zap.String("module", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to))
		},
	})

	err := breaker.Execute(func() error {
		return module.Process(ctx, rec)
	})

Callers that cannot wrap the call in a closure use the two-step form:

	done, err := breaker.Allow()
	if err != nil {
		return err
	}
	done(callSucceeded)

# States

	Closed --[failures]-> Open --[timeout]-> Half-Open --[successes]-> Closed
	                                           |
	                                       [failure]
	                                           v
	                                          Open
*/
package resilience
