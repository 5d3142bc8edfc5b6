/*
Package orchestrator runs text records through a chain of pluggable modules
on a fixed pool of workers.

# Overview

Modules are kept in a Registry, newest first. Every record submitted is
walked head to tail, so the module added last runs first. One mutex guards
the registry, the bounded work queue and the lifecycle state; idle workers
park on a condition variable tied to that mutex and are woken one at a time
by Submit, or all at once by Shutdown.

Pipeline walks hold the lock for their whole duration. Walks are therefore
serialized with each other and with Add and Remove.

# Modules

A module implements Module (Name and Process). It may also implement
Initializer, Shutdowner and SlotOwner. A module writes its result into the
single output slot it declares:

	type shout struct{}

	func (shout) Name() string                { return "shout" }
	func (shout) Slot() orchestrator.Slot     { return orchestrator.SlotResponse }
	func (shout) Process(_ context.Context, rec *orchestrator.Record) error {
		return rec.Set(orchestrator.SlotResponse, strings.ToUpper(rec.Input))
	}

# Usage

	orch, err := orchestrator.New(orchestrator.DefaultConfig(), logger)
	if err != nil {
		return err
	}
	orch.WithMetrics(metrics).WithTracer(tracer)

	if err := orch.Start(); err != nil {
		return err
	}
	defer orch.Shutdown(context.Background())

	_ = orch.Add(ctx, shout{})
	res, err := orch.Process(ctx, "hello")

# Error policy

	continue  every module runs, failures are combined (default)
	abort     the walk stops at the first failure
	ignore    failures are logged and counted only

Panics inside a module are recovered and reported as ErrModulePanic.
*/
package orchestrator
