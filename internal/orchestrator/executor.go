package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/GriffinCanCode/MicroMind/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/MicroMind/backend/internal/infrastructure/resilience"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ErrorPolicy decides what a failing module does to the rest of the walk
type ErrorPolicy string

const (
	// PolicyContinue runs every module and returns all failures combined
	PolicyContinue ErrorPolicy = "continue"
	// PolicyAbort stops the walk at the first failure
	PolicyAbort ErrorPolicy = "abort"
	// PolicyIgnore logs failures and reports success
	PolicyIgnore ErrorPolicy = "ignore"
)

// ParseErrorPolicy converts a policy name to an ErrorPolicy
func ParseErrorPolicy(s string) (ErrorPolicy, error) {
	switch p := ErrorPolicy(s); p {
	case PolicyContinue, PolicyAbort, PolicyIgnore:
		return p, nil
	default:
		return "", fmt.Errorf("unknown error policy %q", s)
	}
}

// Execute walks rec through every registered module, head to tail, holding
// the orchestrator lock for the whole walk. Module errors are handled
// according to the configured ErrorPolicy. A cancelled ctx stops the walk
// between modules regardless of policy.
//
// Modules run under the lock and must not call back into the orchestrator.
func (o *Orchestrator) Execute(ctx context.Context, rec *Record) error {
	if rec == nil {
		return ErrRecordNil
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	return o.executeLocked(ctx, rec)
}

func (o *Orchestrator) executeLocked(ctx context.Context, rec *Record) (err error) {
	if o.tracer != nil {
		span, spanCtx := o.tracer.StartSpan(ctx, "pipeline")
		span.SetTag("record_id", rec.ID.String())
		span.SetTag("modules", fmt.Sprint(o.registry.Len()))
		ctx = spanCtx
		defer func() {
			if err != nil {
				span.SetError(err)
			}
			span.Finish()
			o.tracer.Submit(span)
		}()
	}

	defer rec.bind(SlotNone)

	var errs error
	o.registry.Each(func(h Handle, m Module) bool {
		if ctxErr := ctx.Err(); ctxErr != nil {
			errs = multierr.Append(errs, ctxErr)
			return false
		}

		callErr := o.invoke(ctx, h, m, rec)
		if callErr == nil {
			return true
		}

		switch o.cfg.ErrorPolicy {
		case PolicyAbort:
			errs = callErr
			return false
		case PolicyIgnore:
			o.logger.Warn("module failed, ignoring",
				zap.String("module", m.Name()),
				zap.String("record_id", rec.ID.String()),
				zap.Error(callErr))
			return true
		default:
			errs = multierr.Append(errs, callErr)
			return true
		}
	})

	return errs
}

// invoke runs one module on rec. Caller holds mu.
func (o *Orchestrator) invoke(ctx context.Context, h Handle, m Module, rec *Record) error {
	name := m.Name()
	rec.bind(slotOf(m))
	timer := monitoring.NewTimer(o.metrics, name)

	call := func() error {
		return safeProcess(ctx, m, rec)
	}

	var err error
	if b := o.breakers[h]; b != nil {
		err = b.Execute(call)
	} else {
		err = call()
	}

	switch {
	case err == nil:
		timer.Stop(monitoring.StatusSuccess)
		return nil
	case errors.Is(err, resilience.ErrCircuitOpen), errors.Is(err, resilience.ErrTooManyRequests):
		timer.Stop(monitoring.StatusSkipped)
		o.logger.Debug("module skipped by circuit breaker",
			zap.String("module", name),
			zap.String("record_id", rec.ID.String()))
	default:
		timer.Stop(monitoring.StatusError)
		o.metrics.RecordModuleError(name, OpProcess)
		o.logger.Debug("module process failed",
			zap.String("module", name),
			zap.String("record_id", rec.ID.String()),
			zap.Error(err))
	}

	return &ModuleError{Module: name, Op: OpProcess, Err: err}
}

func safeProcess(ctx context.Context, m Module, rec *Record) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrModulePanic, r)
		}
	}()
	return m.Process(ctx, rec)
}
