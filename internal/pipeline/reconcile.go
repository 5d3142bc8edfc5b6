package pipeline

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/GriffinCanCode/MicroMind/backend/internal/orchestrator"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Registrar is the part of the orchestrator a manifest drives. Modules are
// tracked by handle so a same-named module added elsewhere is never touched.
type Registrar interface {
	Attach(ctx context.Context, m orchestrator.Module) (orchestrator.Handle, error)
	Detach(ctx context.Context, h orchestrator.Handle) error
}

// Builder creates modules by kind
type Builder interface {
	Build(kind, name string) (orchestrator.Module, error)
}

// Reconciler makes the modules it manages match a manifest. Modules added
// by other means are left alone.
type Reconciler struct {
	target  Registrar
	builder Builder
	logger  *zap.Logger

	mu      sync.Mutex
	applied []Entry
	handles []orchestrator.Handle
}

// NewReconciler creates a reconciler for target
func NewReconciler(target Registrar, builder Builder, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{
		target:  target,
		builder: builder,
		logger:  logger,
	}
}

// Applied returns the entries currently registered by the reconciler
func (r *Reconciler) Applied() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.applied)
}

// Apply replaces the managed modules with the ones m lists. Every module is
// built before the orchestrator is touched, so an unknown kind changes
// nothing. Modules are added in reverse so they execute in manifest order.
func (r *Reconciler) Apply(ctx context.Context, m *Manifest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if slices.Equal(r.applied, m.Modules) {
		r.logger.Debug("pipeline unchanged", zap.Int("modules", len(m.Modules)))
		return nil
	}

	built := make([]orchestrator.Module, len(m.Modules))
	for i, e := range m.Modules {
		mod, err := r.builder.Build(e.Kind, e.Name)
		if err != nil {
			return fmt.Errorf("build module %q: %w", e.Name, err)
		}
		built[i] = mod
	}

	var errs error
	for _, h := range r.handles {
		err := r.target.Detach(ctx, h)
		if err != nil && !errors.Is(err, orchestrator.ErrModuleNotFound) {
			errs = multierr.Append(errs, err)
		}
	}
	r.applied, r.handles = nil, nil

	added := make([]Entry, 0, len(built))
	handles := make([]orchestrator.Handle, 0, len(built))
	for i := len(built) - 1; i >= 0; i-- {
		h, err := r.target.Attach(ctx, built[i])
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		added = append(added, m.Modules[i])
		handles = append(handles, h)
	}
	slices.Reverse(added)
	slices.Reverse(handles)
	r.applied, r.handles = added, handles

	r.logger.Info("pipeline applied",
		zap.Strings("modules", m.Names()),
		zap.Int("registered", len(added)))
	return errs
}
