package modules

import (
	"context"
	"sync/atomic"

	"github.com/GriffinCanCode/MicroMind/backend/internal/orchestrator"
	"go.uber.org/zap"
)

// base carries what every stock module shares: identity, owned slot,
// logger and a processed counter reported on shutdown.
type base struct {
	name      string
	slot      orchestrator.Slot
	logger    *zap.Logger
	processed atomic.Uint64
}

func newBase(name string, slot orchestrator.Slot, logger *zap.Logger) *base {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &base{
		name:   name,
		slot:   slot,
		logger: logger.With(zap.String("module", name)),
	}
}

func (b *base) Name() string            { return b.name }
func (b *base) Slot() orchestrator.Slot { return b.slot }

// Processed returns how many records the module has written
func (b *base) Processed() uint64 {
	return b.processed.Load()
}

func (b *base) set(rec *orchestrator.Record, value string) error {
	if err := rec.Set(b.slot, value); err != nil {
		return err
	}
	b.processed.Add(1)
	return nil
}

func (b *base) Shutdown(context.Context) error {
	b.logger.Debug("module shut down", zap.Uint64("processed", b.processed.Load()))
	return nil
}
