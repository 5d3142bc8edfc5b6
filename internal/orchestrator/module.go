package orchestrator

import "context"

// Module is a named processing stage. Processing is mandatory; Init and
// Shutdown are optional capabilities discovered through Initializer and
// Shutdowner.
type Module interface {
	Name() string
	Processor
}

// Processor transforms a record in place.
type Processor interface {
	Process(ctx context.Context, rec *Record) error
}

// Initializer is implemented by modules that need setup before joining the pipeline.
type Initializer interface {
	Init(ctx context.Context) error
}

// Shutdowner is implemented by modules that hold resources.
type Shutdowner interface {
	Shutdown(ctx context.Context) error
}

// SlotOwner is implemented by modules that write an output slot.
// Modules without it may read the record but not write to it.
type SlotOwner interface {
	Slot() Slot
}

// ProcessFunc adapts a function to a pipeline stage
type ProcessFunc func(ctx context.Context, rec *Record) error

type funcModule struct {
	name string
	slot Slot
	fn   ProcessFunc
}

// Func returns a Module named name that owns slot and runs fn
func Func(name string, slot Slot, fn ProcessFunc) Module {
	return &funcModule{name: name, slot: slot, fn: fn}
}

func (m *funcModule) Name() string { return m.name }
func (m *funcModule) Slot() Slot   { return m.slot }

func (m *funcModule) Process(ctx context.Context, rec *Record) error {
	if m.fn == nil {
		return nil
	}
	return m.fn(ctx, rec)
}

func slotOf(m Module) Slot {
	if o, ok := m.(SlotOwner); ok {
		return o.Slot()
	}
	return SlotNone
}
