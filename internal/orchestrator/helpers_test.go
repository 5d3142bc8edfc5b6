package orchestrator

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// callTrace records module invocations across a pipeline walk
type callTrace struct {
	mu    sync.Mutex
	names []string
}

func (t *callTrace) add(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.names = append(t.names, name)
}

func (t *callTrace) get() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.names...)
}

func (t *callTrace) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.names = nil
}

type testModule struct {
	name        string
	slot        Slot
	value       string
	processErr  error
	initErr     error
	shutdownErr error
	panicMsg    string
	trace       *callTrace

	mu        sync.Mutex
	processed int
	inits     int
	shutdowns int
}

func (m *testModule) Name() string { return m.name }
func (m *testModule) Slot() Slot   { return m.slot }

func (m *testModule) Init(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inits++
	return m.initErr
}

func (m *testModule) Process(_ context.Context, rec *Record) error {
	m.mu.Lock()
	m.processed++
	m.mu.Unlock()

	if m.trace != nil {
		m.trace.add(m.name)
	}
	if m.panicMsg != "" {
		panic(m.panicMsg)
	}
	if m.processErr != nil {
		return m.processErr
	}
	if m.value != "" {
		return rec.Set(m.slot, m.value)
	}
	return nil
}

func (m *testModule) Shutdown(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdowns++
	return m.shutdownErr
}

func (m *testModule) counts() (inits, processed, shutdowns int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inits, m.processed, m.shutdowns
}

func newTestOrchestrator(t *testing.T, mutate func(*Config)) *Orchestrator {
	t.Helper()

	cfg := DefaultConfig()
	cfg.Workers = 4
	cfg.QueueSize = 64
	if mutate != nil {
		mutate(&cfg)
	}

	o, err := New(cfg, zap.NewNop())
	require.NoError(t, err)
	return o
}

func startTestOrchestrator(t *testing.T, mutate func(*Config)) *Orchestrator {
	t.Helper()

	o := newTestOrchestrator(t, mutate)
	require.NoError(t, o.Start())
	t.Cleanup(func() { _ = o.Shutdown(context.Background()) })
	return o
}

func multierrErrors(err error) []error {
	return multierr.Errors(err)
}
