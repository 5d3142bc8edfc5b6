package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/GriffinCanCode/MicroMind/backend/internal/infrastructure/monitoring"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewValidatesConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero workers", func(c *Config) { c.Workers = 0 }},
		{"negative queue", func(c *Config) { c.QueueSize = -1 }},
		{"unknown policy", func(c *Config) { c.ErrorPolicy = "retry" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			_, err := New(cfg, zap.NewNop())
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}

	o, err := New(Config{Workers: 1, QueueSize: 1}, nil)
	require.NoError(t, err)
	assert.Equal(t, PolicyContinue, o.Stats().ErrorPolicy)
}

func TestStartTwice(t *testing.T) {
	o := startTestOrchestrator(t, nil)
	assert.ErrorIs(t, o.Start(), ErrAlreadyStarted)
}

func TestSubmitBeforeStart(t *testing.T) {
	o := newTestOrchestrator(t, nil)
	_, err := o.Submit(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNotRunning)
}

func TestProcessEndToEnd(t *testing.T) {
	o := startTestOrchestrator(t, nil)
	ctx := context.Background()

	require.NoError(t, o.Add(ctx, &testModule{name: "language", slot: SlotLanguage, value: "Czech"}))
	require.NoError(t, o.Add(ctx, &testModule{name: "sentiment", slot: SlotSentiment, value: "Positive"}))

	res, err := o.Process(ctx, "ahoj")
	require.NoError(t, err)
	require.NotNil(t, res.Record)
	assert.Equal(t, "ahoj", res.Record.Input)
	assert.Equal(t, "Czech", res.Record.Output(SlotLanguage))
	assert.Equal(t, "Positive", res.Record.Output(SlotSentiment))
	assert.GreaterOrEqual(t, res.Worker, 0)

	stats := o.Stats()
	assert.Equal(t, uint64(1), stats.Processed)
	assert.Zero(t, stats.Failed)
}

func TestProcessSurfacesModuleErrors(t *testing.T) {
	o := startTestOrchestrator(t, nil)
	ctx := context.Background()
	require.NoError(t, o.Add(ctx, &testModule{name: "bad", processErr: errProcess}))

	res, err := o.Process(ctx, "x")
	assert.ErrorIs(t, err, errProcess)
	require.NotNil(t, res)
	assert.ErrorIs(t, res.Err, errProcess)
	assert.Equal(t, uint64(1), o.Stats().Failed)
}

func TestAddValidation(t *testing.T) {
	o := newTestOrchestrator(t, nil)
	ctx := context.Background()

	assert.ErrorIs(t, o.Add(ctx, nil), ErrModuleNil)
	assert.ErrorIs(t, o.Add(ctx, &testModule{}), ErrModuleNameEmpty)
}

func TestAddInitFailureRegistersNothing(t *testing.T) {
	o := newTestOrchestrator(t, nil)
	ctx := context.Background()
	initErr := errors.New("no model")

	m := &testModule{name: "broken", initErr: initErr}
	err := o.Add(ctx, m)

	var modErr *ModuleError
	require.ErrorAs(t, err, &modErr)
	assert.Equal(t, "broken", modErr.Module)
	assert.Equal(t, OpInit, modErr.Op)
	assert.ErrorIs(t, err, initErr)
	assert.Empty(t, o.Modules())

	_, _, shutdowns := m.counts()
	assert.Zero(t, shutdowns)
}

func TestAddDuplicateNames(t *testing.T) {
	ctx := context.Background()

	t.Run("allowed by default", func(t *testing.T) {
		o := newTestOrchestrator(t, nil)
		require.NoError(t, o.Add(ctx, &testModule{name: "dup"}))
		require.NoError(t, o.Add(ctx, &testModule{name: "dup"}))
		assert.Equal(t, []string{"dup", "dup"}, o.Modules())
	})

	t.Run("rejected with unique names", func(t *testing.T) {
		o := newTestOrchestrator(t, func(c *Config) { c.UniqueNames = true })
		require.NoError(t, o.Add(ctx, &testModule{name: "dup"}))

		second := &testModule{name: "dup"}
		assert.ErrorIs(t, o.Add(ctx, second), ErrDuplicateModule)
		inits, _, _ := second.counts()
		assert.Zero(t, inits)
	})
}

func TestRemoveTwice(t *testing.T) {
	o := newTestOrchestrator(t, nil)
	ctx := context.Background()

	m := &testModule{name: "once"}
	require.NoError(t, o.Add(ctx, m))

	require.NoError(t, o.Remove(ctx, "once"))
	assert.ErrorIs(t, o.Remove(ctx, "once"), ErrModuleNotFound)

	_, _, shutdowns := m.counts()
	assert.Equal(t, 1, shutdowns)
}

func TestRemoveNewestDuplicate(t *testing.T) {
	o := newTestOrchestrator(t, nil)
	ctx := context.Background()

	older := &testModule{name: "dup"}
	newer := &testModule{name: "dup"}
	require.NoError(t, o.Add(ctx, older))
	require.NoError(t, o.Add(ctx, newer))

	require.NoError(t, o.Remove(ctx, "dup"))

	_, _, olderShutdowns := older.counts()
	_, _, newerShutdowns := newer.counts()
	assert.Zero(t, olderShutdowns)
	assert.Equal(t, 1, newerShutdowns)
	assert.Equal(t, []string{"dup"}, o.Modules())
}

func TestDetachRemovesExactModule(t *testing.T) {
	o := newTestOrchestrator(t, nil)
	ctx := context.Background()

	mine := &testModule{name: "dup"}
	h, err := o.Attach(ctx, mine)
	require.NoError(t, err)
	assert.False(t, h.IsZero())

	theirs := &testModule{name: "dup"}
	require.NoError(t, o.Add(ctx, theirs))

	require.NoError(t, o.Detach(ctx, h))
	assert.Equal(t, []string{"dup"}, o.Modules())

	_, _, mineShutdowns := mine.counts()
	_, _, theirShutdowns := theirs.counts()
	assert.Equal(t, 1, mineShutdowns)
	assert.Zero(t, theirShutdowns)

	// The released slot is reused, but the stale handle must not reach it.
	reused := &testModule{name: "dup"}
	require.NoError(t, o.Add(ctx, reused))
	assert.ErrorIs(t, o.Detach(ctx, h), ErrModuleNotFound)
	assert.Equal(t, []string{"dup", "dup"}, o.Modules())
}

func TestRemoveShutdownFailureStillRemoves(t *testing.T) {
	o := newTestOrchestrator(t, nil)
	ctx := context.Background()
	shutdownErr := errors.New("flush failed")

	require.NoError(t, o.Add(ctx, &testModule{name: "leaky", shutdownErr: shutdownErr}))

	err := o.Remove(ctx, "leaky")
	var modErr *ModuleError
	require.ErrorAs(t, err, &modErr)
	assert.Equal(t, OpShutdown, modErr.Op)
	assert.ErrorIs(t, err, shutdownErr)
	assert.Empty(t, o.Modules())
}

func TestShutdownCompleteness(t *testing.T) {
	o := newTestOrchestrator(t, nil)
	require.NoError(t, o.Start())
	ctx := context.Background()

	var modules []*testModule
	for i := 0; i < 5; i++ {
		m := &testModule{name: fmt.Sprintf("m%d", i)}
		modules = append(modules, m)
		require.NoError(t, o.Add(ctx, m))
	}
	require.NoError(t, o.Remove(ctx, "m2"))

	for i := 0; i < 10; i++ {
		_, err := o.Process(ctx, "x")
		require.NoError(t, err)
	}

	require.NoError(t, o.Shutdown(ctx))

	for _, m := range modules {
		_, _, shutdowns := m.counts()
		assert.Equal(t, 1, shutdowns, m.name)
	}

	stats := o.Stats()
	assert.Equal(t, "stopped", stats.State)
	assert.Equal(t, stats.Workers, stats.Stopped)
	assert.Zero(t, stats.Waiting)
	assert.Zero(t, stats.Running)
	assert.Zero(t, stats.Modules)
	assert.Empty(t, o.Modules())

	assert.ErrorIs(t, o.Shutdown(ctx), ErrStopped)
	assert.ErrorIs(t, o.Add(ctx, &testModule{name: "late"}), ErrStopped)
	_, err := o.Submit(ctx, "late")
	assert.ErrorIs(t, err, ErrStopped)
	assert.ErrorIs(t, o.Start(), ErrStopped)
}

func TestShutdownAggregatesModuleErrors(t *testing.T) {
	o := newTestOrchestrator(t, nil)
	ctx := context.Background()
	errA := errors.New("a failed")
	errB := errors.New("b failed")

	require.NoError(t, o.Add(ctx, &testModule{name: "a", shutdownErr: errA}))
	require.NoError(t, o.Add(ctx, &testModule{name: "ok"}))
	require.NoError(t, o.Add(ctx, &testModule{name: "b", shutdownErr: errB}))

	err := o.Shutdown(ctx)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
	assert.Len(t, multierrErrors(err), 2)
}

func TestShutdownWithoutStart(t *testing.T) {
	o := newTestOrchestrator(t, nil)
	m := &testModule{name: "m"}
	require.NoError(t, o.Add(context.Background(), m))

	require.NoError(t, o.Shutdown(context.Background()))
	_, _, shutdowns := m.counts()
	assert.Equal(t, 1, shutdowns)
}

// markRunning flips the lifecycle without spawning workers so jobs stay queued.
func markRunning(o *Orchestrator) {
	o.mu.Lock()
	o.state = stateRunning
	o.mu.Unlock()
}

func TestSubmitQueueFull(t *testing.T) {
	o := newTestOrchestrator(t, func(c *Config) { c.QueueSize = 2 })
	markRunning(o)
	ctx := context.Background()

	_, err := o.Submit(ctx, "1")
	require.NoError(t, err)
	_, err = o.Submit(ctx, "2")
	require.NoError(t, err)

	_, err = o.Submit(ctx, "3")
	assert.ErrorIs(t, err, ErrQueueFull)

	stats := o.Stats()
	assert.Equal(t, 2, stats.QueueDepth)
	assert.Equal(t, 2, stats.QueueCapacity)
}

func TestShutdownFailsQueuedJobs(t *testing.T) {
	o := newTestOrchestrator(t, nil)
	markRunning(o)
	ctx := context.Background()

	ticket, err := o.Submit(ctx, "queued")
	require.NoError(t, err)

	require.NoError(t, o.Shutdown(ctx))

	res, err := ticket.Wait(ctx)
	assert.ErrorIs(t, err, ErrStopped)
	require.NotNil(t, res)
	assert.Equal(t, -1, res.Worker)
	assert.Equal(t, ticket.RecordID, res.Record.ID)
}

func TestShutdownDrainsQueue(t *testing.T) {
	o := newTestOrchestrator(t, func(c *Config) {
		c.Workers = 1
		c.DrainOnShutdown = true
	})
	ctx := context.Background()
	m := &testModule{name: "m"}
	require.NoError(t, o.Add(ctx, m))
	require.NoError(t, o.Start())

	var tickets []*Ticket
	for i := 0; i < 20; i++ {
		ticket, err := o.Submit(ctx, "x")
		require.NoError(t, err)
		tickets = append(tickets, ticket)
	}

	require.NoError(t, o.Shutdown(ctx))

	for _, ticket := range tickets {
		res, err := ticket.Wait(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, res.Worker)
	}
	_, processed, _ := m.counts()
	assert.Equal(t, 20, processed)
}

func TestShutdownWaitsForRunningPass(t *testing.T) {
	o := newTestOrchestrator(t, func(c *Config) { c.Workers = 1 })
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})
	require.NoError(t, o.Add(ctx, Func("slow", SlotNone, func(context.Context, *Record) error {
		close(started)
		<-release
		return nil
	})))
	require.NoError(t, o.Start())

	ticket, err := o.Submit(ctx, "in flight")
	require.NoError(t, err)

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("module never started")
	}

	stopping := make(chan struct{})
	stopped := make(chan error, 1)
	go func() {
		close(stopping)
		stopped <- o.Shutdown(ctx)
	}()
	<-stopping

	// The pass holds the lock, so Shutdown cannot complete until it returns.
	select {
	case err := <-stopped:
		t.Fatalf("shutdown returned mid-pass: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(release)

	select {
	case err := <-stopped:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown never returned")
	}

	// The result was delivered before Shutdown returned.
	select {
	case res := <-ticket.Done():
		require.NoError(t, res.Err)
		assert.GreaterOrEqual(t, res.Worker, 0)
		assert.Equal(t, ticket.RecordID, res.Record.ID)
	default:
		t.Fatal("shutdown returned before the running pass delivered its result")
	}
	assert.Equal(t, "stopped", o.Stats().State)
}

func TestCancelledSubmissionIsSoftFailure(t *testing.T) {
	o := startTestOrchestrator(t, func(c *Config) { c.Workers = 1 })
	m := &testModule{name: "m"}
	require.NoError(t, o.Add(context.Background(), m))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ticket, err := o.Submit(ctx, "abandoned")
	require.NoError(t, err)

	select {
	case res := <-ticket.Done():
		assert.ErrorIs(t, res.Err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("cancelled job never completed")
	}

	// The worker keeps serving.
	res, err := o.Process(context.Background(), "next")
	require.NoError(t, err)
	assert.NotNil(t, res.Record)

	_, processed, _ := m.counts()
	assert.Equal(t, 1, processed)
}

func TestWorkersParkWhenIdle(t *testing.T) {
	o := startTestOrchestrator(t, nil)

	assert.Eventually(t, func() bool {
		s := o.Stats()
		return s.State == "running" && s.Waiting == s.Workers
	}, 5*time.Second, 10*time.Millisecond)
}

func TestMetricsWiring(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(reg)

	o := newTestOrchestrator(t, nil)
	o.WithMetrics(metrics)
	require.NoError(t, o.Start())
	t.Cleanup(func() { _ = o.Shutdown(context.Background()) })

	ctx := context.Background()
	require.NoError(t, o.Add(ctx, &testModule{name: "ok"}))
	require.NoError(t, o.Add(ctx, &testModule{name: "bad", processErr: errProcess}))

	_, err := o.Process(ctx, "x")
	require.Error(t, err)

	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.ModulesRegistered))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.RecordsSubmitted))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.RecordsProcessed.WithLabelValues(monitoring.StatusError)))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.ModuleErrors.WithLabelValues("bad", OpProcess)))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.ModuleCalls.WithLabelValues("ok", monitoring.StatusSuccess)))
}

// exclusionProbe fails the test if two goroutines are ever inside a
// pipeline walk or a module shutdown at the same time.
type exclusionProbe struct {
	inside  atomic.Int32
	maxSeen atomic.Int32
}

func (p *exclusionProbe) enter() {
	n := p.inside.Add(1)
	for {
		cur := p.maxSeen.Load()
		if n <= cur || p.maxSeen.CompareAndSwap(cur, n) {
			break
		}
	}
}

func (p *exclusionProbe) leave() {
	p.inside.Add(-1)
}

type probeModule struct {
	name  string
	probe *exclusionProbe

	mu   sync.Mutex
	seen map[string]int
}

func (m *probeModule) Name() string { return m.name }

func (m *probeModule) Process(_ context.Context, rec *Record) error {
	m.probe.enter()
	defer m.probe.leave()

	m.mu.Lock()
	m.seen[rec.ID.String()]++
	m.mu.Unlock()
	time.Sleep(50 * time.Microsecond)
	return nil
}

func (m *probeModule) Shutdown(context.Context) error {
	m.probe.enter()
	defer m.probe.leave()
	return nil
}

func TestMutualExclusionStress(t *testing.T) {
	o := startTestOrchestrator(t, func(c *Config) {
		c.Workers = 8
		c.QueueSize = 1024
	})
	ctx := context.Background()
	probe := &exclusionProbe{}

	stable := &probeModule{name: "stable", probe: probe, seen: map[string]int{}}
	require.NoError(t, o.Add(ctx, stable))

	var wg sync.WaitGroup
	var ids sync.Map

	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				res, err := o.Process(ctx, "payload")
				if assert.NoError(t, err) {
					ids.Store(res.Record.ID.String(), true)
				}
			}
		}()
	}

	for g := 0; g < 2; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				name := fmt.Sprintf("churn-%d-%d", g, i)
				m := &probeModule{name: name, probe: probe, seen: map[string]int{}}
				assert.NoError(t, o.Add(ctx, m))
				assert.NoError(t, o.Remove(ctx, name))
			}
		}(g)
	}

	wg.Wait()

	assert.Equal(t, int32(1), probe.maxSeen.Load())
	assert.Equal(t, []string{"stable"}, o.Modules())

	// Every record passed through the stable module exactly once.
	count := 0
	ids.Range(func(key, _ any) bool {
		count++
		stable.mu.Lock()
		assert.Equal(t, 1, stable.seen[key.(string)])
		stable.mu.Unlock()
		return true
	})
	assert.Equal(t, 400, count)
}
