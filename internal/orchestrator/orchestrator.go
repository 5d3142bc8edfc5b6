package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/GriffinCanCode/MicroMind/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/MicroMind/backend/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/MicroMind/backend/internal/infrastructure/tracing"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	// DefaultWorkers is the pool size used when none is configured
	DefaultWorkers = 10
	// DefaultQueueSize is the work queue capacity used when none is configured
	DefaultQueueSize = 256
)

// Config configures an orchestrator
type Config struct {
	Workers     int
	QueueSize   int
	ErrorPolicy ErrorPolicy
	// DrainOnShutdown lets workers finish queued records before stopping.
	// Otherwise queued records fail with ErrStopped.
	DrainOnShutdown bool
	// UniqueNames rejects Add when a module with the same name is registered
	UniqueNames bool
	// Breaker enables a per-module circuit breaker when non-nil
	Breaker *resilience.Settings
}

// DefaultConfig returns the default orchestrator configuration
func DefaultConfig() Config {
	return Config{
		Workers:     DefaultWorkers,
		QueueSize:   DefaultQueueSize,
		ErrorPolicy: PolicyContinue,
	}
}

func (c Config) validate() error {
	if c.Workers <= 0 {
		return fmt.Errorf("%w: workers must be positive, got %d", ErrInvalidConfig, c.Workers)
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("%w: queue size must be positive, got %d", ErrInvalidConfig, c.QueueSize)
	}
	if _, err := ParseErrorPolicy(string(c.ErrorPolicy)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

type lifecycle int

const (
	stateNew lifecycle = iota
	stateRunning
	stateStopping
	stateStopped
)

func (s lifecycle) String() string {
	switch s {
	case stateNew:
		return "new"
	case stateRunning:
		return "running"
	case stateStopping:
		return "stopping"
	case stateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Orchestrator runs records through an ordered chain of modules on a fixed
// pool of workers. A single mutex guards the registry, the work queue and the
// lifecycle state; a condition variable on that mutex parks idle workers.
type Orchestrator struct {
	cfg     Config
	logger  *zap.Logger
	metrics *monitoring.Metrics
	tracer  *tracing.Tracer

	mu       sync.Mutex
	cond     *sync.Cond
	state    lifecycle
	registry *Registry
	breakers map[Handle]*resilience.Breaker
	queue    *jobQueue
	workers  []WorkerState
	wg       sync.WaitGroup

	processed atomic.Uint64
	failed    atomic.Uint64
}

// New creates an orchestrator. Workers are not started until Start.
func New(cfg Config, logger *zap.Logger) (*Orchestrator, error) {
	if cfg.ErrorPolicy == "" {
		cfg.ErrorPolicy = PolicyContinue
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	o := &Orchestrator{
		cfg:      cfg,
		logger:   logger,
		registry: NewRegistry(),
		breakers: make(map[Handle]*resilience.Breaker),
		queue:    newJobQueue(cfg.QueueSize),
	}
	o.cond = sync.NewCond(&o.mu)
	return o, nil
}

// WithMetrics sets the metrics collector. Call before Start.
func (o *Orchestrator) WithMetrics(metrics *monitoring.Metrics) *Orchestrator {
	o.metrics = metrics
	return o
}

// WithTracer records a span per pipeline pass. Call before Start.
func (o *Orchestrator) WithTracer(tracer *tracing.Tracer) *Orchestrator {
	o.tracer = tracer
	return o
}

// Start spawns the worker pool
func (o *Orchestrator) Start() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch o.state {
	case stateRunning:
		return ErrAlreadyStarted
	case stateStopping, stateStopped:
		return ErrStopped
	}

	o.state = stateRunning
	o.workers = make([]WorkerState, o.cfg.Workers)
	for i := range o.workers {
		o.workers[i] = WorkerWaiting
		o.wg.Add(1)
		go o.worker(i)
	}

	o.logger.Info("orchestrator started",
		zap.Int("workers", o.cfg.Workers),
		zap.Int("queue_size", o.cfg.QueueSize),
		zap.String("error_policy", string(o.cfg.ErrorPolicy)))
	return nil
}

// Add initializes m and links it in as the new head of the pipeline.
// Init runs outside the lock; if it fails nothing is registered.
// Adding a module does not wake any worker.
func (o *Orchestrator) Add(ctx context.Context, m Module) error {
	_, err := o.Attach(ctx, m)
	return err
}

// Attach is Add returning the handle of the registered module, for callers
// that later need to remove exactly that module with Detach.
func (o *Orchestrator) Attach(ctx context.Context, m Module) (Handle, error) {
	if m == nil {
		return Handle{}, ErrModuleNil
	}
	name := m.Name()
	if name == "" {
		return Handle{}, ErrModuleNameEmpty
	}

	o.mu.Lock()
	err := o.checkAddLocked(name)
	o.mu.Unlock()
	if err != nil {
		return Handle{}, err
	}

	if init, ok := m.(Initializer); ok {
		if err := init.Init(ctx); err != nil {
			o.metrics.RecordModuleError(name, OpInit)
			o.logger.Error("module init failed", zap.String("module", name), zap.Error(err))
			return Handle{}, &ModuleError{Module: name, Op: OpInit, Err: err}
		}
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	// State may have changed while Init ran.
	if err := o.checkAddLocked(name); err != nil {
		return Handle{}, multierr.Append(err, o.shutdownModule(ctx, m))
	}

	h := o.registry.PushFront(m)
	if o.cfg.Breaker != nil {
		o.breakers[h] = o.newBreaker(name)
	}
	o.metrics.SetModulesRegistered(o.registry.Len())

	o.logger.Info("module added",
		zap.String("module", name),
		zap.Stringer("slot", slotOf(m)),
		zap.Int("modules", o.registry.Len()))
	return h, nil
}

func (o *Orchestrator) checkAddLocked(name string) error {
	if o.state == stateStopping || o.state == stateStopped {
		return ErrStopped
	}
	if o.cfg.UniqueNames {
		if _, ok := o.registry.Find(name); ok {
			return fmt.Errorf("%w: %s", ErrDuplicateModule, name)
		}
	}
	return nil
}

// Remove unlinks the first module named name, shuts it down and releases it,
// all under the lock. A failing Shutdown still removes the module.
func (o *Orchestrator) Remove(ctx context.Context, name string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	h, ok := o.registry.Find(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrModuleNotFound, name)
	}
	return o.removeLocked(ctx, h)
}

// Detach removes the module h was issued for. Once that module is gone h no
// longer resolves, and Detach returns ErrModuleNotFound even if a module
// with the same name has since been added.
func (o *Orchestrator) Detach(ctx context.Context, h Handle) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, ok := o.registry.Get(h); !ok {
		return ErrModuleNotFound
	}
	return o.removeLocked(ctx, h)
}

func (o *Orchestrator) removeLocked(ctx context.Context, h Handle) error {
	m, _ := o.registry.Get(h)
	o.registry.Unlink(h)
	err := o.shutdownModule(ctx, m)
	o.registry.Release(h)
	delete(o.breakers, h)
	o.metrics.SetModulesRegistered(o.registry.Len())

	o.logger.Info("module removed",
		zap.String("module", m.Name()),
		zap.Int("modules", o.registry.Len()))
	return err
}

// Modules returns module names in walk order
func (o *Orchestrator) Modules() []string {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.registry.Names()
}

// Submit queues input for processing and wakes one waiting worker.
// The record's context is ctx; cancelling it abandons the pass.
func (o *Orchestrator) Submit(ctx context.Context, input string) (*Ticket, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch o.state {
	case stateNew:
		return nil, ErrNotRunning
	case stateStopping, stateStopped:
		return nil, ErrStopped
	}

	j := &job{
		ctx:       ctx,
		rec:       NewRecord(input),
		done:      make(chan *Result, 1),
		submitted: time.Now(),
	}
	if !o.queue.push(j) {
		return nil, ErrQueueFull
	}

	o.metrics.IncRecordsSubmitted()
	o.metrics.SetQueueDepth(o.queue.len())
	o.cond.Signal()

	return &Ticket{RecordID: j.rec.ID, done: j.done}, nil
}

// Process submits input and waits for its result
func (o *Orchestrator) Process(ctx context.Context, input string) (*Result, error) {
	ticket, err := o.Submit(ctx, input)
	if err != nil {
		return nil, err
	}
	return ticket.Wait(ctx)
}

// Shutdown stops the pool and shuts down every remaining module. It blocks
// until all workers have exited. Module shutdown errors are combined.
// Calling Shutdown again returns ErrStopped.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	if o.state == stateStopping || o.state == stateStopped {
		o.mu.Unlock()
		return ErrStopped
	}
	o.state = stateStopping
	o.cond.Broadcast()
	o.mu.Unlock()

	o.logger.Info("orchestrator stopping")
	o.wg.Wait()

	o.mu.Lock()
	defer o.mu.Unlock()

	abandoned := 0
	for j := o.queue.pop(); j != nil; j = o.queue.pop() {
		j.complete(&Result{Record: j.rec, Err: ErrStopped, Worker: -1})
		abandoned++
	}

	var errs error
	for _, m := range o.registry.Drain() {
		errs = multierr.Append(errs, o.shutdownModule(ctx, m))
	}
	o.breakers = make(map[Handle]*resilience.Breaker)
	o.state = stateStopped

	o.metrics.SetQueueDepth(0)
	o.metrics.SetWorkersBusy(0)
	o.metrics.SetModulesRegistered(0)

	o.logger.Info("orchestrator stopped",
		zap.Int("abandoned", abandoned),
		zap.Uint64("processed", o.processed.Load()))
	return errs
}

// shutdownModule invokes m's Shutdown capability, if any
func (o *Orchestrator) shutdownModule(ctx context.Context, m Module) (err error) {
	s, ok := m.(Shutdowner)
	if !ok {
		return nil
	}

	name := m.Name()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrModulePanic, r)
		}
		if err != nil {
			o.metrics.RecordModuleError(name, OpShutdown)
			o.logger.Error("module shutdown failed", zap.String("module", name), zap.Error(err))
			err = &ModuleError{Module: name, Op: OpShutdown, Err: err}
		}
	}()

	return s.Shutdown(ctx)
}

func (o *Orchestrator) newBreaker(name string) *resilience.Breaker {
	settings := *o.cfg.Breaker
	if settings.OnStateChange == nil {
		settings.OnStateChange = func(module string, from, to resilience.State) {
			o.logger.Warn("module breaker state changed",
				zap.String("module", module),
				zap.Stringer("from", from),
				zap.Stringer("to", to))
		}
	}
	return resilience.New(name, settings)
}

// Stats is a point-in-time view of the orchestrator
type Stats struct {
	State         string      `json:"state"`
	Workers       int         `json:"workers"`
	Waiting       int         `json:"waiting"`
	Running       int         `json:"running"`
	Stopped       int         `json:"stopped"`
	QueueDepth    int         `json:"queue_depth"`
	QueueCapacity int         `json:"queue_capacity"`
	Modules       int         `json:"modules"`
	ErrorPolicy   ErrorPolicy `json:"error_policy"`
	Processed     uint64      `json:"processed"`
	Failed        uint64      `json:"failed"`
}

// Stats returns current pool, queue and registry figures
func (o *Orchestrator) Stats() Stats {
	o.mu.Lock()
	defer o.mu.Unlock()

	return Stats{
		State:         o.state.String(),
		Workers:       o.cfg.Workers,
		Waiting:       o.countLocked(WorkerWaiting),
		Running:       o.countLocked(WorkerRunning),
		Stopped:       o.countLocked(WorkerStopped),
		QueueDepth:    o.queue.len(),
		QueueCapacity: o.queue.cap(),
		Modules:       o.registry.Len(),
		ErrorPolicy:   o.cfg.ErrorPolicy,
		Processed:     o.processed.Load(),
		Failed:        o.failed.Load(),
	}
}
