package orchestrator

import (
	"context"
	"time"

	"github.com/GriffinCanCode/MicroMind/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/MicroMind/backend/internal/shared/id"
	"go.uber.org/zap"
)

// WorkerState is the state of one pool worker
type WorkerState int

const (
	WorkerWaiting WorkerState = iota
	WorkerRunning
	WorkerStopped
)

func (s WorkerState) String() string {
	switch s {
	case WorkerWaiting:
		return "waiting"
	case WorkerRunning:
		return "running"
	case WorkerStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Result is the outcome of one pipeline pass
type Result struct {
	Record   *Record
	Err      error
	Duration time.Duration
	// Queued is the time the record spent waiting for a worker
	Queued time.Duration
	// Worker is the index of the worker that ran the pass, or -1 when the
	// job never reached a worker.
	Worker int
}

// Ticket is returned by Submit and delivers exactly one Result
type Ticket struct {
	RecordID id.RecordID
	done     <-chan *Result
}

// Done returns the channel the result is delivered on. It receives one value.
func (t *Ticket) Done() <-chan *Result {
	return t.done
}

// Wait blocks until the result is ready or ctx is done. The returned error
// is the result's error. Wait consumes the result; call it once.
func (t *Ticket) Wait(ctx context.Context) (*Result, error) {
	select {
	case res := <-t.done:
		return res, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type job struct {
	ctx       context.Context
	rec       *Record
	done      chan *Result
	submitted time.Time
}

func (j *job) complete(res *Result) {
	j.done <- res
}

// jobQueue is a fixed-capacity FIFO ring. Guarded by the orchestrator lock.
type jobQueue struct {
	buf  []*job
	head int
	size int
}

func newJobQueue(capacity int) *jobQueue {
	return &jobQueue{buf: make([]*job, capacity)}
}

func (q *jobQueue) push(j *job) bool {
	if q.size == len(q.buf) {
		return false
	}
	q.buf[(q.head+q.size)%len(q.buf)] = j
	q.size++
	return true
}

func (q *jobQueue) pop() *job {
	if q.size == 0 {
		return nil
	}
	j := q.buf[q.head]
	q.buf[q.head] = nil
	q.head = (q.head + 1) % len(q.buf)
	q.size--
	return j
}

func (q *jobQueue) len() int { return q.size }
func (q *jobQueue) cap() int { return len(q.buf) }

// worker waits on the condition variable until a job is queued or the
// orchestrator stops. A pass in progress always completes before the worker
// observes the stop.
func (o *Orchestrator) worker(idx int) {
	defer o.wg.Done()

	o.mu.Lock()
	for {
		for o.state == stateRunning && o.queue.len() == 0 {
			o.workers[idx] = WorkerWaiting
			o.cond.Wait()
		}
		if o.state != stateRunning && (!o.cfg.DrainOnShutdown || o.queue.len() == 0) {
			break
		}

		j := o.queue.pop()
		o.workers[idx] = WorkerRunning
		o.metrics.SetQueueDepth(o.queue.len())
		o.metrics.SetWorkersBusy(o.countLocked(WorkerRunning))
		o.mu.Unlock()

		o.run(idx, j)

		o.mu.Lock()
		o.workers[idx] = WorkerWaiting
		o.metrics.SetWorkersBusy(o.countLocked(WorkerRunning))
	}
	o.workers[idx] = WorkerStopped
	o.mu.Unlock()

	o.logger.Debug("worker stopped", zap.Int("worker", idx))
}

func (o *Orchestrator) run(idx int, j *job) {
	start := time.Now()
	res := &Result{Record: j.rec, Worker: idx, Queued: start.Sub(j.submitted)}

	if err := j.ctx.Err(); err != nil {
		// Submitter gave up before a worker got to it.
		res.Err = err
		o.finish(j, res, monitoring.StatusSkipped, start)
		return
	}

	res.Err = o.Execute(j.ctx, j.rec)
	status := monitoring.StatusSuccess
	if res.Err != nil {
		status = monitoring.StatusError
		o.logger.Debug("record failed",
			zap.String("record_id", j.rec.ID.String()),
			zap.Int("worker", idx),
			zap.Error(res.Err))
	}
	o.finish(j, res, status, start)
}

func (o *Orchestrator) finish(j *job, res *Result, status string, start time.Time) {
	res.Duration = time.Since(start)
	o.processed.Add(1)
	if res.Err != nil {
		o.failed.Add(1)
	}
	o.metrics.RecordRecordProcessed(status, res.Duration)
	j.complete(res)
}

// countLocked counts workers in state s. Caller holds mu.
func (o *Orchestrator) countLocked(s WorkerState) int {
	n := 0
	for _, ws := range o.workers {
		if ws == s {
			n++
		}
	}
	return n
}
