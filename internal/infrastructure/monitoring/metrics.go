package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records nothing.
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Orchestrator metrics
	ModulesRegistered prometheus.Gauge
	RecordsSubmitted  prometheus.Counter
	RecordsProcessed  *prometheus.CounterVec
	RecordDuration    prometheus.Histogram
	QueueDepth        prometheus.Gauge
	WorkersBusy       prometheus.Gauge

	// Module metrics
	ModuleCalls    *prometheus.CounterVec
	ModuleDuration *prometheus.HistogramVec
	ModuleErrors   *prometheus.CounterVec

	// WebSocket metrics
	WSConnections prometheus.Gauge

	// System metrics
	Uptime    prometheus.GaugeFunc
	startTime time.Time

	snapshot Snapshot
	mu       sync.RWMutex
}

// Snapshot holds current values for the JSON health endpoint
type Snapshot struct {
	TotalRequests    int64   `json:"total_requests"`
	TotalErrors      int64   `json:"total_errors"`
	RecordsProcessed int64   `json:"records_processed"`
	RecordsFailed    int64   `json:"records_failed"`
	AvgRecordSeconds float64 `json:"avg_record_seconds"`
	UptimeSeconds    float64 `json:"uptime_seconds"`

	recordSeconds float64
}

// NewMetrics creates a metrics collector registered on reg.
// Pass prometheus.DefaultRegisterer for the process-wide registry; tests
// should pass a fresh prometheus.NewRegistry().
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{startTime: time.Now()}

	m.RequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "micromind_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	m.RequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "micromind_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)
	m.RequestSize = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "micromind_http_request_size_bytes",
			Help:    "HTTP request size in bytes",
			Buckets: []float64{100, 1000, 10000, 100000, 1000000},
		},
		[]string{"method", "path"},
	)
	m.ResponseSize = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "micromind_http_response_size_bytes",
			Help:    "HTTP response size in bytes",
			Buckets: []float64{100, 1000, 10000, 100000, 1000000},
		},
		[]string{"method", "path"},
	)

	m.ModulesRegistered = factory.NewGauge(prometheus.GaugeOpts{
		Name: "micromind_modules_registered",
		Help: "Number of modules currently in the pipeline",
	})
	m.RecordsSubmitted = factory.NewCounter(prometheus.CounterOpts{
		Name: "micromind_records_submitted_total",
		Help: "Total number of records accepted into the work queue",
	})
	m.RecordsProcessed = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "micromind_records_processed_total",
			Help: "Total number of records that left the pipeline",
		},
		[]string{"status"},
	)
	m.RecordDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Name:    "micromind_record_duration_seconds",
		Help:    "Time from dequeue to pipeline completion",
		Buckets: prometheus.DefBuckets,
	})
	m.QueueDepth = factory.NewGauge(prometheus.GaugeOpts{
		Name: "micromind_queue_depth",
		Help: "Records waiting for a worker",
	})
	m.WorkersBusy = factory.NewGauge(prometheus.GaugeOpts{
		Name: "micromind_workers_busy",
		Help: "Workers currently running a pipeline pass",
	})

	m.ModuleCalls = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "micromind_module_calls_total",
			Help: "Total number of module process calls",
		},
		[]string{"module", "status"},
	)
	m.ModuleDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "micromind_module_duration_seconds",
			Help:    "Module process duration in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		},
		[]string{"module"},
	)
	m.ModuleErrors = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "micromind_module_errors_total",
			Help: "Total number of module capability failures",
		},
		[]string{"module", "op"},
	)

	m.WSConnections = factory.NewGauge(prometheus.GaugeOpts{
		Name: "micromind_ws_connections",
		Help: "Open WebSocket stream connections",
	})
	m.Uptime = factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "micromind_uptime_seconds",
			Help: "Seconds since the metrics collector was created",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	m.mu.Lock()
	m.snapshot.TotalRequests++
	if status != "" && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// SetModulesRegistered sets the current pipeline length
func (m *Metrics) SetModulesRegistered(count int) {
	if m == nil {
		return
	}
	m.ModulesRegistered.Set(float64(count))
}

// IncRecordsSubmitted counts a record accepted into the queue
func (m *Metrics) IncRecordsSubmitted() {
	if m == nil {
		return
	}
	m.RecordsSubmitted.Inc()
}

// RecordRecordProcessed records one finished pipeline pass
func (m *Metrics) RecordRecordProcessed(status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RecordsProcessed.WithLabelValues(status).Inc()
	m.RecordDuration.Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.RecordsProcessed++
	if status != StatusSuccess {
		m.snapshot.RecordsFailed++
	}
	m.snapshot.recordSeconds += duration.Seconds()
	m.mu.Unlock()
}

// RecordModuleCall records one module process call
func (m *Metrics) RecordModuleCall(module, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.ModuleCalls.WithLabelValues(module, status).Inc()
	m.ModuleDuration.WithLabelValues(module).Observe(duration.Seconds())
}

// RecordModuleError records a capability failure (op is init, process or shutdown)
func (m *Metrics) RecordModuleError(module, op string) {
	if m == nil {
		return
	}
	m.ModuleErrors.WithLabelValues(module, op).Inc()
}

// SetQueueDepth sets the number of queued records
func (m *Metrics) SetQueueDepth(depth int) {
	if m == nil {
		return
	}
	m.QueueDepth.Set(float64(depth))
}

// SetWorkersBusy sets the number of running workers
func (m *Metrics) SetWorkersBusy(count int) {
	if m == nil {
		return
	}
	m.WorkersBusy.Set(float64(count))
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Inc()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	if m == nil {
		return
	}
	m.WSConnections.Dec()
}

// Snapshot returns a copy of the aggregate counters
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := m.snapshot
	if s.RecordsProcessed > 0 {
		s.AvgRecordSeconds = s.recordSeconds / float64(s.RecordsProcessed)
	}
	s.UptimeSeconds = time.Since(m.startTime).Seconds()
	return s
}
