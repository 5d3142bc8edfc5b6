package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	apihttp "github.com/GriffinCanCode/MicroMind/backend/internal/api/http"
	"github.com/GriffinCanCode/MicroMind/backend/internal/api/middleware"
	"github.com/GriffinCanCode/MicroMind/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/MicroMind/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/MicroMind/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/MicroMind/backend/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/MicroMind/backend/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/MicroMind/backend/internal/modules"
	"github.com/GriffinCanCode/MicroMind/backend/internal/orchestrator"
	"github.com/GriffinCanCode/MicroMind/backend/internal/pipeline"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	config     *config.Config
	logger     *logging.Logger
	registry   *prometheus.Registry
	metrics    *monitoring.Metrics
	tracer     *tracing.Tracer
	orch       *orchestrator.Orchestrator
	catalog    *modules.Catalog
	reconciler *pipeline.Reconciler
	router     *gin.Engine
	http       *http.Server

	stopWatch context.CancelFunc
	watchDone chan struct{}
}

// NewServer wires the orchestrator, its pipeline and the HTTP API. The
// orchestrator is started and the pipeline applied before it returns.
func NewServer(cfg *config.Config, logger *logging.Logger) (*Server, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	logger.Info("Initializing MicroMind server",
		zap.String("addr", cfg.Addr()),
		zap.Int("workers", cfg.Orchestrator.Workers),
		zap.String("error_policy", cfg.Orchestrator.ErrorPolicy),
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := monitoring.NewMetrics(registry)
	tracer := tracing.New("micromind", logger.Component("tracing"))

	orch, err := orchestrator.New(orchestratorConfig(cfg), logger.Component("orchestrator"))
	if err != nil {
		tracer.Close()
		return nil, err
	}
	orch.WithMetrics(metrics).WithTracer(tracer)

	catalog := modules.NewCatalog(logger.Component("modules"))
	reconciler := pipeline.NewReconciler(orch, catalog, logger.Component("pipeline"))

	s := &Server{
		config:     cfg,
		logger:     logger,
		registry:   registry,
		metrics:    metrics,
		tracer:     tracer,
		orch:       orch,
		catalog:    catalog,
		reconciler: reconciler,
	}

	if err := orch.Start(); err != nil {
		tracer.Close()
		return nil, err
	}
	if err := s.applyPipeline(context.Background()); err != nil {
		_ = orch.Shutdown(context.Background())
		tracer.Close()
		return nil, err
	}

	s.router = s.newRouter()
	s.http = &http.Server{
		Addr:    cfg.Addr(),
		Handler: s.Handler(),
	}

	logger.Info("Server initialized successfully", zap.Strings("modules", orch.Modules()))
	return s, nil
}

func orchestratorConfig(cfg *config.Config) orchestrator.Config {
	oc := orchestrator.Config{
		Workers:         cfg.Orchestrator.Workers,
		QueueSize:       cfg.Orchestrator.QueueSize,
		ErrorPolicy:     orchestrator.ErrorPolicy(cfg.Orchestrator.ErrorPolicy),
		DrainOnShutdown: cfg.Orchestrator.DrainOnShutdown,
		UniqueNames:     cfg.Orchestrator.UniqueNames,
	}
	if cfg.Breaker.Enabled {
		oc.Breaker = &resilience.Settings{
			MaxRequests: 1,
			Timeout:     cfg.Breaker.Timeout,
			ReadyToTrip: resilience.ConsecutiveFailures(cfg.Breaker.MaxFailures),
		}
	}
	return oc
}

// applyPipeline loads the manifest file, or the stock pipeline when none is
// configured
func (s *Server) applyPipeline(ctx context.Context) error {
	var manifest *pipeline.Manifest
	if path := s.config.Pipeline.File; path != "" {
		m, err := pipeline.LoadFile(path)
		if err != nil {
			return fmt.Errorf("load pipeline: %w", err)
		}
		manifest = m
	} else {
		manifest = &pipeline.Manifest{}
		for _, kind := range modules.DefaultPipeline() {
			manifest.Modules = append(manifest.Modules, pipeline.Entry{Name: kind, Kind: kind})
		}
	}

	if err := s.reconciler.Apply(ctx, manifest); err != nil {
		return fmt.Errorf("apply pipeline: %w", err)
	}
	return nil
}

func (s *Server) newRouter() *gin.Engine {
	if !s.config.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(s.logger.Component("http")))
	router.Use(tracing.HTTPMiddleware(s.tracer))
	router.Use(monitoring.Middleware(s.metrics))

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = s.config.Server.AllowedOrigins
	router.Use(middleware.CORS(corsCfg))

	if s.config.RateLimit.Enabled {
		s.logger.Info("Rate limiting enabled",
			zap.Int("rps", s.config.RateLimit.RequestsPerSecond),
			zap.Int("burst", s.config.RateLimit.Burst),
		)
		rl := middleware.DefaultRateLimitConfig()
		rl.RequestsPerSecond = s.config.RateLimit.RequestsPerSecond
		rl.Burst = s.config.RateLimit.Burst
		router.Use(middleware.RateLimit(rl))
	}

	handlers := apihttp.NewHandlers(s.orch, s.catalog, s.metrics, s.logger.Component("api"))
	handlers.Register(router)

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{
		// gzhttp compresses the response
		DisableCompression: true,
	})))

	return router
}

// Handler returns the root handler. Everything except the WebSocket stream
// is gzip-compressed when the client accepts it.
func (s *Server) Handler() http.Handler {
	compressed := gzhttp.GzipHandler(s.router)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/stream" {
			s.router.ServeHTTP(w, r)
			return
		}
		compressed.ServeHTTP(w, r)
	})
}

// Orchestrator returns the running orchestrator
func (s *Server) Orchestrator() *orchestrator.Orchestrator {
	return s.orch
}

// Run serves on the configured address until Shutdown is called
func (s *Server) Run() error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return s.Serve(ln)
}

// Serve serves on ln until Shutdown is called. It starts the manifest
// watcher when one is configured.
func (s *Server) Serve(ln net.Listener) error {
	if s.config.Pipeline.Watch {
		s.startWatcher()
	}

	s.logger.Info("Starting HTTP server", zap.String("addr", ln.Addr().String()))
	if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) startWatcher() {
	ctx, cancel := context.WithCancel(context.Background())
	s.stopWatch = cancel
	s.watchDone = make(chan struct{})

	watcher := pipeline.NewWatcher(s.config.Pipeline.File, s.reconciler,
		s.logger.Component("watcher"), pipeline.DefaultDebounce)
	go func() {
		defer close(s.watchDone)
		if err := watcher.Run(ctx); err != nil {
			s.logger.Error("Pipeline watcher stopped", zap.Error(err))
		}
	}()
}

// Shutdown stops accepting requests, stops the watcher, then shuts the
// orchestrator and its modules down
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	var err error
	if e := s.http.Shutdown(ctx); e != nil {
		err = multierr.Append(err, fmt.Errorf("http shutdown: %w", e))
	}

	if s.stopWatch != nil {
		s.stopWatch()
		<-s.watchDone
	}

	if e := s.orch.Shutdown(ctx); e != nil {
		err = multierr.Append(err, fmt.Errorf("orchestrator shutdown: %w", e))
	}
	s.tracer.Close()

	_ = s.logger.Sync()
	return err
}
