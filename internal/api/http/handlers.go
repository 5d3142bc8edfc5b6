package http

import (
	"context"
	"net/http"

	"github.com/GriffinCanCode/MicroMind/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/MicroMind/backend/internal/orchestrator"
	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

// Version is reported by the root endpoint
const Version = "0.3.0"

// Orchestrator is the orchestrator surface the API drives
type Orchestrator interface {
	Add(ctx context.Context, m orchestrator.Module) error
	Remove(ctx context.Context, name string) error
	Modules() []string
	Submit(ctx context.Context, input string) (*orchestrator.Ticket, error)
	Process(ctx context.Context, input string) (*orchestrator.Result, error)
	Stats() orchestrator.Stats
}

// Catalog builds modules by kind
type Catalog interface {
	Build(kind, name string) (orchestrator.Module, error)
	Kinds() []string
}

// Handlers contains all HTTP handlers
type Handlers struct {
	orch     Orchestrator
	catalog  Catalog
	metrics  *monitoring.Metrics
	logger   *zap.Logger
	sanitize *bluemonday.Policy
}

// NewHandlers creates a new handler set
func NewHandlers(orch Orchestrator, catalog Catalog, metrics *monitoring.Metrics, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		orch:     orch,
		catalog:  catalog,
		metrics:  metrics,
		logger:   logger,
		sanitize: bluemonday.StrictPolicy(),
	}
}

// Register mounts every route on r
func (h *Handlers) Register(r gin.IRouter) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)

	r.GET("/modules", h.ListModules)
	r.POST("/modules", h.AddModule)
	r.DELETE("/modules/:name", h.RemoveModule)

	r.POST("/records", h.SubmitRecord)
	r.POST("/records/raw", h.SubmitRaw)

	r.GET("/stream", h.Stream)
}

// Root handles the service banner
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "MicroMind Orchestrator",
		"version": Version,
	})
}

// Health reports orchestrator and request statistics. A stopped
// orchestrator reports 503.
func (h *Handlers) Health(c *gin.Context) {
	stats := h.orch.Stats()

	status, code := "healthy", http.StatusOK
	if stats.State != "running" {
		status, code = "unavailable", http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":       status,
		"orchestrator": stats,
		"metrics":      h.metrics.Snapshot(),
	})
}
