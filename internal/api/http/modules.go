package http

import (
	"errors"
	"net/http"

	"github.com/GriffinCanCode/MicroMind/backend/internal/modules"
	"github.com/GriffinCanCode/MicroMind/backend/internal/orchestrator"
	"github.com/GriffinCanCode/MicroMind/backend/internal/shared/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AddModuleRequest asks for a stock module to be built and registered
type AddModuleRequest struct {
	Name string `json:"name" binding:"omitempty,max=64"`
	Kind string `json:"kind" binding:"required"`
}

// ListModules lists modules in execution order
func (h *Handlers) ListModules(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"modules": h.orch.Modules(),
		"kinds":   h.catalog.Kinds(),
	})
}

// AddModule builds a module of the requested kind and adds it at the head
// of the pipeline
func (h *Handlers) AddModule(c *gin.Context) {
	var req AddModuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.Name != "" {
		if err := utils.ValidateName(req.Name); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	m, err := h.catalog.Build(req.Kind, req.Name)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.orch.Add(c.Request.Context(), m); err != nil {
		c.JSON(addStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"name":    m.Name(),
		"kind":    req.Kind,
		"modules": h.orch.Modules(),
	})
}

func addStatus(err error) int {
	var modErr *orchestrator.ModuleError
	switch {
	case errors.Is(err, orchestrator.ErrDuplicateModule):
		return http.StatusConflict
	case errors.Is(err, orchestrator.ErrStopped):
		return http.StatusServiceUnavailable
	case errors.Is(err, modules.ErrUnknownKind):
		return http.StatusBadRequest
	case errors.As(err, &modErr):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// RemoveModule removes the newest module with the given name. A module whose
// shutdown fails is still removed; the failure is reported as a warning.
func (h *Handlers) RemoveModule(c *gin.Context) {
	name := c.Param("name")

	err := h.orch.Remove(c.Request.Context(), name)
	var modErr *orchestrator.ModuleError
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"removed": name, "modules": h.orch.Modules()})
	case errors.Is(err, orchestrator.ErrModuleNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &modErr):
		h.logger.Warn("module removed with shutdown error", zap.String("module", name), zap.Error(err))
		c.JSON(http.StatusOK, gin.H{
			"removed": name,
			"modules": h.orch.Modules(),
			"warning": err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
