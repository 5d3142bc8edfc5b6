package orchestrator

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the orchestrator
var (
	// Registry errors
	ErrModuleNil       = errors.New("module is nil")
	ErrModuleNameEmpty = errors.New("module name is empty")
	ErrModuleNotFound  = errors.New("module not found")
	ErrDuplicateModule = errors.New("module already registered")

	// Lifecycle errors
	ErrNotRunning     = errors.New("orchestrator is not running")
	ErrAlreadyStarted = errors.New("orchestrator already started")
	ErrStopped        = errors.New("orchestrator is stopped")
	ErrQueueFull      = errors.New("work queue is full")
	ErrInvalidConfig  = errors.New("invalid orchestrator config")

	// Processing errors
	ErrSlotNotOwned = errors.New("module does not own output slot")
	ErrModulePanic  = errors.New("module panicked")
	ErrRecordNil    = errors.New("record is nil")
)

// Capability names used in ModuleError.Op
const (
	OpInit     = "init"
	OpProcess  = "process"
	OpShutdown = "shutdown"
)

// ModuleError reports a failed module capability call
type ModuleError struct {
	Module string
	Op     string
	Err    error
}

func (e *ModuleError) Error() string {
	return fmt.Sprintf("module %q %s: %v", e.Module, e.Op, e.Err)
}

func (e *ModuleError) Unwrap() error {
	return e.Err
}
