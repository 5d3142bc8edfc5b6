package modules

import (
	"errors"
	"fmt"
	"sort"

	"github.com/GriffinCanCode/MicroMind/backend/internal/orchestrator"
	"go.uber.org/zap"
)

// Stock module kinds
const (
	KindLanguage  = "language"
	KindSentiment = "sentiment"
	KindTopic     = "topic"
	KindResponse  = "response"
)

// DefaultSentimentThreshold is the neutral band used by the catalog
const DefaultSentimentThreshold = 0.25

// ErrUnknownKind is returned when a catalog has no factory for a kind
var ErrUnknownKind = errors.New("unknown module kind")

// Factory builds a module with the given name
type Factory func(name string, logger *zap.Logger) orchestrator.Module

// Catalog builds modules by kind
type Catalog struct {
	logger    *zap.Logger
	factories map[string]Factory
}

// NewCatalog returns a catalog holding the stock modules
func NewCatalog(logger *zap.Logger) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Catalog{logger: logger, factories: make(map[string]Factory)}

	c.Register(KindLanguage, func(name string, l *zap.Logger) orchestrator.Module {
		return NewLanguageDetector(name, l)
	})
	c.Register(KindSentiment, func(name string, l *zap.Logger) orchestrator.Module {
		return NewSentimentAnalyzer(name, DefaultSentimentThreshold, l)
	})
	c.Register(KindTopic, func(name string, l *zap.Logger) orchestrator.Module {
		return NewTopicDetector(name, l)
	})
	c.Register(KindResponse, func(name string, l *zap.Logger) orchestrator.Module {
		return NewResponseGenerator(name, l)
	})
	return c
}

// Register adds or replaces the factory for kind
func (c *Catalog) Register(kind string, f Factory) {
	c.factories[kind] = f
}

// Build creates a module of kind. An empty name defaults to the kind.
func (c *Catalog) Build(kind, name string) (orchestrator.Module, error) {
	f, ok := c.factories[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if name == "" {
		name = kind
	}
	return f(name, c.logger), nil
}

// Kinds returns the registered kinds, sorted
func (c *Catalog) Kinds() []string {
	kinds := make([]string, 0, len(c.factories))
	for k := range c.factories {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// DefaultPipeline lists the stock kinds in execution order
func DefaultPipeline() []string {
	return []string{KindLanguage, KindSentiment, KindTopic, KindResponse}
}
