package modules

import (
	"context"
	"fmt"
	"strings"

	"github.com/GriffinCanCode/MicroMind/backend/internal/orchestrator"
	"go.uber.org/zap"
)

// ResponseGenerator summarizes what earlier modules found. It must sit at the
// tail of the pipeline (added first) to see their outputs.
type ResponseGenerator struct {
	*base
}

// NewResponseGenerator creates a response module
func NewResponseGenerator(name string, logger *zap.Logger) *ResponseGenerator {
	return &ResponseGenerator{base: newBase(name, orchestrator.SlotResponse, logger)}
}

func (g *ResponseGenerator) Process(_ context.Context, rec *orchestrator.Record) error {
	return g.set(rec, g.Respond(rec))
}

// Respond builds the reply for rec from its language, sentiment and topic
func (g *ResponseGenerator) Respond(rec *orchestrator.Record) string {
	lang := rec.Output(orchestrator.SlotLanguage)
	sentiment := rec.Output(orchestrator.SlotSentiment)
	topic := rec.Output(orchestrator.SlotTopic)

	var parts []string
	if lang != "" && lang != Unknown {
		parts = append(parts, lang+" text")
	} else {
		parts = append(parts, "text")
	}
	if sentiment != "" {
		parts = append(parts, "with "+strings.ToLower(sentiment)+" sentiment")
	}
	if topic != "" && topic != General {
		parts = append(parts, fmt.Sprintf("about %q", topic))
	}

	reply := "Received " + strings.Join(parts, " ") + "."
	switch sentiment {
	case Positive:
		reply += " Glad to hear it."
	case Negative:
		reply += " Sorry to hear that."
	}
	return reply
}
