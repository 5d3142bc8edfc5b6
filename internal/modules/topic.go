package modules

import (
	"context"

	"github.com/GriffinCanCode/MicroMind/backend/internal/orchestrator"
	"github.com/GriffinCanCode/MicroMind/backend/internal/text"
	"go.uber.org/zap"
)

// General is the topic written when nothing stands out
const General = "general"

// TopicDetector picks the most frequent identifier bigram, falling back to
// the most frequent content word. Ties go to the earliest occurrence.
type TopicDetector struct {
	*base
	stop map[string]struct{}
}

// NewTopicDetector creates a topic detection module
func NewTopicDetector(name string, logger *zap.Logger) *TopicDetector {
	return &TopicDetector{base: newBase(name, orchestrator.SlotTopic, logger)}
}

// Init builds the stopword set from every supported language
func (d *TopicDetector) Init(context.Context) error {
	d.stop = make(map[string]struct{})
	for _, words := range languageStopwords {
		for _, w := range words {
			d.stop[text.Fold(w)] = struct{}{}
		}
	}
	return nil
}

func (d *TopicDetector) Process(_ context.Context, rec *orchestrator.Record) error {
	return d.set(rec, d.Detect(rec.Input))
}

// Detect returns the topic of s
func (d *TopicDetector) Detect(s string) string {
	var content []string
	for _, w := range text.Words(s) {
		if _, ok := d.stop[w]; ok {
			continue
		}
		if text.Classify(w) != text.TokenIdentifier || len([]rune(w)) < 3 {
			continue
		}
		content = append(content, w)
	}

	if grams, err := text.NGrams(content, 2); err == nil {
		if topic, count := mostFrequent(grams); count > 1 {
			return topic
		}
	}

	if grams, err := text.NGrams(content, 1); err == nil {
		if topic, count := mostFrequent(grams); count > 0 {
			return topic
		}
	}
	return General
}

func mostFrequent(grams []text.NGram) (string, int) {
	counts := make(map[string]int, len(grams))
	best, bestCount := "", 0
	for _, g := range grams {
		key := g.String()
		counts[key]++
		if counts[key] > bestCount {
			best, bestCount = key, counts[key]
		}
	}
	return best, bestCount
}
