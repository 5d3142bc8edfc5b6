package modules

import (
	"context"

	"github.com/GriffinCanCode/MicroMind/backend/internal/orchestrator"
	"github.com/GriffinCanCode/MicroMind/backend/internal/text"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
)

// Sentiment labels
const (
	Positive = "Positive"
	Negative = "Negative"
	Neutral  = "Neutral"
)

var sentimentLexicon = map[string]float64{
	// English
	"good": 1, "great": 1.5, "excellent": 2, "love": 2, "like": 0.5, "happy": 1.5,
	"nice": 1, "wonderful": 2, "best": 1.5, "thanks": 1, "awesome": 2,
	"bad": -1, "terrible": -2, "awful": -2, "hate": -2, "sad": -1.5,
	"poor": -1, "worst": -2, "broken": -1, "angry": -1.5, "slow": -0.5,
	// Czech
	"dobrý": 1, "dobře": 1, "skvělý": 1.5, "výborný": 2, "miluji": 2,
	"děkuji": 1, "krásný": 1.5, "super": 1.5, "rád": 1,
	"špatný": -1, "špatně": -1, "hrozný": -2, "nenávidím": -2, "smutný": -1.5,
	"pomalý": -0.5, "rozbitý": -1,
}

var negations = map[string]struct{}{
	"not": {}, "no": {}, "never": {}, "ne": {}, "nikdy": {},
}

// SentimentAnalyzer labels a record Positive, Negative or Neutral from the
// mean lexicon score of the words it recognizes.
type SentimentAnalyzer struct {
	*base
	threshold float64
	lexicon   map[string]float64
	negations map[string]struct{}
}

// NewSentimentAnalyzer creates a sentiment module. Mean scores within
// ±threshold are Neutral.
func NewSentimentAnalyzer(name string, threshold float64, logger *zap.Logger) *SentimentAnalyzer {
	return &SentimentAnalyzer{
		base:      newBase(name, orchestrator.SlotSentiment, logger),
		threshold: threshold,
	}
}

// Init builds the lexicon keyed by diacritic-insensitive folded words
func (a *SentimentAnalyzer) Init(context.Context) error {
	a.lexicon = make(map[string]float64, len(sentimentLexicon))
	for w, score := range sentimentLexicon {
		a.lexicon[text.Key(w)] = score
	}
	a.negations = make(map[string]struct{}, len(negations))
	for w := range negations {
		a.negations[text.Key(w)] = struct{}{}
	}
	return nil
}

func (a *SentimentAnalyzer) Process(_ context.Context, rec *orchestrator.Record) error {
	return a.set(rec, a.Classify(rec.Input))
}

// Score returns the mean score of recognized words and how many matched.
// A negation word flips the sign of the next scored word.
func (a *SentimentAnalyzer) Score(s string) (float64, int) {
	var scores []float64
	negate := false
	for _, w := range text.Words(s) {
		key := text.Key(w)
		if _, ok := a.negations[key]; ok {
			negate = true
			continue
		}
		score, ok := a.lexicon[key]
		if !ok {
			continue
		}
		if negate {
			score = -score
			negate = false
		}
		scores = append(scores, score)
	}
	if len(scores) == 0 {
		return 0, 0
	}
	return stat.Mean(scores, nil), len(scores)
}

// Classify returns the sentiment label for s
func (a *SentimentAnalyzer) Classify(s string) string {
	mean, n := a.Score(s)
	switch {
	case n == 0:
		return Neutral
	case mean > a.threshold:
		return Positive
	case mean < -a.threshold:
		return Negative
	default:
		return Neutral
	}
}
