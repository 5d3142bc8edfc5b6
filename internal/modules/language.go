package modules

import (
	"context"
	"strings"

	"github.com/GriffinCanCode/MicroMind/backend/internal/orchestrator"
	"github.com/GriffinCanCode/MicroMind/backend/internal/text"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Unknown is written when a module finds no evidence either way
const Unknown = "unknown"

var languageStopwords = map[language.Tag][]string{
	language.Czech: {
		"a", "aby", "ale", "ani", "ano", "asi", "až", "bez", "by", "byl", "byla",
		"bylo", "být", "co", "do", "i", "jak", "jako", "je", "jeho", "jejich",
		"jen", "jsem", "jsme", "jsou", "k", "kde", "když", "která", "které",
		"který", "mi", "mít", "na", "nebo", "není", "o", "od", "po", "pro",
		"proto", "se", "si", "tak", "také", "to", "u", "už", "v", "ve", "z", "za",
		"že", "dobrý", "den", "děkuji", "ahoj", "prosím",
	},
	language.English: {
		"a", "about", "an", "and", "are", "as", "at", "be", "but", "by", "for",
		"from", "has", "have", "he", "i", "in", "is", "it", "not", "of", "on",
		"or", "she", "that", "the", "this", "to", "was", "we", "were", "what",
		"with", "you", "hello", "thanks", "please",
	},
}

// czechLetters only occur in Czech among the supported languages
const czechLetters = "ěščřžýáíéůúňťď"

// LanguageDetector writes the display name of the detected language
type LanguageDetector struct {
	*base
	stopwords map[string][]language.Tag
	namer     display.Namer
}

// NewLanguageDetector creates a language detection module
func NewLanguageDetector(name string, logger *zap.Logger) *LanguageDetector {
	return &LanguageDetector{
		base:  newBase(name, orchestrator.SlotLanguage, logger),
		namer: display.English.Tags(),
	}
}

// Init builds the folded stopword index
func (d *LanguageDetector) Init(context.Context) error {
	d.stopwords = make(map[string][]language.Tag)
	for tag, words := range languageStopwords {
		for _, w := range words {
			d.stopwords[text.Fold(w)] = append(d.stopwords[text.Fold(w)], tag)
		}
	}
	return nil
}

// Process scores each language by stopword hits; Czech-only letters add
// extra weight to Czech.
func (d *LanguageDetector) Process(_ context.Context, rec *orchestrator.Record) error {
	return d.set(rec, d.Detect(rec.Input))
}

// Detect returns the display name of the language of s, or Unknown
func (d *LanguageDetector) Detect(s string) string {
	scores := make(map[language.Tag]int)
	for _, w := range text.Words(s) {
		for _, tag := range d.stopwords[w] {
			scores[tag]++
		}
		for _, r := range w {
			if strings.ContainsRune(czechLetters, r) {
				scores[language.Czech] += 2
				break
			}
		}
	}

	best, bestScore, tie := language.Und, 0, false
	for _, tag := range []language.Tag{language.Czech, language.English} {
		switch score := scores[tag]; {
		case score > bestScore:
			best, bestScore, tie = tag, score, false
		case score == bestScore && score > 0:
			tie = true
		}
	}
	if bestScore == 0 || tie {
		return Unknown
	}
	return d.namer.Name(best)
}
