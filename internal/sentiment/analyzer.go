package sentiment

import (
	"errors"
	"math"

	"github.com/pscheid92/tickerpulse/internal/domain"
)

// Weights are the relative contributions of the three models to the composite.
type Weights struct {
	Valence  float64
	Polarity float64
	Words    float64
}

type Config struct {
	Weights Weights
	// WordScale maps the integer word score onto [-1, 1] before fusion.
	WordScale float64
	// Epsilon is the half-width of the neutral band. The boundary is neutral.
	Epsilon float64
}

func DefaultConfig() Config {
	return Config{
		Weights:   Weights{Valence: 1, Polarity: 1, Words: 1},
		WordScale: 5,
		Epsilon:   0.05,
	}
}

// Analyzer implements domain.Scorer.
type Analyzer struct {
	weights   Weights
	weightSum float64
	wordScale float64
	epsilon   float64
}

var _ domain.Scorer = (*Analyzer)(nil)

func New(cfg Config) (*Analyzer, error) {
	w := cfg.Weights
	if w.Valence < 0 || w.Polarity < 0 || w.Words < 0 {
		return nil, errors.New("sentiment weights must not be negative")
	}
	sum := w.Valence + w.Polarity + w.Words
	if sum == 0 {
		return nil, errors.New("at least one sentiment weight must be positive")
	}
	if cfg.WordScale <= 0 {
		return nil, errors.New("word scale must be positive")
	}
	if cfg.Epsilon < 0 || cfg.Epsilon >= 1 {
		return nil, errors.New("epsilon must be in [0, 1)")
	}
	return &Analyzer{weights: w, weightSum: sum, wordScale: cfg.WordScale, epsilon: cfg.Epsilon}, nil
}

// Score runs all three models over text and fuses them. Empty text scores
// neutral with all components zero.
func (a *Analyzer) Score(text string) domain.SentimentScore {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return domain.SentimentScore{Category: domain.CategoryNeutral}
	}

	valence := valenceScore(text)
	polarity := polarityScore(tokens)
	words := wordScore(tokens)

	composite := a.Fuse(valence.Compound, polarity.Polarity, words)
	return domain.SentimentScore{
		ModelA:    valence,
		ModelB:    polarity,
		ModelC:    words,
		Composite: composite,
		Category:  a.Categorize(composite),
	}
}

// Fuse combines the three model outputs into the composite score in [-1, 1],
// rounded to 4 places.
func (a *Analyzer) Fuse(valence, polarity float64, words int) float64 {
	normalizedWords := clamp(float64(words)/a.wordScale, -1, 1)
	sum := a.weights.Valence*valence + a.weights.Polarity*polarity + a.weights.Words*normalizedWords
	return round(clamp(sum/a.weightSum, -1, 1), 4)
}

// Categorize maps a composite onto a category. Exactly ±epsilon is neutral.
func (a *Analyzer) Categorize(composite float64) domain.Category {
	switch {
	case composite > a.epsilon:
		return domain.CategoryPositive
	case composite < -a.epsilon:
		return domain.CategoryNegative
	default:
		return domain.CategoryNeutral
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
