package sentiment

import (
	"sync"

	"github.com/jonreiter/govader"
	"github.com/pscheid92/tickerpulse/internal/domain"
)

// The analyzer loads its lexicon on construction and only reads it afterwards.
var vaderAnalyzer = sync.OnceValue(govader.NewSentimentIntensityAnalyzer)

// valenceScore is the compound model. It reads the raw text so that
// capitalization and punctuation emphasis count.
func valenceScore(text string) domain.CompoundScore {
	s := vaderAnalyzer().PolarityScores(text)
	return domain.CompoundScore{
		Compound: round(clamp(s.Compound, -1, 1), 4),
		Pos:      round(s.Positive, 3),
		Neu:      round(s.Neutral, 3),
		Neg:      round(s.Negative, 3),
	}
}
