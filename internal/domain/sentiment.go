package domain

// Category is the discrete classification of a composite sentiment score.
type Category string

const (
	CategoryPositive Category = "positive"
	CategoryNeutral  Category = "neutral"
	CategoryNegative Category = "negative"
)

// CompoundScore is the valence-lexicon model output.
type CompoundScore struct {
	Compound float64 `json:"compound"`
	Pos      float64 `json:"pos"`
	Neu      float64 `json:"neu"`
	Neg      float64 `json:"neg"`
}

// PolarityScore is the adjective-lexicon model output.
type PolarityScore struct {
	Polarity     float64 `json:"polarity"`
	Subjectivity float64 `json:"subjectivity"`
}

// SentimentScore holds the three model outputs and their fusion.
type SentimentScore struct {
	ModelA    CompoundScore
	ModelB    PolarityScore
	ModelC    int
	Composite float64
	Category  Category
}
