package sentiment

import (
	"embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed lexicons/*.yaml
var lexiconFS embed.FS

type textblobLexicon struct {
	Polarity     map[string][]float64 `yaml:"polarity"`
	Intensifiers map[string]float64   `yaml:"intensifiers"`
	Negations    []string             `yaml:"negations"`
}

type afinnLexicon struct {
	Scores map[string]int `yaml:"scores"`
}

// Parsed tables. Written once in init, read-only afterwards.
var (
	textblobWords   map[string]assessment
	textblobIntense map[string]float64
	textblobNegate  map[string]struct{}
	afinnScores     map[string]int
)

type assessment struct {
	polarity     float64
	subjectivity float64
}

func init() {
	if err := loadLexicons(); err != nil {
		panic(err)
	}
}

func loadLexicons() error {
	var tb textblobLexicon
	if err := decodeLexicon("lexicons/textblob.yaml", &tb); err != nil {
		return err
	}
	textblobWords = make(map[string]assessment, len(tb.Polarity))
	for w, ps := range tb.Polarity {
		if len(ps) != 2 {
			return fmt.Errorf("polarity entry %q: want [polarity, subjectivity], got %v", w, ps)
		}
		textblobWords[w] = assessment{polarity: ps[0], subjectivity: ps[1]}
	}
	textblobIntense = tb.Intensifiers
	textblobNegate = toSet(tb.Negations)

	var af afinnLexicon
	if err := decodeLexicon("lexicons/afinn.yaml", &af); err != nil {
		return err
	}
	afinnScores = af.Scores

	return nil
}

func decodeLexicon(name string, out any) error {
	data, err := lexiconFS.ReadFile(name)
	if err != nil {
		return fmt.Errorf("read lexicon %s: %w", name, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse lexicon %s: %w", name, err)
	}
	return nil
}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
