package sentiment

import "github.com/pscheid92/tickerpulse/internal/domain"

const textblobNegation = -0.5

// polarityScore is the adjective/adverb model. Intensifiers and negations
// apply to the next word only.
func polarityScore(tokens []string) domain.PolarityScore {
	var polSum, subjSum float64
	var n int

	multiplier := 1.0
	negated := false
	for _, tok := range tokens {
		if m, ok := textblobIntense[tok]; ok {
			multiplier *= m
			continue
		}
		if _, ok := textblobNegate[tok]; ok {
			negated = true
			continue
		}

		a, ok := textblobWords[tok]
		if ok {
			p := a.polarity * multiplier
			if negated {
				p *= textblobNegation
			}
			polSum += clamp(p, -1, 1)
			subjSum += clamp(a.subjectivity*multiplier, 0, 1)
			n++
		}
		multiplier = 1.0
		negated = false
	}

	if n == 0 {
		return domain.PolarityScore{}
	}
	return domain.PolarityScore{
		Polarity:     round(clamp(polSum/float64(n), -1, 1), 4),
		Subjectivity: round(clamp(subjSum/float64(n), 0, 1), 4),
	}
}
