package sentiment

// wordScore is the integer word-score model.
func wordScore(tokens []string) int {
	total := 0
	for _, tok := range tokens {
		total += afinnScores[tok]
	}
	return total
}
