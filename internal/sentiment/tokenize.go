package sentiment

import (
	"strings"
	"unicode"
)

// Tokenize lowercases text and splits it on every rune that is not a letter,
// digit or apostrophe. Apostrophes at the edges of a token are trimmed, so
// "'profit'" yields "profit" while "isn't" is kept whole.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && !isApostrophe(r)
	})

	tokens := fields[:0]
	for _, f := range fields {
		f = strings.TrimFunc(f, isApostrophe)
		if f == "" {
			continue
		}
		tokens = append(tokens, strings.ReplaceAll(f, "’", "'"))
	}
	return tokens
}

func isApostrophe(r rune) bool {
	return r == '\'' || r == '’'
}
