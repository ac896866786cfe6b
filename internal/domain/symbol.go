package domain

import (
	"errors"
	"regexp"
	"strings"
)

// DefaultSymbol is the ticker served when a client connects without choosing one.
const DefaultSymbol Symbol = "BCS"

// ErrInvalidSymbolFormat is returned by ParseSymbol for input that cannot be a ticker.
var ErrInvalidSymbolFormat = errors.New("invalid symbol format")

var symbolPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.\-=^]{0,14}$`)

// Symbol is a canonical uppercase ticker. It keys all per-symbol state.
type Symbol string

// ParseSymbol trims and upper-cases raw input and validates the result.
func ParseSymbol(raw string) (Symbol, error) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if !symbolPattern.MatchString(s) {
		return "", ErrInvalidSymbolFormat
	}
	return Symbol(s), nil
}

func (s Symbol) String() string { return string(s) }

// companyNames is the fallback used when no provider can resolve a name.
var companyNames = map[Symbol]string{
	"BCS":   "Barclays PLC",
	"AAPL":  "Apple Inc.",
	"MSFT":  "Microsoft Corporation",
	"GOOGL": "Alphabet Inc.",
	"AMZN":  "Amazon.com, Inc.",
	"META":  "Meta Platforms, Inc.",
	"TSLA":  "Tesla, Inc.",
	"NVDA":  "NVIDIA Corporation",
	"JPM":   "JPMorgan Chase & Co.",
	"BAC":   "Bank of America Corporation",
}

// KnownCompanyName returns the built-in company name for s.
func KnownCompanyName(s Symbol) (string, bool) {
	name, ok := companyNames[s]
	return name, ok
}

// CompanyName returns the built-in company name for s, or "<SYMBOL> Stock".
func CompanyName(s Symbol) string {
	if name, ok := companyNames[s]; ok {
		return name
	}
	return string(s) + " Stock"
}

// KnownCompanies returns a copy of the built-in symbol to name table.
func KnownCompanies() map[Symbol]string {
	out := make(map[Symbol]string, len(companyNames))
	for k, v := range companyNames {
		out[k] = v
	}
	return out
}
