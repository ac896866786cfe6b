package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies provider failures.
type ErrorKind string

const (
	KindProviderUnavailable ErrorKind = "provider_unavailable"
	KindRateLimited         ErrorKind = "rate_limited"
	KindTimeout             ErrorKind = "timeout"
	KindInvalidSymbol       ErrorKind = "invalid_symbol"
	KindMalformedResponse   ErrorKind = "malformed_response"
)

var (
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrRateLimited         = errors.New("rate limited")
	ErrTimeout             = errors.New("provider timeout")
	ErrInvalidSymbol       = errors.New("invalid symbol")
	ErrMalformedResponse   = errors.New("malformed response")
)

var kindSentinels = map[ErrorKind]error{
	KindProviderUnavailable: ErrProviderUnavailable,
	KindRateLimited:         ErrRateLimited,
	KindTimeout:             ErrTimeout,
	KindInvalidSymbol:       ErrInvalidSymbol,
	KindMalformedResponse:   ErrMalformedResponse,
}

// ProviderError is a classified failure from an upstream data provider.
type ProviderError struct {
	Kind     ErrorKind
	Provider string
	Symbol   Symbol
	Err      error
}

// NewProviderError builds a ProviderError. err may be nil.
func NewProviderError(kind ErrorKind, provider string, symbol Symbol, err error) *ProviderError {
	return &ProviderError{Kind: kind, Provider: provider, Symbol: symbol, Err: err}
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Provider, e.Kind)
	if e.Symbol != "" {
		msg += " for " + string(e.Symbol)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Is matches the sentinel error of the same kind.
func (e *ProviderError) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// KindOf extracts the ErrorKind from err. Unclassified errors count as ProviderUnavailable.
func KindOf(err error) ErrorKind {
	var perr *ProviderError
	if errors.As(err, &perr) {
		return perr.Kind
	}
	return KindProviderUnavailable
}

// IsTerminal reports whether err should stop polling a symbol.
func IsTerminal(err error) bool {
	return errors.Is(err, ErrInvalidSymbol)
}
