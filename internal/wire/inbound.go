// Package wire defines the JSON messages exchanged with dashboard clients.
package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/pscheid92/tickerpulse/internal/domain"
)

const ActionSubscribe = "subscribe"

// MaxInboundSize bounds a single client frame.
const MaxInboundSize = 512

var (
	ErrMalformedMessage = errors.New("malformed message")
	ErrUnknownAction    = errors.New("unknown action")
)

// Inbound is the only message a client sends.
type Inbound struct {
	Action string `json:"action"`
	Symbol string `json:"symbol"`
}

// DecodeSubscribe parses a client frame and returns the requested symbol.
// Unknown fields, trailing data, a wrong action and an invalid symbol are all
// rejected.
func DecodeSubscribe(data []byte) (domain.Symbol, error) {
	if len(data) > MaxInboundSize {
		return "", fmt.Errorf("%w: frame exceeds %d bytes", ErrMalformedMessage, MaxInboundSize)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var msg Inbound
	if err := dec.Decode(&msg); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("%w: trailing data", ErrMalformedMessage)
	}

	if msg.Action != ActionSubscribe {
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, msg.Action)
	}

	symbol, err := domain.ParseSymbol(msg.Symbol)
	if err != nil {
		return "", err
	}
	return symbol, nil
}

// Reason labels a decode error for metrics.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrUnknownAction):
		return "unknown_action"
	case errors.Is(err, domain.ErrInvalidSymbolFormat):
		return "invalid_symbol"
	default:
		return "malformed"
	}
}
