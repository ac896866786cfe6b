// Package correlation carries request and poll-cycle identifiers through
// context.Context and injects them into slog records.
package correlation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
)

type (
	idKey     struct{}
	symbolKey struct{}
)

// NewID returns an 8-character hex identifier.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// WithID returns a new context carrying the given correlation ID.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, idKey{}, id)
}

// ID extracts the correlation ID from ctx, returning ("", false) if not present.
func ID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(idKey{}).(string)
	return id, ok && id != ""
}

// WithSymbol tags ctx with the ticker a unit of work belongs to.
func WithSymbol(ctx context.Context, symbol string) context.Context {
	return context.WithValue(ctx, symbolKey{}, symbol)
}

// Symbol extracts the ticker tag from ctx.
func Symbol(ctx context.Context) (string, bool) {
	s, ok := ctx.Value(symbolKey{}).(string)
	return s, ok && s != ""
}

// Handler wraps an slog.Handler and adds "correlation_id" and "symbol"
// attributes when the record's context carries them.
type Handler struct {
	inner slog.Handler
}

func NewHandler(inner slog.Handler) *Handler {
	return &Handler{inner: inner}
}

func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	if id, ok := ID(ctx); ok {
		r.AddAttrs(slog.String("correlation_id", id))
	}
	if s, ok := Symbol(ctx); ok {
		r.AddAttrs(slog.String("symbol", s))
	}
	if err := h.inner.Handle(ctx, r); err != nil {
		return fmt.Errorf("correlation handler: %w", err)
	}
	return nil
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{inner: h.inner.WithAttrs(attrs)}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{inner: h.inner.WithGroup(name)}
}
