package domain

import (
	"context"
	"time"
)

// QuoteProvider fetches the latest quote for a symbol.
type QuoteProvider interface {
	FetchQuote(ctx context.Context, symbol Symbol) (Quote, error)
}

// FundamentalsProvider fetches slow-moving company figures.
type FundamentalsProvider interface {
	FetchFundamentals(ctx context.Context, symbol Symbol) (Fundamentals, error)
}

// NewsProvider fetches recent articles for a symbol.
type NewsProvider interface {
	FetchNews(ctx context.Context, symbol Symbol) ([]NewsArticle, error)
}

// Directory answers the read-only lookup endpoints.
type Directory interface {
	LookupSymbols(ctx context.Context, query string) ([]SymbolMatch, error)
	CompanyPeers(ctx context.Context, symbol Symbol) (map[Symbol]string, error)
}

// NameResolver resolves a display name for a symbol.
type NameResolver interface {
	CompanyName(ctx context.Context, symbol Symbol) (string, error)
}

// Scorer computes the sentiment of free text.
type Scorer interface {
	Score(text string) SentimentScore
}

// EventSink consumes poller output.
type EventSink interface {
	PublishQuote(ctx context.Context, quote Quote) error
	PublishNews(ctx context.Context, symbol Symbol, articles []ScoredArticle) error
	PublishError(ctx context.Context, symbol Symbol, err error) error
}

// Cache is a byte-oriented TTL store shared by provider decorators.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
