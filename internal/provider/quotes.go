package provider

import (
	"context"
	"log/slog"
	"time"

	"github.com/pscheid92/tickerpulse/internal/domain"
	"github.com/shopspring/decimal"
)

// QuoteSource assembles the full quote for a symbol: live price data from the
// quote provider, cached fundamentals, a display name and the derived change
// fields.
type QuoteSource struct {
	quotes          domain.QuoteProvider
	fundamentals    domain.FundamentalsProvider
	names           domain.NameResolver
	cache           domain.Cache
	fundamentalsTTL time.Duration
}

type QuoteSourceOption func(*QuoteSource)

func WithFundamentals(p domain.FundamentalsProvider, ttl time.Duration) QuoteSourceOption {
	return func(s *QuoteSource) {
		s.fundamentals = p
		s.fundamentalsTTL = ttl
	}
}

func WithNames(r domain.NameResolver) QuoteSourceOption {
	return func(s *QuoteSource) { s.names = r }
}

func NewQuoteSource(quotes domain.QuoteProvider, cache domain.Cache, opts ...QuoteSourceOption) *QuoteSource {
	s := &QuoteSource{quotes: quotes, cache: cache}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ domain.QuoteProvider = (*QuoteSource)(nil)

// FetchQuote fails only when the live quote fails. Missing fundamentals or
// names degrade the quote instead.
func (s *QuoteSource) FetchQuote(ctx context.Context, symbol domain.Symbol) (domain.Quote, error) {
	q, err := s.quotes.FetchQuote(ctx, symbol)
	if err != nil {
		return domain.Quote{}, err
	}
	q.Symbol = symbol

	if s.fundamentals != nil {
		f, err := cached(ctx, s.cache, "fundamentals", string(symbol), s.fundamentalsTTL, func(ctx context.Context) (domain.Fundamentals, error) {
			return s.fundamentals.FetchFundamentals(ctx, symbol)
		})
		if err != nil {
			slog.WarnContext(ctx, "Fundamentals unavailable, sending price data only", "symbol", symbol, "error", err)
		} else {
			f.Apply(&q)
		}
	}

	if q.Name == "" && s.names != nil {
		q.Name, _ = s.names.CompanyName(ctx, symbol)
	}
	if q.Name == "" {
		q.Name = domain.CompanyName(symbol)
	}

	DeriveChange(&q)
	return q, nil
}

// DeriveChange sets Change and ChangePercent from Price and PreviousClose,
// rounded to 4 and 2 places. Without a previous close both are zero.
func DeriveChange(q *domain.Quote) {
	if q.PreviousClose == 0 {
		q.Change, q.ChangePercent = 0, 0
		return
	}
	price := decimal.NewFromFloat(q.Price)
	prev := decimal.NewFromFloat(q.PreviousClose)
	change := price.Sub(prev)

	q.Change = change.Round(4).InexactFloat64()
	q.ChangePercent = change.Div(prev).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
}
