// Package mock generates deterministic quotes, news and directory answers for
// development and for running without provider credentials.
package mock

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/tickerpulse/internal/domain"
)

const Name = "mock"

type Provider struct {
	clock clockwork.Clock
	// QuoteStep is the period over which the generated price stays constant.
	quoteStep time.Duration
}

func New(clock clockwork.Clock) *Provider {
	return &Provider{clock: clock, quoteStep: time.Minute}
}

var (
	_ domain.QuoteProvider = (*Provider)(nil)
	_ domain.NewsProvider  = (*Provider)(nil)
	_ domain.Directory     = (*Provider)(nil)
	_ domain.NameResolver  = (*Provider)(nil)
)

func seed(symbol domain.Symbol) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(symbol))
	return h.Sum64()
}

// FetchQuote returns a price derived from the symbol that moves once per step.
func (p *Provider) FetchQuote(_ context.Context, symbol domain.Symbol) (domain.Quote, error) {
	s := seed(symbol)
	base := 5 + float64(s%50000)/100 // 5.00 .. 504.99
	step := p.clock.Now().UTC().Truncate(p.quoteStep).Unix() / int64(p.quoteStep.Seconds())
	wave := math.Sin(float64(step)/7+float64(s%97)) * 0.02

	price := round2(base * (1 + wave))
	prev := round2(base)
	volume := int64(1_000_000 + s%9_000_000)

	return domain.Quote{
		Symbol:         symbol,
		Name:           domain.CompanyName(symbol),
		Price:          price,
		PreviousClose:  prev,
		Open:           round2(base * 1.001),
		DayLow:         round2(math.Min(price, prev) * 0.99),
		DayHigh:        round2(math.Max(price, prev) * 1.01),
		Week52Low:      round2(base * 0.7),
		Week52High:     round2(base * 1.3),
		Volume:         volume,
		AvgVolume:      volume * 11 / 10,
		MarketCap:      base * float64(volume) * 100,
		PERatio:        round2(8 + float64(s%3000)/100),
		EPS:            round2(base / 20),
		Beta:           round2(0.5 + float64(s%150)/100),
		DividendYield:  round2(float64(s%500) / 100),
		DividendRate:   round2(base * float64(s%500) / 10000),
		ExDividendDate: p.clock.Now().UTC().AddDate(0, 1, 0).Format("2006-01-02"),
		EarningsDate:   p.clock.Now().UTC().AddDate(0, 2, 0).Format("2006-01-02"),
	}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

type template struct {
	headline string
	summary  string
	source   string
}

var newsTemplates = []template{
	{"%s Reports Strong Quarterly Earnings", "%s exceeded analyst expectations with quarterly revenue growth of 15%% year-over-year.", "Financial Times"},
	{"Analysts Upgrade %s Stock Rating", "Several major analysts have upgraded their outlook on %s, citing strong growth potential.", "Bloomberg"},
	{"%s Announces New Product Launch", "%s is set to launch a new innovative product next month, which could drive significant revenue growth.", "Reuters"},
	{"Market Concerns Impact %s Stock", "Broader market concerns have led to volatility in %s's stock price despite strong fundamentals.", "CNBC"},
	{"%s Expands International Operations", "%s has announced plans to expand its operations in emerging markets, targeting new growth opportunities.", "Wall Street Journal"},
}

// FetchNews returns five templated articles published one to five hours
// before now. IDs are stable per symbol, so repeated polls deduplicate.
func (p *Provider) FetchNews(_ context.Context, symbol domain.Symbol) ([]domain.NewsArticle, error) {
	company := domain.CompanyName(symbol)
	now := p.clock.Now().UTC().Truncate(time.Second)

	articles := make([]domain.NewsArticle, len(newsTemplates))
	for i, t := range newsTemplates {
		n := i + 1
		articles[i] = domain.NewsArticle{
			ID:          fmt.Sprintf("%s:%s:%d", Name, symbol, n),
			Headline:    fmt.Sprintf(t.headline, company),
			Summary:     fmt.Sprintf(t.summary, company),
			Source:      t.source,
			URL:         fmt.Sprintf("https://example.com/news/%d", n),
			PublishedAt: now.Add(-time.Duration(n) * time.Hour),
		}
	}
	return articles, nil
}

// LookupSymbols searches the built-in company table by symbol prefix or name.
func (p *Provider) LookupSymbols(_ context.Context, query string) ([]domain.SymbolMatch, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	var matches []domain.SymbolMatch
	for symbol, name := range domain.KnownCompanies() {
		if strings.HasPrefix(strings.ToLower(string(symbol)), q) || strings.Contains(strings.ToLower(name), q) {
			matches = append(matches, domain.SymbolMatch{Symbol: symbol, Description: strings.ToUpper(name)})
		}
	}
	slices.SortFunc(matches, func(a, b domain.SymbolMatch) int { return strings.Compare(string(a.Symbol), string(b.Symbol)) })
	if len(matches) > 5 {
		matches = matches[:5]
	}
	return matches, nil
}

// CompanyPeers returns up to five other companies from the built-in table.
func (p *Provider) CompanyPeers(_ context.Context, symbol domain.Symbol) (map[domain.Symbol]string, error) {
	known := domain.KnownCompanies()
	symbols := make([]domain.Symbol, 0, len(known))
	for s := range known {
		if s != symbol {
			symbols = append(symbols, s)
		}
	}
	slices.Sort(symbols)

	peers := make(map[domain.Symbol]string, 5)
	for _, s := range symbols[:min(5, len(symbols))] {
		peers[s] = known[s]
	}
	return peers, nil
}

func (p *Provider) CompanyName(_ context.Context, symbol domain.Symbol) (string, error) {
	return domain.CompanyName(symbol), nil
}
