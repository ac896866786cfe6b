// Package finnhub fetches company news, symbol search results, peers and
// fundamentals from the Finnhub REST API.
package finnhub

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/tickerpulse/internal/domain"
	"github.com/pscheid92/tickerpulse/internal/provider"
)

const (
	Name           = "finnhub"
	DefaultBaseURL = "https://finnhub.io/api/v1"

	maxLookupResults = 5
	dateLayout       = "2006-01-02"
)

type Provider struct {
	client   *provider.Client
	baseURL  string
	clock    clockwork.Clock
	lookback time.Duration
	names    domain.NameResolver
}

type Config struct {
	BaseURL string
	// Lookback is the company-news window ending now.
	Lookback time.Duration
	// Names resolves peer display names. Nil uses the built-in table.
	Names domain.NameResolver
	Clock clockwork.Clock
}

// NewClient builds the shared transport with the API token header.
func NewClient(apiKey string, opts ...provider.ClientOption) *provider.Client {
	return provider.NewClient(Name, append([]provider.ClientOption{provider.WithHeader("X-Finnhub-Token", apiKey)}, opts...)...)
}

func New(client *provider.Client, cfg Config) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = 7 * 24 * time.Hour
	}
	return &Provider{
		client:   client,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		clock:    cfg.Clock,
		lookback: cfg.Lookback,
		names:    cfg.Names,
	}
}

var (
	_ domain.NewsProvider         = (*Provider)(nil)
	_ domain.Directory            = (*Provider)(nil)
	_ domain.FundamentalsProvider = (*Provider)(nil)
)

type newsItem struct {
	ID       int64  `json:"id"`
	Datetime int64  `json:"datetime"`
	Headline string `json:"headline"`
	Image    string `json:"image"`
	Source   string `json:"source"`
	Summary  string `json:"summary"`
	URL      string `json:"url"`
}

// FetchNews returns company news published within the lookback window.
func (p *Provider) FetchNews(ctx context.Context, symbol domain.Symbol) ([]domain.NewsArticle, error) {
	now := p.clock.Now().UTC()

	var items []newsItem
	err := p.client.GetJSON(ctx, provider.Request{
		Endpoint: "company-news",
		URL:      p.baseURL + "/company-news",
		Query: url.Values{
			"symbol": {string(symbol)},
			"from":   {now.Add(-p.lookback).Format(dateLayout)},
			"to":     {now.Format(dateLayout)},
		},
		Symbol: symbol,
	}, &items)
	if err != nil {
		return nil, err
	}

	articles := make([]domain.NewsArticle, 0, len(items))
	for _, item := range items {
		a := toArticle(item, now)
		if a.ID == "" {
			continue
		}
		articles = append(articles, a)
	}
	return articles, nil
}

func toArticle(item newsItem, now time.Time) domain.NewsArticle {
	link := stripBackticks(item.URL)

	id := link
	if item.ID != 0 {
		id = Name + ":" + strconv.FormatInt(item.ID, 10)
	}

	published := now
	if item.Datetime > 0 {
		published = time.Unix(item.Datetime, 0).UTC()
	}

	return domain.NewsArticle{
		ID:          id,
		Headline:    orDefault(item.Headline, "No headline"),
		Summary:     orDefault(item.Summary, "No summary available."),
		Source:      orDefault(item.Source, "Unknown"),
		URL:         link,
		Image:       stripBackticks(item.Image),
		PublishedAt: published,
	}
}

// stripBackticks removes the backtick quoting some feeds wrap URLs in.
func stripBackticks(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && strings.HasPrefix(s, "`") && strings.HasSuffix(s, "`") {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

type searchResponse struct {
	Count  int `json:"count"`
	Result []struct {
		Description   string `json:"description"`
		DisplaySymbol string `json:"displaySymbol"`
		Symbol        string `json:"symbol"`
		Type          string `json:"type"`
	} `json:"result"`
}

// LookupSymbols returns at most five matches for query.
func (p *Provider) LookupSymbols(ctx context.Context, query string) ([]domain.SymbolMatch, error) {
	var resp searchResponse
	err := p.client.GetJSON(ctx, provider.Request{
		Endpoint: "search",
		URL:      p.baseURL + "/search",
		Query:    url.Values{"q": {query}},
	}, &resp)
	if err != nil {
		return nil, err
	}

	matches := make([]domain.SymbolMatch, 0, maxLookupResults)
	for _, r := range resp.Result {
		if len(matches) == maxLookupResults {
			break
		}
		symbol, err := domain.ParseSymbol(r.Symbol)
		if err != nil {
			continue
		}
		matches = append(matches, domain.SymbolMatch{Symbol: symbol, Description: r.Description})
	}
	return matches, nil
}

// CompanyPeers returns the peers of symbol with display names.
func (p *Provider) CompanyPeers(ctx context.Context, symbol domain.Symbol) (map[domain.Symbol]string, error) {
	var raw []string
	err := p.client.GetJSON(ctx, provider.Request{
		Endpoint: "peers",
		URL:      p.baseURL + "/stock/peers",
		Query:    url.Values{"symbol": {string(symbol)}},
		Symbol:   symbol,
	}, &raw)
	if err != nil {
		return nil, err
	}

	peers := make(map[domain.Symbol]string, len(raw))
	for _, r := range raw {
		peer, err := domain.ParseSymbol(r)
		if err != nil {
			continue
		}
		peers[peer] = p.peerName(ctx, peer)
	}
	return peers, nil
}

func (p *Provider) peerName(ctx context.Context, peer domain.Symbol) string {
	if p.names != nil {
		if name, err := p.names.CompanyName(ctx, peer); err == nil && name != "" {
			return name
		}
	}
	return domain.CompanyName(peer)
}

type metricResponse struct {
	Metric map[string]any `json:"metric"`
}

type earningsResponse struct {
	EarningsCalendar []struct {
		Date string `json:"date"`
	} `json:"earningsCalendar"`
}

// FetchFundamentals reads the basic financials and the next earnings date.
// A missing earnings calendar does not fail the call.
func (p *Provider) FetchFundamentals(ctx context.Context, symbol domain.Symbol) (domain.Fundamentals, error) {
	var resp metricResponse
	err := p.client.GetJSON(ctx, provider.Request{
		Endpoint: "metric",
		URL:      p.baseURL + "/stock/metric",
		Query:    url.Values{"symbol": {string(symbol)}, "metric": {"all"}},
		Symbol:   symbol,
	}, &resp)
	if err != nil {
		return domain.Fundamentals{}, err
	}
	if len(resp.Metric) == 0 {
		return domain.Fundamentals{}, domain.NewProviderError(domain.KindInvalidSymbol, Name, symbol, fmt.Errorf("no metrics"))
	}

	m := resp.Metric
	f := domain.Fundamentals{
		// reported in millions
		MarketCap:     number(m, "marketCapitalization") * 1e6,
		PERatio:       number(m, "peTTM", "peBasicExclExtraTTM"),
		EPS:           number(m, "epsTTM", "epsBasicExclExtraItemsTTM"),
		Beta:          number(m, "beta"),
		DividendYield: number(m, "currentDividendYieldTTM", "dividendYieldIndicatedAnnual"),
		DividendRate:  number(m, "dividendPerShareAnnual", "dividendPerShareTTM"),
		AvgVolume:     int64(number(m, "10DayAverageTradingVolume") * 1e6),
	}

	now := p.clock.Now().UTC()
	var earnings earningsResponse
	err = p.client.GetJSON(ctx, provider.Request{
		Endpoint: "earnings-calendar",
		URL:      p.baseURL + "/calendar/earnings",
		Query: url.Values{
			"symbol": {string(symbol)},
			"from":   {now.Format(dateLayout)},
			"to":     {now.AddDate(0, 6, 0).Format(dateLayout)},
		},
		Symbol: symbol,
	}, &earnings)
	if err == nil {
		for _, e := range earnings.EarningsCalendar {
			if e.Date == "" {
				continue
			}
			if f.EarningsDate == "" || e.Date < f.EarningsDate {
				f.EarningsDate = e.Date
			}
		}
	}

	return f, nil
}

// number returns the first numeric value among keys.
func number(m map[string]any, keys ...string) float64 {
	for _, k := range keys {
		if v, ok := m[k].(float64); ok {
			return v
		}
	}
	return 0
}
