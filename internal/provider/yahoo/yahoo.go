// Package yahoo fetches live quotes and company names from the public Yahoo
// Finance chart and search endpoints.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/pscheid92/tickerpulse/internal/domain"
	"github.com/pscheid92/tickerpulse/internal/provider"
)

const (
	Name = "yahoo"

	DefaultChartURL  = "https://query1.finance.yahoo.com/v8/finance/chart"
	DefaultSearchURL = "https://query2.finance.yahoo.com/v1/finance/search"
)

type Provider struct {
	client    *provider.Client
	chartURL  string
	searchURL string
}

type Option func(*Provider)

// WithBaseURLs points the provider at alternative endpoints.
func WithBaseURLs(chartURL, searchURL string) Option {
	return func(p *Provider) {
		p.chartURL = strings.TrimRight(chartURL, "/")
		p.searchURL = searchURL
	}
}

func New(client *provider.Client, opts ...Option) *Provider {
	p := &Provider{client: client, chartURL: DefaultChartURL, searchURL: DefaultSearchURL}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var (
	_ domain.QuoteProvider = (*Provider)(nil)
	_ domain.NameResolver  = (*Provider)(nil)
)

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResult struct {
	Meta struct {
		Symbol             string  `json:"symbol"`
		ShortName          string  `json:"shortName"`
		LongName           string  `json:"longName"`
		RegularMarketPrice float64 `json:"regularMarketPrice"`
		ChartPreviousClose float64 `json:"chartPreviousClose"`
		PreviousClose      float64 `json:"previousClose"`
		DayHigh            float64 `json:"regularMarketDayHigh"`
		DayLow             float64 `json:"regularMarketDayLow"`
		Volume             int64   `json:"regularMarketVolume"`
		FiftyTwoWeekHigh   float64 `json:"fiftyTwoWeekHigh"`
		FiftyTwoWeekLow    float64 `json:"fiftyTwoWeekLow"`
	} `json:"meta"`
	Indicators struct {
		Quote []struct {
			Open []*float64 `json:"open"`
		} `json:"quote"`
	} `json:"indicators"`
}

// FetchQuote reads the one-day chart for symbol.
func (p *Provider) FetchQuote(ctx context.Context, symbol domain.Symbol) (domain.Quote, error) {
	var resp chartResponse
	err := p.client.GetJSON(ctx, provider.Request{
		Endpoint: "chart",
		URL:      p.chartURL + "/" + url.PathEscape(string(symbol)),
		Query:    url.Values{"interval": {"1d"}, "range": {"1d"}},
		Symbol:   symbol,
		NotFound: chartNotFound,
	}, &resp)
	if err != nil {
		return domain.Quote{}, err
	}

	if len(resp.Chart.Result) == 0 {
		return domain.Quote{}, domain.NewProviderError(domain.KindMalformedResponse, Name, symbol, fmt.Errorf("chart has no result"))
	}
	r := resp.Chart.Result[0]
	if r.Meta.RegularMarketPrice <= 0 {
		return domain.Quote{}, domain.NewProviderError(domain.KindMalformedResponse, Name, symbol, fmt.Errorf("chart has no market price"))
	}

	prev := r.Meta.ChartPreviousClose
	if prev == 0 {
		prev = r.Meta.PreviousClose
	}

	name := r.Meta.LongName
	if name == "" {
		name = r.Meta.ShortName
	}

	return domain.Quote{
		Symbol:        symbol,
		Name:          name,
		Price:         r.Meta.RegularMarketPrice,
		PreviousClose: prev,
		Open:          firstOpen(r),
		DayLow:        r.Meta.DayLow,
		DayHigh:       r.Meta.DayHigh,
		Week52Low:     r.Meta.FiftyTwoWeekLow,
		Week52High:    r.Meta.FiftyTwoWeekHigh,
		Volume:        r.Meta.Volume,
	}, nil
}

func firstOpen(r chartResult) float64 {
	if len(r.Indicators.Quote) == 0 {
		return 0
	}
	for _, v := range r.Indicators.Quote[0].Open {
		if v != nil {
			return *v
		}
	}
	return 0
}

// chartNotFound recognizes the 200-with-error answer for unknown tickers.
func chartNotFound(body []byte) bool {
	var resp chartResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return false
	}
	return resp.Chart.Error != nil && strings.EqualFold(resp.Chart.Error.Code, "Not Found")
}

type searchResponse struct {
	Quotes []struct {
		Symbol    string `json:"symbol"`
		ShortName string `json:"shortname"`
		LongName  string `json:"longname"`
	} `json:"quotes"`
}

// CompanyName resolves the long or short name of symbol from the search endpoint.
func (p *Provider) CompanyName(ctx context.Context, symbol domain.Symbol) (string, error) {
	var resp searchResponse
	err := p.client.GetJSON(ctx, provider.Request{
		Endpoint: "search",
		URL:      p.searchURL,
		Query:    url.Values{"q": {string(symbol)}, "quotesCount": {"5"}, "newsCount": {"0"}},
		Symbol:   symbol,
	}, &resp)
	if err != nil {
		return "", err
	}

	for _, q := range resp.Quotes {
		if !strings.EqualFold(q.Symbol, string(symbol)) {
			continue
		}
		if q.LongName != "" {
			return q.LongName, nil
		}
		if q.ShortName != "" {
			return q.ShortName, nil
		}
	}
	return "", domain.NewProviderError(domain.KindInvalidSymbol, Name, symbol, fmt.Errorf("no search match"))
}
