package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pscheid92/tickerpulse/internal/domain"
	"github.com/pscheid92/tickerpulse/internal/metrics"
	"github.com/pscheid92/tickerpulse/internal/platform/version"
	"golang.org/x/time/rate"
)

const maxResponseBytes = 4 << 20

// Client is the JSON transport used by every HTTP provider. Requests share one
// rate limiter so all symbols draw from the same upstream budget.
type Client struct {
	name       string
	httpClient *http.Client
	limiter    *rate.Limiter
	header     http.Header
}

type ClientOption func(*Client)

// WithHTTPClient replaces the default *http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithLimiter shares an existing request budget.
func WithLimiter(l *rate.Limiter) ClientOption {
	return func(c *Client) { c.limiter = l }
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) ClientOption {
	return func(c *Client) { c.header.Set(key, value) }
}

func NewClient(name string, opts ...ClientOption) *Client {
	c := &Client{
		name:       name,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		header:     make(http.Header),
	}
	c.header.Set("Accept", "application/json")
	c.header.Set("User-Agent", version.UserAgent())
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Name() string { return c.name }

// NotFoundFunc inspects a 200 response body for a provider-specific
// "no such symbol" answer.
type NotFoundFunc func(body []byte) bool

// Request describes one GET call.
type Request struct {
	Endpoint string
	URL      string
	Query    url.Values
	Symbol   domain.Symbol
	NotFound NotFoundFunc
}

// GetJSON performs req and decodes the body into out. Every failure comes back
// as a *domain.ProviderError:
//
//	network error, 5xx         -> ProviderUnavailable
//	429                        -> RateLimited
//	context deadline           -> Timeout
//	404, NotFound(body)        -> InvalidSymbol
//	undecodable body           -> MalformedResponse
func (c *Client) GetJSON(ctx context.Context, req Request, out any) error {
	result := "success"
	defer func() {
		metrics.ProviderRequestsTotal.WithLabelValues(c.name, req.Endpoint, result).Inc()
	}()

	body, err := c.get(ctx, req)
	if err != nil {
		result = string(domain.KindOf(err))
		return err
	}

	if req.NotFound != nil && req.NotFound(body) {
		result = string(domain.KindInvalidSymbol)
		return domain.NewProviderError(domain.KindInvalidSymbol, c.name, req.Symbol, nil)
	}

	if err := json.Unmarshal(body, out); err != nil {
		result = string(domain.KindMalformedResponse)
		return domain.NewProviderError(domain.KindMalformedResponse, c.name, req.Symbol, fmt.Errorf("decode %s: %w", req.Endpoint, err))
	}
	return nil
}

func (c *Client) get(ctx context.Context, req Request) ([]byte, error) {
	if err := c.wait(ctx, req.Symbol); err != nil {
		return nil, err
	}

	fullURL := req.URL
	if len(req.Query) > 0 {
		fullURL += "?" + req.Query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, domain.NewProviderError(domain.KindProviderUnavailable, c.name, req.Symbol, fmt.Errorf("create request: %w", err))
	}
	for k, v := range c.header {
		httpReq.Header[k] = v
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, c.transportError(ctx, req.Symbol, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, c.transportError(ctx, req.Symbol, fmt.Errorf("read response: %w", err))
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, domain.NewProviderError(domain.KindRateLimited, c.name, req.Symbol, statusError(resp.StatusCode, body))
	case resp.StatusCode == http.StatusNotFound:
		return nil, domain.NewProviderError(domain.KindInvalidSymbol, c.name, req.Symbol, statusError(resp.StatusCode, body))
	case resp.StatusCode >= 400:
		return nil, domain.NewProviderError(domain.KindProviderUnavailable, c.name, req.Symbol, statusError(resp.StatusCode, body))
	}
	return body, nil
}

// wait blocks on the shared budget. A budget that cannot be met before the
// deadline is reported as rate limiting, not as a timeout.
func (c *Client) wait(ctx context.Context, symbol domain.Symbol) error {
	if c.limiter == nil {
		return nil
	}
	start := time.Now()
	err := c.limiter.Wait(ctx)
	metrics.ProviderRateLimitWait.WithLabelValues(c.name).Observe(time.Since(start).Seconds())
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		return domain.NewProviderError(domain.KindTimeout, c.name, symbol, ctx.Err())
	case ctx.Err() != nil:
		return domain.NewProviderError(domain.KindProviderUnavailable, c.name, symbol, ctx.Err())
	}
	return domain.NewProviderError(domain.KindRateLimited, c.name, symbol, fmt.Errorf("request budget: %w", err))
}

func (c *Client) transportError(ctx context.Context, symbol domain.Symbol, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return domain.NewProviderError(domain.KindTimeout, c.name, symbol, err)
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.NewProviderError(domain.KindTimeout, c.name, symbol, err)
	}
	return domain.NewProviderError(domain.KindProviderUnavailable, c.name, symbol, err)
}

func statusError(code int, body []byte) error {
	snippet := strings.TrimSpace(string(body))
	if len(snippet) > 200 {
		snippet = snippet[:200]
	}
	if snippet == "" {
		return fmt.Errorf("status %d", code)
	}
	return fmt.Errorf("status %d: %s", code, snippet)
}
