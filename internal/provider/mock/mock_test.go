package mock

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/tickerpulse/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchNews_Deterministic(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	p := New(clockwork.NewFakeClockAt(now))

	articles, err := p.FetchNews(context.Background(), "BCS")
	require.NoError(t, err)
	require.Len(t, articles, 5)

	for i, a := range articles {
		n := i + 1
		assert.Equal(t, "mock:BCS:"+string(rune('0'+n)), a.ID)
		assert.Equal(t, now.Add(-time.Duration(n)*time.Hour), a.PublishedAt)
		assert.Contains(t, a.URL, "https://example.com/news/")
	}
	assert.Equal(t, "Barclays PLC Reports Strong Quarterly Earnings", articles[0].Headline)
	assert.Equal(t, "Financial Times", articles[0].Source)
	assert.Contains(t, articles[0].Summary, "15% year-over-year")

	again, err := p.FetchNews(context.Background(), "BCS")
	require.NoError(t, err)
	assert.Equal(t, articles, again)
}

func TestFetchQuote_StableWithinStep(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC))
	p := New(clock)

	first, err := p.FetchQuote(context.Background(), "BCS")
	require.NoError(t, err)
	assert.Equal(t, domain.Symbol("BCS"), first.Symbol)
	assert.Greater(t, first.Price, 0.0)
	assert.Greater(t, first.PreviousClose, 0.0)
	assert.Equal(t, "Barclays PLC", first.Name)

	clock.Advance(10 * time.Second)
	second, _ := p.FetchQuote(context.Background(), "BCS")
	assert.True(t, first.SameMarketData(second))

	other, _ := p.FetchQuote(context.Background(), "AAPL")
	assert.NotEqual(t, first.Price, other.Price)
}

func TestLookupAndPeers(t *testing.T) {
	p := New(clockwork.NewFakeClock())

	matches, err := p.LookupSymbols(context.Background(), "bank")
	require.NoError(t, err)
	assert.Equal(t, []domain.SymbolMatch{{Symbol: "BAC", Description: "BANK OF AMERICA CORPORATION"}}, matches)

	peers, err := p.CompanyPeers(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Len(t, peers, 5)
	assert.NotContains(t, peers, domain.Symbol("AAPL"))
}
