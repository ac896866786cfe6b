package broadcast

import (
	"testing"

	"github.com/pscheid92/tickerpulse/internal/domain"
	"github.com/pscheid92/tickerpulse/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quoteMsg(symbol domain.Symbol, tag string) outbound {
	return outbound{kind: wire.TypeStockData, symbol: symbol, data: []byte(tag)}
}

func newsMsg(symbol domain.Symbol, tag string) outbound {
	return outbound{kind: wire.TypeNewsData, symbol: symbol, data: []byte(tag)}
}

func drain(q *outboundQueue) []string {
	var tags []string
	for {
		m, ok := q.pop()
		if !ok {
			return tags
		}
		tags = append(tags, string(m.data))
	}
}

func TestQueue_QuoteDropsOldestQuoteWhenFull(t *testing.T) {
	q := newOutboundQueue(3, 2)
	assert.Equal(t, pushed, q.push(quoteMsg("AAPL", "q1")))
	assert.Equal(t, pushed, q.push(quoteMsg("AAPL", "q2")))
	assert.Equal(t, pushed, q.push(quoteMsg("AAPL", "q3")))
	assert.Equal(t, droppedOldest, q.push(quoteMsg("AAPL", "q4")))

	assert.Equal(t, []string{"q2", "q3", "q4"}, drain(q))
}

func TestQueue_QuoteDroppedWhenOnlyNewsQueued(t *testing.T) {
	q := newOutboundQueue(2, 2)
	require.Equal(t, pushed, q.push(newsMsg("AAPL", "n1")))
	require.Equal(t, pushed, q.push(newsMsg("AAPL", "n2")))

	assert.Equal(t, droppedIncoming, q.push(quoteMsg("AAPL", "q1")))
	assert.Equal(t, []string{"n1", "n2"}, drain(q))
}

func TestQueue_NewsDisplacesQuoteWhenFull(t *testing.T) {
	q := newOutboundQueue(2, 2)
	require.Equal(t, pushed, q.push(quoteMsg("AAPL", "q1")))
	require.Equal(t, pushed, q.push(quoteMsg("AAPL", "q2")))

	assert.Equal(t, droppedOldest, q.push(newsMsg("AAPL", "n1")))
	assert.Equal(t, droppedOldest, q.push(newsMsg("AAPL", "n2")))
	assert.Equal(t, overflow, q.push(newsMsg("AAPL", "n3")))
	assert.Equal(t, []string{"n1", "n2"}, drain(q))
}

func TestQueue_NewsCapIsSeparateFromSize(t *testing.T) {
	q := newOutboundQueue(10, 2)
	require.Equal(t, pushed, q.push(newsMsg("AAPL", "n1")))
	require.Equal(t, pushed, q.push(outbound{kind: wire.TypeError, symbol: "AAPL", data: []byte("e1")}))
	assert.Equal(t, overflow, q.push(newsMsg("AAPL", "n2")))

	_, ok := q.pop()
	require.True(t, ok)
	assert.Equal(t, pushed, q.push(newsMsg("AAPL", "n2")))
}

func TestQueue_FIFOAcrossKinds(t *testing.T) {
	q := newOutboundQueue(5, 5)
	q.push(quoteMsg("AAPL", "q1"))
	q.push(newsMsg("AAPL", "n1"))
	q.push(quoteMsg("AAPL", "q2"))

	assert.Equal(t, []string{"q1", "n1", "q2"}, drain(q))
}

func TestQueue_RetainDropsOtherSymbols(t *testing.T) {
	q := newOutboundQueue(5, 2)
	q.push(quoteMsg("AAPL", "a1"))
	q.push(newsMsg("AAPL", "an1"))
	q.push(quoteMsg("MSFT", "m1"))
	q.push(newsMsg("AAPL", "an2"))

	assert.Equal(t, 3, q.retain("MSFT"))
	assert.Equal(t, []string{"m1"}, drain(q))

	// News budget is released by the dropped items.
	assert.Equal(t, pushed, q.push(newsMsg("MSFT", "mn1")))
	assert.Equal(t, pushed, q.push(newsMsg("MSFT", "mn2")))
}

func TestQueue_PushSignalsReady(t *testing.T) {
	q := newOutboundQueue(3, 1)
	q.push(quoteMsg("AAPL", "q1"))
	q.push(quoteMsg("AAPL", "q2"))

	select {
	case <-q.ready():
	default:
		t.Fatal("expected ready signal")
	}
	select {
	case <-q.ready():
		t.Fatal("ready signal should coalesce")
	default:
	}
}
