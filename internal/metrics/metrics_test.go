package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsRegistration(t *testing.T) {
	collectors := []prometheus.Collector{
		RegistryActiveSymbols,
		RegistrySubscriptions,
		RegistryTransitionsTotal,

		PollerFetchesTotal,
		PollerFetchDuration,
		PollerTasksRunning,
		PollerPanicsTotal,
		QuotesEmittedTotal,
		QuotesUnchangedTotal,
		NewsArticlesTotal,
		NewsSeenEvictionsTotal,
		TerminalSymbolsTotal,

		SentimentScoredTotal,

		HubConnectedClients,
		HubMessagesEnqueuedTotal,
		HubQuotesDroppedTotal,
		HubBackpressureDisconnectsTotal,
		HubPublishDuration,
		HubCommandChannelDepth,
		HubPanicsTotal,
		HubStopTimeoutsTotal,

		WebSocketConnectionsTotal,
		WebSocketMessageSendDuration,
		WebSocketPingFailures,
		WebSocketInboundInvalidTotal,

		ProviderRequestsTotal,
		ProviderRateLimitWait,

		CacheRequestsTotal,
		CacheEvictions,
		CacheSize,

		RedisOpsTotal,
		RedisOpDuration,
		RedisConnectionErrors,
		CircuitBreakerStateChanges,
		CircuitBreakerState,

		MirrorMessagesTotal,
	}

	for _, c := range collectors {
		assert.NotNil(t, c)
	}
}

func TestCounterVecLabels(t *testing.T) {
	before := testutil.ToFloat64(QuotesEmittedTotal.WithLabelValues("stale"))
	QuotesEmittedTotal.WithLabelValues("stale").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(QuotesEmittedTotal.WithLabelValues("stale")))
}

func TestMetricNamesExposed(t *testing.T) {
	RegistryTransitionsTotal.WithLabelValues("activated").Add(0)

	expected := `
# HELP registry_active_symbols Number of symbols with at least one subscriber
# TYPE registry_active_symbols gauge
registry_active_symbols 0
`
	err := testutil.CollectAndCompare(RegistryActiveSymbols, strings.NewReader(expected))
	assert.NoError(t, err)
}
