package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry Metrics
var (
	// RegistryActiveSymbols tracks symbols with at least one subscriber
	RegistryActiveSymbols = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "registry_active_symbols",
			Help: "Number of symbols with at least one subscriber",
		},
	)

	// RegistrySubscriptions tracks current (client, symbol) pairs
	RegistrySubscriptions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "registry_subscriptions",
			Help: "Number of current client/symbol subscriptions",
		},
	)

	// RegistryTransitionsTotal tracks activation and deactivation events
	RegistryTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registry_transitions_total",
			Help: "Symbol activation and deactivation events",
		},
		[]string{"event"},
	)
)

// Poller Metrics
var (
	// PollerFetchesTotal tracks provider fetches by poller kind and outcome
	PollerFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poller_fetches_total",
			Help: "Provider fetches by poller kind and result (success or error kind)",
		},
		[]string{"poller", "result"},
	)

	// PollerFetchDuration tracks fetch latency in seconds
	PollerFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "poller_fetch_duration_seconds",
			Help:    "Provider fetch duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"poller"},
	)

	// PollerTasksRunning tracks live per-symbol poller tasks
	PollerTasksRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "poller_tasks_running",
			Help: "Number of per-symbol poller tasks currently running",
		},
	)

	// PollerPanicsTotal tracks recovered poller panics
	PollerPanicsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "poller_panics_total",
			Help: "Recovered panics in poller goroutines",
		},
		[]string{"poller"},
	)

	// QuotesEmittedTotal tracks quotes passed downstream
	QuotesEmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quotes_emitted_total",
			Help: "Quotes emitted downstream, by freshness",
		},
		[]string{"freshness"},
	)

	// QuotesUnchangedTotal tracks fetched quotes suppressed by change detection
	QuotesUnchangedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "quotes_unchanged_total",
			Help: "Fetched quotes suppressed because nothing changed",
		},
	)

	// NewsArticlesTotal tracks fetched articles by dedup outcome
	NewsArticlesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "news_articles_total",
			Help: "Fetched news articles by outcome (new or duplicate)",
		},
		[]string{"outcome"},
	)

	// NewsSeenEvictionsTotal tracks ids dropped from seen caches
	NewsSeenEvictionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "news_seen_evictions_total",
			Help: "Article ids evicted from per-symbol seen caches",
		},
	)

	// TerminalSymbolsTotal tracks symbols stopped by a terminal provider error
	TerminalSymbolsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "poller_terminal_symbols_total",
			Help: "Symbol activations stopped by a terminal provider error",
		},
	)
)

// Sentiment Metrics
var (
	// SentimentScoredTotal tracks scored articles by category
	SentimentScoredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentiment_scored_total",
			Help: "Articles scored by sentiment category",
		},
		[]string{"category"},
	)
)

// Hub Metrics
var (
	// HubConnectedClients tracks registered WebSocket connections
	HubConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hub_connected_clients",
			Help: "Number of connections registered with the broadcast hub",
		},
	)

	// HubMessagesEnqueuedTotal tracks messages accepted into outbound queues
	HubMessagesEnqueuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_messages_enqueued_total",
			Help: "Messages accepted into per-connection queues by type",
		},
		[]string{"type"},
	)

	// HubQuotesDroppedTotal tracks quotes dropped by coalescing
	HubQuotesDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_quotes_dropped_total",
			Help: "Quotes dropped on full queues (oldest coalesced or incoming discarded)",
		},
		[]string{"reason"},
	)

	// HubBackpressureDisconnectsTotal tracks connections closed for unrecoverable backpressure
	HubBackpressureDisconnectsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_backpressure_disconnects_total",
			Help: "Connections closed because news could not be queued",
		},
	)

	// HubPublishDuration tracks time to fan one event out
	HubPublishDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hub_publish_duration_seconds",
			Help:    "Time to enqueue one event for all subscribers",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05},
		},
	)

	// HubCommandChannelDepth tracks the actor's command backlog
	HubCommandChannelDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hub_command_channel_depth",
			Help: "Current hub command channel depth",
		},
	)

	// HubPanicsTotal tracks hub panic recoveries
	HubPanicsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_panics_total",
			Help: "Total hub panic recoveries",
		},
	)

	// HubStopTimeoutsTotal tracks hub stops that exceeded timeout
	HubStopTimeoutsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_stop_timeouts_total",
			Help: "Hub stops that exceeded timeout",
		},
	)
)

// WebSocket Metrics
var (
	// WebSocketConnectionsTotal tracks accepted and rejected upgrades
	WebSocketConnectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_connections_total",
			Help: "WebSocket connection attempts by result",
		},
		[]string{"result"},
	)

	// WebSocketMessageSendDuration tracks per-message write latency
	WebSocketMessageSendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "websocket_message_send_duration_seconds",
			Help:    "Time to write one message to a client",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5},
		},
	)

	// WebSocketPingFailures tracks failed keepalive pings
	WebSocketPingFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_ping_failures_total",
			Help: "Failed WebSocket ping writes",
		},
	)

	// WebSocketInboundInvalidTotal tracks rejected client messages
	WebSocketInboundInvalidTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_inbound_invalid_total",
			Help: "Rejected inbound client messages by reason",
		},
		[]string{"reason"},
	)
)

// Provider Metrics
var (
	// ProviderRequestsTotal tracks upstream HTTP calls
	ProviderRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_requests_total",
			Help: "Upstream provider requests by provider, endpoint and result",
		},
		[]string{"provider", "endpoint", "result"},
	)

	// ProviderRateLimitWait tracks time spent waiting on the shared request budget
	ProviderRateLimitWait = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "provider_rate_limit_wait_seconds",
			Help:    "Time spent waiting for the provider request budget",
			Buckets: []float64{.001, .01, .1, .5, 1, 5, 10},
		},
		[]string{"provider"},
	)
)

// Cache Metrics
var (
	// CacheRequestsTotal tracks lookup cache hits and misses
	CacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_requests_total",
			Help: "Cache lookups by namespace and result (hit, miss, error)",
		},
		[]string{"namespace", "result"},
	)

	// CacheEvictions tracks expired in-memory entries removed
	CacheEvictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cache_evictions_total",
			Help: "Expired in-memory cache entries evicted",
		},
	)

	// CacheSize tracks in-memory cache entries
	CacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cache_entries",
			Help: "Entries in the in-memory cache (including expired)",
		},
	)
)

// Redis Operations Metrics
var (
	// RedisOpsTotal tracks total Redis operations by operation type and status
	RedisOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redis_operations_total",
			Help: "Total Redis operations by operation and status",
		},
		[]string{"operation", "status"},
	)

	// RedisOpDuration tracks Redis operation latency in seconds
	RedisOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redis_operation_duration_seconds",
			Help:    "Redis operation duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)

	// RedisConnectionErrors tracks Redis connection errors
	RedisConnectionErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "redis_connection_errors_total",
			Help: "Total Redis connection errors",
		},
	)

	// CircuitBreakerStateChanges tracks circuit breaker state transitions
	CircuitBreakerStateChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_changes_total",
			Help: "Circuit breaker state transitions by component and new state",
		},
		[]string{"component", "state"},
	)

	// CircuitBreakerState tracks current circuit breaker state (0=closed, 1=half-open, 2=open)
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Current circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"component"},
	)
)

// Event Mirror Metrics
var (
	// MirrorMessagesTotal tracks events written to the Kafka mirror
	MirrorMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "event_mirror_messages_total",
			Help: "Events mirrored to Kafka by type and status",
		},
		[]string{"type", "status"},
	)
)
