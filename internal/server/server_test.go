package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/tickerpulse/internal/domain"
)

type stubHub struct {
	mu       sync.Mutex
	clients  int
	retained map[uuid.UUID]domain.Symbol
}

func (h *stubHub) Register(uuid.UUID, *websocket.Conn) error { return nil }
func (h *stubHub) Unregister(uuid.UUID)                      {}

func (h *stubHub) Retain(clientID uuid.UUID, symbol domain.Symbol) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.retained == nil {
		h.retained = make(map[uuid.UUID]domain.Symbol)
	}
	h.retained[clientID] = symbol
}

func (h *stubHub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.clients
}

type stubSubscriber struct{}

func (stubSubscriber) Subscribe(uuid.UUID, domain.Symbol) (domain.Symbol, error) { return "", nil }

type mockDirectory struct {
	results   []domain.SymbolMatch
	peers     map[domain.Symbol]string
	err       error
	lastQuery string
}

func (m *mockDirectory) LookupSymbols(_ context.Context, query string) ([]domain.SymbolMatch, error) {
	m.lastQuery = query
	return m.results, m.err
}

func (m *mockDirectory) CompanyPeers(_ context.Context, symbol domain.Symbol) (map[domain.Symbol]string, error) {
	m.lastQuery = string(symbol)
	return m.peers, m.err
}

type serverOption func(*serverDeps)

type serverDeps struct {
	cfg          Config
	clock        clockwork.Clock
	hub          FeedHub
	registry     Subscriber
	directory    domain.Directory
	healthChecks []HealthCheck
}

func withHub(h FeedHub) serverOption           { return func(d *serverDeps) { d.hub = h } }
func withRegistry(r Subscriber) serverOption   { return func(d *serverDeps) { d.registry = r } }
func withClock(c clockwork.Clock) serverOption { return func(d *serverDeps) { d.clock = c } }

func withDirectory(dir domain.Directory) serverOption {
	return func(d *serverDeps) { d.directory = dir }
}

func withHealthChecks(checks ...HealthCheck) serverOption {
	return func(d *serverDeps) { d.healthChecks = checks }
}

func withLimits(l LimitsConfig) serverOption {
	return func(d *serverDeps) { d.cfg.Limits = l }
}

func withAPIRate(perSecond float64, burst int) serverOption {
	return func(d *serverDeps) { d.cfg.APIRate, d.cfg.APIBurst = perSecond, burst }
}

func newTestServer(t *testing.T, opts ...serverOption) *Server {
	t.Helper()
	deps := serverDeps{
		cfg: Config{
			Port:          "0",
			DefaultSymbol: "BCS",
			Limits: LimitsConfig{
				MaxConnections: 100,
				MaxPerIP:       100,
				RatePerIP:      100,
				BurstPerIP:     100,
			},
		},
		clock:    clockwork.NewFakeClock(),
		hub:      &stubHub{},
		registry: stubSubscriber{},
	}
	for _, opt := range opts {
		opt(&deps)
	}
	return NewServer(deps.cfg, deps.clock, deps.hub, deps.registry, deps.directory, deps.healthChecks)
}

func doRequest(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}
