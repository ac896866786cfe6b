package poller

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/tickerpulse/internal/domain"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)

type recordingSink struct {
	mu     sync.Mutex
	quotes []domain.Quote
	news   [][]domain.ScoredArticle
}

func (s *recordingSink) PublishQuote(_ context.Context, q domain.Quote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quotes = append(s.quotes, q)
	return nil
}

func (s *recordingSink) PublishNews(_ context.Context, _ domain.Symbol, batch []domain.ScoredArticle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.news = append(s.news, batch)
	return nil
}

func (s *recordingSink) Quotes() []domain.Quote {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Quote(nil), s.quotes...)
}

func (s *recordingSink) News() [][]domain.ScoredArticle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]domain.ScoredArticle(nil), s.news...)
}

// waitForSleep blocks until the poller under test is parked on the clock.
func waitForSleep(t *testing.T, clock *clockwork.FakeClock) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1), "poller never went to sleep")
}

// advance moves the clock by d and waits for the next sleep.
func advance(t *testing.T, clock *clockwork.FakeClock, d time.Duration) {
	t.Helper()
	clock.Advance(d)
	waitForSleep(t, clock)
}

type runner interface {
	Run(ctx context.Context, symbol domain.Symbol) error
}

func start(t *testing.T, r runner, symbol domain.Symbol) (<-chan error, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx, symbol) }()
	t.Cleanup(cancel)
	return done, cancel
}

func waitDone(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not return")
		return nil
	}
}
