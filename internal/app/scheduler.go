package app

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/pscheid92/tickerpulse/internal/domain"
	"github.com/pscheid92/tickerpulse/internal/metrics"
	"github.com/pscheid92/tickerpulse/internal/platform/correlation"
	"github.com/pscheid92/tickerpulse/internal/registry"
	"golang.org/x/sync/errgroup"
)

// SymbolRunner polls one symbol until ctx ends or a terminal error occurs.
type SymbolRunner interface {
	Run(ctx context.Context, symbol domain.Symbol) error
}

// ErrorSink receives the single terminal error of a task.
type ErrorSink interface {
	PublishError(ctx context.Context, symbol domain.Symbol, err error) error
}

type task struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Scheduler owns one polling task per active symbol.
type Scheduler struct {
	quotes SymbolRunner
	news   SymbolRunner
	errors ErrorSink

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	tasks    map[domain.Symbol]*task
	draining map[domain.Symbol]chan struct{}
	stopped  bool
}

var _ registry.Listener = (*Scheduler)(nil)

func NewScheduler(quotes, news SymbolRunner, errs ErrorSink) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		quotes:   quotes,
		news:     news,
		errors:   errs,
		ctx:      ctx,
		cancel:   cancel,
		tasks:    make(map[domain.Symbol]*task),
		draining: make(map[domain.Symbol]chan struct{}),
	}
}

// SymbolActivated starts a task for symbol. It does not block: a task still
// draining from an earlier activation is awaited inside the new goroutine.
func (s *Scheduler) SymbolActivated(symbol domain.Symbol) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	if _, running := s.tasks[symbol]; running {
		return
	}

	ctx, cancel := context.WithCancel(s.ctx)
	t := &task{cancel: cancel, done: make(chan struct{})}
	s.tasks[symbol] = t

	s.wg.Add(1)
	go s.run(ctx, symbol, t, s.draining[symbol])
}

// SymbolDeactivated cancels the symbol's task without waiting for it.
func (s *Scheduler) SymbolDeactivated(symbol domain.Symbol) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[symbol]
	if !ok {
		return
	}
	t.cancel()
	delete(s.tasks, symbol)
	s.draining[symbol] = t.done
}

// Running reports whether a task exists for symbol.
func (s *Scheduler) Running(symbol domain.Symbol) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tasks[symbol]
	return ok
}

// Stop cancels every task and waits for all of them to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
	slog.Info("Scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context, symbol domain.Symbol, t *task, previous <-chan struct{}) {
	defer s.wg.Done()
	defer s.finish(symbol, t)
	defer t.cancel()

	if previous != nil {
		select {
		case <-previous:
		case <-ctx.Done():
			return
		}
	}

	logCtx := correlation.WithSymbol(ctx, string(symbol))
	metrics.PollerTasksRunning.Inc()
	defer metrics.PollerTasksRunning.Dec()
	slog.InfoContext(logCtx, "Polling started", "symbol", symbol)

	// The first terminal error cancels the sibling poller.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return runGuarded(gctx, "quote", s.quotes, symbol) })
	g.Go(func() error { return runGuarded(gctx, "news", s.news, symbol) })
	err := g.Wait()

	if err == nil || ctx.Err() != nil {
		slog.InfoContext(logCtx, "Polling stopped", "symbol", symbol)
		return
	}

	metrics.TerminalSymbolsTotal.Inc()
	slog.WarnContext(logCtx, "Polling ended with terminal error", "symbol", symbol, "error", err)
	if perr := s.errors.PublishError(ctx, symbol, err); perr != nil {
		slog.WarnContext(logCtx, "Terminal error publish failed", "symbol", symbol, "error", perr)
	}
}

func (s *Scheduler) finish(symbol domain.Symbol, t *task) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tasks[symbol] == t {
		delete(s.tasks, symbol)
	}
	if s.draining[symbol] == t.done {
		delete(s.draining, symbol)
	}
	close(t.done)
}

func runGuarded(ctx context.Context, kind string, r SymbolRunner, symbol domain.Symbol) (err error) {
	defer func() {
		if p := recover(); p != nil {
			metrics.PollerPanicsTotal.WithLabelValues(kind).Inc()
			slog.ErrorContext(ctx, "Poller panic recovered", "poller", kind, "symbol", symbol, "panic", p, "stack", string(debug.Stack()))
			err = nil
		}
	}()

	return r.Run(ctx, symbol)
}
