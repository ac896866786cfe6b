// Package registry tracks which clients are subscribed to which symbols and
// reports the 0→1 and 1→0 subscriber transitions of each symbol.
package registry

import (
	"errors"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/pscheid92/tickerpulse/internal/domain"
	"github.com/pscheid92/tickerpulse/internal/metrics"
)

// Listener is notified of symbol activation changes. Callbacks run while the
// registry lock is held: they must not block and must not call back into the
// Registry.
type Listener interface {
	SymbolActivated(symbol domain.Symbol)
	SymbolDeactivated(symbol domain.Symbol)
}

var ErrEmptySymbol = errors.New("registry: empty symbol")

type Registry struct {
	mu        sync.Mutex
	bySymbol  map[domain.Symbol]map[uuid.UUID]struct{}
	byClient  map[uuid.UUID]map[domain.Symbol]struct{}
	listeners []Listener
	pairs     int
}

func New(listeners ...Listener) *Registry {
	return &Registry{
		bySymbol:  make(map[domain.Symbol]map[uuid.UUID]struct{}),
		byClient:  make(map[uuid.UUID]map[domain.Symbol]struct{}),
		listeners: listeners,
	}
}

// AddListener registers l for future transitions. It must be called before
// the registry is shared.
func (r *Registry) AddListener(l Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, l)
}

// Subscribe makes symbol the client's only subscription and returns the
// symbol it replaced, if any. Re-subscribing to the current symbol is a no-op.
// On a switch the new symbol is activated before the old one is deactivated.
func (r *Registry) Subscribe(clientID uuid.UUID, symbol domain.Symbol) (domain.Symbol, error) {
	if symbol == "" {
		return "", ErrEmptySymbol
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.byClient[clientID]
	if len(current) == 1 {
		if _, ok := current[symbol]; ok {
			return symbol, nil
		}
	}

	var previous domain.Symbol
	old := make([]domain.Symbol, 0, len(current))
	for s := range current {
		if s != symbol {
			old = append(old, s)
		}
	}
	slices.Sort(old)
	if len(old) > 0 {
		previous = old[0]
	}

	r.addLocked(clientID, symbol)
	for _, s := range old {
		r.removeLocked(clientID, s)
	}
	r.updateGaugesLocked()

	return previous, nil
}

// Add subscribes the client to symbol without touching its other subscriptions.
func (r *Registry) Add(clientID uuid.UUID, symbol domain.Symbol) error {
	if symbol == "" {
		return ErrEmptySymbol
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.addLocked(clientID, symbol)
	r.updateGaugesLocked()
	return nil
}

// Remove drops one subscription. Unknown pairs are ignored.
func (r *Registry) Remove(clientID uuid.UUID, symbol domain.Symbol) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(clientID, symbol)
	r.updateGaugesLocked()
}

// Unsubscribe drops every subscription of the client. It is idempotent.
func (r *Registry) Unsubscribe(clientID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	symbols := make([]domain.Symbol, 0, len(r.byClient[clientID]))
	for s := range r.byClient[clientID] {
		symbols = append(symbols, s)
	}
	slices.Sort(symbols)
	for _, s := range symbols {
		r.removeLocked(clientID, s)
	}
	r.updateGaugesLocked()
}

// ActiveSymbols returns every symbol with at least one subscriber, sorted.
func (r *Registry) ActiveSymbols() []domain.Symbol {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.Symbol, 0, len(r.bySymbol))
	for s := range r.bySymbol {
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}

func (r *Registry) SubscribersOf(symbol domain.Symbol) []uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]uuid.UUID, 0, len(r.bySymbol[symbol]))
	for id := range r.bySymbol[symbol] {
		out = append(out, id)
	}
	return out
}

func (r *Registry) SymbolsOf(clientID uuid.UUID) []domain.Symbol {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.Symbol, 0, len(r.byClient[clientID]))
	for s := range r.byClient[clientID] {
		out = append(out, s)
	}
	slices.Sort(out)
	return out
}

func (r *Registry) SubscriberCount(symbol domain.Symbol) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bySymbol[symbol])
}

func (r *Registry) addLocked(clientID uuid.UUID, symbol domain.Symbol) {
	subs, ok := r.bySymbol[symbol]
	if !ok {
		subs = make(map[uuid.UUID]struct{})
		r.bySymbol[symbol] = subs
	}
	if _, exists := subs[clientID]; exists {
		return
	}
	subs[clientID] = struct{}{}

	syms, ok := r.byClient[clientID]
	if !ok {
		syms = make(map[domain.Symbol]struct{})
		r.byClient[clientID] = syms
	}
	syms[symbol] = struct{}{}
	r.pairs++

	if len(subs) == 1 {
		metrics.RegistryTransitionsTotal.WithLabelValues("activated").Inc()
		for _, l := range r.listeners {
			l.SymbolActivated(symbol)
		}
	}
}

func (r *Registry) removeLocked(clientID uuid.UUID, symbol domain.Symbol) {
	subs, ok := r.bySymbol[symbol]
	if !ok {
		return
	}
	if _, exists := subs[clientID]; !exists {
		return
	}
	delete(subs, clientID)

	syms := r.byClient[clientID]
	delete(syms, symbol)
	if len(syms) == 0 {
		delete(r.byClient, clientID)
	}
	r.pairs--

	if len(subs) == 0 {
		delete(r.bySymbol, symbol)
		metrics.RegistryTransitionsTotal.WithLabelValues("deactivated").Inc()
		for _, l := range r.listeners {
			l.SymbolDeactivated(symbol)
		}
	}
}

func (r *Registry) updateGaugesLocked() {
	metrics.RegistryActiveSymbols.Set(float64(len(r.bySymbol)))
	metrics.RegistrySubscriptions.Set(float64(r.pairs))
}
