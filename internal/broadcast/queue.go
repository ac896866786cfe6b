package broadcast

import (
	"sync"

	"github.com/pscheid92/tickerpulse/internal/domain"
	"github.com/pscheid92/tickerpulse/internal/wire"
)

// outbound is one encoded message waiting for a connection's writer.
type outbound struct {
	kind   wire.MessageType
	symbol domain.Symbol
	data   []byte
}

type pushResult int

const (
	pushed          pushResult = iota
	droppedOldest              // an older queued quote made room
	droppedIncoming            // the incoming quote was discarded
	overflow                   // news or error could not be queued
)

// outboundQueue is a bounded per-connection queue. Quotes coalesce when the
// queue is full; news and errors are never dropped and are capped separately.
type outboundQueue struct {
	mu      sync.Mutex
	items   []outbound
	size    int
	newsCap int
	news    int
	notify  chan struct{}
}

func newOutboundQueue(size, newsCap int) *outboundQueue {
	return &outboundQueue{
		items:   make([]outbound, 0, size),
		size:    size,
		newsCap: newsCap,
		notify:  make(chan struct{}, 1),
	}
}

// push never blocks.
func (q *outboundQueue) push(m outbound) pushResult {
	q.mu.Lock()
	defer q.mu.Unlock()

	result := pushed
	if m.kind == wire.TypeStockData {
		if len(q.items) >= q.size {
			i := q.oldestQuoteLocked()
			if i < 0 {
				return droppedIncoming
			}
			q.removeLocked(i)
			result = droppedOldest
		}
	} else {
		if q.news >= q.newsCap {
			return overflow
		}
		if len(q.items) >= q.size {
			i := q.oldestQuoteLocked()
			if i < 0 {
				return overflow
			}
			q.removeLocked(i)
			result = droppedOldest
		}
		q.news++
	}

	q.items = append(q.items, m)
	select {
	case q.notify <- struct{}{}:
	default:
	}
	return result
}

func (q *outboundQueue) pop() (outbound, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return outbound{}, false
	}
	m := q.items[0]
	q.items[0] = outbound{}
	q.items = q.items[1:]
	if m.kind != wire.TypeStockData {
		q.news--
	}
	return m, true
}

// retain drops queued messages for any symbol other than keep and reports how many went.
func (q *outboundQueue) retain(keep domain.Symbol) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.items[:0]
	dropped := 0
	for _, m := range q.items {
		if m.symbol == keep {
			kept = append(kept, m)
			continue
		}
		dropped++
		if m.kind != wire.TypeStockData {
			q.news--
		}
	}
	clear(q.items[len(kept):])
	q.items = kept
	return dropped
}

func (q *outboundQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *outboundQueue) ready() <-chan struct{} { return q.notify }

func (q *outboundQueue) oldestQuoteLocked() int {
	for i, m := range q.items {
		if m.kind == wire.TypeStockData {
			return i
		}
	}
	return -1
}

func (q *outboundQueue) removeLocked(i int) {
	copy(q.items[i:], q.items[i+1:])
	q.items[len(q.items)-1] = outbound{}
	q.items = q.items[:len(q.items)-1]
}
