// Package poller runs the per-symbol fetch loops. A QuotePoller and a
// NewsPoller each own their state for one symbol activation: failure count,
// last success, and either the last emitted quote or the seen-article cache.
// Nothing in a poller's state is shared, so one symbol's failures never touch
// another symbol.
package poller
