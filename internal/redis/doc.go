// Package redis provides the shared Redis cache used by provider decorators.
//
// Every client carries a metrics hook and a failsafe-go circuit breaker hook.
// An open breaker fails fast, and cache callers treat that as a miss.
package redis
