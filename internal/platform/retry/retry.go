// Package retry holds the failure classification and backoff rules shared by
// the pollers and the request/response provider calls.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
)

type Action int

const (
	Stop  Action = iota // permanent error, abort immediately
	Retry               // transient error, use normal backoff
	After               // rate-limited, use longer backoff
)

func (a Action) String() string {
	switch a {
	case Stop:
		return "stop"
	case Retry:
		return "retry"
	case After:
		return "after"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

type Classify func(err error) Action
type Operation[T any] func(ctx context.Context) (T, error)

// Backoff computes the wait before the next scheduled attempt of a
// long-running loop. Zero failures means the normal cadence.
type Backoff struct {
	Base time.Duration
	Max  time.Duration
}

// Delay returns Base for zero failures, then Base, 2*Base, 4*Base ... capped at Max.
// After jumps straight to Max.
func (b Backoff) Delay(failures int, action Action) time.Duration {
	if failures <= 0 {
		return b.Base
	}
	if action == After {
		return b.Max
	}
	d := b.Base
	for i := 1; i < failures; i++ {
		d *= 2
		if d >= b.Max {
			return b.Max
		}
	}
	return min(d, b.Max)
}

// Policy bounds a single synchronous retry loop run by Do.
type Policy struct {
	MaxAttempts      int
	InitialBackoff   time.Duration
	RateLimitBackoff time.Duration
	OnRetry          func(attempt int, err error, backoff time.Duration)
	Clock            clockwork.Clock
}

func Do[T any](ctx context.Context, p Policy, classify Classify, op Operation[T]) (T, error) {
	var zero T
	if p.MaxAttempts < 1 {
		return zero, fmt.Errorf("retry policy needs MaxAttempts >= 1, got %d", p.MaxAttempts)
	}
	clock := p.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	backoff := p.InitialBackoff
	var err error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		var val T
		val, err = op(ctx)
		if err == nil {
			return val, nil
		}

		action := classify(err)
		if action == Stop {
			return zero, &PermanentError{Err: err}
		}
		if attempt == p.MaxAttempts {
			break
		}
		if action == After {
			backoff = p.RateLimitBackoff
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, err, backoff)
		}

		select {
		case <-clock.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			return zero, fmt.Errorf("context cancelled during retry: %w", ctx.Err())
		}
	}

	return zero, fmt.Errorf("failed after %d attempts: %w", p.MaxAttempts, err)
}

type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }
