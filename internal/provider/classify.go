package provider

import (
	"github.com/pscheid92/tickerpulse/internal/domain"
	"github.com/pscheid92/tickerpulse/internal/platform/retry"
)

// Classify maps the provider error taxonomy onto retry actions.
func Classify(err error) retry.Action {
	switch domain.KindOf(err) {
	case domain.KindInvalidSymbol:
		return retry.Stop
	case domain.KindRateLimited:
		return retry.After
	default:
		return retry.Retry
	}
}

var _ retry.Classify = Classify
