package app

import (
	"context"
	"errors"

	"github.com/pscheid92/tickerpulse/internal/domain"
)

// FanOut forwards every event to each sink in order. A failing sink does not
// stop delivery to the others.
type FanOut []domain.EventSink

var _ domain.EventSink = FanOut(nil)

func (f FanOut) PublishQuote(ctx context.Context, quote domain.Quote) error {
	var errs []error
	for _, s := range f {
		errs = append(errs, s.PublishQuote(ctx, quote))
	}
	return errors.Join(errs...)
}

func (f FanOut) PublishNews(ctx context.Context, symbol domain.Symbol, articles []domain.ScoredArticle) error {
	var errs []error
	for _, s := range f {
		errs = append(errs, s.PublishNews(ctx, symbol, articles))
	}
	return errors.Join(errs...)
}

func (f FanOut) PublishError(ctx context.Context, symbol domain.Symbol, err error) error {
	var errs []error
	for _, s := range f {
		errs = append(errs, s.PublishError(ctx, symbol, err))
	}
	return errors.Join(errs...)
}
