package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/tickerpulse/internal/client"
	"github.com/pscheid92/tickerpulse/internal/domain"
	"github.com/pscheid92/tickerpulse/internal/wire"
)

type printer struct {
	out   io.Writer
	clock clockwork.Clock
}

func (p *printer) print(m client.Message) {
	var err error
	switch m.Type {
	case wire.TypeStockData:
		err = p.quote(m.Data)
	case wire.TypeNewsData:
		err = p.news(m.Symbol, m.Data)
	case wire.TypeError:
		err = p.failure(m.Symbol, m.Data)
	default:
		slog.Debug("Ignoring message", "type", m.Type)
	}
	if err != nil {
		slog.Warn("Failed to decode message", "type", m.Type, "error", err)
	}
}

func (p *printer) quote(data json.RawMessage) error {
	var q wire.QuotePayload
	if err := json.Unmarshal(data, &q); err != nil {
		return err
	}

	stale := ""
	if q.Stale {
		stale = " (stale)"
	}
	fmt.Fprintf(p.out, "%s %-8s %s  %+.2f (%+.2f%%)  vol %s  cap %s%s\n",
		p.clock.Now().Format(time.TimeOnly),
		q.Symbol,
		humanize.FormatFloat("#,###.##", q.Price),
		q.Change,
		q.ChangePercent,
		humanize.Comma(q.Volume),
		q.MarketCapText,
		stale,
	)
	return nil
}

func (p *printer) news(symbol domain.Symbol, data json.RawMessage) error {
	var articles []wire.Article
	if err := json.Unmarshal(data, &articles); err != nil {
		return err
	}

	for _, a := range articles {
		published := time.Unix(a.Datetime, 0)
		fmt.Fprintf(p.out, "  %s [%-8s %+.3f] %s (%s, %s)\n",
			symbol,
			a.Sentiment.Category,
			a.Sentiment.CustomScore,
			a.Headline,
			a.Source,
			humanize.RelTime(published, p.clock.Now(), "ago", "from now"),
		)
	}
	return nil
}

func (p *printer) failure(symbol domain.Symbol, data json.RawMessage) error {
	var e wire.ErrorPayload
	if err := json.Unmarshal(data, &e); err != nil {
		return err
	}
	fmt.Fprintf(p.out, "! %s %s: %s\n", symbol, e.Code, e.Message)
	return nil
}
