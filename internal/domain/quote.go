package domain

import "time"

// Quote is a point-in-time market snapshot for one symbol.
// Zero numeric values mean the provider did not report the field.
type Quote struct {
	Symbol         Symbol    `json:"symbol"`
	Name           string    `json:"name,omitempty"`
	Price          float64   `json:"price"`
	Change         float64   `json:"change"`
	ChangePercent  float64   `json:"changePercent"`
	PreviousClose  float64   `json:"previousClose"`
	Open           float64   `json:"open"`
	DayLow         float64   `json:"dayLow"`
	DayHigh        float64   `json:"dayHigh"`
	Week52Low      float64   `json:"week52Low"`
	Week52High     float64   `json:"week52High"`
	Volume         int64     `json:"volume"`
	AvgVolume      int64     `json:"avgVolume"`
	MarketCap      float64   `json:"marketCap"`
	PERatio        float64   `json:"peRatio"`
	EPS            float64   `json:"eps"`
	Beta           float64   `json:"beta"`
	DividendYield  float64   `json:"dividendYield"`
	DividendRate   float64   `json:"dividendRate"`
	ExDividendDate string    `json:"exDividendDate,omitempty"`
	EarningsDate   string    `json:"earningsDate,omitempty"`
	ObservedAt     time.Time `json:"observedAt"`
	Stale          bool      `json:"stale"`
}

// SameMarketData reports whether q and other carry identical market fields.
// ObservedAt and Stale are ignored.
func (q Quote) SameMarketData(other Quote) bool {
	q.ObservedAt, other.ObservedAt = time.Time{}, time.Time{}
	q.Stale, other.Stale = false, false
	return q == other
}

// Fundamentals are the slow-moving company figures merged into a Quote.
type Fundamentals struct {
	MarketCap      float64 `json:"marketCap"`
	PERatio        float64 `json:"peRatio"`
	EPS            float64 `json:"eps"`
	Beta           float64 `json:"beta"`
	DividendYield  float64 `json:"dividendYield"`
	DividendRate   float64 `json:"dividendRate"`
	AvgVolume      int64   `json:"avgVolume"`
	ExDividendDate string  `json:"exDividendDate,omitempty"`
	EarningsDate   string  `json:"earningsDate,omitempty"`
}

// Apply copies every reported fundamental into q, leaving fields q already has.
func (f Fundamentals) Apply(q *Quote) {
	fill := func(dst *float64, v float64) {
		if *dst == 0 {
			*dst = v
		}
	}
	fill(&q.MarketCap, f.MarketCap)
	fill(&q.PERatio, f.PERatio)
	fill(&q.EPS, f.EPS)
	fill(&q.Beta, f.Beta)
	fill(&q.DividendYield, f.DividendYield)
	fill(&q.DividendRate, f.DividendRate)
	if q.AvgVolume == 0 {
		q.AvgVolume = f.AvgVolume
	}
	if q.ExDividendDate == "" {
		q.ExDividendDate = f.ExDividendDate
	}
	if q.EarningsDate == "" {
		q.EarningsDate = f.EarningsDate
	}
}
