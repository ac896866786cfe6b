package wire

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
	"github.com/pscheid92/tickerpulse/internal/domain"
)

type MessageType string

const (
	TypeStockData MessageType = "stock_data"
	TypeNewsData  MessageType = "news_data"
	TypeError     MessageType = "error"
)

// Envelope is every server-to-client message.
type Envelope struct {
	Type   MessageType   `json:"type"`
	Symbol domain.Symbol `json:"symbol"`
	Data   any           `json:"data"`
}

// QuotePayload is a quote plus its display strings.
type QuotePayload struct {
	domain.Quote
	VolumeText    string `json:"volumeText"`
	AvgVolumeText string `json:"avgVolumeText"`
	MarketCapText string `json:"marketCapText"`
}

type Article struct {
	Headline  string    `json:"headline"`
	Summary   string    `json:"summary"`
	Source    string    `json:"source"`
	URL       string    `json:"url"`
	Image     string    `json:"image"`
	Datetime  int64     `json:"datetime"`
	Sentiment Sentiment `json:"sentiment"`
}

type Sentiment struct {
	Vader       domain.CompoundScore `json:"vader"`
	TextBlob    domain.PolarityScore `json:"textblob"`
	Afinn       AfinnScore           `json:"afinn"`
	CustomScore float64              `json:"custom_score"`
	Category    domain.Category      `json:"category"`
}

type AfinnScore struct {
	Score int `json:"score"`
}

type ErrorPayload struct {
	Code    domain.ErrorKind `json:"code"`
	Message string           `json:"message"`
}

func QuoteMessage(q domain.Quote) Envelope {
	return Envelope{
		Type:   TypeStockData,
		Symbol: q.Symbol,
		Data: QuotePayload{
			Quote:         q,
			VolumeText:    FormatLargeNumber(float64(q.Volume)),
			AvgVolumeText: FormatLargeNumber(float64(q.AvgVolume)),
			MarketCapText: FormatLargeNumber(q.MarketCap),
		},
	}
}

func NewsMessage(symbol domain.Symbol, batch []domain.ScoredArticle) Envelope {
	articles := make([]Article, len(batch))
	for i, a := range batch {
		articles[i] = Article{
			Headline: a.Headline,
			Summary:  a.Summary,
			Source:   a.Source,
			URL:      a.URL,
			Image:    a.Image,
			Datetime: a.PublishedAt.Unix(),
			Sentiment: Sentiment{
				Vader:       a.Sentiment.ModelA,
				TextBlob:    a.Sentiment.ModelB,
				Afinn:       AfinnScore{Score: a.Sentiment.ModelC},
				CustomScore: a.Sentiment.Composite,
				Category:    a.Sentiment.Category,
			},
		}
	}
	return Envelope{Type: TypeNewsData, Symbol: symbol, Data: articles}
}

func ErrorMessage(symbol domain.Symbol, err error) Envelope {
	kind := domain.KindOf(err)
	return Envelope{
		Type:   TypeError,
		Symbol: symbol,
		Data:   ErrorPayload{Code: kind, Message: errorText(kind, symbol)},
	}
}

func errorText(kind domain.ErrorKind, symbol domain.Symbol) string {
	switch kind {
	case domain.KindInvalidSymbol:
		return fmt.Sprintf("No market data found for %s", symbol)
	case domain.KindRateLimited:
		return "Data provider rate limit reached, updates will resume shortly"
	case domain.KindTimeout:
		return "Data provider timed out"
	case domain.KindMalformedResponse:
		return "Data provider returned an unexpected response"
	default:
		return "Data provider unavailable"
	}
}

func Encode(env Envelope) ([]byte, error) {
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode %s message: %w", env.Type, err)
	}
	return data, nil
}

var siSuffix = map[string]string{"k": "K", "M": "M", "G": "B", "T": "T"}

// FormatLargeNumber renders n as "$1.23K", "$4.56M", "$7.89B" or "$1.01T".
// Zero means not reported and renders as "N/A".
func FormatLargeNumber(n float64) string {
	if n == 0 || math.IsNaN(n) || math.IsInf(n, 0) {
		return "N/A"
	}
	if math.Abs(n) < 1000 {
		return fmt.Sprintf("$%.2f", n)
	}
	if math.Abs(n) >= 1e15 {
		return fmt.Sprintf("$%.2fT", n/1e12)
	}

	value, prefix := humanize.ComputeSI(n)
	return fmt.Sprintf("$%.2f%s", value, siSuffix[prefix])
}
