package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

const (
	QuoteSourceYahoo = "yahoo"
	QuoteSourceMock  = "mock"
)

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	Port      string `env:"PORT" default:"8080"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	// AllowedOrigins restricts browser WebSocket origins. Empty allows any.
	AllowedOrigins string `env:"ALLOWED_ORIGINS"`

	FinnhubAPIKey string `env:"FINNHUB_API_KEY"`
	QuoteSource   string `env:"QUOTE_SOURCE" default:"yahoo"`
	RedisURL      string `env:"REDIS_URL"`
	KafkaBrokers  string `env:"KAFKA_BROKERS"`
	KafkaTopic    string `env:"KAFKA_TOPIC" default:"tickerpulse.events"`

	QuoteInterval  time.Duration `env:"QUOTE_INTERVAL" default:"10s"`
	NewsInterval   time.Duration `env:"NEWS_INTERVAL" default:"5m"`
	MaxBackoff     time.Duration `env:"MAX_BACKOFF" default:"160s"`
	FetchTimeout   time.Duration `env:"FETCH_TIMEOUT" default:"8s"`
	StaleThreshold int           `env:"STALE_THRESHOLD" default:"3"`

	NewsLookback   time.Duration `env:"NEWS_LOOKBACK" default:"168h"`
	NewsRetention  time.Duration `env:"NEWS_RETENTION" default:"168h"`
	NewsMaxSeenIDs int           `env:"NEWS_MAX_SEEN_IDS" default:"500"`

	QueueSize    int `env:"QUEUE_SIZE" default:"32"`
	NewsQueueCap int `env:"NEWS_QUEUE_CAP" default:"16"`

	MaxWebSocketConnections int     `env:"MAX_WEBSOCKET_CONNECTIONS" default:"10000"`
	MaxConnectionsPerIP     int     `env:"MAX_CONNECTIONS_PER_IP" default:"50"`
	ConnectionRatePerIP     float64 `env:"CONNECTION_RATE_PER_IP" default:"10"`
	ConnectionBurstPerIP    int     `env:"CONNECTION_BURST_PER_IP" default:"20"`

	ProviderRatePerSecond float64       `env:"PROVIDER_RATE_PER_SECOND" default:"1"`
	ProviderBurst         int           `env:"PROVIDER_BURST" default:"10"`
	LookupCacheTTL        time.Duration `env:"LOOKUP_CACHE_TTL" default:"1h"`

	SentimentWeightVader    float64 `env:"SENTIMENT_WEIGHT_VADER" default:"1"`
	SentimentWeightTextBlob float64 `env:"SENTIMENT_WEIGHT_TEXTBLOB" default:"1"`
	SentimentWeightAfinn    float64 `env:"SENTIMENT_WEIGHT_AFINN" default:"1"`
	SentimentAfinnScale     float64 `env:"SENTIMENT_AFINN_SCALE" default:"5"`
	SentimentEpsilon        float64 `env:"SENTIMENT_EPSILON" default:"0.05"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Brokers splits KAFKA_BROKERS on commas, dropping blanks.
func (c *Config) Brokers() []string {
	return splitList(c.KafkaBrokers)
}

// Origins splits ALLOWED_ORIGINS on commas, dropping blanks.
func (c *Config) Origins() []string {
	return splitList(c.AllowedOrigins)
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// UseMockNews reports whether news comes from the local generator.
func (c *Config) UseMockNews() bool {
	return c.FinnhubAPIKey == ""
}

func validate(cfg *Config) error {
	durations := []struct {
		name  string
		value time.Duration
	}{
		{"QUOTE_INTERVAL", cfg.QuoteInterval},
		{"NEWS_INTERVAL", cfg.NewsInterval},
		{"MAX_BACKOFF", cfg.MaxBackoff},
		{"FETCH_TIMEOUT", cfg.FetchTimeout},
		{"NEWS_LOOKBACK", cfg.NewsLookback},
		{"NEWS_RETENTION", cfg.NewsRetention},
		{"LOOKUP_CACHE_TTL", cfg.LookupCacheTTL},
	}
	for _, d := range durations {
		if d.value <= 0 {
			return fmt.Errorf("%s must be positive", d.name)
		}
	}

	if cfg.MaxBackoff < cfg.QuoteInterval {
		return errors.New("MAX_BACKOFF must not be shorter than QUOTE_INTERVAL")
	}
	if cfg.NewsRetention < cfg.NewsLookback {
		return errors.New("NEWS_RETENTION must cover NEWS_LOOKBACK or old articles are re-emitted")
	}
	if cfg.StaleThreshold < 1 {
		return errors.New("STALE_THRESHOLD must be at least 1")
	}
	if cfg.NewsMaxSeenIDs < 1 {
		return errors.New("NEWS_MAX_SEEN_IDS must be at least 1")
	}
	if cfg.QueueSize < 1 || cfg.NewsQueueCap < 1 {
		return errors.New("QUEUE_SIZE and NEWS_QUEUE_CAP must be at least 1")
	}
	if cfg.NewsQueueCap > cfg.QueueSize {
		return fmt.Errorf("NEWS_QUEUE_CAP (%d) must not exceed QUEUE_SIZE (%d)", cfg.NewsQueueCap, cfg.QueueSize)
	}

	switch cfg.QuoteSource {
	case QuoteSourceYahoo, QuoteSourceMock:
	default:
		return fmt.Errorf("QUOTE_SOURCE must be %q or %q, got %q", QuoteSourceYahoo, QuoteSourceMock, cfg.QuoteSource)
	}

	weights := []float64{cfg.SentimentWeightVader, cfg.SentimentWeightTextBlob, cfg.SentimentWeightAfinn}
	sum := 0.0
	for _, w := range weights {
		if w < 0 {
			return errors.New("sentiment weights must not be negative")
		}
		sum += w
	}
	if sum == 0 {
		return errors.New("at least one sentiment weight must be positive")
	}
	if cfg.SentimentAfinnScale <= 0 {
		return errors.New("SENTIMENT_AFINN_SCALE must be positive")
	}
	if cfg.SentimentEpsilon < 0 || cfg.SentimentEpsilon >= 1 {
		return errors.New("SENTIMENT_EPSILON must be in [0, 1)")
	}

	if cfg.AppEnv == "production" && cfg.QuoteSource == QuoteSourceMock {
		return errors.New("QUOTE_SOURCE=mock is not allowed in production")
	}

	return nil
}
