package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/tickerpulse/internal/app"
	"github.com/pscheid92/tickerpulse/internal/broadcast"
	"github.com/pscheid92/tickerpulse/internal/cache"
	"github.com/pscheid92/tickerpulse/internal/domain"
	"github.com/pscheid92/tickerpulse/internal/kafka"
	"github.com/pscheid92/tickerpulse/internal/platform/config"
	"github.com/pscheid92/tickerpulse/internal/platform/logging"
	"github.com/pscheid92/tickerpulse/internal/platform/version"
	"github.com/pscheid92/tickerpulse/internal/poller"
	"github.com/pscheid92/tickerpulse/internal/provider"
	"github.com/pscheid92/tickerpulse/internal/provider/finnhub"
	"github.com/pscheid92/tickerpulse/internal/provider/mock"
	"github.com/pscheid92/tickerpulse/internal/provider/yahoo"
	"github.com/pscheid92/tickerpulse/internal/redis"
	"github.com/pscheid92/tickerpulse/internal/registry"
	"github.com/pscheid92/tickerpulse/internal/sentiment"
	"github.com/pscheid92/tickerpulse/internal/server"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	shutdownTimeout       = 10 * time.Second
	cacheEvictionInterval = time.Minute
	fundamentalsTTL       = 6 * time.Hour
	apiRatePerSecond      = 5
	apiBurst              = 20
)

type providers struct {
	quotes    domain.QuoteProvider
	news      domain.NewsProvider
	directory domain.Directory
}

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

// setupCache returns the shared lookup cache. Redis is used when configured,
// otherwise an in-process map.
func setupCache(ctx context.Context, cfg *config.Config, clock clockwork.Clock) (domain.Cache, []server.HealthCheck, func()) {
	if cfg.RedisURL == "" {
		mem := cache.NewMemory(clock)
		stopEviction := mem.StartEvictionTimer(cacheEvictionInterval)
		slog.Info("Using in-memory lookup cache")
		return mem, nil, stopEviction
	}

	client, err := redis.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	checks := []server.HealthCheck{{Name: "redis", Check: client.Ping}}
	return redis.NewCache(client), checks, func() { _ = client.Close() }
}

func setupProviders(cfg *config.Config, lookupCache domain.Cache, clock clockwork.Clock) providers {
	generator := mock.New(clock)

	var (
		quotes   domain.QuoteProvider = generator
		upstream domain.NameResolver  = generator
	)
	if cfg.QuoteSource == config.QuoteSourceYahoo {
		limiter := rate.NewLimiter(rate.Limit(cfg.ProviderRatePerSecond), cfg.ProviderBurst)
		y := yahoo.New(provider.NewClient(yahoo.Name, provider.WithLimiter(limiter)))
		quotes, upstream = y, y
	}
	names := provider.NewNames(upstream, lookupCache, cfg.LookupCacheTTL)

	if cfg.UseMockNews() {
		slog.Warn("FINNHUB_API_KEY not set, using generated news and directory")
		return providers{
			quotes:    provider.NewQuoteSource(quotes, lookupCache, provider.WithNames(names)),
			news:      generator,
			directory: provider.NewCachedDirectory(generator, lookupCache, cfg.LookupCacheTTL, clock),
		}
	}

	limiter := rate.NewLimiter(rate.Limit(cfg.ProviderRatePerSecond), cfg.ProviderBurst)
	fh := finnhub.New(finnhub.NewClient(cfg.FinnhubAPIKey, provider.WithLimiter(limiter)), finnhub.Config{
		Lookback: cfg.NewsLookback,
		Names:    names,
		Clock:    clock,
	})

	return providers{
		quotes: provider.NewQuoteSource(quotes, lookupCache,
			provider.WithNames(names),
			provider.WithFundamentals(fh, fundamentalsTTL),
		),
		news:      fh,
		directory: provider.NewCachedDirectory(fh, lookupCache, cfg.LookupCacheTTL, clock),
	}
}

func setupAnalyzer(cfg *config.Config) *sentiment.Analyzer {
	analyzer, err := sentiment.New(sentiment.Config{
		Weights: sentiment.Weights{
			Valence:  cfg.SentimentWeightVader,
			Polarity: cfg.SentimentWeightTextBlob,
			Words:    cfg.SentimentWeightAfinn,
		},
		WordScale: cfg.SentimentAfinnScale,
		Epsilon:   cfg.SentimentEpsilon,
	})
	if err != nil {
		slog.Error("Invalid sentiment configuration", "error", err)
		os.Exit(1)
	}
	return analyzer
}

// setupMirror returns nil when no brokers are configured.
func setupMirror(cfg *config.Config) *kafka.Mirror {
	brokers := cfg.Brokers()
	if len(brokers) == 0 {
		return nil
	}
	slog.Info("Mirroring events to Kafka", "brokers", brokers, "topic", cfg.KafkaTopic)
	return kafka.NewMirror(kafka.NewWriter(brokers, cfg.KafkaTopic))
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "version", version.Get().Version, "quote_source", cfg.QuoteSource)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lookupCache, healthChecks, closeCache := setupCache(ctx, cfg, clock)
	defer closeCache()

	sources := setupProviders(cfg, lookupCache, clock)
	analyzer := setupAnalyzer(cfg)

	reg := registry.New()
	hub := broadcast.NewHub(reg, clock, broadcast.Config{QueueSize: cfg.QueueSize, NewsCap: cfg.NewsQueueCap})

	sinks := app.FanOut{hub}
	if mirror := setupMirror(cfg); mirror != nil {
		sinks = append(sinks, mirror)
		defer func() {
			if err := mirror.Close(); err != nil {
				slog.Error("Failed to flush Kafka mirror", "error", err)
			}
		}()
	}

	quotes := poller.NewQuotePoller(sources.quotes, sinks, provider.Classify, clock, poller.QuoteConfig{
		Interval:       cfg.QuoteInterval,
		MaxBackoff:     cfg.MaxBackoff,
		FetchTimeout:   cfg.FetchTimeout,
		StaleThreshold: cfg.StaleThreshold,
	})
	news := poller.NewNewsPoller(sources.news, analyzer, sinks, provider.Classify, clock, poller.NewsConfig{
		Interval:     cfg.NewsInterval,
		MaxBackoff:   max(cfg.MaxBackoff, cfg.NewsInterval),
		FetchTimeout: cfg.FetchTimeout,
		Retention:    cfg.NewsRetention,
		MaxSeenIDs:   cfg.NewsMaxSeenIDs,
	})

	scheduler := app.NewScheduler(quotes, news, sinks)
	reg.AddListener(scheduler)

	srv := server.NewServer(server.Config{
		Port:           cfg.Port,
		AppEnv:         cfg.AppEnv,
		DefaultSymbol:  domain.DefaultSymbol,
		AllowedOrigins: cfg.Origins(),
		Limits: server.LimitsConfig{
			MaxConnections: cfg.MaxWebSocketConnections,
			MaxPerIP:       cfg.MaxConnectionsPerIP,
			RatePerIP:      cfg.ConnectionRatePerIP,
			BurstPerIP:     cfg.ConnectionBurstPerIP,
		},
		APIRate:  apiRatePerSecond,
		APIBurst: apiBurst,
	}, clock, hub, reg, sources.directory, healthChecks)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)

		scheduler.Stop()
		hub.Stop()
		return err
	})

	if err := g.Wait(); err != nil {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}
	slog.Info("Shutdown complete")
}
