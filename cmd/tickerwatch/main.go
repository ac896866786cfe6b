// Command tickerwatch follows one symbol on a tickerpulse server and prints
// quotes and scored headlines as they arrive.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/tickerpulse/internal/client"
	"github.com/pscheid92/tickerpulse/internal/domain"
	"github.com/pscheid92/tickerpulse/internal/platform/logging"
)

func main() {
	url := flag.String("url", "ws://localhost:8080/ws", "feed endpoint")
	rawSymbol := flag.String("symbol", string(domain.DefaultSymbol), "ticker to follow")
	retries := flag.Int("retries", 10, "consecutive failed connects before giving up")
	maxDelay := flag.Duration("max-delay", 30*time.Second, "backoff cap between connects")
	logLevel := flag.String("log-level", "warn", "log level")
	flag.Parse()

	logging.InitLogger(*logLevel, "text")

	symbol, err := domain.ParseSymbol(*rawSymbol)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid symbol %q\n", *rawSymbol)
		os.Exit(2)
	}

	cfg := client.DefaultConfig(*url, symbol)
	cfg.MaxRetries = *retries
	cfg.MaxDelay = *maxDelay

	p := &printer{out: os.Stdout, clock: clockwork.NewRealClock()}
	c := client.New(cfg, websocket.DefaultDialer, clockwork.NewRealClock(), client.Handlers{
		OnMessage: p.print,
		OnState: func(_, to client.State) {
			fmt.Fprintf(os.Stderr, "[%s] %s\n", to, *url)
		},
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = c.Run(ctx)
	stop()
	if err != nil {
		slog.Error("Feed stopped", "error", err)
		os.Exit(1)
	}
}
