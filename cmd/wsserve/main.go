// Command wsserve runs a WebSocket text message server.
//
// It is configured from WS_ prefixed environment variables, optionally
// loaded from a .env file in the working directory.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/plainws/websocket/metrics"
)

func main() {
	dotenvErr := godotenv.Load()

	cfg, err := parseConfig(nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := newLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	if dotenvErr != nil {
		logger.Debug("no .env file loaded", slog.Any("error", dotenvErr))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = run(ctx, cfg, logger)
	if err != nil {
		logger.Error("wsserve terminated", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("wsserve stopped")
}

func run(ctx context.Context, cfg config, logger *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s := newServer(cfg, logger, metrics.New("wsserve", reg))
	hs := &http.Server{
		Addr:              cfg.Address,
		Handler:           newRouter(cfg, s, reg, logger),
		ReadHeaderTimeout: time.Second * 10,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening",
			slog.String("address", cfg.Address),
			slog.String("path", cfg.Path))
		err := hs.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down", slog.Duration("timeout", cfg.ShutdownTimeout))

		ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		// http.Server forgets hijacked connections, so the WebSocket
		// server is shut down separately.
		err := hs.Shutdown(ctx)
		if err2 := s.Shutdown(ctx); err == nil {
			err = err2
		}
		return err
	})
	return g.Wait()
}
