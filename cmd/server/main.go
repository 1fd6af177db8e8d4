package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"spendwise/internal/platform/config"
	"spendwise/internal/platform/httpserver"
	"spendwise/internal/platform/logger"
)

// main loads configuration, wires the bounded contexts and runs the HTTP server
// next to the outbox relay until SIGINT or SIGTERM.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logr := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	app, err := newApp(ctx, cfg, logr, reg)
	if err != nil {
		logr.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	srv := httpserver.New(cfg.Addr, app.router)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logr.Info("starting spendwise", "addr", cfg.Addr, "env", cfg.Environment, "storage", app.storage)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return app.relay.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logr.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	logr.Info("server stopped")
}
