// Package main is the entry point for kairoid, the Kairoi scheduler
// daemon: Database Engine, Processor, Runner Pool, and Controller Front
// wired together and run to completion or graceful shutdown.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"kairoi/internal/config"
	"kairoi/internal/controller"
	"kairoi/internal/engine"
	"kairoi/internal/logger"
	"kairoi/internal/observability"
	"kairoi/internal/processor"
	"kairoi/internal/runner"
)

// Exit codes per §6.4.
const (
	exitOK             = 0
	exitConfigInvalid  = 1
	exitJournalCorrupt = 2
	exitBindFailure    = 4
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "kairoi.toml", "Path to the TOML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "kairoid: configuration error: %v\n", err)
		return exitConfigInvalid
	}

	log := logger.New(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownMetrics, shutdownTracer := initObservability(ctx, cfg, log)
	defer shutdownMetrics(context.Background())
	defer shutdownTracer(context.Background())

	metrics, err := observability.NewEngineMetrics()
	if err != nil {
		log.Error("failed to initialise metrics instruments", "error", err)
	}

	eng := engine.New(engine.Config{
		Framerate:      cfg.Database.Framerate,
		Persistence:    cfg.Database.Persistence,
		FsyncOnPersist: cfg.Database.FsyncOnPersist,
		JournalPath:    cfg.Database.JournalPath,
		Logger:         log,
		Metrics:        engineMetricsOrNoop(metrics),
	})

	if err := eng.Recover(); err != nil {
		log.Error("failed to recover from journal", "error", err)
		return exitJournalCorrupt
	}

	proc := processor.New(processor.Config{Logger: log}, eng, eng.Pairs())
	pool := runner.New(runner.Config{
		ShellEnabled: cfg.Runner.Shell.Enabled,
		AmqpEnabled:  cfg.Runner.Amqp.Enabled,
		Logger:       log,
	}, eng, proc.Execute())

	dispatch := controller.NewDispatcher(eng)
	srv := controller.New(controller.Config{Addr: cfg.Controller.Listen, Logger: log}, dispatch)

	componentErrs := make(chan error, 3)
	go func() { componentErrs <- eng.Run(ctx) }()
	go func() { componentErrs <- proc.Run(ctx) }()
	go func() { componentErrs <- pool.Run(ctx) }()

	serverErr := make(chan error, 1)
	go func() { serverErr <- srv.Run(ctx) }()

	select {
	case err := <-serverErr:
		if err != nil {
			log.Error("controller bind failure", "error", err)
			stop()
			drain(componentErrs, 3)

			return exitBindFailure
		}
	case <-ctx.Done():
		<-serverErr
	}

	if err := drain(componentErrs, 3); err != nil {
		log.Error("component stopped with an error", "error", err)
	}

	log.Info("kairoid shut down cleanly")

	return exitOK
}

// drain waits for exactly n sends on errs, returning the first non-nil
// error seen (if any).
func drain(errs chan error, n int) error {
	var first error
	for i := 0; i < n; i++ {
		if err := <-errs; err != nil && first == nil {
			first = err
		}
	}

	return first
}

func engineMetricsOrNoop(m *observability.EngineMetrics) engine.Metrics {
	if m == nil {
		return engine.Noop{}
	}

	return m
}

// initObservability wires the teacher's Prometheus and OTLP exporters in
// only when the corresponding listen address/endpoint is configured (§1.2:
// empty disables).
func initObservability(ctx context.Context, cfg *config.Config, log *slog.Logger) (shutdownMetrics, shutdownTracer func(context.Context) error) {
	shutdownMetrics = func(context.Context) error { return nil }
	shutdownTracer = func(context.Context) error { return nil }

	if cfg.Observability.MetricsListen != "" {
		handler, shutdown, err := observability.InitMetrics()
		if err != nil {
			log.Error("failed to initialise metrics exporter", "error", err)
		} else {
			shutdownMetrics = shutdown

			mux := http.NewServeMux()
			mux.Handle("/metrics", handler)
			metricsSrv := &http.Server{Addr: cfg.Observability.MetricsListen, Handler: mux}

			go func() {
				<-ctx.Done()
				metricsSrv.Close()
			}()
			go func() {
				if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Error("metrics server stopped", "error", err)
				}
			}()
		}
	}

	if cfg.Observability.OtlpEndpoint != "" {
		shutdown, err := observability.Init(ctx, "kairoid", cfg.Observability.OtlpEndpoint)
		if err != nil {
			log.Error("failed to initialise tracing", "error", err)
		} else {
			shutdownTracer = shutdown
		}
	}

	return shutdownMetrics, shutdownTracer
}
