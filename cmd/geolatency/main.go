package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"geolatency/pkg/config"
	"geolatency/pkg/logger"
	"geolatency/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	configPath := os.Getenv("GEOLATENCY_CONFIG")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	zapLogger, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer zapLogger.Sync()

	log := zapLogger.Sugar()

	tracingCfg := tracing.DefaultConfig()
	tracingCfg.Enabled = cfg.Tracing.Enabled
	tracingCfg.JaegerURL = cfg.Tracing.JaegerURL
	tracingCfg.Environment = cfg.Tracing.Environment
	tracingCfg.SampleRate = cfg.Tracing.SampleRate
	tp, err := tracing.Init(tracingCfg)
	if err != nil {
		log.Fatalw("failed to initialize tracing", "error", err)
	}

	metricsRegistry := prometheus.NewRegistry()
	metricsRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	a, err := newApp(cfg, zapLogger, metricsRegistry)
	if err != nil {
		log.Fatalw("failed to initialize service", "error", err)
	}

	// Cancelled on shutdown so open streams end with their subscriptions.
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()

	publisher := a.startPublisher(baseCtx)

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      a.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		BaseContext:  func(net.Listener) context.Context { return baseCtx },
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infow("starting GeoLatency server",
			"address", cfg.Server.Address,
			"feed_source", cfg.Feed.Source,
			"refresh_interval", cfg.Refresh.Interval,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Errorw("server failed", "error", err)
	case sig := <-sigChan:
		log.Infow("received shutdown signal", "signal", sig)
	}

	log.Info("shutting down GeoLatency server")

	publisher.Cancel()
	cancelBase()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("error during server shutdown", "error", err)
		if closeErr := srv.Close(); closeErr != nil {
			log.Errorw("error force closing server", "error", closeErr)
		}
	} else {
		log.Info("server shutdown gracefully")
	}

	select {
	case <-publisher.Done():
	case <-shutdownCtx.Done():
		log.Warn("publisher did not stop before shutdown timeout")
	}

	a.close()

	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Errorw("error shutting down tracer provider", "error", err)
	}

	log.Info("GeoLatency server stopped")
}
