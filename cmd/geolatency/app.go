package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"geolatency/internal/core/domain"
	"geolatency/internal/core/ports"
	"geolatency/internal/core/services"
	httphandlers "geolatency/internal/handlers/http"
	"geolatency/internal/infrastructure/distributed"
	"geolatency/internal/infrastructure/feed"
	"geolatency/internal/infrastructure/middleware"
	"geolatency/internal/infrastructure/monitoring"
	"geolatency/internal/infrastructure/refresh"
	"geolatency/internal/infrastructure/registry"
	"geolatency/internal/infrastructure/reliability"
	"geolatency/internal/infrastructure/repositories"
	"geolatency/pkg/circuitbreaker"
	"geolatency/pkg/config"
	dlock "geolatency/pkg/distributed"
	"geolatency/pkg/logger"
	"geolatency/pkg/retry"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// publisherLeaseKey elects the one instance that writes shared snapshots to Redis.
const publisherLeaseKey = "geolatency:publisher"

// app holds the wired service.
type app struct {
	cfg       *config.Config
	log       *zap.SugaredLogger
	startTime time.Time

	repoFactory *repositories.RepositoryFactory
	snapshots   ports.SnapshotRepository
	feed        *reliability.FeedWrapper
	scheduler   *refresh.Scheduler
	eventBus    *distributed.EventBus
	lease       *dlock.Lease
	collector   *monitoring.PrometheusCollector
	health      *monitoring.HealthChecker
	latency     *httphandlers.LatencyHandler
	stream      *httphandlers.StreamHandler
	auth        services.ProbeAuthService

	metricsRegistry *prometheus.Registry
	router          *gin.Engine
}

func newApp(cfg *config.Config, zapLogger *zap.Logger, metricsRegistry *prometheus.Registry) (*app, error) {
	log := zapLogger.Sugar()

	reg, err := registry.LoadFile(cfg.Registry.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to load node registry: %w", err)
	}
	log.Infow("node registry loaded", "nodes", reg.Len(), "path", cfg.Registry.Path)

	a := &app{
		cfg:             cfg,
		log:             log,
		startTime:       time.Now(),
		metricsRegistry: metricsRegistry,
		collector:       monitoring.NewPrometheusCollector(metricsRegistry),
		health:          monitoring.NewHealthChecker(),
		auth:            services.NewProbeAuthService(cfg.Auth.JWTSecret, cfg.Auth.ProbeTokenTTL),
	}

	a.repoFactory = repositories.NewRepositoryFactory(cfg, log)
	a.snapshots = a.repoFactory.CreateSnapshotRepository()
	if client := a.repoFactory.RedisClient(); client != nil {
		a.eventBus = distributed.NewEventBus(client, cfg.Redis.EventChannel, log)
		a.lease = dlock.NewLease(client, publisherLeaseKey, 3*refreshInterval(cfg))
		a.health.AddRedisCheck(a.repoFactory, 2*time.Second)
	}

	simulator := services.NewSimulatorService(nil)
	source, pusher, err := buildFeed(cfg, reg, simulator)
	if err != nil {
		a.repoFactory.Close()
		return nil, err
	}

	retryCfg := retry.DefaultConfig()
	retryCfg.MaxAttempts = cfg.Feed.Retry.MaxAttempts
	retryCfg.InitialDelay = cfg.Feed.Retry.InitialDelay
	retryCfg.MaxDelay = cfg.Feed.Retry.MaxDelay

	cbCfg := circuitbreaker.DefaultConfig()
	cbCfg.FailureThreshold = cfg.Feed.Breaker.MaxFailures
	cbCfg.Timeout = cfg.Feed.Breaker.ResetTimeout

	a.feed = reliability.NewFeedWrapper(source, retryCfg, cbCfg, log)
	a.health.AddSnapshotCheck(a.snapshots, cfg.Monitoring.StaleAfter, 2*time.Second)
	a.health.AddFeedBreakerCheck(a.feed.BreakerState)

	aggregator := services.NewAggregationService(reg, services.AggregationConfig{
		HeatRadiusKm: cfg.Layers.HeatRadiusKm,
		HeatSegments: cfg.Layers.HeatSegments,
	}, log)
	a.scheduler = refresh.NewScheduler(a.feed, aggregator, refresh.Config{
		Interval:     cfg.Refresh.Interval,
		FetchTimeout: cfg.Refresh.FetchTimeout,
	}, a.collector, log)

	layers := services.NewLayerService(reg, cfg.Layers.RegionRadiusKm, cfg.Layers.RegionSegments)
	history := services.NewHistoryService(simulator, cfg.History.MaxPoints, log)

	a.latency = httphandlers.NewLatencyHandler(reg, a.feed, a.snapshots, layers, history, cfg.Feed.Pairs, log).
		WithRecorder(a.collector)
	if pusher != nil {
		if a.eventBus != nil {
			a.latency.WithPush(pusher, a.eventBus)
		} else {
			a.latency.WithPush(pusher, nil)
		}
	}

	a.stream = httphandlers.NewStreamHandler(a.scheduler, layers, httphandlers.StreamConfig{
		PingInterval:   cfg.Stream.PingInterval,
		PongTimeout:    cfg.Stream.PongTimeout,
		WriteTimeout:   cfg.Stream.WriteTimeout,
		AllowedOrigins: cfg.Auth.AllowedOrigins,
	}, log)

	a.router = a.setupRouter(zapLogger)
	return a, nil
}

// buildFeed creates the configured feed. pusher is non-nil only for the push source.
func buildFeed(cfg *config.Config, reg ports.NodeRegistry, simulator ports.Simulator) (reliability.NamedFeed, httphandlers.BatchPusher, error) {
	switch cfg.Feed.Source {
	case config.FeedSourceHTTP:
		f, err := feed.NewHTTPFeed(cfg.Feed.URL, cfg.Feed.Timeout)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create http feed: %w", err)
		}
		return f, nil, nil
	case config.FeedSourcePush:
		f := feed.NewPushFeed(cfg.Monitoring.StaleAfter)
		return f, f, nil
	default:
		f, err := feed.NewSimulatedFeed(reg, simulator, cfg.Feed.Pairs)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create simulated feed: %w", err)
		}
		return f, nil, nil
	}
}

func (a *app) setupRouter(zapLogger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(
		middleware.RecoveryMiddleware(a.log),
		middleware.RequestIDMiddleware(),
		middleware.TracingMiddleware(),
		middleware.AccessLogMiddleware(logger.NewContextLogger(zapLogger), a.collector),
		middleware.ErrorHandlerMiddleware(a.log),
		middleware.NewHTTPRateLimitMiddleware(a.cfg),
	)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"uptime":    time.Since(a.startTime).String(),
		})
	})

	router.GET("/ready", func(c *gin.Context) {
		status := a.health.CheckAll(c.Request.Context())
		code := http.StatusOK
		if status.Status != monitoring.StatusHealthy {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, status)
	})

	if a.cfg.Monitoring.PrometheusEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(a.metricsRegistry, promhttp.HandlerOpts{})))
	}

	a.latency.SetupRoutes(router, middleware.ProbeAuthMiddleware(a.auth))
	a.stream.SetupRoutes(router, middleware.NewStreamRateLimitMiddleware(a.cfg))
	return router
}

func refreshInterval(cfg *config.Config) time.Duration {
	if cfg.Refresh.Interval > 0 {
		return cfg.Refresh.Interval
	}
	return refresh.DefaultInterval
}

// startPublisher runs the subscription that keeps the snapshot repository current and
// announces every snapshot on the event bus. With Redis, only the lease holder writes.
func (a *app) startPublisher(ctx context.Context) *refresh.Subscription {
	leader := true
	return a.scheduler.Subscribe(ctx, func(snapshot *domain.Snapshot) {
		saveCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()

		if a.lease != nil {
			held, err := a.lease.Hold(saveCtx)
			if err != nil {
				a.log.Warnw("failed to renew publisher lease", "error", err)
				return
			}
			if held != leader {
				leader = held
				a.log.Infow("publisher leadership changed", "leader", held, "lease", a.lease.Key())
			}
			if !held {
				return
			}
		}

		if err := a.snapshots.Save(saveCtx, snapshot); err != nil {
			a.log.Warnw("failed to save snapshot", "error", err)
			return
		}
		if a.eventBus != nil {
			if err := a.eventBus.PublishSnapshot(saveCtx, snapshot); err != nil {
				a.log.Warnw("failed to publish snapshot event", "error", err)
			}
		}
	})
}

func (a *app) close() {
	a.latency.Close()
	if a.lease != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := a.lease.Release(ctx); err != nil {
			a.log.Warnw("error releasing publisher lease", "error", err)
		}
		cancel()
	}
	if a.eventBus != nil {
		if err := a.eventBus.Close(); err != nil {
			a.log.Warnw("error closing event bus", "error", err)
		}
	}
	if err := a.repoFactory.Close(); err != nil {
		a.log.Errorw("error closing repository factory", "error", err)
	}
}
