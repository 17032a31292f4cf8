package refresh

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"geolatency/internal/core/domain"
	"geolatency/internal/core/ports"
	"geolatency/pkg/logger"
	"geolatency/pkg/tracing"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultInterval = 5 * time.Second

	ResultSuccess  = "success"
	ResultError    = "error"
	ResultCanceled = "canceled"
)

// Config contains scheduler configuration
type Config struct {
	Interval time.Duration
	// FetchTimeout bounds a single feed call. Zero means the interval.
	FetchTimeout time.Duration
}

// Scheduler runs fetch-aggregate-publish cycles for any number of independent
// subscriptions.
type Scheduler struct {
	feed       ports.LatencyFeed
	aggregator ports.Aggregator
	config     Config
	recorder   ports.MetricsRecorder
	logger     *zap.SugaredLogger
}

func NewScheduler(
	feed ports.LatencyFeed,
	aggregator ports.Aggregator,
	cfg Config,
	recorder ports.MetricsRecorder,
	logger *zap.SugaredLogger,
) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = cfg.Interval
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Scheduler{
		feed:       feed,
		aggregator: aggregator,
		config:     cfg,
		recorder:   recorder,
		logger:     logger,
	}
}

// Subscription is the handle of one running refresh loop.
type Subscription struct {
	id      string
	publish func(*domain.Snapshot)
	ctx     context.Context
	cancel  context.CancelCauseFunc
	done    chan struct{}

	// mu serializes publishing against Cancel.
	mu         sync.Mutex
	closed     bool
	cancelOnce sync.Once

	latest atomic.Pointer[domain.Snapshot]
}

// Subscribe starts a refresh loop delivering every new snapshot to publish. The first
// cycle runs immediately, later ones every Interval. Cycles of one subscription never
// overlap. The loop ends when ctx is done or the subscription is cancelled.
//
// publish runs on the loop goroutine and must not call Cancel on its own subscription.
func (s *Scheduler) Subscribe(ctx context.Context, publish func(*domain.Snapshot)) *Subscription {
	loopCtx, cancel := context.WithCancelCause(ctx)
	sub := &Subscription{
		id:      uuid.NewString(),
		publish: publish,
		ctx:     loopCtx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	loopCtx = logger.WithSubscriptionID(loopCtx, sub.id)

	s.recorder.RecordSubscriptionStarted()
	s.logger.Infow("refresh subscription started",
		"subscription_id", sub.id,
		"interval", s.config.Interval,
	)

	go s.run(loopCtx, sub)
	return sub
}

func (s *Scheduler) run(ctx context.Context, sub *Subscription) {
	defer func() {
		s.recorder.RecordSubscriptionEnded()
		s.logger.Infow("refresh subscription stopped", "subscription_id", sub.id)
		close(sub.done)
	}()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	s.runCycle(ctx, sub)

	for {
		select {
		case <-ticker.C:
			s.runCycle(ctx, sub)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) runCycle(ctx context.Context, sub *Subscription) {
	if ctx.Err() != nil {
		return
	}

	start := time.Now()
	ctx, span := tracing.TraceRefreshCycle(ctx, sub.id)
	defer span.End()

	fetchCtx, cancel := context.WithTimeout(ctx, s.config.FetchTimeout)
	samples, err := s.feed.Fetch(fetchCtx)
	cancel()

	if err != nil {
		if ctx.Err() != nil {
			s.recorder.RecordCycle(ResultCanceled, time.Since(start))
			return
		}
		tracing.RecordError(ctx, err)
		s.recorder.RecordCycle(ResultError, time.Since(start))
		s.logger.Warnw("refresh cycle skipped",
			"subscription_id", sub.id,
			"error", err,
		)
		return
	}

	snapshot := s.aggregator.Aggregate(samples)
	tracing.AddSpanAttributes(ctx,
		tracing.SampleCountKey.Int(len(samples)),
		tracing.DroppedKey.Int(snapshot.Dropped),
	)

	if !sub.deliver(ctx, snapshot) {
		s.recorder.RecordCycle(ResultCanceled, time.Since(start))
		return
	}

	s.recorder.RecordCycle(ResultSuccess, time.Since(start))
	s.recorder.RecordSnapshot(snapshot)
	s.logger.Debugw("snapshot published",
		"subscription_id", sub.id,
		"edges", len(snapshot.Edges),
		"dropped", snapshot.Dropped,
		"duration", time.Since(start),
	)
}

// deliver publishes unless the subscription has been cancelled in the meantime.
func (sub *Subscription) deliver(ctx context.Context, snapshot *domain.Snapshot) bool {
	sub.mu.Lock()
	defer sub.mu.Unlock()

	if sub.closed || ctx.Err() != nil {
		return false
	}
	sub.latest.Store(snapshot)
	if sub.publish != nil {
		sub.publish(snapshot)
	}
	return true
}

func (sub *Subscription) ID() string { return sub.id }

// Cancel stops the subscription. Once it returns, publish is never called again. It is
// safe to call more than once and from any goroutine except the publish callback.
func (sub *Subscription) Cancel() {
	sub.cancelOnce.Do(func() {
		sub.mu.Lock()
		sub.closed = true
		sub.mu.Unlock()
		sub.cancel(domain.ErrSubscriptionClosed)
	})
}

// Err is nil while the loop may still publish. After Cancel it is
// domain.ErrSubscriptionClosed; if the parent context ended first it is that context's cause.
func (sub *Subscription) Err() error {
	if sub.ctx.Err() == nil {
		return nil
	}
	return context.Cause(sub.ctx)
}

// Done is closed when the loop goroutine has exited.
func (sub *Subscription) Done() <-chan struct{} { return sub.done }

// Latest returns the last snapshot published, or nil before the first one.
func (sub *Subscription) Latest() *domain.Snapshot { return sub.latest.Load() }

type nopRecorder struct{}

func (nopRecorder) RecordCycle(string, time.Duration) {}
func (nopRecorder) RecordSnapshot(*domain.Snapshot) {}
func (nopRecorder) RecordSubscriptionStarted() {}
func (nopRecorder) RecordSubscriptionEnded() {}
