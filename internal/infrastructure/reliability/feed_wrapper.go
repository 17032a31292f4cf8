package reliability

import (
	"context"
	"errors"
	"fmt"

	"geolatency/internal/core/domain"
	"geolatency/internal/core/ports"
	"geolatency/pkg/circuitbreaker"
	"geolatency/pkg/retry"
	"geolatency/pkg/tracing"

	"go.uber.org/zap"
)

// NamedFeed is a feed that can name its source for logs and spans.
type NamedFeed interface {
	ports.LatencyFeed
	Name() string
}

// FeedWrapper wraps a latency feed with retry logic and a circuit breaker. While the
// breaker is open Fetch fails fast with domain.ErrFeedUnavailable.
type FeedWrapper struct {
	feed   NamedFeed
	logger *zap.SugaredLogger

	retryConfig    retry.Config
	circuitBreaker *circuitbreaker.CircuitBreaker
}

func NewFeedWrapper(
	feed NamedFeed,
	retryConfig retry.Config,
	cbConfig circuitbreaker.Config,
	logger *zap.SugaredLogger,
) *FeedWrapper {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	retryConfig.NonRetryable = append(retryConfig.NonRetryable,
		domain.ErrFeedEmpty,
		circuitbreaker.ErrOpen,
		context.Canceled,
		context.DeadlineExceeded,
	)

	// An empty feed is idle, not broken; it must not keep a fresh batch out.
	cbConfig.Neutral = append(cbConfig.Neutral, domain.ErrFeedEmpty)

	wrapper := &FeedWrapper{
		feed:           feed,
		logger:         logger,
		retryConfig:    retryConfig,
		circuitBreaker: circuitbreaker.New(cbConfig),
	}

	wrapper.circuitBreaker.OnStateChange(func(from, to circuitbreaker.State) {
		logger.Infow("feed circuit breaker state changed",
			"source", feed.Name(),
			"from", from.String(),
			"to", to.String(),
		)
	})

	return wrapper
}

func (w *FeedWrapper) Name() string { return w.feed.Name() }

// BreakerState exposes the breaker for health reporting.
func (w *FeedWrapper) BreakerState() circuitbreaker.State {
	return w.circuitBreaker.State()
}

func (w *FeedWrapper) Fetch(ctx context.Context) ([]domain.LatencySample, error) {
	ctx, span := tracing.TraceFeedFetch(ctx, w.feed.Name())
	defer span.End()

	samples, err := retry.Do(ctx, w.retryConfig, func(ctx context.Context) ([]domain.LatencySample, error) {
		return circuitbreaker.Execute(ctx, w.circuitBreaker, w.feed.Fetch)
	})
	if err != nil {
		tracing.RecordError(ctx, err)
		if errors.Is(err, circuitbreaker.ErrOpen) {
			return nil, fmt.Errorf("%w: %s feed circuit open", domain.ErrFeedUnavailable, w.feed.Name())
		}
		return nil, err
	}

	tracing.AddSpanAttributes(ctx, tracing.SampleCountKey.Int(len(samples)))
	return samples, nil
}
