package ports

import (
	"context"
	"time"

	"geolatency/internal/core/domain"
)

// LatencyFeed yields one batch of samples per refresh cycle.
type LatencyFeed interface {
	Fetch(ctx context.Context) ([]domain.LatencySample, error)
}

type Simulator interface {
	SampleLatency(a, b domain.NodeName) int
	SimulateHistory(a, b domain.NodeName, points int, interval time.Duration) []domain.HistoryPoint
}

type Aggregator interface {
	Aggregate(samples []domain.LatencySample) *domain.Snapshot
}

type HistoryService interface {
	Query(ctx context.Context, pair, rng string) *domain.History
}

// MetricsRecorder receives refresh-cycle observations. Implementations must be safe for
// concurrent use by several subscriptions.
type MetricsRecorder interface {
	RecordCycle(result string, duration time.Duration)
	RecordSnapshot(snapshot *domain.Snapshot)
	RecordSubscriptionStarted()
	RecordSubscriptionEnded()
}
