package monitoring

import (
	"context"
	"errors"
	"fmt"
	"time"

	"geolatency/internal/core/domain"
	"geolatency/internal/core/ports"
	"geolatency/pkg/circuitbreaker"
	"geolatency/pkg/utils"
)

// Pinger is satisfied by the repository factory and by redis clients wrapped in a func.
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

// AddRedisCheck adds a Redis health check
func (h *HealthChecker) AddRedisCheck(p Pinger, timeout time.Duration) {
	h.AddCheck("redis", p.HealthCheck, timeout)
}

// AddSnapshotCheck fails until a snapshot has been stored and whenever the stored one is
// older than staleAfter.
func (h *HealthChecker) AddSnapshotCheck(repo ports.SnapshotRepository, staleAfter, timeout time.Duration) {
	h.AddCheck("snapshot", func(ctx context.Context) error {
		snapshot, err := repo.Latest(ctx)
		if err != nil {
			if errors.Is(err, domain.ErrSnapshotNotReady) {
				return fmt.Errorf("no snapshot published yet")
			}
			return err
		}
		if utils.IsStale(snapshot.GeneratedAt, h.now(), staleAfter) {
			return fmt.Errorf("snapshot is stale (generated %s ago)", utils.FormatAge(h.now().Sub(snapshot.GeneratedAt)))
		}
		return nil
	}, timeout)
}

// AddFeedBreakerCheck fails while the feed circuit breaker is open.
func (h *HealthChecker) AddFeedBreakerCheck(state func() circuitbreaker.State) {
	h.AddCheck("feed", func(ctx context.Context) error {
		if s := state(); s == circuitbreaker.StateOpen {
			return fmt.Errorf("feed circuit breaker is %s", s)
		}
		return nil
	}, time.Second)
}
