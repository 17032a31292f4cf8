package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"geolatency/internal/core/domain"
	"geolatency/pkg/validation"
)

// PushFeed serves the latest batch pushed by a probe. A batch stays current until it is
// replaced or grows older than maxAge.
type PushFeed struct {
	maxAge time.Duration
	now    func() time.Time

	mu       sync.RWMutex
	batch    []domain.LatencySample
	probeID  string
	received time.Time
}

func NewPushFeed(maxAge time.Duration) *PushFeed {
	return &PushFeed{
		maxAge: maxAge,
		now:    time.Now,
	}
}

func (f *PushFeed) Name() string { return "push" }

// Push validates and stores a batch. Endpoints are not checked against the registry;
// aggregation drops the unknown ones.
func (f *PushFeed) Push(probeID string, samples []domain.LatencySample) error {
	if err := validation.ValidateBatchSize(len(samples)); err != nil {
		return err
	}
	for i, s := range samples {
		if err := validation.ValidateNodeName(string(s.From)); err != nil {
			return fmt.Errorf("sample %d: from: %w", i, err)
		}
		if err := validation.ValidateNodeName(string(s.To)); err != nil {
			return fmt.Errorf("sample %d: to: %w", i, err)
		}
		if err := validation.ValidateLatency(s.LatencyMs); err != nil {
			return fmt.Errorf("sample %d: %w", i, err)
		}
	}

	batch := make([]domain.LatencySample, len(samples))
	copy(batch, samples)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.batch = batch
	f.probeID = probeID
	f.received = f.now()
	return nil
}

func (f *PushFeed) Fetch(ctx context.Context) ([]domain.LatencySample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.batch == nil {
		return nil, domain.ErrFeedEmpty
	}
	if f.maxAge > 0 && f.now().Sub(f.received) > f.maxAge {
		return nil, fmt.Errorf("%w: last batch from %s is %s old", domain.ErrFeedEmpty, f.probeID, f.now().Sub(f.received).Round(time.Second))
	}

	out := make([]domain.LatencySample, len(f.batch))
	copy(out, f.batch)
	return out, nil
}

// LastPush reports which probe pushed the current batch and when.
func (f *PushFeed) LastPush() (string, time.Time) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.probeID, f.received
}
