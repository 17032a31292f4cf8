package refresh

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"geolatency/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type funcFeed func(ctx context.Context) ([]domain.LatencySample, error)

func (f funcFeed) Fetch(ctx context.Context) ([]domain.LatencySample, error) { return f(ctx) }

type countingAggregator struct {
	calls atomic.Int32
}

func (a *countingAggregator) Aggregate(samples []domain.LatencySample) *domain.Snapshot {
	a.calls.Add(1)
	edges := make([]domain.Edge, len(samples))
	for i, s := range samples {
		edges[i] = domain.Edge{From: s.From, To: s.To, LatencyMs: s.LatencyMs}
	}
	return &domain.Snapshot{GeneratedAt: time.Now(), Edges: edges}
}

type recorder struct {
	mu      sync.Mutex
	results map[string]int
	active  atomic.Int32
}

func newRecorder() *recorder { return &recorder{results: map[string]int{}} }

func (r *recorder) RecordCycle(result string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[result]++
}
func (r *recorder) RecordSnapshot(*domain.Snapshot) {}
func (r *recorder) RecordSubscriptionStarted() { r.active.Add(1) }
func (r *recorder) RecordSubscriptionEnded() { r.active.Add(-1) }

func (r *recorder) count(result string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.results[result]
}

func okFeed() funcFeed {
	return func(ctx context.Context) ([]domain.LatencySample, error) {
		return []domain.LatencySample{{From: "X", To: "Y", LatencyMs: 200}}, nil
	}
}

func TestScheduler_FirstCycleImmediate(t *testing.T) {
	s := NewScheduler(okFeed(), &countingAggregator{}, Config{Interval: time.Hour}, nil, zaptest.NewLogger(t).Sugar())

	published := make(chan *domain.Snapshot, 1)
	sub := s.Subscribe(context.Background(), func(snap *domain.Snapshot) { published <- snap })
	defer sub.Cancel()

	select {
	case snap := <-published:
		require.Len(t, snap.Edges, 1)
		assert.Same(t, snap, sub.Latest())
	case <-time.After(time.Second):
		t.Fatal("first snapshot was not published immediately")
	}
	assert.NotEmpty(t, sub.ID())
}

func TestScheduler_PublishesPeriodically(t *testing.T) {
	agg := &countingAggregator{}
	s := NewScheduler(okFeed(), agg, Config{Interval: 10 * time.Millisecond}, nil, nil)

	var count atomic.Int32
	sub := s.Subscribe(context.Background(), func(*domain.Snapshot) { count.Add(1) })
	defer sub.Cancel()

	assert.Eventually(t, func() bool { return count.Load() >= 3 }, time.Second, 5*time.Millisecond)
}

func TestScheduler_FetchErrorKeepsPreviousSnapshot(t *testing.T) {
	var calls atomic.Int32
	feed := funcFeed(func(ctx context.Context) ([]domain.LatencySample, error) {
		if calls.Add(1) == 2 {
			return nil, errors.New("feed down")
		}
		return []domain.LatencySample{{From: "X", To: "Y", LatencyMs: int(calls.Load())}}, nil
	})
	rec := newRecorder()
	s := NewScheduler(feed, &countingAggregator{}, Config{Interval: 10 * time.Millisecond}, rec, nil)

	var mu sync.Mutex
	var latencies []int
	sub := s.Subscribe(context.Background(), func(snap *domain.Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		latencies = append(latencies, snap.Edges[0].LatencyMs)
	})

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(latencies) >= 2
	}, time.Second, 5*time.Millisecond)
	sub.Cancel()
	<-sub.Done()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 3}, latencies[:2])
	assert.Equal(t, 1, rec.count(ResultError))
	assert.GreaterOrEqual(t, rec.count(ResultSuccess), 2)
}

func TestScheduler_NoPublishAfterCancel(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	feed := funcFeed(func(ctx context.Context) ([]domain.LatencySample, error) {
		close(entered)
		<-release // ignores ctx on purpose
		return []domain.LatencySample{{From: "X", To: "Y", LatencyMs: 1}}, nil
	})
	s := NewScheduler(feed, &countingAggregator{}, Config{Interval: time.Hour}, nil, nil)

	var count atomic.Int32
	sub := s.Subscribe(context.Background(), func(*domain.Snapshot) { count.Add(1) })

	<-entered
	sub.Cancel()
	sub.Cancel()
	close(release)

	select {
	case <-sub.Done():
	case <-time.After(time.Second):
		t.Fatal("subscription did not stop")
	}
	assert.Equal(t, int32(0), count.Load())
	assert.Nil(t, sub.Latest())
	assert.ErrorIs(t, sub.Err(), domain.ErrSubscriptionClosed)
}

func TestScheduler_IndependentSubscriptions(t *testing.T) {
	rec := newRecorder()
	s := NewScheduler(okFeed(), &countingAggregator{}, Config{Interval: 10 * time.Millisecond}, rec, nil)

	var a, b atomic.Int32
	subA := s.Subscribe(context.Background(), func(*domain.Snapshot) { a.Add(1) })
	subB := s.Subscribe(context.Background(), func(*domain.Snapshot) { b.Add(1) })
	assert.Equal(t, int32(2), rec.active.Load())

	require.Eventually(t, func() bool { return a.Load() >= 1 && b.Load() >= 1 }, time.Second, 5*time.Millisecond)
	subA.Cancel()
	<-subA.Done()

	frozen := a.Load()
	before := b.Load()
	require.Eventually(t, func() bool { return b.Load() >= before+2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, frozen, a.Load())

	subB.Cancel()
	<-subB.Done()
	assert.Equal(t, int32(0), rec.active.Load())
}

func TestScheduler_ParentContextStopsLoop(t *testing.T) {
	s := NewScheduler(okFeed(), &countingAggregator{}, Config{Interval: 10 * time.Millisecond}, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	sub := s.Subscribe(ctx, nil)
	assert.NoError(t, sub.Err())
	cancel()

	select {
	case <-sub.Done():
	case <-time.After(time.Second):
		t.Fatal("subscription did not stop with its parent context")
	}
	assert.ErrorIs(t, sub.Err(), context.Canceled)
	assert.NotErrorIs(t, sub.Err(), domain.ErrSubscriptionClosed)

	// Cancelling after the parent ended keeps the parent's cause.
	sub.Cancel()
	assert.ErrorIs(t, sub.Err(), context.Canceled)
}

func TestScheduler_FetchTimeout(t *testing.T) {
	feed := funcFeed(func(ctx context.Context) ([]domain.LatencySample, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	rec := newRecorder()
	s := NewScheduler(feed, &countingAggregator{}, Config{Interval: time.Hour, FetchTimeout: 10 * time.Millisecond}, rec, nil)

	sub := s.Subscribe(context.Background(), nil)
	defer sub.Cancel()

	assert.Eventually(t, func() bool { return rec.count(ResultError) == 1 }, time.Second, 5*time.Millisecond)
	assert.Nil(t, sub.Latest())
}
