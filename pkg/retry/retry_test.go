package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(attempts int) Config {
	return Config{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2,
	}
}

func TestDo_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), fastConfig(3), func(ctx context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("transient")
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	transient := errors.New("transient")
	calls := 0
	_, err := Do(context.Background(), fastConfig(4), func(ctx context.Context) (string, error) {
		calls++
		return "", transient
	})

	assert.ErrorIs(t, err, transient)
	assert.Contains(t, err.Error(), "max attempts (4)")
	assert.Equal(t, 4, calls)
}

func TestDo_NonRetryable(t *testing.T) {
	fatal := errors.New("fatal")
	cfg := fastConfig(5)
	cfg.NonRetryable = []error{fatal}

	calls := 0
	_, err := Do(context.Background(), cfg, func(ctx context.Context) (int, error) {
		calls++
		return 0, errors.Join(errors.New("wrapped"), fatal)
	})

	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, calls)
}

func TestDo_Permanent(t *testing.T) {
	bad := errors.New("bad payload")
	calls := 0
	_, err := Do(context.Background(), fastConfig(5), func(ctx context.Context) (int, error) {
		calls++
		return 0, Permanent(bad)
	})

	assert.Same(t, bad, err)
	assert.Equal(t, 1, calls)
	assert.Nil(t, Permanent(nil))
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := fastConfig(10)
	cfg.InitialDelay = time.Hour
	cfg.MaxDelay = time.Hour

	calls := 0
	done := make(chan error, 1)
	go func() {
		_, err := Do(ctx, cfg, func(ctx context.Context) (int, error) {
			calls++
			return 0, errors.New("down")
		})
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.Error(t, err)
		assert.Equal(t, 1, calls)
	case <-time.After(time.Second):
		t.Fatal("Do did not return after cancellation")
	}
}

func TestBackoff(t *testing.T) {
	cfg := Config{InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second, Multiplier: 2}

	assert.Equal(t, 100*time.Millisecond, Backoff(cfg, 0))
	assert.Equal(t, 200*time.Millisecond, Backoff(cfg, 1))
	assert.Equal(t, 800*time.Millisecond, Backoff(cfg, 3))
	assert.Equal(t, time.Second, Backoff(cfg, 10))

	cfg.Jitter = 0.25
	for i := 0; i < 50; i++ {
		d := Backoff(cfg, 1)
		assert.GreaterOrEqual(t, d, 150*time.Millisecond)
		assert.LessOrEqual(t, d, 250*time.Millisecond)
	}
}
