package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned without calling the protected function while the breaker is open.
var ErrOpen = errors.New("circuit breaker is open")

// State represents the circuit breaker state
type State int

const (
	StateClosed   State = iota // calls pass through
	StateOpen                  // calls fail fast
	StateHalfOpen              // a limited number of probe calls pass
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Config holds circuit breaker configuration
type Config struct {
	FailureThreshold    int           // consecutive failures that open the circuit
	SuccessThreshold    int           // half-open successes that close it again
	Timeout             time.Duration // time spent open before probing
	MaxRequestsHalfOpen int           // concurrent probe calls allowed while half-open

	// Neutral errors neither count as failures nor as successes. context.Canceled is
	// always neutral.
	Neutral []error
}

func DefaultConfig() Config {
	return Config{
		FailureThreshold:    5,
		SuccessThreshold:    1,
		Timeout:             30 * time.Second,
		MaxRequestsHalfOpen: 1,
	}
}

type CircuitBreaker struct {
	config Config
	now    func() time.Time

	mu               sync.Mutex
	state            State
	failures         int
	successes        int
	halfOpenInFlight int
	openedAt         time.Time

	onStateChange func(from, to State)
}

func New(config Config) *CircuitBreaker {
	if config.FailureThreshold < 1 {
		config.FailureThreshold = 1
	}
	if config.SuccessThreshold < 1 {
		config.SuccessThreshold = 1
	}
	if config.MaxRequestsHalfOpen < 1 {
		config.MaxRequestsHalfOpen = 1
	}
	return &CircuitBreaker{
		config: config,
		now:    time.Now,
		state:  StateClosed,
	}
}

// WithClock replaces the time source.
func (cb *CircuitBreaker) WithClock(now func() time.Time) *CircuitBreaker {
	cb.now = now
	return cb
}

// OnStateChange registers a callback run synchronously after each transition.
func (cb *CircuitBreaker) OnStateChange(fn func(from, to State)) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.onStateChange = fn
}

// Execute runs fn through the breaker. Cancellation and Config.Neutral errors do not count
// as failures.
func Execute[T any](ctx context.Context, cb *CircuitBreaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if err := cb.acquire(); err != nil {
		return zero, err
	}

	result, err := fn(ctx)
	cb.release(err)
	if err != nil {
		return zero, err
	}
	return result, nil
}

func (cb *CircuitBreaker) acquire() error {
	cb.mu.Lock()
	var transition func()
	defer func() {
		cb.mu.Unlock()
		if transition != nil {
			transition()
		}
	}()

	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.openedAt) < cb.config.Timeout {
			return ErrOpen
		}
		transition = cb.transitionLocked(StateHalfOpen)
		cb.halfOpenInFlight++
		return nil
	case StateHalfOpen:
		if cb.halfOpenInFlight >= cb.config.MaxRequestsHalfOpen {
			return ErrOpen
		}
		cb.halfOpenInFlight++
		return nil
	default:
		return nil
	}
}

func (cb *CircuitBreaker) release(err error) {
	cb.mu.Lock()
	var transition func()
	defer func() {
		cb.mu.Unlock()
		if transition != nil {
			transition()
		}
	}()

	if cb.state == StateHalfOpen && cb.halfOpenInFlight > 0 {
		cb.halfOpenInFlight--
	}

	if err != nil && cb.isNeutral(err) {
		return
	}

	if err != nil {
		cb.successes = 0
		cb.failures++
		if cb.state == StateHalfOpen || cb.failures >= cb.config.FailureThreshold {
			transition = cb.transitionLocked(StateOpen)
		}
		return
	}

	cb.failures = 0
	if err == nil && cb.state == StateHalfOpen {
		cb.successes++
		if cb.successes >= cb.config.SuccessThreshold {
			transition = cb.transitionLocked(StateClosed)
		}
	}
}

func (cb *CircuitBreaker) isNeutral(err error) bool {
	if errors.Is(err, context.Canceled) {
		return true
	}
	for _, target := range cb.config.Neutral {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// transitionLocked changes state and returns the callback to run once the lock is released.
func (cb *CircuitBreaker) transitionLocked(to State) func() {
	from := cb.state
	if from == to {
		return nil
	}

	cb.state = to
	cb.failures = 0
	cb.successes = 0
	cb.halfOpenInFlight = 0
	if to == StateOpen {
		cb.openedAt = cb.now()
	}

	if fn := cb.onStateChange; fn != nil {
		return func() { fn(from, to) }
	}
	return nil
}

func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
