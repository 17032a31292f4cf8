package services

import (
	"math"
	"math/rand"
	"time"
	"unicode/utf16"

	"geolatency/internal/core/domain"
)

const (
	MinSampleLatencyMs = 5
	MaxSampleLatencyMs = 400
	MinHistoryLatency  = 1

	DefaultHistoryPoints   = 60
	MaxHistoryPoints       = 1000
	DefaultHistoryInterval = time.Minute

	pairBaseModulo   = 120
	pairBaseOffset   = 10
	sampleJitterSpan = 80
	waveAmplitude    = 30
	wavePeriod       = 7
	noiseSpan        = 40
)

// RandSource supplies uniform values in [0, 1).
type RandSource interface {
	Float64() float64
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }

// SimulatorService synthesizes latency for node pairs. The per-pair base is a pure
// function of the names; jitter comes from the injected random source.
type SimulatorService struct {
	rand RandSource
	now  func() time.Time
}

// NewSimulatorService creates a simulator. A nil source falls back to math/rand.
func NewSimulatorService(src RandSource) *SimulatorService {
	if src == nil {
		src = globalRand{}
	}
	return &SimulatorService{
		rand: src,
		now:  time.Now,
	}
}

// WithClock replaces the clock used to anchor history timestamps.
func (s *SimulatorService) WithClock(now func() time.Time) *SimulatorService {
	s.now = now
	return s
}

// PairBase is the stable central latency of a pair: the sum of the UTF-16 code units of
// a+b, modulo 120, plus 10. Addition commutes, so PairBase(a, b) == PairBase(b, a).
func PairBase(a, b domain.NodeName) int {
	seed := 0
	for _, u := range utf16.Encode([]rune(string(a) + string(b))) {
		seed += int(u)
	}
	return seed%pairBaseModulo + pairBaseOffset
}

// SampleLatency returns one jittered sample for the pair, clamped to [5, 400] ms.
func (s *SimulatorService) SampleLatency(a, b domain.NodeName) int {
	jitter := int(math.Floor(s.rand.Float64() * sampleJitterSpan))
	return clamp(PairBase(a, b)+jitter, MinSampleLatencyMs, MaxSampleLatencyMs)
}

// SimulateHistory returns points samples spaced interval apart, the last one at now.
// Each point re-samples the base and adds a slow wave plus noise; values are floored at
// 1 ms with no upper bound.
func (s *SimulatorService) SimulateHistory(a, b domain.NodeName, points int, interval time.Duration) []domain.HistoryPoint {
	if points <= 0 {
		points = DefaultHistoryPoints
	}
	if points > MaxHistoryPoints {
		points = MaxHistoryPoints
	}
	if interval < time.Millisecond {
		interval = DefaultHistoryInterval
	}

	nowMs := s.now().UnixMilli()
	stepMs := interval.Milliseconds()

	history := make([]domain.HistoryPoint, points)
	for i := range history {
		base := s.SampleLatency(a, b)
		wave := waveAmplitude * math.Sin(float64(i)/wavePeriod)
		noise := s.rand.Float64()*noiseSpan - noiseSpan/2
		latency := base + roundHalfUp(wave+noise)
		if latency < MinHistoryLatency {
			latency = MinHistoryLatency
		}
		history[i] = domain.HistoryPoint{
			TimestampMs: nowMs - int64(points-1-i)*stepMs,
			LatencyMs:   latency,
		}
	}
	return history
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// roundHalfUp rounds .5 towards positive infinity.
func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}
