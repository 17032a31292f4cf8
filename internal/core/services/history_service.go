package services

import (
	"context"
	"math"
	"strings"
	"time"

	"geolatency/internal/core/domain"
	"geolatency/internal/core/ports"

	"go.uber.org/zap"
)

const (
	DefaultPairFrom domain.NodeName = "Binance"
	DefaultPairTo   domain.NodeName = "OKX"
	DefaultRange                    = domain.Range1h
)

// DefaultPairs is the pair list offered to chart consumers.
var DefaultPairs = []string{"Binance-OKX", "Binance-Bybit", "OKX-Deribit", "Bybit-Deribit"}

type rangeSpec struct {
	points   int
	interval time.Duration
}

var historyRanges = map[domain.HistoryRange]rangeSpec{
	domain.Range1h:  {points: 60, interval: time.Minute},
	domain.Range24h: {points: 1440, interval: time.Minute},
	domain.Range7d:  {points: 168, interval: time.Hour},
	domain.Range30d: {points: 720, interval: time.Hour},
}

// ResolveRange maps a range name to its point count and spacing. Unknown names fall back
// to 1h.
func ResolveRange(rng string) (domain.HistoryRange, int, time.Duration) {
	r := domain.HistoryRange(strings.TrimSpace(rng))
	window, ok := historyRanges[r]
	if !ok {
		r = DefaultRange
		window = historyRanges[r]
	}
	return r, window.points, window.interval
}

// ParsePair splits "A-B" into its two names. Missing halves take the default pair's.
func ParsePair(pair string) (domain.NodeName, domain.NodeName) {
	pair = strings.TrimSpace(pair)
	if pair == "" {
		return DefaultPairFrom, DefaultPairTo
	}

	parts := strings.Split(pair, "-")
	from, to := DefaultPairFrom, DefaultPairTo
	if len(parts) > 0 && strings.TrimSpace(parts[0]) != "" {
		from = domain.NodeName(strings.TrimSpace(parts[0]))
	}
	if len(parts) > 1 && strings.TrimSpace(parts[1]) != "" {
		to = domain.NodeName(strings.TrimSpace(parts[1]))
	}
	return from, to
}

// HistoryService answers history queries. Every query regenerates its series.
type HistoryService struct {
	simulator ports.Simulator
	maxPoints int
	logger    *zap.SugaredLogger
}

func NewHistoryService(simulator ports.Simulator, maxPoints int, logger *zap.SugaredLogger) *HistoryService {
	if maxPoints <= 0 || maxPoints > MaxHistoryPoints {
		maxPoints = MaxHistoryPoints
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &HistoryService{
		simulator: simulator,
		maxPoints: maxPoints,
		logger:    logger,
	}
}

// Query never fails: malformed pairs and ranges resolve to the defaults.
func (s *HistoryService) Query(ctx context.Context, pair, rng string) *domain.History {
	from, to := ParsePair(pair)
	r, points, interval := ResolveRange(rng)
	if points > s.maxPoints {
		points = s.maxPoints
	}

	series := s.simulator.SimulateHistory(from, to, points, interval)

	s.logger.Debugw("history generated",
		"from", from,
		"to", to,
		"range", r,
		"points", len(series),
	)

	return &domain.History{
		From:       from,
		To:         to,
		Range:      r,
		IntervalMs: interval.Milliseconds(),
		Points:     series,
		Stats:      Summarize(series),
	}
}

// Summarize computes min, max and mean latency of a series.
func Summarize(points []domain.HistoryPoint) domain.HistoryStats {
	if len(points) == 0 {
		return domain.HistoryStats{}
	}

	minLatency := math.MaxInt
	maxLatency := math.MinInt
	sum := 0
	for _, p := range points {
		if p.LatencyMs < minLatency {
			minLatency = p.LatencyMs
		}
		if p.LatencyMs > maxLatency {
			maxLatency = p.LatencyMs
		}
		sum += p.LatencyMs
	}

	return domain.HistoryStats{
		Min: minLatency,
		Max: maxLatency,
		Avg: float64(sum) / float64(len(points)),
	}
}
