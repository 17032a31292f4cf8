package services

import (
	"fmt"
	"math"
	"time"

	"geolatency/internal/core/domain"
	"geolatency/internal/core/ports"
	"geolatency/pkg/geo"

	"go.uber.org/zap"
)

const (
	MediumLatencyThreshold = 60
	HighLatencyThreshold   = 150

	DefaultHeatRadiusKm = 350
	DefaultHeatSegments = 48
)

var (
	edgeColors = map[domain.LatencyBucket]string{
		domain.BucketLow:    "#00ff00",
		domain.BucketMedium: "#ffff00",
		domain.BucketHigh:   "#ff0000",
	}
	heatColors = map[domain.LatencyBucket]string{
		domain.BucketLow:    "rgba(0,255,0,0.18)",
		domain.BucketMedium: "rgba(255,255,0,0.16)",
		domain.BucketHigh:   "rgba(255,0,0,0.18)",
	}
)

// BucketFor classifies a latency: >= 150 high, >= 60 medium, otherwise low.
func BucketFor(latency float64) domain.LatencyBucket {
	switch {
	case latency >= HighLatencyThreshold:
		return domain.BucketHigh
	case latency >= MediumLatencyThreshold:
		return domain.BucketMedium
	default:
		return domain.BucketLow
	}
}

func EdgeColor(b domain.LatencyBucket) string { return edgeColors[b] }

func HeatColor(b domain.LatencyBucket) string { return heatColors[b] }

// EdgeStroke returns min(6, 1 + latency/60).
func EdgeStroke(latency int) float64 {
	return math.Min(6, 1+float64(latency)/60)
}

// EdgeAltitude returns min(0.6, 0.02 + distanceKm/20000).
func EdgeAltitude(distanceKm float64) float64 {
	return math.Min(0.6, 0.02+distanceKm/20000)
}

// PointSize returns 0.25 + min(1.4, avg/200).
func PointSize(avg float64) float64 {
	return 0.25 + math.Min(1.4, avg/200)
}

// PointAltitude returns 0.01 + min(0.25, avg/400).
func PointAltitude(avg float64) float64 {
	return 0.01 + math.Min(0.25, avg/400)
}

type AggregationConfig struct {
	HeatRadiusKm float64
	HeatSegments int
}

func DefaultAggregationConfig() AggregationConfig {
	return AggregationConfig{
		HeatRadiusKm: DefaultHeatRadiusKm,
		HeatSegments: DefaultHeatSegments,
	}
}

type nodeTally struct {
	sum   int
	count int
}

// AggregationService turns a batch of samples into a complete snapshot.
type AggregationService struct {
	registry ports.NodeRegistry
	config   AggregationConfig
	logger   *zap.SugaredLogger
	now      func() time.Time
}

func NewAggregationService(registry ports.NodeRegistry, cfg AggregationConfig, logger *zap.SugaredLogger) *AggregationService {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &AggregationService{
		registry: registry,
		config:   cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Aggregate builds edges, per-node aggregates and heat polygons from one batch. Samples
// naming unknown nodes are skipped. Nothing carries over from earlier batches.
func (s *AggregationService) Aggregate(samples []domain.LatencySample) *domain.Snapshot {
	tallies := make(map[domain.NodeName]*nodeTally)
	edges := make([]domain.Edge, 0, len(samples))
	dropped := 0

	for _, sample := range samples {
		from, okFrom := s.registry.Lookup(sample.From)
		to, okTo := s.registry.Lookup(sample.To)
		if !okFrom || !okTo {
			dropped++
			continue
		}

		edges = append(edges, buildEdge(from, to, sample.LatencyMs))
		tally(tallies, from.Name, sample.LatencyMs)
		tally(tallies, to.Name, sample.LatencyMs)
	}

	if dropped > 0 {
		s.logger.Debugw("dropped samples with unknown nodes", "dropped", dropped, "batch_size", len(samples))
	}

	nodes := s.registry.All()
	aggregates := make([]domain.NodeAggregate, 0, len(nodes))
	heat := make([]domain.Polygon, 0, len(nodes))
	for _, n := range nodes {
		agg := buildAggregate(n, tallies[n.Name])
		aggregates = append(aggregates, agg)
		heat = append(heat, s.heatPolygon(n, agg))
	}

	return &domain.Snapshot{
		GeneratedAt:    s.now(),
		Edges:          edges,
		NodeAggregates: aggregates,
		HeatPolygons:   heat,
		Dropped:        dropped,
	}
}

func tally(tallies map[domain.NodeName]*nodeTally, name domain.NodeName, latency int) {
	t, ok := tallies[name]
	if !ok {
		t = &nodeTally{}
		tallies[name] = t
	}
	t.sum += latency
	t.count++
}

func buildEdge(from, to domain.Node, latency int) domain.Edge {
	distance := geo.DistanceKm(from.Point(), to.Point())
	bucket := BucketFor(float64(latency))
	return domain.Edge{
		From:       from.Name,
		To:         to.Name,
		StartLat:   from.Lat,
		StartLng:   from.Lng,
		EndLat:     to.Lat,
		EndLng:     to.Lng,
		LatencyMs:  latency,
		DistanceKm: distance,
		Bucket:     bucket,
		Color:      EdgeColor(bucket),
		Stroke:     EdgeStroke(latency),
		Altitude:   EdgeAltitude(distance),
		Label:      fmt.Sprintf("%s → %s: %dms", from.Name, to.Name, latency),
	}
}

func buildAggregate(n domain.Node, t *nodeTally) domain.NodeAggregate {
	agg := domain.NodeAggregate{
		Name:     n.Name,
		Provider: n.Provider,
		Lat:      n.Lat,
		Lng:      n.Lng,
		Color:    n.Provider.Color(),
	}
	if t != nil && t.count > 0 {
		agg.SumLatency = t.sum
		agg.SampleCount = t.count
		agg.AvgLatency = float64(t.sum) / float64(t.count)
	}
	agg.PointSize = PointSize(agg.AvgLatency)
	agg.PointAltitude = PointAltitude(agg.AvgLatency)
	agg.HeatBucket = BucketFor(agg.AvgLatency)
	agg.HeatColor = HeatColor(agg.HeatBucket)
	return agg
}

func (s *AggregationService) heatPolygon(n domain.Node, agg domain.NodeAggregate) domain.Polygon {
	return domain.Polygon{
		ID:       fmt.Sprintf("heat-%s", n.Name),
		Kind:     domain.PolygonHeat,
		Node:     n.Name,
		Provider: n.Provider,
		Ring:     geo.CirclePolygon(n.Point(), s.config.HeatRadiusKm, s.config.HeatSegments),
		Color:    agg.HeatColor,
		Value:    agg.AvgLatency,
		Label:    fmt.Sprintf("%s heat: %dms", n.Name, int(math.Round(agg.AvgLatency))),
	}
}
