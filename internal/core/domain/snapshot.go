package domain

import (
	"time"

	"geolatency/pkg/geo"
)

// LatencyBucket classifies a latency for color encoding.
type LatencyBucket string

const (
	BucketLow    LatencyBucket = "low"
	BucketMedium LatencyBucket = "medium"
	BucketHigh   LatencyBucket = "high"
)

// Edge is the render-ready view of one latency sample.
type Edge struct {
	From       NodeName      `json:"from"`
	To         NodeName      `json:"to"`
	StartLat   float64       `json:"startLat"`
	StartLng   float64       `json:"startLng"`
	EndLat     float64       `json:"endLat"`
	EndLng     float64       `json:"endLng"`
	LatencyMs  int           `json:"latency"`
	DistanceKm float64       `json:"distanceKm"`
	Bucket     LatencyBucket `json:"bucket"`
	Color      string        `json:"color"`
	Stroke     float64       `json:"stroke"`
	Altitude   float64       `json:"altitude"`
	Label      string        `json:"label"`
}

// Connects reports whether the edge joins a and b in either direction.
func (e Edge) Connects(a, b NodeName) bool {
	return (e.From == a && e.To == b) || (e.From == b && e.To == a)
}

// NodeAggregate summarizes the samples touching one node within a batch.
type NodeAggregate struct {
	Name          NodeName      `json:"name"`
	Provider      Provider      `json:"provider"`
	Lat           float64       `json:"lat"`
	Lng           float64       `json:"lng"`
	Color         string        `json:"color"`
	SumLatency    int           `json:"sumLatency"`
	SampleCount   int           `json:"sampleCount"`
	AvgLatency    float64       `json:"avgLatency"`
	PointSize     float64       `json:"size"`
	PointAltitude float64       `json:"altitude"`
	HeatBucket    LatencyBucket `json:"heatBucket"`
	HeatColor     string        `json:"heatColor"`
}

type PolygonKind string

const (
	PolygonRegion PolygonKind = "region"
	PolygonHeat   PolygonKind = "heat"
)

// Polygon is a circular overlay centered on a node.
type Polygon struct {
	ID       string      `json:"id"`
	Kind     PolygonKind `json:"kind"`
	Node     NodeName    `json:"node"`
	Provider Provider    `json:"provider"`
	Ring     geo.Ring    `json:"polygon"`
	Color    string      `json:"color"`
	Value    float64     `json:"value,omitempty"`
	Label    string      `json:"label"`
}

// Snapshot is the complete output of one aggregation cycle. It is never modified
// after it has been published.
type Snapshot struct {
	GeneratedAt    time.Time       `json:"generatedAt"`
	Edges          []Edge          `json:"edges"`
	NodeAggregates []NodeAggregate `json:"nodeAggregates"`
	HeatPolygons   []Polygon       `json:"heatPolygons"`
	Dropped        int             `json:"dropped"`
}

// Aggregate returns the aggregate of the named node.
func (s *Snapshot) Aggregate(name NodeName) (NodeAggregate, bool) {
	for _, a := range s.NodeAggregates {
		if a.Name == name {
			return a, true
		}
	}
	return NodeAggregate{}, false
}
