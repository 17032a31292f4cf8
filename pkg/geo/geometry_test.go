package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistanceKm(t *testing.T) {
	tokyo := Point{Lat: 35.6895, Lng: 139.6917}
	london := Point{Lat: 51.5074, Lng: -0.1278}

	tests := []struct {
		name string
		a, b Point
		want float64
		tol  float64
	}{
		{"same point", tokyo, tokyo, 0, 1e-9},
		{"one degree on equator", Point{0, 0}, Point{0, 1}, 111.19, 0.1},
		{"tokyo to london", tokyo, london, 9558, 15},
		{"pole to pole", Point{90, 0}, Point{-90, 0}, math.Pi * EarthRadiusKm, 1e-6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceKm(tt.a, tt.b)
			if math.Abs(got-tt.want) > tt.tol {
				t.Errorf("DistanceKm(%v, %v) = %f; want %f", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestDistanceKm_Symmetric(t *testing.T) {
	points := []Point{
		{0, 0}, {0, 10}, {35.6895, 139.6917}, {1.3521, 103.8198},
		{-33.8688, 151.2093}, {64.1466, -21.9426}, {-89.9, 179.9},
	}
	for _, a := range points {
		assert.Zero(t, DistanceKm(a, a))
		for _, b := range points {
			assert.Equal(t, DistanceKm(a, b), DistanceKm(b, a), "a=%v b=%v", a, b)
		}
	}
}

func TestCirclePolygon_AlwaysClosedWithFourVertices(t *testing.T) {
	centers := []Point{{0, 0}, {51.5, -0.12}, {-33.9, 151.2}, {80, 20}}
	for _, c := range centers {
		for seg := 0; seg <= 70; seg++ {
			ring := CirclePolygon(c, 150, seg)
			require.GreaterOrEqual(t, len(ring), 4, "center=%v segments=%d", c, seg)
			assert.True(t, ring.Closed(), "center=%v segments=%d", c, seg)
		}
	}
}

func TestCirclePolygon_SegmentCounts(t *testing.T) {
	tests := []struct {
		segments int
		want     int
	}{
		{0, 4},  // 3 vertices + closing vertex
		{2, 4},  // raised to 3
		{3, 4},  // 3 + closing
		{4, 5},  // 4 + closing
		{48, 49},
		{64, 65},
	}
	for _, tt := range tests {
		ring := CirclePolygon(Point{10, 10}, 350, tt.segments)
		assert.Len(t, ring, tt.want, "segments=%d", tt.segments)
	}
}

func TestCirclePolygon_ZeroRadiusPads(t *testing.T) {
	// All vertices coincide, so the ring is already closed and padding kicks in.
	ring := CirclePolygon(Point{10, 20}, 0, 0)
	require.Len(t, ring, 4)
	for _, p := range ring {
		assert.Equal(t, Point{10, 20}, p)
	}
}

func TestCirclePolygon_Geometry(t *testing.T) {
	center := Point{Lat: 60, Lng: 10}
	ring := CirclePolygon(center, 111.32, 4)

	// theta = 0 points north by exactly one degree.
	assert.InDelta(t, 61.0, ring[0].Lat, 1e-9)
	assert.InDelta(t, 10.0, ring[0].Lng, 1e-9)

	// theta = pi/2 points east; cos(60deg) = 0.5 doubles the longitude span.
	assert.InDelta(t, 60.0, ring[1].Lat, 1e-9)
	assert.InDelta(t, 12.0, ring[1].Lng, 1e-9)
}

func TestCirclePolygon_Idempotent(t *testing.T) {
	a := CirclePolygon(Point{22.3, 114.2}, 350, 48)
	b := CirclePolygon(Point{22.3, 114.2}, 350, 48)
	assert.Equal(t, a, b)
}
