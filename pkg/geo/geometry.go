// Package geo holds the spherical geometry used to place latency layers on the globe.
package geo

import "math"

const (
	// EarthRadiusKm is the mean Earth radius.
	EarthRadiusKm = 6371.0

	// KmPerDegree is the length of one degree of latitude.
	KmPerDegree = 111.32

	minSegments = 3
	minRingSize = 4
)

// Point is a WGS84 coordinate in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Ring is an ordered, closed sequence of vertices.
type Ring []Point

// DegreesToRadians converts degrees to radians.
func DegreesToRadians(d float64) float64 {
	return d * math.Pi / 180.0
}

// DistanceKm returns the great-circle distance between a and b using the haversine formula.
func DistanceKm(a, b Point) float64 {
	lat1 := DegreesToRadians(a.Lat)
	lat2 := DegreesToRadians(b.Lat)
	dLat := DegreesToRadians(b.Lat - a.Lat)
	dLng := DegreesToRadians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	return EarthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// CirclePolygon approximates a circle of radiusKm around center.
//
// The latitude offset is taken directly from the radius while the longitude offset is
// widened by 1/cos(lat) so the shape stays round away from the equator. The returned
// ring is always closed and holds at least four vertices, whatever segments is.
func CirclePolygon(center Point, radiusKm float64, segments int) Ring {
	seg := segments
	if seg < minSegments {
		seg = minSegments
	}

	latSpan := radiusKm / KmPerDegree
	lngSpan := radiusKm / (KmPerDegree * math.Cos(DegreesToRadians(center.Lat)))

	ring := make(Ring, 0, seg+1)
	for i := 0; i < seg; i++ {
		theta := float64(i) / float64(seg) * 2 * math.Pi
		ring = append(ring, Point{
			Lat: center.Lat + latSpan*math.Cos(theta),
			Lng: center.Lng + lngSpan*math.Sin(theta),
		})
	}

	if first, last := ring[0], ring[len(ring)-1]; first != last {
		ring = append(ring, first)
	}
	for len(ring) < minRingSize {
		ring = append(ring, ring[len(ring)-1])
	}
	return ring
}

// Closed reports whether the first and last vertices coincide.
func (r Ring) Closed() bool {
	return len(r) > 0 && r[0] == r[len(r)-1]
}
