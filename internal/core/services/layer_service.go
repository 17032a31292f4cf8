package services

import (
	"fmt"
	"sync"

	"geolatency/internal/core/domain"
	"geolatency/internal/core/ports"
	"geolatency/pkg/geo"

	geojson "github.com/paulmach/go.geojson"
)

const (
	DefaultRegionRadiusKm = 150
	DefaultRegionSegments = 64
)

// LayerService builds the static provider coverage overlay. The registry never changes,
// so the regions are computed once.
type LayerService struct {
	registry ports.NodeRegistry
	radiusKm float64
	segments int

	once    sync.Once
	regions []domain.Polygon
}

func NewLayerService(registry ports.NodeRegistry, radiusKm float64, segments int) *LayerService {
	return &LayerService{
		registry: registry,
		radiusKm: radiusKm,
		segments: segments,
	}
}

// Regions returns one coverage polygon per node, colored by provider.
func (s *LayerService) Regions() []domain.Polygon {
	s.once.Do(func() {
		nodes := s.registry.All()
		s.regions = make([]domain.Polygon, 0, len(nodes))
		for i, n := range nodes {
			s.regions = append(s.regions, domain.Polygon{
				ID:       fmt.Sprintf("region-%d", i),
				Kind:     domain.PolygonRegion,
				Node:     n.Name,
				Provider: n.Provider,
				Ring:     geo.CirclePolygon(n.Point(), s.radiusKm, s.segments),
				Color:    n.Provider.Color(),
				Label:    fmt.Sprintf("%s region near %s", n.Provider, n.Name),
			})
		}
	})
	return s.regions
}

// FeatureCollection exports polygons as GeoJSON, one Polygon feature each. Heat polygons
// carry their average latency as "value".
func FeatureCollection(polygons []domain.Polygon) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, p := range polygons {
		props := map[string]interface{}{
			"id":       p.ID,
			"kind":     string(p.Kind),
			"node":     string(p.Node),
			"provider": string(p.Provider),
			"color":    p.Color,
			"label":    p.Label,
		}
		if p.Kind == domain.PolygonHeat {
			props["value"] = p.Value
		}
		fc.AddFeature(geo.PolygonFeature(p.Ring, props))
	}
	return fc
}
