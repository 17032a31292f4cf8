package geo

import (
	geojson "github.com/paulmach/go.geojson"
)

// Coordinates converts the ring to GeoJSON position order ([lng, lat]).
func (r Ring) Coordinates() [][]float64 {
	coords := make([][]float64, 0, len(r))
	for _, p := range r {
		coords = append(coords, []float64{p.Lng, p.Lat})
	}
	return coords
}

// PolygonFeature builds a GeoJSON Polygon feature from a single outer ring.
func PolygonFeature(r Ring, properties map[string]interface{}) *geojson.Feature {
	f := geojson.NewPolygonFeature([][][]float64{r.Coordinates()})
	for k, v := range properties {
		f.SetProperty(k, v)
	}
	return f
}
