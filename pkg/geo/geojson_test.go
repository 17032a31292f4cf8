package geo

import (
	"encoding/json"
	"testing"

	geojson "github.com/paulmach/go.geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolygonFeature_LngLatOrder(t *testing.T) {
	ring := CirclePolygon(Point{Lat: 10, Lng: 20}, 150, 8)
	f := PolygonFeature(ring, map[string]interface{}{"provider": "AWS"})

	require.True(t, f.Geometry.IsPolygon())
	require.Len(t, f.Geometry.Polygon, 1)
	first := f.Geometry.Polygon[0][0]
	assert.Equal(t, ring[0].Lng, first[0])
	assert.Equal(t, ring[0].Lat, first[1])
	assert.Equal(t, "AWS", f.Properties["provider"])
}

func TestPolygonFeature_SurvivesCollectionEncoding(t *testing.T) {
	ring := CirclePolygon(Point{Lat: -33.87, Lng: 151.21}, 350, 12)

	fc := geojson.NewFeatureCollection()
	fc.AddFeature(PolygonFeature(ring, nil))
	data, err := json.Marshal(fc)
	require.NoError(t, err)

	decoded, err := geojson.UnmarshalFeatureCollection(data)
	require.NoError(t, err)
	require.Len(t, decoded.Features, 1)
	require.True(t, decoded.Features[0].Geometry.IsPolygon())
	assert.Equal(t, ring.Coordinates(), decoded.Features[0].Geometry.Polygon[0])
}
