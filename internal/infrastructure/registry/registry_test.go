package registry

import (
	"os"
	"path/filepath"
	"testing"

	"geolatency/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	r := Default()
	require.Equal(t, len(builtinNodes), r.Len())

	for _, name := range []domain.NodeName{"Binance", "OKX", "Bybit", "Deribit"} {
		_, ok := r.Lookup(name)
		assert.True(t, ok, name)
	}

	n, ok := r.Lookup("Binance")
	require.True(t, ok)
	assert.Equal(t, domain.ProviderAWS, n.Provider)
	assert.Equal(t, "Binance (Japan)", DisplayName(n))

	_, ok = r.Lookup("Mt.Gox")
	assert.False(t, ok)
}

func TestNew_Normalizes(t *testing.T) {
	r, err := New([]domain.Node{
		{Name: "A", Lat: 10, Lng: 20, Provider: "gcp", Country: " de "},
		{Name: "B", Lat: -10, Lng: -20, Provider: "azure"},
	})
	require.NoError(t, err)

	a, _ := r.Lookup("A")
	assert.Equal(t, domain.ProviderGCP, a.Provider)
	assert.Equal(t, "DE", a.Country)
	b, _ := r.Lookup("B")
	assert.Equal(t, "B", DisplayName(b))
	assert.Equal(t, []domain.NodeName{"A", "B"}, []domain.NodeName{r.All()[0].Name, r.All()[1].Name})
}

func TestNew_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		nodes []domain.Node
	}{
		{"empty", nil},
		{"bad provider", []domain.Node{{Name: "A", Provider: "Oracle"}}},
		{"bad latitude", []domain.Node{{Name: "A", Lat: 95, Provider: "AWS"}}},
		{"bad name", []domain.Node{{Name: "A-B", Provider: "AWS"}}},
		{"bad country", []domain.Node{{Name: "A", Provider: "AWS", Country: "ZZ"}}},
		{"duplicate", []domain.Node{{Name: "A", Provider: "AWS"}, {Name: "A", Provider: "GCP"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.nodes)
			assert.Error(t, err)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nodes.yaml")
	data := []byte(`
nodes:
  - name: Alpha
    lat: 48.8566
    lng: 2.3522
    provider: AWS
    country: FR
  - name: Beta
    lat: -33.8688
    lng: 151.2093
    provider: Azure
    country: AU
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	r, err := LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, 2, r.Len())
	beta, ok := r.Lookup("Beta")
	require.True(t, ok)
	assert.Equal(t, domain.ProviderAzure, beta.Provider)
	assert.InDelta(t, 151.2093, beta.Lng, 1e-9)

	def, err := LoadFile("")
	require.NoError(t, err)
	assert.Equal(t, len(builtinNodes), def.Len())

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
