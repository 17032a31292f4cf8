package domain

// ViewFilter selects which parts of a snapshot a consumer displays.
type ViewFilter struct {
	// Providers maps a provider to its visibility. Providers absent from the map are visible.
	Providers       map[Provider]bool
	ShowRegions     bool
	HighlightedPair string
}

// DefaultViewFilter shows everything.
func DefaultViewFilter() ViewFilter {
	return ViewFilter{
		Providers:   map[Provider]bool{ProviderAWS: true, ProviderAzure: true, ProviderGCP: true},
		ShowRegions: true,
	}
}

func (f ViewFilter) ProviderVisible(p Provider) bool {
	visible, ok := f.Providers[p]
	return !ok || visible
}

// View is a filtered projection of a snapshot.
type View struct {
	Snapshot *Snapshot       `json:"-"`
	Edges    []Edge          `json:"edges"`
	Nodes    []NodeAggregate `json:"nodes"`
	Polygons []Polygon       `json:"polygons"`
}
