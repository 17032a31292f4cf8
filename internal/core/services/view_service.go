package services

import (
	"strings"

	"geolatency/internal/core/domain"
)

// ApplyView projects a snapshot through a filter. The snapshot is not modified.
//
// Provider toggles hide nodes, heat polygons and region polygons of that provider;
// a highlighted pair keeps only edges joining the pair in either direction; regions are
// included only when ShowRegions is set and are listed before the heat polygons.
func ApplyView(snapshot *domain.Snapshot, regions []domain.Polygon, filter domain.ViewFilter) *domain.View {
	view := &domain.View{
		Snapshot: snapshot,
		Edges:    []domain.Edge{},
		Nodes:    []domain.NodeAggregate{},
		Polygons: []domain.Polygon{},
	}

	if filter.ShowRegions {
		for _, r := range regions {
			if filter.ProviderVisible(r.Provider) {
				view.Polygons = append(view.Polygons, r)
			}
		}
	}

	if snapshot == nil {
		return view
	}

	for _, n := range snapshot.NodeAggregates {
		if filter.ProviderVisible(n.Provider) {
			view.Nodes = append(view.Nodes, n)
		}
	}

	for _, p := range snapshot.HeatPolygons {
		if filter.ProviderVisible(p.Provider) {
			view.Polygons = append(view.Polygons, p)
		}
	}

	a, b, highlighted := splitHighlight(filter.HighlightedPair)
	for _, e := range snapshot.Edges {
		if highlighted && !e.Connects(a, b) {
			continue
		}
		view.Edges = append(view.Edges, e)
	}

	return view
}

func splitHighlight(pair string) (domain.NodeName, domain.NodeName, bool) {
	pair = strings.TrimSpace(pair)
	if pair == "" {
		return "", "", false
	}
	parts := strings.Split(pair, "-")
	a := domain.NodeName(strings.TrimSpace(parts[0]))
	var b domain.NodeName
	if len(parts) > 1 {
		b = domain.NodeName(strings.TrimSpace(parts[1]))
	}
	return a, b, true
}
