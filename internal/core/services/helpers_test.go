package services

import (
	"geolatency/internal/core/domain"
)

// sequenceRand replays fixed values, cycling when exhausted.
type sequenceRand struct {
	values []float64
	next   int
}

func (r *sequenceRand) Float64() float64 {
	if len(r.values) == 0 {
		return 0
	}
	v := r.values[r.next%len(r.values)]
	r.next++
	return v
}

type constRand float64

func (c constRand) Float64() float64 { return float64(c) }

type staticRegistry struct {
	nodes []domain.Node
}

func newStaticRegistry(nodes ...domain.Node) *staticRegistry {
	return &staticRegistry{nodes: nodes}
}

func (r *staticRegistry) All() []domain.Node { return r.nodes }

func (r *staticRegistry) Lookup(name domain.NodeName) (domain.Node, bool) {
	for _, n := range r.nodes {
		if n.Name == name {
			return n, true
		}
	}
	return domain.Node{}, false
}
