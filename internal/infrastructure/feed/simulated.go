package feed

import (
	"context"
	"fmt"

	"geolatency/internal/core/domain"
	"geolatency/internal/core/ports"
	"geolatency/internal/core/services"
)

type pair struct {
	from, to domain.NodeName
}

// SimulatedFeed produces one synthetic sample per pair on every fetch.
type SimulatedFeed struct {
	simulator ports.Simulator
	pairs     []pair
}

// NewSimulatedFeed samples the given "A-B" pairs, or every unordered pair of registry
// nodes when pairs is empty. Both endpoints of an explicit pair must be registered.
func NewSimulatedFeed(registry ports.NodeRegistry, simulator ports.Simulator, pairs []string) (*SimulatedFeed, error) {
	f := &SimulatedFeed{simulator: simulator}

	if len(pairs) == 0 {
		nodes := registry.All()
		for i := 0; i < len(nodes); i++ {
			for j := i + 1; j < len(nodes); j++ {
				f.pairs = append(f.pairs, pair{from: nodes[i].Name, to: nodes[j].Name})
			}
		}
		return f, nil
	}

	for _, p := range pairs {
		from, to := services.ParsePair(p)
		for _, name := range []domain.NodeName{from, to} {
			if _, ok := registry.Lookup(name); !ok {
				return nil, fmt.Errorf("pair %q: %w: %s", p, domain.ErrNodeNotFound, name)
			}
		}
		f.pairs = append(f.pairs, pair{from: from, to: to})
	}
	return f, nil
}

func (f *SimulatedFeed) Name() string { return "simulated" }

func (f *SimulatedFeed) Fetch(ctx context.Context) ([]domain.LatencySample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	samples := make([]domain.LatencySample, len(f.pairs))
	for i, p := range f.pairs {
		samples[i] = domain.LatencySample{
			From:      p.from,
			To:        p.to,
			LatencyMs: f.simulator.SampleLatency(p.from, p.to),
		}
	}
	return samples, nil
}
