package registry

import (
	"fmt"
	"os"
	"strings"

	"geolatency/internal/core/domain"
	"geolatency/pkg/validation"

	"github.com/biter777/countries"
	"gopkg.in/yaml.v2"
)

// Registry is the immutable node list. It is safe for concurrent use.
type Registry struct {
	nodes  []domain.Node
	byName map[domain.NodeName]int
}

type file struct {
	Nodes []domain.Node `yaml:"nodes"`
}

// New validates nodes and builds a registry keeping their order.
func New(nodes []domain.Node) (*Registry, error) {
	r := &Registry{
		nodes:  make([]domain.Node, 0, len(nodes)),
		byName: make(map[domain.NodeName]int, len(nodes)),
	}

	for i, n := range nodes {
		provider, err := domain.ParseProvider(string(n.Provider))
		if err != nil {
			return nil, fmt.Errorf("node %d (%s): %w", i, n.Name, err)
		}
		n.Provider = provider
		n.Country = strings.ToUpper(strings.TrimSpace(n.Country))

		if err := validateNode(n); err != nil {
			return nil, fmt.Errorf("node %d (%s): %w", i, n.Name, err)
		}
		if _, dup := r.byName[n.Name]; dup {
			return nil, fmt.Errorf("duplicate node name %q", n.Name)
		}

		r.byName[n.Name] = len(r.nodes)
		r.nodes = append(r.nodes, n)
	}

	if len(r.nodes) == 0 {
		return nil, fmt.Errorf("registry has no nodes")
	}
	return r, nil
}

// LoadFile reads a YAML registry of the form {nodes: [{name, lat, lng, provider, country}]}.
// An empty path returns the built-in registry.
func LoadFile(path string) (*Registry, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry %s: %w", path, err)
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to unmarshal registry yaml: %w", err)
	}
	return New(f.Nodes)
}

func validateNode(n domain.Node) error {
	if err := validation.ValidateNodeName(string(n.Name)); err != nil {
		return err
	}
	if err := validation.ValidateCoordinates(n.Lat, n.Lng); err != nil {
		return err
	}
	if n.Country != "" && countries.ByName(n.Country) == countries.Unknown {
		return fmt.Errorf("unknown country code %q", n.Country)
	}
	return nil
}

// All returns the nodes in registry order. Callers must not modify the slice.
func (r *Registry) All() []domain.Node {
	return r.nodes
}

func (r *Registry) Lookup(name domain.NodeName) (domain.Node, bool) {
	i, ok := r.byName[name]
	if !ok {
		return domain.Node{}, false
	}
	return r.nodes[i], true
}

// Len returns the number of nodes.
func (r *Registry) Len() int {
	return len(r.nodes)
}

// DisplayName renders a node as "Name (Country)", or just the name when the country is
// not set.
func DisplayName(n domain.Node) string {
	if n.Country == "" {
		return string(n.Name)
	}
	return fmt.Sprintf("%s (%s)", n.Name, countries.ByName(n.Country).String())
}
