package ports

import (
	"context"

	"geolatency/internal/core/domain"
)

// NodeRegistry is the immutable list of nodes loaded at startup.
type NodeRegistry interface {
	All() []domain.Node
	Lookup(name domain.NodeName) (domain.Node, bool)
}

// SnapshotRepository keeps the most recently published snapshot.
type SnapshotRepository interface {
	Save(ctx context.Context, snapshot *domain.Snapshot) error
	Latest(ctx context.Context) (*domain.Snapshot, error)
}
