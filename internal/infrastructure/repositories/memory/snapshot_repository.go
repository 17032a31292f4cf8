package memory

import (
	"context"
	"sync/atomic"

	"geolatency/internal/core/domain"
	"geolatency/internal/core/ports"
)

// MemorySnapshotRepository keeps the latest snapshot behind an atomic pointer.
type MemorySnapshotRepository struct {
	latest atomic.Pointer[domain.Snapshot]
}

func NewMemorySnapshotRepository() ports.SnapshotRepository {
	return &MemorySnapshotRepository{}
}

func (r *MemorySnapshotRepository) Save(ctx context.Context, snapshot *domain.Snapshot) error {
	r.latest.Store(snapshot)
	return nil
}

func (r *MemorySnapshotRepository) Latest(ctx context.Context) (*domain.Snapshot, error) {
	snapshot := r.latest.Load()
	if snapshot == nil {
		return nil, domain.ErrSnapshotNotReady
	}
	return snapshot, nil
}
