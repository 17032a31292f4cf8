package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"geolatency/internal/core/domain"
	"geolatency/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

const snapshotKey = "geolatency:snapshot:latest"

// RedisSnapshotRepository stores the latest snapshot as one JSON value so several
// instances can serve the same snapshot.
type RedisSnapshotRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSnapshotRepository expires the stored snapshot after ttl. Zero keeps it forever.
func NewRedisSnapshotRepository(client *redis.Client, ttl time.Duration) ports.SnapshotRepository {
	return &RedisSnapshotRepository{
		client: client,
		ttl:    ttl,
	}
}

func (r *RedisSnapshotRepository) Save(ctx context.Context, snapshot *domain.Snapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := r.client.Set(ctx, snapshotKey, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set snapshot in Redis: %w", err)
	}
	return nil
}

func (r *RedisSnapshotRepository) Latest(ctx context.Context) (*domain.Snapshot, error) {
	data, err := r.client.Get(ctx, snapshotKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrSnapshotNotReady
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot from Redis: %w", err)
	}

	var snapshot domain.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snapshot, nil
}
