package repositories

import (
	"context"
	"testing"

	"geolatency/internal/infrastructure/repositories/memory"
	"geolatency/pkg/config"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func TestRepositoryFactory_MemoryByDefault(t *testing.T) {
	f := NewRepositoryFactory(config.DefaultConfig(), zaptest.NewLogger(t).Sugar())
	defer f.Close()

	assert.IsType(t, &memory.MemorySnapshotRepository{}, f.CreateSnapshotRepository())
	assert.Nil(t, f.RedisClient())
	assert.NoError(t, f.HealthCheck(context.Background()))
}

func TestRepositoryFactory_FallsBackWhenRedisUnreachable(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Redis.Enabled = true
	cfg.Redis.Address = "127.0.0.1:1"

	f := NewRepositoryFactory(cfg, zaptest.NewLogger(t).Sugar())
	defer f.Close()

	assert.IsType(t, &memory.MemorySnapshotRepository{}, f.CreateSnapshotRepository())
	assert.Nil(t, f.RedisClient())
}
