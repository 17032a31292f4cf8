package repositories

import (
	"context"

	"geolatency/internal/core/ports"
	"geolatency/internal/infrastructure/repositories/memory"
	redisrepo "geolatency/internal/infrastructure/repositories/redis"
	"geolatency/pkg/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RepositoryFactory creates repositories with fallback support
type RepositoryFactory struct {
	useRedis    bool
	redisClient *redis.Client
	cfg         *config.Config
	logger      *zap.SugaredLogger
}

// NewRepositoryFactory connects to Redis when enabled and falls back to memory when the
// connection fails.
func NewRepositoryFactory(cfg *config.Config, logger *zap.SugaredLogger) *RepositoryFactory {
	factory := &RepositoryFactory{
		useRedis: cfg.Redis.Enabled,
		cfg:      cfg,
		logger:   logger,
	}

	if cfg.Redis.Enabled {
		client, err := redisrepo.Connect(context.Background(), redisrepo.OptionsFromConfig(cfg, ""), logger)
		if err != nil {
			logger.Warnw("failed to connect to Redis, falling back to memory repositories",
				"error", err,
			)
			factory.useRedis = false
		} else {
			factory.redisClient = client
			logger.Info("using Redis repositories")
		}
	}

	if !factory.useRedis {
		logger.Info("using memory repositories")
	}

	return factory
}

func (f *RepositoryFactory) CreateSnapshotRepository() ports.SnapshotRepository {
	if f.useRedis && f.redisClient != nil {
		return redisrepo.NewRedisSnapshotRepository(f.redisClient, f.cfg.Redis.SnapshotTTL)
	}
	return memory.NewMemorySnapshotRepository()
}

// RedisClient returns the shared client, or nil when running on memory repositories.
func (f *RepositoryFactory) RedisClient() *redis.Client {
	if f.useRedis {
		return f.redisClient
	}
	return nil
}

// Close closes Redis connection if used
func (f *RepositoryFactory) Close() error {
	if f.redisClient != nil {
		return redisrepo.Close(f.redisClient)
	}
	return nil
}

// HealthCheck checks Redis connection health
func (f *RepositoryFactory) HealthCheck(ctx context.Context) error {
	if f.useRedis && f.redisClient != nil {
		return f.redisClient.Ping(ctx).Err()
	}
	return nil
}
