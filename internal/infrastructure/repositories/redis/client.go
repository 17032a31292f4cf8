package redis

import (
	"context"
	"fmt"
	"time"

	"geolatency/pkg/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const connectTimeout = 5 * time.Second

// ClientOptions is the subset of redis settings the snapshot store and event bus need.
type ClientOptions struct {
	Address  string
	Password string
	DB       int
	PoolSize int
}

// OptionsFromConfig copies the redis section. address overrides cfg when non-empty.
func OptionsFromConfig(cfg *config.Config, address string) ClientOptions {
	opts := ClientOptions{
		Address:  cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	}
	if address != "" {
		opts.Address = address
	}
	return opts
}

// Connect opens a pooled client and pings it. A client that cannot ping is closed.
func Connect(ctx context.Context, opts ClientOptions, logger *zap.SugaredLogger) (*redis.Client, error) {
	if opts.PoolSize <= 0 {
		opts.PoolSize = 2
	}
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Address,
		Password:     opts.Password,
		DB:           opts.DB,
		PoolSize:     opts.PoolSize,
		MinIdleConns: 1,
		DialTimeout:  connectTimeout,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis %s unreachable: %w", opts.Address, err)
	}

	if logger != nil {
		logger.Infow("redis connected",
			"address", opts.Address,
			"db", opts.DB,
			"pool_size", opts.PoolSize,
		)
	}
	return client, nil
}

// Close is nil-safe.
func Close(client *redis.Client) error {
	if client == nil {
		return nil
	}
	return client.Close()
}
