package distributed

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// holdScript takes the lock when it is free and extends it when the caller already owns it.
var holdScript = redis.NewScript(`
local current = redis.call("get", KEYS[1])
if current == false then
	redis.call("set", KEYS[1], ARGV[1], "px", ARGV[2])
	return 1
end
if current == ARGV[1] then
	redis.call("pexpire", KEYS[1], ARGV[2])
	return 1
end
return 0
`)

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Lease is a renewable Redis lock. The holder keeps it by calling Hold more often than
// the TTL; a crashed holder loses it once the TTL runs out.
type Lease struct {
	client *redis.Client
	key    string
	value  string
	ttl    time.Duration
}

// NewLease creates a lease on key. Every Lease has its own owner value.
func NewLease(client *redis.Client, key string, ttl time.Duration) *Lease {
	return &Lease{
		client: client,
		key:    key,
		value:  uuid.NewString(),
		ttl:    ttl,
	}
}

func (l *Lease) Key() string { return l.key }

// Hold acquires or renews the lease and reports whether this owner holds it.
func (l *Lease) Hold(ctx context.Context) (bool, error) {
	held, err := holdScript.Run(ctx, l.client, []string{l.key}, l.value, l.ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("failed to hold lease %s: %w", l.key, err)
	}
	return held == 1, nil
}

// Release gives the lease up if this owner holds it.
func (l *Lease) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.key}, l.value).Err(); err != nil {
		return fmt.Errorf("failed to release lease %s: %w", l.key, err)
	}
	return nil
}
