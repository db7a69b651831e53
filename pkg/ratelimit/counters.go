package ratelimit

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"elbiefit/domain/keys"
	"elbiefit/infrastructure/persistence/abstractions"
)

const countAttr = "count"

// StoreCounter keeps counters as RATE#<client> / WIN#<window> rows of the
// main table.
type StoreCounter struct {
	store abstractions.Store
}

func NewStoreCounter(store abstractions.Store) *StoreCounter {
	return &StoreCounter{store: store}
}

func (c *StoreCounter) Increment(ctx context.Context, clientID string, windowID int64, expiresAt int64) (int64, error) {
	key := abstractions.Key{PK: keys.RatePK(clientID), SK: keys.WindowSK(windowID)}
	return c.store.Increment(ctx, key, countAttr, 1, expiresAt)
}

// Evaler is the part of *redis.Client the Redis counter needs
type Evaler interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

var _ Evaler = (*redis.Client)(nil)

const incrementScript = `
local n = redis.call('INCR', KEYS[1])
redis.call('EXPIREAT', KEYS[1], ARGV[1])
return n
`

// RedisCounter keeps counters in Redis with a native expiry
type RedisCounter struct {
	client Evaler
}

func NewRedisCounter(client Evaler) *RedisCounter {
	return &RedisCounter{client: client}
}

func RedisKey(clientID string, windowID int64) string {
	return fmt.Sprintf("elbiefit:%s:%s", keys.RatePK(clientID), keys.WindowSK(windowID))
}

func (c *RedisCounter) Increment(ctx context.Context, clientID string, windowID int64, expiresAt int64) (int64, error) {
	n, err := c.client.Eval(ctx, incrementScript, []string{RedisKey(clientID, windowID)}, expiresAt).Int64()
	if err != nil {
		return 0, fmt.Errorf("redis increment: %w", err)
	}
	return n, nil
}
