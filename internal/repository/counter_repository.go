package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// WindowCount is the state of one fixed window after an increment
type WindowCount struct {
	Count   int64
	ResetIn time.Duration
}

// CounterRepository defines the interface for fixed-window request counters.
// Increment must check the window and bump the counter atomically per key.
type CounterRepository interface {
	Increment(ctx context.Context, key string, window time.Duration) (WindowCount, error)
	Close() error
}

// incrementScript bumps the counter and starts the window on the first hit
var incrementScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
	ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// RedisCounterRepository implements CounterRepository for Redis, sharing windows across proxy instances
type RedisCounterRepository struct {
	client *redis.Client
	prefix string
}

// NewRedisCounterRepository creates a new Redis counter repository
func NewRedisCounterRepository(client *redis.Client, prefix string) *RedisCounterRepository {
	return &RedisCounterRepository{client: client, prefix: prefix}
}

// Increment adds one hit to key's current window
func (r *RedisCounterRepository) Increment(ctx context.Context, key string, window time.Duration) (WindowCount, error) {
	values, err := incrementScript.Run(ctx, r.client, []string{r.prefix + key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return WindowCount{}, fmt.Errorf("failed to increment counter: %w", err)
	}
	if len(values) != 2 {
		return WindowCount{}, fmt.Errorf("unexpected counter reply: %v", values)
	}

	return WindowCount{
		Count:   values[0],
		ResetIn: time.Duration(values[1]) * time.Millisecond,
	}, nil
}

// Close closes the Redis client
func (r *RedisCounterRepository) Close() error {
	return r.client.Close()
}
