// Package throttle limits how often one-time codes can be requested per address.
package throttle

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "code_throttle:"

// RedisThrottle claims a cooldown window with SET NX so every instance agrees.
type RedisThrottle struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisThrottle {
	return &RedisThrottle{client: client}
}

// Allow claims key for window. It returns false while a previous claim is live.
func (t *RedisThrottle) Allow(ctx context.Context, key string, window time.Duration) (bool, error) {
	return t.client.SetNX(ctx, keyPrefix+key, "1", window).Result()
}

// InMemoryThrottle is the single-process equivalent of RedisThrottle.
type InMemoryThrottle struct {
	mu    sync.Mutex
	until map[string]time.Time
	clock func() time.Time
}

func NewInMemory() *InMemoryThrottle {
	return &InMemoryThrottle{until: make(map[string]time.Time), clock: time.Now}
}

// NewInMemoryWithClock is used by tests that step time manually.
func NewInMemoryWithClock(clock func() time.Time) *InMemoryThrottle {
	t := NewInMemory()
	t.clock = clock
	return t
}

func (t *InMemoryThrottle) Allow(_ context.Context, key string, window time.Duration) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.clock()
	if until, ok := t.until[key]; ok && now.Before(until) {
		return false, nil
	}
	t.until[key] = now.Add(window)
	return true, nil
}
