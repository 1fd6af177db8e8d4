package revocation

import (
	"context"
	"sync"
	"time"
)

// InMemoryTRL is a process-local token revocation list for development and tests.
type InMemoryTRL struct {
	mu      sync.RWMutex
	revoked map[string]time.Time
	clock   Clock
}

type InMemoryTRLOption func(*InMemoryTRL)

func WithClock(clock Clock) InMemoryTRLOption {
	return func(t *InMemoryTRL) {
		if clock != nil {
			t.clock = clock
		}
	}
}

func NewInMemoryTRL(opts ...InMemoryTRLOption) *InMemoryTRL {
	trl := &InMemoryTRL{revoked: make(map[string]time.Time), clock: time.Now}
	for _, opt := range opts {
		opt(trl)
	}
	return trl
}

func (t *InMemoryTRL) RevokeToken(_ context.Context, jti string, ttl time.Duration) error {
	if jti == "" {
		return nil
	}
	if err := validateTTL(ttl); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.clock()
	for k, exp := range t.revoked {
		if !now.Before(exp) {
			delete(t.revoked, k)
		}
	}
	t.revoked[jti] = now.Add(ttl)
	return nil
}

func (t *InMemoryTRL) IsRevoked(_ context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	exp, ok := t.revoked[jti]
	return ok && t.clock().Before(exp), nil
}
