package payment

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const callbackKeyPrefix = "daraja:callback:"

type guardStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
}

// RedisCallbackGuard marks a checkout id as seen for ttl. The database
// conditional update stays the source of truth; this only saves round trips.
type RedisCallbackGuard struct {
	store guardStore
	ttl   time.Duration
}

func NewRedisCallbackGuard(store guardStore, ttl time.Duration) (*RedisCallbackGuard, error) {
	if store == nil {
		return nil, errors.New("redis store is required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisCallbackGuard{store: store, ttl: ttl}, nil
}

// Claim reports true when this is the first delivery seen for checkoutRequestID.
func (g *RedisCallbackGuard) Claim(ctx context.Context, checkoutRequestID string) (bool, error) {
	if checkoutRequestID == "" {
		return false, errors.New("checkout request id is required")
	}
	first, err := g.store.SetNX(ctx, callbackKeyPrefix+checkoutRequestID, "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("set callback key: %w", err)
	}
	return first, nil
}

func (g *RedisCallbackGuard) Release(ctx context.Context, checkoutRequestID string) error {
	if checkoutRequestID == "" {
		return errors.New("checkout request id is required")
	}
	return g.store.Del(ctx, callbackKeyPrefix+checkoutRequestID)
}
