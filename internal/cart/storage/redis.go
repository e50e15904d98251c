package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/phenomboxing/storefront/internal/cart"
	"github.com/phenomboxing/storefront/pkg/redis"
)

// KV is the subset of the redis client used for snapshots.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	CartKey(sessionID string) string
}

// RedisStore keeps a session's snapshot under phenom:cart:<session>. Each
// save refreshes the TTL, so abandoned carts expire on their own.
type RedisStore struct {
	kv        KV
	sessionID string
	ttl       time.Duration
}

// RedisFactory returns a factory backed by kv.
func RedisFactory(kv KV, ttl time.Duration) cart.PersisterFactory {
	return func(sessionID string) cart.Persister {
		return &RedisStore{kv: kv, sessionID: sessionID, ttl: ttl}
	}
}

func (r *RedisStore) Load(ctx context.Context) (*cart.Snapshot, error) {
	raw, err := r.kv.Get(ctx, r.kv.CartKey(r.sessionID))
	if redis.IsNil(err) {
		return nil, cart.ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get cart: %w", err)
	}
	return cart.DecodeSnapshot([]byte(raw))
}

func (r *RedisStore) Save(ctx context.Context, snap cart.Snapshot) error {
	data, err := cart.EncodeSnapshot(snap)
	if err != nil {
		return err
	}
	if err := r.kv.Set(ctx, r.kv.CartKey(r.sessionID), data, r.ttl); err != nil {
		return fmt.Errorf("redis set cart: %w", err)
	}
	return nil
}

func (r *RedisStore) Backend() string {
	return BackendRedis
}
