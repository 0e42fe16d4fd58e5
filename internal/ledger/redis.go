package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andresuchdata/stockalert/internal/cache"
	"github.com/andresuchdata/stockalert/internal/config"
	"github.com/andresuchdata/stockalert/internal/domain"
	"github.com/redis/go-redis/v9"
)

const purgeScanBatchSize = 100

// Redis is a ledger shared by every instance of the service. Record expiry
// is native key TTL, so no cleanup pass exists.
type Redis struct {
	client *redis.Client
	now    Clock
}

// NewRedis connects to redis using the cache settings and pings it.
func NewRedis(cfg config.CacheConfig) (*Redis, error) {
	client, err := cache.NewRedisClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}

	return NewRedisFromClient(client, nil), nil
}

// NewRedisFromClient wraps an existing client. A nil clock means time.Now.
func NewRedisFromClient(client *redis.Client, now Clock) *Redis {
	if now == nil {
		now = time.Now
	}
	return &Redis{client: client, now: now}
}

func (r *Redis) TryFire(ctx context.Context, itemID string, kind domain.AlertKind, window time.Duration) (bool, error) {
	firedAt := r.now().UTC().Format(time.RFC3339)

	ok, err := r.client.SetNX(ctx, Key(itemID, kind), firedAt, windowOrDefault(window)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: redis setnx failed: %w", domain.ErrStoreUnavailable, err)
	}
	return ok, nil
}

func (r *Redis) Release(ctx context.Context, itemID string, kind domain.AlertKind) error {
	if err := r.client.Del(ctx, Key(itemID, kind)).Err(); err != nil {
		return fmt.Errorf("%w: redis delete failed: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

// FiredAt returns when (itemID, kind) last fired, if its record is still live.
func (r *Redis) FiredAt(ctx context.Context, itemID string, kind domain.AlertKind) (time.Time, bool, error) {
	raw, err := r.client.Get(ctx, Key(itemID, kind)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("%w: redis get failed: %w", domain.ErrStoreUnavailable, err)
	}

	firedAt, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("decode fire time %q: %w", raw, err)
	}
	return firedAt, true, nil
}

// Purge deletes every notification record. Operational use only.
func (r *Redis) Purge(ctx context.Context) error {
	return cache.DeleteKeysWithPrefix(ctx, r.client, keyPrefix+":", purgeScanBatchSize)
}

func (r *Redis) Close() error {
	return r.client.Close()
}

var _ Ledger = (*Redis)(nil)
