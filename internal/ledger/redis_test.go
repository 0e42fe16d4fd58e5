package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/stockalert/internal/config"
	"github.com/andresuchdata/stockalert/internal/domain"
	"github.com/andresuchdata/stockalert/internal/ledger"
)

func newRedisLedger(t *testing.T) (*ledger.Redis, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	l := ledger.NewRedisFromClient(client, nil)
	t.Cleanup(func() { _ = l.Close() })

	return l, mr
}

func TestRedis_TryFireSetsKeyWithTTL(t *testing.T) {
	l, mr := newRedisLedger(t)
	ctx := context.Background()

	fired, err := l.TryFire(ctx, "medicine:42", domain.AlertLowStock, ledger.DefaultWindow)
	require.NoError(t, err)
	assert.True(t, fired)

	assert.True(t, mr.Exists("notified:low_stock:medicine:42"))
	assert.Equal(t, ledger.DefaultWindow, mr.TTL("notified:low_stock:medicine:42"))

	fired, err = l.TryFire(ctx, "medicine:42", domain.AlertLowStock, ledger.DefaultWindow)
	require.NoError(t, err)
	assert.False(t, fired)
}

func TestRedis_FiresAgainAfterTTL(t *testing.T) {
	l, mr := newRedisLedger(t)
	ctx := context.Background()

	fired, err := l.TryFire(ctx, "vaccine:1", domain.AlertExpired, 2*time.Hour)
	require.NoError(t, err)
	require.True(t, fired)

	_, ok, err := l.FiredAt(ctx, "vaccine:1", domain.AlertExpired)
	require.NoError(t, err)
	assert.True(t, ok)

	mr.FastForward(2 * time.Hour)

	_, ok, err = l.FiredAt(ctx, "vaccine:1", domain.AlertExpired)
	require.NoError(t, err)
	assert.False(t, ok)

	fired, err = l.TryFire(ctx, "vaccine:1", domain.AlertExpired, 2*time.Hour)
	require.NoError(t, err)
	assert.True(t, fired)
}

func TestRedis_ReleaseAndPurge(t *testing.T) {
	l, mr := newRedisLedger(t)
	ctx := context.Background()

	for _, id := range []string{"medicine:1", "medicine:2", "commodity:3"} {
		_, err := l.TryFire(ctx, id, domain.AlertOutOfStock, time.Hour)
		require.NoError(t, err)
	}
	require.NoError(t, mr.Set("unrelated", "keep"))

	require.NoError(t, l.Release(ctx, "medicine:1", domain.AlertOutOfStock))
	assert.False(t, mr.Exists("notified:out_of_stock:medicine:1"))

	require.NoError(t, l.Purge(ctx))
	assert.False(t, mr.Exists("notified:out_of_stock:medicine:2"))
	assert.False(t, mr.Exists("notified:out_of_stock:commodity:3"))
	assert.True(t, mr.Exists("unrelated"))
}

func TestRedis_UnavailableStore(t *testing.T) {
	l, mr := newRedisLedger(t)
	mr.Close()

	fired, err := l.TryFire(context.Background(), "medicine:1", domain.AlertLowStock, time.Hour)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.False(t, fired)
}

func TestNewRedis_PingFailure(t *testing.T) {
	_, err := ledger.NewRedis(config.CacheConfig{RedisHost: "127.0.0.1", RedisPort: "1"})
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

func TestNewRedis_FromURL(t *testing.T) {
	mr := miniredis.RunT(t)

	l, err := ledger.NewRedis(config.CacheConfig{RedisURL: "redis://" + mr.Addr() + "/0"})
	require.NoError(t, err)
	defer l.Close()

	fired, err := l.TryFire(context.Background(), "first_aid:2", domain.AlertNearExpiry, time.Hour)
	require.NoError(t, err)
	assert.True(t, fired)
}
