package wire

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"np-blogger/internal/config"
	"np-blogger/internal/infrastructure/persistence/redis"
	apperrors "np-blogger/pkg/errors"
)

func TestLockerSharedBetweenGatewayAndWorker(t *testing.T) {
	cfg, err := config.LoadFrom(t.TempDir())
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	newClient := func() *redis.Client {
		rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = rdb.Close() })
		return redis.NewClientFromRedis(rdb)
	}

	gateway, err := ProvideLocker(cfg, newClient())
	require.NoError(t, err)
	worker, err := ProvideLocker(cfg, newClient())
	require.NoError(t, err)

	ctx := context.Background()
	release, err := gateway.TryLock(ctx, "lock:sync:42")
	require.NoError(t, err)

	_, err = worker.TryLock(ctx, "lock:sync:42")
	assert.ErrorIs(t, err, apperrors.ErrSyncAlreadyInProgress)

	release()
	release, err = worker.TryLock(ctx, "lock:sync:42")
	require.NoError(t, err)
	release()
}

func TestLockerRequiresRedisClient(t *testing.T) {
	cfg, err := config.LoadFrom(t.TempDir())
	require.NoError(t, err)

	_, err = ProvideLocker(cfg, nil)
	assert.Error(t, err)
}
