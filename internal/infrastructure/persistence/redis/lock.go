package redis

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "np-blogger/pkg/errors"
	"np-blogger/pkg/logger"
)

// releaseScript 仅在令牌匹配时删除，避免误删他人持有的锁
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker 基于 SET NX PX 的分布式锁。TTL 需大于任务超时。
type Locker struct {
	client *Client
	ttl    time.Duration
}

// NewLocker 创建分布式锁
func NewLocker(client *Client, ttl time.Duration) *Locker {
	return &Locker{client: client, ttl: ttl}
}

// TryLock 尝试获取锁，已被占用时返回 ErrSyncAlreadyInProgress
func (l *Locker) TryLock(ctx context.Context, key string) (func(), error) {
	ctx, span := tracer.Start(ctx, "redis.Locker.TryLock",
		trace.WithAttributes(attribute.String("lock.key", key)))
	defer span.End()

	token := uuid.NewString()
	ok, err := l.client.rdb.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		span.RecordError(err)
		return nil, apperrors.Wrap(err, apperrors.CodeCacheError, "failed to acquire lock")
	}
	if !ok {
		span.SetAttributes(attribute.Bool("lock.acquired", false))
		return nil, apperrors.ErrSyncAlreadyInProgress.WithDetail(key)
	}
	span.SetAttributes(attribute.Bool("lock.acquired", true))

	var once sync.Once
	return func() {
		once.Do(func() { l.release(ctx, key, token) })
	}, nil
}

func (l *Locker) release(ctx context.Context, key, token string) {
	// 调用方上下文可能已取消，释放使用独立上下文
	relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()
	if err := releaseScript.Run(relCtx, l.client.rdb, []string{key}, token).Err(); err != nil {
		logger.Warn(ctx, "failed to release lock", "key", key, "error", err.Error())
	}
}
