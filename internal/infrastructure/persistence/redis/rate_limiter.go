package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"

	apperrors "np-blogger/pkg/errors"
)

// RateLimiter 滑动窗口限流器，每个请求以有序集合成员记录
type RateLimiter struct {
	client *Client
	now    func() time.Time
}

// NewRateLimiter 创建限流器
func NewRateLimiter(client *Client) *RateLimiter {
	return &RateLimiter{client: client, now: time.Now}
}

// Allow 检查并记录一次请求
func (l *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	ctx, span := tracer.Start(ctx, "ratelimit.Allow")
	span.SetAttributes(
		attribute.String("ratelimit.key", key),
		attribute.Int("ratelimit.limit", limit),
		attribute.Int64("ratelimit.window_ms", window.Milliseconds()),
	)
	defer span.End()

	count, err := l.count(ctx, key, window)
	if err != nil {
		span.RecordError(err)
		return false, err
	}
	span.SetAttributes(attribute.Int64("ratelimit.current_count", count))
	if count >= int64(limit) {
		span.SetAttributes(attribute.Bool("ratelimit.allowed", false))
		return false, nil
	}

	now := l.now().UnixMilli()
	_, err = l.client.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		// 同一毫秒内的请求需要不同成员
		pipe.ZAdd(ctx, key, redis.Z{Score: float64(now), Member: uuid.NewString()})
		pipe.Expire(ctx, key, window*2)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return false, apperrors.Wrap(err, apperrors.CodeCacheError, "rate limit record failed")
	}

	span.SetAttributes(attribute.Bool("ratelimit.allowed", true))
	return true, nil
}

// Remaining 获取窗口内剩余配额
func (l *RateLimiter) Remaining(ctx context.Context, key string, limit int, window time.Duration) (int, error) {
	ctx, span := tracer.Start(ctx, "ratelimit.Remaining")
	span.SetAttributes(attribute.String("ratelimit.key", key))
	defer span.End()

	count, err := l.count(ctx, key, window)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	remaining := limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	span.SetAttributes(attribute.Int("ratelimit.remaining", remaining))
	return remaining, nil
}

// Reset 重置限流计数
func (l *RateLimiter) Reset(ctx context.Context, key string) error {
	return l.client.rdb.Del(ctx, key).Err()
}

// count 清理过期成员并返回窗口内请求数
func (l *RateLimiter) count(ctx context.Context, key string, window time.Duration) (int64, error) {
	windowStart := l.now().Add(-window).UnixMilli()

	pipe := l.client.rdb.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart, 10))
	countCmd := pipe.ZCard(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, apperrors.Wrap(err, apperrors.CodeCacheError, "rate limit lookup failed")
	}
	return countCmd.Val(), nil
}

// BuildRateLimitKey 构建限流键，clientKey 通常为客户端 IP
func BuildRateLimitKey(clientKey, endpoint string) string {
	return fmt.Sprintf("ratelimit:%s:%s", clientKey, endpoint)
}
