package generation

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	apperrors "np-blogger/pkg/errors"
	"np-blogger/pkg/logger"
	"np-blogger/pkg/metrics"
)

// RetryPolicy 提供方调用的有界指数退避策略
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
}

// DefaultRetryPolicy 默认策略
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     3,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		Multiplier:      2.0,
	}
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		eb.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		eb.MaxInterval = p.MaxInterval
	}
	if p.Multiplier > 0 {
		eb.Multiplier = p.Multiplier
	}
	eb.MaxElapsedTime = 0

	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(attempts-1)), ctx)
}

// isInputError 调用方输入导致的错误
func isInputError(err error) bool {
	return errors.Is(err, apperrors.ErrEmptyText) ||
		errors.Is(err, apperrors.ErrInvalidParam) ||
		errors.Is(err, apperrors.ErrSettingsInvalid)
}

// isPermanent 重试无法修复的错误，维度不符属于配置问题
func isPermanent(err error) bool {
	return isInputError(err) || errors.Is(err, apperrors.ErrInvalidVector)
}

// retry 执行 op，上下文取消、超时与输入类错误不重试
func retry[T any](ctx context.Context, p RetryPolicy, provider string, op func() (T, error)) (T, error) {
	attempt := 0
	return backoff.RetryNotifyWithData(func() (T, error) {
		attempt++
		v, err := op()
		if err == nil {
			return v, nil
		}
		if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || isPermanent(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, p.backOff(ctx), func(err error, wait time.Duration) {
		metrics.ProviderRetriesTotal.WithLabelValues(provider).Inc()
		logger.Warn(ctx, "provider call failed, retrying",
			"provider", provider,
			"attempt", attempt,
			"wait", wait.String(),
			"error", err.Error(),
		)
	})
}

type retryingEmbedder struct {
	next   EmbeddingProvider
	policy RetryPolicy
}

// WithEmbeddingRetry 为 EmbeddingProvider 增加重试
func WithEmbeddingRetry(next EmbeddingProvider, policy RetryPolicy) EmbeddingProvider {
	return &retryingEmbedder{next: next, policy: policy}
}

func (r *retryingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return retry(ctx, r.policy, "embedding", func() ([]float32, error) {
		return r.next.Embed(ctx, text)
	})
}

type retryingGenerator struct {
	next   GenerationProvider
	policy RetryPolicy
}

// WithGenerationRetry 为 GenerationProvider 增加重试
func WithGenerationRetry(next GenerationProvider, policy RetryPolicy) GenerationProvider {
	return &retryingGenerator{next: next, policy: policy}
}

func (r *retryingGenerator) Generate(ctx context.Context, topic string, references []string) (string, error) {
	return retry(ctx, r.policy, "generation", func() (string, error) {
		return r.next.Generate(ctx, topic, references)
	})
}
