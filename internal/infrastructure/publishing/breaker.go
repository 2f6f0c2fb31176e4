package publishing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"np-blogger/internal/application/scheduler"
	"np-blogger/internal/config"
	"np-blogger/internal/domain/entity"
	"np-blogger/pkg/logger"
)

// BreakerAdapter 为发布适配器加熔断，熔断打开时直接失败
type BreakerAdapter struct {
	next    scheduler.PublishingAdapter
	breaker *gobreaker.CircuitBreaker
}

// WithBreaker 包装适配器
func WithBreaker(next scheduler.PublishingAdapter, cfg config.BreakerConfig) *BreakerAdapter {
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = 1
	}
	if cfg.Interval == 0 {
		cfg.Interval = 60 * time.Second
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}

	settings := gobreaker.Settings{
		Name:        next.Platform(),
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn(context.Background(), "publishing breaker state changed",
				"platform", name, "from", from.String(), "to", to.String())
		},
		// 调用方取消不计入平台失败
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	}
	return &BreakerAdapter{next: next, breaker: gobreaker.NewCircuitBreaker(settings)}
}

// Platform 平台名称
func (a *BreakerAdapter) Platform() string { return a.next.Platform() }

// State 当前熔断状态
func (a *BreakerAdapter) State() gobreaker.State { return a.breaker.State() }

// Publish 经熔断器调用下游适配器
func (a *BreakerAdapter) Publish(ctx context.Context, req *scheduler.PublishRequest) (*entity.PublishResult, error) {
	out, err := a.breaker.Execute(func() (interface{}, error) {
		return a.next.Publish(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%s circuit open: %w", a.Platform(), err)
		}
		return nil, err
	}
	res, _ := out.(*entity.PublishResult)
	return res, nil
}
