package cvedb

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// NVD 官方速率建议：有API Key时每0.6秒一次，没有时每6秒一次
const (
	DefaultIntervalWithKey    = 600 * time.Millisecond
	DefaultIntervalWithoutKey = 6 * time.Second
	DefaultMaxInterval        = 30 * time.Second
)

// Limiter 在发起请求前阻塞，直到允许发出下一次调用
type Limiter interface {
	Wait(ctx context.Context) error
}

// Widener 收到限流信号后可以放宽请求间隔的限速器
type Widener interface {
	Widen() time.Duration
}

// RateLimiter 所有情报查询共享的令牌桶限速器
type RateLimiter struct {
	mu       sync.Mutex
	limiter  *rate.Limiter
	interval time.Duration
	max      time.Duration
}

// NewRateLimiter 创建固定最小间隔的限速器
func NewRateLimiter(interval, max time.Duration) *RateLimiter {
	if interval <= 0 {
		interval = DefaultIntervalWithoutKey
	}
	if max < interval {
		max = interval
	}
	return &RateLimiter{
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
		interval: interval,
		max:      max,
	}
}

// NewNVDRateLimiter 根据是否配置了API Key选择请求间隔
func NewNVDRateLimiter(hasAPIKey bool, withKey, withoutKey, max time.Duration) *RateLimiter {
	if withKey <= 0 {
		withKey = DefaultIntervalWithKey
	}
	if withoutKey <= 0 {
		withoutKey = DefaultIntervalWithoutKey
	}
	if max <= 0 {
		max = DefaultMaxInterval
	}

	if hasAPIKey {
		return NewRateLimiter(withKey, max)
	}
	return NewRateLimiter(withoutKey, max)
}

func (rl *RateLimiter) Wait(ctx context.Context) error {
	return rl.limiter.Wait(ctx)
}

// Widen 将请求间隔加倍（不超过上限），返回新的间隔
func (rl *RateLimiter) Widen() time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	next := rl.interval * 2
	if next > rl.max {
		next = rl.max
	}
	if next != rl.interval {
		rl.interval = next
		rl.limiter.SetLimit(rate.Every(next))
	}
	return rl.interval
}

// Interval 当前的最小请求间隔
func (rl *RateLimiter) Interval() time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.interval
}

// NoopLimiter 不做任何限制，测试使用
type NoopLimiter struct{}

func (NoopLimiter) Wait(ctx context.Context) error {
	return ctx.Err()
}
