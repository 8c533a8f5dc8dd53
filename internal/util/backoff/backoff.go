// Package backoff 实现带抖动的指数退避。
// 行情 WebSocket 断线重连与订单簿 HTTP 重试共用；默认基础间隔 1s、上限 30s、抖动 ±20%。
package backoff

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Backoff 指数退避计算器
// 可被多个 goroutine 共享
type Backoff struct {
	base   time.Duration
	max    time.Duration
	jitter float64

	mu      sync.Mutex
	attempt int
}

// New 创建退避计算器
// 参数 base: 基础等待时间
// 参数 max: 最大等待时间（抖动前）
// 参数 jitter: 抖动比例（0-1），0.2 表示 ±20%
func New(base, max time.Duration, jitter float64) *Backoff {
	return &Backoff{base: base, max: max, jitter: jitter}
}

// NewDefault 基础 1s、上限 30s、抖动 ±20%
func NewDefault() *Backoff {
	return New(time.Second, 30*time.Second, 0.2)
}

// Next 返回下一次等待时间 base·2^attempt（截断到 max 后再加抖动）
func (b *Backoff) Next() time.Duration {
	b.mu.Lock()
	shift := b.attempt
	b.attempt++
	b.mu.Unlock()

	// base<<shift 超过 max 之前先比较，避免溢出
	delay := b.max
	if shift < 63 && b.base <= b.max>>uint(shift) {
		delay = b.base << uint(shift)
	}

	if b.jitter > 0 {
		factor := 1.0 + (rand.Float64()*2-1)*b.jitter
		delay = time.Duration(float64(delay) * factor)
	}
	return delay
}

// Wait 等待下一次退避时间
// 返回: ctx 取消时返回 ctx.Err()
func (b *Backoff) Wait(ctx context.Context) error {
	t := time.NewTimer(b.Next())
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Reset 连接或请求成功后重置
func (b *Backoff) Reset() {
	b.mu.Lock()
	b.attempt = 0
	b.mu.Unlock()
}

// Attempt 当前重试次数
func (b *Backoff) Attempt() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.attempt
}
