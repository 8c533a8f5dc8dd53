package order

import (
	"math/big"
	"sync/atomic"
	"time"
)

// SaltFunc 生成订单盐值
type SaltFunc func(now time.Time) *big.Int

// TimeSalt 盐值 = 当前时间 + 有效期（毫秒时间戳）
func TimeSalt(now time.Time, validity time.Duration) *big.Int {
	return big.NewInt(now.Add(validity).UnixMilli())
}

// SaltSource 基于时间的盐值生成器
// 同一毫秒内多次生成时顺延 1，保证同一进程内盐值严格递增。
type SaltSource struct {
	validity time.Duration
	last     atomic.Int64
}

// NewSaltSource 创建盐值生成器
func NewSaltSource(validity time.Duration) *SaltSource {
	return &SaltSource{validity: validity}
}

// Next 生成下一个盐值
func (s *SaltSource) Next(now time.Time) *big.Int {
	v := TimeSalt(now, s.validity).Int64()
	for {
		last := s.last.Load()
		next := v
		if next <= last {
			next = last + 1
		}
		if s.last.CompareAndSwap(last, next) {
			return big.NewInt(next)
		}
	}
}
