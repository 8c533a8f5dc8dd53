// Package store 缓存每个交易对的最新标的报价。
// 行情 goroutine 单写，定时扫描任务并发读取。
package store

import (
	"strings"
	"sync"
	"time"

	"binary-edge-trader/internal/core/model"
)

// PriceStore 最新报价缓存
type PriceStore struct {
	mu    sync.RWMutex
	ticks map[string]model.PriceTick
}

// New 创建报价缓存
func New() *PriceStore {
	return &PriceStore{ticks: make(map[string]model.PriceTick)}
}

// Update 更新报价
// 无效报价与序号回退的报价被忽略
func (s *PriceStore) Update(t *model.PriceTick) {
	if t == nil || t.Symbol == "" || !t.IsValid() {
		return
	}
	key := strings.ToUpper(t.Symbol)

	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.ticks[key]; ok && t.UpdateID != 0 && t.UpdateID < prev.UpdateID {
		return
	}
	s.ticks[key] = *t
}

// Get 获取交易对最新报价（值拷贝）
func (s *PriceStore) Get(symbol string) (model.PriceTick, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.ticks[strings.ToUpper(symbol)]
	return t, ok
}

// Mid 获取交易对中间价
// 参数 maxAge: 最大允许的报价年龄，0 表示不检查
// 返回: 无报价或报价过旧时 ok=false
func (s *PriceStore) Mid(symbol string, now time.Time, maxAge time.Duration) (float64, bool) {
	t, ok := s.Get(symbol)
	if !ok {
		return 0, false
	}
	if maxAge > 0 && now.Sub(t.ArrivedAt) > maxAge {
		return 0, false
	}
	return t.Mid(), true
}

// Len 已缓存交易对数量
func (s *PriceStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ticks)
}
