package jsonl

import (
	"errors"
	"fmt"
	"path/filepath"

	"binary-edge-trader/internal/config"
	"binary-edge-trader/internal/core/model"
	"binary-edge-trader/internal/core/pipeline"
)

const (
	// KindEvaluation 评估记录
	KindEvaluation = "evaluation"
	// KindOrder 签名订单
	KindOrder = "order"
)

// OrderEntry 交给执行方的签名订单
type OrderEntry struct {
	MarketSlug string           `json:"market_slug"`
	TokenID    string           `json:"token_id"`
	Direction  model.Direction  `json:"direction"`
	Amount     float64          `json:"amount"`
	Submission model.Submission `json:"submission"`
}

// Sink 评估与订单输出
// 未启用的输出为 nil，写入时直接忽略
type Sink struct {
	evaluations *Writer
	orders      *Writer
}

// NewSink 按输出配置创建 evaluations.jsonl 与 orders.jsonl
func NewSink(cfg config.OutputConfig) (*Sink, error) {
	s := &Sink{}
	var err error
	if cfg.EvaluationsEnabled {
		s.evaluations, err = NewWriter(filepath.Join(cfg.Dir, "evaluations.jsonl"), KindEvaluation, cfg.BufferSize)
		if err != nil {
			return nil, err
		}
	}
	if cfg.OrdersEnabled {
		s.orders, err = NewWriter(filepath.Join(cfg.Dir, "orders.jsonl"), KindOrder, cfg.BufferSize)
		if err != nil {
			_ = s.Close()
			return nil, err
		}
	}
	return s, nil
}

// WriteDecision 写入评估记录；已签名时同时写入订单
// 返回: 订单记录 ID（未写订单时为空）
func (s *Sink) WriteDecision(d pipeline.Decision) (string, error) {
	if s.evaluations != nil {
		if _, err := s.evaluations.Write(d); err != nil {
			return "", fmt.Errorf("写入评估记录失败: %w", err)
		}
	}
	if d.Order == nil || s.orders == nil {
		return "", nil
	}
	id, err := s.orders.Write(OrderEntry{
		MarketSlug: d.Order.MarketSlug(),
		TokenID:    d.Order.TokenID(),
		Direction:  d.Intent.Direction,
		Amount:     d.Intent.Amount,
		Submission: d.Order.Payload(),
	})
	if err != nil {
		return "", fmt.Errorf("写入订单失败: %w", err)
	}
	return id, nil
}

// Failed 所有输出中写入失败的记录数
func (s *Sink) Failed() int64 {
	var n int64
	if s.evaluations != nil {
		n += s.evaluations.Failed()
	}
	if s.orders != nil {
		n += s.orders.Failed()
	}
	return n
}

// Flush 刷新所有输出
func (s *Sink) Flush() error {
	return errors.Join(s.evaluations.Flush(), s.orders.Flush())
}

// Close 关闭所有输出
func (s *Sink) Close() error {
	return errors.Join(s.evaluations.Close(), s.orders.Close())
}
