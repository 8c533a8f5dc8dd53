// Package signal 实现边际检测与策略分发。
//
// 两道门槛构成粗筛 + 精筛：
//   - 粗筛：模型概率落在 [BookFetchLow, BookFetchHigh] 之外才值得拉取订单簿；
//     边际超过 Edge 才给出方向。
//   - 精筛：置信度超过 Confidence 才动用资金。
package signal

import (
	"binary-edge-trader/internal/config"
	"binary-edge-trader/internal/core/model"
)

// Thresholds 边际检测门槛
type Thresholds struct {
	// Edge 方向门槛，|模型概率 - 市场概率| 需严格大于该值
	Edge float64
	// Confidence 资金门槛，置信度需严格大于该值
	Confidence float64
}

// ThresholdsFrom 从策略配置构造门槛
func ThresholdsFrom(cfg config.StrategyConfig) Thresholds {
	return Thresholds{Edge: cfg.EdgeThreshold, Confidence: cfg.ConfidenceThreshold}
}

// Detect 比较模型概率与市场隐含概率
// 参数 modelProb: 模型概率
// 参数 marketProb: 市场隐含概率（YES 最优卖价）
// 参数 th: 门槛
// 返回: 方向、置信度与是否可执行
func Detect(modelProb, marketProb float64, th Thresholds) model.Signal {
	sig := model.Signal{
		Direction:  model.DirectionNone,
		ModelProb:  modelProb,
		MarketProb: marketProb,
	}

	edge := modelProb - marketProb
	switch {
	case edge > th.Edge:
		sig.Direction = model.DirectionBuyPrimary
		sig.Confidence = edge
	case -edge > th.Edge:
		sig.Direction = model.DirectionBuyOpposite
		sig.Confidence = -edge
	default:
		return sig
	}

	sig.Actionable = sig.Confidence > th.Confidence
	return sig
}

// NeedsBook 粗筛：模型概率足够极端时才拉取订单簿
// 参数 modelProb: 模型概率
// 参数 low, high: 区间边界，区间内（含边界）不拉取
func NeedsBook(modelProb, low, high float64) bool {
	return modelProb < low || modelProb > high
}

// Strategy 边际检测策略
// 新策略只需实现 Evaluate，不影响定仓与签名阶段
type Strategy interface {
	// Name 策略名，写入 Signal.Strategy
	Name() string
	// Evaluate 对快照给出信号
	Evaluate(snap model.MarketSnapshot) model.Signal
}

// Engine 策略集合
// 依次评估所有策略，返回置信度最高的可执行信号；都不可执行时返回置信度最高的信号。
// 引擎本身不持有跨评估状态，可并发使用。
type Engine struct {
	strategies []Strategy
}

// NewEngine 创建策略引擎
func NewEngine(strategies ...Strategy) *Engine {
	return &Engine{strategies: strategies}
}

// Evaluate 评估快照
func (e *Engine) Evaluate(snap model.MarketSnapshot) model.Signal {
	best := model.Signal{Direction: model.DirectionNone, MarketProb: snap.MarketProb}
	found := false

	for _, s := range e.strategies {
		sig := s.Evaluate(snap)
		sig.Strategy = s.Name()
		if !found {
			best, found = sig, true
			continue
		}
		if better(sig, best) {
			best = sig
		}
	}
	return best
}

func better(a, b model.Signal) bool {
	if a.Actionable != b.Actionable {
		return a.Actionable
	}
	return a.Confidence > b.Confidence
}
