package signal

import (
	"binary-edge-trader/internal/core/model"
	"binary-edge-trader/internal/pricing/horizon"
	"binary-edge-trader/internal/pricing/probability"
)

// FairValueStrategy 公允价值策略（"价格高于 X" 类市场）
// 用期限换算 + Black-Scholes N(d2) 得到模型概率，再与市场概率比较。
type FairValueStrategy struct {
	th Thresholds
}

// NewFairValueStrategy 创建公允价值策略
func NewFairValueStrategy(th Thresholds) *FairValueStrategy {
	return &FairValueStrategy{th: th}
}

// Name 策略名
func (s *FairValueStrategy) Name() string {
	return "fair_value"
}

// ModelProbability 计算快照的模型概率（带来源标记）
func (s *FairValueStrategy) ModelProbability(snap model.MarketSnapshot) (horizon.Horizon, probability.Result) {
	h := horizon.Resolve(snap.Market.Expiry, snap.Now)
	r := probability.Estimate(snap.Underlying, snap.Market.Strike, h.Years, snap.Volatility, snap.RiskFreeRate)
	return h, r
}

// Evaluate 对快照给出信号
// 非法输入回退的 0 概率不会产生信号，避免把数据问题当作定价机会
func (s *FairValueStrategy) Evaluate(snap model.MarketSnapshot) model.Signal {
	_, r := s.ModelProbability(snap)
	if r.IsFallback() {
		return model.Signal{
			Direction:  model.DirectionNone,
			ModelProb:  r.Value,
			MarketProb: snap.MarketProb,
		}
	}
	return Detect(r.Value, snap.MarketProb, s.th)
}
