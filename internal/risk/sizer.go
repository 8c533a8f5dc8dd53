// Package risk 实现基于 Kelly 公式的仓位计算。
// f* = (b·p - q) / b，b = 赔率 - 1，q = 1 - p
// 最终金额 = 资金 × min(f*·kelly_fraction, max_portfolio_risk) × 期限系数
package risk

import (
	"math"

	"binary-edge-trader/internal/config"
)

const (
	// LongHorizonYears 超过该期限（约 36 天）视为远期，事件不确定性更高
	LongHorizonYears = 0.1
	// NearExpiryYears 低于该期限（约 1 天）视为临近到期，gamma 风险更高
	NearExpiryYears = 0.0027

	// LongHorizonMultiplier 远期系数
	LongHorizonMultiplier = 0.8
	// NearExpiryMultiplier 临近到期系数
	NearExpiryMultiplier = 0.5
)

// SizingInput 定仓输入
type SizingInput struct {
	// PortfolioBalance 可用资金（非负）
	PortfolioBalance float64
	// Confidence 胜率 p
	Confidence float64
	// DecimalOdds 小数赔率（每单位本金赢得的总回报）
	DecimalOdds float64
	// HorizonYears 剩余期限（年）
	HorizonYears float64
}

// Sizer 仓位计算器
// 只保存构造时确定的参数，可并发使用。
type Sizer struct {
	// KellyFraction 分数 Kelly 系数 (0,1]
	KellyFraction float64
	// MaxPortfolioRisk 单笔最大资金占比
	MaxPortfolioRisk float64
}

// NewSizer 按风控配置创建仓位计算器
func NewSizer(cfg config.RiskConfig) *Sizer {
	return &Sizer{
		KellyFraction:    cfg.KellyFraction,
		MaxPortfolioRisk: cfg.MaxPortfolioRisk,
	}
}

// Fraction 返回资金占比（已做分数 Kelly、上限与下限截断，不含期限系数）
func (s *Sizer) Fraction(p, decimalOdds float64) float64 {
	f := KellyFraction(p, decimalOdds) * s.KellyFraction
	f = math.Min(f, s.MaxPortfolioRisk)
	return math.Max(f, 0)
}

// Size 计算下单金额
// 任何退化输入（p<=0.5、赔率<=1、NaN）都返回 0，而不是错误
func (s *Sizer) Size(in SizingInput) float64 {
	if !(in.PortfolioBalance > 0) {
		return 0
	}
	f := s.Fraction(in.Confidence, in.DecimalOdds)
	if f == 0 {
		return 0
	}
	return in.PortfolioBalance * f * TimingMultiplier(in.HorizonYears)
}

// KellyFraction 完整 Kelly 比例
// p <= 0.5 或 b <= 0 时返回 0
func KellyFraction(p, decimalOdds float64) float64 {
	if !(p > 0.5) {
		return 0
	}
	b := decimalOdds - 1
	if !(b > 0) {
		return 0
	}
	q := 1 - p
	return (b*p - q) / b
}

// TimingMultiplier 期限系数（三段式）
//   - T > 0.1 年: 0.8
//   - T < 0.0027 年: 0.5
//   - 其余: 1.0
func TimingMultiplier(years float64) float64 {
	switch {
	case years > LongHorizonYears:
		return LongHorizonMultiplier
	case years < NearExpiryYears:
		return NearExpiryMultiplier
	default:
		return 1.0
	}
}

// DecimalOdds 由结果价格换算小数赔率 = 1 / price
// price <= 0 时返回 1.0（即无收益，定仓为 0）
func DecimalOdds(price float64) float64 {
	if !(price > 0) {
		return 1.0
	}
	return 1.0 / price
}

// Viable 金额是否达到最小交易规模
// 属于调用方的可交易性策略，与定仓数学分离
func Viable(amount, minTradeSize float64) bool {
	return amount > 0 && amount >= minTradeSize
}
