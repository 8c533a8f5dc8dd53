// Package probability 实现二元结果的公允概率估计。
// 使用 Black-Scholes 风险中性下的到期价内概率 N(d2):
//
//	d2 = (ln(S/K) + (r - σ²/2)·T) / (σ·√T)
//	Φ(x) = (1 + erf(x/√2)) / 2
//
// 输入非法时不返回错误，而是返回带来源标记的 0，由调用方区分。
package probability

import (
	"math"
)

// Source 估计值来源
type Source string

const (
	// SourceModel 正常模型估计
	SourceModel Source = "model"
	// SourceExpired 期限为 0，按当前价与行权价直接判定
	SourceExpired Source = "expired"
	// SourceInvalidInput 价格、行权价或波动率非法，保守回退为 0
	SourceInvalidInput Source = "invalid_input"
)

// erfSaturation erf 参数超过该值时直接饱和到 ±1
const erfSaturation = 6.0

// Result 带来源标记的概率估计
type Result struct {
	// Value 概率，位于 [0, 1]
	Value float64
	// Source 来源
	Source Source
}

// IsFallback 是否为非法输入导致的回退值
func (r Result) IsFallback() bool {
	return r.Source == SourceInvalidInput
}

// Estimate 计算当前值在到期时高于行权价的风险中性概率
// 参数 current: 标的当前价格
// 参数 strike: 行权价
// 参数 years: 剩余期限（年），0 表示已到期
// 参数 volatility: 年化波动率
// 参数 riskFreeRate: 无风险利率
func Estimate(current, strike, years, volatility, riskFreeRate float64) Result {
	if years <= 0 {
		if current > strike {
			return Result{Value: 1, Source: SourceExpired}
		}
		return Result{Value: 0, Source: SourceExpired}
	}
	if !(current > 0) || !(strike > 0) || !(volatility > 0) || math.IsInf(current, 0) || math.IsInf(strike, 0) {
		return Result{Value: 0, Source: SourceInvalidInput}
	}

	denom := volatility * math.Sqrt(years)
	d2 := (math.Log(current/strike) + (riskFreeRate-0.5*volatility*volatility)*years) / denom
	if math.IsNaN(d2) {
		return Result{Value: 0, Source: SourceInvalidInput}
	}
	return Result{Value: NormCDF(d2), Source: SourceModel}
}

// Probability 仅返回概率值
func Probability(current, strike, years, volatility, riskFreeRate float64) float64 {
	return Estimate(current, strike, years, volatility, riskFreeRate).Value
}

// NormCDF 标准正态分布函数
// erf 参数在 [-6, 6] 之外直接饱和
func NormCDF(x float64) float64 {
	z := x / math.Sqrt2
	switch {
	case z >= erfSaturation:
		return 1
	case z <= -erfSaturation:
		return 0
	}
	p := (1 + math.Erf(z)) / 2
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
