// Package model 定义定价管线中使用的核心数据结构。
// 包含市场参数、行情快照、订单簿、信号与订单记录等值类型。
// 所有类型均按值在各阶段之间传递，不持有跨评估的可变状态。
package model

import (
	"time"
)

// MarketType 市场类型
// 不同市场类型对应不同的验签合约地址
type MarketType string

const (
	// MarketCLOB 普通 CLOB 市场
	MarketCLOB MarketType = "CLOB"
	// MarketNegRisk NegRisk 市场
	MarketNegRisk MarketType = "NEGRISK"
)

// MarketSpec 二元市场的静态参数
// 由市场元数据协作方提供（发现与标题解析不在本模块范围内）
type MarketSpec struct {
	// Slug 市场标识
	Slug string
	// Asset 标的资产，如 BTC
	Asset string
	// Strike 行权价（报价货币）
	Strike float64
	// Expiry 到期时间（ISO-8601，UTC 或带偏移）
	Expiry string
	// YesTokenID YES 结果代币 ID（十进制字符串）
	YesTokenID string
	// NoTokenID NO 结果代币 ID（十进制字符串）
	NoTokenID string
	// Type 市场类型: CLOB 或 NEGRISK
	Type MarketType
}

// TokenFor 按信号方向返回目标结果代币
func (m *MarketSpec) TokenFor(d Direction) string {
	if d == DirectionBuyOpposite {
		return m.NoTokenID
	}
	return m.YesTokenID
}

// MarketSnapshot 单次评估的完整输入
// 外部协作方已经完成网络 I/O，快照内均为已解析的值
type MarketSnapshot struct {
	// Market 市场参数
	Market MarketSpec
	// Underlying 标的当前价格
	Underlying float64
	// Volatility 年化波动率
	Volatility float64
	// RiskFreeRate 无风险利率
	RiskFreeRate float64
	// MarketProb 市场隐含概率（YES 最优卖价）
	MarketProb float64
	// Now 评估时刻
	Now time.Time
}

// Level 订单簿档位
type Level struct {
	// Price 价格（0-1 美元）
	Price float64
	// Size 数量（份额）
	Size float64
}

// Orderbook YES 代币订单簿
type Orderbook struct {
	// Bids 买盘，按价格降序
	Bids []Level
	// Asks 卖盘，按价格升序
	Asks []Level
}

// BestAsk 最优卖价
// 卖盘为空时返回 1.0（与无人出售等价，隐含概率取上限）
func (b *Orderbook) BestAsk() float64 {
	if b == nil || len(b.Asks) == 0 {
		return 1.0
	}
	return b.Asks[0].Price
}

// BestBid 最优买价，买盘为空时返回 0
func (b *Orderbook) BestBid() float64 {
	if b == nil || len(b.Bids) == 0 {
		return 0
	}
	return b.Bids[0].Price
}

// ImpliedProbability 市场隐含概率
// 取 YES 代币最优卖价
func (b *Orderbook) ImpliedProbability() float64 {
	return b.BestAsk()
}

// PriceTick 标的价格推送
type PriceTick struct {
	// Symbol 交易对，如 BTCUSDT
	Symbol string
	// Bid 最优买价
	Bid float64
	// Ask 最优卖价
	Ask float64
	// UpdateID 交易所更新序号
	UpdateID int64
	// ArrivedAt 本机收到时间
	ArrivedAt time.Time
}

// IsValid 买卖价均为正且不交叉
func (t *PriceTick) IsValid() bool {
	return t.Bid > 0 && t.Ask > 0 && t.Bid <= t.Ask
}

// Mid 中间价
func (t *PriceTick) Mid() float64 {
	return (t.Bid + t.Ask) / 2
}
