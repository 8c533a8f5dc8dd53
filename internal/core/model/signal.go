package model

// Direction 信号方向
type Direction string

const (
	// DirectionNone 无信号
	DirectionNone Direction = "NONE"
	// DirectionBuyPrimary 买入 YES 结果
	// 模型概率 - 市场概率 > 边际阈值
	DirectionBuyPrimary Direction = "BUY_PRIMARY"
	// DirectionBuyOpposite 买入 NO 结果
	// 市场概率 - 模型概率 > 边际阈值
	DirectionBuyOpposite Direction = "BUY_OPPOSITE"
)

// Signal 边际检测结果
// 每次评估重新计算，不持久化也不修改
type Signal struct {
	// Direction 方向
	Direction Direction `json:"direction"`
	// Confidence 置信度 = |模型概率 - 市场概率|，无信号时为 0
	Confidence float64 `json:"confidence"`
	// ModelProb 模型概率
	ModelProb float64 `json:"model_prob"`
	// MarketProb 市场隐含概率
	MarketProb float64 `json:"market_prob"`
	// Actionable 置信度是否超过资金门槛
	Actionable bool `json:"actionable"`
	// Strategy 产生信号的策略名
	Strategy string `json:"strategy,omitempty"`
}

// IsNone 判断是否无信号
func (s *Signal) IsNone() bool {
	return s.Direction == DirectionNone || s.Direction == ""
}

// WinProbability 所选结果的模型胜率
// BUY_PRIMARY 取模型概率，BUY_OPPOSITE 取其补
func (s *Signal) WinProbability() float64 {
	if s.Direction == DirectionBuyOpposite {
		return 1 - s.ModelProb
	}
	return s.ModelProb
}

// OutcomePrice 所选结果代币的价格（0-1）
// NO 代币价格近似为 1 - YES 最优卖价
func (s *Signal) OutcomePrice() float64 {
	if s.Direction == DirectionBuyOpposite {
		return 1 - s.MarketProb
	}
	return s.MarketProb
}

// SizedOrderIntent 定仓结果
// Amount 为 0 表示不交易
type SizedOrderIntent struct {
	// Direction 方向
	Direction Direction `json:"direction"`
	// Amount 下单金额（报价货币）
	Amount float64 `json:"amount"`
	// Confidence 置信度
	Confidence float64 `json:"confidence"`
	// PriceCents 限价（美分，1-99）
	PriceCents int64 `json:"price_cents"`
	// TokenID 目标结果代币
	TokenID string `json:"token_id"`
}

// IsTrade 金额是否为正
func (i *SizedOrderIntent) IsTrade() bool {
	return i.Amount > 0
}
