package binance

// SubscribeRequest Binance WebSocket 订阅请求
type SubscribeRequest struct {
	// Method 订阅方法: SUBSCRIBE
	Method string `json:"method"`
	// Params 订阅参数列表，如 "btcusdt@bookTicker"
	Params []string `json:"params"`
	// ID 请求 ID
	ID int64 `json:"id"`
}

// BookTicker 最优挂单推送（<symbol>@bookTicker）
// 字段映射：
// - u: 更新序号 -> PriceTick.UpdateID
// - s: 交易对（大写） -> PriceTick.Symbol
// - b/B: 最优买价/买量（字符串）
// - a/A: 最优卖价/卖量（字符串）
// 订阅响应 {"result":null,"id":1} 没有 s 字段，解析时忽略。
type BookTicker struct {
	UpdateID int64  `json:"u"`
	Symbol   string `json:"s"`
	BidPx    string `json:"b"`
	BidQty   string `json:"B"`
	AskPx    string `json:"a"`
	AskQty   string `json:"A"`
}

// ConnectionMetrics 连接质量指标
type ConnectionMetrics struct {
	// ReconnectCount 重连次数
	ReconnectCount int64
	// ParseErrorCount 解析错误次数
	ParseErrorCount int64
	// UpdatesPerSec 每秒更新次数
	UpdatesPerSec float64
	// LastMessageAgeMs 最后消息距今时间（毫秒）
	LastMessageAgeMs int64
	// DroppedTicks 通道已满被丢弃的报价数
	DroppedTicks int64
	// StalePairs 超过读超时未更新的交易对
	StalePairs []string
}
