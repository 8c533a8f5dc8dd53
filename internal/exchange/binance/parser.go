package binance

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"binary-edge-trader/internal/core/model"
)

// Parser bookTicker 消息解析器
type Parser struct {
	// pairs 已订阅交易对（大写），用于过滤
	pairs map[string]struct{}
	// now 时钟
	now func() time.Time
}

// NewParser 创建解析器
// 参数 pairs: 订阅的交易对，如 BTCUSDT
func NewParser(pairs []string) *Parser {
	set := make(map[string]struct{}, len(pairs))
	for _, p := range pairs {
		set[strings.ToUpper(p)] = struct{}{}
	}
	return &Parser{pairs: set, now: time.Now}
}

// Parse 解析 WebSocket 消息
// 参数 data: 原始消息字节
// 返回: 0 或 1 个 PriceTick（订阅响应、未订阅交易对返回空）
func (p *Parser) Parse(data []byte) ([]*model.PriceTick, error) {
	arrivedAt := p.now()

	var msg BookTicker
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("解析 Binance 消息失败: %w", err)
	}

	symbol := strings.ToUpper(msg.Symbol)
	if symbol == "" {
		return nil, nil
	}
	if _, ok := p.pairs[symbol]; !ok {
		return nil, nil
	}

	bid, err := strconv.ParseFloat(msg.BidPx, 64)
	if err != nil {
		return nil, fmt.Errorf("解析 %s 买价失败: %w", symbol, err)
	}
	ask, err := strconv.ParseFloat(msg.AskPx, 64)
	if err != nil {
		return nil, fmt.Errorf("解析 %s 卖价失败: %w", symbol, err)
	}

	tick := &model.PriceTick{
		Symbol:    symbol,
		Bid:       bid,
		Ask:       ask,
		UpdateID:  msg.UpdateID,
		ArrivedAt: arrivedAt,
	}
	if !tick.IsValid() {
		return nil, fmt.Errorf("无效的 %s 报价: bid=%v ask=%v", symbol, bid, ask)
	}
	return []*model.PriceTick{tick}, nil
}
