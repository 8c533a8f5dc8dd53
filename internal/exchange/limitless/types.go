package limitless

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Number 兼容字符串与数字两种编码的数值
type Number float64

// UnmarshalJSON 接受 0.5 或 "0.5"
func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("无效的数值 %q: %w", s, err)
		}
		*n = Number(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*n = Number(v)
	return nil
}

// LevelJSON 订单簿档位
type LevelJSON struct {
	Price Number `json:"price"`
	Size  Number `json:"size"`
}

// OrderbookResponse GET /markets/{slug}/orderbook 响应
type OrderbookResponse struct {
	Bids    []LevelJSON `json:"bids"`
	Asks    []LevelJSON `json:"asks"`
	TokenID string      `json:"tokenId,omitempty"`
}
