// Package order 负责把定仓结果转换为可签名的订单记录并完成 EIP-712 签名。
//
// 上游的概率与定仓计算都使用浮点数；金额在本包中转为定点整数，
// 舍入（四舍五入，远离零）只在 ScaleAmounts 中发生一次。
package order

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"binary-edge-trader/internal/core/model"
)

const (
	// lotSizeScale 份额精度（小数位）
	lotSizeScale = 2
	// minPriceCents 最低限价
	minPriceCents = 1
	// maxPriceCents 最高限价
	maxPriceCents = 99
)

// Amounts 按精度放大后的成交金额
type Amounts struct {
	// Maker maker 付出的数量
	Maker *big.Int
	// Taker maker 期望得到的数量
	Taker *big.Int
}

// ScaleAmounts 计算定点金额
// 参数 side: 买卖方向
// 参数 priceCents: 限价（美分）
// 参数 qty: 份额数量
// 参数 decimals: 精度位数（如 6）
// 返回: BUY 时 maker = round(价格×数量×10^d)、taker = round(数量×10^d)；SELL 时两者互换
func ScaleAmounts(side model.Side, priceCents int64, qty decimal.Decimal, decimals int32) (Amounts, error) {
	if priceCents <= 0 {
		return Amounts{}, fmt.Errorf("%w: 价格 %d 美分", ErrInvalidAmount, priceCents)
	}
	if !qty.IsPositive() {
		return Amounts{}, fmt.Errorf("%w: 数量 %s", ErrInvalidAmount, qty.String())
	}
	if decimals < 0 {
		return Amounts{}, fmt.Errorf("%w: 精度 %d", ErrInvalidAmount, decimals)
	}

	price := decimal.New(priceCents, -2)
	quote := price.Mul(qty).Shift(decimals).Round(0).BigInt()
	shares := qty.Shift(decimals).Round(0).BigInt()

	if side == model.SideSell {
		return Amounts{Maker: shares, Taker: quote}, nil
	}
	return Amounts{Maker: quote, Taker: shares}, nil
}

// Quantity 由下单金额与限价换算份额，截断到 2 位小数
func Quantity(amount float64, priceCents int64) decimal.Decimal {
	if priceCents <= 0 || !(amount > 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(amount).Div(decimal.New(priceCents, -2)).Truncate(lotSizeScale)
}

// LimitPriceCents 限价 = 结果代币价格（美分）+ 加价，截断到 [1, 99]
func LimitPriceCents(outcomePrice float64, offsetCents int64) int64 {
	cents := decimal.NewFromFloat(outcomePrice).Shift(2).Round(0).IntPart() + offsetCents
	if cents < minPriceCents {
		return minPriceCents
	}
	if cents > maxPriceCents {
		return maxPriceCents
	}
	return cents
}
