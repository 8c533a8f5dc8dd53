package model

import (
	"encoding/hex"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Side 订单方向（签名结构中的 uint8）
type Side uint8

const (
	// SideBuy 买入：maker 付出报价货币，换取结果代币
	SideBuy Side = 0
	// SideSell 卖出：maker 付出结果代币，换取报价货币
	SideSell Side = 1
)

// String 返回 BUY / SELL
func (s Side) String() string {
	if s == SideSell {
		return "SELL"
	}
	return "BUY"
}

// SignatureType 签名类型（签名结构中的 uint8）
type SignatureType uint8

const (
	// SignatureEOA 外部账户直接签名
	SignatureEOA SignatureType = 0
	// SignatureProxy 代理钱包
	SignatureProxy SignatureType = 1
	// SignatureGnosisSafe Gnosis Safe 钱包
	SignatureGnosisSafe SignatureType = 2
)

// OrderRecord 规范订单记录
// 字段集合与顺序即签名结构（见 order.OrderTypes），金额均为按精度放大后的整数。
type OrderRecord struct {
	Salt          *big.Int
	Maker         common.Address
	Signer        common.Address
	Taker         common.Address
	TokenID       *big.Int
	MakerAmount   *big.Int
	TakerAmount   *big.Int
	Expiration    *big.Int
	Nonce         *big.Int
	FeeRateBps    *big.Int
	Side          Side
	SignatureType SignatureType
}

// Clone 深拷贝，避免共享 *big.Int
func (o OrderRecord) Clone() OrderRecord {
	out := o
	out.Salt = cloneInt(o.Salt)
	out.TokenID = cloneInt(o.TokenID)
	out.MakerAmount = cloneInt(o.MakerAmount)
	out.TakerAmount = cloneInt(o.TakerAmount)
	out.Expiration = cloneInt(o.Expiration)
	out.Nonce = cloneInt(o.Nonce)
	out.FeeRateBps = cloneInt(o.FeeRateBps)
	return out
}

func cloneInt(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

// SignedOrder 已签名订单
// 创建后只读：访问器均返回拷贝，任何字段修改都需要重新签名生成新的 SignedOrder。
type SignedOrder struct {
	record     OrderRecord
	signature  []byte
	marketSlug string
	priceCents int64
}

// NewSignedOrder 绑定订单记录与签名
// 参数 record: 被签名的订单记录
// 参数 signature: 65 字节签名
// 参数 marketSlug: 目标市场
// 参数 priceCents: 限价（美分），仅用于提交载荷
func NewSignedOrder(record OrderRecord, signature []byte, marketSlug string, priceCents int64) SignedOrder {
	sig := make([]byte, len(signature))
	copy(sig, signature)
	return SignedOrder{
		record:     record.Clone(),
		signature:  sig,
		marketSlug: marketSlug,
		priceCents: priceCents,
	}
}

// Record 返回订单记录拷贝
func (s SignedOrder) Record() OrderRecord {
	return s.record.Clone()
}

// Signature 返回签名字节拷贝
func (s SignedOrder) Signature() []byte {
	out := make([]byte, len(s.signature))
	copy(out, s.signature)
	return out
}

// SignatureHex 0x 前缀的小写十六进制签名
func (s SignedOrder) SignatureHex() string {
	return "0x" + hex.EncodeToString(s.signature)
}

// MarketSlug 目标市场
func (s SignedOrder) MarketSlug() string {
	return s.marketSlug
}

// TokenID 目标结果代币（十进制字符串）
func (s SignedOrder) TokenID() string {
	return intString(s.record.TokenID)
}

// OrderPayload 交给执行协作方的提交载荷
// uint256 字段按十进制字符串输出，避免 JSON 数字精度丢失
type OrderPayload struct {
	Salt          string  `json:"salt"`
	Maker         string  `json:"maker"`
	Signer        string  `json:"signer"`
	Taker         string  `json:"taker"`
	TokenID       string  `json:"tokenId"`
	MakerAmount   string  `json:"makerAmount"`
	TakerAmount   string  `json:"takerAmount"`
	Expiration    string  `json:"expiration"`
	Nonce         string  `json:"nonce"`
	FeeRateBps    string  `json:"feeRateBps"`
	Side          uint8   `json:"side"`
	SignatureType uint8   `json:"signatureType"`
	Price         float64 `json:"price"`
	Signature     string  `json:"signature"`
}

// Submission 提交请求
type Submission struct {
	Order      OrderPayload `json:"order"`
	OrderType  string       `json:"orderType"`
	MarketSlug string       `json:"marketSlug"`
}

// Payload 构造提交请求（GTC）
func (s SignedOrder) Payload() Submission {
	r := s.record
	return Submission{
		Order: OrderPayload{
			Salt:          intString(r.Salt),
			Maker:         r.Maker.Hex(),
			Signer:        r.Signer.Hex(),
			Taker:         r.Taker.Hex(),
			TokenID:       intString(r.TokenID),
			MakerAmount:   intString(r.MakerAmount),
			TakerAmount:   intString(r.TakerAmount),
			Expiration:    intString(r.Expiration),
			Nonce:         intString(r.Nonce),
			FeeRateBps:    intString(r.FeeRateBps),
			Side:          uint8(r.Side),
			SignatureType: uint8(r.SignatureType),
			Price:         float64(s.priceCents) / 100,
			Signature:     s.SignatureHex(),
		},
		OrderType:  "GTC",
		MarketSlug: s.marketSlug,
	}
}

func intString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
