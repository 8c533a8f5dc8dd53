package order

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"binary-edge-trader/internal/config"
	"binary-edge-trader/internal/core/model"
)

// Builder 订单构造与签名
// 构造后只读；盐值生成器自身保证并发安全
type Builder struct {
	domains    Domains
	signer     Signer
	decimals   int32
	feeRateBps int64
	expiration int64
	sigType    model.SignatureType
	funder     common.Address
	salt       SaltFunc
}

// NewBuilder 创建订单构造器
// 参数 exch: 交易所配置（签名域与手续费）
// 参数 ord: 下单配置（精度、有效期、过期时间、签名类型）
// 参数 signer: 签名器，为 nil 时返回 ErrNoSigner
func NewBuilder(exch config.ExchangeConfig, ord config.OrderConfig, signer Signer) (*Builder, error) {
	if signer == nil {
		return nil, ErrNoSigner
	}
	if model.SignatureType(ord.SignatureType) != model.SignatureEOA && !common.IsHexAddress(ord.Funder) {
		return nil, fmt.Errorf("%w: signature_type=%d funder=%q", ErrNoFunder, ord.SignatureType, ord.Funder)
	}
	src := NewSaltSource(time.Duration(ord.ValidityHours) * time.Hour)
	return &Builder{
		domains:    DomainsFrom(exch),
		signer:     signer,
		decimals:   ord.Decimals,
		feeRateBps: exch.FeeRateBps,
		expiration: ord.Expiration,
		sigType:    model.SignatureType(ord.SignatureType),
		funder:     common.HexToAddress(ord.Funder),
		salt:       src.Next,
	}, nil
}

// WithSalt 替换盐值生成器（测试中固定盐值）
func (b *Builder) WithSalt(fn SaltFunc) *Builder {
	cp := *b
	cp.salt = fn
	return &cp
}

// Signer 签名器
func (b *Builder) Signer() Signer {
	return b.signer
}

// Build 构造订单记录
// 参数 intent: 定仓结果（方向、金额、限价、代币）
// 参数 now: 当前时间，用于盐值
// 返回: 待签名的订单记录；总是买入所选结果代币
func (b *Builder) Build(intent model.SizedOrderIntent, now time.Time) (model.OrderRecord, error) {
	if intent.Direction == model.DirectionNone || intent.Direction == "" || !intent.IsTrade() {
		return model.OrderRecord{}, fmt.Errorf("%w: direction=%s amount=%v", ErrInvalidIntent, intent.Direction, intent.Amount)
	}

	tokenID, ok := new(big.Int).SetString(intent.TokenID, 10)
	if !ok || tokenID.Sign() < 0 {
		return model.OrderRecord{}, fmt.Errorf("%w: %q", ErrInvalidToken, intent.TokenID)
	}

	qty := Quantity(intent.Amount, intent.PriceCents)
	amounts, err := ScaleAmounts(model.SideBuy, intent.PriceCents, qty, b.decimals)
	if err != nil {
		return model.OrderRecord{}, err
	}
	if amounts.Maker.Sign() == 0 || amounts.Taker.Sign() == 0 {
		return model.OrderRecord{}, fmt.Errorf("%w: 金额 %v 低于最小精度", ErrInvalidAmount, intent.Amount)
	}

	return model.OrderRecord{
		Salt:          b.salt(now),
		Maker:         b.maker(),
		Signer:        b.signer.Address(),
		Taker:         common.Address{},
		TokenID:       tokenID,
		MakerAmount:   amounts.Maker,
		TakerAmount:   amounts.Taker,
		Expiration:    big.NewInt(b.expiration),
		Nonce:         big.NewInt(0),
		FeeRateBps:    big.NewInt(b.feeRateBps),
		Side:          model.SideBuy,
		SignatureType: b.sigType,
	}, nil
}

// maker 资金来源地址
// EOA 直接用签名地址；Proxy/Safe 用配置的代理钱包
func (b *Builder) maker() common.Address {
	if b.sigType != model.SignatureEOA && b.funder != (common.Address{}) {
		return b.funder
	}
	return b.signer.Address()
}

// Sign 对订单记录签名
func (b *Builder) Sign(r model.OrderRecord, market model.MarketSpec, priceCents int64) (model.SignedOrder, error) {
	if b.signer == nil {
		return model.SignedOrder{}, ErrNoSigner
	}
	domain, err := b.domains.For(market.Type)
	if err != nil {
		return model.SignedOrder{}, err
	}
	hash, err := Hash(r, domain)
	if err != nil {
		return model.SignedOrder{}, err
	}
	sig, err := b.signer.SignHash(hash)
	if err != nil {
		return model.SignedOrder{}, err
	}
	return model.NewSignedOrder(r, sig, market.Slug, priceCents), nil
}

// BuildAndSign 构造并签名
// 任何失败都直接返回错误，不做降级
func (b *Builder) BuildAndSign(intent model.SizedOrderIntent, market model.MarketSpec, now time.Time) (model.SignedOrder, error) {
	r, err := b.Build(intent, now)
	if err != nil {
		return model.SignedOrder{}, fmt.Errorf("构造订单失败: %w", err)
	}
	signed, err := b.Sign(r, market, intent.PriceCents)
	if err != nil {
		return model.SignedOrder{}, fmt.Errorf("签名订单失败: %w", err)
	}
	return signed, nil
}

// Verify 校验签名是否由 want 对该订单记录签出
func (b *Builder) Verify(s model.SignedOrder, market model.MarketSpec, want common.Address) error {
	domain, err := b.domains.For(market.Type)
	if err != nil {
		return err
	}
	hash, err := Hash(s.Record(), domain)
	if err != nil {
		return err
	}
	got, err := RecoverAddress(hash, s.Signature())
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("签名地址不匹配: got %s, want %s", got.Hex(), want.Hex())
	}
	return nil
}
