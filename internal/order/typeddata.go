package order

import (
	"fmt"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"binary-edge-trader/internal/config"
	"binary-edge-trader/internal/core/model"
)

// PrimaryType 签名结构名
const PrimaryType = "Order"

// OrderTypes 签名结构定义
// 字段顺序是签名约定的一部分，不能调整
var OrderTypes = apitypes.Types{
	"EIP712Domain": {
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	},
	PrimaryType: {
		{Name: "salt", Type: "uint256"},
		{Name: "maker", Type: "address"},
		{Name: "signer", Type: "address"},
		{Name: "taker", Type: "address"},
		{Name: "tokenId", Type: "uint256"},
		{Name: "makerAmount", Type: "uint256"},
		{Name: "takerAmount", Type: "uint256"},
		{Name: "expiration", Type: "uint256"},
		{Name: "nonce", Type: "uint256"},
		{Name: "feeRateBps", Type: "uint256"},
		{Name: "side", Type: "uint8"},
		{Name: "signatureType", Type: "uint8"},
	},
}

// Domain 签名域
type Domain struct {
	Name              string
	Version           string
	ChainID           int64
	VerifyingContract common.Address
}

// Domains 按市场类型区分的签名域
type Domains struct {
	CLOB    Domain
	NegRisk Domain
}

// DomainsFrom 从交易所配置构造签名域
func DomainsFrom(cfg config.ExchangeConfig) Domains {
	base := Domain{
		Name:    cfg.DomainName,
		Version: cfg.DomainVersion,
		ChainID: cfg.ChainID,
	}
	clob, neg := base, base
	clob.VerifyingContract = common.HexToAddress(cfg.CLOBContract)
	neg.VerifyingContract = common.HexToAddress(cfg.NegRiskContract)
	return Domains{CLOB: clob, NegRisk: neg}
}

// For 按市场类型选择签名域
func (d Domains) For(t model.MarketType) (Domain, error) {
	switch t {
	case model.MarketCLOB, "":
		return d.CLOB, nil
	case model.MarketNegRisk:
		return d.NegRisk, nil
	default:
		return Domain{}, fmt.Errorf("%w: 未知市场类型 %q", ErrInvalidIntent, t)
	}
}

// TypedData 构造 EIP-712 结构化数据
func TypedData(r model.OrderRecord, d Domain) apitypes.TypedData {
	return apitypes.TypedData{
		Types:       OrderTypes,
		PrimaryType: PrimaryType,
		Domain: apitypes.TypedDataDomain{
			Name:              d.Name,
			Version:           d.Version,
			ChainId:           math.NewHexOrDecimal256(d.ChainID),
			VerifyingContract: d.VerifyingContract.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"salt":          decString(r.Salt),
			"maker":         r.Maker.Hex(),
			"signer":        r.Signer.Hex(),
			"taker":         r.Taker.Hex(),
			"tokenId":       decString(r.TokenID),
			"makerAmount":   decString(r.MakerAmount),
			"takerAmount":   decString(r.TakerAmount),
			"expiration":    decString(r.Expiration),
			"nonce":         decString(r.Nonce),
			"feeRateBps":    decString(r.FeeRateBps),
			"side":          strconv.Itoa(int(r.Side)),
			"signatureType": strconv.Itoa(int(r.SignatureType)),
		},
	}
}

// Hash 计算订单的 EIP-712 摘要
func Hash(r model.OrderRecord, d Domain) ([]byte, error) {
	if err := checkRecord(r); err != nil {
		return nil, err
	}
	hash, _, err := apitypes.TypedDataAndHash(TypedData(r, d))
	if err != nil {
		return nil, fmt.Errorf("计算订单摘要失败: %w", err)
	}
	return hash, nil
}

func checkRecord(r model.OrderRecord) error {
	fields := map[string]*big.Int{
		"salt":        r.Salt,
		"tokenId":     r.TokenID,
		"makerAmount": r.MakerAmount,
		"takerAmount": r.TakerAmount,
		"expiration":  r.Expiration,
		"nonce":       r.Nonce,
		"feeRateBps":  r.FeeRateBps,
	}
	for name, v := range fields {
		if v == nil {
			return fmt.Errorf("%w: %s 为空", ErrInvalidRecord, name)
		}
		if v.Sign() < 0 || v.BitLen() > 256 {
			return fmt.Errorf("%w: %s 超出 uint256 范围", ErrInvalidRecord, name)
		}
	}
	if r.Signer == (common.Address{}) {
		return fmt.Errorf("%w: signer 为空", ErrInvalidRecord)
	}
	return nil
}

func decString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
