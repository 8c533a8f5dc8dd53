package order

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	// ErrInvalidIntent 定仓结果不可下单（方向为空、金额为 0 等）
	ErrInvalidIntent = errors.New("无效的下单意图")
	// ErrInvalidToken 代币 ID 不是十进制 uint256
	ErrInvalidToken = errors.New("无效的代币 ID")
	// ErrInvalidAmount 价格或数量无法换算为正的定点金额
	ErrInvalidAmount = errors.New("无效的订单金额")
	// ErrInvalidRecord 订单记录字段缺失或越界
	ErrInvalidRecord = errors.New("无效的订单记录")
	// ErrNoSigner 未配置签名器
	ErrNoSigner = errors.New("未配置签名器")
	// ErrNoFunder 代理钱包签名类型缺少 maker 地址
	ErrNoFunder = errors.New("未配置代理钱包地址")
)

// Signer 对 32 字节摘要签名
type Signer interface {
	// Address 签名地址
	Address() common.Address
	// SignHash 返回 65 字节签名 r || s || v，v 为 27/28
	SignHash(hash []byte) ([]byte, error)
}

// KeySigner 本地私钥签名器
// secp256k1 使用 RFC6979 确定性随机数，同一摘要总是得到相同签名
type KeySigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewKeySigner 从十六进制私钥创建签名器（可带 0x 前缀）
func NewKeySigner(hexKey string) (*KeySigner, error) {
	raw := strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	if raw == "" {
		return nil, fmt.Errorf("%w: 私钥为空", ErrNoSigner)
	}
	key, err := crypto.HexToECDSA(raw)
	if err != nil {
		return nil, fmt.Errorf("无效的私钥: %w", err)
	}
	return &KeySigner{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}, nil
}

// Address 签名地址
func (s *KeySigner) Address() common.Address {
	return s.address
}

// SignHash 签名摘要
func (s *KeySigner) SignHash(hash []byte) ([]byte, error) {
	if len(hash) != 32 {
		return nil, fmt.Errorf("摘要长度必须为 32 字节，当前 %d", len(hash))
	}
	sig, err := crypto.Sign(hash, s.key)
	if err != nil {
		return nil, fmt.Errorf("签名失败: %w", err)
	}
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}

// RecoverAddress 从摘要与签名恢复签名地址
func RecoverAddress(hash, sig []byte) (common.Address, error) {
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("签名长度必须为 %d 字节", crypto.SignatureLength)
	}
	normalized := make([]byte, len(sig))
	copy(normalized, sig)
	if normalized[crypto.RecoveryIDOffset] >= 27 {
		normalized[crypto.RecoveryIDOffset] -= 27
	}
	pub, err := crypto.SigToPub(hash, normalized)
	if err != nil {
		return common.Address{}, fmt.Errorf("恢复公钥失败: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}
