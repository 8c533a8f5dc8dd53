// Package config 负责加载和验证 YAML 配置文件。
// 提供应用程序所需的所有配置项，包括交易所域参数、行情源、市场列表、策略门槛、风控与下单参数等。
// 私钥等机密只从环境变量（或 .env）读取，不出现在 YAML 中。
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"binary-edge-trader/internal/core/model"
)

// Config 应用配置根结构
// 包含所有子模块的配置项
type Config struct {
	// App 应用基础配置
	App AppConfig `yaml:"app"`
	// Exchange 预测市场交易所配置（订单簿 API 与签名域）
	Exchange ExchangeConfig `yaml:"exchange"`
	// Feed 标的行情 WebSocket 配置
	Feed FeedConfig `yaml:"feed"`
	// Assets 标的资产列表（含年化波动率）
	Assets []AssetConfig `yaml:"assets"`
	// Markets 待评估的二元市场列表
	Markets []MarketConfig `yaml:"markets"`
	// Strategy 边际检测参数
	Strategy StrategyConfig `yaml:"strategy"`
	// Risk 定仓参数
	Risk RiskConfig `yaml:"risk"`
	// Order 下单参数
	Order OrderConfig `yaml:"order"`
	// Schedule 扫描周期
	Schedule ScheduleConfig `yaml:"schedule"`
	// Output 输出配置
	Output OutputConfig `yaml:"output"`
	// Metrics Prometheus 指标配置
	Metrics MetricsConfig `yaml:"metrics"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	// Name 应用名称，用于日志标识
	Name string `yaml:"name"`
	// LogLevel 日志级别: debug, info, warn, error
	LogLevel string `yaml:"log_level"`
}

// ExchangeConfig 交易所配置
type ExchangeConfig struct {
	// APIURL REST API 地址
	APIURL string `yaml:"api_url"`
	// TimeoutMs HTTP 请求超时时间（毫秒）
	TimeoutMs int `yaml:"timeout_ms"`
	// ChainID 链 ID（Base 主网 8453）
	ChainID int64 `yaml:"chain_id"`
	// DomainName EIP-712 域名
	DomainName string `yaml:"domain_name"`
	// DomainVersion EIP-712 域版本
	DomainVersion string `yaml:"domain_version"`
	// CLOBContract CLOB 市场验签合约
	CLOBContract string `yaml:"clob_contract"`
	// NegRiskContract NegRisk 市场验签合约
	NegRiskContract string `yaml:"negrisk_contract"`
	// FeeRateBps 订单手续费（基点）
	FeeRateBps int64 `yaml:"fee_rate_bps"`
}

// FeedConfig 行情 WebSocket 配置
type FeedConfig struct {
	// URL WebSocket 连接地址
	URL string `yaml:"url"`
	// PingIntervalMs 心跳间隔（毫秒）
	PingIntervalMs int `yaml:"ping_interval_ms"`
	// ReadTimeoutMs 读取超时（毫秒）
	ReadTimeoutMs int `yaml:"read_timeout_ms"`
}

// AssetConfig 标的资产配置
type AssetConfig struct {
	// Symbol 资产代码，如 BTC
	Symbol string `yaml:"symbol"`
	// Pair 行情交易对，如 BTCUSDT
	Pair string `yaml:"pair"`
	// Volatility 年化波动率，0 表示使用 strategy.default_volatility
	Volatility float64 `yaml:"volatility"`
}

// MarketConfig 二元市场配置
type MarketConfig struct {
	// Slug 市场标识
	Slug string `yaml:"slug"`
	// Asset 标的资产代码，需在 assets 中存在
	Asset string `yaml:"asset"`
	// Strike 行权价
	Strike float64 `yaml:"strike"`
	// Expiry 到期时间（ISO-8601）
	Expiry string `yaml:"expiry"`
	// YesTokenID YES 代币 ID
	YesTokenID string `yaml:"yes_token_id"`
	// NoTokenID NO 代币 ID
	NoTokenID string `yaml:"no_token_id"`
	// MarketType CLOB 或 NEGRISK
	MarketType string `yaml:"market_type"`
}

// StrategyConfig 边际检测参数
type StrategyConfig struct {
	// EdgeThreshold 方向门槛，|模型 - 市场| 需超过此值
	EdgeThreshold float64 `yaml:"edge_threshold"`
	// ConfidenceThreshold 资金门槛，置信度需超过此值才下单
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
	// BookFetchLow 模型概率低于此值才拉取订单簿
	BookFetchLow float64 `yaml:"book_fetch_low"`
	// BookFetchHigh 模型概率高于此值才拉取订单簿
	BookFetchHigh float64 `yaml:"book_fetch_high"`
	// RiskFreeRate 无风险利率
	RiskFreeRate float64 `yaml:"risk_free_rate"`
	// DefaultVolatility 未配置波动率的资产使用的默认值
	DefaultVolatility float64 `yaml:"default_volatility"`
}

// RiskConfig 定仓参数
type RiskConfig struct {
	// PortfolioBalance 可用资金（报价货币）
	PortfolioBalance float64 `yaml:"portfolio_balance"`
	// KellyFraction 分数 Kelly 系数 (0,1]
	KellyFraction float64 `yaml:"kelly_fraction"`
	// MaxPortfolioRisk 单笔最大资金占比 (0,1]
	MaxPortfolioRisk float64 `yaml:"max_portfolio_risk"`
	// MinTradeSize 最小下单金额
	MinTradeSize float64 `yaml:"min_trade_size"`
}

// OrderConfig 下单参数
type OrderConfig struct {
	// Decimals 金额精度（报价货币与结果代币均为 6 位）
	Decimals int32 `yaml:"decimals"`
	// ValidityHours 盐值使用的有效期（小时）
	ValidityHours int `yaml:"validity_hours"`
	// PriceOffsetCents 限价相对最优卖价的加价（美分）
	PriceOffsetCents int64 `yaml:"price_offset_cents"`
	// Expiration 订单过期时间戳，0 表示 GTC
	Expiration int64 `yaml:"expiration"`
	// SignatureType 签名类型: 0=EOA, 1=Proxy, 2=GnosisSafe
	SignatureType uint8 `yaml:"signature_type"`
	// Funder 代理钱包或 Safe 地址，作为订单 maker；签名类型为 1、2 时必填
	Funder string `yaml:"funder"`
}

// ScheduleConfig 扫描周期
type ScheduleConfig struct {
	// Spec cron 表达式或 @every 形式
	Spec string `yaml:"spec"`
}

// OutputConfig 输出配置
type OutputConfig struct {
	// Dir 输出目录
	Dir string `yaml:"dir"`
	// EvaluationsEnabled 是否输出评估记录
	EvaluationsEnabled bool `yaml:"evaluations_enabled"`
	// OrdersEnabled 是否输出签名订单
	OrdersEnabled bool `yaml:"orders_enabled"`
	// BufferSize 异步写入缓冲区大小
	BufferSize int `yaml:"buffer_size"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	// Enabled 是否启动 /metrics
	Enabled bool `yaml:"enabled"`
	// Addr 监听地址
	Addr string `yaml:"addr"`
}

// Secrets 机密配置（仅来自环境变量）
type Secrets struct {
	// PrivateKey 十六进制私钥（可带 0x 前缀）
	PrivateKey string
}

// ErrMissingPrivateKey 未配置 PRIVATE_KEY
var ErrMissingPrivateKey = errors.New("环境变量 PRIVATE_KEY 未设置")

// Load 从文件加载配置并验证
// 参数 path: 配置文件路径
// 返回: 解析后的配置对象，若失败则返回错误
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}

	return &cfg, nil
}

// LoadSecrets 读取机密
// 参数 envFiles: 可选的 .env 文件；不存在时忽略，已存在的环境变量不会被覆盖
func LoadSecrets(envFiles ...string) (Secrets, error) {
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return Secrets{}, fmt.Errorf("加载 %s 失败: %w", f, err)
		}
	}

	key := strings.TrimSpace(os.Getenv("PRIVATE_KEY"))
	if key == "" {
		return Secrets{}, ErrMissingPrivateKey
	}
	return Secrets{PrivateKey: key}, nil
}

// setDefaults 设置配置默认值
func (c *Config) setDefaults() {
	if c.App.Name == "" {
		c.App.Name = "binary-edge-trader"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}

	// 交易所默认值
	if c.Exchange.APIURL == "" {
		c.Exchange.APIURL = "https://api.limitless.exchange"
	}
	if c.Exchange.TimeoutMs == 0 {
		c.Exchange.TimeoutMs = 10000 // 10 秒
	}
	if c.Exchange.ChainID == 0 {
		c.Exchange.ChainID = 8453
	}
	if c.Exchange.DomainName == "" {
		c.Exchange.DomainName = "Limitless CTF Exchange"
	}
	if c.Exchange.DomainVersion == "" {
		c.Exchange.DomainVersion = "1"
	}
	if c.Exchange.CLOBContract == "" {
		c.Exchange.CLOBContract = "0xa4409D988CA2218d956BeEFD3874100F444f0DC3"
	}
	if c.Exchange.NegRiskContract == "" {
		c.Exchange.NegRiskContract = "0x5a38afc17F7E97ad8d6C547ddb837E40B4aEDfC6"
	}

	// 行情默认值
	if c.Feed.URL == "" {
		c.Feed.URL = "wss://stream.binance.com:9443/ws"
	}
	if c.Feed.PingIntervalMs == 0 {
		c.Feed.PingIntervalMs = 20000 // 20 秒
	}
	if c.Feed.ReadTimeoutMs == 0 {
		c.Feed.ReadTimeoutMs = 30000 // 30 秒
	}

	// 市场类型默认 CLOB
	for i := range c.Markets {
		if c.Markets[i].MarketType == "" {
			c.Markets[i].MarketType = string(model.MarketCLOB)
		}
		c.Markets[i].MarketType = strings.ToUpper(c.Markets[i].MarketType)
	}

	// 策略默认值
	if c.Strategy.EdgeThreshold == 0 {
		c.Strategy.EdgeThreshold = 0.10
	}
	if c.Strategy.ConfidenceThreshold == 0 {
		c.Strategy.ConfidenceThreshold = 0.15
	}
	if c.Strategy.BookFetchLow == 0 {
		c.Strategy.BookFetchLow = 0.2
	}
	if c.Strategy.BookFetchHigh == 0 {
		c.Strategy.BookFetchHigh = 0.8
	}
	if c.Strategy.RiskFreeRate == 0 {
		c.Strategy.RiskFreeRate = 0.05
	}
	if c.Strategy.DefaultVolatility == 0 {
		c.Strategy.DefaultVolatility = 0.6
	}

	// 风控默认值
	if c.Risk.PortfolioBalance == 0 {
		c.Risk.PortfolioBalance = 1000
	}
	if c.Risk.KellyFraction == 0 {
		c.Risk.KellyFraction = 0.5
	}
	if c.Risk.MaxPortfolioRisk == 0 {
		c.Risk.MaxPortfolioRisk = 0.05
	}
	if c.Risk.MinTradeSize == 0 {
		c.Risk.MinTradeSize = 1
	}

	// 下单默认值
	if c.Order.Decimals == 0 {
		c.Order.Decimals = 6
	}
	if c.Order.ValidityHours == 0 {
		c.Order.ValidityHours = 24
	}
	if c.Order.PriceOffsetCents == 0 {
		c.Order.PriceOffsetCents = 1
	}

	if c.Schedule.Spec == "" {
		c.Schedule.Spec = "@every 10s"
	}

	// 输出默认值
	if c.Output.Dir == "" {
		c.Output.Dir = "./output"
	}
	if c.Output.BufferSize == 0 {
		c.Output.BufferSize = 1000
	}

	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9090"
	}
}

// Validate 验证配置合法性
// 检查所有必填项和数值范围
// 返回: 若配置无效则返回描述性错误
func (c *Config) Validate() error {
	var errs []string

	// 验证交易所配置
	if c.Exchange.APIURL == "" {
		errs = append(errs, "exchange.api_url: API 地址不能为空")
	}
	if c.Exchange.TimeoutMs <= 0 {
		errs = append(errs, "exchange.timeout_ms: 超时时间必须为正数")
	}
	if c.Exchange.ChainID <= 0 {
		errs = append(errs, "exchange.chain_id: 链 ID 必须为正数")
	}
	if c.Exchange.DomainName == "" || c.Exchange.DomainVersion == "" {
		errs = append(errs, "exchange.domain_name/domain_version: 签名域不能为空")
	}
	if !common.IsHexAddress(c.Exchange.CLOBContract) {
		errs = append(errs, fmt.Sprintf("exchange.clob_contract: 无效的合约地址 '%s'", c.Exchange.CLOBContract))
	}
	if !common.IsHexAddress(c.Exchange.NegRiskContract) {
		errs = append(errs, fmt.Sprintf("exchange.negrisk_contract: 无效的合约地址 '%s'", c.Exchange.NegRiskContract))
	}
	if c.Exchange.FeeRateBps < 0 || c.Exchange.FeeRateBps > 10000 {
		errs = append(errs, "exchange.fee_rate_bps: 手续费必须在 0-10000 之间")
	}

	if c.Feed.URL == "" {
		errs = append(errs, "feed.url: 行情 WebSocket 地址不能为空")
	}

	// 验证资产配置
	assets := make(map[string]bool, len(c.Assets))
	for i, a := range c.Assets {
		if a.Symbol == "" || a.Pair == "" {
			errs = append(errs, fmt.Sprintf("assets[%d]: symbol 与 pair 不能为空", i))
		}
		if a.Volatility < 0 {
			errs = append(errs, fmt.Sprintf("assets[%d].volatility: 波动率不能为负数", i))
		}
		assets[strings.ToUpper(a.Symbol)] = true
	}

	// 验证市场配置
	if len(c.Markets) == 0 {
		errs = append(errs, "markets: 至少需要配置一个市场")
	}
	for i, m := range c.Markets {
		if m.Slug == "" {
			errs = append(errs, fmt.Sprintf("markets[%d].slug: 市场标识不能为空", i))
		}
		if !assets[strings.ToUpper(m.Asset)] {
			errs = append(errs, fmt.Sprintf("markets[%d].asset: 资产 '%s' 未在 assets 中配置", i, m.Asset))
		}
		if m.Strike <= 0 {
			errs = append(errs, fmt.Sprintf("markets[%d].strike: 行权价必须为正数", i))
		}
		if m.Expiry == "" {
			errs = append(errs, fmt.Sprintf("markets[%d].expiry: 到期时间不能为空", i))
		}
		if m.YesTokenID == "" || m.NoTokenID == "" {
			errs = append(errs, fmt.Sprintf("markets[%d]: yes_token_id 与 no_token_id 不能为空", i))
		}
		switch model.MarketType(m.MarketType) {
		case model.MarketCLOB, model.MarketNegRisk:
		default:
			errs = append(errs, fmt.Sprintf("markets[%d].market_type: 无效的市场类型 '%s'，有效值: CLOB, NEGRISK", i, m.MarketType))
		}
	}

	// 验证策略参数
	if err := validateUnit(c.Strategy.EdgeThreshold, "strategy.edge_threshold"); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateUnit(c.Strategy.ConfidenceThreshold, "strategy.confidence_threshold"); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Strategy.BookFetchLow < 0 || c.Strategy.BookFetchLow > c.Strategy.BookFetchHigh || c.Strategy.BookFetchHigh > 1 {
		errs = append(errs, "strategy.book_fetch_low/book_fetch_high: 需满足 0 <= low <= high <= 1")
	}
	if c.Strategy.DefaultVolatility <= 0 {
		errs = append(errs, "strategy.default_volatility: 默认波动率必须为正数")
	}

	// 验证风控参数
	if c.Risk.PortfolioBalance < 0 {
		errs = append(errs, "risk.portfolio_balance: 资金不能为负数")
	}
	if c.Risk.KellyFraction <= 0 || c.Risk.KellyFraction > 1 {
		errs = append(errs, "risk.kelly_fraction: Kelly 系数必须在 (0, 1] 之间")
	}
	if c.Risk.MaxPortfolioRisk <= 0 || c.Risk.MaxPortfolioRisk > 1 {
		errs = append(errs, "risk.max_portfolio_risk: 单笔资金占比必须在 (0, 1] 之间")
	}
	if c.Risk.MinTradeSize < 0 {
		errs = append(errs, "risk.min_trade_size: 最小下单金额不能为负数")
	}

	// 验证下单参数
	if c.Order.Decimals <= 0 || c.Order.Decimals > 18 {
		errs = append(errs, "order.decimals: 精度必须在 1-18 之间")
	}
	if c.Order.ValidityHours <= 0 {
		errs = append(errs, "order.validity_hours: 有效期必须为正数")
	}
	if c.Order.PriceOffsetCents < 0 || c.Order.PriceOffsetCents > 98 {
		errs = append(errs, "order.price_offset_cents: 加价必须在 0-98 之间")
	}
	if c.Order.Expiration < 0 {
		errs = append(errs, "order.expiration: 过期时间不能为负数")
	}
	if c.Order.SignatureType > uint8(model.SignatureGnosisSafe) {
		errs = append(errs, "order.signature_type: 有效值 0, 1, 2")
	}
	switch {
	case c.Order.Funder != "" && !common.IsHexAddress(c.Order.Funder):
		errs = append(errs, "order.funder: 无效地址")
	case c.Order.SignatureType != uint8(model.SignatureEOA) && c.Order.Funder == "":
		errs = append(errs, "order.funder: 签名类型 1、2 需要代理钱包地址")
	}

	if c.Output.BufferSize <= 0 {
		errs = append(errs, "output.buffer_size: 缓冲区大小必须为正数")
	}

	// 验证日志级别
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.App.LogLevel)] {
		errs = append(errs, fmt.Sprintf("app.log_level: 无效的日志级别 '%s'，有效值: debug, info, warn, error", c.App.LogLevel))
	}

	if len(errs) > 0 {
		return fmt.Errorf("配置验证错误:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// validateUnit 验证 [0, 1] 范围
// 参数 v: 值
// 参数 field: 字段名称，用于错误消息
func validateUnit(v float64, field string) error {
	if v < 0 || v > 1 {
		return fmt.Errorf("%s: 必须在 0-1 之间，当前值: %f", field, v)
	}
	return nil
}

// Asset 按资产代码查找资产配置（不区分大小写）
func (c *Config) Asset(symbol string) (AssetConfig, bool) {
	for _, a := range c.Assets {
		if strings.EqualFold(a.Symbol, symbol) {
			return a, true
		}
	}
	return AssetConfig{}, false
}

// VolatilityFor 资产年化波动率，未配置时取默认值
func (c *Config) VolatilityFor(symbol string) float64 {
	if a, ok := c.Asset(symbol); ok && a.Volatility > 0 {
		return a.Volatility
	}
	return c.Strategy.DefaultVolatility
}

// Pairs 所有需要订阅的行情交易对
func (c *Config) Pairs() []string {
	pairs := make([]string, len(c.Assets))
	for i, a := range c.Assets {
		pairs[i] = a.Pair
	}
	return pairs
}

// Spec 转换为定价管线使用的市场参数
func (m MarketConfig) Spec() model.MarketSpec {
	return model.MarketSpec{
		Slug:       m.Slug,
		Asset:      strings.ToUpper(m.Asset),
		Strike:     m.Strike,
		Expiry:     m.Expiry,
		YesTokenID: m.YesTokenID,
		NoTokenID:  m.NoTokenID,
		Type:       model.MarketType(strings.ToUpper(m.MarketType)),
	}
}
