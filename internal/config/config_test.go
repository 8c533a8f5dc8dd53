// Package config 配置模块测试
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"binary-edge-trader/internal/core/model"
)

// TestConfigValidation_UnitThresholds 门槛范围验证
// 属性: edge / confidence 门槛在 [0, 1] 外应验证失败
func TestConfigValidation_UnitThresholds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("edge 门槛超出范围应验证失败", prop.ForAll(
		func(v float64) bool {
			cfg := createValidConfig()
			cfg.Strategy.EdgeThreshold = v
			return cfg.Validate() != nil
		},
		gen.OneGenOf(
			gen.Float64Range(-1000, -0.0001),
			gen.Float64Range(1.0001, 1000),
		),
	))

	properties.Property("confidence 门槛超出范围应验证失败", prop.ForAll(
		func(v float64) bool {
			cfg := createValidConfig()
			cfg.Strategy.ConfidenceThreshold = v
			return cfg.Validate() != nil
		},
		gen.OneGenOf(
			gen.Float64Range(-1000, -0.0001),
			gen.Float64Range(1.0001, 1000),
		),
	))

	properties.Property("门槛在有效范围内应通过验证", prop.ForAll(
		func(edge, conf float64) bool {
			cfg := createValidConfig()
			cfg.Strategy.EdgeThreshold = edge
			cfg.Strategy.ConfidenceThreshold = conf
			return cfg.Validate() == nil
		},
		gen.Float64Range(0, 1),
		gen.Float64Range(0, 1),
	))

	properties.TestingRun(t)
}

// TestConfigValidation_RiskParams 风控参数验证
func TestConfigValidation_RiskParams(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("Kelly 系数超出 (0,1] 应验证失败", prop.ForAll(
		func(v float64) bool {
			cfg := createValidConfig()
			cfg.Risk.KellyFraction = v
			return cfg.Validate() != nil
		},
		gen.OneGenOf(
			gen.Float64Range(-1000, 0),
			gen.Float64Range(1.0001, 1000),
		),
	))

	properties.Property("单笔资金占比超出 (0,1] 应验证失败", prop.ForAll(
		func(v float64) bool {
			cfg := createValidConfig()
			cfg.Risk.MaxPortfolioRisk = v
			return cfg.Validate() != nil
		},
		gen.OneGenOf(
			gen.Float64Range(-1000, 0),
			gen.Float64Range(1.0001, 1000),
		),
	))

	properties.Property("资金为负数应验证失败", prop.ForAll(
		func(v float64) bool {
			cfg := createValidConfig()
			cfg.Risk.PortfolioBalance = v
			return cfg.Validate() != nil
		},
		gen.Float64Range(-1e9, -0.0001),
	))

	properties.Property("有效风控参数应通过验证", prop.ForAll(
		func(balance, kelly, maxRisk float64) bool {
			cfg := createValidConfig()
			cfg.Risk.PortfolioBalance = balance
			cfg.Risk.KellyFraction = kelly
			cfg.Risk.MaxPortfolioRisk = maxRisk
			return cfg.Validate() == nil
		},
		gen.Float64Range(0, 1e9),
		gen.Float64Range(0.0001, 1),
		gen.Float64Range(0.0001, 1),
	))

	properties.TestingRun(t)
}

// TestConfigValidation_Markets 市场配置验证
func TestConfigValidation_Markets(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("行权价非正数应验证失败", prop.ForAll(
		func(strike float64) bool {
			cfg := createValidConfig()
			cfg.Markets[0].Strike = strike
			return cfg.Validate() != nil
		},
		gen.Float64Range(-1e6, 0),
	))

	properties.Property("有效市场标识应通过验证", prop.ForAll(
		func(slug string) bool {
			cfg := createValidConfig()
			cfg.Markets[0].Slug = slug
			return cfg.Validate() == nil
		},
		gen.AlphaString().SuchThat(func(s string) bool { return len(s) > 0 }),
	))

	properties.TestingRun(t)
}

func TestConfigValidation_MarketErrors(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"空市场列表", func(c *Config) { c.Markets = nil }, "markets:"},
		{"未知资产", func(c *Config) { c.Markets[0].Asset = "DOGE" }, "markets[0].asset"},
		{"缺少代币", func(c *Config) { c.Markets[0].NoTokenID = "" }, "no_token_id"},
		{"未知市场类型", func(c *Config) { c.Markets[0].MarketType = "AMM" }, "market_type"},
		{"无效合约地址", func(c *Config) { c.Exchange.CLOBContract = "0x123" }, "exchange.clob_contract"},
		{"订单簿区间倒置", func(c *Config) { c.Strategy.BookFetchLow = 0.9 }, "book_fetch_low"},
		{"签名类型越界", func(c *Config) { c.Order.SignatureType = 3 }, "order.signature_type"},
		{"代理钱包缺少 funder", func(c *Config) { c.Order.SignatureType = 2 }, "order.funder"},
		{"funder 地址无效", func(c *Config) { c.Order.Funder = "0xabc" }, "order.funder"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := createValidConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tc.want)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err=%v, want containing %q", err, tc.want)
			}
		})
	}
}

// TestConfigValidation_CollectsAllErrors 所有错误应一次性返回
func TestConfigValidation_CollectsAllErrors(t *testing.T) {
	cfg := createValidConfig()
	cfg.Risk.KellyFraction = 2
	cfg.App.LogLevel = "verbose"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() = nil, want error")
	}
	for _, want := range []string{"risk.kelly_fraction", "app.log_level"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("err 缺少 %q: %v", want, err)
		}
	}
}

// createValidConfig 创建一个有效的配置用于测试
func createValidConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:     "test",
			LogLevel: "info",
		},
		Exchange: ExchangeConfig{
			APIURL:          "https://api.limitless.exchange",
			TimeoutMs:       10000,
			ChainID:         8453,
			DomainName:      "Limitless CTF Exchange",
			DomainVersion:   "1",
			CLOBContract:    "0xa4409D988CA2218d956BeEFD3874100F444f0DC3",
			NegRiskContract: "0x5a38afc17F7E97ad8d6C547ddb837E40B4aEDfC6",
		},
		Feed: FeedConfig{
			URL:            "wss://stream.binance.com:9443/ws",
			PingIntervalMs: 20000,
			ReadTimeoutMs:  30000,
		},
		Assets: []AssetConfig{
			{Symbol: "BTC", Pair: "BTCUSDT", Volatility: 0.6},
		},
		Markets: []MarketConfig{
			{
				Slug:       "btc-above-100k",
				Asset:      "BTC",
				Strike:     100000,
				Expiry:     "2026-12-31T16:00:00Z",
				YesTokenID: "1001",
				NoTokenID:  "1002",
				MarketType: "CLOB",
			},
		},
		Strategy: StrategyConfig{
			EdgeThreshold:       0.10,
			ConfidenceThreshold: 0.15,
			BookFetchLow:        0.2,
			BookFetchHigh:       0.8,
			RiskFreeRate:        0.05,
			DefaultVolatility:   0.6,
		},
		Risk: RiskConfig{
			PortfolioBalance: 1000,
			KellyFraction:    0.5,
			MaxPortfolioRisk: 0.05,
			MinTradeSize:     1,
		},
		Order: OrderConfig{
			Decimals:         6,
			ValidityHours:    24,
			PriceOffsetCents: 1,
		},
		Schedule: ScheduleConfig{Spec: "@every 10s"},
		Output: OutputConfig{
			Dir:                "./output",
			EvaluationsEnabled: true,
			OrdersEnabled:      true,
			BufferSize:         1000,
		},
		Metrics: MetricsConfig{Addr: ":9090"},
	}
}

// TestLoad_ValidFile 测试从有效文件加载配置（含默认值填充）
func TestLoad_ValidFile(t *testing.T) {
	content := `
app:
  name: test-trader
  log_level: debug

assets:
  - symbol: BTC
    pair: BTCUSDT
    volatility: 0.55
  - symbol: ETH
    pair: ETHUSDT

markets:
  - slug: btc-above-100k
    asset: btc
    strike: 100000
    expiry: "2026-12-31T16:00:00Z"
    yes_token_id: "1001"
    no_token_id: "1002"
  - slug: eth-above-5k
    asset: ETH
    strike: 5000
    expiry: "2026-12-31T16:00:00Z"
    yes_token_id: "2001"
    no_token_id: "2002"
    market_type: negrisk

strategy:
  edge_threshold: 0.12
`
	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(tmpFile, []byte(content), 0644); err != nil {
		t.Fatalf("创建临时文件失败: %v", err)
	}

	cfg, err := Load(tmpFile)
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}

	if cfg.App.Name != "test-trader" {
		t.Errorf("App.Name = %s, want test-trader", cfg.App.Name)
	}
	if cfg.Strategy.EdgeThreshold != 0.12 {
		t.Errorf("Strategy.EdgeThreshold = %f, want 0.12", cfg.Strategy.EdgeThreshold)
	}
	if cfg.Strategy.ConfidenceThreshold != 0.15 {
		t.Errorf("Strategy.ConfidenceThreshold = %f, want default 0.15", cfg.Strategy.ConfidenceThreshold)
	}
	if cfg.Exchange.ChainID != 8453 {
		t.Errorf("Exchange.ChainID = %d, want 8453", cfg.Exchange.ChainID)
	}
	if cfg.Schedule.Spec != "@every 10s" {
		t.Errorf("Schedule.Spec = %s, want @every 10s", cfg.Schedule.Spec)
	}

	spec := cfg.Markets[1].Spec()
	if spec.Type != model.MarketNegRisk {
		t.Errorf("Markets[1].Type = %s, want NEGRISK", spec.Type)
	}
	if got := cfg.Markets[0].Spec().Asset; got != "BTC" {
		t.Errorf("Markets[0].Asset = %s, want BTC", got)
	}
	if got := cfg.VolatilityFor("btc"); got != 0.55 {
		t.Errorf("VolatilityFor(btc) = %f, want 0.55", got)
	}
	if got := cfg.VolatilityFor("ETH"); got != 0.6 {
		t.Errorf("VolatilityFor(ETH) = %f, want default 0.6", got)
	}
	if pairs := cfg.Pairs(); len(pairs) != 2 || pairs[1] != "ETHUSDT" {
		t.Errorf("Pairs() = %v", pairs)
	}
}

// TestLoad_InvalidFile 测试加载无效文件
func TestLoad_InvalidFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("加载不存在的文件应返回错误")
	}
}

// TestLoad_InvalidYAML 测试加载无效 YAML
func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "invalid.yaml")
	if err := os.WriteFile(tmpFile, []byte("invalid: yaml: content:"), 0644); err != nil {
		t.Fatalf("创建临时文件失败: %v", err)
	}

	_, err := Load(tmpFile)
	if err == nil {
		t.Error("加载无效 YAML 应返回错误")
	}
}

func TestLoadSecrets_FromEnvFile(t *testing.T) {
	t.Setenv("PRIVATE_KEY", "")
	os.Unsetenv("PRIVATE_KEY")

	envFile := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(envFile, []byte("PRIVATE_KEY=0xabc123\n"), 0600); err != nil {
		t.Fatalf("创建 .env 失败: %v", err)
	}

	s, err := LoadSecrets(envFile, filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("LoadSecrets() err=%v", err)
	}
	if s.PrivateKey != "0xabc123" {
		t.Fatalf("PrivateKey=%q, want 0xabc123", s.PrivateKey)
	}
}

func TestLoadSecrets_EnvWins(t *testing.T) {
	t.Setenv("PRIVATE_KEY", "from-env")

	envFile := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(envFile, []byte("PRIVATE_KEY=from-file\n"), 0600); err != nil {
		t.Fatalf("创建 .env 失败: %v", err)
	}

	s, err := LoadSecrets(envFile)
	if err != nil {
		t.Fatalf("LoadSecrets() err=%v", err)
	}
	if s.PrivateKey != "from-env" {
		t.Fatalf("PrivateKey=%q, want from-env", s.PrivateKey)
	}
}

func TestLoadSecrets_Missing(t *testing.T) {
	t.Setenv("PRIVATE_KEY", "")

	_, err := LoadSecrets()
	if !errors.Is(err, ErrMissingPrivateKey) {
		t.Fatalf("err=%v, want ErrMissingPrivateKey", err)
	}
}
