// Package pipeline 串联单个市场的一次评估：
// 期限换算 → 模型概率 → （粗筛）拉取订单簿 → 边际检测 → 定仓 → 构造并签名订单。
//
// 只有订单簿拉取与签名两处会返回错误；其余阶段的异常输入都体现为 Decision.Reason。
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"binary-edge-trader/internal/config"
	"binary-edge-trader/internal/core/model"
	"binary-edge-trader/internal/core/signal"
	"binary-edge-trader/internal/order"
	"binary-edge-trader/internal/pricing/horizon"
	"binary-edge-trader/internal/pricing/probability"
	"binary-edge-trader/internal/risk"
)

// Reason 评估结束原因
type Reason string

const (
	// ReasonInvalidInput 价格、行权价或波动率非法
	ReasonInvalidInput Reason = "invalid_input"
	// ReasonExpired 已到期或到期时间无法解析
	ReasonExpired Reason = "expired"
	// ReasonInBand 模型概率在粗筛区间内，不拉取订单簿
	ReasonInBand Reason = "model_in_band"
	// ReasonNoBook 订单簿不存在
	ReasonNoBook Reason = "no_orderbook"
	// ReasonNoEdge 边际未超过方向门槛
	ReasonNoEdge Reason = "no_edge"
	// ReasonLowConfidence 置信度未超过资金门槛
	ReasonLowConfidence Reason = "low_confidence"
	// ReasonBelowMinSize 定仓金额低于最小下单规模
	ReasonBelowMinSize Reason = "below_min_size"
	// ReasonSigned 已生成签名订单
	ReasonSigned Reason = "signed"
)

var (
	// ErrBookFetch 订单簿拉取失败（网络或服务端错误，可重试）
	ErrBookFetch = errors.New("获取订单簿失败")
	// ErrSigning 订单构造或签名失败，不能用默认值替代
	ErrSigning = errors.New("订单签名失败")
)

// BookSource 订单簿数据源
// 市场不存在时返回 (nil, nil)
type BookSource interface {
	Orderbook(ctx context.Context, slug string) (*model.Orderbook, error)
}

// Decision 一次评估的完整结果
type Decision struct {
	Market       string                 `json:"market"`
	Asset        string                 `json:"asset"`
	Underlying   float64                `json:"underlying"`
	Strike       float64                `json:"strike"`
	HorizonYears float64                `json:"horizon_years"`
	HorizonSrc   horizon.Source         `json:"horizon_source"`
	ModelProb    float64                `json:"model_prob"`
	ModelSrc     probability.Source     `json:"model_source"`
	BookFetched  bool                   `json:"book_fetched"`
	Signal       model.Signal           `json:"signal"`
	Intent       model.SizedOrderIntent `json:"intent"`
	Reason       Reason                 `json:"reason"`
	EvaluatedAt  time.Time              `json:"evaluated_at"`
	Order        *model.SignedOrder     `json:"-"`
}

// Signed 是否生成了签名订单
func (d *Decision) Signed() bool {
	return d.Order != nil
}

// Evaluator 管线评估器
// 只持有构造时的只读参数，多个市场可并发评估
type Evaluator struct {
	engine   *signal.Engine
	sizer    *risk.Sizer
	builder  *order.Builder
	books    BookSource
	strategy config.StrategyConfig
	risk     config.RiskConfig
	offset   int64
	vol      func(asset string) float64
	clock    func() time.Time
}

// Option 评估器选项
type Option func(*Evaluator)

// WithClock 替换时钟
func WithClock(clock func() time.Time) Option {
	return func(e *Evaluator) { e.clock = clock }
}

// WithEngine 替换策略引擎
func WithEngine(engine *signal.Engine) Option {
	return func(e *Evaluator) { e.engine = engine }
}

// NewEvaluator 创建评估器
// 参数 cfg: 完整配置（策略、风控、波动率表）
// 参数 books: 订单簿数据源
// 参数 builder: 订单构造器
func NewEvaluator(cfg *config.Config, books BookSource, builder *order.Builder, opts ...Option) *Evaluator {
	e := &Evaluator{
		engine:   signal.NewEngine(signal.NewFairValueStrategy(signal.ThresholdsFrom(cfg.Strategy))),
		sizer:    risk.NewSizer(cfg.Risk),
		builder:  builder,
		books:    books,
		strategy: cfg.Strategy,
		risk:     cfg.Risk,
		offset:   cfg.Order.PriceOffsetCents,
		vol:      cfg.VolatilityFor,
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate 评估一个市场
// 参数 ctx: 用于订单簿请求
// 参数 spec: 市场参数
// 参数 underlying: 标的当前价格
func (e *Evaluator) Evaluate(ctx context.Context, spec model.MarketSpec, underlying float64) (Decision, error) {
	now := e.clock()
	d := Decision{
		Market:      spec.Slug,
		Asset:       spec.Asset,
		Underlying:  underlying,
		Strike:      spec.Strike,
		Signal:      model.Signal{Direction: model.DirectionNone},
		EvaluatedAt: now,
	}

	h := horizon.Resolve(spec.Expiry, now)
	d.HorizonYears, d.HorizonSrc = h.Years, h.Source

	vol := e.vol(spec.Asset)
	r := probability.Estimate(underlying, spec.Strike, h.Years, vol, e.strategy.RiskFreeRate)
	d.ModelProb, d.ModelSrc = r.Value, r.Source
	d.Signal.ModelProb = r.Value

	switch r.Source {
	case probability.SourceInvalidInput:
		d.Reason = ReasonInvalidInput
		return d, nil
	case probability.SourceExpired:
		d.Reason = ReasonExpired
		return d, nil
	}

	if !signal.NeedsBook(r.Value, e.strategy.BookFetchLow, e.strategy.BookFetchHigh) {
		d.Reason = ReasonInBand
		return d, nil
	}

	book, err := e.books.Orderbook(ctx, spec.Slug)
	if err != nil {
		return d, fmt.Errorf("%w %s: %w", ErrBookFetch, spec.Slug, err)
	}
	d.BookFetched = true
	if book == nil {
		d.Reason = ReasonNoBook
		return d, nil
	}

	snap := model.MarketSnapshot{
		Market:       spec,
		Underlying:   underlying,
		Volatility:   vol,
		RiskFreeRate: e.strategy.RiskFreeRate,
		MarketProb:   book.ImpliedProbability(),
		Now:          now,
	}
	sig := e.engine.Evaluate(snap)
	d.Signal = sig

	if sig.IsNone() {
		d.Reason = ReasonNoEdge
		return d, nil
	}
	if !sig.Actionable {
		d.Reason = ReasonLowConfidence
		return d, nil
	}

	price := sig.OutcomePrice()
	amount := e.sizer.Size(risk.SizingInput{
		PortfolioBalance: e.risk.PortfolioBalance,
		Confidence:       sig.WinProbability(),
		DecimalOdds:      risk.DecimalOdds(price),
		HorizonYears:     h.Years,
	})
	d.Intent = model.SizedOrderIntent{
		Direction:  sig.Direction,
		Amount:     amount,
		Confidence: sig.Confidence,
		PriceCents: order.LimitPriceCents(price, e.offset),
		TokenID:    spec.TokenFor(sig.Direction),
	}
	if !risk.Viable(amount, e.risk.MinTradeSize) {
		d.Reason = ReasonBelowMinSize
		return d, nil
	}

	signed, err := e.builder.BuildAndSign(d.Intent, spec, now)
	if err != nil {
		return d, fmt.Errorf("%w %s: %w", ErrSigning, spec.Slug, err)
	}
	d.Order = &signed
	d.Reason = ReasonSigned
	return d, nil
}
