package main

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"binary-edge-trader/internal/config"
	"binary-edge-trader/internal/core/model"
	"binary-edge-trader/internal/core/pipeline"
	"binary-edge-trader/internal/metrics"
)

// reasonNoPrice 标的行情缺失或过期，不进入管线
const reasonNoPrice = "no_price"

type priceSource interface {
	Mid(symbol string, now time.Time, maxAge time.Duration) (float64, bool)
}

type decisionSink interface {
	WriteDecision(d pipeline.Decision) (string, error)
}

// cycle 一轮扫描：逐个市场取标的中间价并评估
type cycle struct {
	markets []model.MarketSpec
	pairs   map[string]string
	eval    *pipeline.Evaluator
	prices  priceSource
	sink    decisionSink
	metrics *metrics.Metrics
	logger  *zap.Logger
	maxAge  time.Duration
	now     func() time.Time
}

func newCycle(cfg *config.Config, eval *pipeline.Evaluator, prices priceSource, sink decisionSink, m *metrics.Metrics, logger *zap.Logger) *cycle {
	c := &cycle{
		markets: make([]model.MarketSpec, len(cfg.Markets)),
		pairs:   make(map[string]string, len(cfg.Assets)),
		eval:    eval,
		prices:  prices,
		sink:    sink,
		metrics: m,
		logger:  logger,
		maxAge:  time.Duration(cfg.Feed.ReadTimeoutMs) * time.Millisecond,
		now:     time.Now,
	}
	for i := range cfg.Markets {
		c.markets[i] = cfg.Markets[i].Spec()
	}
	for _, a := range cfg.Assets {
		c.pairs[strings.ToUpper(a.Symbol)] = strings.ToUpper(a.Pair)
	}
	return c
}

// run 执行一轮
// 返回: 本轮生成的签名订单数
func (c *cycle) run(ctx context.Context) int {
	start := time.Now()
	defer func() { c.metrics.CycleSeconds.Observe(time.Since(start).Seconds()) }()

	signed := 0
	for _, spec := range c.markets {
		if ctx.Err() != nil {
			break
		}
		if c.evaluate(ctx, spec) {
			signed++
		}
	}
	c.logger.Debug("扫描完成", zap.Int("markets", len(c.markets)), zap.Int("signed", signed), zap.Duration("elapsed", time.Since(start)))
	return signed
}

func (c *cycle) evaluate(ctx context.Context, spec model.MarketSpec) bool {
	mid, ok := c.prices.Mid(c.pairs[spec.Asset], c.now(), c.maxAge)
	if !ok {
		c.metrics.Evaluations.WithLabelValues(spec.Slug, reasonNoPrice).Inc()
		c.logger.Warn("标的行情不可用", zap.String("market", spec.Slug), zap.String("asset", spec.Asset))
		return false
	}

	d, err := c.eval.Evaluate(ctx, spec, mid)
	switch {
	case errors.Is(err, pipeline.ErrSigning):
		c.metrics.SignErrors.WithLabelValues(spec.Slug).Inc()
		c.logger.Error("订单签名失败", zap.String("market", spec.Slug), zap.String("token_id", d.Intent.TokenID), zap.Error(err))
		return false
	case err != nil:
		c.metrics.BookErrors.WithLabelValues(spec.Slug).Inc()
		c.logger.Warn("获取订单簿失败", zap.String("market", spec.Slug), zap.Error(err))
		return false
	}

	c.metrics.Evaluations.WithLabelValues(spec.Slug, string(d.Reason)).Inc()
	if d.BookFetched {
		c.metrics.Edge.WithLabelValues(spec.Slug).Set(d.Signal.Confidence)
	}

	id, err := c.sink.WriteDecision(d)
	if err != nil {
		c.logger.Error("写入输出失败", zap.String("market", spec.Slug), zap.Error(err))
	}
	if !d.Signed() {
		return false
	}

	c.metrics.OrdersSigned.WithLabelValues(spec.Slug, string(d.Signal.Direction)).Inc()
	c.logger.Info("生成签名订单",
		zap.String("market", spec.Slug),
		zap.String("id", id),
		zap.String("direction", string(d.Signal.Direction)),
		zap.Float64("model_prob", d.ModelProb),
		zap.Float64("market_prob", d.Signal.MarketProb),
		zap.Float64("amount", d.Intent.Amount),
		zap.Int64("price_cents", d.Intent.PriceCents),
		zap.String("token_id", d.Intent.TokenID),
	)
	return true
}
