// Package metrics 暴露管线运行指标（Prometheus）。
// 使用私有 Registry，测试之间互不干扰。
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metrics 管线指标集合
type Metrics struct {
	registry *prometheus.Registry

	// Evaluations 评估次数，按市场与结束原因
	Evaluations *prometheus.CounterVec
	// OrdersSigned 签名订单数，按市场与方向
	OrdersSigned *prometheus.CounterVec
	// BookErrors 订单簿拉取失败数
	BookErrors *prometheus.CounterVec
	// SignErrors 订单构造或签名失败数
	SignErrors *prometheus.CounterVec
	// Ticks 行情 tick 数
	Ticks *prometheus.CounterVec
	// Reconnects 行情重连次数
	Reconnects prometheus.Counter
	// Underlying 最新标的中间价
	Underlying *prometheus.GaugeVec
	// Edge 最近一次评估的置信度
	Edge *prometheus.GaugeVec
	// CycleSeconds 单轮评估耗时
	CycleSeconds prometheus.Histogram
}

// New 创建并注册全部指标
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Evaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "edge_evaluations_total", Help: "Market evaluations by outcome reason"},
			[]string{"market", "reason"},
		),
		OrdersSigned: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "edge_orders_signed_total", Help: "Signed orders emitted"},
			[]string{"market", "direction"},
		),
		BookErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "edge_book_errors_total", Help: "Orderbook fetch failures"},
			[]string{"market"},
		),
		SignErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "edge_sign_errors_total", Help: "Order build or signing failures"},
			[]string{"market"},
		),
		Ticks: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "edge_ticks_total", Help: "Price ticks ingested"},
			[]string{"symbol"},
		),
		Reconnects: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "edge_feed_reconnects_total", Help: "Price feed reconnects"},
		),
		Underlying: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: "edge_underlying_price", Help: "Latest underlying mid price"},
			[]string{"asset"},
		),
		Edge: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: "edge_confidence", Help: "Latest |model - market| per market"},
			[]string{"market"},
		),
		CycleSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "edge_cycle_seconds",
			Help:    "Duration of one evaluation cycle",
			Buckets: prometheus.DefBuckets,
		}),
	}
	m.registry.MustRegister(
		m.Evaluations, m.OrdersSigned, m.BookErrors, m.SignErrors, m.Ticks,
		m.Reconnects, m.Underlying, m.Edge, m.CycleSeconds,
	)
	return m
}

// Gatherer 指标采集入口
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// Handler /metrics 处理器
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve 启动 /metrics 服务，ctx 取消后优雅关闭
// 返回: 服务退出错误（正常关闭时为 nil）
func (m *Metrics) Serve(ctx context.Context, addr string, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("指标服务启动", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
