// Package main 是二元市场边际交易器的入口点。
// 按调度周期为每个配置的市场计算 N(d2) 模型概率，与订单簿隐含概率比较，
// 对超过门槛的机会按分数 Kelly 定仓并生成 EIP-712 签名订单，写入 orders.jsonl 交给执行方。
//
// 本进程不提交订单。
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	ossignal "os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"binary-edge-trader/internal/config"
	"binary-edge-trader/internal/core/model"
	"binary-edge-trader/internal/core/pipeline"
	"binary-edge-trader/internal/core/store"
	"binary-edge-trader/internal/exchange/binance"
	"binary-edge-trader/internal/exchange/limitless"
	"binary-edge-trader/internal/metrics"
	"binary-edge-trader/internal/order"
	"binary-edge-trader/internal/output/jsonl"
	"binary-edge-trader/internal/scheduler"
)

func main() {
	var configPath, envPath string
	flag.StringVar(&configPath, "config", "config.yaml", "配置文件路径")
	flag.StringVar(&envPath, "env", ".env", "机密文件路径（PRIVATE_KEY）")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	secrets, err := config.LoadSecrets(envPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载机密失败: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.App.LogLevel)
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 捕获 SIGINT/SIGTERM，触发优雅退出
	sigCh := make(chan os.Signal, 2)
	ossignal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("收到退出信号，开始优雅关闭")
		cancel()
	}()

	signer, err := order.NewKeySigner(secrets.PrivateKey)
	if err != nil {
		logger.Error("加载私钥失败", zap.Error(err))
		os.Exit(1)
	}
	builder, err := order.NewBuilder(cfg.Exchange, cfg.Order, signer)
	if err != nil {
		logger.Error("创建订单构造器失败", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("签名地址", zap.String("address", signer.Address().Hex()), zap.Int("markets", len(cfg.Markets)))

	sink, err := jsonl.NewSink(cfg.Output)
	if err != nil {
		logger.Error("创建输出失败", zap.Error(err))
		os.Exit(1)
	}

	m := metrics.New()
	if cfg.Metrics.Enabled {
		go func() {
			if err := m.Serve(ctx, cfg.Metrics.Addr, logger); err != nil {
				logger.Error("指标服务退出", zap.Error(err))
			}
		}()
	}

	prices := store.New()
	feed := binance.NewClient(&cfg.Feed, cfg.Pairs(), logger)

	startCtx, startCancel := context.WithTimeout(ctx, 10*time.Second)
	defer startCancel()
	if err := feed.Connect(startCtx); err != nil {
		logger.Error("行情连接失败", zap.Error(err))
		os.Exit(1)
	}
	if err := feed.Subscribe(); err != nil {
		logger.Error("行情订阅失败", zap.Error(err))
		os.Exit(1)
	}
	go feed.Run(ctx)

	feedDone := make(chan struct{})
	go func() {
		defer close(feedDone)
		consumeTicks(ctx, feed, prices, m, assetsByPair(cfg))
	}()

	books := limitless.NewFetcher(cfg.Exchange, logger)
	eval := pipeline.NewEvaluator(cfg, books, builder)
	round := newCycle(cfg, eval, prices, sink, m, logger)

	runner, err := scheduler.New(cfg.Schedule.Spec, func(jobCtx context.Context) {
		round.run(jobCtx)
		if err := sink.Flush(); err != nil {
			logger.Warn("flush 输出失败", zap.Error(err))
		}
	}, logger)
	if err != nil {
		logger.Error("创建调度器失败", zap.Error(err))
		os.Exit(1)
	}
	runner.Start()

	<-ctx.Done()

	// 优雅关闭（10s 超时）
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := runner.Stop(shutdownCtx); err != nil {
		logger.Warn("等待扫描结束超时", zap.Error(err))
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = feed.Close()
		<-feedDone
		if err := sink.Close(); err != nil {
			logger.Warn("关闭输出失败", zap.Error(err))
		}
	}()

	select {
	case <-shutdownCtx.Done():
		logger.Warn("关闭超时，强制退出")
	case <-done:
		logger.Info("关闭完成", zap.Int64("write_failures", sink.Failed()))
	}
}

func newLogger(level string) *zap.Logger {
	lvl := zapcore.InfoLevel
	if err := lvl.Set(level); err != nil {
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func assetsByPair(cfg *config.Config) map[string]string {
	out := make(map[string]string, len(cfg.Assets))
	for _, a := range cfg.Assets {
		out[strings.ToUpper(a.Pair)] = strings.ToUpper(a.Symbol)
	}
	return out
}

type tickFeed interface {
	TickCh() <-chan *model.PriceTick
	Metrics() binance.ConnectionMetrics
}

// consumeTicks 把行情写入价格缓存，并同步行情指标
// 行情通道关闭或 ctx 取消时返回
func consumeTicks(ctx context.Context, feed tickFeed, prices *store.PriceStore, m *metrics.Metrics, assets map[string]string) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	var reconnects int64
	ch := feed.TickCh()
	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-ch:
			if !ok {
				return
			}
			prices.Update(t)
			m.Ticks.WithLabelValues(t.Symbol).Inc()
			if asset, ok := assets[t.Symbol]; ok && t.IsValid() {
				m.Underlying.WithLabelValues(asset).Set(t.Mid())
			}
		case <-ticker.C:
			cur := feed.Metrics().ReconnectCount
			if cur > reconnects {
				m.Reconnects.Add(float64(cur - reconnects))
				reconnects = cur
			}
		}
	}
}
