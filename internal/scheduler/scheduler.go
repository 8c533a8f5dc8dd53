// Package scheduler 按 cron 表达式周期触发评估轮次。
package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job 一轮任务，ctx 在 Stop 时取消
type Job func(ctx context.Context)

// Runner cron 调度器
// 上一轮未结束时跳过本轮，不会并发执行同一任务。
type Runner struct {
	cron   *cron.Cron
	logger *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

// New 创建调度器并注册任务
// 参数 spec: cron 表达式（支持秒字段与 @every 描述符）
// 参数 job: 每轮执行的任务
func New(spec string, job Job, logger *zap.Logger) (*Runner, error) {
	if job == nil {
		return nil, fmt.Errorf("job 为空")
	}
	ctx, cancel := context.WithCancel(context.Background())
	logger = logger.Named("scheduler")
	cl := cronLogger{logger.Sugar()}
	r := &Runner{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
	if _, err := r.cron.AddFunc(spec, func() { job(r.ctx) }); err != nil {
		cancel()
		return nil, fmt.Errorf("解析调度表达式 %q 失败: %w", spec, err)
	}
	return r, nil
}

// Start 启动调度（非阻塞）
func (r *Runner) Start() {
	r.logger.Info("调度器启动")
	r.cron.Start()
}

// Stop 停止调度并等待进行中的任务结束
// ctx 超时则不再等待
func (r *Runner) Stop(ctx context.Context) error {
	r.cancel()
	done := r.cron.Stop()
	select {
	case <-done.Done():
		r.logger.Info("调度器停止")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger 把 cron 内部日志转到 zap
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
