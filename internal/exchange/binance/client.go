// Package binance 提供标的资产的实时价格：订阅 Binance 现货 <pair>@bookTicker，
// 把最优买卖价转成 model.PriceTick 交给价格缓存，供定价管线取中间价。
//
// 连接断开或读超时后按指数退避重连并重新订阅；
// 每个心跳周期同时发送 ping 并刷新行情新鲜度（哪些交易对超过读超时未更新）。
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"binary-edge-trader/internal/config"
	"binary-edge-trader/internal/core/model"
	"binary-edge-trader/internal/util/backoff"
)

const (
	defaultReadTimeout = 30 * time.Second
	tickBuffer         = 1000
	streamSuffix       = "@bookTicker"
)

// Client 标的行情客户端
type Client struct {
	cfg     *config.FeedConfig
	pairs   []string
	streams []string
	parser  *Parser
	logger  *zap.Logger
	backoff *backoff.Backoff

	connMu sync.Mutex
	conn   *websocket.Conn

	ticks  chan *model.PriceTick
	closed atomic.Bool

	// 行情新鲜度：交易对 -> 最后一次报价时间（纳秒）
	freshMu   sync.Mutex
	lastTick  map[string]int64
	lastMsgNs atomic.Int64

	delivered  atomic.Int64
	dropped    atomic.Int64
	reconnects atomic.Int64
	parseErrs  atomic.Int64
	errSampler sampler

	statsMu sync.RWMutex
	stats   ConnectionMetrics
}

// NewClient 创建行情客户端
// 参数 cfg: 行情配置
// 参数 pairs: 交易对，如 BTCUSDT（大小写均可）
// 参数 logger: 日志记录器
func NewClient(cfg *config.FeedConfig, pairs []string, logger *zap.Logger) *Client {
	upper := make([]string, len(pairs))
	streams := make([]string, len(pairs))
	for i, p := range pairs {
		upper[i] = strings.ToUpper(p)
		streams[i] = strings.ToLower(p) + streamSuffix
	}
	return &Client{
		cfg:      cfg,
		pairs:    upper,
		streams:  streams,
		parser:   NewParser(upper),
		logger:   logger.Named("binance"),
		backoff:  backoff.NewDefault(),
		ticks:    make(chan *model.PriceTick, tickBuffer),
		lastTick: make(map[string]int64, len(upper)),
	}
}

// Connect 建立连接
// 参数 ctx: 控制拨号超时与取消
func (c *Client) Connect(ctx context.Context) error {
	header := http.Header{}
	header.Set("User-Agent", "binary-edge-trader/1.0")
	header.Set("Origin", "https://www.binance.com")

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, header)
	if err != nil {
		return fmt.Errorf("连接 Binance WebSocket 失败: %w", err)
	}
	c.armDeadline(conn)

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()

	c.backoff.Reset()
	c.logger.Info("行情连接成功", zap.String("url", c.cfg.URL), zap.Strings("pairs", c.pairs))
	return nil
}

// armDeadline 设置读超时；收到 pong 时顺延
func (c *Client) armDeadline(conn *websocket.Conn) {
	timeout := c.readTimeout()
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	conn.SetPongHandler(func(string) error {
		c.lastMsgNs.Store(time.Now().UnixNano())
		return conn.SetReadDeadline(time.Now().Add(timeout))
	})
}

// Subscribe 订阅全部交易对的 bookTicker 流
func (c *Client) Subscribe() error {
	data, err := json.Marshal(SubscribeRequest{Method: "SUBSCRIBE", Params: c.streams, ID: 1})
	if err != nil {
		return fmt.Errorf("序列化订阅请求失败: %w", err)
	}

	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("WebSocket 未连接")
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("发送订阅请求失败: %w", err)
	}

	c.logger.Info("已订阅行情", zap.Strings("streams", c.streams))
	return nil
}

// Run 读取行情直到 ctx 取消或 Close；返回时关闭 TickCh
func (c *Client) Run(ctx context.Context) {
	defer close(c.ticks)
	go c.heartbeat(ctx)
	c.readLoop(ctx)
}

func (c *Client) readLoop(ctx context.Context) {
	for ctx.Err() == nil && !c.closed.Load() {
		conn := c.current()
		if conn == nil {
			c.reconnect(ctx)
			continue
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			if c.closed.Load() {
				return
			}
			c.logger.Warn("行情读取中断", zap.Error(err))
			c.reconnects.Add(1)
			c.reconnect(ctx)
			continue
		}
		_ = conn.SetReadDeadline(time.Now().Add(c.readTimeout()))

		now := time.Now().UnixNano()
		c.lastMsgNs.Store(now)

		ticks, err := c.parser.Parse(data)
		if err != nil {
			c.parseErrs.Add(1)
			if c.errSampler.allow(now) {
				c.logger.Warn("解析行情失败（采样）", zap.Error(err), zap.ByteString("data", truncate(data, 200)))
			}
			continue
		}
		c.deliver(ticks, now)
	}
}

// deliver 投递报价并记录各交易对最后更新时间；通道满时丢弃
func (c *Client) deliver(ticks []*model.PriceTick, now int64) {
	for _, t := range ticks {
		c.freshMu.Lock()
		c.lastTick[t.Symbol] = now
		c.freshMu.Unlock()

		select {
		case c.ticks <- t:
			c.delivered.Add(1)
		default:
			c.dropped.Add(1)
		}
	}
}

// heartbeat 按心跳间隔发送 ping 并刷新连接指标
func (c *Client) heartbeat(ctx context.Context) {
	interval := time.Duration(c.cfg.PingIntervalMs) * time.Millisecond
	if interval <= 0 {
		interval = c.readTimeout() / 2
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := time.Now()
	var lastDelivered int64
	var stale []string
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if c.closed.Load() {
				return
			}
			c.ping()

			delivered := c.delivered.Load()
			rate := float64(delivered-lastDelivered) / now.Sub(last).Seconds()
			lastDelivered, last = delivered, now

			cur := c.stalePairs(now)
			if !equalPairs(cur, stale) && len(cur) > 0 {
				c.logger.Warn("行情超时未更新", zap.Strings("pairs", cur), zap.Duration("timeout", c.readTimeout()))
			}
			stale = cur
			c.publish(now, rate, cur)
		}
	}
}

func (c *Client) ping() {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn == nil {
		return
	}
	if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
		c.logger.Warn("发送 ping 失败", zap.Error(err))
	}
}

// stalePairs 超过读超时没有报价的交易对（按字母序）
func (c *Client) stalePairs(now time.Time) []string {
	limit := now.Add(-c.readTimeout()).UnixNano()
	c.freshMu.Lock()
	defer c.freshMu.Unlock()

	var out []string
	for _, p := range c.pairs {
		if c.lastTick[p] < limit {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

func (c *Client) publish(now time.Time, rate float64, stale []string) {
	var ageMs int64
	if last := c.lastMsgNs.Load(); last > 0 {
		ageMs = (now.UnixNano() - last) / int64(time.Millisecond)
	}
	c.statsMu.Lock()
	c.stats.UpdatesPerSec = rate
	c.stats.LastMessageAgeMs = ageMs
	c.stats.StalePairs = stale
	c.statsMu.Unlock()
}

func (c *Client) reconnect(ctx context.Context) {
	c.closeConn()
	c.logger.Info("准备重连行情", zap.Int("attempt", c.backoff.Attempt()+1))
	if err := c.backoff.Wait(ctx); err != nil {
		return
	}
	if err := c.Connect(ctx); err != nil {
		c.logger.Error("行情重连失败", zap.Error(err))
		return
	}
	if err := c.Subscribe(); err != nil {
		c.logger.Error("行情重新订阅失败", zap.Error(err))
	}
}

func (c *Client) current() *websocket.Conn {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.conn
}

func (c *Client) closeConn() {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

// Close 关闭连接；Run 随后退出并关闭 TickCh
func (c *Client) Close() error {
	c.closed.Store(true)
	c.closeConn()
	c.logger.Info("行情客户端已关闭")
	return nil
}

// TickCh 报价通道
func (c *Client) TickCh() <-chan *model.PriceTick {
	return c.ticks
}

// Metrics 连接指标快照
func (c *Client) Metrics() ConnectionMetrics {
	c.statsMu.RLock()
	m := c.stats
	m.StalePairs = append([]string(nil), c.stats.StalePairs...)
	c.statsMu.RUnlock()

	m.ReconnectCount = c.reconnects.Load()
	m.ParseErrorCount = c.parseErrs.Load()
	m.DroppedTicks = c.dropped.Load()
	return m
}

func (c *Client) readTimeout() time.Duration {
	if c.cfg.ReadTimeoutMs > 0 {
		return time.Duration(c.cfg.ReadTimeoutMs) * time.Millisecond
	}
	return defaultReadTimeout
}

// sampler 解析错误日志采样：每 100 次记 1 条，且至少间隔 1 分钟
type sampler struct {
	count  atomic.Uint64
	lastNs atomic.Int64
}

func (s *sampler) allow(nowNs int64) bool {
	if s.count.Add(1)%100 != 0 {
		return false
	}
	last := s.lastNs.Load()
	if last > 0 && nowNs-last < int64(time.Minute) {
		return false
	}
	return s.lastNs.CompareAndSwap(last, nowNs)
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}

func equalPairs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
