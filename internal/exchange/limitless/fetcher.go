// Package limitless 从预测市场交易所拉取 YES 代币订单簿。
package limitless

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"binary-edge-trader/internal/config"
	"binary-edge-trader/internal/core/model"
	"binary-edge-trader/internal/util/backoff"
)

// maxAttempts 服务端错误与网络错误的最大尝试次数
const maxAttempts = 3

// errRetryable 可重试错误
var errRetryable = errors.New("可重试")

// Fetcher 订单簿获取器
type Fetcher struct {
	client  *http.Client
	baseURL string
	logger  *zap.Logger
	// newBackoff 每次请求独立的退避
	newBackoff func() *backoff.Backoff
}

// NewFetcher 创建订单簿获取器
// 参数 cfg: 交易所配置（API 地址与超时）
func NewFetcher(cfg config.ExchangeConfig, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutMs) * time.Millisecond,
		},
		baseURL: strings.TrimRight(cfg.APIURL, "/"),
		logger:  logger.Named("limitless"),
		newBackoff: func() *backoff.Backoff {
			return backoff.New(200*time.Millisecond, 2*time.Second, 0.2)
		},
	}
}

// Orderbook 获取市场订单簿
// 参数 ctx: 上下文，用于取消请求
// 参数 slug: 市场标识
// 返回: 市场不存在（404）时返回 (nil, nil)
func (f *Fetcher) Orderbook(ctx context.Context, slug string) (*model.Orderbook, error) {
	endpoint := fmt.Sprintf("%s/markets/%s/orderbook", f.baseURL, url.PathEscape(slug))
	bo := f.newBackoff()

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		body, found, err := f.doRequest(ctx, endpoint)
		if err == nil {
			if !found {
				return nil, nil
			}
			return decodeOrderbook(body)
		}
		lastErr = err
		if !errors.Is(err, errRetryable) || attempt == maxAttempts {
			break
		}
		f.logger.Debug("订单簿请求失败，准备重试",
			zap.String("slug", slug), zap.Int("attempt", attempt), zap.Error(err))
		if werr := bo.Wait(ctx); werr != nil {
			return nil, werr
		}
	}
	return nil, fmt.Errorf("请求订单簿失败: %w", lastErr)
}

// doRequest 执行 HTTP GET 请求
// 返回: 响应体；404 时 found=false
func (f *Fetcher) doRequest(ctx context.Context, endpoint string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, false, fmt.Errorf("创建请求失败: %w", err)
	}

	req.Header.Set("User-Agent", "binary-edge-trader/1.0")
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return nil, false, fmt.Errorf("%w: 发送请求失败: %v", errRetryable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, nil
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return nil, false, fmt.Errorf("%w: HTTP 状态码 %d", errRetryable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, false, fmt.Errorf("HTTP 状态码错误: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("读取响应体失败: %w", err)
	}
	return body, true, nil
}

// decodeOrderbook 解析并排序：买盘降序、卖盘升序
func decodeOrderbook(body []byte) (*model.Orderbook, error) {
	var resp OrderbookResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("解析订单簿失败: %w", err)
	}

	book := &model.Orderbook{
		Bids: toLevels(resp.Bids),
		Asks: toLevels(resp.Asks),
	}
	sort.SliceStable(book.Bids, func(i, j int) bool { return book.Bids[i].Price > book.Bids[j].Price })
	sort.SliceStable(book.Asks, func(i, j int) bool { return book.Asks[i].Price < book.Asks[j].Price })
	return book, nil
}

func toLevels(in []LevelJSON) []model.Level {
	out := make([]model.Level, 0, len(in))
	for _, l := range in {
		if l.Price <= 0 {
			continue
		}
		out = append(out, model.Level{Price: float64(l.Price), Size: float64(l.Size)})
	}
	return out
}
