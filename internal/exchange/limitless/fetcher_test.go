package limitless

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"binary-edge-trader/internal/config"
	"binary-edge-trader/internal/util/backoff"
)

func newTestFetcher(url string) *Fetcher {
	f := NewFetcher(config.ExchangeConfig{APIURL: url + "/", TimeoutMs: 2000}, zap.NewNop())
	f.newBackoff = func() *backoff.Backoff { return backoff.New(time.Millisecond, time.Millisecond, 0) }
	return f
}

func TestOrderbook_MixedEncodings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/markets/btc-above-100k/orderbook" {
			t.Errorf("path=%s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"bids": [{"price": "0.41", "size": 10}, {"price": 0.45, "size": "5"}],
			"asks": [{"price": 0.55, "size": 3}, {"price": "0.52", "size": "8"}, {"price": 0, "size": 1}]
		}`))
	}))
	defer srv.Close()

	book, err := newTestFetcher(srv.URL).Orderbook(context.Background(), "btc-above-100k")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if book.BestAsk() != 0.52 || book.BestBid() != 0.45 {
		t.Fatalf("BestAsk=%v BestBid=%v", book.BestAsk(), book.BestBid())
	}
	if len(book.Asks) != 2 {
		t.Fatalf("len(Asks)=%d, want 2（价格为 0 的档位应丢弃）", len(book.Asks))
	}
	if book.ImpliedProbability() != 0.52 {
		t.Fatalf("ImpliedProbability=%v", book.ImpliedProbability())
	}
}

func TestOrderbook_EmptyAsks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"bids": [], "asks": []}`))
	}))
	defer srv.Close()

	book, err := newTestFetcher(srv.URL).Orderbook(context.Background(), "x")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if book.ImpliedProbability() != 1.0 {
		t.Fatalf("空卖盘隐含概率=%v, want 1.0", book.ImpliedProbability())
	}
}

func TestOrderbook_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	book, err := newTestFetcher(srv.URL).Orderbook(context.Background(), "missing")
	if err != nil || book != nil {
		t.Fatalf("book=%v err=%v, want nil, nil", book, err)
	}
}

func TestOrderbook_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"bids": [], "asks": [{"price": "0.3", "size": "1"}]}`))
	}))
	defer srv.Close()

	book, err := newTestFetcher(srv.URL).Orderbook(context.Background(), "x")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if calls.Load() != 3 || book.BestAsk() != 0.3 {
		t.Fatalf("calls=%d BestAsk=%v", calls.Load(), book.BestAsk())
	}
}

func TestOrderbook_Errors(t *testing.T) {
	cases := []struct {
		name      string
		status    int
		body      string
		wantCalls int32
	}{
		{"客户端错误不重试", http.StatusBadRequest, `{}`, 1},
		{"服务端错误重试后失败", http.StatusInternalServerError, `{}`, maxAttempts},
		{"响应体非法", http.StatusOK, `not json`, 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			if _, err := newTestFetcher(srv.URL).Orderbook(context.Background(), "x"); err == nil {
				t.Fatal("应返回错误")
			}
			if calls.Load() != tc.wantCalls {
				t.Fatalf("calls=%d, want %d", calls.Load(), tc.wantCalls)
			}
		})
	}
}

func TestNumber_Unmarshal(t *testing.T) {
	var l LevelJSON
	if err := l.Price.UnmarshalJSON([]byte(`"0.25"`)); err != nil || l.Price != 0.25 {
		t.Fatalf("Price=%v err=%v", l.Price, err)
	}
	if err := l.Size.UnmarshalJSON([]byte(`null`)); err != nil || l.Size != 0 {
		t.Fatalf("Size=%v err=%v", l.Size, err)
	}
	if err := l.Price.UnmarshalJSON([]byte(`"abc"`)); err == nil {
		t.Fatal("非数字字符串应返回错误")
	}
}
