// Package binance Binance 解析器测试
package binance

import (
	"encoding/json"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestParser_RoundTrip 解析后的 PriceTick 应保留原始价格与序号
func TestParser_RoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	parser := NewParser([]string{"BTCUSDT", "ETHUSDT"})

	properties.Property("解析保留价格和序号", prop.ForAll(
		func(bidPx, spread float64, id int64) bool {
			askPx := bidPx + spread
			msg := BookTicker{
				UpdateID: id,
				Symbol:   "BTCUSDT",
				BidPx:    fmt.Sprintf("%.2f", bidPx),
				BidQty:   "1.5",
				AskPx:    fmt.Sprintf("%.2f", askPx),
				AskQty:   "2.0",
			}
			data, err := json.Marshal(msg)
			if err != nil {
				return false
			}

			ticks, err := parser.Parse(data)
			if err != nil || len(ticks) != 1 {
				return false
			}
			tick := ticks[0]
			return tick.Symbol == "BTCUSDT" &&
				tick.UpdateID == id &&
				math.Abs(tick.Bid-bidPx) < 0.01 &&
				math.Abs(tick.Ask-askPx) < 0.01
		},
		gen.Float64Range(10000, 100000),
		gen.Float64Range(0.01, 50),
		gen.Int64Range(1, 1<<40),
	))

	properties.TestingRun(t)
}

func TestParser_RealMessage(t *testing.T) {
	p := NewParser([]string{"btcusdt"})
	arrived := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return arrived }

	data := []byte(`{"u":400900217,"s":"BTCUSDT","b":"94999.50","B":"1.2","a":"95000.50","A":"0.8"}`)
	ticks, err := p.Parse(data)
	if err != nil {
		t.Fatalf("Parse err=%v", err)
	}
	if len(ticks) != 1 {
		t.Fatalf("len=%d, want 1", len(ticks))
	}
	tick := ticks[0]
	if tick.Mid() != 95000 {
		t.Fatalf("Mid=%v, want 95000", tick.Mid())
	}
	if !tick.ArrivedAt.Equal(arrived) || tick.UpdateID != 400900217 {
		t.Fatalf("tick=%+v", tick)
	}
}

func TestParser_Ignored(t *testing.T) {
	p := NewParser([]string{"BTCUSDT"})
	cases := []struct{ name, raw string }{
		{"订阅响应", `{"result":null,"id":1}`},
		{"未订阅交易对", `{"u":1,"s":"DOGEUSDT","b":"0.1","B":"1","a":"0.2","A":"1"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ticks, err := p.Parse([]byte(tc.raw))
			if err != nil || len(ticks) != 0 {
				t.Fatalf("ticks=%v err=%v, want empty", ticks, err)
			}
		})
	}
}

func TestParser_Errors(t *testing.T) {
	p := NewParser([]string{"BTCUSDT"})
	cases := []struct{ name, raw string }{
		{"非 JSON", `not json`},
		{"价格非数字", `{"u":1,"s":"BTCUSDT","b":"abc","B":"1","a":"2","A":"1"}`},
		{"买卖价交叉", `{"u":1,"s":"BTCUSDT","b":"101","B":"1","a":"100","A":"1"}`},
		{"价格为 0", `{"u":1,"s":"BTCUSDT","b":"0","B":"1","a":"100","A":"1"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := p.Parse([]byte(tc.raw)); err == nil {
				t.Fatal("应返回错误")
			}
		})
	}
}
