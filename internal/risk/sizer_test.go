package risk

import (
	"math"
	"testing"

	"binary-edge-trader/internal/config"
	"binary-edge-trader/internal/pricing/horizon"
)

func defaultSizer() *Sizer {
	return NewSizer(config.RiskConfig{KellyFraction: 0.5, MaxPortfolioRisk: 0.05})
}

func TestSize_CappedScenario(t *testing.T) {
	// p≈1、赔率 2：完整 Kelly≈1，半 Kelly≈0.5，被 5% 上限截断
	got := defaultSizer().Size(SizingInput{
		PortfolioBalance: 1000,
		Confidence:       0.9999,
		DecimalOdds:      2.0,
		HorizonYears:     0.01,
	})
	if math.Abs(got-50) > 1e-9 {
		t.Fatalf("Size=%v, want 50", got)
	}
}

func TestSize_UncappedFraction(t *testing.T) {
	s := NewSizer(config.RiskConfig{KellyFraction: 0.5, MaxPortfolioRisk: 1})
	// p=0.6, b=1: f*=0.2, 半 Kelly=0.1
	got := s.Size(SizingInput{PortfolioBalance: 1000, Confidence: 0.6, DecimalOdds: 2, HorizonYears: 0.05})
	if math.Abs(got-100) > 1e-9 {
		t.Fatalf("Size=%v, want 100", got)
	}
}

func TestSize_ZeroCases(t *testing.T) {
	s := defaultSizer()
	cases := []struct {
		name string
		in   SizingInput
	}{
		{"胜率恰为 0.5", SizingInput{PortfolioBalance: 1000, Confidence: 0.5, DecimalOdds: 3, HorizonYears: 0.01}},
		{"胜率低于 0.5", SizingInput{PortfolioBalance: 1000, Confidence: 0.3, DecimalOdds: 3, HorizonYears: 0.01}},
		{"赔率为 1", SizingInput{PortfolioBalance: 1000, Confidence: 0.9, DecimalOdds: 1, HorizonYears: 0.01}},
		{"赔率小于 1", SizingInput{PortfolioBalance: 1000, Confidence: 0.9, DecimalOdds: 0.5, HorizonYears: 0.01}},
		{"负期望", SizingInput{PortfolioBalance: 1000, Confidence: 0.55, DecimalOdds: 1.5, HorizonYears: 0.01}},
		{"资金为 0", SizingInput{PortfolioBalance: 0, Confidence: 0.9, DecimalOdds: 2, HorizonYears: 0.01}},
		{"NaN 胜率", SizingInput{PortfolioBalance: 1000, Confidence: math.NaN(), DecimalOdds: 2, HorizonYears: 0.01}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := s.Size(tc.in); got != 0 {
				t.Fatalf("Size=%v, want 0", got)
			}
		})
	}
}

func TestTimingMultiplier_Boundaries(t *testing.T) {
	eps := 1e-9
	cases := []struct {
		years float64
		want  float64
	}{
		{LongHorizonYears + eps, 0.8},
		{LongHorizonYears, 1.0},
		{0.05, 1.0},
		{NearExpiryYears, 1.0},
		{NearExpiryYears - eps, 0.5},
		{0, 0.5},
		{1, 0.8},
		// 剩余恰好 1 天不算临近到期
		{86400 / horizon.SecondsPerYear, 1.0},
		{86399 / horizon.SecondsPerYear, 1.0},
		{85000 / horizon.SecondsPerYear, 0.5},
	}

	for _, tc := range cases {
		if got := TimingMultiplier(tc.years); got != tc.want {
			t.Errorf("TimingMultiplier(%v)=%v, want %v", tc.years, got, tc.want)
		}
	}
}

func TestSize_AppliesTimingMultiplier(t *testing.T) {
	s := defaultSizer()
	in := SizingInput{PortfolioBalance: 1000, Confidence: 0.9999, DecimalOdds: 2}

	in.HorizonYears = 0.5
	if got := s.Size(in); math.Abs(got-40) > 1e-9 {
		t.Fatalf("远期 Size=%v, want 40", got)
	}
	in.HorizonYears = 0.001
	if got := s.Size(in); math.Abs(got-25) > 1e-9 {
		t.Fatalf("临近到期 Size=%v, want 25", got)
	}
}

func TestKellyFraction(t *testing.T) {
	// p=0.7, 赔率 2.5 (b=1.5): (1.5*0.7-0.3)/1.5 = 0.5
	if got := KellyFraction(0.7, 2.5); math.Abs(got-0.5) > 1e-12 {
		t.Fatalf("KellyFraction=%v, want 0.5", got)
	}
	if got := KellyFraction(0.5, 10); got != 0 {
		t.Fatalf("KellyFraction(0.5)=%v, want 0", got)
	}
}

func TestDecimalOdds(t *testing.T) {
	if got := DecimalOdds(0.5); got != 2 {
		t.Fatalf("DecimalOdds(0.5)=%v, want 2", got)
	}
	if got := DecimalOdds(0.25); got != 4 {
		t.Fatalf("DecimalOdds(0.25)=%v, want 4", got)
	}
	if got := DecimalOdds(0); got != 1 {
		t.Fatalf("DecimalOdds(0)=%v, want 1", got)
	}
}

func TestViable(t *testing.T) {
	if Viable(0, 0) {
		t.Fatal("金额 0 不应可交易")
	}
	if Viable(0.5, 1) {
		t.Fatal("低于最小规模不应可交易")
	}
	if !Viable(1, 1) || !Viable(50, 1) {
		t.Fatal("达到最小规模应可交易")
	}
}
