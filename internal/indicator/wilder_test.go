package indicator

import (
	"math"
	"testing"
	"time"

	"swing-scannerv1/internal/model"
)

var t0 = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

// mkBars builds n daily bars using the supplied shape function.
func mkBars(n int, shape func(i int) (o, h, l, c float64)) []model.PriceBar {
	bars := make([]model.PriceBar, n)
	for i := 0; i < n; i++ {
		o, h, l, c := shape(i)
		bars[i] = model.PriceBar{
			TS:     t0.AddDate(0, 0, i),
			Open:   o,
			High:   h,
			Low:    l,
			Close:  c,
			Volume: 1000,
		}
	}
	return bars
}

// flatBars: open=close=100, high=101, low=99; constant range, no direction.
func flatBars(n int) []model.PriceBar {
	return mkBars(n, func(i int) (float64, float64, float64, float64) {
		return 100, 101, 99, 100
	})
}

// trendBars: close rises by 2 each bar, consistent 2-wide range around close.
func trendBars(n int) []model.PriceBar {
	return mkBars(n, func(i int) (float64, float64, float64, float64) {
		c := 100.0 + 2.0*float64(i)
		return c - 1, c + 1, c - 1, c
	})
}

func TestATR_ConvergesToConstantRange(t *testing.T) {
	// Constant high-low range with no close gaps: ATR must equal the range
	// once seeded, independent of price magnitude.
	for _, base := range []float64{5, 100, 25000} {
		atr := NewATR(14)
		for i := 0; i < 30; i++ {
			atr.Update(model.PriceBar{
				TS:    t0.AddDate(0, 0, i),
				Open:  base,
				High:  base + 1.5,
				Low:   base - 1.5,
				Close: base,
			})
		}
		if !atr.Ready() {
			t.Fatalf("base %.0f: ATR not ready after 30 bars", base)
		}
		if math.Abs(atr.Value()-3.0) > 1e-9 {
			t.Errorf("base %.0f: expected ATR=3.0, got %.12f", base, atr.Value())
		}
	}
}

func TestATR_TrueRangeUsesPrevClose(t *testing.T) {
	atr := NewATR(2)
	atr.Update(model.PriceBar{TS: t0, Open: 100, High: 101, Low: 99, Close: 100})
	// Gap up: high-low is only 2 but |high-prevClose| is 9, TR must be 9.
	atr.Update(model.PriceBar{TS: t0.AddDate(0, 0, 1), Open: 108, High: 109, Low: 107, Close: 108})
	atr.Update(model.PriceBar{TS: t0.AddDate(0, 0, 2), Open: 108, High: 110, Low: 108, Close: 109})
	// Seed = (TR1 + TR2)/2 = (9 + 2)/2
	if got := atr.Value(); math.Abs(got-5.5) > 1e-9 {
		t.Errorf("expected seeded ATR=5.5, got %.6f", got)
	}
}

func TestATR_FrozenInstrument(t *testing.T) {
	atr := NewATR(14)
	for i := 0; i < 20; i++ {
		atr.Update(model.PriceBar{
			TS: t0.AddDate(0, 0, i), Open: 50, High: 50, Low: 50, Close: 50,
		})
	}
	if atr.Value() != 0 {
		t.Errorf("frozen instrument: expected ATR=0, got %.6f", atr.Value())
	}
	if atr.HadRange() {
		t.Error("frozen instrument: expected HadRange=false")
	}
}

func TestADX_FlatMarketStaysNearZero(t *testing.T) {
	adx := NewADX(14)
	for _, bar := range flatBars(20) {
		adx.Update(bar)
	}
	if !adx.Ready() {
		t.Fatal("ADX not ready after 20 flat bars")
	}
	if adx.Value() > 1e-9 {
		t.Errorf("flat market: expected ADX≈0, got %.6f", adx.Value())
	}
	if adx.PlusDI() != 0 || adx.MinusDI() != 0 {
		t.Errorf("flat market: expected DI=0/0, got %.4f/%.4f", adx.PlusDI(), adx.MinusDI())
	}
}

func TestADX_StrongTrendReadsHigh(t *testing.T) {
	adx := NewADX(14)
	for _, bar := range trendBars(30) {
		adx.Update(bar)
	}
	if adx.Value() < 25 {
		t.Errorf("strong uptrend: expected ADX>=25, got %.4f", adx.Value())
	}
	if adx.PlusDI() <= adx.MinusDI() {
		t.Errorf("uptrend: expected +DI > -DI, got %.4f <= %.4f", adx.PlusDI(), adx.MinusDI())
	}
}

func TestADX_NoNaNOnZeroDenominator(t *testing.T) {
	adx := NewADX(14)
	for _, bar := range flatBars(40) {
		adx.Update(bar)
	}
	if math.IsNaN(adx.Value()) || math.IsNaN(adx.PlusDI()) || math.IsNaN(adx.MinusDI()) {
		t.Fatal("ADX produced NaN on zero directional movement")
	}
}

func TestRSI_Extremes(t *testing.T) {
	up := NewRSI(14)
	down := NewRSI(14)
	for i := 0; i < 30; i++ {
		c := 100.0 + float64(i)
		up.Update(model.PriceBar{TS: t0.AddDate(0, 0, i), Open: c, High: c + 1, Low: c - 1, Close: c})
		d := 200.0 - float64(i)
		down.Update(model.PriceBar{TS: t0.AddDate(0, 0, i), Open: d, High: d + 1, Low: d - 1, Close: d})
	}
	if up.Value() != 100 {
		t.Errorf("monotone rise: expected RSI=100, got %.4f", up.Value())
	}
	if down.Value() > 1 {
		t.Errorf("monotone fall: expected RSI≈0, got %.4f", down.Value())
	}
}

func TestMACD_CrossesOnTrendChange(t *testing.T) {
	macd := NewMACD(12, 26, 9)
	// 60 falling bars then 20 rising: MACD should end above its signal line.
	i := 0
	for ; i < 60; i++ {
		c := 200.0 - float64(i)
		macd.Update(model.PriceBar{TS: t0.AddDate(0, 0, i), Open: c, High: c + 1, Low: c - 1, Close: c})
	}
	for ; i < 80; i++ {
		c := 140.0 + 3.0*float64(i-60)
		macd.Update(model.PriceBar{TS: t0.AddDate(0, 0, i), Open: c, High: c + 1, Low: c - 1, Close: c})
	}
	if !macd.Ready() {
		t.Fatal("MACD not ready after 80 bars")
	}
	if macd.Value() <= macd.SignalValue() {
		t.Errorf("after reversal rally: expected MACD above signal, got %.4f <= %.4f",
			macd.Value(), macd.SignalValue())
	}
}
