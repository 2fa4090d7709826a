package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"swing-scannerv1/internal/history"
	"swing-scannerv1/internal/indicator"
	"swing-scannerv1/internal/model"
)

var day0 = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

// fakeSource serves canned bar sequences per instrument.
type fakeSource struct {
	bars map[string][]model.PriceBar
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Bars(_ context.Context, instrument string, lookback int) ([]model.PriceBar, error) {
	bars, ok := f.bars[instrument]
	if !ok {
		return nil, fmt.Errorf("unknown ticker %s", instrument)
	}
	if len(bars) > lookback {
		bars = bars[len(bars)-lookback:]
	}
	return bars, nil
}

// fakeSettings records the last saved settings.
type fakeSettings struct {
	saved *model.Settings
}

func (f *fakeSettings) Load(context.Context) (model.Settings, error) { return model.Settings{}, nil }
func (f *fakeSettings) Save(_ context.Context, s model.Settings) error {
	f.saved = &s
	return nil
}
func (f *fakeSettings) Close() error { return nil }

func trendSeq(n int, start float64) []model.PriceBar {
	bars := make([]model.PriceBar, n)
	for i := range bars {
		c := start + 2*float64(i)
		bars[i] = model.PriceBar{
			TS: day0.AddDate(0, 0, i), Open: c - 1, High: c + 1, Low: c - 1, Close: c, Volume: 5000,
		}
	}
	return bars
}

func flatSeq(n int) []model.PriceBar {
	bars := make([]model.PriceBar, n)
	for i := range bars {
		bars[i] = model.PriceBar{
			TS: day0.AddDate(0, 0, i), Open: 100, High: 101, Low: 99, Close: 100, Volume: 5000,
		}
	}
	return bars
}

func newTestService(src *fakeSource, settings model.SettingsStore) *Service {
	return New(Options{
		Source:   src,
		Engines:  indicator.NewSet(indicator.Config{}),
		Book:     history.NewBook(256),
		Settings: settings,
		Lookback: 300,
	}, slog.Default())
}

func params() model.RiskParameters {
	return model.RiskParameters{
		AccountEquity:  10000,
		RiskPercent:    0.01,
		MaxAccountSize: 1_000_000,
	}
}

func TestScan_SortsActionableFirstAndIsolatesErrors(t *testing.T) {
	src := &fakeSource{bars: map[string][]model.PriceBar{
		"TREND": trendSeq(60, 100),
		"FLAT":  flatSeq(60),
	}}
	svc := newTestService(src, nil)

	decisions, err := svc.Scan(context.Background(), Request{
		Tickers: "FLAT, TREND, MISSING",
		Params:  params(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(decisions) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(decisions))
	}

	// Trending instrument sorts ahead of the chop-zone and error rows.
	if decisions[0].Instrument != "TREND" {
		t.Errorf("expected TREND first, got %s", decisions[0].Instrument)
	}
	if decisions[0].Signal == model.SignalError || decisions[0].Signal == model.SignalAvoid {
		t.Errorf("trending instrument classified %s (%s)", decisions[0].Signal, decisions[0].Reason)
	}

	var flat, missing *model.Decision
	for i := range decisions {
		switch decisions[i].Instrument {
		case "FLAT":
			flat = &decisions[i]
		case "MISSING":
			missing = &decisions[i]
		}
	}
	if flat == nil || !strings.Contains(flat.Reason, "chop zone") {
		t.Errorf("flat instrument should hit the chop gate: %+v", flat)
	}
	if missing == nil || missing.Signal != model.SignalError {
		t.Errorf("missing ticker should be an error row: %+v", missing)
	}
}

func TestScan_AcceptedDecisionHonorsSolvency(t *testing.T) {
	src := &fakeSource{bars: map[string][]model.PriceBar{"TREND": trendSeq(60, 100)}}
	svc := newTestService(src, nil)

	p := params()
	decisions, err := svc.Scan(context.Background(), Request{Tickers: "TREND", Params: p})
	if err != nil {
		t.Fatal(err)
	}
	d := decisions[0]
	if !d.Accepted {
		t.Fatalf("expected accepted decision, got: %s", d.Reason)
	}
	if d.RiskAmount > p.AccountEquity*p.RiskPercent+1e-9 {
		t.Errorf("risk %0.2f exceeds budget", d.RiskAmount)
	}
	if float64(d.PositionSize)*d.EntryPrice > p.MaxAccountSize+1e-9 {
		t.Errorf("cost %0.2f exceeds cap", float64(d.PositionSize)*d.EntryPrice)
	}
}

func TestScan_InsufficientHistoryRow(t *testing.T) {
	src := &fakeSource{bars: map[string][]model.PriceBar{"NEW": trendSeq(5, 100)}}
	svc := newTestService(src, nil)

	decisions, err := svc.Scan(context.Background(), Request{Tickers: "NEW", Params: params()})
	if err != nil {
		t.Fatal(err)
	}
	d := decisions[0]
	if d.Signal != model.SignalError || !strings.Contains(d.Reason, "insufficient history") {
		t.Errorf("expected insufficient-history row, got %+v", d)
	}
}

func TestScan_PersistsSettings(t *testing.T) {
	src := &fakeSource{bars: map[string][]model.PriceBar{"TREND": trendSeq(60, 100)}}
	store := &fakeSettings{}
	svc := newTestService(src, store)

	_, err := svc.Scan(context.Background(), Request{Tickers: "TREND", Params: params()})
	if err != nil {
		t.Fatal(err)
	}
	if store.saved == nil {
		t.Fatal("expected settings save on scan")
	}
	if store.saved.Tickers != "TREND" || store.saved.AccountEquity != 10000 {
		t.Errorf("unexpected saved settings: %+v", store.saved)
	}
}

func TestScan_RepeatScanSkipsSeenBars(t *testing.T) {
	src := &fakeSource{bars: map[string][]model.PriceBar{"TREND": trendSeq(60, 100)}}
	svc := newTestService(src, nil)

	first, err := svc.Scan(context.Background(), Request{Tickers: "TREND", Params: params()})
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.Scan(context.Background(), Request{Tickers: "TREND", Params: params()})
	if err != nil {
		t.Fatal(err)
	}
	// Same bars fetched twice must not be double-fed into the engine.
	if first[0] != second[0] {
		t.Errorf("replayed scan diverged:\n%+v\n%+v", first[0], second[0])
	}
	if got := svc.opts.Engines.Engine("TREND").BarsSeen(); got != 60 {
		t.Errorf("expected 60 bars seen, got %d", got)
	}
}

func TestScan_EmptyWatchlist(t *testing.T) {
	svc := newTestService(&fakeSource{}, nil)
	_, err := svc.Scan(context.Background(), Request{Tickers: " , ", Params: params()})
	if err == nil {
		t.Fatal("expected error for empty watchlist")
	}
}

func TestEvaluateSetup_ManualEntry(t *testing.T) {
	src := &fakeSource{bars: map[string][]model.PriceBar{"TREND": trendSeq(60, 100)}}
	svc := newTestService(src, nil)

	d := svc.EvaluateSetup(context.Background(), model.TradeSetup{
		Instrument: "TREND",
		EntryPrice: 150, // manual limit entry, not the last close
		Side:       model.Long,
	}, params())
	if d.EntryPrice != 150 {
		t.Errorf("expected manual entry price, got %.2f", d.EntryPrice)
	}
	if d.Signal == model.SignalError {
		t.Errorf("unexpected error row: %s", d.Reason)
	}
}

func TestScan_RestoredEngineSurvivesFreshHistoryWindow(t *testing.T) {
	bars := trendSeq(600, 100)

	// Warm an engine, checkpoint it, and restore into a new set the way a
	// process restart does. The raw bar history is gone at that point.
	warm := indicator.NewSet(indicator.Config{})
	eng := warm.Engine("TREND")
	for _, bar := range bars[:599] {
		eng.Update(bar)
	}
	restored, err := indicator.RestoreSet(indicator.Config{}, warm.Snapshot())
	if err != nil {
		t.Fatal(err)
	}

	src := &fakeSource{bars: map[string][]model.PriceBar{"TREND": bars}}
	svc := New(Options{
		Source:   src,
		Engines:  restored,
		Book:     history.NewBook(256),
		Settings: &fakeSettings{},
		Lookback: 300,
	}, slog.Default())

	decisions, err := svc.Scan(context.Background(), Request{Tickers: "TREND", Params: params()})
	if err != nil {
		t.Fatal(err)
	}

	// The drift reconciliation must not replace 599 restored bars with a
	// replay of the near-empty retained window.
	if got := restored.Engine("TREND").BarsSeen(); got != 600 {
		t.Fatalf("restored engine lost state: BarsSeen=%d, want 600", got)
	}
	if decisions[0].Signal == model.SignalError {
		t.Fatalf("restored engine produced an error row: %q", decisions[0].Reason)
	}
}
