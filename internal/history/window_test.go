package history

import (
	"testing"
	"time"

	"swing-scannerv1/internal/model"
)

func barAt(day int, close float64) model.PriceBar {
	return model.PriceBar{
		TS:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, day),
		Open:  close,
		High:  close + 1,
		Low:   close - 1,
		Close: close,
	}
}

func TestWindow_OrderedBeforeWrap(t *testing.T) {
	w := NewWindow(5)
	for i := 0; i < 3; i++ {
		w.Push(barAt(i, 100+float64(i)))
	}
	bars := w.Bars()
	if len(bars) != 3 {
		t.Fatalf("expected 3 bars, got %d", len(bars))
	}
	for i, bar := range bars {
		if bar.Close != 100+float64(i) {
			t.Errorf("bar %d out of order: close=%.0f", i, bar.Close)
		}
	}
}

func TestWindow_WrapKeepsNewestOldestFirst(t *testing.T) {
	w := NewWindow(4)
	for i := 0; i < 10; i++ {
		w.Push(barAt(i, float64(i)))
	}
	bars := w.Bars()
	if len(bars) != 4 {
		t.Fatalf("expected 4 retained bars, got %d", len(bars))
	}
	// Should retain bars 6..9 oldest-first.
	for i, bar := range bars {
		if bar.Close != float64(6+i) {
			t.Errorf("slot %d: expected close %d, got %.0f", i, 6+i, bar.Close)
		}
	}
	if w.Total() != 10 {
		t.Errorf("expected total 10, got %d", w.Total())
	}
}

func TestBook_PerInstrumentWindows(t *testing.T) {
	b := NewBook(8)
	b.Push("AAPL", barAt(0, 100))
	b.Push("AAPL", barAt(1, 101))
	b.Push("TSLA", barAt(0, 200))

	if got := len(b.Bars("AAPL")); got != 2 {
		t.Errorf("AAPL: expected 2 bars, got %d", got)
	}
	if got := len(b.Bars("TSLA")); got != 1 {
		t.Errorf("TSLA: expected 1 bar, got %d", got)
	}
	if b.Bars("MSFT") != nil {
		t.Error("unknown instrument should return nil")
	}
}
