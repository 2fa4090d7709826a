// Package history keeps a bounded in-memory window of the most recent raw
// bars per instrument. The window backs the indicator engine's
// replay-from-history drift reconciliation: Wilder state can only be
// rebuilt by replaying bars in order from a fixed starting point.
package history

import (
	"sync"

	"swing-scannerv1/internal/model"
)

// Window is a fixed-capacity circular buffer of bars for one instrument.
// When full, the oldest bar is overwritten.
type Window struct {
	buf   []model.PriceBar
	idx   int // next write position
	count int // total bars pushed
}

// NewWindow creates a window retaining the last `capacity` bars.
// Minimum capacity is 2.
func NewWindow(capacity int) *Window {
	if capacity < 2 {
		capacity = 2
	}
	return &Window{buf: make([]model.PriceBar, capacity)}
}

// Push appends a bar, overwriting the oldest when full.
func (w *Window) Push(bar model.PriceBar) {
	w.buf[w.idx] = bar
	w.idx = (w.idx + 1) % len(w.buf)
	w.count++
}

// Len returns the number of retained bars.
func (w *Window) Len() int {
	if w.count < len(w.buf) {
		return w.count
	}
	return len(w.buf)
}

// Bars returns the retained bars oldest-first as a fresh slice.
func (w *Window) Bars() []model.PriceBar {
	n := w.Len()
	out := make([]model.PriceBar, 0, n)
	start := 0
	if w.count >= len(w.buf) {
		start = w.idx
	}
	for i := 0; i < n; i++ {
		out = append(out, w.buf[(start+i)%len(w.buf)])
	}
	return out
}

// Total returns how many bars were ever pushed, including overwritten ones.
func (w *Window) Total() int { return w.count }

// Book holds one Window per instrument.
type Book struct {
	mu       sync.RWMutex
	capacity int
	windows  map[string]*Window
}

// NewBook creates a Book whose windows retain `capacity` bars each.
func NewBook(capacity int) *Book {
	return &Book{
		capacity: capacity,
		windows:  make(map[string]*Window, 16),
	}
}

// Push records a bar for an instrument, creating its window on first use.
func (b *Book) Push(instrument string, bar model.PriceBar) {
	b.mu.Lock()
	defer b.mu.Unlock()
	w, ok := b.windows[instrument]
	if !ok {
		w = NewWindow(b.capacity)
		b.windows[instrument] = w
	}
	w.Push(bar)
}

// Bars returns the retained bars for an instrument, oldest-first.
// Returns nil for an unknown instrument.
func (b *Book) Bars(instrument string) []model.PriceBar {
	b.mu.RLock()
	defer b.mu.RUnlock()
	w, ok := b.windows[instrument]
	if !ok {
		return nil
	}
	return w.Bars()
}
