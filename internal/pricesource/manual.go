package pricesource

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"swing-scannerv1/internal/model"
)

// Manual serves bars the user loaded by hand, for accounts at brokers
// without a data API. Bars are validated and kept sorted on load so the
// read path stays cheap.
type Manual struct {
	mu   sync.RWMutex
	bars map[string][]model.PriceBar
}

// NewManual creates an empty manual source.
func NewManual() *Manual {
	return &Manual{bars: make(map[string][]model.PriceBar)}
}

// Name identifies the source in logs and journal rows.
func (m *Manual) Name() string { return "manual" }

// Load replaces the stored series for an instrument. Bars are validated
// and sorted oldest first; duplicate timestamps are rejected.
func (m *Manual) Load(instrument string, bars []model.PriceBar) error {
	sorted := make([]model.PriceBar, len(bars))
	copy(sorted, bars)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].TS.Before(sorted[j].TS) })

	for i := range sorted {
		if err := sorted[i].Validate(); err != nil {
			if die, ok := err.(*model.DataIntegrityError); ok {
				die.Instrument = instrument
			}
			return err
		}
		if i > 0 && !sorted[i].TS.After(sorted[i-1].TS) {
			return &model.DataIntegrityError{
				Instrument: instrument,
				Detail:     fmt.Sprintf("duplicate bar timestamp %s", sorted[i].TS),
			}
		}
	}

	m.mu.Lock()
	m.bars[instrument] = sorted
	m.mu.Unlock()
	return nil
}

// Append adds one bar to the end of an instrument's series.
func (m *Manual) Append(instrument string, bar model.PriceBar) error {
	if err := bar.Validate(); err != nil {
		if die, ok := err.(*model.DataIntegrityError); ok {
			die.Instrument = instrument
		}
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	series := m.bars[instrument]
	if n := len(series); n > 0 && !bar.TS.After(series[n-1].TS) {
		return &model.DataIntegrityError{
			Instrument: instrument,
			Detail:     fmt.Sprintf("bar %s not after last bar %s", bar.TS, series[n-1].TS),
		}
	}
	m.bars[instrument] = append(series, bar)
	return nil
}

// Bars returns the newest lookback bars, oldest first.
func (m *Manual) Bars(_ context.Context, instrument string, lookback int) ([]model.PriceBar, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	series, ok := m.bars[instrument]
	if !ok || len(series) == 0 {
		return nil, fmt.Errorf("no bars loaded for %s", instrument)
	}
	if len(series) > lookback && lookback > 0 {
		series = series[len(series)-lookback:]
	}
	out := make([]model.PriceBar, len(series))
	copy(out, series)
	return out, nil
}

// Instruments lists the loaded instruments.
func (m *Manual) Instruments() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.bars))
	for name := range m.bars {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
