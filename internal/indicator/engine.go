package indicator

import (
	"math"
	"sync"
	"time"

	"swing-scannerv1/internal/model"
)

// Config specifies indicator periods for one instrument engine.
type Config struct {
	WilderPeriod int // ATR and ADX period
	EMAPeriod    int // long regime EMA
	RSIPeriod    int
	MACDFast     int
	MACDSlow     int
	MACDSignal   int
	VolumeWindow int // rolling average-volume window
}

// DefaultConfig returns the standard swing-scan periods: Wilder 14,
// EMA 200, RSI 14, MACD 12/26/9, 20-bar volume average.
func DefaultConfig() Config {
	return Config{
		WilderPeriod: model.DefaultATRPeriod,
		EMAPeriod:    200,
		RSIPeriod:    14,
		MACDFast:     12,
		MACDSlow:     26,
		MACDSignal:   9,
		VolumeWindow: 20,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.WilderPeriod == 0 {
		c.WilderPeriod = def.WilderPeriod
	}
	if c.EMAPeriod == 0 {
		c.EMAPeriod = def.EMAPeriod
	}
	if c.RSIPeriod == 0 {
		c.RSIPeriod = def.RSIPeriod
	}
	if c.MACDFast == 0 {
		c.MACDFast = def.MACDFast
	}
	if c.MACDSlow == 0 {
		c.MACDSlow = def.MACDSlow
	}
	if c.MACDSignal == 0 {
		c.MACDSignal = def.MACDSignal
	}
	if c.VolumeWindow == 0 {
		c.VolumeWindow = def.VolumeWindow
	}
	return c
}

// Engine owns the running indicator state for exactly one instrument.
// Bars must be fed in strictly increasing timestamp order; the mutex
// enforces single-writer discipline when multiple feeds could arrive.
// Reading state (Reading) and mutating state (Update) are separate
// operations; a failed evaluation never touches engine state.
type Engine struct {
	mu         sync.Mutex
	instrument string
	cfg        Config

	atr  *ATR
	adx  *ADX
	ema  *EMA
	rsi  *RSI
	macd *MACD

	count      int
	lastTS     time.Time
	lastClose  float64
	lastVolume int64

	volBuf []int64
	volIdx int
	volSum int64
}

// NewEngine creates a fresh engine for one instrument. Zero-valued Config
// fields fall back to DefaultConfig.
func NewEngine(instrument string, cfg Config) *Engine {
	cfg = cfg.withDefaults()
	return &Engine{
		instrument: instrument,
		cfg:        cfg,
		atr:        NewATR(cfg.WilderPeriod),
		adx:        NewADX(cfg.WilderPeriod),
		ema:        NewEMA(cfg.EMAPeriod),
		rsi:        NewRSI(cfg.RSIPeriod),
		macd:       NewMACD(cfg.MACDFast, cfg.MACDSlow, cfg.MACDSignal),
		volBuf:     make([]int64, cfg.VolumeWindow),
	}
}

// Instrument returns the instrument this engine tracks.
func (e *Engine) Instrument() string { return e.instrument }

// BarsSeen returns how many bars have been fed.
func (e *Engine) BarsSeen() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.count
}

// LastTS returns the timestamp of the most recently consumed bar (zero
// before the first bar). Feeders use it to skip already-seen history.
func (e *Engine) LastTS() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastTS
}

// Update feeds the next bar in sequence. On success it returns a fresh
// IndicatorReading; until the Wilder warm-up window completes it returns
// an InsufficientHistoryError instead. Malformed or out-of-order bars
// return a DataIntegrityError without mutating state.
func (e *Engine) Update(bar model.PriceBar) (model.IndicatorReading, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := bar.Validate(); err != nil {
		if die, ok := err.(*model.DataIntegrityError); ok {
			die.Instrument = e.instrument
		}
		return model.IndicatorReading{}, err
	}
	if e.count > 0 && !bar.TS.After(e.lastTS) {
		return model.IndicatorReading{}, &model.DataIntegrityError{
			Instrument: e.instrument,
			Detail:     "bar timestamp not after previous bar",
		}
	}

	e.feed(bar)
	return e.readingLocked()
}

// feed pushes the bar through every indicator. Caller holds the lock.
func (e *Engine) feed(bar model.PriceBar) {
	e.atr.Update(bar)
	e.adx.Update(bar)
	e.ema.Update(bar)
	e.rsi.Update(bar)
	e.macd.Update(bar)

	if e.count >= e.cfg.VolumeWindow {
		e.volSum -= e.volBuf[e.volIdx]
	}
	e.volBuf[e.volIdx] = bar.Volume
	e.volSum += bar.Volume
	e.volIdx = (e.volIdx + 1) % e.cfg.VolumeWindow

	e.count++
	e.lastTS = bar.TS
	e.lastClose = bar.Close
	e.lastVolume = bar.Volume
}

// Reading derives an immutable value snapshot from current state without
// mutating anything.
func (e *Engine) Reading() (model.IndicatorReading, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.readingLocked()
}

func (e *Engine) readingLocked() (model.IndicatorReading, error) {
	// The first reading exists once ATR is seeded and the first DI/DX
	// values are out; one full Wilder period plus the seed bar.
	if !e.atr.Ready() || !e.adx.Ready() {
		return model.IndicatorReading{}, &model.InsufficientHistoryError{
			Have: e.count,
			Need: e.cfg.WilderPeriod + 1,
		}
	}

	window := e.count
	if window > e.cfg.VolumeWindow {
		window = e.cfg.VolumeWindow
	}
	avgVol := int64(0)
	if window > 0 {
		avgVol = e.volSum / int64(window)
	}

	return model.IndicatorReading{
		Instrument: e.instrument,
		AsOf:       e.lastTS,
		ATR:        e.atr.Value(),
		ADX:        e.adx.Value(),
		PlusDI:     e.adx.PlusDI(),
		MinusDI:    e.adx.MinusDI(),
		EMA200:     e.ema.Value(),
		RSI:        e.rsi.Value(),
		MACD:       e.macd.Value(),
		MACDSignal: e.macd.SignalValue(),
		Close:      e.lastClose,
		Volume:     e.lastVolume,
		AvgVolume:  avgVol,
	}, nil
}

// reconcileTolerance is the max relative drift between running state and a
// replay from raw history before the replayed state is adopted.
const reconcileTolerance = 1e-9

// Reconcile replays the given raw bar history into a fresh engine and
// compares ATR and ADX against the running state. Long-running Wilder
// recursion accumulates floating-point error; when the relative drift
// exceeds the tolerance, the replayed state replaces the running state.
// Returns true when state was replaced.
//
// A replay that covers fewer bars than the engine has consumed starts
// from a different point in the series and is not comparable to the
// running state; Reconcile leaves the engine untouched in that case.
func (e *Engine) Reconcile(history []model.PriceBar) (bool, error) {
	if len(history) < e.BarsSeen() {
		return false, nil
	}

	fresh := NewEngine(e.instrument, e.cfg)
	for _, bar := range history {
		if _, err := fresh.Update(bar); err != nil {
			if _, warming := err.(*model.InsufficientHistoryError); warming {
				continue
			}
			return false, err
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if relDrift(e.atr.Value(), fresh.atr.Value()) <= reconcileTolerance &&
		relDrift(e.adx.Value(), fresh.adx.Value()) <= reconcileTolerance {
		return false, nil
	}

	e.atr = fresh.atr
	e.adx = fresh.adx
	e.ema = fresh.ema
	e.rsi = fresh.rsi
	e.macd = fresh.macd
	e.count = fresh.count
	e.lastTS = fresh.lastTS
	e.lastClose = fresh.lastClose
	e.lastVolume = fresh.lastVolume
	e.volBuf = fresh.volBuf
	e.volIdx = fresh.volIdx
	e.volSum = fresh.volSum
	return true, nil
}

func relDrift(a, b float64) float64 {
	diff := math.Abs(a - b)
	scale := math.Max(math.Abs(a), math.Abs(b))
	if scale == 0 {
		return 0
	}
	return diff / scale
}

// Snapshot captures the engine's full state. Safe to call concurrently
// with updates.
func (e *Engine) Snapshot() InstrumentSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	volCopy := make([]int64, len(e.volBuf))
	copy(volCopy, e.volBuf)
	return InstrumentSnapshot{
		Instrument: e.instrument,
		BarCount:   e.count,
		LastTS:     e.lastTS,
		LastClose:  e.lastClose,
		LastVolume: e.lastVolume,
		VolBuf:     volCopy,
		VolIdx:     e.volIdx,
		VolSum:     e.volSum,
		ATR:        e.atr.Snapshot(),
		ADX:        e.adx.Snapshot(),
		EMA:        e.ema.Snapshot(),
		RSI:        e.rsi.Snapshot(),
		MACD:       e.macd.Snapshot(),
	}
}

// RestoreEngine rebuilds an engine from an instrument snapshot.
func RestoreEngine(cfg Config, snap InstrumentSnapshot) (*Engine, error) {
	e := NewEngine(snap.Instrument, cfg)
	if err := e.atr.RestoreFromSnapshot(snap.ATR); err != nil {
		return nil, err
	}
	if err := e.adx.RestoreFromSnapshot(snap.ADX); err != nil {
		return nil, err
	}
	if err := e.ema.RestoreFromSnapshot(snap.EMA); err != nil {
		return nil, err
	}
	if err := e.rsi.RestoreFromSnapshot(snap.RSI); err != nil {
		return nil, err
	}
	if err := e.macd.RestoreFromSnapshot(snap.MACD); err != nil {
		return nil, err
	}
	e.count = snap.BarCount
	e.lastTS = snap.LastTS
	e.lastClose = snap.LastClose
	e.lastVolume = snap.LastVolume
	if len(snap.VolBuf) == len(e.volBuf) {
		copy(e.volBuf, snap.VolBuf)
		e.volIdx = snap.VolIdx
		e.volSum = snap.VolSum
	}
	return e, nil
}
