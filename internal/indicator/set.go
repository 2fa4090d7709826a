package indicator

import "sync"

// Set manages one Engine per instrument. Engines for different instruments
// are fully independent; evaluations may run in parallel, each engine
// guarding its own state.
type Set struct {
	mu      sync.RWMutex
	cfg     Config
	engines map[string]*Engine
}

// NewSet creates an empty engine set sharing one indicator config.
func NewSet(cfg Config) *Set {
	return &Set{
		cfg:     cfg.withDefaults(),
		engines: make(map[string]*Engine, 16),
	}
}

// Engine returns the engine for an instrument, creating it on first use.
func (s *Set) Engine(instrument string) *Engine {
	s.mu.RLock()
	e, ok := s.engines[instrument]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.engines[instrument]; ok {
		return e
	}
	e = NewEngine(instrument, s.cfg)
	s.engines[instrument] = e
	return e
}

// Drop removes an instrument's engine, forcing a cold rebuild on next use.
func (s *Set) Drop(instrument string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.engines, instrument)
}

// Instruments lists the instruments with live engines.
func (s *Set) Instruments() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.engines))
	for k := range s.engines {
		out = append(out, k)
	}
	return out
}

// Snapshot captures every engine's state for checkpoint persistence.
func (s *Set) Snapshot() *EngineSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &EngineSnapshot{Version: snapshotVersion}
	for _, e := range s.engines {
		snap.Instruments = append(snap.Instruments, e.Snapshot())
	}
	return snap
}

// RestoreSet rebuilds a Set from an engine snapshot. Instruments whose
// state fails to restore are skipped; they cold-start on next use.
func RestoreSet(cfg Config, snap *EngineSnapshot) (*Set, error) {
	s := NewSet(cfg)
	if snap == nil {
		return s, nil
	}
	for _, is := range snap.Instruments {
		e, err := RestoreEngine(cfg, is)
		if err != nil {
			return nil, err
		}
		s.engines[is.Instrument] = e
	}
	return s, nil
}
