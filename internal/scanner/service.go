// Package scanner runs multi-ticker scan requests end to end: fetch bars
// from the price source, feed each instrument's indicator engine, evaluate
// the setup through the signal pipeline, and fan results out to the
// journal, snapshot store, and live subscribers.
package scanner

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"swing-scannerv1/internal/history"
	"swing-scannerv1/internal/indicator"
	"swing-scannerv1/internal/logger"
	"swing-scannerv1/internal/metrics"
	"swing-scannerv1/internal/model"
	"swing-scannerv1/internal/notification"
	"swing-scannerv1/internal/signal"
)

// Options wires the service's collaborators. Source and Engines are
// required; everything else degrades gracefully when nil.
type Options struct {
	Source    model.BarSource
	Engines   *indicator.Set
	Book      *history.Book
	Journal   model.DecisionJournal
	Settings  model.SettingsStore
	Publisher model.DecisionPublisher
	Restorer  *indicator.Restorer
	Metrics   *metrics.Metrics
	Health    *metrics.HealthStatus
	Notifier  notification.Notifier

	Lookback       int // bars fetched per instrument (default 300)
	ReconcileEvery int // bars between drift reconciliations (default 500, 0 disables)
}

// Service executes scan requests. Evaluations for different instruments
// run concurrently; each instrument's engine guards its own state and
// nothing else is shared mutably.
type Service struct {
	opts Options
	orch *signal.Orchestrator
	log  *slog.Logger

	mu            sync.Mutex
	lastReconcile map[string]int // instrument → BarsSeen at last reconcile
}

// New creates a scan service.
func New(opts Options, log *slog.Logger) *Service {
	if opts.Lookback == 0 {
		opts.Lookback = 300
	}
	if opts.ReconcileEvery == 0 {
		opts.ReconcileEvery = 500
	}
	return &Service{
		opts:          opts,
		orch:          signal.NewOrchestrator(),
		log:           log,
		lastReconcile: make(map[string]int),
	}
}

// Request is one scan over a comma-separated watchlist.
type Request struct {
	Tickers string
	Side    model.Side // defaults to long
	Params  model.RiskParameters
}

// ParseTickers splits and trims the comma-separated watchlist.
func ParseTickers(tickers string) []string {
	parts := strings.Split(tickers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Scan evaluates every ticker in the request concurrently and returns
// decisions sorted most-actionable-first. Per-instrument failures become
// error rows; one bad ticker never aborts the rest of the scan.
func (s *Service) Scan(ctx context.Context, req Request) ([]model.Decision, error) {
	tickers := ParseTickers(req.Tickers)
	if len(tickers) == 0 {
		return nil, &model.InvalidInputError{Field: "tickers", Reason: "watchlist is empty"}
	}
	side := req.Side
	if side == "" {
		side = model.Long
	}
	params := req.Params.WithDefaults()

	scanID := logger.NewScanID(s.opts.Source.Name(), time.Now())
	ctx = logger.WithScanID(ctx, scanID)
	log := s.log.With("scan_id", scanID)
	log.Info("scan started", "tickers", len(tickers), "side", string(side))

	if s.opts.Metrics != nil {
		s.opts.Metrics.ScansTotal.Inc()
	}

	s.persistSettings(ctx, req.Tickers, params)

	decisions := make([]model.Decision, len(tickers))
	var wg sync.WaitGroup
	for i, ticker := range tickers {
		wg.Add(1)
		go func(i int, ticker string) {
			defer wg.Done()
			decisions[i] = s.evaluateInstrument(ctx, ticker, side, params)
		}(i, ticker)
	}
	wg.Wait()

	sort.SliceStable(decisions, func(i, j int) bool {
		pi, pj := decisions[i].Signal.Priority(), decisions[j].Signal.Priority()
		if pi != pj {
			return pi < pj
		}
		return decisions[i].Instrument < decisions[j].Instrument
	})

	s.recordResults(ctx, decisions)
	s.checkpoint(ctx)
	if s.opts.Health != nil {
		s.opts.Health.MarkScan()
	}
	log.Info("scan finished", "decisions", len(decisions))
	return decisions, nil
}

// EvaluateSetup evaluates one explicit setup (manual entry price) against
// the instrument's current indicator state, refreshing bars first.
func (s *Service) EvaluateSetup(ctx context.Context, setup model.TradeSetup, params model.RiskParameters) model.Decision {
	params = params.WithDefaults()
	if err := s.refresh(ctx, setup.Instrument); err != nil {
		return errorDecision(setup.Instrument, setup.Side, err)
	}
	reading, err := s.opts.Engines.Engine(setup.Instrument).Reading()
	if err != nil {
		return errorDecision(setup.Instrument, setup.Side, err)
	}

	start := time.Now()
	d := s.orch.Evaluate(setup, reading, params)
	if s.opts.Metrics != nil {
		s.opts.Metrics.EvaluateDur.Observe(time.Since(start).Seconds())
		s.opts.Metrics.ObserveDecision(d.Accepted, string(d.Signal))
	}
	return d
}

// evaluateInstrument refreshes one instrument's engine and evaluates a
// market-entry setup at the latest close.
func (s *Service) evaluateInstrument(ctx context.Context, ticker string, side model.Side, params model.RiskParameters) model.Decision {
	if err := s.refresh(ctx, ticker); err != nil {
		return errorDecision(ticker, side, err)
	}

	engine := s.opts.Engines.Engine(ticker)
	reading, err := engine.Reading()
	if err != nil {
		return errorDecision(ticker, side, err)
	}

	setup := model.TradeSetup{
		Instrument: ticker,
		EntryPrice: reading.Close,
		Side:       side,
	}

	start := time.Now()
	d := s.orch.Evaluate(setup, reading, params)
	if s.opts.Metrics != nil {
		s.opts.Metrics.EvaluateDur.Observe(time.Since(start).Seconds())
		s.opts.Metrics.ObserveDecision(d.Accepted, string(d.Signal))
	}
	return d
}

// refresh fetches bars for an instrument and feeds the ones the engine has
// not seen yet, then runs the periodic drift reconciliation.
func (s *Service) refresh(ctx context.Context, ticker string) error {
	engine := s.opts.Engines.Engine(ticker)

	fetchStart := time.Now()
	bars, err := s.opts.Source.Bars(ctx, ticker, s.opts.Lookback)
	if s.opts.Metrics != nil {
		s.opts.Metrics.SourceFetchDur.Observe(time.Since(fetchStart).Seconds())
	}
	if err != nil {
		if s.opts.Metrics != nil {
			s.opts.Metrics.SourceFetchErrors.Inc()
		}
		return err
	}

	lastTS := engine.LastTS()
	for _, bar := range bars {
		if !bar.TS.After(lastTS) {
			continue // already consumed in a previous scan
		}
		start := time.Now()
		_, err := engine.Update(bar)
		if s.opts.Metrics != nil {
			s.opts.Metrics.IndicatorComputeDur.Observe(time.Since(start).Seconds())
		}
		if err != nil {
			var warming *model.InsufficientHistoryError
			if errors.As(err, &warming) {
				// Bar consumed, reading just not available yet.
				s.retain(ticker, bar)
				continue
			}
			if s.opts.Metrics != nil {
				s.opts.Metrics.BadBars.Inc()
			}
			return err
		}
		s.retain(ticker, bar)
	}

	s.maybeReconcile(ticker, engine)
	return nil
}

func (s *Service) retain(ticker string, bar model.PriceBar) {
	if s.opts.Book != nil {
		s.opts.Book.Push(ticker, bar)
	}
	if s.opts.Metrics != nil {
		s.opts.Metrics.BarsFed.Inc()
	}
}

// maybeReconcile replays retained raw history to catch floating-point
// drift in the Wilder recursion on long-running engines.
func (s *Service) maybeReconcile(ticker string, engine *indicator.Engine) {
	if s.opts.Book == nil || s.opts.ReconcileEvery <= 0 {
		return
	}

	seen := engine.BarsSeen()
	s.mu.Lock()
	last, tracked := s.lastReconcile[ticker]
	if !tracked {
		// First sight of this engine. A snapshot-restored engine carries
		// bars the Book never saw, so counting starts here, not at zero.
		s.lastReconcile[ticker] = seen
		s.mu.Unlock()
		return
	}
	due := seen-last >= s.opts.ReconcileEvery
	if due {
		s.lastReconcile[ticker] = seen
	}
	s.mu.Unlock()
	if !due {
		return
	}

	replaced, err := engine.Reconcile(s.opts.Book.Bars(ticker))
	if err != nil {
		s.log.Warn("drift reconciliation failed", "instrument", ticker, "err", err)
		return
	}
	if replaced {
		if s.opts.Metrics != nil {
			s.opts.Metrics.Reconciliations.Inc()
		}
		s.log.Info("drift reconciliation replaced engine state", "instrument", ticker, "bars", seen)
	}
}

// persistSettings mirrors the original save-on-scan behavior: the latest
// watchlist and sizing inputs survive a restart.
func (s *Service) persistSettings(ctx context.Context, tickers string, params model.RiskParameters) {
	if s.opts.Settings == nil {
		return
	}
	err := s.opts.Settings.Save(ctx, model.Settings{
		AccountEquity:  params.AccountEquity,
		RiskPercent:    params.RiskPercent,
		MaxAccountSize: params.MaxAccountSize,
		Tickers:        tickers,
	})
	if err != nil {
		s.log.Warn("settings save failed", "err", err)
	}
}

// recordResults journals and publishes every decision.
func (s *Service) recordResults(ctx context.Context, decisions []model.Decision) {
	for i := range decisions {
		d := decisions[i]
		if s.opts.Journal != nil {
			if err := s.opts.Journal.Record(ctx, d); err != nil {
				s.log.Warn("journal write failed", "instrument", d.Instrument, "err", err)
			}
		}
		if s.opts.Publisher != nil {
			if err := s.opts.Publisher.PublishDecision(ctx, d); err != nil {
				if s.opts.Metrics != nil {
					s.opts.Metrics.DecisionPublishErrors.Inc()
				}
				s.log.Warn("decision publish failed", "instrument", d.Instrument, "err", err)
			}
		}
		if s.opts.Notifier != nil && d.Accepted {
			if err := s.opts.Notifier.Send(ctx, notification.DecisionAlert(d)); err != nil {
				s.log.Warn("alert delivery failed", "instrument", d.Instrument, "err", err)
			}
		}
	}
}

// checkpoint persists engine state after a scan.
func (s *Service) checkpoint(ctx context.Context) {
	if s.opts.Restorer == nil {
		return
	}
	if err := s.opts.Restorer.Checkpoint(ctx, s.opts.Engines); err != nil {
		if s.opts.Metrics != nil {
			s.opts.Metrics.SnapshotErrors.Inc()
		}
		s.log.Warn("engine checkpoint failed", "err", err)
		return
	}
	if s.opts.Metrics != nil {
		s.opts.Metrics.SnapshotSaves.Inc()
	}
}

// errorDecision renders a per-instrument failure as an error row, with the
// taxonomy reason preserved for display.
func errorDecision(ticker string, side model.Side, err error) model.Decision {
	reason := err.Error()
	var die *model.DataIntegrityError
	if errors.As(err, &die) {
		reason = "bad input data: " + die.Detail
	}
	return model.Decision{
		Instrument: ticker,
		Side:       side,
		Accepted:   false,
		Signal:     model.SignalError,
		Reason:     reason,
	}
}
