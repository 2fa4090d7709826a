// Package metrics exposes Prometheus metrics and the health endpoint for
// the scanner service.
package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the scanner.
type Metrics struct {
	ScansTotal     prometheus.Counter
	DecisionsTotal *prometheus.CounterVec // labels: outcome, signal
	BarsFed        prometheus.Counter
	BadBars        prometheus.Counter

	IndicatorComputeDur prometheus.Histogram
	EvaluateDur         prometheus.Histogram

	Reconciliations prometheus.Counter // drift reconciliations that replaced state
	SnapshotSaves   prometheus.Counter
	SnapshotErrors  prometheus.Counter

	DecisionPublishErrors prometheus.Counter
	WSClients             prometheus.Gauge

	SourceFetchDur    prometheus.Histogram
	SourceFetchErrors prometheus.Counter
}

// NewMetrics registers and returns all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		ScansTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scanner_scans_total",
			Help: "Total scan requests processed",
		}),
		DecisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scanner_decisions_total",
			Help: "Decisions emitted by outcome and signal",
		}, []string{"outcome", "signal"}),
		BarsFed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scanner_bars_fed_total",
			Help: "Price bars fed into indicator engines",
		}),
		BadBars: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scanner_bad_bars_total",
			Help: "Bars rejected for integrity violations",
		}),
		IndicatorComputeDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "scanner_indicator_compute_duration_seconds",
			Help:    "Indicator engine update latency per bar",
			Buckets: []float64{0.000001, 0.000005, 0.00001, 0.00005, 0.0001, 0.0005, 0.001},
		}),
		EvaluateDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "scanner_evaluate_duration_seconds",
			Help:    "Full pipeline evaluation latency per instrument",
			Buckets: prometheus.DefBuckets,
		}),
		Reconciliations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scanner_drift_reconciliations_total",
			Help: "Engine states replaced after replay-from-history drift checks",
		}),
		SnapshotSaves: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scanner_snapshot_saves_total",
			Help: "Engine snapshots persisted",
		}),
		SnapshotErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scanner_snapshot_errors_total",
			Help: "Engine snapshot persist failures",
		}),
		DecisionPublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scanner_decision_publish_errors_total",
			Help: "Decision publish failures (Redis or WS)",
		}),
		WSClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scanner_ws_clients",
			Help: "Connected dashboard WebSocket clients",
		}),
		SourceFetchDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "scanner_source_fetch_duration_seconds",
			Help:    "Price source fetch latency per instrument",
			Buckets: prometheus.DefBuckets,
		}),
		SourceFetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scanner_source_fetch_errors_total",
			Help: "Price source fetch failures",
		}),
	}

	prometheus.MustRegister(
		m.ScansTotal,
		m.DecisionsTotal,
		m.BarsFed,
		m.BadBars,
		m.IndicatorComputeDur,
		m.EvaluateDur,
		m.Reconciliations,
		m.SnapshotSaves,
		m.SnapshotErrors,
		m.DecisionPublishErrors,
		m.WSClients,
		m.SourceFetchDur,
		m.SourceFetchErrors,
	)
	return m
}

// ObserveDecision counts one decision by outcome and signal label.
func (m *Metrics) ObserveDecision(accepted bool, signal string) {
	outcome := "rejected"
	if accepted {
		outcome = "accepted"
	}
	m.DecisionsTotal.WithLabelValues(outcome, signal).Inc()
}

// HealthStatus tracks backing-store liveness for /healthz.
type HealthStatus struct {
	mu        sync.RWMutex
	StartedAt time.Time

	RedisConnected bool
	SQLiteOK       bool
	LastScanAt     time.Time
}

// NewHealthStatus creates a HealthStatus with the start time set.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{StartedAt: time.Now()}
}

// CheckRedis pings Redis and records the result.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	ok := rdb != nil && rdb.Ping(ctx).Err() == nil
	h.mu.Lock()
	h.RedisConnected = ok
	h.mu.Unlock()
}

// CheckSQLite pings the settings database and records the result.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	ok := db != nil && db.PingContext(ctx) == nil
	h.mu.Lock()
	h.SQLiteOK = ok
	h.mu.Unlock()
}

// MarkScan records a completed scan for staleness display.
func (h *HealthStatus) MarkScan() {
	h.mu.Lock()
	h.LastScanAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker pings backing stores on an interval until ctx ends.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, db *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
				h.CheckRedis(pingCtx, rdb)
				h.CheckSQLite(pingCtx, db)
				cancel()
			}
		}
	}()
}

// ServeHTTP renders the health summary as JSON.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := "healthy"
	code := http.StatusOK
	if !h.RedisConnected || !h.SQLiteOK {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	lastScan := ""
	if !h.LastScanAt.IsZero() {
		lastScan = h.LastScanAt.Format(time.RFC3339)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":          status,
		"uptime":          time.Since(h.StartedAt).Round(time.Second).String(),
		"redis_connected": h.RedisConnected,
		"sqlite_ok":       h.SQLiteOK,
		"last_scan_at":    lastScan,
	})
}

// Server hosts /metrics and /healthz.
type Server struct {
	addr string
	srv  *http.Server
}

// NewServer creates the metrics HTTP server.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		addr: addr,
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
