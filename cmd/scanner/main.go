package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"swing-scannerv1/config"
	"swing-scannerv1/internal/gateway"
	"swing-scannerv1/internal/history"
	"swing-scannerv1/internal/indicator"
	"swing-scannerv1/internal/logger"
	"swing-scannerv1/internal/metrics"
	"swing-scannerv1/internal/model"
	"swing-scannerv1/internal/notification"
	"swing-scannerv1/internal/pricesource"
	"swing-scannerv1/internal/scanner"
	redisstore "swing-scannerv1/internal/store/redis"
	sqlitestore "swing-scannerv1/internal/store/sqlite"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.Println("[scanner] starting...")

	cfg := config.Load()
	slogger := logger.Init("scanner", slog.LevelInfo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("[scanner] shutdown signal received")
		cancel()
	}()

	// ---- SQLite: settings + decision journal ----
	store, err := sqlitestore.Open(cfg.SQLitePath)
	if err != nil {
		log.Fatalf("[scanner] sqlite init failed: %v", err)
	}
	defer store.Close()

	// ---- Redis: snapshots + decision pub/sub (optional) ----
	var rstore *redisstore.Store
	rstore, err = redisstore.New(redisstore.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		log.Printf("[scanner] redis unavailable: %v (snapshots and live feed disabled)", err)
		rstore = nil
	}
	defer func() {
		if rstore != nil {
			rstore.Close()
		}
	}()

	// ---- Metrics + health ----
	m := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	if rstore != nil {
		health.StartLivenessChecker(ctx, rstore.Client(), store.DB(), 15*time.Second)
	} else {
		health.StartLivenessChecker(ctx, nil, store.DB(), 15*time.Second)
	}
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		metricsSrv.Stop(shutdownCtx)
	}()

	// ---- Price source ----
	var source model.BarSource
	switch cfg.PriceSource {
	case "broker":
		source = pricesource.NewBroker(pricesource.BrokerConfig{
			APIKey:     cfg.BrokerAPIKey,
			ClientCode: cfg.BrokerClientCode,
			Password:   cfg.BrokerPassword,
			TOTPSecret: cfg.BrokerTOTPSecret,
			RootURL:    cfg.BrokerRootURL,
		})
	default:
		source = pricesource.NewManual()
	}
	log.Printf("[scanner] price source: %s", source.Name())

	// ---- Alert channels ----
	var notifiers notification.Multi
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		notifiers = append(notifiers, notification.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID))
	}
	if cfg.WebhookURL != "" {
		notifiers = append(notifiers, notification.NewWebhookNotifier(cfg.WebhookURL))
	}
	var notifier notification.Notifier
	if len(notifiers) > 0 {
		notifier = notifiers
	} else {
		notifier = notification.NewLogNotifier()
	}

	// ---- Indicator engines, restored from the latest snapshot ----
	indCfg := indicator.Config{WilderPeriod: cfg.ATRPeriod}
	var engines *indicator.Set
	var restorer *indicator.Restorer
	if rstore != nil {
		restorer = indicator.NewRestorer(indCfg, rstore)
		engines = restorer.Restore(ctx)
	} else {
		engines = indicator.NewSet(indCfg)
	}

	// ---- Scan service ----
	opts := scanner.Options{
		Source:   source,
		Engines:  engines,
		Book:     history.NewBook(1024),
		Journal:  store,
		Settings: store,
		Restorer: restorer,
		Metrics:  m,
		Health:   health,
		Notifier: notifier,
	}
	if rstore != nil {
		opts.Publisher = rstore
	}
	svc := scanner.New(opts, slogger)

	// Seed stored settings with env defaults on first run.
	seedSettings(ctx, store, cfg)

	// ---- Gateway: WS hub + REST API ----
	var hub *gateway.Hub
	if rstore != nil {
		hub = gateway.NewHub(rstore.Client(), m)
	} else {
		hub = gateway.NewHub(nil, m)
	}
	go hub.Run(ctx)

	mux := http.NewServeMux()
	gateway.RegisterRoutes(mux, hub, svc, store, store)

	httpSrv := &http.Server{Addr: cfg.ListenAddr, Handler: mux}
	go func() {
		log.Printf("[scanner] listening on %s", cfg.ListenAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[scanner] http server: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[scanner] http shutdown: %v", err)
	}
	log.Println("[scanner] stopped")
}

// seedSettings writes the env-derived defaults when no settings row exists
// yet, so the first GET /api/settings already shows something sensible.
func seedSettings(ctx context.Context, store *sqlitestore.Store, cfg *config.Config) {
	stored, err := store.Load(ctx)
	if err != nil {
		log.Printf("[scanner] settings load failed: %v", err)
		return
	}
	if stored.AccountEquity != 0 {
		return
	}
	err = store.Save(ctx, model.Settings{
		AccountEquity:  cfg.AccountSize,
		RiskPercent:    cfg.RiskPercent,
		MaxAccountSize: cfg.MaxAccountSize,
		Tickers:        cfg.Tickers,
	})
	if err != nil {
		log.Printf("[scanner] settings seed failed: %v", err)
	}
}
