package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Price source: "broker" or "manual"
	PriceSource string

	// Broker credentials (required only when PriceSource is "broker")
	BrokerAPIKey     string
	BrokerClientCode string
	BrokerPassword   string
	BrokerTOTPSecret string
	BrokerRootURL    string

	// Infrastructure
	RedisAddr     string
	RedisPassword string
	SQLitePath    string
	ListenAddr    string
	MetricsAddr   string

	// Alert channels (optional)
	TelegramBotToken string
	TelegramChatID   string
	WebhookURL       string

	// Scan defaults; a scan request can override all of these
	Tickers        string
	ADXThreshold   float64
	ATRPeriod      int
	ATRMultiplier  float64
	RewardMultiple float64
	AccountSize    float64
	RiskPercent    float64
	MaxAccountSize float64
}

// Load reads configuration from environment variables with sensible
// defaults. A .env file is read first when present; existing env wins.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		PriceSource: getEnv("PRICE_SOURCE", "manual"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		SQLitePath:    getEnv("SQLITE_PATH", "data/scanner.db"),
		ListenAddr:    getEnv("LISTEN_ADDR", ":8080"),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),
		WebhookURL:       getEnv("WEBHOOK_URL", ""),

		Tickers:        getEnv("TICKERS", ""),
		ADXThreshold:   getEnvFloat("ADX_THRESHOLD", 20.0),
		ATRPeriod:      getEnvInt("ATR_PERIOD", 14),
		ATRMultiplier:  getEnvFloat("ATR_MULTIPLIER", 2.0),
		RewardMultiple: getEnvFloat("REWARD_MULTIPLE", 1.5),
		AccountSize:    getEnvFloat("ACCOUNT_SIZE", 10000),
		RiskPercent:    getEnvFloat("RISK_PERCENT", 0.01),
		MaxAccountSize: getEnvFloat("MAX_ACCOUNT_SIZE", 1_000_000),
	}

	if cfg.PriceSource == "broker" {
		cfg.BrokerAPIKey = mustEnv("BROKER_API_KEY")
		cfg.BrokerClientCode = mustEnv("BROKER_CLIENT_CODE")
		cfg.BrokerPassword = mustEnv("BROKER_PASSWORD")
		cfg.BrokerTOTPSecret = mustEnv("BROKER_TOTP_SECRET")
		cfg.BrokerRootURL = mustEnv("BROKER_ROOT_URL")
	}

	return cfg
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("[config] required env var %s not set", key)
	}
	return v
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("[config] invalid float for %s: %q, using %v", key, v, fallback)
		return fallback
	}
	return f
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] invalid int for %s: %q, using %v", key, v, fallback)
		return fallback
	}
	return n
}
