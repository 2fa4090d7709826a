// Package pricesource provides the bar feeds the scanner runs on. The
// broker source keeps an authenticated HTTP session against the broker's
// candle API; the manual source holds caller-supplied bars for accounts
// whose brokers expose no API.
package pricesource

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"swing-scannerv1/internal/model"

	"github.com/pquerna/otp/totp"
)

const (
	defaultTimeout  = 7 * time.Second
	sessionLifetime = 8 * time.Hour
)

// BrokerConfig configures the broker candle client.
type BrokerConfig struct {
	APIKey     string
	ClientCode string
	Password   string
	TOTPSecret string

	RootURL string        // e.g. "https://api.broker.example"
	Timeout time.Duration // default 7s
}

// Broker fetches daily candles from the broker's REST API. Sessions are
// established lazily and refreshed when they age out; a login failure
// surfaces on the next Bars call rather than at construction.
type Broker struct {
	cfg    BrokerConfig
	client *http.Client

	mu          sync.Mutex
	accessToken string
	loggedInAt  time.Time
}

// NewBroker creates the client without logging in.
func NewBroker(cfg BrokerConfig) *Broker {
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	cfg.RootURL = strings.TrimRight(cfg.RootURL, "/")
	return &Broker{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Name identifies the source in logs and journal rows.
func (b *Broker) Name() string { return "broker" }

type loginRequest struct {
	ClientCode string `json:"clientcode"`
	Password   string `json:"password"`
	TOTP       string `json:"totp"`
}

type loginResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		JWTToken string `json:"jwtToken"`
	} `json:"data"`
}

// ensureSession logs in when no session exists or the current one is old.
func (b *Broker) ensureSession(ctx context.Context) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.accessToken != "" && time.Since(b.loggedInAt) < sessionLifetime {
		return b.accessToken, nil
	}

	code, err := totp.GenerateCode(b.cfg.TOTPSecret, time.Now())
	if err != nil {
		return "", fmt.Errorf("totp generation: %w", err)
	}

	body, _ := json.Marshal(loginRequest{
		ClientCode: b.cfg.ClientCode,
		Password:   b.cfg.Password,
		TOTP:       code,
	})
	var out loginResponse
	if err := b.post(ctx, "/auth/login", "", body, &out); err != nil {
		return "", fmt.Errorf("broker login: %w", err)
	}
	if !out.Status || out.Data.JWTToken == "" {
		return "", fmt.Errorf("broker login rejected: %s", out.Message)
	}

	b.accessToken = out.Data.JWTToken
	b.loggedInAt = time.Now()
	log.Printf("[broker] session established for %s", b.cfg.ClientCode)
	return b.accessToken, nil
}

type candleRequest struct {
	Symbol   string `json:"symbol"`
	Interval string `json:"interval"`
	Limit    int    `json:"limit"`
}

type candleResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	// Each candle: [ts RFC3339, open, high, low, close, volume]
	Data [][]json.RawMessage `json:"data"`
}

// Bars fetches up to lookback daily candles, oldest first. Malformed rows
// fail the whole fetch; a partial history would silently skew indicators.
func (b *Broker) Bars(ctx context.Context, instrument string, lookback int) ([]model.PriceBar, error) {
	token, err := b.ensureSession(ctx)
	if err != nil {
		return nil, err
	}

	body, _ := json.Marshal(candleRequest{
		Symbol:   instrument,
		Interval: "ONE_DAY",
		Limit:    lookback,
	})
	var out candleResponse
	if err := b.post(ctx, "/market/candles", token, body, &out); err != nil {
		return nil, fmt.Errorf("broker candles %s: %w", instrument, err)
	}
	if !out.Status {
		if strings.Contains(strings.ToLower(out.Message), "token") {
			// Session invalidated server side; force a fresh login next call.
			b.mu.Lock()
			b.accessToken = ""
			b.mu.Unlock()
		}
		return nil, fmt.Errorf("broker candles %s: %s", instrument, out.Message)
	}

	bars := make([]model.PriceBar, 0, len(out.Data))
	for i, row := range out.Data {
		bar, err := parseCandleRow(row)
		if err != nil {
			return nil, &model.DataIntegrityError{
				Instrument: instrument,
				Detail:     fmt.Sprintf("candle row %d: %v", i, err),
			}
		}
		bars = append(bars, bar)
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].TS.Before(bars[j].TS) })
	return bars, nil
}

func parseCandleRow(row []json.RawMessage) (model.PriceBar, error) {
	if len(row) != 6 {
		return model.PriceBar{}, fmt.Errorf("expected 6 fields, got %d", len(row))
	}
	var tsStr string
	if err := json.Unmarshal(row[0], &tsStr); err != nil {
		return model.PriceBar{}, fmt.Errorf("timestamp: %w", err)
	}
	ts, err := time.Parse(time.RFC3339, tsStr)
	if err != nil {
		return model.PriceBar{}, fmt.Errorf("timestamp: %w", err)
	}

	var vals [4]float64
	for i := 0; i < 4; i++ {
		if err := json.Unmarshal(row[i+1], &vals[i]); err != nil {
			return model.PriceBar{}, fmt.Errorf("price field %d: %w", i, err)
		}
	}
	var volume int64
	if err := json.Unmarshal(row[5], &volume); err != nil {
		return model.PriceBar{}, fmt.Errorf("volume: %w", err)
	}

	return model.PriceBar{
		TS:     ts.UTC(),
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: volume,
	}, nil
}

func (b *Broker) post(ctx context.Context, path, token string, body []byte, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.cfg.RootURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-PrivateKey", b.cfg.APIKey)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d: %s", resp.StatusCode, truncate(raw, 200))
	}
	return json.Unmarshal(raw, out)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
