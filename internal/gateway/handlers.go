package gateway

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"swing-scannerv1/internal/markethours"
	"swing-scannerv1/internal/model"
	"swing-scannerv1/internal/scanner"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// setCORS sets CORS headers for the REST endpoints.
func setCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

// scanRequest is the POST /api/scan body. Zero risk fields fall back to
// the stored settings, then to defaults.
type scanRequest struct {
	Tickers        string  `json:"tickers"`
	Side           string  `json:"side"`
	AccountSize    float64 `json:"account_size"`
	RiskPercent    float64 `json:"risk_pct"`
	MaxAccountSize float64 `json:"max_account_size"`
	ADXThreshold   float64 `json:"adx_threshold"`
	ATRMultiplier  float64 `json:"atr_multiplier"`
	RewardMultiple float64 `json:"reward_multiple"`
}

type evaluateRequest struct {
	scanRequest
	Instrument string  `json:"instrument"`
	EntryPrice float64 `json:"entry_price"`
}

// RegisterRoutes registers the WS endpoint and the REST API on mux.
func RegisterRoutes(mux *http.ServeMux, hub *Hub, svc *scanner.Service,
	settings model.SettingsStore, journal model.DecisionJournal) {

	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("[gateway] ws upgrade error: %v", err)
			return
		}
		hub.HandleConn(conn)
	})

	mux.HandleFunc("/api/scan", func(w http.ResponseWriter, r *http.Request) {
		setCORS(w)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		if r.Method != http.MethodPost {
			http.Error(w, `{"error":"method not allowed"}`, http.StatusMethodNotAllowed)
			return
		}

		var req scanRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
			return
		}

		params, err := resolveParams(r, req, settings)
		if err != nil {
			writeError(w, err)
			return
		}
		if req.Tickers == "" {
			req.Tickers = params.Tickers
		}

		decisions, err := svc.Scan(r.Context(), scanner.Request{
			Tickers: req.Tickers,
			Side:    model.Side(req.Side),
			Params:  params.RiskParameters,
		})
		if err != nil {
			writeError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(decisions)
	})

	mux.HandleFunc("/api/evaluate", func(w http.ResponseWriter, r *http.Request) {
		setCORS(w)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		if r.Method != http.MethodPost {
			http.Error(w, `{"error":"method not allowed"}`, http.StatusMethodNotAllowed)
			return
		}

		var req evaluateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
			return
		}

		setup := model.TradeSetup{
			Instrument: req.Instrument,
			EntryPrice: req.EntryPrice,
			Side:       model.Side(req.Side),
		}
		if setup.Side == "" {
			setup.Side = model.Long
		}
		if err := setup.Validate(); err != nil {
			writeError(w, err)
			return
		}

		params, err := resolveParams(r, req.scanRequest, settings)
		if err != nil {
			writeError(w, err)
			return
		}

		decision := svc.EvaluateSetup(r.Context(), setup, params.RiskParameters)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(decision)
	})

	mux.HandleFunc("/api/settings", func(w http.ResponseWriter, r *http.Request) {
		setCORS(w)
		w.Header().Set("Content-Type", "application/json")
		switch r.Method {
		case http.MethodOptions:
			w.WriteHeader(http.StatusOK)
		case http.MethodGet:
			if settings == nil {
				json.NewEncoder(w).Encode(model.Settings{})
				return
			}
			s, err := settings.Load(r.Context())
			if err != nil {
				writeError(w, err)
				return
			}
			json.NewEncoder(w).Encode(s)
		case http.MethodPost:
			if settings == nil {
				http.Error(w, `{"error":"no settings store configured"}`, http.StatusServiceUnavailable)
				return
			}
			var s model.Settings
			if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
				http.Error(w, `{"error":"invalid JSON"}`, http.StatusBadRequest)
				return
			}
			if err := settings.Save(r.Context(), s); err != nil {
				writeError(w, err)
				return
			}
			json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
		default:
			http.Error(w, `{"error":"method not allowed"}`, http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/decisions", func(w http.ResponseWriter, r *http.Request) {
		setCORS(w)
		w.Header().Set("Content-Type", "application/json")
		if journal == nil {
			json.NewEncoder(w).Encode([]model.Decision{})
			return
		}

		limit := 50
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				limit = n
			}
		}
		decisions, err := journal.Recent(r.Context(), r.URL.Query().Get("instrument"), limit)
		if err != nil {
			writeError(w, err)
			return
		}
		if decisions == nil {
			decisions = []model.Decision{}
		}
		json.NewEncoder(w).Encode(decisions)
	})

	mux.HandleFunc("/api/decisions/latest", func(w http.ResponseWriter, r *http.Request) {
		setCORS(w)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(hub.LatestDecisions())
	})

	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		setCORS(w)
		w.Header().Set("Content-Type", "application/json")
		now := time.Now()
		json.NewEncoder(w).Encode(map[string]any{
			"market_open":      markethours.IsMarketOpen(now),
			"market_status":    markethours.StatusString(now),
			"session_complete": markethours.SessionComplete(now),
			"ws_clients":       hub.ClientCount(),
		})
	})
}

// storedParams pairs the risk parameters with the persisted watchlist.
type storedParams struct {
	model.RiskParameters
	Tickers string
}

// resolveParams merges request fields over the stored settings. Explicit
// request values win; unset ones fall back to what the last scan saved.
func resolveParams(r *http.Request, req scanRequest, settings model.SettingsStore) (storedParams, error) {
	var stored model.Settings
	if settings != nil {
		var err error
		stored, err = settings.Load(r.Context())
		if err != nil {
			return storedParams{}, err
		}
	}

	params := model.RiskParameters{
		ADXThreshold:   req.ADXThreshold,
		ATRMultiplier:  req.ATRMultiplier,
		RewardMultiple: req.RewardMultiple,
		AccountEquity:  req.AccountSize,
		RiskPercent:    req.RiskPercent,
		MaxAccountSize: req.MaxAccountSize,
	}
	if params.AccountEquity == 0 {
		params.AccountEquity = stored.AccountEquity
	}
	if params.RiskPercent == 0 {
		params.RiskPercent = stored.RiskPercent
	}
	if params.MaxAccountSize == 0 {
		params.MaxAccountSize = stored.MaxAccountSize
	}
	return storedParams{RiskParameters: params, Tickers: stored.Tickers}, nil
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch err.(type) {
	case *model.InvalidInputError:
		status = http.StatusBadRequest
	case *model.DataIntegrityError:
		status = http.StatusBadGateway
	case *model.InsufficientHistoryError:
		status = http.StatusConflict
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
