// Package api exposes the market over HTTP: asset lifecycle operations,
// queries, quotes, account funding, the admin timelock surface and the
// websocket event feed.
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"rabbit-launchpad/internal/account"
	"rabbit-launchpad/internal/curve"
	"rabbit-launchpad/internal/ledger"
	"rabbit-launchpad/internal/observability"
	"rabbit-launchpad/internal/storage"
	"rabbit-launchpad/internal/timelock"
	"rabbit-launchpad/internal/vault"
)

// Config wires a Server.
type Config struct {
	Ledger *ledger.Ledger
	Events storage.EventStore
	Bank   *vault.Bank
	Tokens *vault.TokenBook

	// Admin enables the timelock routes. Optional.
	Admin *timelock.Controller
	// Feed is the websocket hub. Optional.
	Feed http.Handler

	Logger *log.Logger
}

// Server bundles the HTTP handlers over the ledger.
type Server struct {
	ledger *ledger.Ledger
	events storage.EventStore
	bank   *vault.Bank
	tokens *vault.TokenBook
	admin  *timelock.Controller
	feed   http.Handler
	logger *log.Logger
}

// NewServer creates a Server from cfg.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		ledger: cfg.Ledger,
		events: cfg.Events,
		bank:   cfg.Bank,
		tokens: cfg.Tokens,
		admin:  cfg.Admin,
		feed:   cfg.Feed,
		logger: logger,
	}
}

// Routes returns the full route table.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.Handle("/metrics", observability.Handler())
	if s.feed != nil {
		mux.Handle("/ws", s.feed)
	}

	mux.HandleFunc("POST /api/v1/assets", s.instrument("create_asset", s.handleCreate))
	mux.HandleFunc("GET /api/v1/assets", s.instrument("list_assets", s.handleList))
	mux.HandleFunc("GET /api/v1/assets/{id}", s.instrument("get_asset", s.handleGet))
	mux.HandleFunc("GET /api/v1/assets/{id}/price", s.instrument("get_price", s.handlePrice))
	mux.HandleFunc("GET /api/v1/assets/{id}/events", s.instrument("get_events", s.handleEvents))
	mux.HandleFunc("GET /api/v1/assets/{id}/quote/buy", s.instrument("quote_buy", s.handleQuoteBuy))
	mux.HandleFunc("GET /api/v1/assets/{id}/quote/sell", s.instrument("quote_sell", s.handleQuoteSell))
	mux.HandleFunc("POST /api/v1/assets/{id}/buy", s.instrument("buy", s.handleBuy))
	mux.HandleFunc("POST /api/v1/assets/{id}/sell", s.instrument("sell", s.handleSell))
	mux.HandleFunc("POST /api/v1/assets/{id}/graduate", s.instrument("graduate", s.handleGraduate))

	if s.bank != nil {
		mux.HandleFunc("GET /api/v1/accounts/{address}", s.instrument("get_account", s.handleAccount))
		mux.HandleFunc("POST /api/v1/accounts/{address}/deposit", s.instrument("deposit", s.handleDeposit))
	}

	if s.admin != nil {
		mux.HandleFunc("POST /api/v1/admin/treasury", s.instrument("admin_treasury", s.handleTreasuryInitiate))
		mux.HandleFunc("POST /api/v1/admin/treasury/complete", s.instrument("admin_treasury", s.handleTreasuryComplete))
		mux.HandleFunc("POST /api/v1/admin/treasury/cancel", s.instrument("admin_treasury", s.handleTreasuryCancel))
		mux.HandleFunc("POST /api/v1/admin/router", s.instrument("admin_router", s.handleRouterInitiate))
		mux.HandleFunc("POST /api/v1/admin/router/complete", s.instrument("admin_router", s.handleRouterComplete))
		mux.HandleFunc("POST /api/v1/admin/router/cancel", s.instrument("admin_router", s.handleRouterCancel))
		mux.HandleFunc("POST /api/v1/admin/emergency-withdraw", s.instrument("admin_emergency", s.handleEmergencyWithdraw))
	}

	return mux
}

// statusRecorder captures the response code for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		observability.DefaultMetrics.HTTPRequestDuration.
			WithLabelValues(route, strconv.Itoa(rec.status)).
			Observe(time.Since(start).Seconds())
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Printf("[api] encode response: %v", err)
	}
}

// writeError maps domain errors onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ledger.ErrAssetNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ledger.ErrInvalidFee),
		errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrInvalidMetadata),
		errors.Is(err, curve.ErrInvalidInput),
		errors.Is(err, account.ErrInvalidAddress),
		errors.Is(err, timelock.ErrUnchangedValue),
		errors.Is(err, storage.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, ledger.ErrAlreadyGraduated),
		errors.Is(err, ledger.ErrGraduationNotReady),
		errors.Is(err, ledger.ErrReentrantCall),
		errors.Is(err, timelock.ErrAlreadyPending),
		errors.Is(err, timelock.ErrNoPendingUpdate),
		errors.Is(err, timelock.ErrCooldownActive):
		status = http.StatusConflict
	case errors.Is(err, timelock.ErrTimelockNotExpired):
		status = http.StatusTooEarly
	case errors.Is(err, curve.ErrInsufficientCapacity),
		errors.Is(err, ledger.ErrInsufficientPurchase),
		errors.Is(err, ledger.ErrInsufficientLiquidity),
		errors.Is(err, timelock.ErrAmountExceedsCap),
		errors.Is(err, vault.ErrInsufficientBalance),
		errors.Is(err, vault.ErrInsufficientTokens):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, ledger.ErrSettlementFailed):
		status = http.StatusBadGateway
	}
	if status >= http.StatusInternalServerError {
		s.logger.Printf("[api] internal error: %v", err)
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}
