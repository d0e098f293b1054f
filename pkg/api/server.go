package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/uhyunpark/hyperdex/pkg/app/core/asset"
	"github.com/uhyunpark/hyperdex/pkg/app/core/errs"
	"github.com/uhyunpark/hyperdex/pkg/app/core/orderbook"
	"github.com/uhyunpark/hyperdex/pkg/app/dex"
	"github.com/uhyunpark/hyperdex/pkg/num"
)

// Server exposes the dex boundary over REST
type Server struct {
	app     *dex.App
	metrics *dex.Metrics
	router  *mux.Router
	opts    Options
	log     *zap.SugaredLogger
}

type Options struct {
	CORSOrigins  []string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// NewServer creates a new API server. metrics may be nil, in which case
// /metrics is not mounted.
func NewServer(app *dex.App, metrics *dex.Metrics, opts Options, log *zap.Logger) *Server {
	s := &Server{
		app:     app,
		metrics: metrics,
		router:  mux.NewRouter(),
		opts:    opts,
		log:     log.Named("api").Sugar(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// API v1 routes
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Custody
	api.HandleFunc("/deposit", s.handleDeposit).Methods("POST")
	api.HandleFunc("/withdraw", s.handleWithdraw).Methods("POST")

	// Order lifecycle
	api.HandleFunc("/orders", s.handleMakeOrder).Methods("POST")
	api.HandleFunc("/orders/{id:[0-9]+}/cancel", s.handleCancelOrder).Methods("POST")
	api.HandleFunc("/orders/{id:[0-9]+}/take", s.handleTakeOrder).Methods("POST")
	api.HandleFunc("/orders/{id:[0-9]+}", s.handleGetOrder).Methods("GET")

	// Account endpoints
	api.HandleFunc("/accounts/{address}/balances/{asset}", s.handleGetBalance).Methods("GET")
	api.HandleFunc("/accounts/{address}/tokens", s.handleGetOwnerTokens).Methods("GET")
	api.HandleFunc("/accounts/{address}/tokens/{index:[0-9]+}", s.handleGetOwnerTokenByIndex).Methods("GET")
	api.HandleFunc("/accounts/{address}/orders", s.handleGetUserOrders).Methods("GET")
	api.HandleFunc("/accounts/{address}/orders/{index:[0-9]+}", s.handleGetUserOrderByIndex).Methods("GET")

	// Market-wide reads
	api.HandleFunc("/tokens", s.handleGetTokens).Methods("GET")
	api.HandleFunc("/pairs/{offered}/{requested}/orders", s.handleGetPairOrders).Methods("GET")
	api.HandleFunc("/pairs/{offered}/{requested}/orders/{index:[0-9]+}", s.handleGetPairOrderByIndex).Methods("GET")
	api.HandleFunc("/state/hash", s.handleGetStateHash).Methods("GET")

	// Health check
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	if s.metrics != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}))
	}
}

// Handler returns the router wrapped in CORS handling
func (s *Server) Handler() http.Handler {
	origins := s.opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
	return c.Handler(s.router)
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infow("api_server_starting", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.log.Infow("api_server_stopping", "addr", addr)
		return srv.Shutdown(shutdownCtx)
	}
}

// ==============================
// Mutating handlers
// ==============================

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	s.handleBalanceChange(w, r, s.app.Deposit)
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	s.handleBalanceChange(w, r, s.app.Withdraw)
}

func (s *Server) handleBalanceChange(w http.ResponseWriter, r *http.Request,
	apply func(common.Address, asset.Id, *num.Uint) (*num.Uint, error)) {
	var req BalanceChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	account, err := parseAddress(req.Account)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	id, err := asset.ParseId(req.Asset)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	amount, err := num.UintFromString(req.Amount)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_amount", err.Error())
		return
	}

	bal, err := apply(account, id, amount)
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	respondJSON(w, BalanceResponse{Account: account.Hex(), Asset: id, Balance: bal})
}

func (s *Server) handleMakeOrder(w http.ResponseWriter, r *http.Request) {
	var req MakeOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	owner, err := parseAddress(req.Owner)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	offered, err := asset.ParseId(req.OfferedAsset)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	requested, err := asset.ParseId(req.RequestedAsset)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	offeredAmount, err := num.UintFromString(req.OfferedAmount)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_amount", err.Error())
		return
	}
	requestedAmount, err := num.UintFromString(req.RequestedAmount)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_amount", err.Error())
		return
	}
	side, err := orderbook.ParseSide(req.Type)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	id, err := s.app.MakeOrder(owner, offered, requested, offeredAmount, requestedAmount, side)
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/api/v1/orders/%d", id))
	respondJSONStatus(w, http.StatusCreated, MakeOrderResponse{OrderID: id})
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	s.handleOrderAction(w, r, "canceled", s.app.CancelOrder)
}

func (s *Server) handleTakeOrder(w http.ResponseWriter, r *http.Request) {
	s.handleOrderAction(w, r, "taken", s.app.TakeOrder)
}

func (s *Server) handleOrderAction(w http.ResponseWriter, r *http.Request, status string,
	apply func(uint64, common.Address) error) {
	id, err := parseUint(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	var req OrderActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	account, err := parseAddress(req.Account)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	if err := apply(id, account); err != nil {
		s.respondEngineError(w, err)
		return
	}
	respondJSON(w, StatusResponse{Status: status, OrderID: id})
}

// ==============================
// Read handlers
// ==============================

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := parseUint(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	o, err := s.app.OrderFor(id)
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	respondJSON(w, o)
}

func (s *Server) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	account, err := parseAddress(vars["address"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	id, err := asset.ParseId(vars["asset"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	bal, err := s.app.BalanceOf(account, id)
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	respondJSON(w, BalanceResponse{Account: account.Hex(), Asset: id, Balance: bal})
}

func (s *Server) handleGetOwnerTokens(w http.ResponseWriter, r *http.Request) {
	account, err := parseAddress(mux.Vars(r)["address"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	respondJSON(w, s.app.OwnersTokens(account))
}

func (s *Server) handleGetOwnerTokenByIndex(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	account, err := parseAddress(vars["address"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	index, err := parseUint(vars["index"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	id, err := s.app.OwnerTokenByIndex(account, index)
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	respondJSON(w, id)
}

func (s *Server) handleGetUserOrders(w http.ResponseWriter, r *http.Request) {
	account, err := parseAddress(mux.Vars(r)["address"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	respondJSON(w, s.app.UserOrders(account))
}

func (s *Server) handleGetUserOrderByIndex(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	account, err := parseAddress(vars["address"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	index, err := parseUint(vars["index"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	o, err := s.app.UserOrderByIndex(account, index)
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	respondJSON(w, o)
}

func (s *Server) handleGetTokens(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, s.app.Tokens())
}

func (s *Server) handleGetPairOrders(w http.ResponseWriter, r *http.Request) {
	offered, requested, err := parsePair(mux.Vars(r))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	orders, err := s.app.PairOrders(offered, requested)
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	respondJSON(w, orders)
}

func (s *Server) handleGetPairOrderByIndex(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	offered, requested, err := parsePair(vars)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	index, err := parseUint(vars["index"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	o, err := s.app.PairOrderByIndex(offered, requested, index)
	if err != nil {
		s.respondEngineError(w, err)
		return
	}
	respondJSON(w, o)
}

func (s *Server) handleGetStateHash(w http.ResponseWriter, r *http.Request) {
	stats := s.app.Stats()
	respondJSON(w, StateHashResponse{Hash: stats.StateHash, OpenOrders: stats.OpenOrders})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

// ==============================
// Helpers
// ==============================

// statusFor maps engine error kinds onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, errs.ErrInvalidAmount),
		errors.Is(err, errs.ErrInvalidPair),
		errors.Is(err, errs.ErrUnsupportedIdentifier),
		errors.Is(err, errs.ErrIndexOutOfRange):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrInsufficientBalance),
		errors.Is(err, errs.ErrSelfTrade),
		errors.Is(err, errs.ErrBalanceOverflow):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondEngineError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Errorw("request_failed", "err", err)
	}
	respondError(w, status, dex.ErrorKind(err), err.Error())
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

func parseUint(s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return v, nil
}

func parsePair(vars map[string]string) (asset.Id, asset.Id, error) {
	offered, err := asset.ParseId(vars["offered"])
	if err != nil {
		return asset.Id{}, asset.Id{}, err
	}
	requested, err := asset.ParseId(vars["requested"])
	if err != nil {
		return asset.Id{}, asset.Id{}, err
	}
	return offered, requested, nil
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	respondJSONStatus(w, http.StatusOK, data)
}

func respondJSONStatus(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, error string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   error,
		Message: message,
	})
}
