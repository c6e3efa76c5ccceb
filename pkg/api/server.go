package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/spartaninzaghi/CPP-Crypto-Exchange/pkg/exchange"
	"github.com/spartaninzaghi/CPP-Crypto-Exchange/pkg/journal"
)

// Server exposes the exchange over REST and a WebSocket trade feed.
// Every handler goes through the exchange's own locked operations, so
// concurrent clients observe whole submissions only.
type Server struct {
	ex      *exchange.Exchange
	arch    *journal.Archive // nil when the journal is disabled
	router  *mux.Router
	hub     *Hub
	log     *zap.SugaredLogger
	origins []string
}

// NewServer creates the API server. A nil logger disables logging.
func NewServer(ex *exchange.Exchange, log *zap.SugaredLogger, origins []string) *Server {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	s := &Server{
		ex:      ex,
		router:  mux.NewRouter(),
		hub:     NewHub(log),
		log:     log,
		origins: origins,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Ledger endpoints
	api.HandleFunc("/deposits", s.handleDeposit).Methods("POST")
	api.HandleFunc("/withdrawals", s.handleWithdraw).Methods("POST")
	api.HandleFunc("/portfolios", s.handleGetPortfolios).Methods("GET")
	api.HandleFunc("/portfolios/{user}", s.handleGetPortfolio).Methods("GET")

	// Order endpoints
	api.HandleFunc("/orders", s.handleSubmitOrder).Methods("POST")
	api.HandleFunc("/orders/open", s.handleGetOpenOrders).Methods("GET")
	api.HandleFunc("/orders/filled", s.handleGetFilledOrders).Methods("GET")

	// Market data
	api.HandleFunc("/trades", s.handleGetTrades).Methods("GET")
	api.HandleFunc("/assets/{asset}/spread", s.handleGetSpread).Methods("GET")

	// Journal readback
	api.HandleFunc("/archive/trades", s.handleArchiveTrades).Methods("GET")
	api.HandleFunc("/archive/fills", s.handleArchiveFills).Methods("GET")

	// WebSocket endpoint
	s.router.HandleFunc("/ws", s.handleWebSocket)

	// Health check
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Handler returns the full middleware-wrapped handler, for tests and
// embedding.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	return c.Handler(s.router)
}

// Start runs the hub and serves until the listener fails.
func (s *Server) Start(addr string) error {
	go s.hub.Run()
	s.log.Infow("api_server_starting", "addr", addr)
	return http.ListenAndServe(addr, s.Handler())
}

// SetArchive enables the /archive endpoints, serving reads from the
// trade journal. Call before Start.
func (s *Server) SetArchive(arch *journal.Archive) {
	s.arch = arch
}

// BroadcastTrade pushes a trade to WebSocket subscribers of
// "trades:{asset}". Wire it to exchange.Exchange.OnTrade.
func (s *Server) BroadcastTrade(t exchange.Trade) {
	s.hub.BroadcastToChannel("trades:"+t.Asset, TradeUpdate{
		Type:   "trade",
		Buyer:  t.Buyer,
		Seller: t.Seller,
		Asset:  t.Asset,
		Qty:    t.Qty,
		Price:  t.Price,
	})
}

// ==============================
// REST Handlers
// ==============================

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	var req DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.User == "" || req.Asset == "" || req.Amount < 0 {
		respondError(w, http.StatusBadRequest, "invalid deposit", "user, asset and a non-negative amount are required")
		return
	}

	s.ex.Deposit(req.User, req.Asset, req.Amount)
	respondJSON(w, StatusResponse{Status: "ok"})
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	var req WithdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.User == "" || req.Asset == "" || req.Amount < 0 {
		respondError(w, http.StatusBadRequest, "invalid withdrawal", "user, asset and a non-negative amount are required")
		return
	}

	if !s.ex.Withdraw(req.User, req.Asset, req.Amount) {
		respondError(w, http.StatusConflict, "withdrawal rejected", "insufficient funds or unknown account")
		return
	}
	respondJSON(w, StatusResponse{Status: "ok"})
}

func (s *Server) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req SubmitOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	side, err := exchange.ParseSide(req.Side)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid side", err.Error())
		return
	}
	if req.User == "" || req.Asset == "" || req.Qty <= 0 || req.Price <= 0 {
		respondError(w, http.StatusBadRequest, "invalid order", "user, asset, positive qty and price are required")
		return
	}

	order := exchange.Order{
		Owner: req.User,
		Side:  side,
		Asset: req.Asset,
		Qty:   req.Qty,
		Price: req.Price,
	}

	if err := s.ex.Submit(order); err != nil {
		status := http.StatusConflict
		if !errors.Is(err, exchange.ErrInsufficientFunds) &&
			!errors.Is(err, exchange.ErrUnknownUser) &&
			!errors.Is(err, exchange.ErrUnknownAsset) {
			status = http.StatusBadRequest
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(SubmitOrderResponse{Status: "rejected", Message: err.Error()})
		return
	}
	respondJSON(w, SubmitOrderResponse{Status: "accepted"})
}

func (s *Server) handleGetPortfolios(w http.ResponseWriter, r *http.Request) {
	users := s.ex.Users()
	response := make([]PortfolioInfo, len(users))
	for i, user := range users {
		response[i] = PortfolioInfo{User: user, Holdings: s.ex.Portfolio(user)}
	}
	respondJSON(w, response)
}

func (s *Server) handleGetPortfolio(w http.ResponseWriter, r *http.Request) {
	user := mux.Vars(r)["user"]

	known := false
	for _, u := range s.ex.Users() {
		if u == user {
			known = true
			break
		}
	}
	if !known {
		respondError(w, http.StatusNotFound, "unknown user", user)
		return
	}
	respondJSON(w, PortfolioInfo{User: user, Holdings: s.ex.Portfolio(user)})
}

func (s *Server) handleGetOpenOrders(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, filterOrders(s.ex.OpenOrders(), r.URL.Query().Get("user")))
}

func (s *Server) handleGetFilledOrders(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, filterOrders(s.ex.FilledOrders(), r.URL.Query().Get("user")))
}

func (s *Server) handleGetTrades(w http.ResponseWriter, r *http.Request) {
	asset := r.URL.Query().Get("asset")
	trades := s.ex.Trades()
	response := make([]TradeInfo, 0, len(trades))
	for _, t := range trades {
		if asset != "" && t.Asset != asset {
			continue
		}
		response = append(response, TradeInfo{
			Buyer:  t.Buyer,
			Seller: t.Seller,
			Asset:  t.Asset,
			Qty:    t.Qty,
			Price:  t.Price,
		})
	}
	respondJSON(w, response)
}

func (s *Server) handleGetSpread(w http.ResponseWriter, r *http.Request) {
	asset := mux.Vars(r)["asset"]

	response := SpreadInfo{Asset: asset}
	if price, ok := s.ex.HighestBuy(asset); ok {
		response.HighestBuy = &price
	}
	if price, ok := s.ex.LowestSell(asset); ok {
		response.LowestSell = &price
	}
	respondJSON(w, response)
}

func (s *Server) handleArchiveTrades(w http.ResponseWriter, r *http.Request) {
	if s.arch == nil {
		respondError(w, http.StatusNotFound, "journal disabled", "no archive is configured")
		return
	}

	limit := 100
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "invalid limit", raw)
			return
		}
		limit = n
	}

	trades, err := s.arch.RecentTrades(r.URL.Query().Get("asset"), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "journal read failed", err.Error())
		return
	}
	response := make([]TradeInfo, 0, len(trades))
	for _, t := range trades {
		response = append(response, TradeInfo{
			Buyer:  t.Buyer,
			Seller: t.Seller,
			Asset:  t.Asset,
			Qty:    t.Qty,
			Price:  t.Price,
		})
	}
	respondJSON(w, response)
}

func (s *Server) handleArchiveFills(w http.ResponseWriter, r *http.Request) {
	if s.arch == nil {
		respondError(w, http.StatusNotFound, "journal disabled", "no archive is configured")
		return
	}

	fills, err := s.arch.Fills(r.URL.Query().Get("owner"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "journal read failed", err.Error())
		return
	}
	respondJSON(w, filterOrders(fills, ""))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

// ==============================
// Helper Functions
// ==============================

func filterOrders(orders []exchange.Order, user string) []OrderInfo {
	out := make([]OrderInfo, 0, len(orders))
	for _, o := range orders {
		if user != "" && o.Owner != user {
			continue
		}
		out = append(out, OrderInfo{
			Owner: o.Owner,
			Side:  o.Side.String(),
			Asset: o.Asset,
			Qty:   o.Qty,
			Price: o.Price,
		})
	}
	return out
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, error string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: error, Message: message})
}
