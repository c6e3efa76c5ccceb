package api

// Request and response types for the REST endpoints and WebSocket feed.

// ==============================
// REST Request Types
// ==============================

// DepositRequest is the payload for POST /api/v1/deposits.
type DepositRequest struct {
	User   string `json:"user"`
	Asset  string `json:"asset"`
	Amount int64  `json:"amount"`
}

// WithdrawRequest is the payload for POST /api/v1/withdrawals.
type WithdrawRequest struct {
	User   string `json:"user"`
	Asset  string `json:"asset"`
	Amount int64  `json:"amount"`
}

// SubmitOrderRequest is the payload for POST /api/v1/orders.
type SubmitOrderRequest struct {
	User  string `json:"user"`
	Side  string `json:"side"` // "Buy" or "Sell"
	Asset string `json:"asset"`
	Qty   int64  `json:"qty"`
	Price int64  `json:"price"`
}

// ==============================
// REST Response Types
// ==============================

// OrderInfo represents an order (open or filled fragment).
type OrderInfo struct {
	Owner string `json:"owner"`
	Side  string `json:"side"`
	Asset string `json:"asset"`
	Qty   int64  `json:"qty"`
	Price int64  `json:"price"`
}

// TradeInfo represents a completed trade.
type TradeInfo struct {
	Buyer  string `json:"buyer"`
	Seller string `json:"seller"`
	Asset  string `json:"asset"`
	Qty    int64  `json:"qty"`
	Price  int64  `json:"price"`
}

// PortfolioInfo is one user's holdings by asset.
type PortfolioInfo struct {
	User     string           `json:"user"`
	Holdings map[string]int64 `json:"holdings"`
}

// SpreadInfo is the bid/ask summary for one asset. A nil price means
// that side of the book is empty.
type SpreadInfo struct {
	Asset      string `json:"asset"`
	HighestBuy *int64 `json:"highestBuy"`
	LowestSell *int64 `json:"lowestSell"`
}

// SubmitOrderResponse is the response from order submission.
type SubmitOrderResponse struct {
	Status  string `json:"status"` // "accepted" or "rejected"
	Message string `json:"message,omitempty"`
}

// StatusResponse is the generic success response.
type StatusResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is returned for all errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ==============================
// WebSocket Message Types
// ==============================

// WSSubscribeRequest is sent by a client to subscribe to channels,
// e.g. ["trades:BTC", "trades:ETH"].
type WSSubscribeRequest struct {
	Op       string   `json:"op"` // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"`
}

// TradeUpdate is broadcast on channel "trades:{asset}" when a trade
// executes.
type TradeUpdate struct {
	Type   string `json:"type"` // "trade"
	Buyer  string `json:"buyer"`
	Seller string `json:"seller"`
	Asset  string `json:"asset"`
	Qty    int64  `json:"qty"`
	Price  int64  `json:"price"`
}
