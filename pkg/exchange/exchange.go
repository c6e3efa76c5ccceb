package exchange

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Exchange matches incoming orders against the resting book and
// settles funds through the ledger. One mutex wraps every operation
// end to end: a SubmitOrder call is a single critical section covering
// pre-check, every settlement step, and residual placement, so no
// reader ever observes a half-settled order.
type Exchange struct {
	mu     sync.RWMutex
	ledger *Ledger
	book   *Book

	// Append-only audit trail. Entries are never mutated or removed.
	filled []Order
	trades []Trade

	// OnTrade is invoked after each completed settlement step, outside
	// the lock. Used by the API layer and the journal; may be nil.
	OnTrade func(Trade)
	// OnFill is invoked for each closed order fragment, outside the
	// lock, maker fragment first. May be nil.
	OnFill func(Order)

	log *zap.SugaredLogger
}

// New creates an empty exchange. A nil logger disables logging.
func New(log *zap.SugaredLogger) *Exchange {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Exchange{
		ledger: NewLedger(),
		book:   NewBook(),
		log:    log,
	}
}

// Deposit credits the user's balance. Always succeeds.
func (e *Exchange) Deposit(user, asset string, amount int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ledger.Deposit(user, asset, amount)
	e.log.Debugw("deposit", "user", user, "asset", asset, "amount", amount)
}

// CanWithdraw reports whether the user could withdraw amount of asset
// right now. Pure.
func (e *Exchange) CanWithdraw(user, asset string, amount int64) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ledger.CanWithdraw(user, asset, amount)
}

// Withdraw debits the user's balance, or returns false leaving the
// ledger untouched.
func (e *Exchange) Withdraw(user, asset string, amount int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.Withdraw(user, asset, amount)
}

// stepResult is what one settlement step produced, for audit hooks.
type stepResult struct {
	trade     Trade
	makerFrag Order
	takerFrag Order
}

// SubmitOrder accepts or rejects an order. True means the order was
// accepted: it matched, rested, or both. False means the pre-check
// failed and nothing was mutated.
func (e *Exchange) SubmitOrder(o Order) bool {
	return e.Submit(o) == nil
}

// Submit is SubmitOrder with the reject reason preserved: the returned
// error wraps ErrUnknownUser, ErrUnknownAsset, or ErrInsufficientFunds.
func (e *Exchange) Submit(o Order) error {
	if o.Qty <= 0 || o.Price <= 0 {
		return fmt.Errorf("invalid order %v: qty and price must be positive", o)
	}

	e.mu.Lock()
	steps, err := e.submit(o)
	e.mu.Unlock()

	if err != nil {
		e.log.Infow("order_rejected", "order", o.String(), "reason", err.Error())
		return err
	}
	e.log.Infow("order_accepted", "order", o.String(), "steps", len(steps))

	for _, st := range steps {
		if e.OnFill != nil {
			e.OnFill(st.makerFrag)
			e.OnFill(st.takerFrag)
		}
		if e.OnTrade != nil {
			e.OnTrade(st.trade)
		}
	}
	return nil
}

// submit runs the full acceptance sequence under the caller-held lock:
// affordability pre-check, the matching loop, then escrow and resting
// placement for any remainder.
func (e *Exchange) submit(taker Order) ([]stepResult, error) {
	// The pre-check is against the original quantity and price. Matching
	// then debits exactly the matched amount per step and the residual
	// debit covers what remains, so the check never over- or
	// under-reserves across the whole operation.
	if taker.Side == Buy {
		if err := e.ledger.check(taker.Owner, CashAsset, taker.Qty*taker.Price); err != nil {
			return nil, err
		}
	} else {
		if err := e.ledger.check(taker.Owner, taker.Asset, taker.Qty); err != nil {
			return nil, err
		}
	}

	var steps []stepResult
	for taker.Qty > 0 {
		makerID, ok := e.book.BestCounterparty(taker)
		if !ok {
			break
		}
		steps = append(steps, e.settle(&taker, makerID))
	}

	if taker.Qty > 0 {
		// Escrow the remainder so the resting order's promise is funded.
		if taker.Side == Buy {
			e.ledger.Withdraw(taker.Owner, CashAsset, taker.Qty*taker.Price)
		} else {
			e.ledger.Withdraw(taker.Owner, taker.Asset, taker.Qty)
		}
		e.book.Add(taker)
	}
	return steps, nil
}

// settle executes one match between the taker and the chosen maker.
// The trade always executes at the taker's limit price, whatever the
// maker quoted. The three quantity cases (taker below, equal to, or
// above the maker) only vary the executed quantity and whether the
// maker leaves the book; the bookkeeping is identical.
func (e *Exchange) settle(taker *Order, makerID uint64) stepResult {
	maker := e.book.Get(makerID)
	qty := taker.Qty
	if maker.Qty < qty {
		qty = maker.Qty
	}
	price := taker.Price

	var trade Trade
	if taker.Side == Buy {
		// Maker's asset units were escrowed at placement; only the cash
		// leg and the buyer's asset credit move here.
		cash := qty * price
		e.ledger.Withdraw(taker.Owner, CashAsset, cash)
		e.ledger.Deposit(maker.Owner, CashAsset, cash)
		e.ledger.Deposit(taker.Owner, taker.Asset, qty)
		trade = Trade{Buyer: taker.Owner, Seller: maker.Owner, Asset: taker.Asset, Qty: qty, Price: price}
	} else {
		// Maker's cash was escrowed at placement.
		e.ledger.Withdraw(taker.Owner, taker.Asset, qty)
		e.ledger.Deposit(maker.Owner, taker.Asset, qty)
		e.ledger.Deposit(taker.Owner, CashAsset, qty*price)
		trade = Trade{Buyer: maker.Owner, Seller: taker.Owner, Asset: taker.Asset, Qty: qty, Price: price}
	}

	makerFrag := Order{Owner: maker.Owner, Side: taker.Side.Opposite(), Asset: taker.Asset, Qty: qty, Price: price}
	takerFrag := Order{Owner: taker.Owner, Side: taker.Side, Asset: taker.Asset, Qty: qty, Price: price}
	e.filled = append(e.filled, makerFrag, takerFrag)
	e.trades = append(e.trades, trade)

	maker.Qty -= qty
	if maker.Qty == 0 {
		e.book.Remove(makerID)
	}
	taker.Qty -= qty

	e.log.Debugw("trade",
		"buyer", trade.Buyer, "seller", trade.Seller,
		"asset", trade.Asset, "qty", trade.Qty, "price", trade.Price)
	return stepResult{trade: trade, makerFrag: makerFrag, takerFrag: takerFrag}
}

// ---- Read accessors (all return copies) ----

// Balance returns the user's balance for asset and whether the entry
// exists.
func (e *Exchange) Balance(user, asset string) (int64, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ledger.Balance(user, asset)
}

// Users returns all known users in alphabetical order.
func (e *Exchange) Users() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ledger.Users()
}

// Portfolio returns a copy of one user's holdings by asset.
func (e *Exchange) Portfolio(user string) map[string]int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ledger.Assets(user)
}

// Portfolios returns a deep copy of every user's holdings.
func (e *Exchange) Portfolios() map[string]map[string]int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ledger.Snapshot()
}

// OpenOrders returns the resting orders in insertion order.
func (e *Exchange) OpenOrders() []Order {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.book.Resting()
}

// FilledOrders returns the append-only log of closed order fragments,
// in settlement order.
func (e *Exchange) FilledOrders() []Order {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Order, len(e.filled))
	copy(out, e.filled)
	return out
}

// Trades returns the append-only trade history in chronological order.
func (e *Exchange) Trades() []Trade {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Trade, len(e.trades))
	copy(out, e.trades)
	return out
}

// OpenAssets returns the assets with at least one resting order,
// alphabetically.
func (e *Exchange) OpenAssets() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.book.OpenAssets()
}

// HighestBuy returns the best resting bid for asset, ok=false if none.
// Reporting only; matching uses the book's own counterparty selection.
func (e *Exchange) HighestBuy(asset string) (int64, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.book.HighestBuy(asset)
}

// LowestSell returns the best resting ask for asset, ok=false if none.
func (e *Exchange) LowestSell(asset string) (int64, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.book.LowestSell(asset)
}
