package exchange

import (
	"errors"
	"reflect"
	"testing"
)

// snapshot captures everything an observer can see, for atomicity
// checks.
type snapshot struct {
	portfolios map[string]map[string]int64
	open       []Order
	filled     []Order
	trades     []Trade
}

func capture(e *Exchange) snapshot {
	return snapshot{
		portfolios: e.Portfolios(),
		open:       e.OpenOrders(),
		filled:     e.FilledOrders(),
		trades:     e.Trades(),
	}
}

func TestSubmitRejectedOrderMutatesNothing(t *testing.T) {
	e := New(nil)
	e.Deposit("alice", "USD", 100)
	e.Deposit("bob", "BTC", 50)
	e.SubmitOrder(Order{Owner: "bob", Side: Sell, Asset: "BTC", Qty: 10, Price: 5})

	before := capture(e)

	// 30 * 5 = 150 USD needed, alice has 100. The book holds a
	// crossing sell, but the pre-check fails before any matching.
	if e.SubmitOrder(Order{Owner: "alice", Side: Buy, Asset: "BTC", Qty: 30, Price: 5}) {
		t.Fatal("expected rejection for unaffordable buy")
	}

	after := capture(e)
	if !reflect.DeepEqual(before, after) {
		t.Errorf("rejected order changed observable state:\nbefore %+v\nafter  %+v", before, after)
	}
}

func TestSubmitRejectReasons(t *testing.T) {
	e := New(nil)
	e.Deposit("alice", "USD", 1000)
	e.Deposit("bob", "BTC", 3)

	tests := []struct {
		name  string
		order Order
		want  error
	}{
		{
			"unknown user",
			Order{Owner: "nobody", Side: Buy, Asset: "BTC", Qty: 1, Price: 10},
			ErrUnknownUser,
		},
		{
			"buyer with no cash entry",
			Order{Owner: "bob", Side: Buy, Asset: "BTC", Qty: 1, Price: 10},
			ErrUnknownAsset,
		},
		{
			"seller with no inventory entry",
			Order{Owner: "alice", Side: Sell, Asset: "BTC", Qty: 1, Price: 10},
			ErrUnknownAsset,
		},
		{
			"insufficient cash",
			Order{Owner: "alice", Side: Buy, Asset: "BTC", Qty: 200, Price: 10},
			ErrInsufficientFunds,
		},
		{
			"insufficient inventory",
			Order{Owner: "bob", Side: Sell, Asset: "BTC", Qty: 4, Price: 10},
			ErrInsufficientFunds,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := e.Submit(tt.order)
			if !errors.Is(err, tt.want) {
				t.Errorf("Submit() = %v, want %v", err, tt.want)
			}
			// The boolean projection agrees.
			if e.SubmitOrder(tt.order) {
				t.Error("SubmitOrder() = true for a rejected order")
			}
		})
	}
}

func TestSubmitInvalidOrder(t *testing.T) {
	e := New(nil)
	e.Deposit("alice", "USD", 1000)

	before := capture(e)
	for _, o := range []Order{
		{Owner: "alice", Side: Buy, Asset: "BTC", Qty: 0, Price: 10},
		{Owner: "alice", Side: Buy, Asset: "BTC", Qty: 5, Price: 0},
		{Owner: "alice", Side: Buy, Asset: "BTC", Qty: -1, Price: 10},
	} {
		if e.Submit(o) == nil {
			t.Errorf("Submit(%v) accepted a non-positive qty or price", o)
		}
	}
	if !reflect.DeepEqual(before, capture(e)) {
		t.Error("invalid orders mutated state")
	}
}

// Both orders rest with no counterparty: the sell escrows inventory,
// the buy escrows cash, and nothing trades.
func TestRestingOrdersEscrow(t *testing.T) {
	e := New(nil)
	e.Deposit("alice", "BTC", 1000)
	e.Deposit("alice", "USD", 100000)

	sell := Order{Owner: "alice", Side: Sell, Asset: "BTC", Qty: 5, Price: 1100}
	buy := Order{Owner: "alice", Side: Buy, Asset: "BTC", Qty: 7, Price: 800}
	if !e.SubmitOrder(sell) {
		t.Fatal("sell should be accepted")
	}
	if !e.SubmitOrder(buy) {
		t.Fatal("buy should be accepted")
	}

	if got, _ := e.Balance("alice", "BTC"); got != 995 {
		t.Errorf("BTC balance = %d, want 995 (5 escrowed)", got)
	}
	if got, _ := e.Balance("alice", "USD"); got != 100000-7*800 {
		t.Errorf("USD balance = %d, want %d (7*800 escrowed)", got, 100000-7*800)
	}

	open := e.OpenOrders()
	if len(open) != 2 || !open[0].Equal(sell) || !open[1].Equal(buy) {
		t.Errorf("OpenOrders() = %v, want [%v %v]", open, sell, buy)
	}
	if trades := e.Trades(); len(trades) != 0 {
		t.Errorf("Trades() = %v, want empty", trades)
	}
}

// A resting sell of 5 hit by a buy taker for 10 fills the maker
// completely, rests the 5-unit remainder, and escrows cash only for
// that remainder.
func TestPartialFillBuyTaker(t *testing.T) {
	e := New(nil)
	e.Deposit("maker", "BTC", 5)
	e.Deposit("taker", "USD", 20000)

	if !e.SubmitOrder(Order{Owner: "maker", Side: Sell, Asset: "BTC", Qty: 5, Price: 1000}) {
		t.Fatal("maker sell should rest")
	}
	if !e.SubmitOrder(Order{Owner: "taker", Side: Buy, Asset: "BTC", Qty: 10, Price: 1100}) {
		t.Fatal("taker buy should be accepted")
	}

	trades := e.Trades()
	if len(trades) != 1 {
		t.Fatalf("Trades() = %v, want exactly one", trades)
	}
	want := Trade{Buyer: "taker", Seller: "maker", Asset: "BTC", Qty: 5, Price: 1100}
	if trades[0] != want {
		t.Errorf("trade = %+v, want %+v", trades[0], want)
	}

	// The maker's sell is gone; only the taker's remainder rests.
	open := e.OpenOrders()
	rest := Order{Owner: "taker", Side: Buy, Asset: "BTC", Qty: 5, Price: 1100}
	if len(open) != 1 || !open[0].Equal(rest) {
		t.Errorf("OpenOrders() = %v, want [%v]", open, rest)
	}

	// Taker paid 5*1100 for the fill and escrowed 5*1100 for the rest.
	if got, _ := e.Balance("taker", "USD"); got != 20000-5500-5500 {
		t.Errorf("taker USD = %d, want %d", got, 20000-5500-5500)
	}
	if got, _ := e.Balance("taker", "BTC"); got != 5 {
		t.Errorf("taker BTC = %d, want 5", got)
	}
	// The maker receives the taker's price, above its own limit.
	if got, _ := e.Balance("maker", "USD"); got != 5500 {
		t.Errorf("maker USD = %d, want 5500 (settled at taker price)", got)
	}
	if got, _ := e.Balance("maker", "BTC"); got != 0 {
		t.Errorf("maker BTC = %d, want 0", got)
	}

	// Exactly two fragments: the maker's consumed sell, then the
	// taker's consumed buy, both at the trade quantity and price.
	filled := e.FilledOrders()
	wantFilled := []Order{
		{Owner: "maker", Side: Sell, Asset: "BTC", Qty: 5, Price: 1100},
		{Owner: "taker", Side: Buy, Asset: "BTC", Qty: 5, Price: 1100},
	}
	if !reflect.DeepEqual(filled, wantFilled) {
		t.Errorf("FilledOrders() = %v, want %v", filled, wantFilled)
	}
}

// Mirror case: a sell taker partially consumes a larger resting buy.
// The trade settles at the taker's (lower) price; the maker's extra
// escrow is not refunded.
func TestPartialFillSellTaker(t *testing.T) {
	e := New(nil)
	e.Deposit("buyer", "USD", 2000)
	e.Deposit("seller", "BTC", 4)

	if !e.SubmitOrder(Order{Owner: "buyer", Side: Buy, Asset: "BTC", Qty: 10, Price: 200}) {
		t.Fatal("buy should rest")
	}
	if !e.SubmitOrder(Order{Owner: "seller", Side: Sell, Asset: "BTC", Qty: 4, Price: 150}) {
		t.Fatal("sell should be accepted")
	}

	trades := e.Trades()
	if len(trades) != 1 {
		t.Fatalf("Trades() = %v, want exactly one", trades)
	}
	want := Trade{Buyer: "buyer", Seller: "seller", Asset: "BTC", Qty: 4, Price: 150}
	if trades[0] != want {
		t.Errorf("trade = %+v, want %+v", trades[0], want)
	}

	// Seller receives the taker price for 4 units.
	if got, _ := e.Balance("seller", "USD"); got != 600 {
		t.Errorf("seller USD = %d, want 600", got)
	}
	if got, _ := e.Balance("seller", "BTC"); got != 0 {
		t.Errorf("seller BTC = %d, want 0", got)
	}
	// Buyer's cash was escrowed at placement at its own limit; the
	// fill consumes from that escrow, not the live balance.
	if got, _ := e.Balance("buyer", "USD"); got != 0 {
		t.Errorf("buyer USD = %d, want 0 (2000 escrowed at placement)", got)
	}
	if got, _ := e.Balance("buyer", "BTC"); got != 4 {
		t.Errorf("buyer BTC = %d, want 4", got)
	}

	// The maker keeps resting with the remainder.
	open := e.OpenOrders()
	rest := Order{Owner: "buyer", Side: Buy, Asset: "BTC", Qty: 6, Price: 200}
	if len(open) != 1 || !open[0].Equal(rest) {
		t.Errorf("OpenOrders() = %v, want [%v]", open, rest)
	}
}

func TestEqualQuantityFill(t *testing.T) {
	e := New(nil)
	e.Deposit("buyer", "USD", 1000)
	e.Deposit("seller", "BTC", 5)

	if !e.SubmitOrder(Order{Owner: "buyer", Side: Buy, Asset: "BTC", Qty: 5, Price: 200}) {
		t.Fatal("buy should rest")
	}
	if !e.SubmitOrder(Order{Owner: "seller", Side: Sell, Asset: "BTC", Qty: 5, Price: 200}) {
		t.Fatal("sell should be accepted")
	}

	if open := e.OpenOrders(); len(open) != 0 {
		t.Errorf("OpenOrders() = %v, want empty after exact fill", open)
	}

	trades := e.Trades()
	if len(trades) != 1 {
		t.Fatalf("Trades() = %v, want one", trades)
	}
	want := Trade{Buyer: "buyer", Seller: "seller", Asset: "BTC", Qty: 5, Price: 200}
	if trades[0] != want {
		t.Errorf("trade = %+v, want %+v", trades[0], want)
	}

	// Maker fragment first, carrying the maker's own name and side.
	wantFilled := []Order{
		{Owner: "buyer", Side: Buy, Asset: "BTC", Qty: 5, Price: 200},
		{Owner: "seller", Side: Sell, Asset: "BTC", Qty: 5, Price: 200},
	}
	if filled := e.FilledOrders(); !reflect.DeepEqual(filled, wantFilled) {
		t.Errorf("FilledOrders() = %v, want %v", filled, wantFilled)
	}

	if got, _ := e.Balance("buyer", "BTC"); got != 5 {
		t.Errorf("buyer BTC = %d, want 5", got)
	}
	if got, _ := e.Balance("seller", "USD"); got != 1000 {
		t.Errorf("seller USD = %d, want 1000", got)
	}
}

// A large taker sweeps several makers, cheapest first, and rests the
// remainder.
func TestMultiStepSweep(t *testing.T) {
	e := New(nil)
	e.Deposit("a", "BTC", 3)
	e.Deposit("b", "BTC", 4)
	e.Deposit("taker", "USD", 100000)

	e.SubmitOrder(Order{Owner: "a", Side: Sell, Asset: "BTC", Qty: 3, Price: 120})
	e.SubmitOrder(Order{Owner: "b", Side: Sell, Asset: "BTC", Qty: 4, Price: 110})

	if !e.SubmitOrder(Order{Owner: "taker", Side: Buy, Asset: "BTC", Qty: 10, Price: 130}) {
		t.Fatal("taker buy should be accepted")
	}

	// Cheapest ask first, then the pricier one, both at taker price.
	wantTrades := []Trade{
		{Buyer: "taker", Seller: "b", Asset: "BTC", Qty: 4, Price: 130},
		{Buyer: "taker", Seller: "a", Asset: "BTC", Qty: 3, Price: 130},
	}
	if trades := e.Trades(); !reflect.DeepEqual(trades, wantTrades) {
		t.Errorf("Trades() = %v, want %v", trades, wantTrades)
	}

	open := e.OpenOrders()
	rest := Order{Owner: "taker", Side: Buy, Asset: "BTC", Qty: 3, Price: 130}
	if len(open) != 1 || !open[0].Equal(rest) {
		t.Errorf("OpenOrders() = %v, want [%v]", open, rest)
	}

	if got, _ := e.Balance("taker", "BTC"); got != 7 {
		t.Errorf("taker BTC = %d, want 7", got)
	}
	// 7 units settled plus 3 escrowed, all at 130.
	if got, _ := e.Balance("taker", "USD"); got != 100000-10*130 {
		t.Errorf("taker USD = %d, want %d", got, 100000-10*130)
	}
}

// totalWithEscrow sums an asset across all balances plus the quantity
// promised by resting orders: sell orders escrow the asset itself,
// buy orders escrow cash at their limit price.
func totalWithEscrow(e *Exchange, asset string) int64 {
	var total int64
	for _, user := range e.Users() {
		total += e.Portfolio(user)[asset]
	}
	for _, o := range e.OpenOrders() {
		if asset == CashAsset {
			if o.Side == Buy {
				total += o.Qty * o.Price
			}
		} else if o.Side == Sell && o.Asset == asset {
			total += o.Qty
		}
	}
	return total
}

// Cash and asset totals (balances plus escrow) are preserved across a
// buy-taker matching sequence; only deposits change them.
func TestConservationAcrossBuyTakerFlow(t *testing.T) {
	e := New(nil)
	e.Deposit("s1", "BTC", 10)
	e.Deposit("s2", "BTC", 20)
	e.Deposit("b1", "USD", 50000)
	e.Deposit("b2", "USD", 80000)

	wantBTC := totalWithEscrow(e, "BTC")
	wantUSD := totalWithEscrow(e, CashAsset)

	orders := []Order{
		{Owner: "s1", Side: Sell, Asset: "BTC", Qty: 10, Price: 100},
		{Owner: "s2", Side: Sell, Asset: "BTC", Qty: 20, Price: 105},
		{Owner: "b1", Side: Buy, Asset: "BTC", Qty: 15, Price: 105},
		{Owner: "b2", Side: Buy, Asset: "BTC", Qty: 25, Price: 110},
	}
	for _, o := range orders {
		if !e.SubmitOrder(o) {
			t.Fatalf("order %v unexpectedly rejected", o)
		}
		if got := totalWithEscrow(e, "BTC"); got != wantBTC {
			t.Errorf("after %v: BTC total = %d, want %d", o, got, wantBTC)
		}
		if got := totalWithEscrow(e, CashAsset); got != wantUSD {
			t.Errorf("after %v: USD total = %d, want %d", o, got, wantUSD)
		}
	}

	// No balance anywhere went negative.
	for user, holdings := range e.Portfolios() {
		for asset, balance := range holdings {
			if balance < 0 {
				t.Errorf("%s has negative %s balance: %d", user, asset, balance)
			}
		}
	}
}

func TestAuditHooksFireOutsideLock(t *testing.T) {
	e := New(nil)
	e.Deposit("maker", "BTC", 5)
	e.Deposit("taker", "USD", 10000)

	var gotTrades []Trade
	var gotFills []Order
	e.OnTrade = func(t Trade) { gotTrades = append(gotTrades, t) }
	e.OnFill = func(o Order) {
		gotFills = append(gotFills, o)
		// Re-entering the exchange from a hook must not deadlock.
		e.Trades()
	}

	e.SubmitOrder(Order{Owner: "maker", Side: Sell, Asset: "BTC", Qty: 5, Price: 100})
	e.SubmitOrder(Order{Owner: "taker", Side: Buy, Asset: "BTC", Qty: 5, Price: 100})

	wantTrades := []Trade{{Buyer: "taker", Seller: "maker", Asset: "BTC", Qty: 5, Price: 100}}
	if !reflect.DeepEqual(gotTrades, wantTrades) {
		t.Errorf("OnTrade got %v, want %v", gotTrades, wantTrades)
	}
	wantFills := []Order{
		{Owner: "maker", Side: Sell, Asset: "BTC", Qty: 5, Price: 100},
		{Owner: "taker", Side: Buy, Asset: "BTC", Qty: 5, Price: 100},
	}
	if !reflect.DeepEqual(gotFills, wantFills) {
		t.Errorf("OnFill got %v, want %v", gotFills, wantFills)
	}
}

func TestOrderEqualAndString(t *testing.T) {
	o := Order{Owner: "Nahum", Side: Sell, Asset: "BTC", Qty: 5, Price: 1100}

	if got, want := o.String(), "Sell 5 BTC at 1100 USD by Nahum"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}

	same := Order{Owner: "Nahum", Side: Sell, Asset: "BTC", Qty: 5, Price: 1100}
	if !o.Equal(same) {
		t.Error("identical orders should be equal")
	}
	for _, other := range []Order{
		{Owner: "Ofria", Side: Sell, Asset: "BTC", Qty: 5, Price: 1100},
		{Owner: "Nahum", Side: Buy, Asset: "BTC", Qty: 5, Price: 1100},
		{Owner: "Nahum", Side: Sell, Asset: "ETH", Qty: 5, Price: 1100},
		{Owner: "Nahum", Side: Sell, Asset: "BTC", Qty: 6, Price: 1100},
		{Owner: "Nahum", Side: Sell, Asset: "BTC", Qty: 5, Price: 1200},
	} {
		if o.Equal(other) {
			t.Errorf("orders should differ: %v vs %v", o, other)
		}
	}
}

func TestParseSide(t *testing.T) {
	if s, err := ParseSide("Buy"); err != nil || s != Buy {
		t.Errorf("ParseSide(Buy) = %v, %v", s, err)
	}
	if s, err := ParseSide("Sell"); err != nil || s != Sell {
		t.Errorf("ParseSide(Sell) = %v, %v", s, err)
	}
	if _, err := ParseSide("short"); err == nil {
		t.Error("ParseSide(short) should fail")
	}
}
