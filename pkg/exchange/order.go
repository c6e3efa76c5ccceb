package exchange

import "fmt"

// Side is the direction of an order.
type Side int8

const (
	Buy  Side = 1
	Sell Side = -1
)

func (s Side) String() string {
	if s == Buy {
		return "Buy"
	}
	return "Sell"
}

// Opposite returns the counterparty side.
func (s Side) Opposite() Side {
	return -s
}

// ParseSide converts "Buy"/"Sell" (as used on the wire and in reports)
// into a Side. Returns an error for anything else.
func ParseSide(s string) (Side, error) {
	switch s {
	case "Buy":
		return Buy, nil
	case "Sell":
		return Sell, nil
	default:
		return 0, fmt.Errorf("invalid side %q", s)
	}
}

// Order is a limit order. While resting in the book its Qty is the
// unfilled remainder; the filled-order log holds closed fragments whose
// Qty is the executed amount of one settlement step.
type Order struct {
	Owner string `json:"owner"`
	Side  Side   `json:"side"`
	Asset string `json:"asset"`
	Qty   int64  `json:"qty"`
	Price int64  `json:"price"` // limit price in USD per unit
}

// Equal reports field-wise equality on all five fields.
func (o Order) Equal(other Order) bool {
	return o.Owner == other.Owner &&
		o.Side == other.Side &&
		o.Asset == other.Asset &&
		o.Qty == other.Qty &&
		o.Price == other.Price
}

// String renders the order the way reports print it,
// e.g. "Sell 5 BTC at 1100 USD by Nahum".
func (o Order) String() string {
	return fmt.Sprintf("%s %d %s at %d USD by %s", o.Side, o.Qty, o.Asset, o.Price, o.Owner)
}

// Trade is one completed settlement step. Price is always the taker's
// limit price at the time of the step, never the resting order's.
type Trade struct {
	Buyer  string `json:"buyer"`
	Seller string `json:"seller"`
	Asset  string `json:"asset"`
	Qty    int64  `json:"qty"`
	Price  int64  `json:"price"`
}

func (t Trade) String() string {
	return fmt.Sprintf("%s Bought %d of %s From %s for %d USD", t.Buyer, t.Qty, t.Asset, t.Seller, t.Price)
}
