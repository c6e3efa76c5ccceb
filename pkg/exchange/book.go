package exchange

import "sort"

// Book holds resting orders keyed by a stable id, with insertion order
// preserved in seq. All mutation of a resting order goes through its
// id, so removal can never invalidate a held reference mid-match.
type Book struct {
	orders map[uint64]*Order
	seq    []uint64 // ids in insertion order
	nextID uint64
}

func NewBook() *Book {
	return &Book{orders: make(map[uint64]*Order)}
}

// Add appends the order to the book and returns its id.
func (b *Book) Add(o Order) uint64 {
	b.nextID++
	id := b.nextID
	b.orders[id] = &o
	b.seq = append(b.seq, id)
	return id
}

// Remove erases the order with the given id, keeping relative order of
// the remainder.
func (b *Book) Remove(id uint64) {
	if _, ok := b.orders[id]; !ok {
		return
	}
	delete(b.orders, id)
	for i, sid := range b.seq {
		if sid == id {
			b.seq = append(b.seq[:i], b.seq[i+1:]...)
			break
		}
	}
}

// Get returns the resting order for id, or nil.
func (b *Book) Get(id uint64) *Order {
	return b.orders[id]
}

func (b *Book) Len() int {
	return len(b.seq)
}

// Resting returns copies of all resting orders in insertion order.
func (b *Book) Resting() []Order {
	out := make([]Order, 0, len(b.seq))
	for _, id := range b.seq {
		out = append(out, *b.orders[id])
	}
	return out
}

// crosses reports whether the resting order o can trade against taker:
// same asset, opposite side, and a price at least as favorable as the
// taker's limit.
func crosses(taker Order, o Order) bool {
	if taker.Qty == 0 || o.Asset != taker.Asset || o.Side == taker.Side {
		return false
	}
	if taker.Side == Buy {
		return o.Price <= taker.Price
	}
	return o.Price >= taker.Price
}

// BestCounterparty selects the resting order the taker should match
// next, or ok=false when nothing crosses. The two sides deliberately
// disagree on tie-breaks: a buy taker gets the lowest-priced crossing
// sell with ties going to the earliest resting order, while a sell
// taker gets the highest-priced crossing buy with ties going to the
// lexicographically smallest owner.
func (b *Book) BestCounterparty(taker Order) (uint64, bool) {
	var bestID uint64
	var best *Order
	for _, id := range b.seq {
		o := b.orders[id]
		if !crosses(taker, *o) {
			continue
		}
		if best == nil {
			bestID, best = id, o
			continue
		}
		if taker.Side == Buy {
			if o.Price < best.Price {
				bestID, best = id, o
			}
		} else {
			if o.Price > best.Price || (o.Price == best.Price && o.Owner < best.Owner) {
				bestID, best = id, o
			}
		}
	}
	return bestID, best != nil
}

// OpenAssets returns the distinct asset symbols with at least one
// resting order, in alphabetical order.
func (b *Book) OpenAssets() []string {
	seen := make(map[string]struct{})
	for _, id := range b.seq {
		seen[b.orders[id].Asset] = struct{}{}
	}
	assets := make([]string, 0, len(seen))
	for asset := range seen {
		assets = append(assets, asset)
	}
	sort.Strings(assets)
	return assets
}

// HighestBuy returns the maximum price among resting buys for asset.
// ok is false when no buy order for the asset rests.
func (b *Book) HighestBuy(asset string) (int64, bool) {
	var price int64
	found := false
	for _, id := range b.seq {
		o := b.orders[id]
		if o.Side != Buy || o.Asset != asset {
			continue
		}
		if !found || o.Price > price {
			price = o.Price
			found = true
		}
	}
	return price, found
}

// LowestSell returns the minimum price among resting sells for asset.
func (b *Book) LowestSell(asset string) (int64, bool) {
	var price int64
	found := false
	for _, id := range b.seq {
		o := b.orders[id]
		if o.Side != Sell || o.Asset != asset {
			continue
		}
		if !found || o.Price < price {
			price = o.Price
			found = true
		}
	}
	return price, found
}
