// Package journal is an append-only archive of trades and filled order
// fragments, backed by Pebble. It is a write-only export sink: the
// exchange never reads its own state back from here, so an exchange
// process always boots with an empty book and ledger.
package journal

import (
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/cockroachdb/pebble"

	"github.com/spartaninzaghi/CPP-Crypto-Exchange/pkg/exchange"
)

// Key schema. Zero-padded sequence numbers keep lexicographic order
// equal to append order, so range scans read back chronologically.
const (
	prefixTrade = "trade:"
	prefixFill  = "fill:"
	seqDigits   = 20
)

func tradeKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%0*d", prefixTrade, seqDigits, seq))
}

func fillKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%0*d", prefixFill, seqDigits, seq))
}

// keyUpperBound returns the exclusive upper bound for a prefix scan.
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}

// Archive is the Pebble-backed journal. Safe for concurrent use.
type Archive struct {
	mu       sync.Mutex
	db       *pebble.DB
	tradeSeq uint64 // next trade sequence number
	fillSeq  uint64
}

// Open opens (or creates) an archive at path and resumes sequence
// numbering after the last persisted entry.
func Open(path string) (*Archive, error) {
	db, err := pebble.Open(path, &pebble.Options{
		Cache:        pebble.NewCache(8 << 20),
		MemTableSize: 4 << 20,
	})
	if err != nil {
		return nil, fmt.Errorf("open journal at %s: %w", path, err)
	}

	a := &Archive{db: db}
	a.tradeSeq, err = nextSeq(db, prefixTrade)
	if err != nil {
		db.Close()
		return nil, err
	}
	a.fillSeq, err = nextSeq(db, prefixFill)
	if err != nil {
		db.Close()
		return nil, err
	}
	return a, nil
}

// nextSeq finds the sequence number following the last key under
// prefix, or 0 for an empty archive.
func nextSeq(db *pebble.DB, prefix string) (uint64, error) {
	lower := []byte(prefix)
	iter, err := db.NewIter(&pebble.IterOptions{
		LowerBound: lower,
		UpperBound: keyUpperBound(lower),
	})
	if err != nil {
		return 0, fmt.Errorf("journal iter: %w", err)
	}
	defer iter.Close()

	if !iter.Last() {
		return 0, nil
	}
	last, err := strconv.ParseUint(string(iter.Key()[len(prefix):]), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("corrupt journal key %q: %w", iter.Key(), err)
	}
	return last + 1, nil
}

func (a *Archive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.db.Close()
}

// AppendTrade records one completed trade.
func (a *Archive) AppendTrade(t exchange.Trade) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal trade: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	key := tradeKey(a.tradeSeq)
	if err := a.db.Set(key, data, pebble.NoSync); err != nil {
		return fmt.Errorf("append trade: %w", err)
	}
	a.tradeSeq++
	return nil
}

// AppendFill records one closed order fragment.
func (a *Archive) AppendFill(o exchange.Order) error {
	data, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("marshal fill: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	key := fillKey(a.fillSeq)
	if err := a.db.Set(key, data, pebble.NoSync); err != nil {
		return fmt.Errorf("append fill: %w", err)
	}
	a.fillSeq++
	return nil
}

// RecentTrades returns up to limit archived trades for asset, newest
// first. An empty asset matches every trade.
func (a *Archive) RecentTrades(asset string, limit int) ([]exchange.Trade, error) {
	lower := []byte(prefixTrade)
	iter, err := a.db.NewIter(&pebble.IterOptions{
		LowerBound: lower,
		UpperBound: keyUpperBound(lower),
	})
	if err != nil {
		return nil, fmt.Errorf("journal iter: %w", err)
	}
	defer iter.Close()

	var trades []exchange.Trade
	for ok := iter.Last(); ok && len(trades) < limit; ok = iter.Prev() {
		var t exchange.Trade
		if err := json.Unmarshal(iter.Value(), &t); err != nil {
			continue // skip corrupt entries
		}
		if asset != "" && t.Asset != asset {
			continue
		}
		trades = append(trades, t)
	}
	return trades, nil
}

// Fills returns all archived fragments for owner in append order. An
// empty owner matches every fragment.
func (a *Archive) Fills(owner string) ([]exchange.Order, error) {
	lower := []byte(prefixFill)
	iter, err := a.db.NewIter(&pebble.IterOptions{
		LowerBound: lower,
		UpperBound: keyUpperBound(lower),
	})
	if err != nil {
		return nil, fmt.Errorf("journal iter: %w", err)
	}
	defer iter.Close()

	var fills []exchange.Order
	for ok := iter.First(); ok; ok = iter.Next() {
		var o exchange.Order
		if err := json.Unmarshal(iter.Value(), &o); err != nil {
			continue
		}
		if owner != "" && o.Owner != owner {
			continue
		}
		fills = append(fills, o)
	}
	return fills, nil
}
