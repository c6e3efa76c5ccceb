package exchange

import (
	"errors"
	"fmt"
	"sort"
)

// CashAsset is the symbol orders are priced in. It is an ordinary
// ledger asset; nothing below privileges it except the engine's
// call sites.
const CashAsset = "USD"

// Reject reasons behind the boolean contract. Callers that only need
// yes/no use the bool-returning methods; callers that care why get one
// of these wrapped in the returned error.
var (
	ErrUnknownUser       = errors.New("unknown user")
	ErrUnknownAsset      = errors.New("unknown asset")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// Ledger owns per-user, per-asset balances. No balance ever goes
// negative: a debit that would do so is rejected without mutation.
// Not safe for concurrent use on its own; Exchange serializes access.
type Ledger struct {
	portfolios map[string]map[string]int64
}

func NewLedger() *Ledger {
	return &Ledger{portfolios: make(map[string]map[string]int64)}
}

// Deposit credits the user's balance for asset, creating the user and
// asset entries if absent. A zero amount only materializes the entry.
// Amounts are trusted to be non-negative at this layer.
func (l *Ledger) Deposit(user, asset string, amount int64) {
	assets, ok := l.portfolios[user]
	if !ok {
		assets = make(map[string]int64)
		l.portfolios[user] = assets
	}
	assets[asset] += amount
}

// check classifies why a withdrawal would fail, or returns nil if it
// would succeed. Pure; does not create entries.
func (l *Ledger) check(user, asset string, amount int64) error {
	assets, ok := l.portfolios[user]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownUser, user)
	}
	balance, ok := assets[asset]
	if !ok {
		return fmt.Errorf("%w: %s has no %s", ErrUnknownAsset, user, asset)
	}
	if balance-amount < 0 {
		return fmt.Errorf("%w: %s has %d %s, need %d", ErrInsufficientFunds, user, balance, asset, amount)
	}
	return nil
}

// CanWithdraw reports whether the user holds at least amount of asset.
// Unknown user and unknown asset both read as false.
func (l *Ledger) CanWithdraw(user, asset string, amount int64) bool {
	return l.check(user, asset, amount) == nil
}

// Withdraw debits the balance iff CanWithdraw holds. Check and debit
// observe the same value; on failure nothing changes.
func (l *Ledger) Withdraw(user, asset string, amount int64) bool {
	if err := l.check(user, asset, amount); err != nil {
		return false
	}
	l.portfolios[user][asset] -= amount
	return true
}

// Balance returns the user's balance for asset and whether the entry
// exists. A deposited-zero entry exists with balance 0.
func (l *Ledger) Balance(user, asset string) (int64, bool) {
	assets, ok := l.portfolios[user]
	if !ok {
		return 0, false
	}
	balance, ok := assets[asset]
	return balance, ok
}

// Users returns all known users in alphabetical order.
func (l *Ledger) Users() []string {
	users := make([]string, 0, len(l.portfolios))
	for user := range l.portfolios {
		users = append(users, user)
	}
	sort.Strings(users)
	return users
}

// Assets returns a copy of the user's holdings keyed by asset symbol.
func (l *Ledger) Assets(user string) map[string]int64 {
	assets := make(map[string]int64, len(l.portfolios[user]))
	for asset, balance := range l.portfolios[user] {
		assets[asset] = balance
	}
	return assets
}

// Snapshot deep-copies the whole portfolio map, for reporting and for
// byte-for-byte comparison in tests.
func (l *Ledger) Snapshot() map[string]map[string]int64 {
	snap := make(map[string]map[string]int64, len(l.portfolios))
	for user := range l.portfolios {
		snap[user] = l.Assets(user)
	}
	return snap
}
