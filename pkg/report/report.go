// Package report renders human-readable listings of exchange state.
// It consumes the exchange purely through read accessors and never
// drives matching decisions.
package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/spartaninzaghi/CPP-Crypto-Exchange/pkg/exchange"
)

// Source is the read-only slice of the exchange the reports need.
// *exchange.Exchange satisfies it.
type Source interface {
	Users() []string
	Portfolio(user string) map[string]int64
	OpenOrders() []exchange.Order
	FilledOrders() []exchange.Order
	Trades() []exchange.Trade
	OpenAssets() []string
	HighestBuy(asset string) (int64, bool)
	LowestSell(asset string) (int64, bool)
}

// Portfolios writes every user's holdings, users alphabetical, assets
// alphabetical within a user, zero balances skipped.
func Portfolios(w io.Writer, src Source) {
	fmt.Fprintln(w, "User Portfolios (in alphabetical order):")
	for _, user := range src.Users() {
		fmt.Fprintf(w, "%s's Portfolio: ", user)
		holdings := src.Portfolio(user)
		assets := make([]string, 0, len(holdings))
		for asset := range holdings {
			assets = append(assets, asset)
		}
		sort.Strings(assets)
		for _, asset := range assets {
			if amount := holdings[asset]; amount != 0 {
				fmt.Fprintf(w, "%d %s, ", amount, asset)
			}
		}
		fmt.Fprintln(w)
	}
}

// Orders writes each user's open and filled orders, users alphabetical,
// orders chronological within each listing.
func Orders(w io.Writer, src Source) {
	open := src.OpenOrders()
	filled := src.FilledOrders()

	fmt.Fprintln(w, "Users Orders (in alphabetical order):")
	for _, user := range src.Users() {
		fmt.Fprintf(w, "%s's Open Orders (in chronological order):\n", user)
		for _, o := range open {
			if o.Owner == user {
				fmt.Fprintln(w, o)
			}
		}
		fmt.Fprintf(w, "%s's Filled Orders (in chronological order):\n", user)
		for _, o := range filled {
			if o.Owner == user {
				fmt.Fprintln(w, o)
			}
		}
	}
}

// TradeHistory writes all completed trades in chronological order.
func TradeHistory(w io.Writer, src Source) {
	fmt.Fprintln(w, "Trade History (in chronological order):")
	for _, t := range src.Trades() {
		fmt.Fprintln(w, t)
	}
}

// BidAskSpread writes, per asset with resting orders, the highest open
// buy and lowest open sell, with "NA" for an empty side.
func BidAskSpread(w io.Writer, src Source) {
	fmt.Fprintln(w, "Asset Bid Ask Spread (in alphabetical order):")
	for _, asset := range src.OpenAssets() {
		fmt.Fprintf(w, "%s: Highest Open Buy = %s and Lowest Open Sell = %s\n",
			asset, formatPrice(src.HighestBuy(asset)), formatPrice(src.LowestSell(asset)))
	}
}

// All writes the four reports in order, separated by blank lines.
func All(w io.Writer, src Source) {
	Portfolios(w, src)
	fmt.Fprintln(w)
	Orders(w, src)
	fmt.Fprintln(w)
	TradeHistory(w, src)
	fmt.Fprintln(w)
	BidAskSpread(w, src)
}

func formatPrice(price int64, ok bool) string {
	if !ok {
		return "NA USD"
	}
	return fmt.Sprintf("%d USD", price)
}
