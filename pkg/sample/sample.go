// Package sample seeds an exchange with the reference dataset: four
// users, deposits across four assets, and sixteen orders exercising
// partial fills, full fills, resting remainders, and crossed books.
package sample

import "github.com/spartaninzaghi/CPP-Crypto-Exchange/pkg/exchange"

// Load deposits the sample balances and submits the sample orders.
func Load(ex *exchange.Exchange) {
	ex.Deposit("Nahum", "BTC", 1000)
	ex.Deposit("Nahum", "USD", 100000)
	ex.Deposit("Dolson", "USD", 555555)
	ex.Deposit("Ofria", "ETH", 678)
	ex.Deposit("Zaabar", "USD", 12121212)
	ex.Deposit("Zaabar", "LTC", 4563)

	for _, o := range Orders() {
		ex.SubmitOrder(o)
	}
}

// Orders returns the sample order flow in submission order.
func Orders() []exchange.Order {
	return []exchange.Order{
		{Owner: "Nahum", Side: exchange.Sell, Asset: "BTC", Qty: 5, Price: 1100},
		{Owner: "Nahum", Side: exchange.Sell, Asset: "BTC", Qty: 100, Price: 1200},
		{Owner: "Nahum", Side: exchange.Buy, Asset: "BTC", Qty: 7, Price: 800},
		{Owner: "Dolson", Side: exchange.Buy, Asset: "BTC", Qty: 1, Price: 950},
		{Owner: "Ofria", Side: exchange.Sell, Asset: "ETH", Qty: 12, Price: 156},
		{Owner: "Ofria", Side: exchange.Sell, Asset: "ETH", Qty: 10, Price: 160},
		{Owner: "Zaabar", Side: exchange.Sell, Asset: "LTC", Qty: 10, Price: 550},
		{Owner: "Zaabar", Side: exchange.Buy, Asset: "LTC", Qty: 10, Price: 450},
		{Owner: "Nahum", Side: exchange.Buy, Asset: "LTC", Qty: 55, Price: 600},
		{Owner: "Nahum", Side: exchange.Buy, Asset: "ETH", Qty: 30, Price: 158},
		{Owner: "Ofria", Side: exchange.Sell, Asset: "ETH", Qty: 10, Price: 140},
		{Owner: "Zaabar", Side: exchange.Buy, Asset: "BTC", Qty: 10, Price: 1500},
		{Owner: "Zaabar", Side: exchange.Buy, Asset: "ETH", Qty: 200, Price: 1255},
		{Owner: "Nahum", Side: exchange.Sell, Asset: "BTC", Qty: 30, Price: 158},
		{Owner: "Dolson", Side: exchange.Buy, Asset: "BTC", Qty: 20, Price: 2000},
		{Owner: "Nahum", Side: exchange.Sell, Asset: "ETH", Qty: 1, Price: 1423},
	}
}
