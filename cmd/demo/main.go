// Command demo runs the reference scenario against an in-memory
// exchange and prints the four reports to stdout.
package main

import (
	"os"

	"github.com/spartaninzaghi/CPP-Crypto-Exchange/pkg/exchange"
	"github.com/spartaninzaghi/CPP-Crypto-Exchange/pkg/report"
	"github.com/spartaninzaghi/CPP-Crypto-Exchange/pkg/sample"
)

func main() {
	ex := exchange.New(nil)
	sample.Load(ex)
	report.All(os.Stdout, ex)
}
