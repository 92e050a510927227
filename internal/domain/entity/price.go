package entity

import "github.com/shopspring/decimal"

// PriceTable maps a token symbol to its USD price. It is built once per valuation request.
type PriceTable map[string]decimal.Decimal

// Lookup returns the price of symbol and whether it is known.
func (t PriceTable) Lookup(symbol string) (decimal.Decimal, bool) {
	price, ok := t[symbol]
	return price, ok
}
