package entity

import (
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// StakingChainSpec lists the contracts of a staking hierarchy, outermost staking wrapper first and
// the base liquidity pool last. A single-element chain is an LP token held directly.
type StakingChainSpec struct {
	Name      string           `json:"name" yaml:"name"`
	Contracts []common.Address `json:"contracts" yaml:"contracts"`
}

// Pool returns the base liquidity pool of the chain.
func (s StakingChainSpec) Pool() common.Address {
	return s.Contracts[len(s.Contracts)-1]
}

// PooledPosition is the wallet's resolved claim on the two reserves of a liquidity pool.
// Balances are keyed by token symbol and already normalised by the base-unit factor.
type PooledPosition struct {
	Name     string                     `json:"name"`
	Tokens   [2]TokenInfo               `json:"tokens"`
	Balances map[string]decimal.Decimal `json:"balances"`
	USDValue decimal.NullDecimal        `json:"usdValue"`
	Unpriced bool                       `json:"unpriced,omitempty"`
}

// Symbols returns the symbols of Balances in a stable order.
func (p PooledPosition) Symbols() []string {
	symbols := make([]string, 0, len(p.Balances))
	for symbol := range p.Balances {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}
