package entity

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// TokenBalance is the amount of a registry token held directly by a wallet.
// USDValue keeps the base-unit scale of RawAmount.
type TokenBalance struct {
	Token     TokenInfo           `json:"token"`
	RawAmount *big.Int            `json:"rawAmount"`
	Amount    string              `json:"amount"`
	USDValue  decimal.NullDecimal `json:"usdValue"`
	Unpriced  bool                `json:"unpriced,omitempty"`
}

// LockedPosition is the wallet's locked governance token.
// Both USD values keep the base-unit scale of the raw amounts.
type LockedPosition struct {
	Token             TokenInfo           `json:"token"`
	Total             *big.Int            `json:"total"`
	NonVoting         *big.Int            `json:"nonVoting"`
	USDValue          decimal.NullDecimal `json:"usdValue"`
	NonVotingUSDValue decimal.NullDecimal `json:"nonVotingUsdValue"`
	Unpriced          bool                `json:"unpriced,omitempty"`
}
