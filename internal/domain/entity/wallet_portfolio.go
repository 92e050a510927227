package entity

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Holdings is everything a wallet owns before pricing.
type Holdings struct {
	WalletAddress   common.Address
	TokenBalances   []TokenBalance
	PooledPositions []PooledPosition
	LockedPosition  *LockedPosition
	Failures        []PortfolioError
}

// WalletPortfolio represents the priced holdings of a wallet and their total USD value.
type WalletPortfolio struct {
	WalletAddress   string           `json:"walletAddress"`
	TokenBalances   []TokenBalance   `json:"tokenBalances"`
	PooledPositions []PooledPosition `json:"pooledPositions"`
	LockedPosition  *LockedPosition  `json:"lockedPosition,omitempty"`
	Failures        []PortfolioError `json:"failures,omitempty"`
	TotalValueUSD   decimal.Decimal  `json:"totalValueUSD"`
}
