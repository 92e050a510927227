package entity

import "github.com/ethereum/go-ethereum/common"

// BaseUnitDecimals is the fixed-point scale of every raw on-chain amount handled by the tracker.
const BaseUnitDecimals = 18

// TokenInfo holds the details of a specific token.
type TokenInfo struct {
	Address  common.Address `json:"address"`
	Symbol   string         `json:"symbol"`
	Name     string         `json:"name"`
	IconRef  string         `json:"logoURI,omitempty"`
	Decimals uint8          `json:"decimals"`
}
