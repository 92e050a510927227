package port

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"portfolio_tracker/internal/domain/entity"
)

// TokenRegistry is the static token list known to the tracker.
type TokenRegistry interface {
	// Lookup returns the token registered at address.
	Lookup(address common.Address) (entity.TokenInfo, bool)
	// Tokens returns every registered token in list order.
	Tokens() []entity.TokenInfo
}

// PriceResolver derives USD prices for tokens from on-chain exchange rates.
type PriceResolver interface {
	// Resolve prices every registered token in addresses. Tokens that cannot be priced are
	// reported as PortfolioError entries and left out of the table.
	Resolve(ctx context.Context, addresses []common.Address) (entity.PriceTable, []entity.PortfolioError)
}
