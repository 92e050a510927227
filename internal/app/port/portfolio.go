package port

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"portfolio_tracker/internal/domain/entity"
)

// PoolCatalogue provides the staking chains a wallet may hold a position in.
type PoolCatalogue interface {
	// StakingChains returns the known chains. On a partial failure it returns the chains it could
	// build together with the error.
	StakingChains(ctx context.Context) ([]entity.StakingChainSpec, error)
}

// BalanceResolver resolves what a wallet owns, before pricing.
type BalanceResolver interface {
	Resolve(ctx context.Context, wallet common.Address, chains []entity.StakingChainSpec) entity.Holdings
}

// PortfolioAggregator values resolved holdings against a price table.
type PortfolioAggregator interface {
	Aggregate(holdings entity.Holdings, prices entity.PriceTable) (*entity.WalletPortfolio, error)
}

// PortfolioService defines the interface for fetching wallet portfolio information.
type PortfolioService interface {
	// GetPortfolio values the wallet. A non-nil portfolio is returned together with an error wrapping
	// entity.ErrUnpricedToken when some entries could not be priced.
	GetPortfolio(ctx context.Context, wallet common.Address) (*entity.WalletPortfolio, error)
}
