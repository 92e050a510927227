package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/domain/entity"
	"portfolio_tracker/internal/pkg/metrics"
)

const (
	outcomeComplete = "complete"
	outcomePartial  = "partial"
	outcomeFailed   = "failed"
)

var _ port.PortfolioService = (*PortfolioServiceImpl)(nil)

// PortfolioServiceImpl implements port.PortfolioService.
type PortfolioServiceImpl struct {
	catalogue  port.PoolCatalogue
	balances   port.BalanceResolver
	prices     port.PriceResolver
	aggregator port.PortfolioAggregator
	logger     *zap.Logger
}

// NewPortfolioService creates a new instance of PortfolioServiceImpl.
func NewPortfolioService(
	catalogue port.PoolCatalogue,
	balances port.BalanceResolver,
	prices port.PriceResolver,
	aggregator port.PortfolioAggregator,
	logger *zap.Logger,
) *PortfolioServiceImpl {
	return &PortfolioServiceImpl{
		catalogue:  catalogue,
		balances:   balances,
		prices:     prices,
		aggregator: aggregator,
		logger:     logger.Named("PortfolioService"),
	}
}

// GetPortfolio resolves, prices and values everything wallet owns.
func (s *PortfolioServiceImpl) GetPortfolio(ctx context.Context, wallet common.Address) (*entity.WalletPortfolio, error) {
	start := time.Now()
	s.logger.Debug("Fetching portfolio", zap.String("wallet", wallet.Hex()))

	var failures []entity.PortfolioError
	chains, err := s.catalogue.StakingChains(ctx)
	if err != nil {
		s.logger.Warn("Pool catalogue incomplete", zap.Error(err))
		failures = append(failures, entity.PortfolioError{
			WalletAddress: wallet.Hex(),
			Kind:          entity.FailureTransport,
			Subject:       "pool catalogue",
			Message:       err.Error(),
		})
	}

	holdings := s.balances.Resolve(ctx, wallet, chains)
	if err := ctx.Err(); err != nil {
		metrics.ValuationsTotal.WithLabelValues(outcomeFailed).Inc()
		return nil, fmt.Errorf("portfolio of %s: %w", wallet.Hex(), err)
	}

	prices, priceFailures := s.prices.Resolve(ctx, referencedTokens(holdings))
	if err := ctx.Err(); err != nil {
		metrics.ValuationsTotal.WithLabelValues(outcomeFailed).Inc()
		return nil, fmt.Errorf("portfolio of %s: %w", wallet.Hex(), err)
	}

	// Unpriced tokens are reported per entry by the aggregator; only transport failures are kept here.
	for _, failure := range priceFailures {
		if failure.Kind != entity.FailureTransport {
			continue
		}
		failure.WalletAddress = wallet.Hex()
		failures = append(failures, failure)
	}
	holdings.Failures = append(failures, holdings.Failures...)

	portfolio, err := s.aggregator.Aggregate(holdings, prices)
	if err != nil && !errors.Is(err, entity.ErrUnpricedToken) {
		metrics.ValuationsTotal.WithLabelValues(outcomeFailed).Inc()
		return nil, fmt.Errorf("failed to aggregate portfolio of %s: %w", wallet.Hex(), err)
	}

	unpriced := 0
	for _, failure := range portfolio.Failures {
		if failure.Kind == entity.FailureUnpriced {
			unpriced++
		}
	}
	metrics.UnpricedTokensTotal.Add(float64(unpriced))
	if len(portfolio.Failures) == 0 {
		metrics.ValuationsTotal.WithLabelValues(outcomeComplete).Inc()
	} else {
		metrics.ValuationsTotal.WithLabelValues(outcomePartial).Inc()
	}

	s.logger.Info("Portfolio valued",
		zap.String("wallet", wallet.Hex()),
		zap.String("totalValueUSD", portfolio.TotalValueUSD.StringFixed(2)),
		zap.Int("tokens", len(portfolio.TokenBalances)),
		zap.Int("pools", len(portfolio.PooledPositions)),
		zap.Bool("locked", portfolio.LockedPosition != nil),
		zap.Int("failures", len(portfolio.Failures)),
		zap.Duration("elapsed", time.Since(start)))

	return portfolio, err
}

// referencedTokens lists every token address the valuation of holdings needs a price for.
func referencedTokens(holdings entity.Holdings) []common.Address {
	addresses := make([]common.Address, 0, len(holdings.TokenBalances)+2*len(holdings.PooledPositions)+1)
	for _, balance := range holdings.TokenBalances {
		addresses = append(addresses, balance.Token.Address)
	}
	for _, position := range holdings.PooledPositions {
		addresses = append(addresses, position.Tokens[0].Address, position.Tokens[1].Address)
	}
	if holdings.LockedPosition != nil {
		addresses = append(addresses, holdings.LockedPosition.Token.Address)
	}
	return addresses
}
