package service

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"portfolio_tracker/internal/domain/entity"
)

func newTestPortfolioService(chain *fakeChain, catalogue staticCatalogue) *PortfolioServiceImpl {
	return NewPortfolioService(
		catalogue,
		newTestBalanceResolver(chain),
		newTestPriceResolver(chain, PriceOverride{Token: poof, Reference: celo}),
		NewPortfolioAggregator(),
		zap.NewNop(),
	)
}

func TestGetPortfolio_EmptyWallet(t *testing.T) {
	chain := newFakeChain()
	portfolio, err := newTestPortfolioService(chain, staticCatalogue{}).GetPortfolio(context.Background(), wallet)
	require.NoError(t, err)
	require.True(t, portfolio.TotalValueUSD.IsZero())
	require.Empty(t, portfolio.TokenBalances)
	require.Empty(t, portfolio.PooledPositions)
	require.Empty(t, portfolio.Failures)
}

func TestGetPortfolio_FullValuation(t *testing.T) {
	chain, spec := twoLevelChain()
	chain.setBalance(mcUSD, wallet, e18(10))
	chain.setBalance(cUSD, wallet, e18(5))
	chain.lockedTotal = e18(2)

	portfolio, err := newTestPortfolioService(chain, staticCatalogue{chains: []entity.StakingChainSpec{spec}}).
		GetPortfolio(context.Background(), wallet)
	require.NoError(t, err)
	require.Len(t, portfolio.TokenBalances, 2)
	require.Len(t, portfolio.PooledPositions, 1)
	require.NotNil(t, portfolio.LockedPosition)
	require.Empty(t, portfolio.Failures)

	// CELO is priced through the farm's own CELO/mcUSD pair, 1000 mcUSD against 500 CELO less the swap fee.
	celoPrice := portfolio.PooledPositions[0].USDValue.Decimal.Sub(price("250")).Div(price("125"))
	requireClose(t, "1.994", celoPrice)

	// 10 + 5 + 2 × price(CELO) + 125 × price(CELO) + 250
	expected := price("265").Add(celoPrice.Mul(price("127")))
	requireClose(t, expected.String(), portfolio.TotalValueUSD)
}

func TestGetPortfolio_PartialFailures(t *testing.T) {
	chain, spec := twoLevelChain()
	chain.setBalance(ube, wallet, e18(3))
	chain.setBalance(mcUSD, wallet, e18(1))
	chain.failing[celo] = true

	catalogue := staticCatalogue{
		chains: []entity.StakingChainSpec{spec},
		err:    errors.New("pool manager unavailable"),
	}
	portfolio, err := newTestPortfolioService(chain, catalogue).GetPortfolio(context.Background(), wallet)
	require.ErrorIs(t, err, entity.ErrUnpricedToken)
	require.NotNil(t, portfolio)

	kinds := map[string]entity.FailureKind{}
	for _, failure := range portfolio.Failures {
		kinds[failure.Subject] = failure.Kind
		require.Equal(t, wallet.Hex(), failure.WalletAddress)
	}
	require.Equal(t, entity.FailureTransport, kinds["pool catalogue"])
	require.Equal(t, entity.FailureTransport, kinds["CELO"])
	require.Equal(t, entity.FailureUnpriced, kinds["UBE"])

	// mcUSD is pinned; the pool still values since the pair itself is readable.
	require.Len(t, portfolio.TokenBalances, 2)
	require.True(t, portfolio.TokenBalances[1].Unpriced)
	require.False(t, portfolio.TokenBalances[0].Unpriced)
}

// feeRate is 997·reserveIn / (1000·reserveOut + 997) at the resolver's precision.
func feeRate(reserveIn, reserveOut *big.Int) decimal.Decimal {
	num := new(big.Int).Mul(big.NewInt(997), reserveIn)
	den := new(big.Int).Add(new(big.Int).Mul(big.NewInt(1000), reserveOut), big.NewInt(997))
	return decimal.NewFromBigInt(num, 0).DivRound(decimal.NewFromBigInt(den, 0), 36)
}

func TestGetPortfolio_FailedBalanceLeftOutOfTotal(t *testing.T) {
	chain := newFakeChain()
	for _, token := range []common.Address{celo, mcUSD, cUSD, poof, ube} {
		chain.setBalance(token, wallet, e18(1))
	}
	chain.failing[poof] = true
	chain.addPair(addr(0xE0), celo, mcUSD, e18(1000), e18(2000))
	chain.addPair(addr(0xE1), ube, cUSD, e18(1000), e18(500))

	portfolio, err := newTestPortfolioService(chain, staticCatalogue{}).GetPortfolio(context.Background(), wallet)
	require.NoError(t, err)
	require.Len(t, portfolio.TokenBalances, 4)
	require.Len(t, portfolio.Failures, 1)
	require.Equal(t, "POOF", portfolio.Failures[0].Subject)
	require.Equal(t, entity.FailureTransport, portfolio.Failures[0].Kind)

	// 1 CELO + 1 mcUSD + 1 cUSD + 1 UBE; POOF is not valued.
	celoPrice := feeRate(e18(2000), e18(1000))
	ubePrice := feeRate(e18(500), e18(1000))
	expected := decimal.NewFromInt(2).Add(celoPrice).Add(ubePrice)
	requireDecimal(t, expected.String(), portfolio.TotalValueUSD)
	requireClose(t, "4.4925", portfolio.TotalValueUSD)
}

func TestGetPortfolio_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestPortfolioService(newFakeChain(), staticCatalogue{}).GetPortfolio(ctx, common.Address{})
	require.ErrorIs(t, err, context.Canceled)
}
