package service

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"portfolio_tracker/internal/domain/entity"
)

func newTestPriceResolver(chain *fakeChain, overrides ...PriceOverride) *PriceResolver {
	return NewPriceResolver(chain, testRegistry(), PriceResolverConfig{
		Factory:         factory,
		PrimaryStable:   mcUSD,
		SecondaryStable: cUSD,
		StableSymbols:   []string{"cUSD", "mcUSD"},
		Overrides:       overrides,
		MaxConcurrent:   4,
	}, zap.NewNop())
}

func requireClose(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	diff := decimal.RequireFromString(expected).Sub(actual).Abs()
	require.True(t, diff.LessThan(decimal.RequireFromString("0.0001")), "expected ~%s, got %s", expected, actual)
}

func TestExchangeRate_Orientation(t *testing.T) {
	chain := newFakeChain()
	// poof > celo, so the pair stores CELO as token0: r0 = 1000 (CELO), r1 = 2000 (POOF).
	chain.addPair(addr(0xE0), poof, celo, decimal.NewFromInt(2000).BigInt(), decimal.NewFromInt(1000).BigInt())
	resolver := newTestPriceResolver(chain)

	poofInCelo, err := resolver.ExchangeRate(context.Background(), poof, celo)
	require.NoError(t, err)
	// 997·1000 / (1000·2000 + 997)
	expected := decimal.NewFromInt(997_000).DivRound(decimal.NewFromInt(2_000_997), 36)
	require.True(t, expected.Equal(poofInCelo), "got %s", poofInCelo)

	celoInPoof, err := resolver.ExchangeRate(context.Background(), celo, poof)
	require.NoError(t, err)
	inverted := decimal.NewFromInt(2_000_997).DivRound(decimal.NewFromInt(997_000), 36)
	require.True(t, inverted.Equal(celoInPoof), "got %s", celoInPoof)
	requireClose(t, "2.007", celoInPoof)
}

func TestExchangeRate_ZeroLiquidity(t *testing.T) {
	chain := newFakeChain()
	chain.addPair(addr(0xE0), ube, mcUSD, e18(0), e18(10))
	resolver := newTestPriceResolver(chain)

	_, err := resolver.ExchangeRate(context.Background(), celo, mcUSD)
	require.ErrorIs(t, err, entity.ErrZeroLiquidity)

	_, err = resolver.ExchangeRate(context.Background(), ube, mcUSD)
	require.ErrorIs(t, err, entity.ErrZeroLiquidity)
}

func TestPriceResolver_StablesPinned(t *testing.T) {
	chain := newFakeChain()
	table, failures := newTestPriceResolver(chain).Resolve(context.Background(), []common.Address{mcUSD, cUSD})
	require.Empty(t, failures)
	requireDecimal(t, "1", table["mcUSD"])
	requireDecimal(t, "1", table["cUSD"])
	require.Zero(t, chain.pairLookups(mcUSD, cUSD))
}

func TestPriceResolver_PrimaryStable(t *testing.T) {
	chain := newFakeChain()
	chain.addPair(addr(0xE0), celo, mcUSD, e18(1000), e18(2000))

	table, failures := newTestPriceResolver(chain).Resolve(context.Background(), []common.Address{celo})
	require.Empty(t, failures)
	requireClose(t, "1.994", table["CELO"])
	require.Zero(t, chain.pairLookups(celo, cUSD))
}

func TestPriceResolver_SecondaryStableFallback(t *testing.T) {
	t.Run("no primary pair", func(t *testing.T) {
		chain := newFakeChain()
		chain.addPair(addr(0xE1), ube, cUSD, e18(1000), e18(500))

		table, failures := newTestPriceResolver(chain).Resolve(context.Background(), []common.Address{ube})
		require.Empty(t, failures)
		requireClose(t, "0.4985", table["UBE"])
		require.Equal(t, 1, chain.pairLookups(ube, cUSD))
	})

	t.Run("empty primary pair", func(t *testing.T) {
		chain := newFakeChain()
		chain.addPair(addr(0xE0), ube, mcUSD, e18(0), e18(0))
		chain.addPair(addr(0xE1), ube, cUSD, e18(1000), e18(500))

		table, failures := newTestPriceResolver(chain).Resolve(context.Background(), []common.Address{ube})
		require.Empty(t, failures)
		requireClose(t, "0.4985", table["UBE"])
		require.Equal(t, 1, chain.pairLookups(ube, mcUSD))
		require.Equal(t, 1, chain.pairLookups(ube, cUSD))
	})
}

func TestPriceResolver_Unpriced(t *testing.T) {
	chain := newFakeChain()
	table, failures := newTestPriceResolver(chain).Resolve(context.Background(), []common.Address{ube})

	_, ok := table.Lookup("UBE")
	require.False(t, ok)
	require.Len(t, failures, 1)
	require.Equal(t, entity.FailureUnpriced, failures[0].Kind)
	require.Equal(t, "UBE", failures[0].Subject)
	require.Equal(t, 1, chain.pairLookups(ube, mcUSD))
	require.Equal(t, 1, chain.pairLookups(ube, cUSD))
}

func TestPriceResolver_TransportFailure(t *testing.T) {
	chain := newFakeChain()
	chain.addPair(addr(0xE0), celo, mcUSD, e18(1000), e18(2000))
	chain.addPair(addr(0xE1), ube, mcUSD, e18(1000), e18(1000))
	chain.failing[addr(0xE1)] = true

	table, failures := newTestPriceResolver(chain).Resolve(context.Background(), []common.Address{celo, ube})
	require.Contains(t, table, "CELO")
	require.NotContains(t, table, "UBE")
	require.Len(t, failures, 1)
	require.Equal(t, entity.FailureTransport, failures[0].Kind)
	// Transport errors do not fall back to the secondary stable.
	require.Zero(t, chain.pairLookups(ube, cUSD))
}

func TestPriceResolver_UnknownTokenSkipped(t *testing.T) {
	chain := newFakeChain()
	table, failures := newTestPriceResolver(chain).Resolve(context.Background(), []common.Address{moo})
	require.Empty(t, table)
	require.Empty(t, failures)
}

func TestPriceResolver_Override(t *testing.T) {
	setup := func() *fakeChain {
		chain := newFakeChain()
		chain.addPair(addr(0xE0), celo, mcUSD, e18(1000), e18(2000))
		chain.addPair(addr(0xE2), poof, celo, e18(1000), e18(100))
		return chain
	}
	override := PriceOverride{Token: poof, Reference: celo}

	t.Run("target requested", func(t *testing.T) {
		chain := setup()
		resolver := newTestPriceResolver(chain, override)

		table, failures := resolver.Resolve(context.Background(), []common.Address{poof})
		require.Empty(t, failures)
		require.Contains(t, table, "CELO")

		rate, err := resolver.ExchangeRate(context.Background(), poof, celo)
		require.NoError(t, err)
		require.True(t, rate.Mul(table["CELO"]).Equal(table["POOF"]))
		requireClose(t, "0.1988", table["POOF"])
		// The target is never priced directly.
		require.Zero(t, chain.pairLookups(poof, mcUSD))
	})

	t.Run("target not requested", func(t *testing.T) {
		chain := setup()
		table, failures := newTestPriceResolver(chain, override).Resolve(context.Background(), []common.Address{celo})
		require.Empty(t, failures)
		require.NotContains(t, table, "POOF")
		require.Zero(t, chain.pairLookups(poof, celo))
	})

	t.Run("reference unpriced", func(t *testing.T) {
		chain := newFakeChain()
		chain.addPair(addr(0xE2), poof, celo, e18(1000), e18(100))
		table, failures := newTestPriceResolver(chain, override).Resolve(context.Background(), []common.Address{poof})
		require.NotContains(t, table, "POOF")
		require.Len(t, failures, 1)
		require.Equal(t, "POOF", failures[0].Subject)
		require.Equal(t, entity.FailureUnpriced, failures[0].Kind)
	})
}

func TestPriceResolver_PairAddressCache(t *testing.T) {
	chain := newFakeChain()
	chain.addPair(addr(0xE0), celo, mcUSD, e18(1000), e18(2000))
	resolver := newTestPriceResolver(chain)

	for i := 0; i < 3; i++ {
		_, failures := resolver.Resolve(context.Background(), []common.Address{celo, ube})
		require.Len(t, failures, 1)
	}
	require.Equal(t, 1, chain.pairLookups(celo, mcUSD))
	// Missing pairs are looked up again on every request.
	require.Equal(t, 3, chain.pairLookups(ube, mcUSD))
}
