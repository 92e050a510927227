package service

import (
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/domain/entity"
)

var _ port.PortfolioAggregator = PortfolioAggregator{}

// PortfolioAggregator values holdings against a price table. It has no state.
type PortfolioAggregator struct{}

// NewPortfolioAggregator creates a PortfolioAggregator.
func NewPortfolioAggregator() PortfolioAggregator {
	return PortfolioAggregator{}
}

// Aggregate values every entry of holdings. Entries whose price is missing are flagged Unpriced, left out
// of the total and reported; the portfolio is returned together with an error wrapping
// entity.ErrUnpricedToken in that case.
func (PortfolioAggregator) Aggregate(holdings entity.Holdings, prices entity.PriceTable) (*entity.WalletPortfolio, error) {
	wallet := holdings.WalletAddress.Hex()
	portfolio := &entity.WalletPortfolio{
		WalletAddress:   wallet,
		TokenBalances:   make([]entity.TokenBalance, 0, len(holdings.TokenBalances)),
		PooledPositions: make([]entity.PooledPosition, 0, len(holdings.PooledPositions)),
		Failures:        append([]entity.PortfolioError(nil), holdings.Failures...),
	}
	missing := make(map[string]struct{})
	unpriced := func(subject, address string, symbols ...string) {
		for _, symbol := range symbols {
			missing[symbol] = struct{}{}
		}
		portfolio.Failures = append(portfolio.Failures, entity.PortfolioError{
			WalletAddress: wallet,
			Kind:          entity.FailureUnpriced,
			Subject:       subject,
			Address:       address,
			Message:       fmt.Sprintf("price unavailable for %s", strings.Join(symbols, ", ")),
		})
	}

	// Raw-scaled sum of token balances and the locked position, normalised once at the end.
	rawSum := decimal.Zero
	poolSum := decimal.Zero

	for _, balance := range holdings.TokenBalances {
		price, ok := prices.Lookup(balance.Token.Symbol)
		if !ok {
			balance.Unpriced = true
			balance.USDValue = decimal.NullDecimal{}
			unpriced(balance.Token.Symbol, balance.Token.Address.Hex(), balance.Token.Symbol)
			portfolio.TokenBalances = append(portfolio.TokenBalances, balance)
			continue
		}
		value := rawValue(balance.RawAmount, price)
		balance.Unpriced = false
		balance.USDValue = decimal.NewNullDecimal(value)
		rawSum = rawSum.Add(value)
		portfolio.TokenBalances = append(portfolio.TokenBalances, balance)
	}

	for _, position := range holdings.PooledPositions {
		value := decimal.Zero
		var absent []string
		for _, symbol := range position.Symbols() {
			price, ok := prices.Lookup(symbol)
			if !ok {
				absent = append(absent, symbol)
				continue
			}
			value = value.Add(position.Balances[symbol].Mul(price))
		}
		if len(absent) > 0 {
			position.Unpriced = true
			position.USDValue = decimal.NullDecimal{}
			unpriced(position.Name, "", absent...)
		} else {
			position.Unpriced = false
			position.USDValue = decimal.NewNullDecimal(value)
			poolSum = poolSum.Add(value)
		}
		portfolio.PooledPositions = append(portfolio.PooledPositions, position)
	}

	if holdings.LockedPosition != nil {
		locked := *holdings.LockedPosition
		price, ok := prices.Lookup(locked.Token.Symbol)
		if ok {
			value := rawValue(locked.Total, price)
			locked.Unpriced = false
			locked.USDValue = decimal.NewNullDecimal(value)
			locked.NonVotingUSDValue = decimal.NewNullDecimal(rawValue(locked.NonVoting, price))
			rawSum = rawSum.Add(value)
		} else {
			locked.Unpriced = true
			locked.USDValue = decimal.NullDecimal{}
			locked.NonVotingUSDValue = decimal.NullDecimal{}
			unpriced("locked "+locked.Token.Symbol, locked.Token.Address.Hex(), locked.Token.Symbol)
		}
		portfolio.LockedPosition = &locked
	}

	portfolio.TotalValueUSD = rawSum.Shift(-entity.BaseUnitDecimals).Add(poolSum)

	if len(missing) > 0 {
		symbols := make([]string, 0, len(missing))
		for symbol := range missing {
			symbols = append(symbols, symbol)
		}
		sort.Strings(symbols)
		return portfolio, fmt.Errorf("%w: %s", entity.ErrUnpricedToken, strings.Join(symbols, ", "))
	}
	return portfolio, nil
}

func rawValue(amount *big.Int, price decimal.Decimal) decimal.Decimal {
	if amount == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(amount, 0).Mul(price)
}
