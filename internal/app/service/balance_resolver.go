package service

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/domain/entity"
	"portfolio_tracker/internal/pkg/utils"
)

var _ port.BalanceResolver = (*BalanceResolver)(nil)

// BalanceResolverConfig holds the valuation parameters of a BalanceResolver.
type BalanceResolverConfig struct {
	// DustThreshold is exclusive: a balance must be strictly greater to be kept.
	DustThreshold *big.Int
	// LockedGold and LockedToken are zero when locked positions are not tracked.
	LockedGold    common.Address
	LockedToken   common.Address
	MaxConcurrent int
}

// BalanceResolver reads what a wallet owns: registry token balances, pooled positions reached through
// staking chains, and the locked governance token.
type BalanceResolver struct {
	chain    port.ChainReader
	locked   port.LockedGoldReader
	registry port.TokenRegistry
	cfg      BalanceResolverConfig
	logger   *zap.Logger
}

// NewBalanceResolver creates a BalanceResolver. locked may be nil.
func NewBalanceResolver(
	chain port.ChainReader,
	locked port.LockedGoldReader,
	registry port.TokenRegistry,
	cfg BalanceResolverConfig,
	logger *zap.Logger,
) *BalanceResolver {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	if cfg.DustThreshold == nil {
		cfg.DustThreshold = new(big.Int)
	}
	return &BalanceResolver{
		chain:    chain,
		locked:   locked,
		registry: registry,
		cfg:      cfg,
		logger:   logger.Named("BalanceResolver"),
	}
}

// Resolve runs the token, pooled and locked passes concurrently.
func (r *BalanceResolver) Resolve(ctx context.Context, wallet common.Address, chains []entity.StakingChainSpec) entity.Holdings {
	holdings := entity.Holdings{WalletAddress: wallet}

	var (
		tokenFailures  []entity.PortfolioError
		poolFailures   []entity.PortfolioError
		lockedFailures []entity.PortfolioError
	)

	var eg errgroup.Group
	eg.Go(func() error {
		holdings.TokenBalances, tokenFailures = r.ResolveTokenBalances(ctx, wallet, r.registry.Tokens())
		return nil
	})
	eg.Go(func() error {
		holdings.PooledPositions, poolFailures = r.ResolvePooledPositions(ctx, wallet, chains)
		return nil
	})
	eg.Go(func() error {
		locked, err := r.ResolveLockedPosition(ctx, wallet)
		if err != nil {
			lockedFailures = append(lockedFailures, entity.PortfolioError{
				WalletAddress: wallet.Hex(),
				Kind:          entity.FailureTransport,
				Subject:       "locked position",
				Address:       r.cfg.LockedGold.Hex(),
				Message:       err.Error(),
			})
			return nil
		}
		holdings.LockedPosition = locked
		return nil
	})
	_ = eg.Wait()

	holdings.Failures = make([]entity.PortfolioError, 0, len(tokenFailures)+len(poolFailures)+len(lockedFailures))
	holdings.Failures = append(holdings.Failures, tokenFailures...)
	holdings.Failures = append(holdings.Failures, poolFailures...)
	holdings.Failures = append(holdings.Failures, lockedFailures...)
	return holdings
}

// ResolveTokenBalances reads the wallet balance of every token and keeps the ones above the dust threshold,
// in the order of tokens.
func (r *BalanceResolver) ResolveTokenBalances(ctx context.Context, wallet common.Address, tokens []entity.TokenInfo) ([]entity.TokenBalance, []entity.PortfolioError) {
	balances := make([]*big.Int, len(tokens))
	errs := make([]error, len(tokens))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(r.cfg.MaxConcurrent)
	for i, token := range tokens {
		i, token := i, token
		eg.Go(func() error {
			balances[i], errs[i] = r.chain.ReadBalance(egCtx, token.Address, wallet)
			return nil
		})
	}
	_ = eg.Wait()

	result := make([]entity.TokenBalance, 0, len(tokens))
	var failures []entity.PortfolioError
	for i, token := range tokens {
		if errs[i] != nil {
			r.logger.Warn("Failed to read token balance",
				zap.String("wallet", wallet.Hex()),
				zap.String("token", token.Symbol),
				zap.Error(errs[i]))
			failures = append(failures, entity.PortfolioError{
				WalletAddress: wallet.Hex(),
				Kind:          entity.FailureTransport,
				Subject:       token.Symbol,
				Address:       token.Address.Hex(),
				Message:       errs[i].Error(),
			})
			continue
		}
		if balances[i] == nil || balances[i].Cmp(r.cfg.DustThreshold) <= 0 {
			continue
		}
		result = append(result, entity.TokenBalance{
			Token:     token,
			RawAmount: balances[i],
			Amount:    utils.FormatBigInt(balances[i], token.Decimals),
		})
	}
	return result, failures
}

// ResolvePooledPositions resolves the wallet's claim on the base pool of every chain.
// Chains the wallet has no stake in are omitted without error.
func (r *BalanceResolver) ResolvePooledPositions(ctx context.Context, wallet common.Address, chains []entity.StakingChainSpec) ([]entity.PooledPosition, []entity.PortfolioError) {
	positions := make([]*entity.PooledPosition, len(chains))
	errs := make([]error, len(chains))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(r.cfg.MaxConcurrent)
	for i, chain := range chains {
		i, chain := i, chain
		eg.Go(func() error {
			positions[i], errs[i] = r.resolvePooledPosition(egCtx, wallet, chain)
			return nil
		})
	}
	_ = eg.Wait()

	result := make([]entity.PooledPosition, 0, len(chains))
	var failures []entity.PortfolioError
	for i, chain := range chains {
		if errs[i] != nil {
			r.logger.Warn("Failed to resolve pooled position",
				zap.String("wallet", wallet.Hex()),
				zap.String("chain", chain.Name),
				zap.Error(errs[i]))
			failures = append(failures, entity.PortfolioError{
				WalletAddress: wallet.Hex(),
				Kind:          entity.FailureTransport,
				Subject:       chain.Name,
				Address:       chain.Pool().Hex(),
				Message:       errs[i].Error(),
			})
			continue
		}
		if positions[i] != nil {
			result = append(result, *positions[i])
		}
	}
	return result, failures
}

// pairState is the base pool read together with the supplies of a chain.
type pairState struct {
	token0, token1     common.Address
	reserve0, reserve1 *big.Int
}

func (r *BalanceResolver) resolvePooledPosition(ctx context.Context, wallet common.Address, chain entity.StakingChainSpec) (*entity.PooledPosition, error) {
	if len(chain.Contracts) == 0 {
		return nil, nil
	}
	levels := len(chain.Contracts)

	outer, err := r.chain.ReadBalance(ctx, chain.Contracts[0], wallet)
	if err != nil {
		return nil, fmt.Errorf("balance in %s: %w", chain.Contracts[0].Hex(), err)
	}
	if utils.IsZero(outer) {
		return nil, nil
	}

	holdings := make([]*big.Int, levels)
	supplies := make([]*big.Int, levels)
	holdings[0] = outer
	var pair pairState

	eg, egCtx := errgroup.WithContext(ctx)
	for i, contract := range chain.Contracts {
		i, contract := i, contract
		eg.Go(func() error {
			supply, err := r.chain.ReadTotalSupply(egCtx, contract)
			if err != nil {
				return fmt.Errorf("total supply of %s: %w", contract.Hex(), err)
			}
			supplies[i] = supply
			return nil
		})
		if i == 0 {
			continue
		}
		holder := chain.Contracts[i-1]
		eg.Go(func() error {
			held, err := r.chain.ReadBalance(egCtx, contract, holder)
			if err != nil {
				return fmt.Errorf("balance of %s in %s: %w", holder.Hex(), contract.Hex(), err)
			}
			holdings[i] = held
			return nil
		})
	}
	pool := chain.Pool()
	eg.Go(func() error {
		var err error
		pair.token0, err = r.chain.ReadToken0(egCtx, pool)
		return err
	})
	eg.Go(func() error {
		var err error
		pair.token1, err = r.chain.ReadToken1(egCtx, pool)
		return err
	})
	eg.Go(func() error {
		var err error
		pair.reserve0, pair.reserve1, err = r.chain.ReadReserves(egCtx, pool)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	// share = Π holdings[i] / Π supplies[i], applied to the reserves with a single division.
	numerator := big.NewInt(1)
	denominator := big.NewInt(1)
	for i := 0; i < levels; i++ {
		if utils.IsZero(supplies[i]) || utils.IsZero(holdings[i]) {
			return nil, nil
		}
		numerator.Mul(numerator, holdings[i])
		denominator.Mul(denominator, supplies[i])
	}

	token0, ok0 := r.registry.Lookup(pair.token0)
	token1, ok1 := r.registry.Lookup(pair.token1)
	if !ok0 || !ok1 {
		r.logger.Debug("Skipping pool with unregistered token",
			zap.String("chain", chain.Name),
			zap.String("token0", pair.token0.Hex()),
			zap.String("token1", pair.token1.Hex()))
		return nil, nil
	}

	amount0 := shareOf(pair.reserve0, numerator, denominator)
	amount1 := shareOf(pair.reserve1, numerator, denominator)
	if amount0.IsZero() || amount1.IsZero() {
		return nil, nil
	}

	balances := map[string]decimal.Decimal{token0.Symbol: amount0}
	balances[token1.Symbol] = balances[token1.Symbol].Add(amount1)
	return &entity.PooledPosition{
		Name:     chain.Name,
		Tokens:   [2]entity.TokenInfo{token0, token1},
		Balances: balances,
	}, nil
}

// shareOf returns reserve × numerator / denominator, normalised by the base-unit factor.
func shareOf(reserve, numerator, denominator *big.Int) decimal.Decimal {
	if utils.IsZero(reserve) {
		return decimal.Zero
	}
	scaled := new(big.Int).Mul(reserve, numerator)
	return utils.Normalize(utils.Ratio(scaled, denominator), entity.BaseUnitDecimals)
}

// ResolveLockedPosition reads the wallet's locked governance token. It returns nil when locked positions
// are not tracked, the locked token is not in the registry, or nothing is locked.
func (r *BalanceResolver) ResolveLockedPosition(ctx context.Context, wallet common.Address) (*entity.LockedPosition, error) {
	if r.locked == nil || r.cfg.LockedGold == (common.Address{}) {
		return nil, nil
	}
	token, ok := r.registry.Lookup(r.cfg.LockedToken)
	if !ok {
		r.logger.Debug("Locked token is not registered", zap.String("token", r.cfg.LockedToken.Hex()))
		return nil, nil
	}

	var total, nonVoting *big.Int
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		total, err = r.locked.ReadTotalLocked(egCtx, r.cfg.LockedGold, wallet)
		return err
	})
	eg.Go(func() error {
		var err error
		nonVoting, err = r.locked.ReadNonVotingLocked(egCtx, r.cfg.LockedGold, wallet)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("locked position of %s: %w", wallet.Hex(), err)
	}

	if utils.IsZero(total) && utils.IsZero(nonVoting) {
		return nil, nil
	}
	if total == nil {
		total = new(big.Int)
	}
	if nonVoting == nil {
		nonVoting = new(big.Int)
	}
	return &entity.LockedPosition{Token: token, Total: total, NonVoting: nonVoting}, nil
}
