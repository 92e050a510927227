package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/domain/entity"
)

const (
	poolManagerChainsKey = "pool_manager_chains"
	// maxManagedPools bounds the enumeration of a pool manager.
	maxManagedPools = 10_000
)

var _ port.PoolCatalogue = (*poolCatalogue)(nil)

type poolCatalogue struct {
	reader        port.PoolManagerReader
	manager       common.Address
	extra         []entity.StakingChainSpec
	chainsCache   *cache.Cache
	maxConcurrent int
	logger        *zap.Logger
}

// NewPoolCatalogue combines the pools registered in manager with the statically configured chains.
// A zero manager address disables enumeration.
func NewPoolCatalogue(
	reader port.PoolManagerReader,
	manager common.Address,
	extra []entity.StakingChainSpec,
	ttl time.Duration,
	cleanupInterval time.Duration,
	maxConcurrent int,
	logger *zap.Logger,
) port.PoolCatalogue {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &poolCatalogue{
		reader:        reader,
		manager:       manager,
		extra:         extra,
		chainsCache:   cache.New(ttl, cleanupInterval),
		maxConcurrent: maxConcurrent,
		logger:        logger.Named("PoolCatalogue"),
	}
}

// StakingChains returns the enumerated pool manager chains followed by the configured ones. Enumeration
// errors are returned together with whatever chains could be resolved.
func (p *poolCatalogue) StakingChains(ctx context.Context) ([]entity.StakingChainSpec, error) {
	var (
		chains  []entity.StakingChainSpec
		enumErr error
	)
	if p.manager != (common.Address{}) {
		chains, enumErr = p.managedChains(ctx)
	}
	chains = append(chains, p.extra...)
	return chains, enumErr
}

func (p *poolCatalogue) managedChains(ctx context.Context) ([]entity.StakingChainSpec, error) {
	if cached, found := p.chainsCache.Get(poolManagerChainsKey); found {
		if chains, ok := cached.([]entity.StakingChainSpec); ok {
			p.logger.Debug("Returning cached pool manager chains", zap.Int("count", len(chains)))
			return append([]entity.StakingChainSpec(nil), chains...), nil
		}
	}

	count, err := p.reader.ReadPoolsCount(ctx, p.manager)
	if err != nil {
		p.logger.Error("Failed to read pools count", zap.String("manager", p.manager.Hex()), zap.Error(err))
		return nil, fmt.Errorf("failed to enumerate pool manager %s: %w", p.manager.Hex(), err)
	}

	if count > maxManagedPools {
		p.logger.Error("Pool count out of range", zap.String("manager", p.manager.Hex()), zap.Uint64("count", count))
		return nil, fmt.Errorf("%w: %s reports %d pools, limit %d", entity.ErrPoolCountInvalid, p.manager.Hex(), count, maxManagedPools)
	}

	slots := make([]*entity.StakingChainSpec, count)
	errs := make([]error, count)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(p.maxConcurrent)
	for i := uint64(0); i < count; i++ {
		index := i
		eg.Go(func() error {
			stakingAddress, err := p.reader.ReadPoolByIndex(egCtx, p.manager, index)
			if err != nil {
				errs[index] = fmt.Errorf("pool %d: %w", index, err)
				return nil
			}
			info, err := p.reader.ReadPoolInfo(egCtx, p.manager, stakingAddress)
			if err != nil {
				errs[index] = fmt.Errorf("pool %d (%s): %w", index, stakingAddress.Hex(), err)
				return nil
			}
			if info.PoolAddress == (common.Address{}) || info.StakingToken == (common.Address{}) {
				return nil
			}
			slots[index] = &entity.StakingChainSpec{
				Name:      fmt.Sprintf("pool-%d", index),
				Contracts: []common.Address{info.PoolAddress, info.StakingToken},
			}
			return nil
		})
	}
	_ = eg.Wait()

	chains := make([]entity.StakingChainSpec, 0, count)
	for _, chain := range slots {
		if chain != nil {
			chains = append(chains, *chain)
		}
	}

	if err := errors.Join(errs...); err != nil {
		p.logger.Warn("Pool manager enumeration incomplete", zap.Int("resolved", len(chains)), zap.Error(err))
		return chains, fmt.Errorf("failed to enumerate pool manager %s: %w", p.manager.Hex(), err)
	}

	p.chainsCache.SetDefault(poolManagerChainsKey, chains)
	p.logger.Info("Pool manager chains loaded", zap.Int("count", len(chains)))
	return append([]entity.StakingChainSpec(nil), chains...), nil
}
