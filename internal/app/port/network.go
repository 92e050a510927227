package port

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ERC20Reader reads balances and supplies of ERC20-like contracts.
// Staking contracts and LP pairs expose the same two methods.
type ERC20Reader interface {
	ReadBalance(ctx context.Context, token common.Address, owner common.Address) (*big.Int, error)
	ReadTotalSupply(ctx context.Context, contract common.Address) (*big.Int, error)
}

// PairReader reads the state of a constant-product liquidity pool.
type PairReader interface {
	// ReadReserves returns the reserves ordered as token0, token1.
	ReadReserves(ctx context.Context, pair common.Address) (*big.Int, *big.Int, error)
	ReadToken0(ctx context.Context, pair common.Address) (common.Address, error)
	ReadToken1(ctx context.Context, pair common.Address) (common.Address, error)
}

// FactoryReader looks up liquidity pools created by a factory.
type FactoryReader interface {
	// ReadPairAddress returns the zero address when no pair exists.
	ReadPairAddress(ctx context.Context, factory common.Address, tokenA common.Address, tokenB common.Address) (common.Address, error)
}

// ChainReader executes read-only contract calls against a blockchain node.
// All amounts are raw integers in base units; every method may fail with entity.ErrTransport.
type ChainReader interface {
	ERC20Reader
	PairReader
	FactoryReader
}

// PoolInfo is a staking pool registered in a pool manager.
type PoolInfo struct {
	StakingToken common.Address
	PoolAddress  common.Address
}

// PoolManagerReader enumerates the staking pools registered in a pool manager contract.
type PoolManagerReader interface {
	ReadPoolsCount(ctx context.Context, manager common.Address) (uint64, error)
	ReadPoolByIndex(ctx context.Context, manager common.Address, index uint64) (common.Address, error)
	ReadPoolInfo(ctx context.Context, manager common.Address, stakingAddress common.Address) (PoolInfo, error)
}

// LockedGoldReader reads the locked governance token of an account.
type LockedGoldReader interface {
	ReadTotalLocked(ctx context.Context, lockedGold common.Address, account common.Address) (*big.Int, error)
	ReadNonVotingLocked(ctx context.Context, lockedGold common.Address, account common.Address) (*big.Int, error)
}
