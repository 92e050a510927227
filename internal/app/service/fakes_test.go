package service

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"portfolio_tracker/internal/domain/entity"
)

func addr(n int64) common.Address {
	return common.BigToAddress(big.NewInt(n))
}

// e18 returns n × 10^18.
func e18(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

type pairData struct {
	token0, token1     common.Address
	reserve0, reserve1 *big.Int
}

// fakeChain is an in-memory chain. Set it up before use; reads are safe for concurrent use.
type fakeChain struct {
	balances      map[common.Address]map[common.Address]*big.Int
	supplies      map[common.Address]*big.Int
	pairs         map[common.Address]pairData
	factoryPairs  map[string]common.Address
	failing       map[common.Address]bool
	lockedTotal   *big.Int
	lockedNonVote *big.Int

	mu         sync.Mutex
	pairLookup map[string]int
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		balances:     make(map[common.Address]map[common.Address]*big.Int),
		supplies:     make(map[common.Address]*big.Int),
		pairs:        make(map[common.Address]pairData),
		factoryPairs: make(map[string]common.Address),
		failing:      make(map[common.Address]bool),
		pairLookup:   make(map[string]int),
	}
}

func (f *fakeChain) setBalance(contract, owner common.Address, amount *big.Int) {
	if f.balances[contract] == nil {
		f.balances[contract] = make(map[common.Address]*big.Int)
	}
	f.balances[contract][owner] = amount
}

// addPair registers a factory pair of a and b with reserves given in a, b order.
func (f *fakeChain) addPair(pair, a, b common.Address, reserveA, reserveB *big.Int) {
	data := pairData{token0: a, token1: b, reserve0: reserveA, reserve1: reserveB}
	if pairCacheKey(a, b) != a.Hex()+"_"+b.Hex() {
		data = pairData{token0: b, token1: a, reserve0: reserveB, reserve1: reserveA}
	}
	f.pairs[pair] = data
	f.factoryPairs[pairCacheKey(a, b)] = pair
}

func (f *fakeChain) pairLookups(a, b common.Address) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pairLookup[pairCacheKey(a, b)]
}

func (f *fakeChain) fail(contract common.Address) error {
	if f.failing[contract] {
		return fmt.Errorf("%w: %s: connection reset", entity.ErrTransport, contract.Hex())
	}
	return nil
}

func (f *fakeChain) ReadBalance(_ context.Context, token common.Address, owner common.Address) (*big.Int, error) {
	if err := f.fail(token); err != nil {
		return nil, err
	}
	if amount, ok := f.balances[token][owner]; ok {
		return new(big.Int).Set(amount), nil
	}
	return new(big.Int), nil
}

func (f *fakeChain) ReadTotalSupply(_ context.Context, contract common.Address) (*big.Int, error) {
	if err := f.fail(contract); err != nil {
		return nil, err
	}
	if supply, ok := f.supplies[contract]; ok {
		return new(big.Int).Set(supply), nil
	}
	return new(big.Int), nil
}

func (f *fakeChain) ReadReserves(_ context.Context, pair common.Address) (*big.Int, *big.Int, error) {
	if err := f.fail(pair); err != nil {
		return nil, nil, err
	}
	data, ok := f.pairs[pair]
	if !ok {
		return new(big.Int), new(big.Int), nil
	}
	return data.reserve0, data.reserve1, nil
}

func (f *fakeChain) ReadToken0(_ context.Context, pair common.Address) (common.Address, error) {
	if err := f.fail(pair); err != nil {
		return common.Address{}, err
	}
	return f.pairs[pair].token0, nil
}

func (f *fakeChain) ReadToken1(_ context.Context, pair common.Address) (common.Address, error) {
	if err := f.fail(pair); err != nil {
		return common.Address{}, err
	}
	return f.pairs[pair].token1, nil
}

func (f *fakeChain) ReadPairAddress(_ context.Context, _ common.Address, tokenA common.Address, tokenB common.Address) (common.Address, error) {
	key := pairCacheKey(tokenA, tokenB)
	f.mu.Lock()
	f.pairLookup[key]++
	f.mu.Unlock()
	return f.factoryPairs[key], nil
}

func (f *fakeChain) ReadTotalLocked(_ context.Context, lockedGold common.Address, _ common.Address) (*big.Int, error) {
	if err := f.fail(lockedGold); err != nil {
		return nil, err
	}
	if f.lockedTotal == nil {
		return new(big.Int), nil
	}
	return f.lockedTotal, nil
}

func (f *fakeChain) ReadNonVotingLocked(_ context.Context, lockedGold common.Address, _ common.Address) (*big.Int, error) {
	if err := f.fail(lockedGold); err != nil {
		return nil, err
	}
	if f.lockedNonVote == nil {
		return new(big.Int), nil
	}
	return f.lockedNonVote, nil
}

// staticCatalogue returns fixed chains.
type staticCatalogue struct {
	chains []entity.StakingChainSpec
	err    error
}

func (c staticCatalogue) StakingChains(context.Context) ([]entity.StakingChainSpec, error) {
	return c.chains, c.err
}
