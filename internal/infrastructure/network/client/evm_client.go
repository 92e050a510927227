package client

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/domain/entity"
	"portfolio_tracker/internal/infrastructure/configloader"
	"portfolio_tracker/internal/pkg/metrics"
)

var (
	_ port.ChainReader       = (*EVMChainReader)(nil)
	_ port.PoolManagerReader = (*EVMChainReader)(nil)
	_ port.LockedGoldReader  = (*EVMChainReader)(nil)
)

// EVMChainReader implements port.ChainReader, port.PoolManagerReader and port.LockedGoldReader
// with eth_call against the latest block.
type EVMChainReader struct {
	caller         ethereum.ContractCaller
	limiter        *rate.Limiter
	rpcCallTimeout time.Duration
	closeFn        func()
}

// NewEVMChainReader dials the primary RPC URL and then each fallback until one connects.
func NewEVMChainReader(cfg configloader.ChainConfig, logger *zap.Logger) (*EVMChainReader, error) {
	contracts()
	rpcURLs := append([]string{cfg.PrimaryRPCURL}, cfg.FallbackRPCURLs...)
	connectTimeout := time.Duration(cfg.ConnectTimeoutSeconds) * time.Second
	var lastErr error

	for _, rpcURL := range rpcURLs {
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		client, err := ethclient.DialContext(ctx, rpcURL)
		if err == nil && cfg.ChainID != 0 {
			err = verifyChainID(ctx, client, cfg.ChainID)
			if err != nil {
				client.Close()
			}
		}
		cancel()

		if err == nil {
			logger.Info("Connected to chain", zap.String("network", cfg.Name), zap.String("rpc", rpcURL))
			reader := newEVMChainReader(client, rate.Limit(cfg.RateLimit), cfg.BurstLimit,
				time.Duration(cfg.RPCCallTimeoutSeconds)*time.Second)
			reader.closeFn = client.Close
			return reader, nil
		}
		logger.Warn("RPC connection attempt failed", zap.String("rpc", rpcURL), zap.Error(err))
		lastErr = fmt.Errorf("failed to connect to RPC %s: %w", rpcURL, err)
	}

	return nil, fmt.Errorf("%w: all RPC connection attempts failed for network %s: %w", entity.ErrTransport, cfg.Name, lastErr)
}

func verifyChainID(ctx context.Context, client *ethclient.Client, expected uint64) error {
	chainID, err := client.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify chain id: %w", err)
	}
	if chainID.Uint64() != expected {
		return fmt.Errorf("chain id mismatch: expected %d, got %d", expected, chainID.Uint64())
	}
	return nil
}

func newEVMChainReader(caller ethereum.ContractCaller, limit rate.Limit, burst int, rpcCallTimeout time.Duration) *EVMChainReader {
	if burst <= 0 {
		burst = 1
	}
	return &EVMChainReader{
		caller:         caller,
		limiter:        rate.NewLimiter(limit, burst),
		rpcCallTimeout: rpcCallTimeout,
	}
}

// Close releases the underlying RPC connection.
func (r *EVMChainReader) Close() {
	if r.closeFn != nil {
		r.closeFn()
	}
}

func (r *EVMChainReader) call(ctx context.Context, method string, to common.Address, args ...interface{}) ([]interface{}, error) {
	abiDef := contracts()
	data, err := abiDef.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s call: %w", method, err)
	}

	if err := r.limiter.Wait(ctx); err != nil {
		metrics.ChainCallsTotal.WithLabelValues(method, "error").Inc()
		return nil, fmt.Errorf("%w: %s on %s: %w", entity.ErrTransport, method, to.Hex(), err)
	}

	callCtx, cancel := context.WithTimeout(ctx, r.rpcCallTimeout)
	defer cancel()

	start := time.Now()
	output, err := r.caller.CallContract(callCtx, ethereum.CallMsg{To: &to, Data: data}, nil)
	metrics.ChainCallDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ChainCallsTotal.WithLabelValues(method, "error").Inc()
		return nil, fmt.Errorf("%w: %s on %s: %w", entity.ErrTransport, method, to.Hex(), err)
	}

	// A call to an address without code returns empty output.
	values, err := abiDef.Unpack(method, output)
	if err != nil {
		metrics.ChainCallsTotal.WithLabelValues(method, "error").Inc()
		return nil, fmt.Errorf("%w: failed to unpack %s result from %s: %w", entity.ErrTransport, method, to.Hex(), err)
	}
	metrics.ChainCallsTotal.WithLabelValues(method, "ok").Inc()
	return values, nil
}

func (r *EVMChainReader) callBigInt(ctx context.Context, method string, to common.Address, args ...interface{}) (*big.Int, error) {
	values, err := r.call(ctx, method, to, args...)
	if err != nil {
		return nil, err
	}
	value, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%w: %s returned %T, expected *big.Int", entity.ErrTransport, method, values[0])
	}
	return value, nil
}

func (r *EVMChainReader) callAddress(ctx context.Context, method string, to common.Address, args ...interface{}) (common.Address, error) {
	values, err := r.call(ctx, method, to, args...)
	if err != nil {
		return common.Address{}, err
	}
	value, ok := values[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("%w: %s returned %T, expected address", entity.ErrTransport, method, values[0])
	}
	return value, nil
}

// ReadBalance returns the ERC20 balanceOf(owner) of token in base units.
func (r *EVMChainReader) ReadBalance(ctx context.Context, token common.Address, owner common.Address) (*big.Int, error) {
	return r.callBigInt(ctx, methodBalanceOf, token, owner)
}

// ReadTotalSupply returns the totalSupply of an ERC20 contract.
func (r *EVMChainReader) ReadTotalSupply(ctx context.Context, contract common.Address) (*big.Int, error) {
	return r.callBigInt(ctx, methodTotalSupply, contract)
}

// ReadReserves returns the reserves of a pair in token0, token1 order.
func (r *EVMChainReader) ReadReserves(ctx context.Context, pair common.Address) (*big.Int, *big.Int, error) {
	values, err := r.call(ctx, methodGetReserves, pair)
	if err != nil {
		return nil, nil, err
	}
	reserve0, ok0 := values[0].(*big.Int)
	reserve1, ok1 := values[1].(*big.Int)
	if !ok0 || !ok1 {
		return nil, nil, fmt.Errorf("%w: unexpected getReserves output %T, %T", entity.ErrTransport, values[0], values[1])
	}
	return reserve0, reserve1, nil
}

// ReadToken0 returns the first token of a pair.
func (r *EVMChainReader) ReadToken0(ctx context.Context, pair common.Address) (common.Address, error) {
	return r.callAddress(ctx, methodToken0, pair)
}

// ReadToken1 returns the second token of a pair.
func (r *EVMChainReader) ReadToken1(ctx context.Context, pair common.Address) (common.Address, error) {
	return r.callAddress(ctx, methodToken1, pair)
}

// ReadPairAddress asks factory for the pair of tokenA and tokenB. A zero address means no pair exists.
func (r *EVMChainReader) ReadPairAddress(ctx context.Context, factory common.Address, tokenA common.Address, tokenB common.Address) (common.Address, error) {
	return r.callAddress(ctx, methodGetPair, factory, tokenA, tokenB)
}

// ReadPoolsCount returns the number of pools registered in a pool manager.
func (r *EVMChainReader) ReadPoolsCount(ctx context.Context, manager common.Address) (uint64, error) {
	count, err := r.callBigInt(ctx, methodPoolsCount, manager)
	if err != nil {
		return 0, err
	}
	if !count.IsUint64() {
		return 0, fmt.Errorf("%w: poolsCount %s overflows uint64", entity.ErrTransport, count)
	}
	return count.Uint64(), nil
}

// ReadPoolByIndex returns the staking address registered at index.
func (r *EVMChainReader) ReadPoolByIndex(ctx context.Context, manager common.Address, index uint64) (common.Address, error) {
	return r.callAddress(ctx, methodPoolsByIndex, manager, new(big.Int).SetUint64(index))
}

// ReadPoolInfo returns the pool and staking token a pool manager records for stakingAddress.
func (r *EVMChainReader) ReadPoolInfo(ctx context.Context, manager common.Address, stakingAddress common.Address) (port.PoolInfo, error) {
	values, err := r.call(ctx, methodPools, manager, stakingAddress)
	if err != nil {
		return port.PoolInfo{}, err
	}
	stakingToken, ok1 := values[1].(common.Address)
	poolAddress, ok2 := values[2].(common.Address)
	if !ok1 || !ok2 {
		return port.PoolInfo{}, fmt.Errorf("%w: unexpected pools output %T, %T", entity.ErrTransport, values[1], values[2])
	}
	return port.PoolInfo{StakingToken: stakingToken, PoolAddress: poolAddress}, nil
}

// ReadTotalLocked returns the total amount account has locked in the LockedGold contract.
func (r *EVMChainReader) ReadTotalLocked(ctx context.Context, lockedGold common.Address, account common.Address) (*big.Int, error) {
	return r.callBigInt(ctx, methodTotalLockedGold, lockedGold, account)
}

// ReadNonVotingLocked returns the locked amount of account that is not voting.
func (r *EVMChainReader) ReadNonVotingLocked(ctx context.Context, lockedGold common.Address, account common.Address) (*big.Int, error) {
	return r.callBigInt(ctx, methodNonvotingLockedGold, lockedGold, account)
}
