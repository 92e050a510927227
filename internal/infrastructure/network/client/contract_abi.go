package client

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Minimal ABI covering every view method the tracker calls: ERC20/staking balances and supplies,
// constant-product pairs, the pair factory, the farming pool manager and LockedGold.
const contractsABI = `[
{"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"balance","type":"uint256"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[],"name":"totalSupply","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[],"name":"getReserves","outputs":[{"name":"reserve0","type":"uint112"},{"name":"reserve1","type":"uint112"},{"name":"blockTimestampLast","type":"uint32"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[],"name":"token0","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[],"name":"token1","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[{"name":"tokenA","type":"address"},{"name":"tokenB","type":"address"}],"name":"getPair","outputs":[{"name":"pair","type":"address"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[],"name":"poolsCount","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[{"name":"index","type":"uint256"}],"name":"poolsByIndex","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[{"name":"stakingToken","type":"address"}],"name":"pools","outputs":[{"name":"index","type":"uint256"},{"name":"stakingToken","type":"address"},{"name":"poolAddress","type":"address"},{"name":"weight","type":"uint256"},{"name":"nextPeriod","type":"uint256"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[{"name":"account","type":"address"}],"name":"getAccountTotalLockedGold","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"constant":true,"inputs":[{"name":"account","type":"address"}],"name":"getAccountNonvotingLockedGold","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}
]`

const (
	methodBalanceOf           = "balanceOf"
	methodTotalSupply         = "totalSupply"
	methodGetReserves         = "getReserves"
	methodToken0              = "token0"
	methodToken1              = "token1"
	methodGetPair             = "getPair"
	methodPoolsCount          = "poolsCount"
	methodPoolsByIndex        = "poolsByIndex"
	methodPools               = "pools"
	methodTotalLockedGold     = "getAccountTotalLockedGold"
	methodNonvotingLockedGold = "getAccountNonvotingLockedGold"
)

var (
	parsedContractsABI  abi.ABI
	parsedContractsOnce sync.Once
)

func contracts() abi.ABI {
	parsedContractsOnce.Do(func() {
		var err error
		parsedContractsABI, err = abi.JSON(strings.NewReader(contractsABI))
		if err != nil {
			// The ABI is a compile-time constant.
			panic(fmt.Sprintf("failed to parse contracts ABI: %v", err))
		}
	})
	return parsedContractsABI
}
