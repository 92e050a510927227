package utils

import "github.com/ethereum/go-ethereum/common"

// UniqueAddresses returns addresses without duplicates, keeping the first occurrence order.
func UniqueAddresses(addresses []common.Address) []common.Address {
	seen := make(map[common.Address]struct{}, len(addresses))
	unique := make([]common.Address, 0, len(addresses))
	for _, addr := range addresses {
		if _, ok := seen[addr]; ok {
			continue
		}
		seen[addr] = struct{}{}
		unique = append(unique, addr)
	}
	return unique
}
