package provider

import (
	"github.com/ethereum/go-ethereum/common"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/domain/entity"
)

var _ port.TokenRegistry = (*tokenRegistry)(nil)

// tokenRegistry is immutable after construction and safe for concurrent use.
type tokenRegistry struct {
	tokens    []entity.TokenInfo
	byAddress map[common.Address]entity.TokenInfo
}

// NewTokenRegistry indexes tokens by address. Later duplicates are ignored.
func NewTokenRegistry(tokens []entity.TokenInfo) port.TokenRegistry {
	r := &tokenRegistry{
		tokens:    make([]entity.TokenInfo, 0, len(tokens)),
		byAddress: make(map[common.Address]entity.TokenInfo, len(tokens)),
	}
	for _, token := range tokens {
		if _, exists := r.byAddress[token.Address]; exists {
			continue
		}
		r.byAddress[token.Address] = token
		r.tokens = append(r.tokens, token)
	}
	return r
}

// Lookup returns the registered token at address.
func (r *tokenRegistry) Lookup(address common.Address) (entity.TokenInfo, bool) {
	token, ok := r.byAddress[address]
	return token, ok
}

// Tokens returns a copy of the registered tokens in load order.
func (r *tokenRegistry) Tokens() []entity.TokenInfo {
	out := make([]entity.TokenInfo, len(r.tokens))
	copy(out, r.tokens)
	return out
}
