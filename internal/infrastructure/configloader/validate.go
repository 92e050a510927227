package configloader

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"portfolio_tracker/internal/domain/entity"
)

// Validate checks the fields the tracker cannot start without.
func (c *Config) Validate() error {
	var errs []error

	if c.Chain.PrimaryRPCURL == "" {
		errs = append(errs, errors.New("chain.primaryRpcUrl is required"))
	}
	if c.Tokens.ListPath == "" && c.Tokens.ListURL == "" {
		errs = append(errs, errors.New("tokens.listPath or tokens.listURL is required"))
	}

	required := map[string]string{
		"contracts.factory":       c.Contracts.Factory,
		"pricing.primaryStable":   c.Pricing.PrimaryStable,
		"pricing.secondaryStable": c.Pricing.SecondaryStable,
	}
	for field, value := range required {
		if !common.IsHexAddress(value) {
			errs = append(errs, fmt.Errorf("%s must be a hex address, got %q", field, value))
		}
	}

	optional := map[string]string{
		"contracts.poolManager": c.Contracts.PoolManager,
		"contracts.lockedGold":  c.Contracts.LockedGold,
		"contracts.lockedToken": c.Contracts.LockedToken,
	}
	for field, value := range optional {
		if value != "" && !common.IsHexAddress(value) {
			errs = append(errs, fmt.Errorf("%s must be a hex address, got %q", field, value))
		}
	}
	if (c.Contracts.LockedGold == "") != (c.Contracts.LockedToken == "") {
		errs = append(errs, errors.New("contracts.lockedGold and contracts.lockedToken must be set together"))
	}

	for i, o := range c.Pricing.Overrides {
		if !common.IsHexAddress(o.Token) || !common.IsHexAddress(o.Reference) {
			errs = append(errs, fmt.Errorf("pricing.overrides[%d] must hold hex addresses", i))
		}
	}

	for i, chain := range c.Pools.Extra {
		if len(chain.Contracts) == 0 {
			errs = append(errs, fmt.Errorf("pools.extra[%d] (%s) has no contracts", i, chain.Name))
		}
		for _, addr := range chain.Contracts {
			if !common.IsHexAddress(addr) {
				errs = append(errs, fmt.Errorf("pools.extra[%d] (%s): %q is not a hex address", i, chain.Name, addr))
			}
		}
	}

	if _, ok := new(big.Int).SetString(c.Valuation.DustThreshold, 10); !ok {
		errs = append(errs, fmt.Errorf("valuation.dustThreshold %q is not an integer", c.Valuation.DustThreshold))
	}

	if len(c.Pools.Extra) == 0 && c.Contracts.PoolManager == "" {
		logrus.Warn("No pool manager and no extra staking chains configured. Pooled positions will not be resolved.")
	}

	return errors.Join(errs...)
}

// DustThreshold returns the parsed dust threshold. Call it on a validated config only.
func (c *Config) DustThreshold() *big.Int {
	threshold, _ := new(big.Int).SetString(c.Valuation.DustThreshold, 10)
	return threshold
}

// StakingChains converts the configured extra staking chains.
func (c *Config) StakingChains() []entity.StakingChainSpec {
	chains := make([]entity.StakingChainSpec, 0, len(c.Pools.Extra))
	for _, chain := range c.Pools.Extra {
		spec := entity.StakingChainSpec{Name: chain.Name}
		for _, addr := range chain.Contracts {
			spec.Contracts = append(spec.Contracts, common.HexToAddress(addr))
		}
		chains = append(chains, spec)
	}
	return chains
}
