package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"portfolio_tracker/internal/app/port"
	"portfolio_tracker/internal/domain/entity"
	"portfolio_tracker/internal/pkg/utils"
)

const (
	swapFeeNumerator   = 997
	swapFeeDenominator = 1000
)

var _ port.PriceResolver = (*PriceResolver)(nil)

// PriceOverride prices Token through Reference: price(Token) = rate(Token, Reference) × price(Reference).
type PriceOverride struct {
	Token     common.Address
	Reference common.Address
}

// PriceResolverConfig holds the stable references and overrides of a PriceResolver.
type PriceResolverConfig struct {
	Factory         common.Address
	PrimaryStable   common.Address
	SecondaryStable common.Address
	StableSymbols   []string
	Overrides       []PriceOverride
	MaxConcurrent   int
}

// PriceResolver derives USD prices from exchange rates against stable tokens.
type PriceResolver struct {
	chain     port.ChainReader
	registry  port.TokenRegistry
	cfg       PriceResolverConfig
	stables   map[string]struct{}
	pairCache *cache.Cache
	logger    *zap.Logger
}

// NewPriceResolver creates a PriceResolver. Pair addresses are cached for the lifetime of the resolver.
func NewPriceResolver(chain port.ChainReader, registry port.TokenRegistry, cfg PriceResolverConfig, logger *zap.Logger) *PriceResolver {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	stables := make(map[string]struct{}, len(cfg.StableSymbols))
	for _, symbol := range cfg.StableSymbols {
		stables[strings.ToUpper(symbol)] = struct{}{}
	}
	return &PriceResolver{
		chain:     chain,
		registry:  registry,
		cfg:       cfg,
		stables:   stables,
		pairCache: cache.New(cache.NoExpiration, 10*time.Minute),
		logger:    logger.Named("PriceResolver"),
	}
}

func (r *PriceResolver) isStable(symbol string) bool {
	_, ok := r.stables[strings.ToUpper(symbol)]
	return ok
}

// Resolve builds the price table of the registered tokens among addresses.
func (r *PriceResolver) Resolve(ctx context.Context, addresses []common.Address) (entity.PriceTable, []entity.PortfolioError) {
	requested := make(map[common.Address]entity.TokenInfo)
	var tokens []entity.TokenInfo
	for _, address := range utils.UniqueAddresses(addresses) {
		token, ok := r.registry.Lookup(address)
		if !ok {
			continue
		}
		requested[address] = token
		tokens = append(tokens, token)
	}

	overridden := make(map[common.Address]struct{})
	for _, override := range r.cfg.Overrides {
		if _, ok := requested[override.Token]; ok {
			overridden[override.Token] = struct{}{}
		}
	}

	table := make(entity.PriceTable, len(tokens))
	var failures []entity.PortfolioError

	direct := make([]entity.TokenInfo, 0, len(tokens))
	for _, token := range tokens {
		if _, ok := overridden[token.Address]; ok {
			continue
		}
		if r.isStable(token.Symbol) {
			table[token.Symbol] = decimal.NewFromInt(1)
			continue
		}
		direct = append(direct, token)
	}

	prices := make([]decimal.Decimal, len(direct))
	errs := make([]error, len(direct))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(r.cfg.MaxConcurrent)
	for i, token := range direct {
		i, token := i, token
		eg.Go(func() error {
			prices[i], errs[i] = r.directPrice(egCtx, token.Address)
			return nil
		})
	}
	_ = eg.Wait()

	for i, token := range direct {
		if errs[i] != nil {
			failures = append(failures, r.priceFailure(token, errs[i]))
			continue
		}
		if _, exists := table[token.Symbol]; !exists {
			table[token.Symbol] = prices[i]
		}
	}

	for _, override := range r.cfg.Overrides {
		token, ok := requested[override.Token]
		if !ok {
			continue
		}
		price, err := r.overridePrice(ctx, table, token, override.Reference)
		if err != nil {
			failures = append(failures, r.priceFailure(token, err))
			continue
		}
		table[token.Symbol] = price
	}

	return table, failures
}

func (r *PriceResolver) overridePrice(ctx context.Context, table entity.PriceTable, token entity.TokenInfo, reference common.Address) (decimal.Decimal, error) {
	if r.isStable(token.Symbol) {
		return decimal.NewFromInt(1), nil
	}
	refToken, ok := r.registry.Lookup(reference)
	if !ok {
		return decimal.Decimal{}, fmt.Errorf("%w: reference %s", entity.ErrUnknownToken, reference.Hex())
	}

	refPrice, ok := table.Lookup(refToken.Symbol)
	if !ok {
		var err error
		if r.isStable(refToken.Symbol) {
			refPrice = decimal.NewFromInt(1)
		} else if refPrice, err = r.directPrice(ctx, reference); err != nil {
			return decimal.Decimal{}, fmt.Errorf("reference %s: %w", refToken.Symbol, err)
		}
		table[refToken.Symbol] = refPrice
	}

	rate, err := r.ExchangeRate(ctx, token.Address, reference)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return rate.Mul(refPrice), nil
}

// directPrice prices a token against the primary stable and falls back to the secondary stable
// when the primary pair has no liquidity.
func (r *PriceResolver) directPrice(ctx context.Context, token common.Address) (decimal.Decimal, error) {
	price, err := r.ExchangeRate(ctx, token, r.cfg.PrimaryStable)
	if err == nil {
		return price, nil
	}
	if !errors.Is(err, entity.ErrZeroLiquidity) {
		return decimal.Decimal{}, err
	}

	price, err = r.ExchangeRate(ctx, token, r.cfg.SecondaryStable)
	if err == nil {
		return price, nil
	}
	if errors.Is(err, entity.ErrZeroLiquidity) {
		return decimal.Decimal{}, fmt.Errorf("%w: no liquidity against either stable", entity.ErrUnpricedToken)
	}
	return decimal.Decimal{}, err
}

// ExchangeRate returns how many units of b one unit of a buys in the factory pair of a and b.
func (r *PriceResolver) ExchangeRate(ctx context.Context, a, b common.Address) (decimal.Decimal, error) {
	pair, err := r.pairAddress(ctx, a, b)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if pair == (common.Address{}) {
		return decimal.Decimal{}, fmt.Errorf("%w: no pair for %s/%s", entity.ErrZeroLiquidity, a.Hex(), b.Hex())
	}

	reserve0, reserve1, err := r.chain.ReadReserves(ctx, pair)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if utils.IsZero(reserve0) || utils.IsZero(reserve1) {
		return decimal.Decimal{}, fmt.Errorf("%w: empty reserves in %s", entity.ErrZeroLiquidity, pair.Hex())
	}

	// 997·r0 / (1000·r1 + 997): units of token0 per unit of token1 after the swap fee.
	num := new(big.Int).Mul(big.NewInt(swapFeeNumerator), reserve0)
	den := new(big.Int).Mul(big.NewInt(swapFeeDenominator), reserve1)
	den.Add(den, big.NewInt(swapFeeNumerator))

	if bytes.Compare(a.Bytes(), b.Bytes()) < 0 {
		return utils.Ratio(den, num), nil
	}
	return utils.Ratio(num, den), nil
}

func (r *PriceResolver) pairAddress(ctx context.Context, a, b common.Address) (common.Address, error) {
	key := pairCacheKey(a, b)
	if cached, found := r.pairCache.Get(key); found {
		if pair, ok := cached.(common.Address); ok {
			return pair, nil
		}
	}

	pair, err := r.chain.ReadPairAddress(ctx, r.cfg.Factory, a, b)
	if err != nil {
		return common.Address{}, err
	}
	// A pair may still be created later.
	if pair != (common.Address{}) {
		r.pairCache.SetDefault(key, pair)
	}
	return pair, nil
}

func pairCacheKey(a, b common.Address) string {
	if bytes.Compare(a.Bytes(), b.Bytes()) > 0 {
		a, b = b, a
	}
	return a.Hex() + "_" + b.Hex()
}

func (r *PriceResolver) priceFailure(token entity.TokenInfo, err error) entity.PortfolioError {
	kind := entity.FailureUnpriced
	if errors.Is(err, entity.ErrTransport) {
		kind = entity.FailureTransport
	}
	r.logger.Warn("Failed to price token",
		zap.String("token", token.Symbol),
		zap.String("address", token.Address.Hex()),
		zap.String("kind", string(kind)),
		zap.Error(err))
	return entity.PortfolioError{
		Kind:    kind,
		Subject: token.Symbol,
		Address: token.Address.Hex(),
		Message: err.Error(),
	}
}
