package tokenloader

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	jsoniter "github.com/json-iterator/go"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"portfolio_tracker/internal/domain/entity"
	"portfolio_tracker/internal/infrastructure/configloader"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// tokenList is the shape of a standard token list document.
type tokenList struct {
	Name   string           `json:"name"`
	Tokens []tokenListEntry `json:"tokens"`
}

type tokenListEntry struct {
	ChainID  uint64 `json:"chainId"`
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals uint8  `json:"decimals"`
	LogoURI  string `json:"logoURI"`
}

// Loader reads the token list from a local file or downloads it.
type Loader struct {
	cfg     configloader.TokensConfig
	chainID uint64
	client  *fasthttp.Client
	logger  *zap.Logger
}

// NewLoader creates a Loader. A zero chainID keeps tokens of every chain.
func NewLoader(cfg configloader.TokensConfig, chainID uint64, logger *zap.Logger) *Loader {
	return &Loader{
		cfg:     cfg,
		chainID: chainID,
		client:  &fasthttp.Client{},
		logger:  logger.Named("TokenLoader"),
	}
}

// Load returns the tokens of the configured list in list order.
func (l *Loader) Load(ctx context.Context) ([]entity.TokenInfo, error) {
	var (
		data   []byte
		source string
		err    error
	)
	if l.cfg.ListURL != "" {
		source = l.cfg.ListURL
		data, err = l.download(ctx, l.cfg.ListURL)
	} else {
		source = l.cfg.ListPath
		data, err = os.ReadFile(l.cfg.ListPath)
		if err != nil {
			err = fmt.Errorf("failed to read token list %s: %w", l.cfg.ListPath, err)
		}
	}
	if err != nil {
		return nil, err
	}

	tokens, err := l.parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token list %s: %w", source, err)
	}
	l.logger.Info("Token list loaded", zap.String("source", source), zap.Int("count", len(tokens)))
	return tokens, nil
}

func (l *Loader) download(ctx context.Context, url string) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(time.Duration(l.cfg.RequestTimeoutMillis) * time.Millisecond)
	}
	if err := l.client.DoDeadline(req, resp, deadline); err != nil {
		return nil, fmt.Errorf("failed to download token list from %s: %w", url, err)
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("token list request to %s failed with status %d", url, resp.StatusCode())
	}

	body := make([]byte, len(resp.Body()))
	copy(body, resp.Body())
	return body, nil
}

func (l *Loader) parse(data []byte) ([]entity.TokenInfo, error) {
	var list tokenList
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, err
	}

	seen := make(map[common.Address]struct{}, len(list.Tokens))
	tokens := make([]entity.TokenInfo, 0, len(list.Tokens))
	for _, entry := range list.Tokens {
		if l.chainID != 0 && entry.ChainID != l.chainID {
			continue
		}
		if !common.IsHexAddress(entry.Address) || strings.TrimSpace(entry.Symbol) == "" {
			l.logger.Warn("Skipping malformed token entry", zap.String("address", entry.Address), zap.String("symbol", entry.Symbol))
			continue
		}
		address := common.HexToAddress(entry.Address)
		if _, dup := seen[address]; dup {
			l.logger.Warn("Skipping duplicate token entry", zap.String("address", address.Hex()), zap.String("symbol", entry.Symbol))
			continue
		}
		seen[address] = struct{}{}

		decimals := entry.Decimals
		if decimals == 0 {
			decimals = entity.BaseUnitDecimals
		}
		// Raw amounts are always normalised by BaseUnitDecimals.
		if decimals != entity.BaseUnitDecimals {
			l.logger.Warn("Skipping token with unsupported decimals",
				zap.String("address", address.Hex()),
				zap.String("symbol", entry.Symbol),
				zap.Uint8("decimals", decimals))
			continue
		}
		tokens = append(tokens, entity.TokenInfo{
			Address:  address,
			Symbol:   entry.Symbol,
			Name:     entry.Name,
			IconRef:  entry.LogoURI,
			Decimals: decimals,
		})
	}
	return tokens, nil
}
