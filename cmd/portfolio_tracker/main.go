package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"

	"portfolio_tracker/internal/app/provider"
	"portfolio_tracker/internal/app/service"
	"portfolio_tracker/internal/domain/entity"
	"portfolio_tracker/internal/infrastructure/configloader"
	"portfolio_tracker/internal/infrastructure/network/client"
	"portfolio_tracker/internal/infrastructure/restapi"
	"portfolio_tracker/internal/infrastructure/tokenloader"
	"portfolio_tracker/internal/pkg/logger"
	"portfolio_tracker/internal/pkg/metrics"
)

const (
	defaultConfigPath = "config/config.yml"
	startupTimeout    = time.Minute
	shutdownTimeout   = 5 * time.Second
)

func main() {
	configPath := flag.String("config", envOr("CONFIG_PATH", defaultConfigPath), "path to the YAML configuration")
	walletFlag := flag.String("wallet", "", "value a single wallet, print the portfolio as JSON and exit")
	flag.Parse()

	cfg, err := configloader.Load(*configPath)
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	zapLogger, err := logger.New(cfg.Logging.Level)
	if err != nil {
		logrus.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = zapLogger.Sync() }()
	logger.SetSlogDefault(zapLogger)

	metrics.MustRegisterMetrics()

	portfolioService, closeFn, err := buildPortfolioService(cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to initialize portfolio service", zap.Error(err))
	}
	defer closeFn()

	if *walletFlag != "" {
		if err := runOnce(portfolioService, *walletFlag, time.Duration(cfg.Server.RequestTimeout)*time.Second); err != nil {
			zapLogger.Error("Valuation failed", zap.String("wallet", *walletFlag), zap.Error(err))
			closeFn()
			_ = zapLogger.Sync()
			os.Exit(1)
		}
		return
	}

	serve(cfg, portfolioService, zapLogger)
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func buildPortfolioService(cfg *configloader.Config, zapLogger *zap.Logger) (*service.PortfolioServiceImpl, func(), error) {
	reader, err := client.NewEVMChainReader(cfg.Chain, zapLogger.Named("EVMChainReader"))
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()
	tokens, err := tokenloader.NewLoader(cfg.Tokens, cfg.Chain.ChainID, zapLogger).Load(ctx)
	if err != nil {
		reader.Close()
		return nil, nil, err
	}
	registry := provider.NewTokenRegistry(tokens)

	catalogue := provider.NewPoolCatalogue(
		reader,
		common.HexToAddress(cfg.Contracts.PoolManager),
		cfg.StakingChains(),
		time.Duration(cfg.Cache.PoolListTTLMinutes)*time.Minute,
		time.Duration(cfg.Cache.CleanupIntervalMinutes)*time.Minute,
		cfg.Performance.MaxConcurrentRoutines,
		zapLogger,
	)

	balances := service.NewBalanceResolver(reader, reader, registry, service.BalanceResolverConfig{
		DustThreshold: cfg.DustThreshold(),
		LockedGold:    common.HexToAddress(cfg.Contracts.LockedGold),
		LockedToken:   common.HexToAddress(cfg.Contracts.LockedToken),
		MaxConcurrent: cfg.Performance.MaxConcurrentRoutines,
	}, zapLogger)

	overrides := make([]service.PriceOverride, 0, len(cfg.Pricing.Overrides))
	for _, o := range cfg.Pricing.Overrides {
		overrides = append(overrides, service.PriceOverride{
			Token:     common.HexToAddress(o.Token),
			Reference: common.HexToAddress(o.Reference),
		})
	}
	prices := service.NewPriceResolver(reader, registry, service.PriceResolverConfig{
		Factory:         common.HexToAddress(cfg.Contracts.Factory),
		PrimaryStable:   common.HexToAddress(cfg.Pricing.PrimaryStable),
		SecondaryStable: common.HexToAddress(cfg.Pricing.SecondaryStable),
		StableSymbols:   cfg.Pricing.StableSymbols,
		Overrides:       overrides,
		MaxConcurrent:   cfg.Performance.MaxConcurrentRoutines,
	}, zapLogger)

	zapLogger.Info("Portfolio service initialized",
		zap.Int("tokens", len(tokens)),
		zap.Int("staticChains", len(cfg.Pools.Extra)),
		zap.Int("maxConcurrentRoutines", cfg.Performance.MaxConcurrentRoutines))

	svc := service.NewPortfolioService(catalogue, balances, prices, service.NewPortfolioAggregator(), zapLogger)
	return svc, reader.Close, nil
}

func runOnce(svc *service.PortfolioServiceImpl, walletParam string, timeout time.Duration) error {
	if !common.IsHexAddress(walletParam) {
		return fmt.Errorf("invalid wallet address %q", walletParam)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	portfolio, err := svc.GetPortfolio(ctx, common.HexToAddress(walletParam))
	if portfolio == nil {
		return err
	}

	out, marshalErr := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(portfolio, "", "  ")
	if marshalErr != nil {
		return fmt.Errorf("failed to encode portfolio: %w", marshalErr)
	}
	fmt.Println(string(out))

	if errors.Is(err, entity.ErrUnpricedToken) {
		fmt.Fprintln(os.Stderr, "warning: some entries could not be priced and are excluded from the total")
		return nil
	}
	return err
}

func serve(cfg *configloader.Config, svc *service.PortfolioServiceImpl, zapLogger *zap.Logger) {
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	handler := restapi.NewPortfolioHandler(svc, time.Duration(cfg.Server.RequestTimeout)*time.Second, zapLogger)
	router := restapi.SetupRouter(handler, zapLogger)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		zapLogger.Info("Server starting", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
		return
	}
	zapLogger.Info("Server exiting")
}
