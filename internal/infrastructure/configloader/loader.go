package configloader

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	defaultDustThreshold         = "100000000000000" // 1e14 base units
	defaultMaxConcurrentRoutines = 10
	defaultRPCCallTimeoutSeconds = 10
	defaultPoolListTTLMinutes    = 30
)

// ServerConfig holds server-specific configurations.
type ServerConfig struct {
	Port           string `yaml:"port"`
	ReadTimeout    int    `yaml:"readTimeout"`
	WriteTimeout   int    `yaml:"writeTimeout"`
	IdleTimeout    int    `yaml:"idleTimeout"`
	RequestTimeout int    `yaml:"requestTimeout"`
}

// LoggingConfig holds logging-specific configurations.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// ChainConfig describes the node the tracker reads from.
type ChainConfig struct {
	Name                  string   `yaml:"name"`
	ChainID               uint64   `yaml:"chainID"`
	PrimaryRPCURL         string   `yaml:"primaryRpcUrl"`
	FallbackRPCURLs       []string `yaml:"fallbackRpcUrls"`
	ConnectTimeoutSeconds int      `yaml:"connectTimeoutSeconds"`
	RPCCallTimeoutSeconds int      `yaml:"rpcCallTimeoutSeconds"`
	RateLimit             float64  `yaml:"rateLimit"`
	BurstLimit            int      `yaml:"burstLimit"`
}

// ContractsConfig holds the addresses of the protocol contracts the tracker reads.
type ContractsConfig struct {
	Factory     string `yaml:"factory"`
	PoolManager string `yaml:"poolManager"`
	LockedGold  string `yaml:"lockedGold"`
	LockedToken string `yaml:"lockedToken"`
}

// TokensConfig points at the token list. ListURL wins over ListPath when both are set.
type TokensConfig struct {
	ListPath             string `yaml:"listPath"`
	ListURL              string `yaml:"listURL"`
	RequestTimeoutMillis int64  `yaml:"requestTimeoutMillis"`
}

// PriceOverride prices Token through Reference when Token has no liquid stable pair.
type PriceOverride struct {
	Token     string `yaml:"token"`
	Reference string `yaml:"reference"`
}

// PricingConfig holds the stable references and override paths used by the price resolver.
type PricingConfig struct {
	PrimaryStable   string          `yaml:"primaryStable"`
	SecondaryStable string          `yaml:"secondaryStable"`
	StableSymbols   []string        `yaml:"stableSymbols"`
	Overrides       []PriceOverride `yaml:"overrides"`
}

// StakingChainConfig is a staking hierarchy, outermost contract first and the LP pair last.
type StakingChainConfig struct {
	Name      string   `yaml:"name"`
	Contracts []string `yaml:"contracts"`
}

// PoolsConfig lists staking chains that are not registered in the pool manager.
type PoolsConfig struct {
	Extra []StakingChainConfig `yaml:"extra"`
}

// ValuationConfig holds valuation parameters.
type ValuationConfig struct {
	DustThreshold string `yaml:"dustThreshold"`
}

// PerformanceConfig holds performance-related configurations.
type PerformanceConfig struct {
	MaxConcurrentRoutines int `yaml:"max_concurrent_routines"`
}

// CacheConfig holds configuration for caching.
type CacheConfig struct {
	PoolListTTLMinutes     int `yaml:"poolListTTLMinutes"`
	CleanupIntervalMinutes int `yaml:"cleanupIntervalMinutes"`
}

// Config is the top-level configuration structure.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Logging     LoggingConfig     `yaml:"logging"`
	Chain       ChainConfig       `yaml:"chain"`
	Contracts   ContractsConfig   `yaml:"contracts"`
	Tokens      TokensConfig      `yaml:"tokens"`
	Pricing     PricingConfig     `yaml:"pricing"`
	Pools       PoolsConfig       `yaml:"pools"`
	Valuation   ValuationConfig   `yaml:"valuation"`
	Performance PerformanceConfig `yaml:"performance"`
	Cache       CacheConfig       `yaml:"cache"`
}

// Load reads the YAML configuration file from the given path and unmarshals it.
func Load(path string) (*Config, error) {
	logrus.Infof("Loading configuration from path: %s", path)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config data from %s: %w", path, err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	logrus.Info("Configuration loaded successfully.")
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Server.RequestTimeout <= 0 {
		cfg.Server.RequestTimeout = 30
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Chain.ConnectTimeoutSeconds <= 0 {
		cfg.Chain.ConnectTimeoutSeconds = 10
	}
	if cfg.Chain.RPCCallTimeoutSeconds <= 0 {
		cfg.Chain.RPCCallTimeoutSeconds = defaultRPCCallTimeoutSeconds
		logrus.Infof("rpcCallTimeoutSeconds not set, defaulting to %d", cfg.Chain.RPCCallTimeoutSeconds)
	}
	if cfg.Chain.RateLimit <= 0 {
		cfg.Chain.RateLimit = 50
	}
	if cfg.Chain.BurstLimit <= 0 {
		cfg.Chain.BurstLimit = 20
	}
	if cfg.Tokens.RequestTimeoutMillis <= 0 {
		cfg.Tokens.RequestTimeoutMillis = 10000
	}
	if len(cfg.Pricing.StableSymbols) == 0 {
		cfg.Pricing.StableSymbols = []string{"cUSD", "mcUSD"}
		logrus.Infof("stableSymbols not set, defaulting to %v", cfg.Pricing.StableSymbols)
	}
	if cfg.Valuation.DustThreshold == "" {
		cfg.Valuation.DustThreshold = defaultDustThreshold
	}
	if cfg.Performance.MaxConcurrentRoutines <= 0 {
		cfg.Performance.MaxConcurrentRoutines = defaultMaxConcurrentRoutines
	}
	if cfg.Cache.PoolListTTLMinutes <= 0 {
		cfg.Cache.PoolListTTLMinutes = defaultPoolListTTLMinutes
	}
	if cfg.Cache.CleanupIntervalMinutes <= 0 {
		cfg.Cache.CleanupIntervalMinutes = 10
	}
}
