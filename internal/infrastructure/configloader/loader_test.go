package configloader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

const minimalConfig = `
chain:
  primaryRpcUrl: https://forno.celo.org
contracts:
  factory: "0x62d5b84bE28a183aBB507E125B384122D2C25fAE"
tokens:
  listPath: data/tokens/celo.json
pricing:
  primaryStable: "0x64dEFa3544c695db8c535D289d843a189aa26b98"
  secondaryStable: "0x765DE816845861e75A25fCA122bb6898B8B1282a"
pools:
  extra:
    - name: dual
      contracts:
        - "0x969D7653ddBAbb42589d73EfBC2051432332A940"
        - "0x573bcEBD09Ff805eD32df2cb1A968418DC74DCf7"
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	require.Equal(t, "8080", cfg.Server.Port)
	require.Equal(t, "info", cfg.Logging.Level)
	require.Equal(t, defaultRPCCallTimeoutSeconds, cfg.Chain.RPCCallTimeoutSeconds)
	require.Equal(t, defaultMaxConcurrentRoutines, cfg.Performance.MaxConcurrentRoutines)
	require.Equal(t, []string{"cUSD", "mcUSD"}, cfg.Pricing.StableSymbols)
	require.Equal(t, "100000000000000", cfg.DustThreshold().String())
}

func TestLoad_StakingChains(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	chains := cfg.StakingChains()
	require.Len(t, chains, 1)
	require.Equal(t, "dual", chains[0].Name)
	require.Equal(t, common.HexToAddress("0x573bcEBD09Ff805eD32df2cb1A968418DC74DCf7"), chains[0].Pool())
}

func TestLoad_Invalid(t *testing.T) {
	for name, body := range map[string]string{
		"missing rpc": `
contracts: {factory: "0x62d5b84bE28a183aBB507E125B384122D2C25fAE"}
tokens: {listPath: x.json}
pricing: {primaryStable: "0x64dEFa3544c695db8c535D289d843a189aa26b98", secondaryStable: "0x765DE816845861e75A25fCA122bb6898B8B1282a"}
`,
		"bad stable": `
chain: {primaryRpcUrl: http://node}
contracts: {factory: "0x62d5b84bE28a183aBB507E125B384122D2C25fAE"}
tokens: {listPath: x.json}
pricing: {primaryStable: "mcUSD", secondaryStable: "0x765DE816845861e75A25fCA122bb6898B8B1282a"}
`,
		"locked gold without token": `
chain: {primaryRpcUrl: http://node}
contracts: {factory: "0x62d5b84bE28a183aBB507E125B384122D2C25fAE", lockedGold: "0x6cC083Aed9e3ebe302A6336dBC7c921C9f03349E"}
tokens: {listPath: x.json}
pricing: {primaryStable: "0x64dEFa3544c695db8c535D289d843a189aa26b98", secondaryStable: "0x765DE816845861e75A25fCA122bb6898B8B1282a"}
`,
		"bad dust": `
chain: {primaryRpcUrl: http://node}
contracts: {factory: "0x62d5b84bE28a183aBB507E125B384122D2C25fAE"}
tokens: {listPath: x.json}
pricing: {primaryStable: "0x64dEFa3544c695db8c535D289d843a189aa26b98", secondaryStable: "0x765DE816845861e75A25fCA122bb6898B8B1282a"}
valuation: {dustThreshold: "1e14"}
`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			require.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	require.Error(t, err)
}
