package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// ConfigName is the base name of the config file looked up in the working directory
	ConfigName = "ens-test-env.config"
	// EnvPrefix prefixes every environment override
	EnvPrefix = "ENS_TEST_ENV"
)

// DefaultIgnoredOutput are node log patterns dropped below verbosity 2
var DefaultIgnoredOutput = []string{
	"eth_getBlockByNumber",
	"eth_getBlockByHash",
	"eth_getTransactionReceipt",
	"eth_blockNumber",
	"eth_chainId",
	"eth_getLogs",
	"evm_snapshot",
	"evm_revert",
	"eth_call",
	"eth_estimateGas",
	"eth_feeHistory",
	"eth_sendTransaction",
}

// DefaultExitMarkers are log patterns that mean a container died
var DefaultExitMarkers = []string{
	"exited with code 1",
	"Error response from daemon:",
}

// flagKeys maps command-line flag names to config keys
var flagKeys = map[string]string{
	"verbosity":         "verbosity",
	"extra-time":        "extra_time",
	"kill-gracefully":   "kill_gracefully",
	"no-build":          "no_build",
	"no-scripts":        "no_scripts",
	"no-indexer":        "no_indexer",
	"exit-after-deploy": "exit_after_deploy",
	"save":              "save",
}

// SetupViper creates and configures a viper instance. configFile overrides the
// lookup of ens-test-env.config.{yaml,json,toml} in dir.
func SetupViper(dir, configFile string, cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(ConfigName)
		v.AddConfigPath(dir)
	}

	// Set up environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if cmd != nil {
		var bindErr error
		cmd.Flags().VisitAll(func(f *pflag.Flag) {
			key, ok := flagKeys[f.Name]
			if !ok || bindErr != nil {
				return
			}
			bindErr = v.BindPFlag(key, f)
		})
		if bindErr != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", bindErr)
		}
	}

	return v, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("projectName", "ens-test-env")
	v.SetDefault("paths.composeFile", "docker-compose.yml")
	v.SetDefault("paths.envFile", ".env.local")

	v.SetDefault("node.service", "anvil")
	v.SetDefault("node.rpcUrl", "http://localhost:8545")
	v.SetDefault("node.waitResource", "tcp:localhost:8545")
	v.SetDefault("node.fixedTimestamp", 1640995200)

	v.SetDefault("indexer.service", "ensindexer")
	v.SetDefault("indexer.dependencies", []string{"ensrainbow", "postgres"})
	v.SetDefault("indexer.url", "http://localhost:42069")
	v.SetDefault("indexer.statusPath", "/ponder")
	v.SetDefault("indexer.chainId", "1337")

	v.SetDefault("logs.ignore", DefaultIgnoredOutput)
	v.SetDefault("logs.exitMarkers", DefaultExitMarkers)

	v.SetDefault("verbosity", 0)
	v.SetDefault("extra_time", 0)
	v.SetDefault("kill_gracefully", false)
	v.SetDefault("no_build", false)
	v.SetDefault("no_scripts", false)
	v.SetDefault("no_indexer", false)
	v.SetDefault("exit_after_deploy", false)
	v.SetDefault("save", false)
}
