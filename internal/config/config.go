package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/spf13/viper"
)

const (
	// DatadirKey is the local data directory to store the internal state of the daemon
	DatadirKey = "DATADIR"
	// LogLevelKey are the different logging levels. For reference on the values https://godoc.org/github.com/sirupsen/logrus#Level
	LogLevelKey = "LOG_LEVEL"
	// NetworkKey is the bitcoin network the daemon operates on, one of mainnet, testnet, regtest
	NetworkKey = "NETWORK"
	// ExplorerEndpointKey is the base url of the esplora block explorer used as blockchain source
	ExplorerEndpointKey = "EXPLORER_ENDPOINT"
	// ExplorerRequestTimeoutKey is the timeout in seconds of any request to the block explorer
	ExplorerRequestTimeoutKey = "EXPLORER_REQUEST_TIMEOUT"
	// ConfirmationPollIntervalKey is the interval in seconds between two scans of the watched transactions
	ConfirmationPollIntervalKey = "CONFIRMATION_POLL_INTERVAL"
	// EnableProfilerKey enables profiler that can be used to investigate performance issues
	EnableProfilerKey = "ENABLE_PROFILER"
	// StatsIntervalKey defines interval for printing basic daemon statistics
	StatsIntervalKey = "STATS_INTERVAL"

	DbLocation       = "db"
	ProfilerLocation = "stats"
)

var vip *viper.Viper
var defaultDatadir = btcutil.AppDataDir("copayd", false)

func InitConfig() error {
	vip = viper.New()
	vip.SetEnvPrefix("COPAYD")
	vip.AutomaticEnv()

	vip.SetDefault(DatadirKey, defaultDatadir)
	vip.SetDefault(LogLevelKey, 4)
	vip.SetDefault(NetworkKey, "mainnet")
	vip.SetDefault(ExplorerEndpointKey, "https://blockstream.info/api")
	vip.SetDefault(ExplorerRequestTimeoutKey, 15)
	vip.SetDefault(ConfirmationPollIntervalKey, 60)
	vip.SetDefault(EnableProfilerKey, false)
	vip.SetDefault(StatsIntervalKey, 600)

	if err := validate(); err != nil {
		return fmt.Errorf("error while validating config: %s", err)
	}

	if err := initDatadir(); err != nil {
		return fmt.Errorf("error while creating datadir: %s", err)
	}

	return nil
}

func GetString(key string) string {
	return vip.GetString(key)
}

func GetInt(key string) int {
	return vip.GetInt(key)
}

func GetDuration(key string) time.Duration {
	return vip.GetDuration(key)
}

func GetBool(key string) bool {
	return vip.GetBool(key)
}

func GetDatadir() string {
	return GetString(DatadirKey)
}

func validate() error {
	datadir := GetString(DatadirKey)
	if len(datadir) <= 0 {
		return fmt.Errorf("missing datadir")
	}

	network := GetString(NetworkKey)
	switch network {
	case "mainnet", "testnet", "regtest":
	default:
		return fmt.Errorf("%s must be one of mainnet, testnet, regtest", NetworkKey)
	}

	endpoint := GetString(ExplorerEndpointKey)
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return fmt.Errorf("%s must be a valid url", ExplorerEndpointKey)
	}

	if GetInt(ExplorerRequestTimeoutKey) <= 0 {
		return fmt.Errorf("%s must be a positive number of seconds", ExplorerRequestTimeoutKey)
	}
	if GetInt(ConfirmationPollIntervalKey) <= 0 {
		return fmt.Errorf("%s must be a positive number of seconds", ConfirmationPollIntervalKey)
	}

	return nil
}

func initDatadir() error {
	datadir := GetDatadir()
	if err := makeDirectoryIfNotExists(filepath.Join(datadir, DbLocation)); err != nil {
		return err
	}

	profilerEnabled := GetBool(EnableProfilerKey)
	if profilerEnabled {
		if err := makeDirectoryIfNotExists(filepath.Join(datadir, ProfilerLocation)); err != nil {
			return err
		}
	}
	return nil
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}
