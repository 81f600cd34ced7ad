package stacking

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jacohend/flag"
	"github.com/spf13/viper"
	"github.com/tendermint/tendermint/libs/log"
	cron "github.com/robfig/cron/v3"

	"github.com/chainpoint/stacking-api/stacks"
	"github.com/chainpoint/stacking-api/types"
	"github.com/chainpoint/stacking-api/util"
)

// pox contracts accept lock periods of at most 12 reward cycles
const poxMaxCycles = 12

// InitConfig: receives flags, ENV variables and the network override file and initializes app config struct
func InitConfig(home string) types.StackingConfig {
	var network, stacksAPIURL, apiPort, logLevel, dbType, redisURI, blockTimeRefresh string
	var numberOfCycles, maxCycles, httpTimeout, apiRate, apiBurst, stackRate, stackBurst int
	flag.String(flag.DefaultConfigFlagname, "", "path to config file")
	flag.StringVar(&network, "network", types.NetworkTestnet, "stacks network, mainnet or testnet")
	flag.StringVar(&stacksAPIURL, "stacks_api_url", "", "stacks blockchain api url, defaults to the public node of the network")
	flag.StringVar(&apiPort, "api_port", "3000", "stacking api port")
	flag.StringVar(&logLevel, "log_level", "info", "log level")
	flag.IntVar(&numberOfCycles, "number_of_cycles", 3, "reward cycles to lock for when a request does not say")
	flag.IntVar(&maxCycles, "max_cycles", poxMaxCycles, "largest number of cycles a request may ask for")
	flag.IntVar(&httpTimeout, "http_timeout", 10, "timeout in seconds for calls to the stacks api")
	flag.IntVar(&apiRate, "api_rate", 15, "requests per second per ip")
	flag.IntVar(&apiBurst, "api_burst", 50, "request burst per ip")
	flag.IntVar(&stackRate, "stack_rate", 3, "broadcasts per minute per ip")
	flag.IntVar(&stackBurst, "stack_burst", 5, "broadcast burst per ip")
	flag.StringVar(&dbType, "db_type", "goleveldb", "local store backend, goleveldb or memdb")
	flag.StringVar(&redisURI, "redis_uri", "", "optional redis url for the shared block time cache")
	flag.StringVar(&blockTimeRefresh, "block_time_refresh", "@every 10m", "cron schedule for refreshing network block times")
	flag.Parse()

	allowLevel, err := log.AllowLevel(strings.ToLower(logLevel))
	if util.LogError(err) != nil {
		allowLevel = log.AllowInfo()
	}
	tmLogger := log.NewFilter(log.NewTMLogger(log.NewSyncWriter(os.Stdout)), allowLevel)

	var blocklist []string
	blocklist, err = util.ReadLines(home + "/ip_blocklist.txt")
	if err != nil {
		blocklist = []string{}
	}

	config := types.StackingConfig{
		HomePath:         home,
		APIPort:          apiPort,
		Network:          strings.ToLower(network),
		StacksAPIURL:     stacksAPIURL,
		LogLevel:         logLevel,
		NumberOfCycles:   int64(numberOfCycles),
		MaxCycles:        int64(maxCycles),
		HTTPTimeout:      time.Duration(httpTimeout) * time.Second,
		APIRate:          apiRate,
		APIBurst:         apiBurst,
		StackRate:        stackRate,
		StackBurst:       stackBurst,
		DBType:           dbType,
		RedisURI:         redisURI,
		BlockTimeRefresh: blockTimeRefresh,
		IPBlockList:      blocklist,
		Logger:           &tmLogger,
	}
	if err := LoadNetworkOverrides(&config); util.LoggerError(tmLogger, err) != nil {
		panic(err)
	}
	if config.StacksAPIURL == "" {
		config.StacksAPIURL = stacks.DefaultURL(config.Network)
	}
	if err := ValidateConfig(config); util.LoggerError(tmLogger, err) != nil {
		panic(err)
	}
	return config
}

// LoadNetworkOverrides : applies <home>/config/network.toml and STACKING_ env variables on top of flags
func LoadNetworkOverrides(config *types.StackingConfig) error {
	v := viper.New()
	initEnv(v, "STACKING")
	v.SetConfigName("network")
	v.AddConfigPath(filepath.Join(config.HomePath, "config"))
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
	}
	if v.IsSet("network") {
		config.Network = strings.ToLower(v.GetString("network"))
	}
	if v.IsSet("stacks_api_url") {
		config.StacksAPIURL = v.GetString("stacks_api_url")
	}
	if v.IsSet("number_of_cycles") {
		config.NumberOfCycles = v.GetInt64("number_of_cycles")
	}
	if v.IsSet("max_cycles") {
		config.MaxCycles = v.GetInt64("max_cycles")
	}
	if v.IsSet("block_time_refresh") {
		config.BlockTimeRefresh = v.GetString("block_time_refresh")
	}
	return nil
}

// ValidateConfig : reject configurations the api cannot serve with
func ValidateConfig(config types.StackingConfig) error {
	if !util.ArrayContains([]string{types.NetworkMainnet, types.NetworkTestnet}, config.Network) {
		return fmt.Errorf("network must be mainnet or testnet, got %q", config.Network)
	}
	if err := util.ValidateURL(config.StacksAPIURL); err != nil {
		return fmt.Errorf("stacks_api_url: %w", err)
	}
	if err := util.ValidatePort(config.APIPort); err != nil {
		return fmt.Errorf("api_port: %w", err)
	}
	if config.MaxCycles < 1 || config.MaxCycles > poxMaxCycles {
		return fmt.Errorf("max_cycles must be between 1 and %d", poxMaxCycles)
	}
	if config.NumberOfCycles < 1 || config.NumberOfCycles > config.MaxCycles {
		return fmt.Errorf("number_of_cycles must be between 1 and max_cycles (%d)", config.MaxCycles)
	}
	if config.HTTPTimeout <= 0 {
		return errors.New("http_timeout must be positive")
	}
	if config.APIRate <= 0 || config.StackRate <= 0 || config.APIBurst < 0 || config.StackBurst < 0 {
		return errors.New("rate limits must be positive")
	}
	if config.DBType != "goleveldb" && config.DBType != "memdb" {
		return fmt.Errorf("db_type must be goleveldb or memdb, got %q", config.DBType)
	}
	if _, err := cron.ParseStandard(config.BlockTimeRefresh); err != nil {
		return fmt.Errorf("block_time_refresh: %w", err)
	}
	return nil
}

func initEnv(v *viper.Viper, prefix string) {
	// env variables with STACKING prefix (eg. STACKING_STACKS_API_URL)
	v.SetEnvPrefix(prefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}
