package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	Transactions string

	Token0    string
	Token1    string
	Decimals0 uint8
	Decimals1 uint8
	Fee       int
	// SqrtPriceX96 initializes the replayed pool, base 10.
	SqrtPriceX96 string

	TickLower int
	TickUpper int
	Strategy  string

	HarvestInterval  int
	SnapshotInterval int
	Deposit0         string
	Deposit1         string

	MaxPriceDeviationBps uint64
	PriceWindow          int

	Out   string
	DB    string
	PgDSN string

	Intervals []int
	Parallel  int

	LogLevel string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("COMPOUNDER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("transactions", "./data/trans.json")
	v.SetDefault("token0", "USDC")
	v.SetDefault("token1", "WETH")
	v.SetDefault("decimals0", 6)
	v.SetDefault("decimals1", 18)
	v.SetDefault("fee", 500)
	v.SetDefault("sqrt-price-x96", "1350174849792634181862360983626536")
	v.SetDefault("tick-lower", 190880)
	v.SetDefault("tick-upper", 198880)
	v.SetDefault("strategy", "half-gap")
	v.SetDefault("harvest-interval", 60*60*24)
	v.SetDefault("snapshot-interval", 60*60)
	v.SetDefault("deposit0", "1000000")
	v.SetDefault("deposit1", "290000000000000")
	v.SetDefault("max-price-deviation-bps", uint64(0))
	v.SetDefault("price-window", 8)
	v.SetDefault("out", "./data/out")
	v.SetDefault("parallel", 4)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	intervals, err := getIntSlice(v, "intervals")
	if err != nil {
		return Config{}, err
	}
	decimals0, err := getUint8(v, "decimals0")
	if err != nil {
		return Config{}, err
	}
	decimals1, err := getUint8(v, "decimals1")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Transactions:         v.GetString("transactions"),
		Token0:               v.GetString("token0"),
		Token1:               v.GetString("token1"),
		Decimals0:            decimals0,
		Decimals1:            decimals1,
		Fee:                  v.GetInt("fee"),
		SqrtPriceX96:         v.GetString("sqrt-price-x96"),
		TickLower:            v.GetInt("tick-lower"),
		TickUpper:            v.GetInt("tick-upper"),
		Strategy:             v.GetString("strategy"),
		HarvestInterval:      v.GetInt("harvest-interval"),
		SnapshotInterval:     v.GetInt("snapshot-interval"),
		Deposit0:             v.GetString("deposit0"),
		Deposit1:             v.GetString("deposit1"),
		MaxPriceDeviationBps: v.GetUint64("max-price-deviation-bps"),
		PriceWindow:          v.GetInt("price-window"),
		Out:                  v.GetString("out"),
		DB:                   v.GetString("db"),
		PgDSN:                v.GetString("pg-dsn"),
		Intervals:            intervals,
		Parallel:             v.GetInt("parallel"),
		LogLevel:             v.GetString("log-level"),
	}

	return cfg, nil
}

func getUint8(v *viper.Viper, key string) (uint8, error) {
	n := v.GetInt(key)
	if n < 0 || n > math.MaxUint8 {
		return 0, fmt.Errorf("%s: %d out of range [0, %d]", key, n, math.MaxUint8)
	}
	return uint8(n), nil
}

func getIntSlice(v *viper.Viper, key string) ([]int, error) {
	items := getStringSlice(v, key)
	if len(items) == 0 {
		return nil, nil
	}
	out := make([]int, 0, len(items))
	for _, item := range items {
		n, err := strconv.Atoi(item)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		out = append(out, n)
	}
	return out, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []int:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, strconv.Itoa(item))
		}
		return items
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	input = strings.Trim(input, "[]")
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
