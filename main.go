package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "compounder",
		Short:        "Replay pool history against an auto-compounding liquidity manager",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	root.AddCommand(newSimulateCmd(), newSweepCmd(), newInspectCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// addRunFlags registers the flags shared by simulate and sweep.
func addRunFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.String("transactions", "./data/trans.json", "transaction history JSON")
	flags.String("token0", "USDC", "token0 symbol")
	flags.String("token1", "WETH", "token1 symbol")
	flags.Uint("decimals0", 6, "token0 decimals")
	flags.Uint("decimals1", 18, "token1 decimals")
	flags.Int("fee", 500, "pool fee in hundredths of a bip")
	flags.String("sqrt-price-x96", "1350174849792634181862360983626536", "initial pool sqrt price (Q64.96)")
	flags.Int("tick-lower", 190880, "lower tick of the managed range")
	flags.Int("tick-upper", 198880, "upper tick of the managed range")
	flags.String("strategy", "half-gap", "rebalance strategy (half-gap, price-aware)")
	flags.Int("snapshot-interval", 60*60, "seconds between snapshots")
	flags.String("deposit0", "1000000", "initial token0 deposit (raw units)")
	flags.String("deposit1", "290000000000000", "initial token1 deposit (raw units)")
	flags.Uint64("max-price-deviation-bps", 0, "reject harvests this far from recent prices, 0 disables")
	flags.Int("price-window", 8, "observations in the price guard window")
	flags.String("out", "./data/out", "output directory")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
