package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ftchann/uniswap-compounder/lib/config"
	"github.com/ftchann/uniswap-compounder/lib/executor"
	"github.com/ftchann/uniswap-compounder/lib/storage"
	"github.com/ftchann/uniswap-compounder/lib/storage/pebble"
	"github.com/ftchann/uniswap-compounder/lib/storage/postgres"
	strat "github.com/ftchann/uniswap-compounder/lib/strategy"
	ent "github.com/ftchann/uniswap-compounder/lib/transaction"

	ui "github.com/holiman/uint256"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Replay the history once and write snapshots and harvests",
		RunE:  runSimulate,
	}
	addRunFlags(cmd)
	cmd.Flags().Int("harvest-interval", 60*60*24, "seconds between harvests, 0 only harvests on Harvest transactions")
	cmd.Flags().String("db", "", "pebble directory for the final manager state")
	cmd.Flags().String("pg-dsn", "", "Postgres DSN for reports")
	return cmd
}

func runSimulate(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	transactions, err := ent.Load(cfg.Transactions)
	if err != nil {
		return err
	}
	execCfg, err := executionConfig(cfg, cfg.HarvestInterval)
	if err != nil {
		return err
	}
	execution, err := executor.CreateExecution(execCfg, transactions, logger)
	if err != nil {
		return err
	}

	sinks := storage.Multi{storage.NewJsonlStorage(cfg.Out)}
	if cfg.PgDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PgDSN, runID(cfg, cfg.HarvestInterval))
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		sinks = append(sinks, store)
	}
	execution.Sink = sinks

	if cfg.DB != "" {
		state, err := pebble.Open(cfg.DB)
		if err != nil {
			return err
		}
		defer state.Close()
		execution.State = state
	}

	logger.Info("simulation start",
		zap.String("transactions", cfg.Transactions),
		zap.Int("count", len(transactions)),
		zap.String("strategy", cfg.Strategy),
		zap.Int("tick_lower", cfg.TickLower),
		zap.Int("tick_upper", cfg.TickUpper),
		zap.Int("harvest_interval", cfg.HarvestInterval),
		zap.String("out", cfg.Out),
	)
	return execution.Run(ctx)
}

// executionConfig converts the loaded configuration for one run.
func executionConfig(cfg config.Config, harvestInterval int) (executor.Config, error) {
	rebalancer, err := strat.New(cfg.Strategy)
	if err != nil {
		return executor.Config{}, err
	}
	sqrtPriceX96, err := ui.FromDecimal(cfg.SqrtPriceX96)
	if err != nil {
		return executor.Config{}, fmt.Errorf("sqrt-price-x96: %w", err)
	}
	deposit0, err := ui.FromDecimal(cfg.Deposit0)
	if err != nil {
		return executor.Config{}, fmt.Errorf("deposit0: %w", err)
	}
	deposit1, err := ui.FromDecimal(cfg.Deposit1)
	if err != nil {
		return executor.Config{}, fmt.Errorf("deposit1: %w", err)
	}
	return executor.Config{
		Token0:               cfg.Token0,
		Token1:               cfg.Token1,
		Decimals0:            cfg.Decimals0,
		Decimals1:            cfg.Decimals1,
		Fee:                  cfg.Fee,
		SqrtPriceX96:         sqrtPriceX96,
		TickLower:            cfg.TickLower,
		TickUpper:            cfg.TickUpper,
		Strategy:             rebalancer,
		HarvestInterval:      harvestInterval,
		SnapshotInterval:     cfg.SnapshotInterval,
		Deposit0:             deposit0,
		Deposit1:             deposit1,
		MaxPriceDeviationBps: cfg.MaxPriceDeviationBps,
		PriceWindow:          cfg.PriceWindow,
	}, nil
}

func runID(cfg config.Config, harvestInterval int) string {
	return fmt.Sprintf("%s-%s-%d-%s-%d-%d-%d", cfg.Token0, cfg.Token1, cfg.Fee, cfg.Strategy, cfg.TickLower, cfg.TickUpper, harvestInterval)
}
