package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ftchann/uniswap-compounder/lib/config"
	"github.com/ftchann/uniswap-compounder/lib/executor"
	"github.com/ftchann/uniswap-compounder/lib/result"
	"github.com/ftchann/uniswap-compounder/lib/storage"
	ent "github.com/ftchann/uniswap-compounder/lib/transaction"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var defaultIntervals = []int{60 * 60, 6 * 60 * 60, 24 * 60 * 60, 7 * 24 * 60 * 60}

func newSweepCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Compare harvest intervals on the same history",
		RunE:  runSweep,
	}
	addRunFlags(cmd)
	cmd.Flags().IntSlice("intervals", defaultIntervals, "harvest intervals in seconds")
	cmd.Flags().Int("parallel", 4, "simulations run at once")
	return cmd
}

func runSweep(cmd *cobra.Command, _ []string) error {
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
	intervals := cfg.Intervals
	if len(intervals) == 0 {
		intervals = defaultIntervals
	}

	save, err := sweep(ctx, cfg, intervals, transactions, logger)
	if err != nil {
		return err
	}
	path := filepath.Join(cfg.Out, "sweep.json")
	if err := writeJSON(path, save); err != nil {
		return err
	}
	logger.Info("sweep done", zap.Int("runs", len(save.Results)), zap.String("out", path))
	return nil
}

// sweep runs one simulation per harvest interval. Every run has its own
// pool and manager so they run concurrently.
func sweep(ctx context.Context, cfg config.Config, intervals []int, transactions []ent.Transaction, logger *zap.Logger) (result.Save, error) {
	results := make([]result.RunResult, len(intervals))

	g, ctx := errgroup.WithContext(ctx)
	parallel := cfg.Parallel
	if parallel <= 0 {
		parallel = 1
	}
	g.SetLimit(parallel)
	for i, interval := range intervals {
		i, interval := i, interval
		g.Go(func() error {
			execCfg, err := executionConfig(cfg, interval)
			if err != nil {
				return err
			}
			execution, err := executor.CreateExecution(execCfg, transactions, logger)
			if err != nil {
				return err
			}
			execution.Sink = storage.NewJsonlStorage(filepath.Join(cfg.Out, fmt.Sprintf("interval-%d", interval)))
			if err := execution.Run(ctx); err != nil {
				return fmt.Errorf("interval %d: %w", interval, err)
			}
			results[i] = execution.Result()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result.Save{}, err
	}

	return result.Save{
		Strategy:    cfg.Strategy,
		TickLower:   cfg.TickLower,
		TickUpper:   cfg.TickUpper,
		StartAmount: cfg.Deposit0 + "/" + cfg.Deposit1,
		StartTime:   transactions[0].Timestamp,
		EndTime:     transactions[len(transactions)-1].Timestamp,
		Results:     results,
	}, nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
