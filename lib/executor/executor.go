// Package executor replays a transaction stream against a pool with a
// compounding manager on it and records how the shares perform.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/ftchann/uniswap-compounder/lib/chain"
	"github.com/ftchann/uniswap-compounder/lib/compounder"
	cons "github.com/ftchann/uniswap-compounder/lib/constants"
	"github.com/ftchann/uniswap-compounder/lib/fullmath"
	ppool "github.com/ftchann/uniswap-compounder/lib/pool"
	"github.com/ftchann/uniswap-compounder/lib/prices"
	"github.com/ftchann/uniswap-compounder/lib/result"
	"github.com/ftchann/uniswap-compounder/lib/storage"
	strat "github.com/ftchann/uniswap-compounder/lib/strategy"
	"github.com/ftchann/uniswap-compounder/lib/token"
	ent "github.com/ftchann/uniswap-compounder/lib/transaction"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	ui "github.com/holiman/uint256"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var ErrNoTransactions = errors.New("executor: no transactions")

var (
	FactoryAddress = common.HexToAddress("0x1F98431c8aD98523631AE4a59f267346ea31F984")
	ManagerAddress = addressFor("manager")
	// Owner makes the initial deposit and is the default vault actor.
	Owner = addressFor("owner")
	// DefaultLP and DefaultTrader stand in for pool events without an actor.
	DefaultLP     = addressFor("lp")
	DefaultTrader = addressFor("trader")
)

// StateSaver persists the manager state at the end of a run.
type StateSaver interface {
	SaveState(ctx context.Context, timestamp int, st compounder.State) error
}

type Config struct {
	Token0       string
	Token1       string
	Decimals0    uint8
	Decimals1    uint8
	Fee          int
	SqrtPriceX96 *ui.Int

	TickLower int
	TickUpper int
	Strategy  strat.Rebalancer

	// HarvestInterval in seconds, zero harvests only on Harvest transactions.
	HarvestInterval  int
	SnapshotInterval int
	Deposit0         *ui.Int
	Deposit1         *ui.Int

	MaxPriceDeviationBps uint64
	PriceWindow          int
}

type Execution struct {
	Config       Config
	Env          *chain.Env
	Pool         *ppool.Pool
	Manager      *compounder.Manager
	Token0       *token.Ledger
	Token1       *token.Ledger
	Transactions []ent.Transaction

	Snapshots []result.Snapshot
	Harvests  []result.HarvestRecord
	// Skipped counts transactions the replayed pool or vault rejected.
	Skipped int

	// Sink and State are optional.
	Sink  storage.Storage
	State StateSaver

	prices   *prices.Prices
	approved map[common.Address]bool
	logger   *zap.Logger
}

// CreateExecution builds the tokens, the pool and the manager for a run.
func CreateExecution(cfg Config, transactions []ent.Transaction, logger *zap.Logger) (*Execution, error) {
	if len(transactions) == 0 {
		return nil, ErrNoTransactions
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	address0, address1 := addressFor("token/"+cfg.Token0), addressFor("token/"+cfg.Token1)
	if bytes.Compare(address0.Bytes(), address1.Bytes()) > 0 {
		address0, address1 = address1, address0
	}
	token0 := token.NewLedger(address0, cfg.Token0, cfg.Decimals0)
	token1 := token.NewLedger(address1, cfg.Token1, cfg.Decimals1)

	factory := ppool.NewFactory(FactoryAddress)
	pool, err := factory.CreatePool(token0, token1, cfg.Fee)
	if err != nil {
		return nil, err
	}
	if err := pool.Initialize(cfg.SqrtPriceX96); err != nil {
		return nil, err
	}

	env := chain.NewEnv(logger)
	env.Register(pool, token0, token1)
	manager, err := compounder.New(env, compounder.Config{
		Address:              ManagerAddress,
		Factory:              factory,
		TokenA:               token0,
		TokenB:               token1,
		Fee:                  cfg.Fee,
		TickLower:            cfg.TickLower,
		TickUpper:            cfg.TickUpper,
		Strategy:             cfg.Strategy,
		MaxPriceDeviationBps: cfg.MaxPriceDeviationBps,
		PriceWindow:          cfg.PriceWindow,
		Logger:               logger,
	})
	if err != nil {
		return nil, err
	}

	transactions = normalize(transactions)
	span := transactions[len(transactions)-1].Timestamp - transactions[0].Timestamp
	window := 2
	if cfg.SnapshotInterval > 0 {
		window += span / cfg.SnapshotInterval
	}
	return &Execution{
		Config:       cfg,
		Env:          env,
		Pool:         pool,
		Manager:      manager,
		Token0:       token0,
		Token1:       token1,
		Transactions: transactions,
		prices:       prices.NewPrices(window),
		approved:     make(map[common.Address]bool),
		logger:       logger.With(zap.Int("harvest_interval", cfg.HarvestInterval)),
	}, nil
}

func (e *Execution) Run(ctx context.Context) error {
	transactions := e.Transactions
	start := transactions[0].Timestamp
	end := transactions[len(transactions)-1].Timestamp

	if !isZero(e.Config.Deposit0) || !isZero(e.Config.Deposit1) {
		if err := e.deposit(ctx, Owner, e.Config.Deposit0, e.Config.Deposit1); err != nil {
			return fmt.Errorf("initial deposit: %w", err)
		}
	}
	if err := e.snapshot(start); err != nil {
		return err
	}

	nextHarvest := start + e.Config.HarvestInterval
	nextSnapshot := start + e.Config.SnapshotInterval
	for _, trans := range transactions {
		if err := ctx.Err(); err != nil {
			return err
		}
		if e.Config.HarvestInterval > 0 && trans.Timestamp >= nextHarvest {
			if err := e.harvest(ctx, trans.Timestamp); err != nil {
				return err
			}
			for nextHarvest <= trans.Timestamp {
				nextHarvest += e.Config.HarvestInterval
			}
		}
		if e.Config.SnapshotInterval > 0 && trans.Timestamp >= nextSnapshot {
			if err := e.snapshot(trans.Timestamp); err != nil {
				return err
			}
			for nextSnapshot <= trans.Timestamp {
				nextSnapshot += e.Config.SnapshotInterval
			}
		}
		if err := e.apply(ctx, trans); err != nil {
			return fmt.Errorf("transaction %s: %w", trans.ID, err)
		}
	}

	if e.Config.HarvestInterval > 0 {
		if err := e.harvest(ctx, end); err != nil {
			return err
		}
	}
	if err := e.snapshot(end); err != nil {
		return err
	}

	if e.Sink != nil {
		if err := e.Sink.PutSnapshots(ctx, e.Snapshots); err != nil {
			return fmt.Errorf("store snapshots: %w", err)
		}
		if err := e.Sink.PutHarvests(ctx, e.Harvests); err != nil {
			return fmt.Errorf("store harvests: %w", err)
		}
	}
	if e.State != nil {
		if err := e.State.SaveState(ctx, end, e.Manager.State()); err != nil {
			return fmt.Errorf("save state: %w", err)
		}
	}

	summary := e.Result()
	e.logger.Info("replay done",
		zap.Int("transactions", len(transactions)),
		zap.Int("harvests", summary.Harvests),
		zap.Int("skipped", summary.Skipped),
		zap.String("share_price", summary.EndSharePrice),
		zap.String("growth", summary.Growth),
	)
	return nil
}

// apply replays one transaction. Pool and vault rejections are counted
// and skipped, the history may reference positions minted before it starts.
func (e *Execution) apply(ctx context.Context, trans ent.Transaction) error {
	var err error
	switch trans.Type {
	case ent.Mint:
		err = e.poolMint(ctx, actorOr(trans.Actor, DefaultLP), trans)
	case ent.Burn:
		err = e.poolBurn(ctx, actorOr(trans.Actor, DefaultLP), trans)
	case ent.Swap:
		err = e.poolSwap(ctx, actorOr(trans.Actor, DefaultTrader), trans)
	case ent.Flash:
		err = e.poolFlash(ctx, actorOr(trans.Actor, DefaultTrader), trans)
	case ent.Deposit:
		err = e.deposit(ctx, actorOr(trans.Actor, Owner), trans.Amount0, trans.Amount1)
	case ent.Withdraw:
		err = e.withdraw(ctx, actorOr(trans.Actor, Owner), trans.Amount)
	case ent.Harvest:
		return e.harvest(ctx, trans.Timestamp)
	default:
		return fmt.Errorf("%w: %q", ent.ErrUnknownType, trans.Type)
	}
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		e.Skipped++
		e.logger.Debug("transaction skipped",
			zap.String("id", trans.ID),
			zap.String("type", trans.Type),
			zap.Error(err),
		)
	}
	return nil
}

func (e *Execution) harvest(ctx context.Context, timestamp int) error {
	res, err := e.Manager.Harvest(ctx)
	if errors.Is(err, compounder.ErrPriceDeviation) {
		e.Skipped++
		e.logger.Warn("harvest skipped", zap.Int("timestamp", timestamp), zap.Error(err))
		return nil
	}
	if err != nil {
		return fmt.Errorf("harvest at %d: %w", timestamp, err)
	}
	if e.Manager.TotalSupply().IsZero() {
		return nil
	}
	e.Harvests = append(e.Harvests, result.HarvestRecord{
		Timestamp:      timestamp,
		Fees0:          res.Fees0.ToBig().String(),
		Fees1:          res.Fees1.ToBig().String(),
		SwapZeroForOne: res.SwapZeroForOne,
		SwapIn:         res.SwapIn.ToBig().String(),
		SwapOut:        res.SwapOut.ToBig().String(),
		LiquidityAdded: res.LiquidityAdded.ToBig().String(),
		Idle0:          res.Idle0.ToBig().String(),
		Idle1:          res.Idle1.ToBig().String(),
		TotalLiquidity: e.Manager.TotalLiquidity().ToBig().String(),
	})
	return nil
}

func (e *Execution) snapshot(timestamp int) error {
	sqrtPriceX96, _, err := e.Pool.Slot0()
	if err != nil {
		return err
	}
	amount0, amount1, err := e.Manager.PositionAmounts()
	if err != nil {
		return err
	}
	value := valueInToken1(amount0, amount1, sqrtPriceX96)
	supply := e.Manager.TotalSupply()
	e.prices.Add(sqrtPriceX96)

	e.Snapshots = append(e.Snapshots, result.Snapshot{
		Timestamp:      timestamp,
		SqrtPriceX96:   sqrtPriceX96.ToBig().String(),
		Price:          result.Price(sqrtPriceX96, e.Token0.Decimals, e.Token1.Decimals).String(),
		TotalLiquidity: e.Manager.TotalLiquidity().ToBig().String(),
		TotalSupply:    supply.ToBig().String(),
		Amount0:        result.Amount(amount0, e.Token0.Decimals),
		Amount1:        result.Amount(amount1, e.Token1.Decimals),
		Value:          result.Amount(value, e.Token1.Decimals),
		SharePrice:     result.PerShare(value, supply, e.Token1.Decimals).String(),
	})
	return nil
}

// Result summarizes the run.
func (e *Execution) Result() result.RunResult {
	res := result.RunResult{
		HarvestInterval: e.Config.HarvestInterval,
		Harvests:        len(e.Harvests),
		Skipped:         e.Skipped,
		PriceVolatility: e.priceVolatility().String(),
	}
	if len(e.Snapshots) == 0 {
		return res
	}
	first, last := e.Snapshots[0], e.Snapshots[len(e.Snapshots)-1]
	res.StartSharePrice = first.SharePrice
	res.EndSharePrice = last.SharePrice
	res.EndValue = last.Value
	res.Growth = result.Growth(
		decimal.RequireFromString(first.SharePrice),
		decimal.RequireFromString(last.SharePrice),
	).String()
	return res
}

// priceVolatility is the standard deviation of the snapshot sqrt prices
// relative to their mean.
func (e *Execution) priceVolatility() decimal.Decimal {
	avg := e.prices.Average()
	if avg.IsZero() {
		return decimal.Zero
	}
	vol := decimal.NewFromBigInt(e.prices.Volatility().ToBig(), 0)
	return vol.DivRound(decimal.NewFromBigInt(avg.ToBig(), 0), 18)
}

// valueInToken1 prices amount0 at the pool price.
func valueInToken1(amount0, amount1, sqrtPriceX96 *ui.Int) *ui.Int {
	value := fullmath.MulDiv(fullmath.MulDiv(amount0, sqrtPriceX96, cons.Q96), sqrtPriceX96, cons.Q96)
	return value.Add(value, amount1)
}

// normalize copies the transactions with missing amounts set to zero.
func normalize(transactions []ent.Transaction) []ent.Transaction {
	out := make([]ent.Transaction, len(transactions))
	for i, trans := range transactions {
		for _, amount := range []**ui.Int{&trans.Amount, &trans.Amount0, &trans.Amount1} {
			if *amount == nil {
				*amount = new(ui.Int)
			}
		}
		out[i] = trans
	}
	return out
}

func addressFor(name string) common.Address {
	return common.BytesToAddress(crypto.Keccak256([]byte(name))[12:])
}

func actorOr(actor, fallback common.Address) common.Address {
	if actor == (common.Address{}) {
		return fallback
	}
	return actor
}

func isZero(v *ui.Int) bool {
	return v == nil || v.IsZero()
}
