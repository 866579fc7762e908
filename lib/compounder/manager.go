// Package compounder pools deposits into a single concentrated liquidity
// range, issues shares against it and compounds the earned fees back into
// the range.
package compounder

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/ftchann/uniswap-compounder/lib/chain"
	cons "github.com/ftchann/uniswap-compounder/lib/constants"
	"github.com/ftchann/uniswap-compounder/lib/fullmath"
	la "github.com/ftchann/uniswap-compounder/lib/liquidity_amounts"
	"github.com/ftchann/uniswap-compounder/lib/pool"
	"github.com/ftchann/uniswap-compounder/lib/position"
	"github.com/ftchann/uniswap-compounder/lib/prices"
	"github.com/ftchann/uniswap-compounder/lib/safecast"
	"github.com/ftchann/uniswap-compounder/lib/strategy"
	"github.com/ftchann/uniswap-compounder/lib/tickmath"
	"github.com/ftchann/uniswap-compounder/lib/token"

	"github.com/ethereum/go-ethereum/common"
	ui "github.com/holiman/uint256"
	"go.uber.org/zap"
)

const defaultPriceWindow = 8

type Config struct {
	// Address the manager operates under. It owns the pool position and is
	// the address of the share token.
	Address   common.Address
	Factory   *pool.Factory
	TokenA    *token.Ledger
	TokenB    *token.Ledger
	Fee       int
	TickLower int
	TickUpper int

	ShareSymbol string
	Strategy    strategy.Rebalancer

	// MaxPriceDeviationBps rejects harvests while the pool price is further
	// than this from the average of the last PriceWindow observations.
	// Zero disables the check.
	MaxPriceDeviationBps uint64
	PriceWindow          int

	Logger *zap.Logger
}

type Manager struct {
	address     common.Address
	env         *chain.Env
	factory     *pool.Factory
	token0      *token.Ledger
	token1      *token.Ledger
	fee         int
	poolAddress common.Address
	tickLower   int
	tickUpper   int
	priceRange  strategy.Range
	positionKey common.Hash

	shares         *token.Ledger
	totalLiquidity *ui.Int

	strategy        strategy.Rebalancer
	observations    *prices.Prices
	maxDeviationBps uint64
	logger          *zap.Logger

	locked  atomic.Bool
	pending *request
	nonce   uint64
}

// State is the persistent part of the manager.
type State struct {
	TotalLiquidity *ui.Int
	TotalSupply    *ui.Int
	Balances       map[common.Address]*ui.Int
}

// New creates a manager and registers its state with env.
func New(env *chain.Env, cfg Config) (*Manager, error) {
	if cfg.Factory == nil || cfg.TokenA == nil || cfg.TokenB == nil {
		return nil, errors.New("compounder: factory and tokens are required")
	}
	token0, token1 := cfg.TokenA, cfg.TokenB
	sorted0, _, err := pool.SortTokens(token0.Address, token1.Address)
	if err != nil {
		return nil, err
	}
	if sorted0 != token0.Address {
		token0, token1 = token1, token0
	}

	spacing, ok := cons.TickSpaces[cfg.Fee]
	if !ok {
		return nil, fmt.Errorf("%w: %d", pool.ErrUnsupportedFee, cfg.Fee)
	}
	if cfg.TickLower >= cfg.TickUpper || cfg.TickLower < tickmath.MinTick || cfg.TickUpper > tickmath.MaxTick ||
		cfg.TickLower%spacing != 0 || cfg.TickUpper%spacing != 0 {
		return nil, fmt.Errorf("%w: [%d, %d] spacing %d", ErrInvalidRange, cfg.TickLower, cfg.TickUpper, spacing)
	}

	rebalancer := cfg.Strategy
	if rebalancer == nil {
		rebalancer = strategy.HalfGap{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	window := cfg.PriceWindow
	if window <= 0 {
		window = defaultPriceWindow
	}
	symbol := cfg.ShareSymbol
	if symbol == "" {
		symbol = token0.Symbol + "-" + token1.Symbol + "-LP"
	}

	m := &Manager{
		address:     cfg.Address,
		env:         env,
		factory:     cfg.Factory,
		token0:      token0,
		token1:      token1,
		fee:         cfg.Fee,
		poolAddress: pool.ComputeAddress(cfg.Factory.Address, token0.Address, token1.Address, cfg.Fee),
		tickLower:   cfg.TickLower,
		tickUpper:   cfg.TickUpper,
		priceRange: strategy.Range{
			SqrtPriceLowX96:  tickmath.GetSqrtRatioAtTick(cfg.TickLower),
			SqrtPriceHighX96: tickmath.GetSqrtRatioAtTick(cfg.TickUpper),
		},
		positionKey:     position.Key(cfg.Address, cfg.TickLower, cfg.TickUpper),
		shares:          token.NewLedger(cfg.Address, symbol, 18),
		totalLiquidity:  new(ui.Int),
		strategy:        rebalancer,
		observations:    prices.NewPrices(window),
		maxDeviationBps: cfg.MaxPriceDeviationBps,
		logger:          logger.With(zap.Stringer("manager", cfg.Address)),
	}
	env.Register(m, m.shares)
	return m, nil
}

func (m *Manager) Address() common.Address     { return m.address }
func (m *Manager) Token0() common.Address      { return m.token0.Address }
func (m *Manager) Token1() common.Address      { return m.token1.Address }
func (m *Manager) PoolAddress() common.Address { return m.poolAddress }
func (m *Manager) Range() (tickLower, tickUpper int) {
	return m.tickLower, m.tickUpper
}

// Shares exposes the share ledger for transfers between holders.
func (m *Manager) Shares() *token.Ledger { return m.shares }

func (m *Manager) TotalLiquidity() *ui.Int { return m.totalLiquidity.Clone() }

func (m *Manager) TotalSupply() *ui.Int { return m.shares.TotalSupply() }

func (m *Manager) BalanceOf(owner common.Address) *ui.Int { return m.shares.BalanceOf(owner) }

func (m *Manager) State() State {
	return State{
		TotalLiquidity: m.totalLiquidity.Clone(),
		TotalSupply:    m.shares.TotalSupply(),
		Balances:       m.shares.Holders(),
	}
}

// PositionAmounts returns the token amounts the managed liquidity is worth
// at the current price, plus the idle balances held by the manager.
func (m *Manager) PositionAmounts() (amount0, amount1 *ui.Int, err error) {
	p, err := m.pool()
	if err != nil {
		return nil, nil, err
	}
	sqrtPriceX96, _, _ := p.Slot0()
	amount0, amount1 = la.GetAmountsForLiquidity(sqrtPriceX96, m.priceRange.SqrtPriceLowX96, m.priceRange.SqrtPriceHighX96, m.totalLiquidity)
	amount0.Add(amount0, m.token0.BalanceOf(m.address))
	amount1.Add(amount1, m.token1.BalanceOf(m.address))
	return amount0, amount1, nil
}

// Checkpoint lets chain.Env roll back the manager's own state.
func (m *Manager) Checkpoint() func() {
	totalLiquidity := m.totalLiquidity.Clone()
	nonce := m.nonce
	observations := m.observations.Clone()
	return func() {
		m.totalLiquidity = totalLiquidity
		m.nonce = nonce
		m.observations = observations
	}
}

func (m *Manager) pool() (*pool.Pool, error) {
	p := m.factory.GetPool(m.token0.Address, m.token1.Address, m.fee)
	if p == nil || !p.Initialized() {
		return nil, ErrUninitializedPool
	}
	return p, nil
}

// atomic runs fn under the reentrancy lock inside an env transaction.
// A call made while an operation holds the lock fails with ErrReentrant,
// including one that lost the transaction context on the way.
func (m *Manager) atomic(ctx context.Context, fn func(ctx context.Context) error) error {
	err := m.env.Atomic(ctx, func(ctx context.Context) error {
		if !m.locked.CompareAndSwap(false, true) {
			return ErrReentrant
		}
		defer m.locked.Store(false)
		return fn(ctx)
	})
	if errors.Is(err, chain.ErrBusy) && m.locked.Load() {
		err = fmt.Errorf("%w: %w", ErrReentrant, err)
	}
	if err != nil && !errors.Is(err, ErrArithmeticOverflow) &&
		(errors.Is(err, fullmath.ErrOverflow) || errors.Is(err, safecast.ErrOverflow) || errors.Is(err, strategy.ErrOverflow)) {
		err = fmt.Errorf("%w: %w", ErrArithmeticOverflow, err)
	}
	return err
}

func (m *Manager) asSelf(ctx context.Context) context.Context {
	return chain.WithSender(ctx, m.address)
}

func (m *Manager) balances() strategy.Balances {
	return strategy.Balances{
		Amount0: m.token0.BalanceOf(m.address),
		Amount1: m.token1.BalanceOf(m.address),
	}
}

func bigField(key string, v *ui.Int) zap.Field {
	if v == nil {
		return zap.Skip()
	}
	return zap.Stringer(key, v.ToBig())
}
