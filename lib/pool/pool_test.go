package pool

import (
	"context"
	"testing"

	"github.com/ftchann/uniswap-compounder/lib/chain"
	cons "github.com/ftchann/uniswap-compounder/lib/constants"
	"github.com/ftchann/uniswap-compounder/lib/position"
	"github.com/ftchann/uniswap-compounder/lib/tickmath"
	"github.com/ftchann/uniswap-compounder/lib/token"

	"github.com/ethereum/go-ethereum/common"
	ui "github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lukechampine.com/uint128"
)

var (
	factoryAddr = common.HexToAddress("0x1f98431c8ad98523631ae4a59f267346ea31f984")
	lp          = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	trader      = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	e18         = ui.NewInt(1_000_000_000_000_000_000)
)

// payer settles callbacks from its own balance.
type payer struct {
	t       *testing.T
	from    common.Address
	pool    *Pool
	skip    bool
	reenter bool
}

func (s *payer) pay(ctx context.Context, amount0, amount1 *ui.Int) error {
	assert.Equal(s.t, s.pool.Address, chain.Sender(ctx))
	if s.skip {
		return nil
	}
	if s.reenter {
		_, _, err := s.pool.Swap(ctx, s.from, true, ui.NewInt(1), nil, s, nil)
		return err
	}
	if amount0.Sign() > 0 {
		if err := s.pool.Token0.Transfer(s.from, s.pool.Address, amount0); err != nil {
			return err
		}
	}
	if amount1.Sign() > 0 {
		if err := s.pool.Token1.Transfer(s.from, s.pool.Address, amount1); err != nil {
			return err
		}
	}
	return nil
}

func (s *payer) MintCallback(ctx context.Context, amount0, amount1 *ui.Int, _ []byte) error {
	return s.pay(ctx, amount0, amount1)
}

func (s *payer) SwapCallback(ctx context.Context, amount0, amount1 *ui.Int, _ []byte) error {
	return s.pay(ctx, amount0, amount1)
}

func newTestPool(t *testing.T) *Pool {
	t.Helper()
	tokenA := token.NewLedger(common.HexToAddress("0x00000000000000000000000000000000000000ff"), "B", 18)
	tokenB := token.NewLedger(common.HexToAddress("0x0000000000000000000000000000000000000011"), "A", 18)
	f := NewFactory(factoryAddr)
	p, err := f.CreatePool(tokenA, tokenB, 3000)
	require.NoError(t, err)
	require.NoError(t, p.Initialize(cons.Q96.Clone()))

	supply := new(ui.Int).Mul(e18, ui.NewInt(1000))
	for _, who := range []common.Address{lp, trader} {
		require.NoError(t, p.Token0.Issue(who, supply))
		require.NoError(t, p.Token1.Issue(who, supply))
	}
	return p
}

func liquidity(v uint64) uint128.Uint128 {
	return uint128.From64(v)
}

func TestFactory(t *testing.T) {
	tokenA := token.NewLedger(common.HexToAddress("0x00000000000000000000000000000000000000ff"), "B", 18)
	tokenB := token.NewLedger(common.HexToAddress("0x0000000000000000000000000000000000000011"), "A", 18)
	f := NewFactory(factoryAddr)

	p, err := f.CreatePool(tokenA, tokenB, 500)
	require.NoError(t, err)
	assert.Equal(t, tokenB, p.Token0, "tokens are sorted by address")
	assert.Equal(t, 10, p.TickSpacing)
	assert.Equal(t, ComputeAddress(factoryAddr, tokenB.Address, tokenA.Address, 500), p.Address)
	assert.NotEqual(t, p.Address, ComputeAddress(factoryAddr, tokenB.Address, tokenA.Address, 3000))

	assert.Same(t, p, f.GetPool(tokenA.Address, tokenB.Address, 500))
	assert.Same(t, p, f.GetPool(tokenB.Address, tokenA.Address, 500))
	assert.Nil(t, f.GetPool(tokenA.Address, tokenB.Address, 3000))

	_, err = f.CreatePool(tokenB, tokenA, 500)
	assert.ErrorIs(t, err, ErrPoolExists)
	_, err = f.CreatePool(tokenA, tokenA, 500)
	assert.ErrorIs(t, err, ErrIdenticalTokens)
	_, err = f.CreatePool(tokenA, tokenB, 42)
	assert.ErrorIs(t, err, ErrUnsupportedFee)
}

func TestInitialize(t *testing.T) {
	p, err := NewPool(common.Address{}, token.NewLedger(common.Address{}, "A", 18), token.NewLedger(common.Address{}, "B", 18), 3000)
	require.NoError(t, err)

	_, _, err = p.Slot0()
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, _, err = p.Mint(context.Background(), lp, -60, 60, liquidity(1), &payer{t: t, pool: p}, nil)
	assert.ErrorIs(t, err, ErrNotInitialized)

	assert.ErrorIs(t, p.Initialize(cons.One), ErrPriceOutOfRange)
	require.NoError(t, p.Initialize(tickmath.GetSqrtRatioAtTick(120)))
	_, tick, err := p.Slot0()
	require.NoError(t, err)
	assert.Equal(t, 120, tick)
	assert.ErrorIs(t, p.Initialize(cons.Q96), ErrAlreadyInitialized)
}

func TestMintBurnCollect(t *testing.T) {
	p := newTestPool(t)
	ctx := context.Background()
	settler := &payer{t: t, from: lp, pool: p}

	amount0, amount1, err := p.Mint(ctx, lp, -600, 600, liquidity(1_000_000_000_000), settler, nil)
	require.NoError(t, err)
	assert.False(t, amount0.IsZero())
	assert.False(t, amount1.IsZero())
	assert.True(t, p.Token0.BalanceOf(p.Address).Eq(amount0))
	assert.Equal(t, uint64(1_000_000_000_000), p.Liquidity.Uint64())

	_, _, err = p.Mint(ctx, lp, -601, 600, liquidity(1), settler, nil)
	assert.ErrorIs(t, err, ErrInvalidTickRange)
	_, _, err = p.Mint(ctx, lp, -600, 600, uint128.Zero, settler, nil)
	assert.ErrorIs(t, err, ErrZeroAmount)

	burned0, burned1, err := p.Burn(ctx, lp, -600, 600, liquidity(1_000_000_000_000))
	require.NoError(t, err)
	// rounding favours the pool
	assert.False(t, burned0.Gt(amount0))
	assert.False(t, burned1.Gt(amount1))
	assert.True(t, p.Liquidity.IsZero())
	assert.Equal(t, 0, p.TickData.Len())

	_, _, err = p.Burn(ctx, lp, -600, 600, liquidity(1))
	assert.ErrorIs(t, err, ErrInsufficientLiquidity)

	before := p.Token0.BalanceOf(lp)
	got0, got1, err := p.Collect(ctx, lp, lp, -600, 600, cons.MaxUint128, cons.MaxUint128)
	require.NoError(t, err)
	assert.True(t, got0.Eq(burned0))
	assert.True(t, got1.Eq(burned1))
	assert.True(t, p.Token0.BalanceOf(lp).Eq(new(ui.Int).Add(before, burned0)))
}

func TestMintUnderpaid(t *testing.T) {
	p := newTestPool(t)
	_, _, err := p.Mint(context.Background(), lp, -600, 600, liquidity(1_000_000), &payer{t: t, from: lp, pool: p, skip: true}, nil)
	assert.ErrorIs(t, err, ErrUnderpaid)
}

func TestSwapAccruesFees(t *testing.T) {
	p := newTestPool(t)
	ctx := context.Background()
	_, _, err := p.Mint(ctx, lp, -600, 600, liquidity(1_000_000_000_000_000_000), &payer{t: t, from: lp, pool: p}, nil)
	require.NoError(t, err)

	amountIn := ui.NewInt(1_000_000_000_000_000)
	before1 := p.Token1.BalanceOf(trader)
	amount0, amount1, err := p.Swap(ctx, trader, true, amountIn, nil, &payer{t: t, from: trader, pool: p}, nil)
	require.NoError(t, err)
	assert.True(t, amount0.Eq(amountIn))
	assert.Equal(t, -1, amount1.Sign())
	assert.True(t, p.SqrtRatioX96.Lt(cons.Q96))
	assert.True(t, p.Token1.BalanceOf(trader).Eq(new(ui.Int).Sub(before1, amount1)))
	assert.False(t, p.FeeGrowthGlobal0X128.IsZero())

	_, _, err = p.Burn(ctx, lp, -600, 600, uint128.Zero)
	require.NoError(t, err)
	pos := p.Position(position.Key(lp, -600, 600))
	require.NotNil(t, pos)
	// 0.3% of the input, minus rounding
	fee := new(ui.Int).Div(new(ui.Int).Mul(amountIn, ui.NewInt(3)), ui.NewInt(1000))
	assert.True(t, new(ui.Int).Sub(fee, pos.TokensOwed0).Lt(ui.NewInt(3)), "owed %v want about %v", pos.TokensOwed0, fee)
}

func TestSwapCrossesTicks(t *testing.T) {
	p := newTestPool(t)
	ctx := context.Background()
	settler := &payer{t: t, from: lp, pool: p}
	_, _, err := p.Mint(ctx, lp, -60, 60, liquidity(1_000_000_000_000), settler, nil)
	require.NoError(t, err)

	// push the price above the position, all its liquidity is left behind
	_, _, err = p.Swap(ctx, trader, false, ui.NewInt(1_000_000_000_000), nil, &payer{t: t, from: trader, pool: p}, nil)
	require.NoError(t, err)
	assert.True(t, p.Liquidity.IsZero())
	assert.GreaterOrEqual(t, p.TickCurrent, 60)
	assert.True(t, p.SqrtRatioX96.Eq(MaxPriceLimit()))
}

func TestSwapPriceLimit(t *testing.T) {
	p := newTestPool(t)
	_, _, err := p.Swap(context.Background(), trader, true, ui.NewInt(1), new(ui.Int).AddUint64(cons.Q96, 1), &payer{t: t, from: trader, pool: p}, nil)
	assert.ErrorIs(t, err, ErrPriceLimit)
	_, _, err = p.Swap(context.Background(), trader, true, new(ui.Int), nil, &payer{t: t, from: trader, pool: p}, nil)
	assert.ErrorIs(t, err, ErrZeroAmount)
}

func TestSwapReentrancy(t *testing.T) {
	p := newTestPool(t)
	ctx := context.Background()
	_, _, err := p.Mint(ctx, lp, -600, 600, liquidity(1_000_000_000_000), &payer{t: t, from: lp, pool: p}, nil)
	require.NoError(t, err)

	_, _, err = p.Swap(ctx, trader, true, ui.NewInt(1000), nil, &payer{t: t, from: trader, pool: p, reenter: true}, nil)
	assert.ErrorIs(t, err, ErrLocked)
	assert.False(t, p.locked)
}

func TestFlash(t *testing.T) {
	p := newTestPool(t)
	ctx := chain.WithSender(context.Background(), trader)
	assert.ErrorIs(t, p.Flash(ctx, e18, e18), ErrNoLiquidity)

	_, _, err := p.Mint(ctx, lp, -600, 600, liquidity(1_000_000_000_000), &payer{t: t, from: lp, pool: p}, nil)
	require.NoError(t, err)

	before := p.Token0.BalanceOf(trader)
	require.NoError(t, p.Flash(ctx, e18, new(ui.Int)))
	paid := new(ui.Int).Sub(before, p.Token0.BalanceOf(trader))
	assert.Equal(t, uint64(3_000_000_000_000_000), paid.Uint64())
	assert.False(t, p.FeeGrowthGlobal0X128.IsZero())
	assert.True(t, p.FeeGrowthGlobal1X128.IsZero())
}

func TestCheckpoint(t *testing.T) {
	p := newTestPool(t)
	restore := p.Checkpoint()
	_, _, err := p.Mint(context.Background(), lp, -600, 600, liquidity(1_000_000), &payer{t: t, from: lp, pool: p}, nil)
	require.NoError(t, err)
	restore()

	assert.True(t, p.Liquidity.IsZero())
	assert.Nil(t, p.Position(position.Key(lp, -600, 600)))
	assert.Equal(t, 0, p.TickData.Len())
}
