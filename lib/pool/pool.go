package pool

import (
	"context"
	"fmt"

	"github.com/ftchann/uniswap-compounder/lib/chain"
	cons "github.com/ftchann/uniswap-compounder/lib/constants"
	"github.com/ftchann/uniswap-compounder/lib/fullmath"
	"github.com/ftchann/uniswap-compounder/lib/position"
	"github.com/ftchann/uniswap-compounder/lib/safecast"
	"github.com/ftchann/uniswap-compounder/lib/sqrtprice_math"
	td "github.com/ftchann/uniswap-compounder/lib/tickdata"
	"github.com/ftchann/uniswap-compounder/lib/tickmath"
	"github.com/ftchann/uniswap-compounder/lib/token"

	"github.com/ethereum/go-ethereum/common"
	ui "github.com/holiman/uint256"
	"lukechampine.com/uint128"
)

// MintSettler pays for liquidity added through Mint. The amounts owed must
// reach the pool's balance before the callback returns.
type MintSettler interface {
	MintCallback(ctx context.Context, amount0Owed, amount1Owed *ui.Int, data []byte) error
}

// SwapSettler pays the input side of a swap. Deltas are two's complement,
// positive amounts are owed to the pool.
type SwapSettler interface {
	SwapCallback(ctx context.Context, amount0Delta, amount1Delta *ui.Int, data []byte) error
}

type Pool struct {
	Address              common.Address
	Token0               *token.Ledger
	Token1               *token.Ledger
	Fee                  int
	TickSpacing          int
	SqrtRatioX96         *ui.Int
	TickCurrent          int
	Liquidity            *ui.Int
	FeeGrowthGlobal0X128 *ui.Int
	FeeGrowthGlobal1X128 *ui.Int
	TickData             *td.TickData
	Positions            map[common.Hash]*position.Info

	locked bool
}

// NewPool creates an uninitialized pool. token0 must sort before token1.
func NewPool(address common.Address, token0, token1 *token.Ledger, fee int) (*Pool, error) {
	tickSpacing, ok := cons.TickSpaces[fee]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedFee, fee)
	}
	return &Pool{
		Address:              address,
		Token0:               token0,
		Token1:               token1,
		Fee:                  fee,
		TickSpacing:          tickSpacing,
		Liquidity:            new(ui.Int),
		FeeGrowthGlobal0X128: new(ui.Int),
		FeeGrowthGlobal1X128: new(ui.Int),
		TickData:             td.NewTickData(tickSpacing),
		Positions:            make(map[common.Hash]*position.Info),
	}, nil
}

func (p *Pool) Initialize(sqrtRatioX96 *ui.Int) error {
	if p.Initialized() {
		return ErrAlreadyInitialized
	}
	if sqrtRatioX96.Lt(tickmath.MinSqrtRatio) || !sqrtRatioX96.Lt(tickmath.MaxSqrtRatio) {
		return fmt.Errorf("%w: %s", ErrPriceOutOfRange, sqrtRatioX96.ToBig())
	}
	p.SqrtRatioX96 = sqrtRatioX96.Clone()
	p.TickCurrent = tickmath.GetTickAtSqrtRatio(sqrtRatioX96)
	return nil
}

func (p *Pool) Initialized() bool {
	return p.SqrtRatioX96 != nil
}

// Slot0 returns the current price and tick.
func (p *Pool) Slot0() (sqrtPriceX96 *ui.Int, tick int, err error) {
	if !p.Initialized() {
		return nil, 0, ErrNotInitialized
	}
	return p.SqrtRatioX96.Clone(), p.TickCurrent, nil
}

// Position returns a copy of the position state, nil if it never existed.
func (p *Pool) Position(key common.Hash) *position.Info {
	if pos, ok := p.Positions[key]; ok {
		return pos.Clone()
	}
	return nil
}

func (p *Pool) Clone() *Pool {
	positions := make(map[common.Hash]*position.Info, len(p.Positions))
	for k, v := range p.Positions {
		positions[k] = v.Clone()
	}
	var sqrtRatio *ui.Int
	if p.SqrtRatioX96 != nil {
		sqrtRatio = p.SqrtRatioX96.Clone()
	}
	return &Pool{
		Address:              p.Address,
		Token0:               p.Token0,
		Token1:               p.Token1,
		Fee:                  p.Fee,
		TickSpacing:          p.TickSpacing,
		SqrtRatioX96:         sqrtRatio,
		TickCurrent:          p.TickCurrent,
		Liquidity:            p.Liquidity.Clone(),
		FeeGrowthGlobal0X128: p.FeeGrowthGlobal0X128.Clone(),
		FeeGrowthGlobal1X128: p.FeeGrowthGlobal1X128.Clone(),
		TickData:             p.TickData.Clone(),
		Positions:            positions,
		locked:               p.locked,
	}
}

// Checkpoint lets the pool take part in chain.Env transactions. The token
// ledgers are journaled on their own.
func (p *Pool) Checkpoint() func() {
	saved := p.Clone()
	return func() { *p = *saved }
}

func (p *Pool) lock() (unlock func(), err error) {
	if !p.Initialized() {
		return nil, ErrNotInitialized
	}
	if p.locked {
		return nil, ErrLocked
	}
	p.locked = true
	return func() { p.locked = false }, nil
}

func (p *Pool) checkTicks(tickLower, tickUpper int) error {
	if tickLower >= tickUpper || tickLower < tickmath.MinTick || tickUpper > tickmath.MaxTick ||
		tickLower%p.TickSpacing != 0 || tickUpper%p.TickSpacing != 0 {
		return fmt.Errorf("%w: [%d, %d] spacing %d", ErrInvalidTickRange, tickLower, tickUpper, p.TickSpacing)
	}
	return nil
}

// Mint adds liquidity for owner. The settler is called back with the
// amounts owed and must transfer them to the pool.
func (p *Pool) Mint(ctx context.Context, owner common.Address, tickLower, tickUpper int, amount uint128.Uint128, settler MintSettler, data []byte) (amount0, amount1 *ui.Int, err error) {
	if amount.IsZero() {
		return nil, nil, ErrZeroAmount
	}
	unlock, err := p.lock()
	if err != nil {
		return nil, nil, err
	}
	defer unlock()

	_, amount0, amount1, err = p.modifyPosition(owner, tickLower, tickUpper, safecast.FromUint128(amount))
	if err != nil {
		return nil, nil, err
	}

	balance0Before := p.Token0.BalanceOf(p.Address)
	balance1Before := p.Token1.BalanceOf(p.Address)
	if err := settler.MintCallback(chain.WithSender(ctx, p.Address), amount0.Clone(), amount1.Clone(), data); err != nil {
		return nil, nil, fmt.Errorf("mint callback: %w", err)
	}
	if err := p.checkPaid(p.Token0, balance0Before, amount0); err != nil {
		return nil, nil, err
	}
	if err := p.checkPaid(p.Token1, balance1Before, amount1); err != nil {
		return nil, nil, err
	}
	return amount0, amount1, nil
}

func (p *Pool) checkPaid(tkn *token.Ledger, before, owed *ui.Int) error {
	if owed.IsZero() {
		return nil
	}
	if new(ui.Int).Add(before, owed).Gt(tkn.BalanceOf(p.Address)) {
		return fmt.Errorf("%w: %s %s", ErrUnderpaid, owed.ToBig(), tkn.Symbol)
	}
	return nil
}

// Burn removes liquidity from owner's position. The released amounts are
// credited to the position's tokens owed, Collect pays them out. Burning
// zero only updates the fees owed.
func (p *Pool) Burn(ctx context.Context, owner common.Address, tickLower, tickUpper int, amount uint128.Uint128) (amount0, amount1 *ui.Int, err error) {
	unlock, err := p.lock()
	if err != nil {
		return nil, nil, err
	}
	defer unlock()

	delta := safecast.FromUint128(amount)
	delta.Neg(delta)
	pos, amount0, amount1, err := p.modifyPosition(owner, tickLower, tickUpper, delta)
	if err != nil {
		return nil, nil, err
	}
	amount0.Neg(amount0)
	amount1.Neg(amount1)
	pos.TokensOwed0.Add(pos.TokensOwed0, amount0)
	pos.TokensOwed1.Add(pos.TokensOwed1, amount1)
	return amount0, amount1, nil
}

// Collect pays up to the requested amounts of tokens owed to recipient.
func (p *Pool) Collect(ctx context.Context, owner, recipient common.Address, tickLower, tickUpper int, amount0Requested, amount1Requested *ui.Int) (amount0, amount1 *ui.Int, err error) {
	unlock, err := p.lock()
	if err != nil {
		return nil, nil, err
	}
	defer unlock()

	pos, ok := p.Positions[position.Key(owner, tickLower, tickUpper)]
	if !ok {
		return new(ui.Int), new(ui.Int), nil
	}
	amount0 = minInt(amount0Requested, pos.TokensOwed0)
	amount1 = minInt(amount1Requested, pos.TokensOwed1)

	if !amount0.IsZero() {
		pos.TokensOwed0.Sub(pos.TokensOwed0, amount0)
		if err := p.Token0.Transfer(p.Address, recipient, amount0); err != nil {
			return nil, nil, err
		}
	}
	if !amount1.IsZero() {
		pos.TokensOwed1.Sub(pos.TokensOwed1, amount1)
		if err := p.Token1.Transfer(p.Address, recipient, amount1); err != nil {
			return nil, nil, err
		}
	}
	return amount0, amount1, nil
}

// Flash charges the flash fee on the borrowed amounts to the caller and
// distributes it to in-range liquidity.
func (p *Pool) Flash(ctx context.Context, amount0, amount1 *ui.Int) error {
	unlock, err := p.lock()
	if err != nil {
		return err
	}
	defer unlock()

	if p.Liquidity.IsZero() {
		return ErrNoLiquidity
	}
	payer := chain.Sender(ctx)
	fee := ui.NewInt(uint64(p.Fee))
	fee0 := fullmath.MulDivRoundingUp(amount0, fee, cons.FeeDenominator)
	fee1 := fullmath.MulDivRoundingUp(amount1, fee, cons.FeeDenominator)

	if !fee0.IsZero() {
		if err := p.Token0.Transfer(payer, p.Address, fee0); err != nil {
			return fmt.Errorf("flash fee: %w", err)
		}
		p.FeeGrowthGlobal0X128 = new(ui.Int).Add(p.FeeGrowthGlobal0X128, fullmath.MulDiv(fee0, cons.Q128, p.Liquidity))
	}
	if !fee1.IsZero() {
		if err := p.Token1.Transfer(payer, p.Address, fee1); err != nil {
			return fmt.Errorf("flash fee: %w", err)
		}
		p.FeeGrowthGlobal1X128 = new(ui.Int).Add(p.FeeGrowthGlobal1X128, fullmath.MulDiv(fee1, cons.Q128, p.Liquidity))
	}
	return nil
}

// modifyPosition updates ticks and position for a two's complement
// liquidity delta and returns the signed token amounts it is worth.
func (p *Pool) modifyPosition(owner common.Address, tickLower, tickUpper int, liquidityDelta *ui.Int) (pos *position.Info, amount0, amount1 *ui.Int, err error) {
	if err := p.checkTicks(tickLower, tickUpper); err != nil {
		return nil, nil, nil, err
	}
	key := position.Key(owner, tickLower, tickUpper)
	pos, ok := p.Positions[key]
	if !ok {
		if liquidityDelta.Sign() <= 0 {
			return nil, nil, nil, ErrNoPosition
		}
		pos = position.NewPosition()
	}
	if liquidityDelta.Sign() < 0 && pos.Liquidity.Lt(new(ui.Int).Neg(liquidityDelta)) {
		return nil, nil, nil, fmt.Errorf("%w: have %s", ErrInsufficientLiquidity, pos.Liquidity.ToBig())
	}

	var flippedLower, flippedUpper bool
	if !liquidityDelta.IsZero() {
		flippedLower = p.TickData.UpdateTick(tickLower, p.TickCurrent, liquidityDelta, p.FeeGrowthGlobal0X128, p.FeeGrowthGlobal1X128, false)
		flippedUpper = p.TickData.UpdateTick(tickUpper, p.TickCurrent, liquidityDelta, p.FeeGrowthGlobal0X128, p.FeeGrowthGlobal1X128, true)
	}
	inside0, inside1 := p.TickData.GetFeeGrowthInside(tickLower, tickUpper, p.TickCurrent, p.FeeGrowthGlobal0X128, p.FeeGrowthGlobal1X128)
	if err := pos.Update(liquidityDelta, inside0, inside1); err != nil {
		return nil, nil, nil, ErrNoPosition
	}
	p.Positions[key] = pos
	if liquidityDelta.Sign() < 0 {
		if flippedLower {
			p.TickData.Clear(tickLower)
		}
		if flippedUpper {
			p.TickData.Clear(tickUpper)
		}
	}

	sqrtRatioA := tickmath.GetSqrtRatioAtTick(tickLower)
	sqrtRatioB := tickmath.GetSqrtRatioAtTick(tickUpper)
	switch {
	case p.TickCurrent < tickLower:
		amount0 = sqrtprice_math.GetAmount0DeltaSigned(sqrtRatioA, sqrtRatioB, liquidityDelta)
		amount1 = new(ui.Int)
	case p.TickCurrent < tickUpper:
		amount0 = sqrtprice_math.GetAmount0DeltaSigned(p.SqrtRatioX96, sqrtRatioB, liquidityDelta)
		amount1 = sqrtprice_math.GetAmount1DeltaSigned(sqrtRatioA, p.SqrtRatioX96, liquidityDelta)
		p.Liquidity = new(ui.Int).Add(p.Liquidity, liquidityDelta)
	default:
		amount0 = new(ui.Int)
		amount1 = sqrtprice_math.GetAmount1DeltaSigned(sqrtRatioA, sqrtRatioB, liquidityDelta)
	}
	return pos, amount0, amount1, nil
}

func minInt(a, b *ui.Int) *ui.Int {
	if a.Lt(b) {
		return a.Clone()
	}
	return b.Clone()
}
