package pool

import (
	"context"
	"fmt"

	"github.com/ftchann/uniswap-compounder/lib/chain"
	cons "github.com/ftchann/uniswap-compounder/lib/constants"
	"github.com/ftchann/uniswap-compounder/lib/fullmath"
	"github.com/ftchann/uniswap-compounder/lib/swapmath"
	"github.com/ftchann/uniswap-compounder/lib/tickmath"

	"github.com/ethereum/go-ethereum/common"
	ui "github.com/holiman/uint256"
)

type stepComputations struct {
	sqrtPriceStartX96 *ui.Int
	tickNext          int
	initialized       bool
	sqrtPriceNextX96  *ui.Int
	amountIn          *ui.Int
	amountOut         *ui.Int
	feeAmount         *ui.Int
}

type swapState struct {
	amountSpecifiedRemaining *ui.Int
	amountCalculated         *ui.Int
	sqrtPriceX96             *ui.Int
	tick                     int
	feeGrowthGlobalX128      *ui.Int
	liquidity                *ui.Int
}

// MinPriceLimit and MaxPriceLimit are the most extreme limits a swap accepts.
func MinPriceLimit() *ui.Int { return new(ui.Int).AddUint64(tickmath.MinSqrtRatio, 1) }

func MaxPriceLimit() *ui.Int { return new(ui.Int).SubUint64(tickmath.MaxSqrtRatio, 1) }

// Swap trades token0 for token1 (zeroForOne) or the reverse. amountSpecified
// is two's complement: positive for exact input, negative for exact output.
// The output is sent to recipient first, then the settler must pay the input.
// A nil or zero limit means no limit. Returned deltas are from the pool's
// perspective: positive amounts were received.
func (p *Pool) Swap(ctx context.Context, recipient common.Address, zeroForOne bool, amountSpecified, sqrtPriceLimitX96 *ui.Int, settler SwapSettler, data []byte) (amount0, amount1 *ui.Int, err error) {
	if amountSpecified.IsZero() {
		return nil, nil, ErrZeroAmount
	}
	unlock, err := p.lock()
	if err != nil {
		return nil, nil, err
	}
	defer unlock()

	limit := sqrtPriceLimitX96
	if limit == nil || limit.IsZero() {
		if zeroForOne {
			limit = MinPriceLimit()
		} else {
			limit = MaxPriceLimit()
		}
	}
	if zeroForOne {
		if !limit.Lt(p.SqrtRatioX96) || !limit.Gt(tickmath.MinSqrtRatio) {
			return nil, nil, fmt.Errorf("%w: %s", ErrPriceLimit, limit.ToBig())
		}
	} else if !limit.Gt(p.SqrtRatioX96) || !limit.Lt(tickmath.MaxSqrtRatio) {
		return nil, nil, fmt.Errorf("%w: %s", ErrPriceLimit, limit.ToBig())
	}

	exactInput := amountSpecified.Sign() > 0
	state := swapState{
		amountSpecifiedRemaining: amountSpecified.Clone(),
		amountCalculated:         new(ui.Int),
		sqrtPriceX96:             p.SqrtRatioX96.Clone(),
		tick:                     p.TickCurrent,
		liquidity:                p.Liquidity.Clone(),
	}
	if zeroForOne {
		state.feeGrowthGlobalX128 = p.FeeGrowthGlobal0X128.Clone()
	} else {
		state.feeGrowthGlobalX128 = p.FeeGrowthGlobal1X128.Clone()
	}

	for !state.amountSpecifiedRemaining.IsZero() && !state.sqrtPriceX96.Eq(limit) {
		var step stepComputations
		step.sqrtPriceStartX96 = state.sqrtPriceX96
		step.tickNext, step.initialized = p.TickData.NextInitializedTick(state.tick, zeroForOne)
		step.sqrtPriceNextX96 = tickmath.GetSqrtRatioAtTick(step.tickNext)

		target := step.sqrtPriceNextX96
		if (zeroForOne && target.Lt(limit)) || (!zeroForOne && target.Gt(limit)) {
			target = limit
		}

		state.sqrtPriceX96, step.amountIn, step.amountOut, step.feeAmount = swapmath.ComputeSwapStep(
			state.sqrtPriceX96, target, state.liquidity, state.amountSpecifiedRemaining, p.Fee)

		if exactInput {
			state.amountSpecifiedRemaining.Sub(state.amountSpecifiedRemaining, new(ui.Int).Add(step.amountIn, step.feeAmount))
			state.amountCalculated.Sub(state.amountCalculated, step.amountOut)
		} else {
			state.amountSpecifiedRemaining.Add(state.amountSpecifiedRemaining, step.amountOut)
			state.amountCalculated.Add(state.amountCalculated, new(ui.Int).Add(step.amountIn, step.feeAmount))
		}

		if !state.liquidity.IsZero() {
			state.feeGrowthGlobalX128.Add(state.feeGrowthGlobalX128, fullmath.MulDiv(step.feeAmount, cons.Q128, state.liquidity))
		}

		if state.sqrtPriceX96.Eq(step.sqrtPriceNextX96) {
			if step.initialized {
				var liquidityNet *ui.Int
				if zeroForOne {
					liquidityNet = p.TickData.Cross(step.tickNext, state.feeGrowthGlobalX128, p.FeeGrowthGlobal1X128)
					liquidityNet.Neg(liquidityNet)
				} else {
					liquidityNet = p.TickData.Cross(step.tickNext, p.FeeGrowthGlobal0X128, state.feeGrowthGlobalX128)
				}
				state.liquidity.Add(state.liquidity, liquidityNet)
			}
			if zeroForOne {
				state.tick = step.tickNext - 1
			} else {
				state.tick = step.tickNext
			}
		} else if !state.sqrtPriceX96.Eq(step.sqrtPriceStartX96) {
			state.tick = tickmath.GetTickAtSqrtRatio(state.sqrtPriceX96)
		}
	}

	p.SqrtRatioX96 = state.sqrtPriceX96
	p.TickCurrent = state.tick
	p.Liquidity = state.liquidity
	if zeroForOne {
		p.FeeGrowthGlobal0X128 = state.feeGrowthGlobalX128
	} else {
		p.FeeGrowthGlobal1X128 = state.feeGrowthGlobalX128
	}

	consumed := new(ui.Int).Sub(amountSpecified, state.amountSpecifiedRemaining)
	if zeroForOne == exactInput {
		amount0, amount1 = consumed, state.amountCalculated
	} else {
		amount0, amount1 = state.amountCalculated, consumed
	}

	in, out := p.Token0, p.Token1
	amountIn, amountOut := amount0, amount1
	if !zeroForOne {
		in, out = p.Token1, p.Token0
		amountIn, amountOut = amount1, amount0
	}
	if amountOut.Sign() < 0 {
		if err := out.Transfer(p.Address, recipient, new(ui.Int).Neg(amountOut)); err != nil {
			return nil, nil, err
		}
	}
	balanceBefore := in.BalanceOf(p.Address)
	if err := settler.SwapCallback(chain.WithSender(ctx, p.Address), amount0.Clone(), amount1.Clone(), data); err != nil {
		return nil, nil, fmt.Errorf("swap callback: %w", err)
	}
	if amountIn.Sign() > 0 {
		if err := p.checkPaid(in, balanceBefore, amountIn); err != nil {
			return nil, nil, err
		}
	}
	return amount0, amount1, nil
}
