package swapmath

import (
	cons "github.com/ftchann/uniswap-compounder/lib/constants"
	fm "github.com/ftchann/uniswap-compounder/lib/fullmath"
	sqrtmath "github.com/ftchann/uniswap-compounder/lib/sqrtprice_math"

	ui "github.com/holiman/uint256"
)

// ComputeSwapStep swaps within a single price interval. amountRemaining is
// signed: positive for exact input, negative for exact output. The price
// moves towards sqrtRatioTargetX96 but never past it.
func ComputeSwapStep(sqrtRatioCurrentX96, sqrtRatioTargetX96, liquidity, amountRemaining *ui.Int, feePips int) (sqrtRatioNextX96, amountIn, amountOut, feeAmount *ui.Int) {
	zeroForOne := !sqrtRatioCurrentX96.Lt(sqrtRatioTargetX96)
	exactIn := amountRemaining.Sign() >= 0
	fee := ui.NewInt(uint64(feePips))
	feeComplement := new(ui.Int).Sub(cons.FeeDenominator, fee)

	var amountOutRequested *ui.Int
	if exactIn {
		amountRemainingLessFee := fm.MulDiv(amountRemaining, feeComplement, cons.FeeDenominator)
		if zeroForOne {
			amountIn = sqrtmath.GetAmount0Delta(sqrtRatioTargetX96, sqrtRatioCurrentX96, liquidity, true)
		} else {
			amountIn = sqrtmath.GetAmount1Delta(sqrtRatioCurrentX96, sqrtRatioTargetX96, liquidity, true)
		}
		if !amountRemainingLessFee.Lt(amountIn) {
			sqrtRatioNextX96 = sqrtRatioTargetX96.Clone()
		} else {
			sqrtRatioNextX96 = sqrtmath.GetNextSqrtPriceFromInput(sqrtRatioCurrentX96, liquidity, amountRemainingLessFee, zeroForOne)
		}
	} else {
		amountOutRequested = new(ui.Int).Neg(amountRemaining)
		if zeroForOne {
			amountOut = sqrtmath.GetAmount1Delta(sqrtRatioTargetX96, sqrtRatioCurrentX96, liquidity, false)
		} else {
			amountOut = sqrtmath.GetAmount0Delta(sqrtRatioCurrentX96, sqrtRatioTargetX96, liquidity, false)
		}
		if !amountOutRequested.Lt(amountOut) {
			sqrtRatioNextX96 = sqrtRatioTargetX96.Clone()
		} else {
			sqrtRatioNextX96 = sqrtmath.GetNextSqrtPriceFromOutput(sqrtRatioCurrentX96, liquidity, amountOutRequested, zeroForOne)
		}
	}

	reachedTarget := sqrtRatioTargetX96.Eq(sqrtRatioNextX96)

	if zeroForOne {
		if !(reachedTarget && exactIn) {
			amountIn = sqrtmath.GetAmount0Delta(sqrtRatioNextX96, sqrtRatioCurrentX96, liquidity, true)
		}
		if !(reachedTarget && !exactIn) {
			amountOut = sqrtmath.GetAmount1Delta(sqrtRatioNextX96, sqrtRatioCurrentX96, liquidity, false)
		}
	} else {
		if !(reachedTarget && exactIn) {
			amountIn = sqrtmath.GetAmount1Delta(sqrtRatioCurrentX96, sqrtRatioNextX96, liquidity, true)
		}
		if !(reachedTarget && !exactIn) {
			amountOut = sqrtmath.GetAmount0Delta(sqrtRatioCurrentX96, sqrtRatioNextX96, liquidity, false)
		}
	}

	// cap the output amount to not exceed the remaining output amount
	if !exactIn && amountOut.Gt(amountOutRequested) {
		amountOut = amountOutRequested.Clone()
	}

	if exactIn && !reachedTarget {
		// the remainder of the maximum input is taken as fee
		feeAmount = new(ui.Int).Sub(amountRemaining, amountIn)
	} else {
		feeAmount = fm.MulDivRoundingUp(amountIn, fee, feeComplement)
	}
	return
}
