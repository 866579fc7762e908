package liquidity_amounts

import (
	cons "github.com/ftchann/uniswap-compounder/lib/constants"
	"github.com/ftchann/uniswap-compounder/lib/fullmath"
	sqrtmath "github.com/ftchann/uniswap-compounder/lib/sqrtprice_math"

	ui "github.com/holiman/uint256"
)

func sorted(a, b *ui.Int) (*ui.Int, *ui.Int) {
	if a.Gt(b) {
		return b, a
	}
	return a, b
}

func GetLiquidityForAmount0(sqrtRatioAX96, sqrtRatioBX96, amount0 *ui.Int) *ui.Int {
	sqrtRatioAX96, sqrtRatioBX96 = sorted(sqrtRatioAX96, sqrtRatioBX96)
	intermediate := fullmath.MulDiv(sqrtRatioAX96, sqrtRatioBX96, cons.Q96)
	return fullmath.MulDiv(amount0, intermediate, new(ui.Int).Sub(sqrtRatioBX96, sqrtRatioAX96))
}

func GetLiquidityForAmount1(sqrtRatioAX96, sqrtRatioBX96, amount1 *ui.Int) *ui.Int {
	sqrtRatioAX96, sqrtRatioBX96 = sorted(sqrtRatioAX96, sqrtRatioBX96)
	return fullmath.MulDiv(amount1, cons.Q96, new(ui.Int).Sub(sqrtRatioBX96, sqrtRatioAX96))
}

// GetLiquidityForAmounts returns the largest liquidity that the two amounts
// can fund in the range at the given price. Whichever token is in excess is
// left over.
func GetLiquidityForAmounts(sqrtRatioX96, sqrtRatioAX96, sqrtRatioBX96, amount0, amount1 *ui.Int) *ui.Int {
	sqrtRatioAX96, sqrtRatioBX96 = sorted(sqrtRatioAX96, sqrtRatioBX96)
	switch {
	case !sqrtRatioX96.Gt(sqrtRatioAX96):
		return GetLiquidityForAmount0(sqrtRatioAX96, sqrtRatioBX96, amount0)
	case sqrtRatioX96.Lt(sqrtRatioBX96):
		liquidity0 := GetLiquidityForAmount0(sqrtRatioX96, sqrtRatioBX96, amount0)
		liquidity1 := GetLiquidityForAmount1(sqrtRatioAX96, sqrtRatioX96, amount1)
		if liquidity0.Lt(liquidity1) {
			return liquidity0
		}
		return liquidity1
	default:
		return GetLiquidityForAmount1(sqrtRatioAX96, sqrtRatioBX96, amount1)
	}
}

// GetAmountsForLiquidity is the inverse of GetLiquidityForAmounts, rounding down.
func GetAmountsForLiquidity(sqrtRatioX96, sqrtRatioAX96, sqrtRatioBX96, liquidity *ui.Int) (amount0, amount1 *ui.Int) {
	sqrtRatioAX96, sqrtRatioBX96 = sorted(sqrtRatioAX96, sqrtRatioBX96)
	switch {
	case !sqrtRatioX96.Gt(sqrtRatioAX96):
		return sqrtmath.GetAmount0Delta(sqrtRatioAX96, sqrtRatioBX96, liquidity, false), new(ui.Int)
	case sqrtRatioX96.Lt(sqrtRatioBX96):
		return sqrtmath.GetAmount0Delta(sqrtRatioX96, sqrtRatioBX96, liquidity, false),
			sqrtmath.GetAmount1Delta(sqrtRatioAX96, sqrtRatioX96, liquidity, false)
	default:
		return new(ui.Int), sqrtmath.GetAmount1Delta(sqrtRatioAX96, sqrtRatioBX96, liquidity, false)
	}
}
