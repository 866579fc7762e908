package sqrtprice_math

import (
	"math/big"

	cons "github.com/ftchann/uniswap-compounder/lib/constants"
	fm "github.com/ftchann/uniswap-compounder/lib/fullmath"

	ui "github.com/holiman/uint256"
)

func sortRatios(a, b *ui.Int) (*ui.Int, *ui.Int) {
	if a.Gt(b) {
		return b, a
	}
	return a, b
}

// GetPrice returns floor(sqrtPriceX96^2 / 2^192), the token1 per token0 price.
func GetPrice(sqrtPriceX96 *ui.Int) *big.Int {
	p := sqrtPriceX96.ToBig()
	p.Mul(p, p)
	return p.Rsh(p, 192)
}

// GetAmount0Delta returns liquidity * (sqrtB - sqrtA) / (sqrtA * sqrtB).
func GetAmount0Delta(sqrtRatioAX96, sqrtRatioBX96, liquidity *ui.Int, roundUp bool) *ui.Int {
	sqrtRatioAX96, sqrtRatioBX96 = sortRatios(sqrtRatioAX96, sqrtRatioBX96)

	numerator1 := new(ui.Int).Lsh(liquidity, 96)
	numerator2 := new(ui.Int).Sub(sqrtRatioBX96, sqrtRatioAX96)

	if roundUp {
		return fm.DivRoundingUp(fm.MulDivRoundingUp(numerator1, numerator2, sqrtRatioBX96), sqrtRatioAX96)
	}
	res := fm.MulDiv(numerator1, numerator2, sqrtRatioBX96)
	return res.Div(res, sqrtRatioAX96)
}

// GetAmount1Delta returns liquidity * (sqrtB - sqrtA).
func GetAmount1Delta(sqrtRatioAX96, sqrtRatioBX96, liquidity *ui.Int, roundUp bool) *ui.Int {
	sqrtRatioAX96, sqrtRatioBX96 = sortRatios(sqrtRatioAX96, sqrtRatioBX96)
	diff := new(ui.Int).Sub(sqrtRatioBX96, sqrtRatioAX96)
	if roundUp {
		return fm.MulDivRoundingUp(liquidity, diff, cons.Q96)
	}
	return fm.MulDiv(liquidity, diff, cons.Q96)
}

// GetAmount0DeltaSigned takes a two's complement liquidity delta. Added
// liquidity rounds up (owed to the pool), removed liquidity rounds down.
func GetAmount0DeltaSigned(sqrtRatioAX96, sqrtRatioBX96, liquidity *ui.Int) *ui.Int {
	if liquidity.Sign() < 0 {
		amount := GetAmount0Delta(sqrtRatioAX96, sqrtRatioBX96, new(ui.Int).Neg(liquidity), false)
		return amount.Neg(amount)
	}
	return GetAmount0Delta(sqrtRatioAX96, sqrtRatioBX96, liquidity, true)
}

func GetAmount1DeltaSigned(sqrtRatioAX96, sqrtRatioBX96, liquidity *ui.Int) *ui.Int {
	if liquidity.Sign() < 0 {
		amount := GetAmount1Delta(sqrtRatioAX96, sqrtRatioBX96, new(ui.Int).Neg(liquidity), false)
		return amount.Neg(amount)
	}
	return GetAmount1Delta(sqrtRatioAX96, sqrtRatioBX96, liquidity, true)
}

// GetNextSqrtPriceFromInput moves the price by an input amount of token0
// (zeroForOne) or token1, rounding so the pool never gives away too much.
func GetNextSqrtPriceFromInput(sqrtPX96, liquidity, amountIn *ui.Int, zeroForOne bool) *ui.Int {
	if zeroForOne {
		return nextSqrtPriceFromAmount0RoundingUp(sqrtPX96, liquidity, amountIn, true)
	}
	return nextSqrtPriceFromAmount1RoundingDown(sqrtPX96, liquidity, amountIn, true)
}

func GetNextSqrtPriceFromOutput(sqrtPX96, liquidity, amountOut *ui.Int, zeroForOne bool) *ui.Int {
	if zeroForOne {
		return nextSqrtPriceFromAmount1RoundingDown(sqrtPX96, liquidity, amountOut, false)
	}
	return nextSqrtPriceFromAmount0RoundingUp(sqrtPX96, liquidity, amountOut, false)
}

func nextSqrtPriceFromAmount0RoundingUp(sqrtPX96, liquidity, amount *ui.Int, add bool) *ui.Int {
	if amount.IsZero() {
		return sqrtPX96.Clone()
	}
	numerator1 := new(ui.Int).Lsh(liquidity, 96)
	product, overflow := new(ui.Int).MulOverflow(amount, sqrtPX96)

	if add {
		if !overflow {
			denominator, carry := new(ui.Int).AddOverflow(numerator1, product)
			if !carry {
				return fm.MulDivRoundingUp(numerator1, sqrtPX96, denominator)
			}
		}
		return fm.DivRoundingUp(numerator1, new(ui.Int).Add(new(ui.Int).Div(numerator1, sqrtPX96), amount))
	}
	if overflow || !numerator1.Gt(product) {
		panic("sqrtprice_math: output exceeds reserves")
	}
	return fm.MulDivRoundingUp(numerator1, sqrtPX96, new(ui.Int).Sub(numerator1, product))
}

func nextSqrtPriceFromAmount1RoundingDown(sqrtPX96, liquidity, amount *ui.Int, add bool) *ui.Int {
	if add {
		var quotient *ui.Int
		if !amount.Gt(cons.MaxUint160) {
			quotient = new(ui.Int).Div(new(ui.Int).Lsh(amount, 96), liquidity)
		} else {
			quotient = fm.MulDiv(amount, cons.Q96, liquidity)
		}
		return new(ui.Int).Add(sqrtPX96, quotient)
	}

	var quotient *ui.Int
	if !amount.Gt(cons.MaxUint160) {
		quotient = fm.DivRoundingUp(new(ui.Int).Lsh(amount, 96), liquidity)
	} else {
		quotient = fm.MulDivRoundingUp(amount, cons.Q96, liquidity)
	}
	if !sqrtPX96.Gt(quotient) {
		panic("sqrtprice_math: output exceeds reserves")
	}
	return new(ui.Int).Sub(sqrtPX96, quotient)
}
