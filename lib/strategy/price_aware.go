package strategy

import (
	"context"

	cons "github.com/ftchann/uniswap-compounder/lib/constants"
	"github.com/ftchann/uniswap-compounder/lib/fullmath"

	ui "github.com/holiman/uint256"
)

const PriceAwareName = "price-aware"

// PriceAware targets the share of value the range holds in token1 at the
// current price and swaps exactly the value gap, pool fees aside.
type PriceAware struct{}

func (PriceAware) IdealRatioAt(sqrtPriceX96 *ui.Int, r Range) *ui.Int {
	if ratio, ok := boundaryRatio(sqrtPriceX96, r); ok {
		return ratio
	}
	// per unit of liquidity: token1 held and token0 held valued in token1
	value1 := new(ui.Int).Sub(sqrtPriceX96, r.SqrtPriceLowX96)
	value0 := fullmath.MulDiv(new(ui.Int).Sub(r.SqrtPriceHighX96, sqrtPriceX96), sqrtPriceX96, r.SqrtPriceHighX96)
	return fullmath.MulDiv(value1, cons.Q96, new(ui.Int).Add(value1, value0))
}

func (PriceAware) Rebalance(_ context.Context, b Balances, target, sqrtPriceX96 *ui.Int) (SwapInstruction, error) {
	if instr, ok := boundarySwap(b, target); ok {
		return instr, nil
	}
	value0, err := toToken1(b.Amount0, sqrtPriceX96)
	if err != nil {
		return SwapInstruction{}, err
	}
	total, overflow := new(ui.Int).AddOverflow(value0, b.Amount1)
	if overflow {
		return SwapInstruction{}, ErrOverflow
	}
	desired1, err := fullmath.MulDivChecked(total, target, cons.Q96)
	if err != nil {
		return SwapInstruction{}, err
	}

	switch desired1.Cmp(b.Amount1) {
	case 1:
		gap := new(ui.Int).Sub(desired1, b.Amount1)
		amount0, err := toToken0(gap, sqrtPriceX96)
		if err != nil {
			return SwapInstruction{}, err
		}
		if amount0.Gt(b.Amount0) {
			amount0 = b.Amount0.Clone()
		}
		return SwapInstruction{ZeroForOne: true, AmountIn: amount0}, nil
	case -1:
		return SwapInstruction{ZeroForOne: false, AmountIn: new(ui.Int).Sub(b.Amount1, desired1)}, nil
	}
	return SwapInstruction{}, nil
}

// toToken1 values an amount of token0 at sqrtPriceX96^2 / 2^192.
func toToken1(amount0, sqrtPriceX96 *ui.Int) (*ui.Int, error) {
	v, err := fullmath.MulDivChecked(amount0, sqrtPriceX96, cons.Q96)
	if err != nil {
		return nil, err
	}
	return fullmath.MulDivChecked(v, sqrtPriceX96, cons.Q96)
}

func toToken0(amount1, sqrtPriceX96 *ui.Int) (*ui.Int, error) {
	v, err := fullmath.MulDivChecked(amount1, cons.Q96, sqrtPriceX96)
	if err != nil {
		return nil, err
	}
	return fullmath.MulDivChecked(v, cons.Q96, sqrtPriceX96)
}
