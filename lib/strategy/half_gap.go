package strategy

import (
	"context"

	cons "github.com/ftchann/uniswap-compounder/lib/constants"
	"github.com/ftchann/uniswap-compounder/lib/fullmath"

	ui "github.com/holiman/uint256"
)

const HalfGapName = "half-gap"

// HalfGap interpolates the target ratio linearly in sqrt price and compares
// it with the raw unit mix of the balances, ignoring the price. It swaps half
// of the gap out of the token in excess.
type HalfGap struct{}

func (HalfGap) IdealRatioAt(sqrtPriceX96 *ui.Int, r Range) *ui.Int {
	if ratio, ok := boundaryRatio(sqrtPriceX96, r); ok {
		return ratio
	}
	return fullmath.MulDiv(
		new(ui.Int).Sub(sqrtPriceX96, r.SqrtPriceLowX96),
		cons.Q96,
		new(ui.Int).Sub(r.SqrtPriceHighX96, r.SqrtPriceLowX96),
	)
}

func (HalfGap) Rebalance(_ context.Context, b Balances, target, _ *ui.Int) (SwapInstruction, error) {
	if instr, ok := boundarySwap(b, target); ok {
		return instr, nil
	}
	total, overflow := new(ui.Int).AddOverflow(b.Amount0, b.Amount1)
	if overflow {
		return SwapInstruction{}, ErrOverflow
	}
	if total.IsZero() {
		return SwapInstruction{}, nil
	}
	current, err := fullmath.MulDivChecked(b.Amount1, cons.Q96, total)
	if err != nil {
		return SwapInstruction{}, err
	}

	switch current.Cmp(target) {
	case -1:
		gap := new(ui.Int).Sub(target, current)
		amount, err := fullmath.MulDivChecked(b.Amount0, gap, cons.Q96)
		if err != nil {
			return SwapInstruction{}, err
		}
		return SwapInstruction{ZeroForOne: true, AmountIn: amount.Rsh(amount, 1)}, nil
	case 1:
		gap := new(ui.Int).Sub(current, target)
		amount, err := fullmath.MulDivChecked(b.Amount1, gap, cons.Q96)
		if err != nil {
			return SwapInstruction{}, err
		}
		return SwapInstruction{ZeroForOne: false, AmountIn: amount.Rsh(amount, 1)}, nil
	}
	return SwapInstruction{}, nil
}
