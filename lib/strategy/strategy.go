// Package strategy decides how idle balances are swapped before they are
// deposited into a fixed price range.
package strategy

import (
	"context"
	"errors"
	"fmt"

	cons "github.com/ftchann/uniswap-compounder/lib/constants"

	ui "github.com/holiman/uint256"
)

var ErrOverflow = errors.New("strategy: arithmetic overflow")

// Range holds the sqrt prices of the range boundaries.
type Range struct {
	SqrtPriceLowX96  *ui.Int
	SqrtPriceHighX96 *ui.Int
}

type Balances struct {
	Amount0 *ui.Int
	Amount1 *ui.Int
}

// SwapInstruction is an exact input swap. A zero instruction means no swap.
type SwapInstruction struct {
	ZeroForOne bool
	AmountIn   *ui.Int
}

func (s SwapInstruction) IsZero() bool {
	return s.AmountIn == nil || s.AmountIn.IsZero()
}

func (s SwapInstruction) String() string {
	if s.IsZero() {
		return "none"
	}
	if s.ZeroForOne {
		return fmt.Sprintf("%s token0 -> token1", s.AmountIn.ToBig())
	}
	return fmt.Sprintf("%s token1 -> token0", s.AmountIn.ToBig())
}

// Rebalancer computes the target composition of the range at a price and
// the swap that moves the balances towards it. Ratios are the token1 share
// as a Q96 fraction: 0 means all token0, Q96 all token1.
type Rebalancer interface {
	IdealRatioAt(sqrtPriceX96 *ui.Int, r Range) *ui.Int
	Rebalance(ctx context.Context, b Balances, target, sqrtPriceX96 *ui.Int) (SwapInstruction, error)
}

// New returns the rebalancer registered under name.
func New(name string) (Rebalancer, error) {
	switch name {
	case "", HalfGapName:
		return HalfGap{}, nil
	case PriceAwareName:
		return PriceAware{}, nil
	}
	return nil, fmt.Errorf("unknown strategy %q", name)
}

// boundaryRatio handles prices outside the open range: below it the range
// only holds token0, above it only token1.
func boundaryRatio(sqrtPriceX96 *ui.Int, r Range) (*ui.Int, bool) {
	if !sqrtPriceX96.Gt(r.SqrtPriceLowX96) {
		return new(ui.Int), true
	}
	if !sqrtPriceX96.Lt(r.SqrtPriceHighX96) {
		return cons.Q96.Clone(), true
	}
	return nil, false
}

// boundarySwap converts everything into the single token the range needs.
func boundarySwap(b Balances, target *ui.Int) (SwapInstruction, bool) {
	switch {
	case target.IsZero():
		return SwapInstruction{ZeroForOne: false, AmountIn: b.Amount1.Clone()}, true
	case !target.Lt(cons.Q96):
		return SwapInstruction{ZeroForOne: true, AmountIn: b.Amount0.Clone()}, true
	}
	return SwapInstruction{}, false
}
