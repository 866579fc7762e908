package strategy

import (
	"context"
	"testing"

	cons "github.com/ftchann/uniswap-compounder/lib/constants"
	"github.com/ftchann/uniswap-compounder/lib/tickmath"

	ui "github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	ctx      = context.Background()
	half     = new(ui.Int).Rsh(cons.Q96, 1)
	symRange = Range{
		SqrtPriceLowX96:  tickmath.GetSqrtRatioAtTick(-600),
		SqrtPriceHighX96: tickmath.GetSqrtRatioAtTick(600),
	}
)

func balances(a0, a1 uint64) Balances {
	return Balances{Amount0: ui.NewInt(a0), Amount1: ui.NewInt(a1)}
}

func TestNew(t *testing.T) {
	s, err := New("")
	require.NoError(t, err)
	assert.IsType(t, HalfGap{}, s)
	s, err = New(PriceAwareName)
	require.NoError(t, err)
	assert.IsType(t, PriceAware{}, s)
	_, err = New("bollinger")
	assert.Error(t, err)
}

func TestIdealRatioBoundaries(t *testing.T) {
	for _, s := range []Rebalancer{HalfGap{}, PriceAware{}} {
		below := tickmath.GetSqrtRatioAtTick(-1200)
		above := tickmath.GetSqrtRatioAtTick(1200)
		assert.True(t, s.IdealRatioAt(below, symRange).IsZero())
		assert.True(t, s.IdealRatioAt(symRange.SqrtPriceLowX96, symRange).IsZero(), "at the lower boundary")
		assert.True(t, s.IdealRatioAt(above, symRange).Eq(cons.Q96))
		assert.True(t, s.IdealRatioAt(symRange.SqrtPriceHighX96, symRange).Eq(cons.Q96), "at the upper boundary")
	}
}

func TestBoundarySwaps(t *testing.T) {
	for _, s := range []Rebalancer{HalfGap{}, PriceAware{}} {
		instr, err := s.Rebalance(ctx, balances(10, 20), new(ui.Int), cons.Q96)
		require.NoError(t, err)
		assert.False(t, instr.ZeroForOne)
		assert.Equal(t, uint64(20), instr.AmountIn.Uint64())

		instr, err = s.Rebalance(ctx, balances(10, 20), cons.Q96, cons.Q96)
		require.NoError(t, err)
		assert.True(t, instr.ZeroForOne)
		assert.Equal(t, uint64(10), instr.AmountIn.Uint64())
	}
}

func TestHalfGap(t *testing.T) {
	mid := new(ui.Int).Add(symRange.SqrtPriceLowX96, symRange.SqrtPriceHighX96)
	mid.Rsh(mid, 1)
	ratio := HalfGap{}.IdealRatioAt(mid, symRange)
	assert.True(t, new(ui.Int).Sub(half, ratio).Lt(ui.NewInt(2)) || new(ui.Int).Sub(ratio, half).Lt(ui.NewInt(2)))

	tests := []struct {
		name       string
		b          Balances
		zeroForOne bool
		amount     uint64
	}{
		{"all token0", balances(1000, 0), true, 250},
		{"all token1", balances(0, 1000), false, 250},
		{"balanced", balances(500, 500), false, 0},
		{"empty", balances(0, 0), false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			instr, err := HalfGap{}.Rebalance(ctx, tt.b, half, cons.Q96)
			require.NoError(t, err)
			if tt.amount == 0 {
				assert.True(t, instr.IsZero())
				assert.Equal(t, "none", instr.String())
				return
			}
			assert.Equal(t, tt.zeroForOne, instr.ZeroForOne)
			assert.Equal(t, tt.amount, instr.AmountIn.Uint64())
		})
	}
}

func TestPriceAware(t *testing.T) {
	ratio := PriceAware{}.IdealRatioAt(cons.Q96, symRange)
	diff := new(ui.Int).Sub(ratio, half)
	if ratio.Lt(half) {
		diff = new(ui.Int).Sub(half, ratio)
	}
	assert.True(t, diff.Lt(new(ui.Int).Rsh(cons.Q96, 20)), "symmetric range at price 1 holds half of its value in each token")

	twoQ := new(ui.Int).Lsh(cons.Q96, 1)

	instr, err := PriceAware{}.Rebalance(ctx, balances(1000, 0), half, twoQ)
	require.NoError(t, err)
	assert.True(t, instr.ZeroForOne)
	assert.Equal(t, uint64(500), instr.AmountIn.Uint64())

	instr, err = PriceAware{}.Rebalance(ctx, balances(0, 4000), half, twoQ)
	require.NoError(t, err)
	assert.False(t, instr.ZeroForOne)
	assert.Equal(t, uint64(2000), instr.AmountIn.Uint64())

	instr, err = PriceAware{}.Rebalance(ctx, balances(500, 2000), half, twoQ)
	require.NoError(t, err)
	assert.True(t, instr.IsZero())
}
