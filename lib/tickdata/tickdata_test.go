package tickdata

import (
	"testing"

	"github.com/ftchann/uniswap-compounder/lib/tickmath"

	ui "github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateTickAndClear(t *testing.T) {
	td := NewTickData(60)
	zero := new(ui.Int)
	delta := ui.NewInt(100)

	assert.True(t, td.UpdateTick(-60, 0, delta, zero, zero, false))
	assert.True(t, td.UpdateTick(60, 0, delta, zero, zero, true))
	assert.False(t, td.UpdateTick(60, 0, delta, zero, zero, true))
	require.Equal(t, 2, td.Len())

	upper, ok := td.GetTick(60)
	require.True(t, ok)
	assert.Equal(t, uint64(200), upper.LiquidityGross.Uint64())
	assert.Equal(t, -1, upper.LiquidityNet.Sign())

	neg := new(ui.Int).Neg(ui.NewInt(200))
	assert.True(t, td.UpdateTick(60, 0, neg, zero, zero, true))
	_, ok = td.GetTick(60)
	assert.True(t, ok, "flipped tick is kept until cleared")
	td.Clear(60)
	_, ok = td.GetTick(60)
	assert.False(t, ok)
	assert.Equal(t, 1, td.Len())
}

func TestFeeGrowthOutsideInitialization(t *testing.T) {
	td := NewTickData(1)
	global := ui.NewInt(1000)
	td.UpdateTick(-10, 0, ui.NewInt(1), global, global, false)
	td.UpdateTick(10, 0, ui.NewInt(1), global, global, true)

	lower, _ := td.GetTick(-10)
	upper, _ := td.GetTick(10)
	assert.Equal(t, uint64(1000), lower.FeeGrowthOutside0X128.Uint64())
	assert.True(t, upper.FeeGrowthOutside0X128.IsZero())

	// nothing has accrued inside since the position was created
	in0, in1 := td.GetFeeGrowthInside(-10, 10, 0, global, global)
	assert.True(t, in0.IsZero())
	assert.True(t, in1.IsZero())

	// growth while the price is inside accrues to the range
	later := ui.NewInt(1500)
	in0, _ = td.GetFeeGrowthInside(-10, 10, 0, later, later)
	assert.Equal(t, uint64(500), in0.Uint64())

	// crossing the upper tick freezes the inside growth
	td.Cross(10, later, later)
	evenLater := ui.NewInt(4000)
	in0, _ = td.GetFeeGrowthInside(-10, 10, 10, evenLater, evenLater)
	assert.Equal(t, uint64(500), in0.Uint64())
}

func TestNextInitializedTick(t *testing.T) {
	td := NewTickData(10)
	zero := new(ui.Int)
	for _, idx := range []int{-100, 0, 50} {
		td.UpdateTick(idx, 0, ui.NewInt(1), zero, zero, false)
	}

	tests := []struct {
		name  string
		tick  int
		lte   bool
		want  int
		found bool
	}{
		{"lte exact", 0, true, 0, true},
		{"lte between", 30, true, 0, true},
		{"lte below all", -101, true, tickmath.MinTick, false},
		{"gt exact", 0, false, 50, true},
		{"gt between", -50, false, 0, true},
		{"gt above all", 50, false, tickmath.MaxTick, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := td.NextInitializedTick(tt.tick, tt.lte)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.found, found)
		})
	}
}

func TestCloneIsDeep(t *testing.T) {
	td := NewTickData(1)
	zero := new(ui.Int)
	td.UpdateTick(5, 0, ui.NewInt(7), zero, zero, false)
	c := td.Clone()
	td.UpdateTick(5, 0, ui.NewInt(3), zero, zero, false)

	tick, _ := c.GetTick(5)
	assert.Equal(t, uint64(7), tick.LiquidityGross.Uint64())
}
