package tickdata

import (
	"sort"

	"github.com/ftchann/uniswap-compounder/lib/tickmath"

	ui "github.com/holiman/uint256"
)

// Tick is an initialized tick. LiquidityNet is two's complement.
type Tick struct {
	Index                 int
	LiquidityGross        *ui.Int
	LiquidityNet          *ui.Int
	FeeGrowthOutside0X128 *ui.Int
	FeeGrowthOutside1X128 *ui.Int
}

func (t *Tick) clone() *Tick {
	return &Tick{
		Index:                 t.Index,
		LiquidityGross:        t.LiquidityGross.Clone(),
		LiquidityNet:          t.LiquidityNet.Clone(),
		FeeGrowthOutside0X128: t.FeeGrowthOutside0X128.Clone(),
		FeeGrowthOutside1X128: t.FeeGrowthOutside1X128.Clone(),
	}
}

// TickData keeps the initialized ticks of a pool sorted by index.
type TickData struct {
	ticks       []*Tick
	tickSpacing int
}

func NewTickData(tickSpacing int) *TickData {
	return &TickData{tickSpacing: tickSpacing}
}

func (t *TickData) TickSpacing() int {
	return t.tickSpacing
}

func (t *TickData) Clone() *TickData {
	ticks := make([]*Tick, len(t.ticks))
	for i, tick := range t.ticks {
		ticks[i] = tick.clone()
	}
	return &TickData{ticks: ticks, tickSpacing: t.tickSpacing}
}

// Len returns the number of initialized ticks.
func (t *TickData) Len() int {
	return len(t.ticks)
}

// search returns the position of the first tick with Index >= index.
func (t *TickData) search(index int) int {
	return sort.Search(len(t.ticks), func(i int) bool { return t.ticks[i].Index >= index })
}

// GetTick returns the tick at index and whether it is initialized.
func (t *TickData) GetTick(index int) (*Tick, bool) {
	i := t.search(index)
	if i < len(t.ticks) && t.ticks[i].Index == index {
		return t.ticks[i], true
	}
	return nil, false
}

// UpdateTick applies a liquidity delta to the lower or upper tick of a
// position. A tick seen for the first time at or below the current tick
// assumes all fee growth so far happened below it. flipped reports an
// initialization change; a tick flipped to zero stays until Clear.
func (t *TickData) UpdateTick(index, tickCurrent int, liquidityDelta, feeGrowthGlobal0X128, feeGrowthGlobal1X128 *ui.Int, upper bool) (flipped bool) {
	i := t.search(index)
	var tick *Tick
	if i < len(t.ticks) && t.ticks[i].Index == index {
		tick = t.ticks[i]
	} else {
		tick = &Tick{
			Index:                 index,
			LiquidityGross:        new(ui.Int),
			LiquidityNet:          new(ui.Int),
			FeeGrowthOutside0X128: new(ui.Int),
			FeeGrowthOutside1X128: new(ui.Int),
		}
		if index <= tickCurrent {
			tick.FeeGrowthOutside0X128.Set(feeGrowthGlobal0X128)
			tick.FeeGrowthOutside1X128.Set(feeGrowthGlobal1X128)
		}
		t.ticks = append(t.ticks, nil)
		copy(t.ticks[i+1:], t.ticks[i:])
		t.ticks[i] = tick
	}

	grossBefore := tick.LiquidityGross.Clone()
	tick.LiquidityGross.Add(tick.LiquidityGross, liquidityDelta)
	flipped = grossBefore.IsZero() != tick.LiquidityGross.IsZero()

	if upper {
		tick.LiquidityNet.Sub(tick.LiquidityNet, liquidityDelta)
	} else {
		tick.LiquidityNet.Add(tick.LiquidityNet, liquidityDelta)
	}
	return flipped
}

// Clear drops a tick no position references anymore.
func (t *TickData) Clear(index int) {
	i := t.search(index)
	if i < len(t.ticks) && t.ticks[i].Index == index {
		t.ticks = append(t.ticks[:i], t.ticks[i+1:]...)
	}
}

// GetFeeGrowthInside returns the fee growth per unit of liquidity between
// the two ticks. Values wrap around like the accumulators they derive from.
func (t *TickData) GetFeeGrowthInside(tickLower, tickUpper, tickCurrent int, feeGrowthGlobal0X128, feeGrowthGlobal1X128 *ui.Int) (*ui.Int, *ui.Int) {
	lower0, lower1 := t.outside(tickLower)
	upper0, upper1 := t.outside(tickUpper)

	below0, below1 := lower0, lower1
	if tickCurrent < tickLower {
		below0 = new(ui.Int).Sub(feeGrowthGlobal0X128, lower0)
		below1 = new(ui.Int).Sub(feeGrowthGlobal1X128, lower1)
	}
	above0, above1 := upper0, upper1
	if tickCurrent >= tickUpper {
		above0 = new(ui.Int).Sub(feeGrowthGlobal0X128, upper0)
		above1 = new(ui.Int).Sub(feeGrowthGlobal1X128, upper1)
	}

	inside0 := new(ui.Int).Sub(feeGrowthGlobal0X128, below0)
	inside0.Sub(inside0, above0)
	inside1 := new(ui.Int).Sub(feeGrowthGlobal1X128, below1)
	inside1.Sub(inside1, above1)
	return inside0, inside1
}

func (t *TickData) outside(index int) (*ui.Int, *ui.Int) {
	if tick, ok := t.GetTick(index); ok {
		return tick.FeeGrowthOutside0X128, tick.FeeGrowthOutside1X128
	}
	return new(ui.Int), new(ui.Int)
}

// Cross flips the fee growth outside of a tick the price moves through and
// returns its net liquidity.
func (t *TickData) Cross(index int, feeGrowthGlobal0X128, feeGrowthGlobal1X128 *ui.Int) *ui.Int {
	tick, ok := t.GetTick(index)
	if !ok {
		return new(ui.Int)
	}
	tick.FeeGrowthOutside0X128 = new(ui.Int).Sub(feeGrowthGlobal0X128, tick.FeeGrowthOutside0X128)
	tick.FeeGrowthOutside1X128 = new(ui.Int).Sub(feeGrowthGlobal1X128, tick.FeeGrowthOutside1X128)
	return tick.LiquidityNet.Clone()
}

// NextInitializedTick finds the next initialized tick at or below tick when
// lte is set, otherwise strictly above it. Without one the search stops at
// the global tick bounds and initialized is false.
func (t *TickData) NextInitializedTick(tick int, lte bool) (next int, initialized bool) {
	if lte {
		i := t.search(tick + 1)
		if i == 0 {
			return tickmath.MinTick, false
		}
		return t.ticks[i-1].Index, true
	}
	i := t.search(tick + 1)
	if i == len(t.ticks) {
		return tickmath.MaxTick, false
	}
	return t.ticks[i].Index, true
}
