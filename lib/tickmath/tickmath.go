package tickmath

import (
	"fmt"
	"math"

	cons "github.com/ftchann/uniswap-compounder/lib/constants"

	lru "github.com/hashicorp/golang-lru/v2"
	ui "github.com/holiman/uint256"
)

const (
	MinTick int = -887272  // The minimum tick that can be used on any pool.
	MaxTick int = -MinTick // The maximum tick that can be used on any pool.

	cacheSize = 8192
)

var (
	MinSqrtRatio = ui.NewInt(4295128739) // The sqrt ratio corresponding to the minimum tick that could be used on any pool.
	// The sqrt ratio corresponding to the maximum tick that could be used on any pool.
	MaxSqrtRatio = ui.MustFromHex("0xfffd8963efd1fc6a506488495d951d5263988d26")

	// sqrt(1.0001)^-(2^i) as Q128.128, indexed by the bit of |tick|
	ratioFactors = mustFactors(
		"0xfffcb933bd6fad37aa2d162d1a594001",
		"0xfff97272373d413259a46990580e213a",
		"0xfff2e50f5f656932ef12357cf3c7fdcc",
		"0xffe5caca7e10e4e61c3624eaa0941cd0",
		"0xffcb9843d60f6159c9db58835c926644",
		"0xff973b41fa98c081472e6896dfb254c0",
		"0xff2ea16466c96a3843ec78b326b52861",
		"0xfe5dee046a99a2a811c461f1969c3053",
		"0xfcbe86c7900a88aedcffc83b479aa3a4",
		"0xf987a7253ac413176f2b074cf7815e54",
		"0xf3392b0822b70005940c7a398e4b70f3",
		"0xe7159475a2c29b7443b29c7fa6e889d9",
		"0xd097f3bdfd2022b8845ad8f792aa5825",
		"0xa9f746462d870fdf8a65dc1f90e061e5",
		"0x70d869a156d2a1b890bb3df62baf32f7",
		"0x31be135f97d08fd981231505542fcfa6",
		"0x9aa508b5b7a84e1c677de54f3e99bc9",
		"0x5d6af8dedb81196699c329225ee604",
		"0x2216e584f5fa1ea926041bedfe98",
		"0x48a170391f7dc42444e8fa2",
	)

	magicSqrt10001 = ui.MustFromHex("0x3627a301d71055774c85")
	magicTickLow   = ui.MustFromHex("0x28f6481ab7f045a5af012a19d003aaa")
	magicTickHigh  = ui.MustFromHex("0xdb2df09e81959a81455e260799a0632f")

	sqrtRatioCache = mustCache()
)

func mustFactors(hexes ...string) []*ui.Int {
	out := make([]*ui.Int, len(hexes))
	for i, h := range hexes {
		out[i] = ui.MustFromHex(h)
	}
	return out
}

func mustCache() *lru.Cache[int, *ui.Int] {
	c, err := lru.New[int, *ui.Int](cacheSize)
	if err != nil {
		panic(err)
	}
	return c
}

func Round(ix, iunit int) int {
	return int(math.Round(float64(ix)/float64(iunit))) * iunit
}

func Ceil(ix, iunit int) int {
	return int(math.Ceil(float64(ix)/float64(iunit))) * iunit
}

func Floor(ix, iunit int) int {
	return int(math.Floor(float64(ix)/float64(iunit))) * iunit
}

// GetSqrtRatioAtTick returns sqrt(1.0001)^tick as a Q64.96.
// Results are cached, callers get their own copy.
func GetSqrtRatioAtTick(tick int) *ui.Int {
	if v, ok := sqrtRatioCache.Get(tick); ok {
		return v.Clone()
	}
	v := computeSqrtRatioAtTick(tick)
	sqrtRatioCache.Add(tick, v)
	return v.Clone()
}

func computeSqrtRatioAtTick(tick int) *ui.Int {
	absTick := tick
	if tick < 0 {
		absTick = -tick
	}
	if absTick > MaxTick {
		panic(fmt.Sprintf("tickmath: tick %d out of range", tick))
	}

	ratio := cons.Q128.Clone()
	if absTick&1 != 0 {
		ratio = ratioFactors[0].Clone()
	}
	for bit := 1; bit < len(ratioFactors); bit++ {
		if absTick&(1<<bit) != 0 {
			ratio.Mul(ratio, ratioFactors[bit])
			ratio.Rsh(ratio, 128)
		}
	}
	if tick > 0 {
		ratio.Div(cons.MaxUint256, ratio)
	}

	// Q128.128 to Q64.96, rounding up
	rounded := new(ui.Int).Rsh(ratio, 32)
	if ratio[0]&0xffffffff != 0 {
		rounded.AddUint64(rounded, 1)
	}
	return rounded
}

// GetTickAtSqrtRatio returns the greatest tick whose ratio is <= sqrtRatioX96.
func GetTickAtSqrtRatio(sqrtRatioX96 *ui.Int) int {
	if sqrtRatioX96.Lt(MinSqrtRatio) || !sqrtRatioX96.Lt(MaxSqrtRatio) {
		panic(fmt.Sprintf("tickmath: sqrt ratio %s out of range", sqrtRatioX96.Hex()))
	}
	ratio := new(ui.Int).Lsh(sqrtRatioX96, 32)
	msb := MostSignificantBit(ratio)

	r := new(ui.Int)
	if msb >= 128 {
		r.Rsh(ratio, uint(msb-127))
	} else {
		r.Lsh(ratio, uint(127-msb))
	}

	// signed Q64.64 log2
	log2 := new(ui.Int).Lsh(new(ui.Int).Sub(ui.NewInt(msb), ui.NewInt(128)), 64)
	f := new(ui.Int)
	for i := 0; i < 14; i++ {
		r.Mul(r, r)
		r.Rsh(r, 127)
		f.Rsh(r, 128)
		log2.Or(log2, new(ui.Int).Lsh(f, uint(63-i)))
		r.Rsh(r, uint(f.Uint64()))
	}

	logSqrt10001 := new(ui.Int).Mul(log2, magicSqrt10001)
	tickLow := int(int64(new(ui.Int).SRsh(new(ui.Int).Sub(logSqrt10001, magicTickLow), 128).Uint64()))
	tickHigh := int(int64(new(ui.Int).SRsh(new(ui.Int).Add(logSqrt10001, magicTickHigh), 128).Uint64()))

	if tickLow == tickHigh {
		return tickLow
	}
	if GetSqrtRatioAtTick(tickHigh).Cmp(sqrtRatioX96) <= 0 {
		return tickHigh
	}
	return tickLow
}

func MostSignificantBit(x *ui.Int) uint64 {
	if x.IsZero() {
		return 0
	}
	return uint64(x.BitLen() - 1)
}
