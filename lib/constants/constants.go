package constants

import (
	ui "github.com/holiman/uint256"
)

var (
	NegativeOne = new(ui.Int).SetAllOne()
	Zero        = new(ui.Int)
	One         = new(ui.Int).SetOne()
	Two         = ui.NewInt(2)
	MaxUint256  = new(ui.Int).SetAllOne()
	MaxUint128  = new(ui.Int).Sub(new(ui.Int).Lsh(One, 128), One)
	MaxUint160  = new(ui.Int).Sub(new(ui.Int).Lsh(One, 160), One)
	// MaxInt256 is the largest amount that can be passed as a signed swap amount.
	MaxInt256 = new(ui.Int).Rsh(MaxUint256, 1)

	// used in liquidity amount math
	Q96  = new(ui.Int).Lsh(One, 96)
	Q128 = new(ui.Int).Lsh(One, 128)
	Q192 = new(ui.Int).Lsh(One, 192)

	// fees are expressed in hundredths of a bip
	FeeDenominator = ui.NewInt(1_000_000)
	E18            = new(ui.Int).Exp(ui.NewInt(10), ui.NewInt(18))
)

// TickSpaces maps a fee tier to its tick spacing.
var TickSpaces = map[int]int{
	100:   1,
	500:   10,
	3000:  60,
	10000: 200,
}
