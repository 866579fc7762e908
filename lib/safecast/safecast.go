// Package safecast holds the narrowing conversions used at the pool boundary.
// Every conversion that can lose bits returns an error instead of truncating.
package safecast

import (
	"errors"

	cons "github.com/ftchann/uniswap-compounder/lib/constants"

	ui "github.com/holiman/uint256"
	"lukechampine.com/uint128"
)

var ErrOverflow = errors.New("safecast: value out of range")

// ToUint128 narrows a liquidity amount.
func ToUint128(x *ui.Int) (uint128.Uint128, error) {
	if x[2] != 0 || x[3] != 0 {
		return uint128.Zero, ErrOverflow
	}
	return uint128.New(x[0], x[1]), nil
}

// FromUint128 widens back into the 256-bit domain.
func FromUint128(u uint128.Uint128) *ui.Int {
	return &ui.Int{u.Lo, u.Hi, 0, 0}
}

// ToInt256 reinterprets an unsigned amount as a positive two's complement
// value. Amounts with the top bit set would read as negative and are rejected.
func ToInt256(x *ui.Int) (*ui.Int, error) {
	if x.Gt(cons.MaxInt256) {
		return nil, ErrOverflow
	}
	return x.Clone(), nil
}

// NegInt256 returns -x for an amount that fits int256.
func NegInt256(x *ui.Int) (*ui.Int, error) {
	v, err := ToInt256(x)
	if err != nil {
		return nil, err
	}
	return v.Neg(v), nil
}

// Abs returns |x| of a two's complement value.
func Abs(x *ui.Int) *ui.Int {
	if x.Sign() < 0 {
		return new(ui.Int).Neg(x)
	}
	return x.Clone()
}
