package fullmath

import (
	"errors"

	cons "github.com/ftchann/uniswap-compounder/lib/constants"

	ui "github.com/holiman/uint256"
)

var (
	ErrOverflow       = errors.New("fullmath: result overflows uint256")
	ErrDivisionByZero = errors.New("fullmath: division by zero")
)

// MulDiv computes floor(a*b/denominator) with a 512-bit intermediate.
// It panics when the result does not fit, the pool math relies on that
// to abort the whole call.
func MulDiv(a, b, denominator *ui.Int) *ui.Int {
	result, err := MulDivChecked(a, b, denominator)
	if err != nil {
		panic(err)
	}
	return result
}

func MulDivRoundingUp(a, b, denominator *ui.Int) *ui.Int {
	result, err := MulDivRoundingUpChecked(a, b, denominator)
	if err != nil {
		panic(err)
	}
	return result
}

// MulDivChecked is MulDiv returning an error instead of panicking.
func MulDivChecked(a, b, denominator *ui.Int) (*ui.Int, error) {
	if denominator.IsZero() {
		return nil, ErrDivisionByZero
	}
	result, overflow := new(ui.Int).MulDivOverflow(a, b, denominator)
	if overflow {
		return nil, ErrOverflow
	}
	return result, nil
}

func MulDivRoundingUpChecked(a, b, denominator *ui.Int) (*ui.Int, error) {
	result, err := MulDivChecked(a, b, denominator)
	if err != nil {
		return nil, err
	}
	if new(ui.Int).MulMod(a, b, denominator).IsZero() {
		return result, nil
	}
	if result.Eq(cons.MaxUint256) {
		return nil, ErrOverflow
	}
	return result.AddUint64(result, 1), nil
}

// DivRoundingUp returns ceil(x/y). y must be non-zero.
func DivRoundingUp(x, y *ui.Int) *ui.Int {
	q := new(ui.Int).Div(x, y)
	if !new(ui.Int).Mod(x, y).IsZero() {
		q.AddUint64(q, 1)
	}
	return q
}
