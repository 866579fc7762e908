package safecast

import (
	"testing"

	cons "github.com/ftchann/uniswap-compounder/lib/constants"

	ui "github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToUint128(t *testing.T) {
	u, err := ToUint128(cons.MaxUint128)
	require.NoError(t, err)
	assert.Equal(t, ^uint64(0), u.Lo)
	assert.Equal(t, ^uint64(0), u.Hi)
	assert.True(t, FromUint128(u).Eq(cons.MaxUint128))

	_, err = ToUint128(new(ui.Int).AddUint64(cons.MaxUint128, 1))
	assert.ErrorIs(t, err, ErrOverflow)

	u, err = ToUint128(ui.NewInt(42))
	require.NoError(t, err)
	assert.Equal(t, uint64(42), u.Lo)
}

func TestToInt256(t *testing.T) {
	v, err := ToInt256(cons.MaxInt256)
	require.NoError(t, err)
	assert.Equal(t, 1, v.Sign())

	_, err = ToInt256(new(ui.Int).AddUint64(cons.MaxInt256, 1))
	assert.ErrorIs(t, err, ErrOverflow)

	n, err := NegInt256(ui.NewInt(5))
	require.NoError(t, err)
	assert.Equal(t, -1, n.Sign())
	assert.Equal(t, uint64(5), Abs(n).Uint64())
}
