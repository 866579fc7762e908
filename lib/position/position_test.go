package position

import (
	"testing"

	cons "github.com/ftchann/uniswap-compounder/lib/constants"

	"github.com/ethereum/go-ethereum/common"
	ui "github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateAccruesFees(t *testing.T) {
	p := NewPosition()
	require.NoError(t, p.Update(ui.NewInt(1000), new(ui.Int), new(ui.Int)))

	// 3 tokens per unit of liquidity in Q128
	growth := new(ui.Int).Mul(ui.NewInt(3), cons.Q128)
	require.NoError(t, p.Update(new(ui.Int), growth, new(ui.Int)))
	assert.Equal(t, uint64(3000), p.TokensOwed0.Uint64())
	assert.True(t, p.TokensOwed1.IsZero())
	assert.Equal(t, uint64(1000), p.Liquidity.Uint64())
}

func TestUpdateEmptyPoke(t *testing.T) {
	p := NewPosition()
	assert.ErrorIs(t, p.Update(new(ui.Int), new(ui.Int), new(ui.Int)), ErrNoPosition)
}

func TestClone(t *testing.T) {
	p := NewPosition()
	p.TokensOwed0.SetUint64(1)
	p.TokensOwed1.SetUint64(2)
	c := p.Clone()
	p.TokensOwed0.SetUint64(9)
	assert.Equal(t, uint64(1), c.TokensOwed0.Uint64())
	assert.Equal(t, uint64(2), c.TokensOwed1.Uint64())
}

func TestKey(t *testing.T) {
	owner := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	a := Key(owner, -60, 60)
	assert.Equal(t, a, Key(owner, -60, 60))
	assert.NotEqual(t, a, Key(owner, -60, 120))
	assert.NotEqual(t, a, Key(owner, 60, -60))
	assert.Equal(t, []byte{0xff, 0xff, 0xc4}, appendInt24(nil, -60))
}
