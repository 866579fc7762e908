package token

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	ui "github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = common.HexToAddress("0x000000000000000000000000000000000000a11c")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
)

func TestIssueTransferDestroy(t *testing.T) {
	l := NewLedger(common.HexToAddress("0x01"), "TKN", 18)
	require.NoError(t, l.Issue(alice, ui.NewInt(100)))
	require.NoError(t, l.Transfer(alice, bob, ui.NewInt(40)))

	assert.Equal(t, uint64(60), l.BalanceOf(alice).Uint64())
	assert.Equal(t, uint64(40), l.BalanceOf(bob).Uint64())

	err := l.Transfer(bob, alice, ui.NewInt(41))
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	require.NoError(t, l.Destroy(alice, ui.NewInt(60)))
	assert.Equal(t, uint64(40), l.TotalSupply().Uint64())
	assert.ErrorIs(t, l.Destroy(alice, ui.NewInt(1)), ErrInsufficientBalance)
	assert.Len(t, l.Holders(), 1)
}

func TestTransferFrom(t *testing.T) {
	l := NewLedger(common.HexToAddress("0x01"), "TKN", 18)
	require.NoError(t, l.Issue(alice, ui.NewInt(100)))

	assert.ErrorIs(t, l.TransferFrom(bob, alice, bob, ui.NewInt(1)), ErrInsufficientAllowance)

	l.Approve(alice, bob, ui.NewInt(50))
	require.NoError(t, l.TransferFrom(bob, alice, bob, ui.NewInt(30)))
	assert.Equal(t, uint64(20), l.Allowance(alice, bob).Uint64())

	l.Approve(alice, bob, new(ui.Int).SetAllOne())
	require.NoError(t, l.TransferFrom(bob, alice, bob, ui.NewInt(30)))
	assert.True(t, l.Allowance(alice, bob).Eq(new(ui.Int).SetAllOne()))
}

func TestCheckpointRestores(t *testing.T) {
	l := NewLedger(common.HexToAddress("0x01"), "TKN", 18)
	require.NoError(t, l.Issue(alice, ui.NewInt(100)))
	l.Approve(alice, bob, ui.NewInt(10))

	restore := l.Checkpoint()
	require.NoError(t, l.TransferFrom(bob, alice, bob, ui.NewInt(10)))
	require.NoError(t, l.Issue(bob, ui.NewInt(5)))
	restore()

	assert.Equal(t, uint64(100), l.BalanceOf(alice).Uint64())
	assert.True(t, l.BalanceOf(bob).IsZero())
	assert.Equal(t, uint64(10), l.Allowance(alice, bob).Uint64())
	assert.Equal(t, uint64(100), l.TotalSupply().Uint64())
}
