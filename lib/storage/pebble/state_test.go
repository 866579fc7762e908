package pebble

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/ftchann/uniswap-compounder/lib/compounder"

	"github.com/ethereum/go-ethereum/common"
	ui "github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state")
	store, err := Open(path)
	require.NoError(t, err)

	_, _, err = store.LoadState(ctx)
	assert.ErrorIs(t, err, ErrNoState)

	alice := common.HexToAddress("0xa1")
	bob := common.HexToAddress("0xb2")
	first := compounder.State{
		TotalLiquidity: ui.NewInt(1_000),
		TotalSupply:    ui.NewInt(900),
		Balances:       map[common.Address]*ui.Int{alice: ui.NewInt(600), bob: ui.NewInt(300)},
	}
	require.NoError(t, store.SaveState(ctx, 1620158974, first))

	second := compounder.State{
		TotalLiquidity: new(ui.Int).Lsh(ui.NewInt(1), 130),
		TotalSupply:    ui.NewInt(600),
		Balances:       map[common.Address]*ui.Int{alice: ui.NewInt(600), bob: new(ui.Int)},
	}
	require.NoError(t, store.SaveState(ctx, 1620162574, second))
	require.NoError(t, store.Close())

	store, err = Open(path)
	require.NoError(t, err)
	defer store.Close()

	got, ts, err := store.LoadState(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1620162574, ts)
	assert.True(t, got.TotalLiquidity.Eq(second.TotalLiquidity))
	assert.True(t, got.TotalSupply.Eq(second.TotalSupply))
	require.Len(t, got.Balances, 1, "burnt out holders are dropped")
	assert.True(t, got.Balances[alice].Eq(ui.NewInt(600)))
}

func TestClosed(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "state"))
	require.NoError(t, err)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())

	assert.ErrorIs(t, store.SaveState(context.Background(), 0, compounder.State{}), ErrDBClosed)
	_, _, err = store.LoadState(context.Background())
	assert.ErrorIs(t, err, ErrDBClosed)
}
