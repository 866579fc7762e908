package transaction

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	ui "github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `[
	{"type":"Swap","id":"0xabc#3","timestamp":1620158974,"amount0":"-2000000","amount1":"1000000000000000","sqrtPriceX96":"1350174849792634181862360983626536","tick":195285,"useX96":"true"},
	{"type":"Mint","id":"0xabc#1","timestamp":1620157956,"amount":"345073104699360","amount0":"2995","amount1":"1000000000000000000","tickLower":191150,"tickUpper":198080},
	{"type":"Deposit","id":"d1","timestamp":1620158000,"actor":"0x00000000000000000000000000000000000000a1","amount0":"1000000","amount1":"290000000000000"},
	{"type":"Harvest","id":"h1","timestamp":1620159000,"amount0":"","amount1":""}
]`

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trans.json")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	txs, err := Load(path)
	require.NoError(t, err)
	require.Len(t, txs, 4)

	types := []string{txs[0].Type, txs[1].Type, txs[2].Type, txs[3].Type}
	assert.Equal(t, []string{Mint, Deposit, Swap, Harvest}, types, "ordered by timestamp")

	mint := txs[0]
	assert.Equal(t, 191150, mint.TickLower)
	assert.Equal(t, uint64(345073104699360), mint.Amount.Uint64())

	deposit := txs[1]
	assert.Equal(t, common.HexToAddress("0xa1"), deposit.Actor)
	assert.Equal(t, uint64(290000000000000), deposit.Amount1.Uint64())

	swap := txs[2]
	assert.Equal(t, -1, swap.Amount0.Sign())
	assert.Equal(t, uint64(2000000), new(ui.Int).Neg(swap.Amount0).Uint64())
	assert.True(t, swap.UseX96)
	assert.Equal(t, "1350174849792634181862360983626536", swap.SqrtPriceX96.ToBig().String())

	assert.True(t, txs[3].Amount0.IsZero())
}

func TestRoundTrip(t *testing.T) {
	var txs []Transaction
	require.NoError(t, json.Unmarshal([]byte(sample), &txs))
	data, err := json.Marshal(txs)
	require.NoError(t, err)

	var again []Transaction
	require.NoError(t, json.Unmarshal(data, &again))
	assert.Equal(t, txs, again)
}

func TestInvalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"unknown type", `{"type":"Rug","amount0":"1","amount1":"1"}`},
		{"bad amount", `{"type":"Mint","amount":"12x","amount0":"1","amount1":"1"}`},
		{"bad actor", `{"type":"Deposit","actor":"alice","amount0":"1","amount1":"1"}`},
		{"bad flag", `{"type":"Swap","amount0":"1","amount1":"-1","useX96":"maybe"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tx Transaction
			assert.Error(t, json.Unmarshal([]byte(tt.input), &tx))
		})
	}

	_, err := json.Marshal(Transaction{Type: "Rug"})
	assert.ErrorIs(t, err, ErrUnknownType)
}
