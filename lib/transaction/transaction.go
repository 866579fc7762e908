// Package transaction holds the replayable event stream: pool events taken
// from chain history plus vault operations against the manager.
package transaction

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	ui "github.com/holiman/uint256"
)

// Pool events
const (
	Mint  = "Mint"
	Burn  = "Burn"
	Swap  = "Swap"
	Flash = "Flash"
)

// Vault operations
const (
	Deposit  = "Deposit"
	Withdraw = "Withdraw"
	Harvest  = "Harvest"
)

var ErrUnknownType = errors.New("unknown transaction type")

type TransactionInput struct {
	Type         string `json:"type"`
	ID           string `json:"id"`
	Timestamp    int    `json:"timestamp"`
	Actor        string `json:"actor,omitempty"`
	Amount0      string `json:"amount0"`
	Amount1      string `json:"amount1"`
	Amount       string `json:"amount,omitempty"`
	SqrtPriceX96 string `json:"sqrtPriceX96,omitempty"`
	Tick         int    `json:"tick,omitempty"`
	TickLower    int    `json:"tickLower,omitempty"`
	TickUpper    int    `json:"tickUpper,omitempty"`
	UseX96       string `json:"useX96,omitempty"`
}

type Transaction struct {
	Type string
	ID   string
	// Actor is the sender; the zero address lets the executor pick one.
	Actor        common.Address
	Amount       *ui.Int
	Amount0      *ui.Int
	Amount1      *ui.Int
	SqrtPriceX96 *ui.Int
	Tick         int
	TickLower    int
	TickUpper    int
	Timestamp    int
	UseX96       bool
}

func (t Transaction) MarshalJSON() ([]byte, error) {
	in := TransactionInput{
		Type:      t.Type,
		ID:        t.ID,
		Timestamp: t.Timestamp,
		Amount0:   intString(t.Amount0),
		Amount1:   intString(t.Amount1),
	}
	if t.Actor != (common.Address{}) {
		in.Actor = t.Actor.Hex()
	}
	switch t.Type {
	case Swap:
		in.SqrtPriceX96 = intString(t.SqrtPriceX96)
		in.Tick = t.Tick
		in.UseX96 = strconv.FormatBool(t.UseX96)
	case Mint, Burn:
		in.Amount = intString(t.Amount)
		in.TickLower = t.TickLower
		in.TickUpper = t.TickUpper
	case Withdraw:
		in.Amount = intString(t.Amount)
	case Flash, Deposit, Harvest:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, t.Type)
	}
	return json.Marshal(&in)
}

func (t *Transaction) UnmarshalJSON(data []byte) error {
	var in TransactionInput
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	tx, err := in.Transaction()
	if err != nil {
		return err
	}
	*t = tx
	return nil
}

// Transaction parses the decimal amounts of the input record.
func (in TransactionInput) Transaction() (Transaction, error) {
	switch in.Type {
	case Mint, Burn, Swap, Flash, Deposit, Withdraw, Harvest:
	default:
		return Transaction{}, fmt.Errorf("%w: %q", ErrUnknownType, in.Type)
	}
	t := Transaction{
		Type:      in.Type,
		ID:        in.ID,
		Tick:      in.Tick,
		TickLower: in.TickLower,
		TickUpper: in.TickUpper,
		Timestamp: in.Timestamp,
	}
	if in.Actor != "" {
		if !common.IsHexAddress(in.Actor) {
			return Transaction{}, fmt.Errorf("transaction %s: invalid actor %q", in.ID, in.Actor)
		}
		t.Actor = common.HexToAddress(in.Actor)
	}
	var err error
	if t.Amount, err = parseAmount(in.Amount); err != nil {
		return Transaction{}, fmt.Errorf("transaction %s amount: %w", in.ID, err)
	}
	if t.Amount0, err = parseAmount(in.Amount0); err != nil {
		return Transaction{}, fmt.Errorf("transaction %s amount0: %w", in.ID, err)
	}
	if t.Amount1, err = parseAmount(in.Amount1); err != nil {
		return Transaction{}, fmt.Errorf("transaction %s amount1: %w", in.ID, err)
	}
	if t.SqrtPriceX96, err = parseAmount(in.SqrtPriceX96); err != nil {
		return Transaction{}, fmt.Errorf("transaction %s sqrtPriceX96: %w", in.ID, err)
	}
	if in.UseX96 != "" {
		if t.UseX96, err = strconv.ParseBool(in.UseX96); err != nil {
			return Transaction{}, fmt.Errorf("transaction %s useX96: %w", in.ID, err)
		}
	}
	return t, nil
}

// Load reads a JSON array of transactions and orders it by timestamp.
func Load(path string) ([]Transaction, error) {
	value, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read transactions: %w", err)
	}
	var transactions []Transaction
	if err := json.Unmarshal(value, &transactions); err != nil {
		return nil, fmt.Errorf("decode transactions: %w", err)
	}
	sort.SliceStable(transactions, func(i, j int) bool {
		return transactions[i].Timestamp < transactions[j].Timestamp
	})
	return transactions, nil
}

// parseAmount reads a base 10 amount. Pool events carry signed amounts.
// Negative values are stored as two's complement, empty as zero.
func parseAmount(s string) (*ui.Int, error) {
	if s == "" {
		return new(ui.Int), nil
	}
	negative := s[0] == '-'
	if negative {
		s = s[1:]
	}
	v, err := ui.FromDecimal(s)
	if err != nil {
		return nil, err
	}
	if negative {
		v.Neg(v)
	}
	return v, nil
}

func intString(v *ui.Int) string {
	if v == nil {
		return "0"
	}
	if v.Sign() < 0 {
		return "-" + new(ui.Int).Neg(v).ToBig().String()
	}
	return v.ToBig().String()
}
