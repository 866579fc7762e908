package compounder

import (
	"context"
	"fmt"

	"github.com/ftchann/uniswap-compounder/lib/chain"
	"github.com/ftchann/uniswap-compounder/lib/pool"
	"github.com/ftchann/uniswap-compounder/lib/token"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ui "github.com/holiman/uint256"
)

var (
	_ pool.MintSettler = (*Manager)(nil)
	_ pool.SwapSettler = (*Manager)(nil)
)

type opKind uint8

const (
	opMint opKind = iota + 1
	opSwap
)

func (k opKind) String() string {
	switch k {
	case opMint:
		return "mint"
	case opSwap:
		return "swap"
	}
	return "unknown"
}

// request is the pool call in flight. The pool hands the encoded nonce and
// payer back in its callback, which must match.
type request struct {
	nonce uint64
	kind  opKind
	payer common.Address
}

var callbackArgs = func() abi.Arguments {
	uint64Ty, err := abi.NewType("uint64", "", nil)
	if err != nil {
		panic(err)
	}
	addressTy, err := abi.NewType("address", "", nil)
	if err != nil {
		panic(err)
	}
	return abi.Arguments{{Name: "nonce", Type: uint64Ty}, {Name: "payer", Type: addressTy}}
}()

func encodeCallbackData(r *request) ([]byte, error) {
	return callbackArgs.Pack(r.nonce, r.payer)
}

func decodeCallbackData(data []byte) (nonce uint64, payer common.Address, err error) {
	values, err := callbackArgs.Unpack(data)
	if err != nil {
		return 0, common.Address{}, err
	}
	if len(values) != 2 {
		return 0, common.Address{}, fmt.Errorf("unexpected callback data length %d", len(values))
	}
	nonce, ok := values[0].(uint64)
	if !ok {
		return 0, common.Address{}, fmt.Errorf("unexpected nonce type %T", values[0])
	}
	payer, ok = values[1].(common.Address)
	if !ok {
		return 0, common.Address{}, fmt.Errorf("unexpected payer type %T", values[1])
	}
	return nonce, payer, nil
}

func (m *Manager) begin(kind opKind, payer common.Address) (data []byte, err error) {
	m.nonce++
	m.pending = &request{nonce: m.nonce, kind: kind, payer: payer}
	return encodeCallbackData(m.pending)
}

func (m *Manager) end() {
	m.pending = nil
}

// verifyCallback accepts a callback only from the bound pool, while a
// request of the same kind is pending and with that request's data.
func (m *Manager) verifyCallback(ctx context.Context, kind opKind, data []byte) (*request, error) {
	if sender := chain.Sender(ctx); sender != m.poolAddress {
		return nil, fmt.Errorf("%w: %s callback from %s", ErrInvalidCallbackOrigin, kind, sender.Hex())
	}
	req := m.pending
	if req == nil || req.kind != kind {
		return nil, fmt.Errorf("%w: no pending %s", ErrInvalidCallbackOrigin, kind)
	}
	nonce, payer, err := decodeCallbackData(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCallbackOrigin, err)
	}
	if nonce != req.nonce || payer != req.payer {
		return nil, fmt.Errorf("%w: stale %s request %d", ErrInvalidCallbackOrigin, kind, nonce)
	}
	return req, nil
}

// MintCallback pays the pool for liquidity the manager just added.
func (m *Manager) MintCallback(ctx context.Context, amount0Owed, amount1Owed *ui.Int, data []byte) error {
	req, err := m.verifyCallback(ctx, opMint, data)
	if err != nil {
		return err
	}
	if err := m.pay(m.token0, req.payer, amount0Owed); err != nil {
		return err
	}
	return m.pay(m.token1, req.payer, amount1Owed)
}

// SwapCallback pays the input side of a rebalancing swap.
func (m *Manager) SwapCallback(ctx context.Context, amount0Delta, amount1Delta *ui.Int, data []byte) error {
	req, err := m.verifyCallback(ctx, opSwap, data)
	if err != nil {
		return err
	}
	if amount0Delta.Sign() > 0 {
		return m.pay(m.token0, req.payer, amount0Delta)
	}
	if amount1Delta.Sign() > 0 {
		return m.pay(m.token1, req.payer, amount1Delta)
	}
	return nil
}

// pay moves amount of tkn to the pool, from the manager's own balance or
// from payer against its allowance.
func (m *Manager) pay(tkn *token.Ledger, payer common.Address, amount *ui.Int) error {
	if amount.IsZero() {
		return nil
	}
	var err error
	if payer == m.address {
		err = tkn.Transfer(m.address, m.poolAddress, amount)
	} else {
		err = tkn.TransferFrom(m.address, payer, m.poolAddress, amount)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInsufficientBalance, err)
	}
	return nil
}
