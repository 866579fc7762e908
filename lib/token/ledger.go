// Package token implements a minimal fungible token ledger. It backs the
// pool's two tokens in simulations and the manager's share token.
package token

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	ui "github.com/holiman/uint256"
)

var (
	ErrInsufficientBalance   = errors.New("token: insufficient balance")
	ErrInsufficientAllowance = errors.New("token: insufficient allowance")
	ErrSupplyOverflow        = errors.New("token: total supply overflow")
)

type Ledger struct {
	Address  common.Address
	Symbol   string
	Decimals uint8

	totalSupply *ui.Int
	balances    map[common.Address]*ui.Int
	allowances  map[common.Address]map[common.Address]*ui.Int
}

func NewLedger(address common.Address, symbol string, decimals uint8) *Ledger {
	return &Ledger{
		Address:     address,
		Symbol:      symbol,
		Decimals:    decimals,
		totalSupply: new(ui.Int),
		balances:    make(map[common.Address]*ui.Int),
		allowances:  make(map[common.Address]map[common.Address]*ui.Int),
	}
}

func (l *Ledger) TotalSupply() *ui.Int {
	return l.totalSupply.Clone()
}

func (l *Ledger) BalanceOf(owner common.Address) *ui.Int {
	if b, ok := l.balances[owner]; ok {
		return b.Clone()
	}
	return new(ui.Int)
}

// Holders returns every account with a non-zero balance.
func (l *Ledger) Holders() map[common.Address]*ui.Int {
	out := make(map[common.Address]*ui.Int, len(l.balances))
	for owner, b := range l.balances {
		if !b.IsZero() {
			out[owner] = b.Clone()
		}
	}
	return out
}

// Issue creates amount new units for to.
func (l *Ledger) Issue(to common.Address, amount *ui.Int) error {
	supply, overflow := new(ui.Int).AddOverflow(l.totalSupply, amount)
	if overflow {
		return ErrSupplyOverflow
	}
	l.totalSupply = supply
	l.credit(to, amount)
	return nil
}

// Destroy removes amount units held by from.
func (l *Ledger) Destroy(from common.Address, amount *ui.Int) error {
	if err := l.debit(from, amount); err != nil {
		return err
	}
	l.totalSupply = new(ui.Int).Sub(l.totalSupply, amount)
	return nil
}

func (l *Ledger) Transfer(from, to common.Address, amount *ui.Int) error {
	if err := l.debit(from, amount); err != nil {
		return err
	}
	l.credit(to, amount)
	return nil
}

func (l *Ledger) Approve(owner, spender common.Address, amount *ui.Int) {
	a, ok := l.allowances[owner]
	if !ok {
		a = make(map[common.Address]*ui.Int)
		l.allowances[owner] = a
	}
	a[spender] = amount.Clone()
}

func (l *Ledger) Allowance(owner, spender common.Address) *ui.Int {
	if a, ok := l.allowances[owner][spender]; ok {
		return a.Clone()
	}
	return new(ui.Int)
}

// TransferFrom moves tokens on behalf of from. An allowance of MaxUint256
// is never decreased.
func (l *Ledger) TransferFrom(spender, from, to common.Address, amount *ui.Int) error {
	allowance := l.Allowance(from, spender)
	if allowance.Lt(amount) {
		return fmt.Errorf("%w: %s allows %s to spend %s of %s, need %s",
			ErrInsufficientAllowance, from.Hex(), spender.Hex(), allowance.ToBig(), l.Symbol, amount.ToBig())
	}
	if err := l.Transfer(from, to, amount); err != nil {
		return err
	}
	if allowance.Eq(new(ui.Int).SetAllOne()) {
		return nil
	}
	l.allowances[from][spender] = allowance.Sub(allowance, amount)
	return nil
}

func (l *Ledger) debit(from common.Address, amount *ui.Int) error {
	balance := l.BalanceOf(from)
	if balance.Lt(amount) {
		return fmt.Errorf("%w: %s holds %s %s, need %s",
			ErrInsufficientBalance, from.Hex(), balance.ToBig(), l.Symbol, amount.ToBig())
	}
	l.balances[from] = balance.Sub(balance, amount)
	return nil
}

func (l *Ledger) credit(to common.Address, amount *ui.Int) {
	l.balances[to] = new(ui.Int).Add(l.BalanceOf(to), amount)
}

// Checkpoint captures the ledger and returns a function that rolls it back.
func (l *Ledger) Checkpoint() func() {
	supply := l.totalSupply.Clone()
	balances := make(map[common.Address]*ui.Int, len(l.balances))
	for k, v := range l.balances {
		balances[k] = v.Clone()
	}
	allowances := make(map[common.Address]map[common.Address]*ui.Int, len(l.allowances))
	for owner, m := range l.allowances {
		inner := make(map[common.Address]*ui.Int, len(m))
		for spender, v := range m {
			inner[spender] = v.Clone()
		}
		allowances[owner] = inner
	}
	return func() {
		l.totalSupply = supply
		l.balances = balances
		l.allowances = allowances
	}
}
