package executor

import (
	"context"
	"fmt"

	"github.com/ftchann/uniswap-compounder/lib/chain"
	cons "github.com/ftchann/uniswap-compounder/lib/constants"
	"github.com/ftchann/uniswap-compounder/lib/fullmath"
	"github.com/ftchann/uniswap-compounder/lib/safecast"
	ent "github.com/ftchann/uniswap-compounder/lib/transaction"

	"github.com/ethereum/go-ethereum/common"
	ui "github.com/holiman/uint256"
)

// faucet settles pool callbacks for replayed actors. The tokens they pay
// with are issued on demand, history only tells what they traded.
type faucet struct {
	e     *Execution
	payer common.Address
}

func (f faucet) MintCallback(ctx context.Context, amount0Owed, amount1Owed *ui.Int, _ []byte) error {
	return f.pay(amount0Owed, amount1Owed)
}

func (f faucet) SwapCallback(ctx context.Context, amount0Delta, amount1Delta *ui.Int, _ []byte) error {
	return f.pay(amount0Delta, amount1Delta)
}

func (f faucet) pay(amount0, amount1 *ui.Int) error {
	pool := f.e.Pool
	if amount0.Sign() > 0 {
		if err := f.e.fund(f.payer, amount0, nil); err != nil {
			return err
		}
		if err := pool.Token0.Transfer(f.payer, pool.Address, amount0); err != nil {
			return err
		}
	}
	if amount1.Sign() > 0 {
		if err := f.e.fund(f.payer, nil, amount1); err != nil {
			return err
		}
		if err := pool.Token1.Transfer(f.payer, pool.Address, amount1); err != nil {
			return err
		}
	}
	return nil
}

func (e *Execution) fund(actor common.Address, amount0, amount1 *ui.Int) error {
	if !isZero(amount0) {
		if err := e.Token0.Issue(actor, amount0); err != nil {
			return err
		}
	}
	if !isZero(amount1) {
		if err := e.Token1.Issue(actor, amount1); err != nil {
			return err
		}
	}
	return nil
}

func (e *Execution) poolMint(ctx context.Context, actor common.Address, trans ent.Transaction) error {
	if isZero(trans.Amount) {
		return nil
	}
	liquidity, err := safecast.ToUint128(trans.Amount)
	if err != nil {
		return err
	}
	return e.Env.Atomic(chain.WithSender(ctx, actor), func(ctx context.Context) error {
		_, _, err := e.Pool.Mint(ctx, actor, trans.TickLower, trans.TickUpper, liquidity, faucet{e: e, payer: actor}, nil)
		return err
	})
}

func (e *Execution) poolBurn(ctx context.Context, actor common.Address, trans ent.Transaction) error {
	if isZero(trans.Amount) {
		return nil
	}
	liquidity, err := safecast.ToUint128(trans.Amount)
	if err != nil {
		return err
	}
	return e.Env.Atomic(chain.WithSender(ctx, actor), func(ctx context.Context) error {
		amount0, amount1, err := e.Pool.Burn(ctx, actor, trans.TickLower, trans.TickUpper, liquidity)
		if err != nil {
			return err
		}
		_, _, err = e.Pool.Collect(ctx, actor, actor, trans.TickLower, trans.TickUpper, amount0, amount1)
		return err
	})
}

// poolSwap replays a swap as exact input of its positive side.
func (e *Execution) poolSwap(ctx context.Context, actor common.Address, trans ent.Transaction) error {
	var zeroForOne bool
	var amountIn *ui.Int
	switch {
	case trans.Amount0.Sign() > 0:
		zeroForOne, amountIn = true, trans.Amount0
	case trans.Amount1.Sign() > 0:
		zeroForOne, amountIn = false, trans.Amount1
	default:
		return fmt.Errorf("swap without input")
	}
	var limit *ui.Int
	if trans.UseX96 {
		limit = trans.SqrtPriceX96
	}
	return e.Env.Atomic(chain.WithSender(ctx, actor), func(ctx context.Context) error {
		_, _, err := e.Pool.Swap(ctx, actor, zeroForOne, amountIn, limit, faucet{e: e, payer: actor}, nil)
		return err
	})
}

func (e *Execution) poolFlash(ctx context.Context, actor common.Address, trans ent.Transaction) error {
	fee := ui.NewInt(uint64(e.Pool.Fee))
	return e.Env.Atomic(chain.WithSender(ctx, actor), func(ctx context.Context) error {
		fee0 := fullmath.MulDivRoundingUp(trans.Amount0, fee, cons.FeeDenominator)
		fee1 := fullmath.MulDivRoundingUp(trans.Amount1, fee, cons.FeeDenominator)
		if err := e.fund(actor, fee0, fee1); err != nil {
			return err
		}
		return e.Pool.Flash(ctx, trans.Amount0, trans.Amount1)
	})
}

func (e *Execution) deposit(ctx context.Context, actor common.Address, amount0, amount1 *ui.Int) error {
	if amount0 == nil {
		amount0 = new(ui.Int)
	}
	if amount1 == nil {
		amount1 = new(ui.Int)
	}
	if err := e.fund(actor, amount0, amount1); err != nil {
		return err
	}
	if !e.approved[actor] {
		e.Token0.Approve(actor, e.Manager.Address(), cons.MaxUint256)
		e.Token1.Approve(actor, e.Manager.Address(), cons.MaxUint256)
		e.approved[actor] = true
	}
	_, err := e.Manager.Mint(chain.WithSender(ctx, actor), actor, amount0, amount1, new(ui.Int), new(ui.Int))
	return err
}

// withdraw burns amount shares, all of the actor's when amount is zero.
func (e *Execution) withdraw(ctx context.Context, actor common.Address, amount *ui.Int) error {
	if isZero(amount) {
		amount = e.Manager.BalanceOf(actor)
	}
	_, _, err := e.Manager.Burn(chain.WithSender(ctx, actor), amount, new(ui.Int), new(ui.Int))
	return err
}
