package compounder

import (
	"context"
	"fmt"

	"github.com/ftchann/uniswap-compounder/lib/chain"
	"github.com/ftchann/uniswap-compounder/lib/fullmath"
	la "github.com/ftchann/uniswap-compounder/lib/liquidity_amounts"
	"github.com/ftchann/uniswap-compounder/lib/pool"
	"github.com/ftchann/uniswap-compounder/lib/safecast"

	"github.com/ethereum/go-ethereum/common"
	ui "github.com/holiman/uint256"
	"go.uber.org/zap"
)

// Mint deposits up to the desired amounts from the caller into the range
// and issues shares to recipient. The caller must have approved the manager
// on both token ledgers.
func (m *Manager) Mint(ctx context.Context, recipient common.Address, amount0Desired, amount1Desired, amount0Min, amount1Min *ui.Int) (shares *ui.Int, err error) {
	caller := chain.Sender(ctx)
	err = m.atomic(ctx, func(ctx context.Context) error {
		p, err := m.pool()
		if err != nil {
			return err
		}
		sqrtPriceX96, _, err := p.Slot0()
		if err != nil {
			return err
		}

		liquidity := la.GetLiquidityForAmounts(sqrtPriceX96, m.priceRange.SqrtPriceLowX96, m.priceRange.SqrtPriceHighX96, amount0Desired, amount1Desired)
		if liquidity.IsZero() {
			return ErrZeroLiquidity
		}
		amount0, amount1, err := m.mintLiquidity(ctx, liquidity, caller)
		if err != nil {
			return err
		}

		supply := m.shares.TotalSupply()
		if supply.IsZero() {
			shares = liquidity.Clone()
		} else {
			shares, err = fullmath.MulDivChecked(liquidity, supply, m.totalLiquidity)
			if err != nil {
				return err
			}
			if shares.IsZero() {
				return ErrZeroShares
			}
		}

		m.totalLiquidity = new(ui.Int).Add(m.totalLiquidity, liquidity)
		if err := m.shares.Issue(recipient, shares); err != nil {
			return fmt.Errorf("%w: %w", ErrArithmeticOverflow, err)
		}

		if amount0.Lt(amount0Min) || amount1.Lt(amount1Min) {
			return fmt.Errorf("%w: paid %s/%s, minimum %s/%s", ErrSlippage,
				amount0.ToBig(), amount1.ToBig(), amount0Min.ToBig(), amount1Min.ToBig())
		}
		m.observations.Add(sqrtPriceX96)

		m.logger.Debug("mint",
			zap.Stringer("caller", caller),
			zap.Stringer("recipient", recipient),
			bigField("liquidity", liquidity),
			bigField("shares", shares),
			bigField("amount0", amount0),
			bigField("amount1", amount1),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return shares, nil
}

// Burn redeems the caller's shares for the proportional part of the managed
// liquidity and pays the released tokens to the caller. Fees accrued but
// not yet harvested stay with the remaining holders.
func (m *Manager) Burn(ctx context.Context, shareAmount, amount0Min, amount1Min *ui.Int) (amount0, amount1 *ui.Int, err error) {
	caller := chain.Sender(ctx)
	err = m.atomic(ctx, func(ctx context.Context) error {
		if shareAmount.IsZero() {
			return ErrZeroShares
		}
		p, err := m.pool()
		if err != nil {
			return err
		}
		supply := m.shares.TotalSupply()
		if supply.IsZero() {
			return fmt.Errorf("%w: no shares outstanding", ErrInsufficientBalance)
		}

		liquidity, err := fullmath.MulDivChecked(shareAmount, m.totalLiquidity, supply)
		if err != nil {
			return err
		}
		if err := m.shares.Destroy(caller, shareAmount); err != nil {
			return fmt.Errorf("%w: %w", ErrInsufficientBalance, err)
		}

		amount128, err := safecast.ToUint128(liquidity)
		if err != nil {
			return err
		}
		amount0, amount1, err = p.Burn(m.asSelf(ctx), m.address, m.tickLower, m.tickUpper, amount128)
		if err != nil {
			return err
		}
		m.totalLiquidity = new(ui.Int).Sub(m.totalLiquidity, liquidity)

		if amount0.Lt(amount0Min) || amount1.Lt(amount1Min) {
			return fmt.Errorf("%w: released %s/%s, minimum %s/%s", ErrSlippage,
				amount0.ToBig(), amount1.ToBig(), amount0Min.ToBig(), amount1Min.ToBig())
		}
		if _, _, err := p.Collect(m.asSelf(ctx), m.address, caller, m.tickLower, m.tickUpper, amount0, amount1); err != nil {
			return err
		}

		m.logger.Debug("burn",
			zap.Stringer("caller", caller),
			bigField("shares", shareAmount),
			bigField("liquidity", liquidity),
			bigField("amount0", amount0),
			bigField("amount1", amount1),
		)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return amount0, amount1, nil
}

// mintLiquidity adds liquidity to the managed position, paid by payer
// through MintCallback.
func (m *Manager) mintLiquidity(ctx context.Context, liquidity *ui.Int, payer common.Address) (amount0, amount1 *ui.Int, err error) {
	p, err := m.pool()
	if err != nil {
		return nil, nil, err
	}
	amount128, err := safecast.ToUint128(liquidity)
	if err != nil {
		return nil, nil, err
	}
	data, err := m.begin(opMint, payer)
	if err != nil {
		return nil, nil, err
	}
	defer m.end()
	return p.Mint(m.asSelf(ctx), m.address, m.tickLower, m.tickUpper, amount128, m, data)
}

// swap trades exactly amountIn of the manager's idle balance against the
// pool with the widest price limit.
func (m *Manager) swap(ctx context.Context, zeroForOne bool, amountIn *ui.Int) (amount0, amount1 *ui.Int, err error) {
	p, err := m.pool()
	if err != nil {
		return nil, nil, err
	}
	amountSpecified, err := safecast.ToInt256(amountIn)
	if err != nil {
		return nil, nil, err
	}
	limit := pool.MaxPriceLimit()
	if zeroForOne {
		limit = pool.MinPriceLimit()
	}
	data, err := m.begin(opSwap, m.address)
	if err != nil {
		return nil, nil, err
	}
	defer m.end()
	return p.Swap(m.asSelf(ctx), m.address, zeroForOne, amountSpecified, limit, m, data)
}
