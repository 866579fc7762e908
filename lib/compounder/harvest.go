package compounder

import (
	"context"
	"fmt"

	cons "github.com/ftchann/uniswap-compounder/lib/constants"
	la "github.com/ftchann/uniswap-compounder/lib/liquidity_amounts"
	"github.com/ftchann/uniswap-compounder/lib/safecast"

	ui "github.com/holiman/uint256"
	"go.uber.org/zap"
	"lukechampine.com/uint128"
)

// HarvestResult describes one compounding round.
type HarvestResult struct {
	Fees0 *ui.Int
	Fees1 *ui.Int

	SwapZeroForOne bool
	SwapIn         *ui.Int
	SwapOut        *ui.Int

	LiquidityAdded *ui.Int
	// Idle balances left with the manager after the re-deposit.
	Idle0 *ui.Int
	Idle1 *ui.Int

	SqrtPriceX96 *ui.Int
}

func emptyHarvest() HarvestResult {
	return HarvestResult{
		Fees0:          new(ui.Int),
		Fees1:          new(ui.Int),
		SwapIn:         new(ui.Int),
		SwapOut:        new(ui.Int),
		LiquidityAdded: new(ui.Int),
		Idle0:          new(ui.Int),
		Idle1:          new(ui.Int),
	}
}

// Swapped reports whether the round traded against the pool.
func (r HarvestResult) Swapped() bool {
	return r.SwapIn != nil && !r.SwapIn.IsZero()
}

// Harvest collects the fees earned by the position, rebalances them with the
// configured strategy and deposits them back into the range. Anyone may call
// it. No shares are issued, so every share is worth more liquidity after.
func (m *Manager) Harvest(ctx context.Context) (HarvestResult, error) {
	res := emptyHarvest()
	err := m.atomic(ctx, func(ctx context.Context) error {
		if m.shares.TotalSupply().IsZero() {
			return nil
		}
		p, err := m.pool()
		if err != nil {
			return err
		}
		sqrtPriceX96, _, err := p.Slot0()
		if err != nil {
			return err
		}
		if err := m.observations.Check(sqrtPriceX96, m.maxDeviationBps); err != nil {
			return fmt.Errorf("%w: %w", ErrPriceDeviation, err)
		}

		if _, _, err := p.Burn(m.asSelf(ctx), m.address, m.tickLower, m.tickUpper, uint128.Zero); err != nil {
			return err
		}
		res.Fees0, res.Fees1, err = p.Collect(m.asSelf(ctx), m.address, m.address, m.tickLower, m.tickUpper, cons.MaxUint128, cons.MaxUint128)
		if err != nil {
			return err
		}

		target := m.strategy.IdealRatioAt(sqrtPriceX96, m.priceRange)
		instr, err := m.strategy.Rebalance(ctx, m.balances(), target, sqrtPriceX96)
		if err != nil {
			return fmt.Errorf("rebalance: %w", err)
		}
		if !instr.IsZero() {
			amount0, amount1, err := m.swap(ctx, instr.ZeroForOne, instr.AmountIn)
			if err != nil {
				return err
			}
			res.SwapZeroForOne = instr.ZeroForOne
			if instr.ZeroForOne {
				res.SwapIn, res.SwapOut = amount0, safecast.Abs(amount1)
			} else {
				res.SwapIn, res.SwapOut = amount1, safecast.Abs(amount0)
			}
			if sqrtPriceX96, _, err = p.Slot0(); err != nil {
				return err
			}
		}

		idle := m.balances()
		liquidity := la.GetLiquidityForAmounts(sqrtPriceX96, m.priceRange.SqrtPriceLowX96, m.priceRange.SqrtPriceHighX96, idle.Amount0, idle.Amount1)
		if !liquidity.IsZero() {
			if _, _, err := m.mintLiquidity(ctx, liquidity, m.address); err != nil {
				return err
			}
			m.totalLiquidity = new(ui.Int).Add(m.totalLiquidity, liquidity)
		}
		res.LiquidityAdded = liquidity
		res.Idle0 = m.token0.BalanceOf(m.address)
		res.Idle1 = m.token1.BalanceOf(m.address)
		res.SqrtPriceX96 = sqrtPriceX96
		m.observations.Add(sqrtPriceX96)

		m.logger.Info("harvest",
			bigField("fees0", res.Fees0),
			bigField("fees1", res.Fees1),
			zap.Stringer("swap", instr),
			bigField("liquidityAdded", liquidity),
			bigField("totalLiquidity", m.totalLiquidity),
		)
		return nil
	})
	if err != nil {
		return HarvestResult{}, err
	}
	return res, nil
}
