// Package result holds the report records of a simulation run.
package result

import (
	"math/big"

	cons "github.com/ftchann/uniswap-compounder/lib/constants"

	ui "github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

type Snapshot struct {
	Timestamp      int    `json:"timestamp"`
	SqrtPriceX96   string `json:"sqrtPriceX96"`
	Price          string `json:"price"`
	TotalLiquidity string `json:"totalLiquidity"`
	TotalSupply    string `json:"totalSupply"`
	Amount0        string `json:"amount0"`
	Amount1        string `json:"amount1"`
	// Value of the whole position in token1, and per share.
	Value      string `json:"value"`
	SharePrice string `json:"sharePrice"`
}

type HarvestRecord struct {
	Timestamp      int    `json:"timestamp"`
	Fees0          string `json:"fees0"`
	Fees1          string `json:"fees1"`
	SwapZeroForOne bool   `json:"swapZeroForOne"`
	SwapIn         string `json:"swapIn"`
	SwapOut        string `json:"swapOut"`
	LiquidityAdded string `json:"liquidityAdded"`
	Idle0          string `json:"idle0"`
	Idle1          string `json:"idle1"`
	TotalLiquidity string `json:"totalLiquidity"`
}

type Save struct {
	Strategy    string      `json:"strategy"`
	TickLower   int         `json:"tick_lower"`
	TickUpper   int         `json:"tick_upper"`
	StartAmount string      `json:"start_amount"`
	StartTime   int         `json:"start_time"`
	EndTime     int         `json:"end_time"`
	Results     []RunResult `json:"results"`
}

type RunResult struct {
	HarvestInterval int    `json:"harvest_interval"`
	Harvests        int    `json:"harvests"`
	Skipped         int    `json:"skipped"`
	StartSharePrice string `json:"start_share_price"`
	EndSharePrice   string `json:"end_share_price"`
	// Growth is EndSharePrice / StartSharePrice - 1.
	Growth          string `json:"growth"`
	PriceVolatility string `json:"price_volatility"`
	EndValue        string `json:"end_value"`
}

// Amount formats a raw token amount with its decimals.
func Amount(v *ui.Int, decimals uint8) string {
	if v == nil {
		return "0"
	}
	return decimal.NewFromBigInt(v.ToBig(), -int32(decimals)).String()
}

// Price converts a Q64.96 sqrt price into token1 per token0 in whole units.
func Price(sqrtPriceX96 *ui.Int, decimals0, decimals1 uint8) decimal.Decimal {
	if sqrtPriceX96 == nil {
		return decimal.Zero
	}
	sq := new(big.Int).Mul(sqrtPriceX96.ToBig(), sqrtPriceX96.ToBig())
	raw := decimal.NewFromBigInt(sq, 0).DivRound(decimal.NewFromBigInt(cons.Q192.ToBig(), 0), 36)
	return raw.Shift(int32(decimals0) - int32(decimals1))
}

// PerShare divides a token1 value by the share supply, both raw. Shares
// carry 18 decimals.
func PerShare(value, supply *ui.Int, decimals1 uint8) decimal.Decimal {
	if supply == nil || supply.IsZero() {
		return decimal.Zero
	}
	v := decimal.NewFromBigInt(value.ToBig(), -int32(decimals1))
	s := decimal.NewFromBigInt(supply.ToBig(), -18)
	return v.DivRound(s, 18)
}

// Growth returns end/start - 1, zero when start is zero.
func Growth(start, end decimal.Decimal) decimal.Decimal {
	if start.IsZero() {
		return decimal.Zero
	}
	return end.DivRound(start, 18).Sub(decimal.NewFromInt(1))
}
