package position

import (
	"errors"

	cons "github.com/ftchann/uniswap-compounder/lib/constants"
	"github.com/ftchann/uniswap-compounder/lib/fullmath"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	ui "github.com/holiman/uint256"
)

// ErrNoPosition is returned when poking a position without liquidity.
var ErrNoPosition = errors.New("position: no liquidity")

type Info struct {
	Liquidity                *ui.Int
	FeeGrowthInside0LastX128 *ui.Int
	FeeGrowthInside1LastX128 *ui.Int
	TokensOwed0              *ui.Int
	TokensOwed1              *ui.Int
}

func NewPosition() *Info {
	return &Info{
		Liquidity:                new(ui.Int),
		FeeGrowthInside0LastX128: new(ui.Int),
		FeeGrowthInside1LastX128: new(ui.Int),
		TokensOwed0:              new(ui.Int),
		TokensOwed1:              new(ui.Int),
	}
}

func (i *Info) Clone() *Info {
	return &Info{
		Liquidity:                i.Liquidity.Clone(),
		FeeGrowthInside0LastX128: i.FeeGrowthInside0LastX128.Clone(),
		FeeGrowthInside1LastX128: i.FeeGrowthInside1LastX128.Clone(),
		TokensOwed0:              i.TokensOwed0.Clone(),
		TokensOwed1:              i.TokensOwed1.Clone(),
	}
}

// Update credits the fees earned since the last update to the tokens owed
// and then applies the (two's complement) liquidity delta.
func (i *Info) Update(liquidityDelta, feeGrowthInside0X128, feeGrowthInside1X128 *ui.Int) error {
	if liquidityDelta.IsZero() && i.Liquidity.IsZero() {
		return ErrNoPosition
	}
	growth0 := new(ui.Int).Sub(feeGrowthInside0X128, i.FeeGrowthInside0LastX128)
	growth1 := new(ui.Int).Sub(feeGrowthInside1X128, i.FeeGrowthInside1LastX128)
	owed0 := fullmath.MulDiv(growth0, i.Liquidity, cons.Q128)
	owed1 := fullmath.MulDiv(growth1, i.Liquidity, cons.Q128)

	i.Liquidity = new(ui.Int).Add(i.Liquidity, liquidityDelta)
	i.FeeGrowthInside0LastX128 = feeGrowthInside0X128.Clone()
	i.FeeGrowthInside1LastX128 = feeGrowthInside1X128.Clone()
	i.TokensOwed0.Add(i.TokensOwed0, owed0)
	i.TokensOwed1.Add(i.TokensOwed1, owed1)
	return nil
}

// Key identifies a position of owner between two ticks, packed as
// address ++ int24 ++ int24 and hashed.
func Key(owner common.Address, tickLower, tickUpper int) common.Hash {
	buf := make([]byte, 0, common.AddressLength+6)
	buf = append(buf, owner.Bytes()...)
	buf = appendInt24(buf, tickLower)
	buf = appendInt24(buf, tickUpper)
	return crypto.Keccak256Hash(buf)
}

func appendInt24(buf []byte, v int) []byte {
	u := uint32(int32(v)) & 0xffffff
	return append(buf, byte(u>>16), byte(u>>8), byte(u))
}
