package pool

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/ftchann/uniswap-compounder/lib/token"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// PoolInitCodeHash is mixed into every pool address.
var PoolInitCodeHash = common.HexToHash("0xe34f199b19b2b4f47f68442619d555527d244f78a3297ea89325f843f87b8b54")

type poolKey struct {
	token0, token1 common.Address
	fee            int
}

// Factory deploys pools at deterministic addresses and keeps a registry
// of them.
type Factory struct {
	Address common.Address
	pools   map[poolKey]*Pool
}

func NewFactory(address common.Address) *Factory {
	return &Factory{Address: address, pools: make(map[poolKey]*Pool)}
}

// SortTokens orders two token addresses, the lower one is token0.
func SortTokens(tokenA, tokenB common.Address) (token0, token1 common.Address, err error) {
	switch bytes.Compare(tokenA.Bytes(), tokenB.Bytes()) {
	case 0:
		return common.Address{}, common.Address{}, ErrIdenticalTokens
	case 1:
		return tokenB, tokenA, nil
	default:
		return tokenA, tokenB, nil
	}
}

// ComputeAddress derives the address of the pool for a sorted token pair
// and fee deployed by factory.
func ComputeAddress(factory, token0, token1 common.Address, fee int) common.Address {
	salt := crypto.Keccak256Hash(
		common.LeftPadBytes(token0.Bytes(), 32),
		common.LeftPadBytes(token1.Bytes(), 32),
		common.LeftPadBytes(big.NewInt(int64(fee)).Bytes(), 32),
	)
	return crypto.CreateAddress2(factory, salt, PoolInitCodeHash.Bytes())
}

// CreatePool deploys an uninitialized pool for the two tokens.
func (f *Factory) CreatePool(tokenA, tokenB *token.Ledger, fee int) (*Pool, error) {
	token0, token1, err := SortTokens(tokenA.Address, tokenB.Address)
	if err != nil {
		return nil, err
	}
	key := poolKey{token0, token1, fee}
	if _, ok := f.pools[key]; ok {
		return nil, fmt.Errorf("%w: %s/%s fee %d", ErrPoolExists, token0.Hex(), token1.Hex(), fee)
	}
	ledger0, ledger1 := tokenA, tokenB
	if tokenA.Address != token0 {
		ledger0, ledger1 = tokenB, tokenA
	}
	p, err := NewPool(ComputeAddress(f.Address, token0, token1, fee), ledger0, ledger1, fee)
	if err != nil {
		return nil, err
	}
	f.pools[key] = p
	return p, nil
}

// GetPool returns the pool for the pair in either order, nil if none exists.
func (f *Factory) GetPool(tokenA, tokenB common.Address, fee int) *Pool {
	token0, token1, err := SortTokens(tokenA, tokenB)
	if err != nil {
		return nil
	}
	return f.pools[poolKey{token0, token1, fee}]
}
