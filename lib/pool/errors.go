package pool

import "errors"

var (
	ErrNotInitialized        = errors.New("pool: not initialized")
	ErrAlreadyInitialized    = errors.New("pool: already initialized")
	ErrPriceOutOfRange       = errors.New("pool: sqrt price out of range")
	ErrInvalidTickRange      = errors.New("pool: invalid tick range")
	ErrZeroAmount            = errors.New("pool: zero amount")
	ErrLocked                = errors.New("pool: locked")
	ErrPriceLimit            = errors.New("pool: invalid price limit")
	ErrUnderpaid             = errors.New("pool: callback did not pay the amount owed")
	ErrNoPosition            = errors.New("pool: position has no liquidity")
	ErrInsufficientLiquidity = errors.New("pool: burn exceeds position liquidity")
	ErrNoLiquidity           = errors.New("pool: no in-range liquidity")
	ErrPoolExists            = errors.New("pool: already exists")
	ErrIdenticalTokens       = errors.New("pool: identical tokens")
	ErrUnsupportedFee        = errors.New("pool: unsupported fee tier")
)
