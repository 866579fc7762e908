package compounder

import "errors"

var (
	ErrSlippage              = errors.New("compounder: price slippage check")
	ErrInsufficientBalance   = errors.New("compounder: insufficient balance")
	ErrInvalidCallbackOrigin = errors.New("compounder: invalid callback origin")
	ErrUninitializedPool     = errors.New("compounder: pool does not exist or is not initialized")
	ErrArithmeticOverflow    = errors.New("compounder: arithmetic overflow")
	ErrReentrant             = errors.New("compounder: reentrant call")
	ErrZeroLiquidity         = errors.New("compounder: amounts add no liquidity")
	ErrZeroShares            = errors.New("compounder: zero shares")
	ErrPriceDeviation        = errors.New("compounder: price deviates from recent observations")
	ErrInvalidRange          = errors.New("compounder: invalid range")
)
