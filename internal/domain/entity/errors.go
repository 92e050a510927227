package entity

import "errors"

var (
	ErrTransport        = errors.New("chain read failed")
	ErrUnknownToken     = errors.New("token not in registry")
	ErrUnpricedToken    = errors.New("no price path for token")
	ErrZeroLiquidity    = errors.New("pool has no liquidity")
	ErrPoolCountInvalid = errors.New("pool manager reported an implausible pool count")
)
