package domain

import "errors"

var (
	ErrInsufficientData  = errors.New("insufficient candle data")
	ErrInvalidSizing     = errors.New("invalid sizing input")
	ErrInvalidThresholds = errors.New("invalid stop-loss/take-profit thresholds")
	ErrDuplicatePosition = errors.New("position already open")
	ErrNoSuchPosition    = errors.New("no open position")
	ErrOrderRejected     = errors.New("order rejected")
	ErrGatewayTimeout    = errors.New("gateway call timed out")
	ErrNoTradeHistory    = errors.New("no trade history configured")
)
