package usecase

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/vitos/candle_momentum_bot/internal/domain"
)

// PositionSizer turns quote balance and leverage into a raw order quantity.
// Lot-size rounding is left to the exchange adapter.
type PositionSizer struct{}

func NewPositionSizer() *PositionSizer {
	return &PositionSizer{}
}

func (s *PositionSizer) ComputeQuantity(availableQuote float64, leverage int, referencePrice float64) (float64, error) {
	if availableQuote <= 0 {
		return 0, fmt.Errorf("%w: available quote %v", domain.ErrInvalidSizing, availableQuote)
	}
	if referencePrice <= 0 {
		return 0, fmt.Errorf("%w: reference price %v", domain.ErrInvalidSizing, referencePrice)
	}
	if leverage <= 0 {
		return 0, fmt.Errorf("%w: leverage %d", domain.ErrInvalidSizing, leverage)
	}

	notional := decimal.NewFromFloat(availableQuote).Mul(decimal.NewFromInt(int64(leverage)))
	return notional.Div(decimal.NewFromFloat(referencePrice)).InexactFloat64(), nil
}
