package exchange

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/vitos/candle_momentum_bot/internal/domain"
)

// defaultPrecision applies when the exchange reports no lot step.
const defaultPrecision = 8

// QuantizeQuantity floors qty to a multiple of step. A zero step truncates to
// defaultPrecision decimals. It fails when nothing is left after rounding.
func QuantizeQuantity(qty float64, step decimal.Decimal) (decimal.Decimal, error) {
	q := decimal.NewFromFloat(qty)
	if step.IsPositive() {
		q = q.Div(step).Floor().Mul(step)
	} else {
		q = q.Truncate(defaultPrecision)
	}
	if !q.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: quantity %v below lot step %s", domain.ErrOrderRejected, qty, step.String())
	}
	return q, nil
}

func parseStep(raw string) decimal.Decimal {
	step, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero
	}
	return step
}
