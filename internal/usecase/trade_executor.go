package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/vitos/candle_momentum_bot/internal/domain"
)

// TradeExecutor submits the entry and exit market orders for a position.
type TradeExecutor struct {
	exchange domain.Exchange
}

func NewTradeExecutor(exchange domain.Exchange) *TradeExecutor {
	return &TradeExecutor{
		exchange: exchange,
	}
}

// Open submits the entry order. The returned confirmation always carries the
// quantity that was sent.
func (e *TradeExecutor) Open(ctx context.Context, symbol string, side domain.Side, quantity float64) (*domain.OrderConfirmation, error) {
	if !side.Valid() {
		return nil, fmt.Errorf("invalid side: %s", side)
	}
	return e.submit(ctx, domain.OrderRequest{Symbol: symbol, Side: side, Quantity: quantity})
}

// Close submits the reduce-only order opposing pos.
func (e *TradeExecutor) Close(ctx context.Context, pos *domain.Position) (*domain.OrderConfirmation, error) {
	return e.submit(ctx, domain.OrderRequest{
		Symbol:     pos.Symbol,
		Side:       pos.Side.Opposite(),
		Quantity:   pos.Quantity,
		ReduceOnly: true,
	})
}

func (e *TradeExecutor) submit(ctx context.Context, req domain.OrderRequest) (*domain.OrderConfirmation, error) {
	conf, err := e.exchange.SubmitMarketOrder(ctx, req)
	if err != nil {
		if !errors.Is(err, domain.ErrOrderRejected) {
			err = fmt.Errorf("%w: %w", domain.ErrOrderRejected, err)
		}
		return nil, fmt.Errorf("%s %s %v: %w", req.Side, req.Symbol, req.Quantity, err)
	}
	if conf == nil {
		conf = &domain.OrderConfirmation{Symbol: req.Symbol, Side: req.Side}
	}
	if conf.Quantity <= 0 {
		conf.Quantity = req.Quantity
	}
	return conf, nil
}
