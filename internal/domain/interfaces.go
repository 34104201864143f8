package domain

import "context"

// Exchange is the gateway the bot trades through.
type Exchange interface {
	// FetchBalance returns only positive balances keyed by asset.
	FetchBalance(ctx context.Context) (map[string]float64, error)
	// FetchCandles returns candles oldest first.
	FetchCandles(ctx context.Context, symbol, timeframe string, limit int) ([]Candle, error)
	FetchLastPrice(ctx context.Context, symbol string) (float64, error)
	// SubmitMarketOrder errors wrap ErrOrderRejected.
	SubmitMarketOrder(ctx context.Context, req OrderRequest) (*OrderConfirmation, error)
}

// LeverageSetter is implemented by exchanges that let the bot push its leverage.
type LeverageSetter interface {
	SetLeverage(ctx context.Context, symbol string, leverage int) error
}

type OrderRequest struct {
	Symbol     string
	Side       Side
	Quantity   float64
	ReduceOnly bool
}

// OrderConfirmation is what the exchange reports after accepting a market order.
// Quantity is the amount actually submitted after lot-size rounding; AvgPrice is 0
// when the exchange does not report a fill price synchronously.
type OrderConfirmation struct {
	OrderID  string  `json:"order_id"`
	Symbol   string  `json:"symbol"`
	Side     Side    `json:"side"`
	Quantity float64 `json:"quantity"`
	AvgPrice float64 `json:"avg_price"`
	Status   string  `json:"status"`
}

// TradeLogger is the append-only sink for closed trades.
type TradeLogger interface {
	Append(ctx context.Context, rec TradeRecord) error
}

// TradeHistory reads back recorded trades, newest first.
type TradeHistory interface {
	ListTrades(ctx context.Context, limit int) ([]TradeRecord, error)
}
