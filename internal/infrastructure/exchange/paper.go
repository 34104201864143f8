package exchange

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vitos/candle_momentum_bot/internal/domain"
)

// MarketData is the read side of an exchange.
type MarketData interface {
	FetchCandles(ctx context.Context, symbol, timeframe string, limit int) ([]domain.Candle, error)
	FetchLastPrice(ctx context.Context, symbol string) (float64, error)
}

// marginSlippage is the share of free balance an entry may overdraw. Orders are
// sized at the candle close but fill at the live price.
var marginSlippage = decimal.RequireFromString("0.01")

type paperPosition struct {
	side  domain.Side
	qty   decimal.Decimal
	entry decimal.Decimal
}

// PaperExchange fills market orders at the live last price without touching
// the account. Realized PnL of reduce-only orders is settled in the quote asset.
type PaperExchange struct {
	market MarketData
	quote  string

	mu        sync.Mutex
	balance   decimal.Decimal
	leverage  map[string]int
	positions map[string]paperPosition

	newOrderID func() string
}

func NewPaperExchange(market MarketData, quoteAsset string, startingBalance float64) *PaperExchange {
	return &PaperExchange{
		market:     market,
		quote:      quoteAsset,
		balance:    decimal.NewFromFloat(startingBalance),
		leverage:   make(map[string]int),
		positions:  make(map[string]paperPosition),
		newOrderID: uuid.NewString,
	}
}

func (p *PaperExchange) FetchBalance(ctx context.Context) (map[string]float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return map[string]float64{p.quote: p.balance.InexactFloat64()}, nil
}

func (p *PaperExchange) FetchCandles(ctx context.Context, symbol, timeframe string, limit int) ([]domain.Candle, error) {
	return p.market.FetchCandles(ctx, symbol, timeframe, limit)
}

func (p *PaperExchange) FetchLastPrice(ctx context.Context, symbol string) (float64, error) {
	return p.market.FetchLastPrice(ctx, symbol)
}

func (p *PaperExchange) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	if leverage <= 0 {
		return fmt.Errorf("invalid leverage %d", leverage)
	}
	p.mu.Lock()
	p.leverage[symbol] = leverage
	p.mu.Unlock()
	return nil
}

func (p *PaperExchange) SubmitMarketOrder(ctx context.Context, req domain.OrderRequest) (*domain.OrderConfirmation, error) {
	qty, err := QuantizeQuantity(req.Quantity, decimal.Zero)
	if err != nil {
		return nil, err
	}
	last, err := p.market.FetchLastPrice(ctx, req.Symbol)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrOrderRejected, err)
	}
	price := decimal.NewFromFloat(last)

	p.mu.Lock()
	defer p.mu.Unlock()

	pos, open := p.positions[req.Symbol]
	switch {
	case req.ReduceOnly:
		if !open || pos.side == req.Side {
			return nil, fmt.Errorf("%w: reduce-only order would open %s", domain.ErrOrderRejected, req.Symbol)
		}
		if qty.GreaterThan(pos.qty) {
			qty = pos.qty
		}
		pnl := price.Sub(pos.entry).Mul(qty)
		if pos.side == domain.SideShort {
			pnl = pnl.Neg()
		}
		p.balance = p.balance.Add(pnl)
		pos.qty = pos.qty.Sub(qty)
		if pos.qty.IsZero() {
			delete(p.positions, req.Symbol)
		} else {
			p.positions[req.Symbol] = pos
		}

	case open && pos.side != req.Side:
		return nil, fmt.Errorf("%w: %s already held %s", domain.ErrOrderRejected, req.Symbol, pos.side)

	default:
		lev := p.leverage[req.Symbol]
		if lev <= 0 {
			lev = 1
		}
		margin := qty.Mul(price).Div(decimal.NewFromInt(int64(lev)))
		free := p.balance.Sub(p.usedMarginLocked())
		if margin.GreaterThan(free.Add(free.Mul(marginSlippage))) {
			return nil, fmt.Errorf("%w: insufficient margin for %s %s", domain.ErrOrderRejected, qty.String(), req.Symbol)
		}
		if open {
			total := pos.qty.Add(qty)
			pos.entry = pos.entry.Mul(pos.qty).Add(price.Mul(qty)).Div(total)
			pos.qty = total
		} else {
			pos = paperPosition{side: req.Side, qty: qty, entry: price}
		}
		p.positions[req.Symbol] = pos
	}

	return &domain.OrderConfirmation{
		OrderID:  p.newOrderID(),
		Symbol:   req.Symbol,
		Side:     req.Side,
		Quantity: qty.InexactFloat64(),
		AvgPrice: last,
		Status:   "FILLED",
	}, nil
}

func (p *PaperExchange) usedMarginLocked() decimal.Decimal {
	used := decimal.Zero
	for symbol, pos := range p.positions {
		lev := p.leverage[symbol]
		if lev <= 0 {
			lev = 1
		}
		used = used.Add(pos.qty.Mul(pos.entry).Div(decimal.NewFromInt(int64(lev))))
	}
	return used
}
