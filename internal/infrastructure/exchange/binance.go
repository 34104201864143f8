package exchange

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vitos/candle_momentum_bot/internal/domain"
	"golang.org/x/time/rate"
)

// BinanceAdapter trades USDⓈ-M futures through the go-binance client.
type BinanceAdapter struct {
	client  *futures.Client
	limiter *rate.Limiter

	mu    sync.Mutex
	steps map[string]decimal.Decimal

	newOrderID func() string
}

type BinanceOptions struct {
	Testnet bool
	// BaseURL overrides the REST endpoint.
	BaseURL string
	// RequestsPerSecond throttles REST calls; 0 means 10/s with a burst of 20.
	RequestsPerSecond float64
}

func NewBinanceAdapter(apiKey, apiSecret string, opts BinanceOptions) *BinanceAdapter {
	futures.UseTestnet = opts.Testnet

	client := futures.NewClient(apiKey, apiSecret)
	client.HTTPClient = &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	if opts.BaseURL != "" {
		client.BaseURL = opts.BaseURL
	}

	limit, burst := rate.Limit(10), 20
	if opts.RequestsPerSecond > 0 {
		limit, burst = rate.Limit(opts.RequestsPerSecond), int(opts.RequestsPerSecond)*2
	}

	return &BinanceAdapter{
		client:     client,
		limiter:    rate.NewLimiter(limit, burst),
		steps:      make(map[string]decimal.Decimal),
		newOrderID: uuid.NewString,
	}
}

func (b *BinanceAdapter) FetchBalance(ctx context.Context) (map[string]float64, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	balances, err := b.client.NewGetBalanceService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance balance: %w", err)
	}

	out := make(map[string]float64)
	for _, bal := range balances {
		v, err := strconv.ParseFloat(bal.Balance, 64)
		if err != nil || v <= 0 {
			continue
		}
		out[bal.Asset] = v
	}
	return out, nil
}

func (b *BinanceAdapter) FetchCandles(ctx context.Context, symbol, timeframe string, limit int) ([]domain.Candle, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	klines, err := b.client.NewKlinesService().
		Symbol(symbol).
		Interval(timeframe).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance klines: %w", err)
	}

	// Binance returns klines oldest first.
	candles := make([]domain.Candle, 0, len(klines))
	for _, k := range klines {
		c := domain.Candle{Time: k.OpenTime / 1000}
		var perr error
		for _, f := range []struct {
			dst *float64
			raw string
		}{{&c.Open, k.Open}, {&c.High, k.High}, {&c.Low, k.Low}, {&c.Close, k.Close}, {&c.Volume, k.Volume}} {
			if *f.dst, perr = strconv.ParseFloat(f.raw, 64); perr != nil {
				return nil, fmt.Errorf("binance kline %d: %w", k.OpenTime, perr)
			}
		}
		candles = append(candles, c)
	}
	return candles, nil
}

func (b *BinanceAdapter) FetchLastPrice(ctx context.Context, symbol string) (float64, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	prices, err := b.client.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("binance price: %w", err)
	}
	for _, p := range prices {
		if p.Symbol == symbol {
			return strconv.ParseFloat(p.Price, 64)
		}
	}
	return 0, fmt.Errorf("symbol not found: %s", symbol)
}

func (b *BinanceAdapter) SubmitMarketOrder(ctx context.Context, req domain.OrderRequest) (*domain.OrderConfirmation, error) {
	step, err := b.lotStep(ctx, req.Symbol)
	if err != nil {
		return nil, rejected(err)
	}
	qty, err := QuantizeQuantity(req.Quantity, step)
	if err != nil {
		return nil, err
	}

	side := futures.SideTypeBuy
	if req.Side == domain.SideShort {
		side = futures.SideTypeSell
	}

	svc := b.client.NewCreateOrderService().
		Symbol(req.Symbol).
		Side(side).
		Type(futures.OrderTypeMarket).
		Quantity(qty.String()).
		NewClientOrderID(b.newOrderID())
	if req.ReduceOnly {
		svc = svc.ReduceOnly(true)
	}

	if err := b.limiter.Wait(ctx); err != nil {
		return nil, rejected(err)
	}
	resp, err := svc.Do(ctx)
	if err != nil {
		return nil, rejected(err)
	}

	avg, _ := strconv.ParseFloat(resp.AvgPrice, 64)
	return &domain.OrderConfirmation{
		OrderID:  strconv.FormatInt(resp.OrderID, 10),
		Symbol:   resp.Symbol,
		Side:     req.Side,
		Quantity: qty.InexactFloat64(),
		AvgPrice: avg,
		Status:   string(resp.Status),
	}, nil
}

func (b *BinanceAdapter) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	if err := b.limiter.Wait(ctx); err != nil {
		return err
	}
	_, err := b.client.NewChangeLeverageService().Symbol(symbol).Leverage(leverage).Do(ctx)
	return err
}

// lotStep caches the LOT_SIZE step of symbol.
func (b *BinanceAdapter) lotStep(ctx context.Context, symbol string) (decimal.Decimal, error) {
	b.mu.Lock()
	step, ok := b.steps[symbol]
	b.mu.Unlock()
	if ok {
		return step, nil
	}

	if err := b.limiter.Wait(ctx); err != nil {
		return decimal.Zero, err
	}
	info, err := b.client.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("binance exchange info: %w", err)
	}
	for i := range info.Symbols {
		s := &info.Symbols[i]
		if s.Symbol != symbol {
			continue
		}
		if f := s.LotSizeFilter(); f != nil {
			step = parseStep(f.StepSize)
		}
		b.mu.Lock()
		b.steps[symbol] = step
		b.mu.Unlock()
		return step, nil
	}
	return decimal.Zero, fmt.Errorf("symbol not listed: %s", symbol)
}

func rejected(err error) error {
	if errors.Is(err, domain.ErrOrderRejected) {
		return err
	}
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: binance code %d: %s", domain.ErrOrderRejected, apiErr.Code, apiErr.Message)
	}
	return fmt.Errorf("%w: %w", domain.ErrOrderRejected, err)
}
