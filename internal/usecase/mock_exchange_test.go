package usecase_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/vitos/candle_momentum_bot/internal/domain"
)

// MockExchange is a scriptable gateway. Errors set on it are returned once and
// then cleared so a following tick sees a healthy exchange.
type MockExchange struct {
	mu sync.Mutex

	Candles  []domain.Candle
	Balances map[string]float64
	Price    float64

	CandlesErr error
	BalanceErr error
	PriceErr   error
	OrderErr   error

	Orders        []domain.OrderRequest
	BalanceCalls  int
	CandleCalls   int
	LeverageCalls int
}

func (m *MockExchange) FetchBalance(ctx context.Context) (map[string]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.BalanceCalls++
	if err := m.BalanceErr; err != nil {
		m.BalanceErr = nil
		return nil, err
	}
	return m.Balances, nil
}

func (m *MockExchange) FetchCandles(ctx context.Context, symbol, timeframe string, limit int) ([]domain.Candle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CandleCalls++
	if err := m.CandlesErr; err != nil {
		m.CandlesErr = nil
		return nil, err
	}
	return m.Candles, nil
}

func (m *MockExchange) FetchLastPrice(ctx context.Context, symbol string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.PriceErr; err != nil {
		m.PriceErr = nil
		return 0, err
	}
	return m.Price, nil
}

func (m *MockExchange) SubmitMarketOrder(ctx context.Context, req domain.OrderRequest) (*domain.OrderConfirmation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.OrderErr; err != nil {
		m.OrderErr = nil
		return nil, err
	}
	m.Orders = append(m.Orders, req)
	return &domain.OrderConfirmation{
		OrderID:  fmt.Sprintf("order-%d", len(m.Orders)),
		Symbol:   req.Symbol,
		Side:     req.Side,
		Quantity: req.Quantity,
		Status:   "FILLED",
	}, nil
}

func (m *MockExchange) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LeverageCalls++
	return nil
}

func (m *MockExchange) orders() []domain.OrderRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.OrderRequest(nil), m.Orders...)
}

// MockJournal records appended trades.
type MockJournal struct {
	mu      sync.Mutex
	Records []domain.TradeRecord
	Err     error
}

func (j *MockJournal) Append(ctx context.Context, rec domain.TradeRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.Err != nil {
		return j.Err
	}
	j.Records = append(j.Records, rec)
	return nil
}

// candlesWithVolumes builds oldest-first candles; green candles close above open.
func candlesWithVolumes(lastClose float64, green []bool, volumes []float64) []domain.Candle {
	out := make([]domain.Candle, len(volumes))
	for i, v := range volumes {
		open, closePrice := lastClose+10, lastClose
		if green[i] {
			open, closePrice = lastClose-10, lastClose
		}
		out[i] = domain.Candle{Time: int64(i * 60), Open: open, High: open + 20, Low: open - 20, Close: closePrice, Volume: v}
	}
	return out
}
