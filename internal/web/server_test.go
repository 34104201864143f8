package web_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitos/candle_momentum_bot/internal/domain"
	"github.com/vitos/candle_momentum_bot/internal/usecase"
	"github.com/vitos/candle_momentum_bot/internal/web"
	"go.uber.org/zap"
)

type stubExchange struct{}

func (stubExchange) FetchBalance(ctx context.Context) (map[string]float64, error) {
	return map[string]float64{"USDT": 1000}, nil
}

func (stubExchange) FetchCandles(ctx context.Context, symbol, timeframe string, limit int) ([]domain.Candle, error) {
	vols := []float64{10, 10, 10, 50, 60}
	candles := make([]domain.Candle, len(vols))
	for i, v := range vols {
		candles[i] = domain.Candle{Time: int64(i * 60), Open: 29900, High: 30100, Low: 29800, Close: 30000, Volume: v}
	}
	return candles, nil
}

func (stubExchange) FetchLastPrice(ctx context.Context, symbol string) (float64, error) {
	return 30000, nil
}

func (stubExchange) SubmitMarketOrder(ctx context.Context, req domain.OrderRequest) (*domain.OrderConfirmation, error) {
	return &domain.OrderConfirmation{OrderID: "1", Symbol: req.Symbol, Side: req.Side, Quantity: req.Quantity}, nil
}

type stubHistory struct {
	trades []domain.TradeRecord
	err    error
	limit  int
}

func (h *stubHistory) ListTrades(ctx context.Context, limit int) ([]domain.TradeRecord, error) {
	h.limit = limit
	return h.trades, h.err
}

func newLoop(t *testing.T) *usecase.TradingLoop {
	t.Helper()
	cfg := domain.StrategyConfig{
		Symbol:            "BTCUSDT",
		Timeframe:         "1m",
		CandleLimit:       5,
		QuoteAsset:        "USDT",
		Leverage:          20,
		StopLossPct:       2,
		TakeProfitPct:     5,
		VolumeBaseline:    domain.BaselineWindow,
		PollInterval:      time.Second,
		PostCloseCooldown: time.Minute,
	}
	return usecase.NewTradingLoop(cfg, stubExchange{}, usecase.NewPositionTracker(), &nopJournal{}, zap.NewNop())
}

type nopJournal struct{}

func (nopJournal) Append(ctx context.Context, rec domain.TradeRecord) error { return nil }

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestServer_Health(t *testing.T) {
	s := web.NewServer(0, newLoop(t), nil, zap.NewNop())
	rec := get(t, s.Handler(), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestServer_StatusAndPositions(t *testing.T) {
	loop := newLoop(t)
	s := web.NewServer(0, loop, nil, zap.NewNop())

	rec := get(t, s.Handler(), "/status")
	require.Equal(t, http.StatusOK, rec.Code)
	var before map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &before))
	assert.Nil(t, before["last_iteration"])
	assert.EqualValues(t, 0, before["iterations"])

	res := loop.Tick(context.Background(), time.Now())
	require.Equal(t, usecase.EntryOpened, res.Entry)

	rec = get(t, s.Handler(), "/status")
	var after struct {
		Iterations    int64 `json:"iterations"`
		OpenPositions int   `json:"open_positions"`
		Strategy      struct {
			Symbol   string `json:"symbol"`
			Leverage int    `json:"leverage"`
		} `json:"strategy"`
		LastIteration struct {
			Entry  string `json:"entry"`
			Signal struct {
				Fires bool   `json:"fires"`
				Side  string `json:"side"`
			} `json:"signal"`
		} `json:"last_iteration"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &after))
	assert.Equal(t, int64(1), after.Iterations)
	assert.Equal(t, 1, after.OpenPositions)
	assert.Equal(t, "BTCUSDT", after.Strategy.Symbol)
	assert.Equal(t, 20, after.Strategy.Leverage)
	assert.Equal(t, "opened", after.LastIteration.Entry)
	assert.True(t, after.LastIteration.Signal.Fires)
	assert.Equal(t, "LONG", after.LastIteration.Signal.Side)

	rec = get(t, s.Handler(), "/positions")
	var positions []domain.Position
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &positions))
	require.Len(t, positions, 1)
	assert.Equal(t, domain.SideLong, positions[0].Side)
	assert.InDelta(t, 29400.0, positions[0].StopLossPrice, 1e-9)
	assert.InDelta(t, 31500.0, positions[0].TakeProfitPrice, 1e-9)
}

func TestServer_Trades(t *testing.T) {
	history := &stubHistory{trades: []domain.TradeRecord{{Symbol: "BTCUSDT", Side: domain.SideLong, ExitPrice: 31600}}}
	s := web.NewServer(0, newLoop(t), history, zap.NewNop())

	rec := get(t, s.Handler(), "/trades?limit=5")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, history.limit)

	var trades []domain.TradeRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &trades))
	require.Len(t, trades, 1)
	assert.Equal(t, 31600.0, trades[0].ExitPrice)

	rec = get(t, s.Handler(), "/trades?limit=abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	history.err = errors.New("disk gone")
	rec = get(t, s.Handler(), "/trades")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, 50, history.limit)
}

func TestServer_TradesWithoutHistory(t *testing.T) {
	s := web.NewServer(0, newLoop(t), nil, zap.NewNop())
	rec := get(t, s.Handler(), "/trades")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_TradesEmptyJournal(t *testing.T) {
	history := &stubHistory{err: fmt.Errorf("fanout: %w", domain.ErrNoTradeHistory)}
	s := web.NewServer(0, newLoop(t), history, zap.NewNop())
	rec := get(t, s.Handler(), "/trades")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
