package exchange

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/vitos/candle_momentum_bot/internal/domain"
	"go.uber.org/zap"
)

const (
	BybitBaseURL        = "https://api.bybit.com"
	BybitWSURL          = "wss://stream.bybit.com/v5/public/linear"
	BybitTestnetBaseURL = "https://api-testnet.bybit.com"
	BybitTestnetWSURL   = "wss://stream-testnet.bybit.com/v5/public/linear"

	// retCode returned when leverage already matches the request.
	bybitLeverageNotModified = 110043
)

// tickFresh bounds how old a streamed trade price may be before REST is used.
const tickFresh = 5 * time.Second

type tick struct {
	price float64
	at    time.Time
}

type BybitAdapter struct {
	apiKey    string
	apiSecret string
	baseURL   string
	wsURL     string
	client    *http.Client
	logger    *zap.Logger

	mu     sync.Mutex
	wsConn *websocket.Conn
	ticks  map[string]tick
	steps  map[string]decimal.Decimal

	newOrderID func() string
	timeNow    func() time.Time
}

func NewBybitAdapter(apiKey, apiSecret, baseURL, wsURL string, logger *zap.Logger) *BybitAdapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BybitAdapter{
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		baseURL:    baseURL,
		wsURL:      wsURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
		ticks:      make(map[string]tick),
		steps:      make(map[string]decimal.Decimal),
		newOrderID: uuid.NewString,
		timeNow:    time.Now,
	}
}

// --- REST API ---

func (b *BybitAdapter) sign(params string, timestamp int64, recvWindow int) string {
	// timestamp + apiKey + recvWindow + params
	toSign := fmt.Sprintf("%d%s%d%s", timestamp, b.apiKey, recvWindow, params)
	h := hmac.New(sha256.New, []byte(b.apiSecret))
	h.Write([]byte(toSign))
	return hex.EncodeToString(h.Sum(nil))
}

func (b *BybitAdapter) sendRequest(ctx context.Context, method, path string, payload map[string]interface{}) ([]byte, error) {
	timestamp := b.timeNow().UnixMilli()
	recvWindow := 5000

	var body []byte
	var paramsStr string

	if payload != nil {
		jsonBody, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = jsonBody
		paramsStr = string(jsonBody)
	} else if method == http.MethodGet {
		if idx := strings.Index(path, "?"); idx != -1 {
			paramsStr = path[idx+1:]
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}

	req.Header.Set("X-BAPI-API-KEY", b.apiKey)
	req.Header.Set("X-BAPI-TIMESTAMP", strconv.FormatInt(timestamp, 10))
	req.Header.Set("X-BAPI-SIGN", b.sign(paramsStr, timestamp, recvWindow))
	req.Header.Set("X-BAPI-RECV-WINDOW", strconv.Itoa(recvWindow))
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("API error: %s", string(respBody))
	}

	return respBody, nil
}

// bybitEnvelope is the common V5 response wrapper.
type bybitEnvelope struct {
	RetCode int             `json:"retCode"`
	RetMsg  string          `json:"retMsg"`
	Result  json.RawMessage `json:"result"`
}

func (b *BybitAdapter) call(ctx context.Context, method, path string, payload map[string]interface{}, out interface{}) error {
	raw, err := b.sendRequest(ctx, method, path, payload)
	if err != nil {
		return err
	}
	var env bybitEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return err
	}
	if env.RetCode != 0 {
		return &BybitError{Code: env.RetCode, Message: env.RetMsg}
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(env.Result, out)
}

type BybitError struct {
	Code    int
	Message string
}

func (e *BybitError) Error() string {
	return fmt.Sprintf("bybit error %d: %s", e.Code, e.Message)
}

func (b *BybitAdapter) FetchBalance(ctx context.Context) (map[string]float64, error) {
	var result struct {
		List []struct {
			Coin []struct {
				Coin          string `json:"coin"`
				WalletBalance string `json:"walletBalance"`
			} `json:"coin"`
		} `json:"list"`
	}
	if err := b.call(ctx, http.MethodGet, "/v5/account/wallet-balance?accountType=UNIFIED", nil, &result); err != nil {
		return nil, fmt.Errorf("bybit balance: %w", err)
	}

	out := make(map[string]float64)
	for _, acct := range result.List {
		for _, c := range acct.Coin {
			v, err := strconv.ParseFloat(c.WalletBalance, 64)
			if err != nil || v <= 0 {
				continue
			}
			out[c.Coin] += v
		}
	}
	return out, nil
}

// bybitIntervals maps exchange-neutral timeframes onto V5 kline intervals.
var bybitIntervals = map[string]string{
	"1m": "1", "3m": "3", "5m": "5", "15m": "15", "30m": "30",
	"1h": "60", "2h": "120", "4h": "240", "6h": "360", "12h": "720",
	"1d": "D", "1w": "W", "1M": "M",
}

func (b *BybitAdapter) FetchCandles(ctx context.Context, symbol, timeframe string, limit int) ([]domain.Candle, error) {
	interval, ok := bybitIntervals[timeframe]
	if !ok {
		interval = timeframe
	}

	path := fmt.Sprintf("/v5/market/kline?category=linear&symbol=%s&interval=%s&limit=%d", symbol, interval, limit)
	var result struct {
		List [][]string `json:"list"`
	}
	if err := b.call(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, fmt.Errorf("bybit kline: %w", err)
	}

	candles := make([]domain.Candle, 0, len(result.List))
	for _, raw := range result.List {
		// [startTime, open, high, low, close, volume, turnover]
		if len(raw) < 6 {
			return nil, fmt.Errorf("bybit kline row has %d fields", len(raw))
		}

		ts, err := strconv.ParseInt(raw[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bybit kline start %q: %w", raw[0], err)
		}
		c := domain.Candle{Time: ts / 1000}
		for i, dst := range []*float64{&c.Open, &c.High, &c.Low, &c.Close, &c.Volume} {
			v, err := strconv.ParseFloat(raw[i+1], 64)
			if err != nil {
				return nil, fmt.Errorf("bybit kline %d: %w", ts, err)
			}
			*dst = v
		}
		candles = append(candles, c)
	}

	// Bybit returns newest first.
	for i, j := 0, len(candles)-1; i < j; i, j = i+1, j-1 {
		candles[i], candles[j] = candles[j], candles[i]
	}

	return candles, nil
}

// FetchLastPrice prefers a fresh streamed trade price and falls back to the
// REST ticker.
func (b *BybitAdapter) FetchLastPrice(ctx context.Context, symbol string) (float64, error) {
	b.mu.Lock()
	t, ok := b.ticks[symbol]
	b.mu.Unlock()
	if ok && b.timeNow().Sub(t.at) <= tickFresh {
		return t.price, nil
	}

	path := "/v5/market/tickers?category=linear&symbol=" + symbol
	var result struct {
		List []struct {
			LastPrice string `json:"lastPrice"`
		} `json:"list"`
	}
	if err := b.call(ctx, http.MethodGet, path, nil, &result); err != nil {
		return 0, fmt.Errorf("bybit ticker: %w", err)
	}
	if len(result.List) == 0 {
		return 0, fmt.Errorf("symbol not found: %s", symbol)
	}
	return strconv.ParseFloat(result.List[0].LastPrice, 64)
}

func (b *BybitAdapter) SubmitMarketOrder(ctx context.Context, req domain.OrderRequest) (*domain.OrderConfirmation, error) {
	step, err := b.qtyStep(ctx, req.Symbol)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrOrderRejected, err)
	}
	qty, err := QuantizeQuantity(req.Quantity, step)
	if err != nil {
		return nil, err
	}

	side := "Buy"
	if req.Side == domain.SideShort {
		side = "Sell"
	}

	linkID := b.newOrderID()
	payload := map[string]interface{}{
		"category":    "linear",
		"symbol":      req.Symbol,
		"side":        side,
		"orderType":   "Market",
		"qty":         qty.String(),
		"timeInForce": "IOC",
		"orderLinkId": linkID,
	}
	if req.ReduceOnly {
		payload["reduceOnly"] = true
	}

	var result struct {
		OrderID     string `json:"orderId"`
		OrderLinkID string `json:"orderLinkId"`
	}
	if err := b.call(ctx, http.MethodPost, "/v5/order/create", payload, &result); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrOrderRejected, err)
	}

	b.logger.Debug("bybit order accepted",
		zap.String("symbol", req.Symbol),
		zap.String("side", side),
		zap.String("qty", qty.String()),
		zap.String("order_id", result.OrderID),
		zap.String("order_link_id", linkID),
	)

	return &domain.OrderConfirmation{
		OrderID:  result.OrderID,
		Symbol:   req.Symbol,
		Side:     req.Side,
		Quantity: qty.InexactFloat64(),
		Status:   "NEW",
	}, nil
}

func (b *BybitAdapter) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	payload := map[string]interface{}{
		"category":     "linear",
		"symbol":       symbol,
		"buyLeverage":  strconv.Itoa(leverage),
		"sellLeverage": strconv.Itoa(leverage),
	}
	err := b.call(ctx, http.MethodPost, "/v5/position/set-leverage", payload, nil)
	var berr *BybitError
	if errors.As(err, &berr) && berr.Code == bybitLeverageNotModified {
		return nil
	}
	return err
}

func (b *BybitAdapter) qtyStep(ctx context.Context, symbol string) (decimal.Decimal, error) {
	b.mu.Lock()
	step, ok := b.steps[symbol]
	b.mu.Unlock()
	if ok {
		return step, nil
	}

	var result struct {
		List []struct {
			Symbol        string `json:"symbol"`
			LotSizeFilter struct {
				QtyStep string `json:"qtyStep"`
			} `json:"lotSizeFilter"`
		} `json:"list"`
	}
	path := "/v5/market/instruments-info?category=linear&symbol=" + symbol
	if err := b.call(ctx, http.MethodGet, path, nil, &result); err != nil {
		return decimal.Zero, fmt.Errorf("bybit instruments: %w", err)
	}
	if len(result.List) == 0 {
		return decimal.Zero, fmt.Errorf("symbol not listed: %s", symbol)
	}

	step = parseStep(result.List[0].LotSizeFilter.QtyStep)
	b.mu.Lock()
	b.steps[symbol] = step
	b.mu.Unlock()
	return step, nil
}

// --- WebSocket ---

// ConnectWS streams public trades for symbols into the last-price cache.
func (b *BybitAdapter) ConnectWS(symbols []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.wsConn != nil {
		return b.subscribe(symbols)
	}

	c, _, err := websocket.DefaultDialer.Dial(b.wsURL, nil)
	if err != nil {
		return err
	}
	b.wsConn = c

	go b.readLoop(c)

	return b.subscribe(symbols)
}

// CloseWS stops the stream. FetchLastPrice keeps working over REST.
func (b *BybitAdapter) CloseWS() error {
	b.mu.Lock()
	c := b.wsConn
	b.wsConn = nil
	b.mu.Unlock()
	if c == nil {
		return nil
	}
	return c.Close()
}

func (b *BybitAdapter) subscribe(symbols []string) error {
	if len(symbols) == 0 {
		return nil
	}
	args := make([]interface{}, len(symbols))
	for i, s := range symbols {
		args[i] = "publicTrade." + s
	}
	return b.wsConn.WriteJSON(map[string]interface{}{
		"op":   "subscribe",
		"args": args,
	})
}

func (b *BybitAdapter) readLoop(c *websocket.Conn) {
	defer func() {
		c.Close()
		b.mu.Lock()
		if b.wsConn == c {
			b.wsConn = nil
		}
		b.mu.Unlock()
	}()

	for {
		_, message, err := c.ReadMessage()
		if err != nil {
			b.logger.Warn("bybit ws read failed, falling back to REST prices", zap.Error(err))
			return
		}
		b.handleMessage(message)
	}
}

type bybitTradeEvent struct {
	Topic string `json:"topic"`
	Data  []struct {
		Time  int64  `json:"T"`
		Price string `json:"p"`
	} `json:"data"`
}

func (b *BybitAdapter) handleMessage(message []byte) {
	var event bybitTradeEvent
	if err := json.Unmarshal(message, &event); err != nil {
		b.logger.Debug("bybit ws unmarshal failed", zap.Error(err))
		return
	}
	if !strings.HasPrefix(event.Topic, "publicTrade.") || len(event.Data) == 0 {
		return
	}
	symbol := strings.TrimPrefix(event.Topic, "publicTrade.")

	// Trades within a message are in execution order.
	last := event.Data[len(event.Data)-1]
	price, err := strconv.ParseFloat(last.Price, 64)
	if err != nil || price <= 0 {
		return
	}

	b.mu.Lock()
	b.ticks[symbol] = tick{price: price, at: b.timeNow()}
	b.mu.Unlock()
}
