package storage

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/vitos/candle_momentum_bot/internal/domain"
)

// CSVTimeLayout is the second-precision timestamp used in the trade log.
const CSVTimeLayout = "2006-01-02 15:04:05"

var csvHeader = []string{"timestamp", "symbol", "direction", "order_size", "entry_price", "exit_price", "stop_loss", "take_profit"}

// CSVTradeLog appends closed trades to a flat file, one row per trade.
type CSVTradeLog struct {
	path string
	mu   sync.Mutex
}

func NewCSVTradeLog(path string) (*CSVTradeLog, error) {
	if path == "" {
		return nil, errors.New("empty trade log path")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, err
	}

	// Existing rows are kept; the header is only written to a new or empty file.
	f, err := os.OpenFile(abs, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.Size() == 0 {
		w := csv.NewWriter(f)
		if err := w.Write(csvHeader); err != nil {
			return nil, err
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return nil, err
		}
	}
	return &CSVTradeLog{path: abs}, nil
}

func (t *CSVTradeLog) Path() string {
	return t.path
}

func (t *CSVTradeLog) Append(ctx context.Context, r domain.TradeRecord) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	f, err := os.OpenFile(t.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	rec := []string{
		r.Timestamp.Format(CSVTimeLayout),
		r.Symbol,
		directionToken(r.Side),
		formatF(r.Quantity),
		formatF(r.EntryPrice),
		formatF(r.ExitPrice),
		formatF(r.StopLossPrice),
		formatF(r.TakeProfitPrice),
	}
	if err := w.Write(rec); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// ListTrades returns up to limit rows, newest first.
func (t *CSVTradeLog) ListTrades(ctx context.Context, limit int) ([]domain.TradeRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	f, err := os.Open(t.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(csvHeader)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	var out []domain.TradeRecord
	for i := len(rows) - 1; i >= 1 && len(out) < limit; i-- {
		rec, err := parseRow(rows[i])
		if err != nil {
			return nil, fmt.Errorf("trade log row %d: %w", i+1, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// directionToken keeps the buy/sell vocabulary of existing trade logs.
func directionToken(s domain.Side) string {
	if s == domain.SideShort {
		return "sell"
	}
	return "buy"
}

func parseDirection(tok string) (domain.Side, error) {
	switch strings.ToLower(tok) {
	case "buy", "long":
		return domain.SideLong, nil
	case "sell", "short":
		return domain.SideShort, nil
	}
	return "", fmt.Errorf("unknown direction %q", tok)
}

func parseRow(row []string) (domain.TradeRecord, error) {
	ts, err := time.ParseInLocation(CSVTimeLayout, row[0], time.Local)
	if err != nil {
		return domain.TradeRecord{}, err
	}
	side, err := parseDirection(row[2])
	if err != nil {
		return domain.TradeRecord{}, err
	}

	nums := make([]float64, 5)
	for i := range nums {
		nums[i], err = strconv.ParseFloat(row[3+i], 64)
		if err != nil {
			return domain.TradeRecord{}, err
		}
	}

	rec := domain.TradeRecord{
		Timestamp:       ts,
		Symbol:          row[1],
		Side:            side,
		Quantity:        nums[0],
		EntryPrice:      nums[1],
		ExitPrice:       nums[2],
		StopLossPrice:   nums[3],
		TakeProfitPrice: nums[4],
	}
	pos := domain.Position{Side: side, Quantity: rec.Quantity, EntryPrice: rec.EntryPrice}
	rec.RealizedPnL = pos.PnL(rec.ExitPrice)
	return rec, nil
}

func formatF(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
