package usecase

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vitos/candle_momentum_bot/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// PositionTracker owns the open positions, at most one per symbol.
// The loop is the only writer; the status API reads snapshots concurrently.
type PositionTracker struct {
	mu        sync.RWMutex
	positions map[string]*domain.Position
	timeNow   func() time.Time
	newID     func() string
}

func NewPositionTracker() *PositionTracker {
	return &PositionTracker{
		positions: make(map[string]*domain.Position),
		timeNow:   time.Now,
		newID:     uuid.NewString,
	}
}

// CalculateThresholds returns the stop-loss and take-profit prices for an entry.
func CalculateThresholds(side domain.Side, entryPrice, slPct, tpPct float64) (stopLoss, takeProfit float64) {
	entry := decimal.NewFromFloat(entryPrice)
	sl := decimal.NewFromFloat(slPct).Div(hundred)
	tp := decimal.NewFromFloat(tpPct).Div(hundred)
	one := decimal.NewFromInt(1)

	if side == domain.SideShort {
		// Short: stop above entry, target below.
		return entry.Mul(one.Add(sl)).InexactFloat64(), entry.Mul(one.Sub(tp)).InexactFloat64()
	}
	return entry.Mul(one.Sub(sl)).InexactFloat64(), entry.Mul(one.Add(tp)).InexactFloat64()
}

func (t *PositionTracker) Open(symbol string, side domain.Side, quantity, entryPrice, slPct, tpPct float64) (*domain.Position, error) {
	if !side.Valid() {
		return nil, fmt.Errorf("invalid side: %q", side)
	}
	if quantity <= 0 || entryPrice <= 0 {
		return nil, fmt.Errorf("%w: quantity %v at price %v", domain.ErrInvalidSizing, quantity, entryPrice)
	}
	if slPct <= 0 || slPct >= 100 || tpPct <= 0 || tpPct >= 100 {
		return nil, fmt.Errorf("%w: stop loss %v%%, take profit %v%%", domain.ErrInvalidThresholds, slPct, tpPct)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.positions[symbol]; exists {
		return nil, fmt.Errorf("%w: %s", domain.ErrDuplicatePosition, symbol)
	}

	stopLoss, takeProfit := CalculateThresholds(side, entryPrice, slPct, tpPct)
	pos := &domain.Position{
		ID:              t.newID(),
		Symbol:          symbol,
		Side:            side,
		Quantity:        quantity,
		EntryPrice:      entryPrice,
		StopLossPrice:   stopLoss,
		TakeProfitPrice: takeProfit,
		OpenedAt:        t.timeNow(),
	}
	t.positions[symbol] = pos

	cp := *pos
	return &cp, nil
}

func (t *PositionTracker) Evaluate(symbol string, currentPrice float64) (domain.ClosureDecision, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	pos, ok := t.positions[symbol]
	if !ok {
		return domain.ClosureDecision{}, fmt.Errorf("%w: %s", domain.ErrNoSuchPosition, symbol)
	}
	return pos.Decide(currentPrice), nil
}

func (t *PositionTracker) Close(symbol string) (*domain.Position, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	pos, ok := t.positions[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNoSuchPosition, symbol)
	}
	delete(t.positions, symbol)
	return pos, nil
}

func (t *PositionTracker) Get(symbol string) (*domain.Position, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	pos, ok := t.positions[symbol]
	if !ok {
		return nil, false
	}
	cp := *pos
	return &cp, true
}

func (t *PositionTracker) Has(symbol string) bool {
	_, ok := t.Get(symbol)
	return ok
}

// Positions returns copies of the open positions ordered by symbol.
func (t *PositionTracker) Positions() []domain.Position {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]domain.Position, 0, len(t.positions))
	for _, p := range t.positions {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}
