package domain

import "time"

type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// Opposite returns the side that closes a position opened on s.
func (s Side) Opposite() Side {
	if s == SideLong {
		return SideShort
	}
	return SideLong
}

func (s Side) Valid() bool {
	return s == SideLong || s == SideShort
}

type CloseReason string

const (
	CloseReasonNone       CloseReason = ""
	CloseReasonStopLoss   CloseReason = "STOP_LOSS"
	CloseReasonTakeProfit CloseReason = "TAKE_PROFIT"
)

// ClosureDecision is the outcome of checking a position against a live price.
type ClosureDecision struct {
	ShouldClose bool        `json:"should_close"`
	Reason      CloseReason `json:"reason,omitempty"`
}

// Position represents one open leveraged exposure held in memory by the bot.
// Quantity, EntryPrice and both thresholds are fixed when the position is opened.
type Position struct {
	ID              string    `json:"id"`
	Symbol          string    `json:"symbol"`
	Side            Side      `json:"side"`
	Quantity        float64   `json:"quantity"`
	EntryPrice      float64   `json:"entry_price"`
	StopLossPrice   float64   `json:"stop_loss_price"`
	TakeProfitPrice float64   `json:"take_profit_price"`
	OpenedAt        time.Time `json:"opened_at"`
}

// Decide checks price against the thresholds. Stop-loss wins when both are hit,
// which can only happen with inverted thresholds or a gap across both.
func (p *Position) Decide(price float64) ClosureDecision {
	var hitStop, hitTake bool
	switch p.Side {
	case SideLong:
		hitStop = price <= p.StopLossPrice
		hitTake = price >= p.TakeProfitPrice
	case SideShort:
		hitStop = price >= p.StopLossPrice
		hitTake = price <= p.TakeProfitPrice
	}

	switch {
	case hitStop:
		return ClosureDecision{ShouldClose: true, Reason: CloseReasonStopLoss}
	case hitTake:
		return ClosureDecision{ShouldClose: true, Reason: CloseReasonTakeProfit}
	default:
		return ClosureDecision{}
	}
}

// PnL is the quote-denominated result of closing the position at exitPrice.
func (p *Position) PnL(exitPrice float64) float64 {
	if p.Side == SideShort {
		return (p.EntryPrice - exitPrice) * p.Quantity
	}
	return (exitPrice - p.EntryPrice) * p.Quantity
}

// TradeRecord is the immutable snapshot written when a position closes.
type TradeRecord struct {
	Timestamp       time.Time   `json:"timestamp"`
	PositionID      string      `json:"position_id,omitempty"`
	Symbol          string      `json:"symbol"`
	Side            Side        `json:"side"`
	Quantity        float64     `json:"quantity"`
	EntryPrice      float64     `json:"entry_price"`
	ExitPrice       float64     `json:"exit_price"`
	StopLossPrice   float64     `json:"stop_loss_price"`
	TakeProfitPrice float64     `json:"take_profit_price"`
	Reason          CloseReason `json:"reason,omitempty"`
	RealizedPnL     float64     `json:"realized_pnl"`
}

// NewTradeRecord snapshots a closed position.
func NewTradeRecord(p *Position, exitPrice float64, reason CloseReason, at time.Time) TradeRecord {
	return TradeRecord{
		Timestamp:       at,
		PositionID:      p.ID,
		Symbol:          p.Symbol,
		Side:            p.Side,
		Quantity:        p.Quantity,
		EntryPrice:      p.EntryPrice,
		ExitPrice:       exitPrice,
		StopLossPrice:   p.StopLossPrice,
		TakeProfitPrice: p.TakeProfitPrice,
		Reason:          reason,
		RealizedPnL:     p.PnL(exitPrice),
	}
}
