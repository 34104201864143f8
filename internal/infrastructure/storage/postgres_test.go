package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/vitos/candle_momentum_bot/internal/domain"
)

func TestTradeModel_KeepsReasonAndUTC(t *testing.T) {
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))
	rec := domain.TradeRecord{
		Timestamp: at, PositionID: "pos-1", Symbol: "BTCUSDT", Side: domain.SideShort,
		Quantity: 1, EntryPrice: 100, ExitPrice: 95, StopLossPrice: 102, TakeProfitPrice: 95,
		Reason: domain.CloseReasonTakeProfit, RealizedPnL: 5,
	}

	m := toTradeModel(rec)
	assert.Equal(t, "trade_records", m.TableName())
	assert.Equal(t, time.UTC, m.ClosedAt.Location())
	assert.Equal(t, "TAKE_PROFIT", m.CloseReason)

	back := m.toRecord()
	assert.True(t, back.Timestamp.Equal(at))
	assert.Equal(t, domain.SideShort, back.Side)
	assert.Equal(t, rec.Reason, back.Reason)
}
