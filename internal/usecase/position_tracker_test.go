package usecase_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitos/candle_momentum_bot/internal/domain"
	"github.com/vitos/candle_momentum_bot/internal/usecase"
)

func TestPositionTracker_OpenThresholds(t *testing.T) {
	tracker := usecase.NewPositionTracker()

	long, err := tracker.Open("BTCUSDT", domain.SideLong, 1, 100, 2, 5)
	require.NoError(t, err)
	assert.Equal(t, 98.0, long.StopLossPrice)
	assert.Equal(t, 105.0, long.TakeProfitPrice)
	assert.NotEmpty(t, long.ID)

	short, err := tracker.Open("ETHUSDT", domain.SideShort, 1, 100, 2, 5)
	require.NoError(t, err)
	assert.Equal(t, 102.0, short.StopLossPrice)
	assert.Equal(t, 95.0, short.TakeProfitPrice)

	assert.Len(t, tracker.Positions(), 2)
}

func TestPositionTracker_Evaluate(t *testing.T) {
	tracker := usecase.NewPositionTracker()
	_, err := tracker.Open("BTCUSDT", domain.SideLong, 1, 100, 2, 5)
	require.NoError(t, err)

	decision, err := tracker.Evaluate("BTCUSDT", 105.5)
	require.NoError(t, err)
	assert.Equal(t, domain.ClosureDecision{ShouldClose: true, Reason: domain.CloseReasonTakeProfit}, decision)

	decision, err = tracker.Evaluate("BTCUSDT", 97)
	require.NoError(t, err)
	assert.Equal(t, domain.ClosureDecision{ShouldClose: true, Reason: domain.CloseReasonStopLoss}, decision)

	decision, err = tracker.Evaluate("BTCUSDT", 100)
	require.NoError(t, err)
	assert.False(t, decision.ShouldClose)

	_, err = tracker.Evaluate("ETHUSDT", 100)
	assert.ErrorIs(t, err, domain.ErrNoSuchPosition)
}

func TestPositionTracker_DuplicateRejected(t *testing.T) {
	tracker := usecase.NewPositionTracker()
	first, err := tracker.Open("BTCUSDT", domain.SideLong, 1, 100, 2, 5)
	require.NoError(t, err)

	_, err = tracker.Open("BTCUSDT", domain.SideShort, 2, 110, 2, 5)
	assert.ErrorIs(t, err, domain.ErrDuplicatePosition)

	got, ok := tracker.Get("BTCUSDT")
	require.True(t, ok)
	assert.Equal(t, *first, *got, "duplicate open must not replace the existing position")
}

func TestPositionTracker_CloseIsNotIdempotent(t *testing.T) {
	tracker := usecase.NewPositionTracker()
	opened, err := tracker.Open("BTCUSDT", domain.SideLong, 1, 100, 2, 5)
	require.NoError(t, err)

	closed, err := tracker.Close("BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, opened.ID, closed.ID)
	assert.False(t, tracker.Has("BTCUSDT"))

	_, err = tracker.Close("BTCUSDT")
	assert.ErrorIs(t, err, domain.ErrNoSuchPosition)
}

func TestPositionTracker_OpenValidation(t *testing.T) {
	tracker := usecase.NewPositionTracker()

	_, err := tracker.Open("BTCUSDT", domain.Side("UP"), 1, 100, 2, 5)
	assert.Error(t, err)

	_, err = tracker.Open("BTCUSDT", domain.SideLong, 0, 100, 2, 5)
	assert.ErrorIs(t, err, domain.ErrInvalidSizing)

	_, err = tracker.Open("BTCUSDT", domain.SideShort, 1, 100, 2, 100)
	assert.ErrorIs(t, err, domain.ErrInvalidThresholds)

	assert.Empty(t, tracker.Positions())
}

func TestPositionTracker_SnapshotsAreCopies(t *testing.T) {
	tracker := usecase.NewPositionTracker()
	opened, err := tracker.Open("BTCUSDT", domain.SideLong, 1, 100, 2, 5)
	require.NoError(t, err)

	opened.StopLossPrice = 1
	snapshot := tracker.Positions()
	snapshot[0].TakeProfitPrice = 1

	got, _ := tracker.Get("BTCUSDT")
	assert.Equal(t, 98.0, got.StopLossPrice)
	assert.Equal(t, 105.0, got.TakeProfitPrice)
}

func TestCalculateThresholds(t *testing.T) {
	sl, tp := usecase.CalculateThresholds(domain.SideLong, 30000, 2, 5)
	assert.Equal(t, 29400.0, sl)
	assert.Equal(t, 31500.0, tp)

	sl, tp = usecase.CalculateThresholds(domain.SideShort, 30000, 2, 5)
	assert.Equal(t, 30600.0, sl)
	assert.Equal(t, 28500.0, tp)
}
