package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitos/candle_momentum_bot/internal/domain"
	"github.com/vitos/candle_momentum_bot/internal/usecase"
)

func TestTradeExecutor_OpenAndClose(t *testing.T) {
	mockEx := &MockExchange{}
	executor := usecase.NewTradeExecutor(mockEx)
	ctx := context.Background()

	conf, err := executor.Open(ctx, "BTCUSDT", domain.SideLong, 0.1)
	require.NoError(t, err)
	assert.Equal(t, 0.1, conf.Quantity)

	pos := &domain.Position{Symbol: "BTCUSDT", Side: domain.SideLong, Quantity: 0.1}
	_, err = executor.Close(ctx, pos)
	require.NoError(t, err)

	orders := mockEx.orders()
	require.Len(t, orders, 2)
	assert.Equal(t, domain.OrderRequest{Symbol: "BTCUSDT", Side: domain.SideLong, Quantity: 0.1}, orders[0])
	assert.Equal(t, domain.OrderRequest{Symbol: "BTCUSDT", Side: domain.SideShort, Quantity: 0.1, ReduceOnly: true}, orders[1])
}

func TestTradeExecutor_InvalidSide(t *testing.T) {
	mockEx := &MockExchange{}
	executor := usecase.NewTradeExecutor(mockEx)

	_, err := executor.Open(context.Background(), "BTCUSDT", domain.Side(""), 0.1)
	assert.Error(t, err)
	assert.Empty(t, mockEx.orders())
}

func TestTradeExecutor_ErrorsAreRejections(t *testing.T) {
	mockEx := &MockExchange{OrderErr: errors.New("connection reset by peer")}
	executor := usecase.NewTradeExecutor(mockEx)

	_, err := executor.Open(context.Background(), "BTCUSDT", domain.SideShort, 0.1)
	assert.ErrorIs(t, err, domain.ErrOrderRejected)
	assert.Contains(t, err.Error(), "connection reset by peer")
}
