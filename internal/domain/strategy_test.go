package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitos/candle_momentum_bot/internal/domain"
	"go.uber.org/multierr"
)

func validStrategy() domain.StrategyConfig {
	return domain.StrategyConfig{
		Symbol:            "BTCUSDT",
		Timeframe:         "1m",
		CandleLimit:       100,
		QuoteAsset:        "USDT",
		Leverage:          20,
		StopLossPct:       2,
		TakeProfitPct:     5,
		VolumeBaseline:    domain.BaselineWindow,
		PollInterval:      20 * time.Second,
		PostCloseCooldown: 15 * time.Minute,
	}
}

func TestStrategyConfigValidate(t *testing.T) {
	require.NoError(t, validStrategy().Validate())

	cfg := validStrategy()
	cfg.Leverage = 0
	cfg.StopLossPct = 100
	cfg.PollInterval = 0
	cfg.VolumeBaseline = "median"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 4)
}
