package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitos/candle_momentum_bot/internal/config"
	"github.com/vitos/candle_momentum_bot/internal/domain"
	"go.uber.org/multierr"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
paper:
  enabled: true
strategy:
  symbol: ethusdt
  leverage: 10
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	s := cfg.StrategyConfig()
	assert.Equal(t, "ETHUSDT", s.Symbol)
	assert.Equal(t, 10, s.Leverage)
	assert.Equal(t, "1m", s.Timeframe)
	assert.Equal(t, 2.0, s.StopLossPct)
	assert.Equal(t, 5.0, s.TakeProfitPct)
	assert.Equal(t, 20*time.Second, s.PollInterval)
	assert.Equal(t, 15*time.Minute, s.PostCloseCooldown)
	assert.Equal(t, domain.BaselineWindow, s.VolumeBaseline)
	assert.Equal(t, 10*time.Second, cfg.ExchangeTimeout())
}

func TestLoad_EnvOverridesCredentials(t *testing.T) {
	t.Setenv("EXCHANGE_API_KEY", "env-key")
	t.Setenv("EXCHANGE_API_SECRET", "env-secret")
	t.Setenv("LOG_LEVEL", "debug")
	path := writeConfig(t, `
exchange:
  name: bybit
  api_key: file-key
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.Exchange.APIKey)
	assert.Equal(t, "env-secret", cfg.Exchange.APISecret)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoad_RejectsInvalid(t *testing.T) {
	path := writeConfig(t, `
exchange:
  name: kraken
strategy:
  leverage: 0
  stop_loss_pct: 150
`)

	_, err := config.Load(path)
	require.Error(t, err)
	// exchange name, credentials, leverage, stop loss
	assert.Len(t, multierr.Errors(err), 4)
}

func TestLoad_UnknownField(t *testing.T) {
	path := writeConfig(t, "strategy:\n  levrage: 5\n")
	_, err := config.Load(path)
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
