package domain

import (
	"fmt"
	"time"

	"go.uber.org/multierr"
)

type VolumeBaseline string

const (
	// BaselineWindow averages all five candles, including the two being compared.
	BaselineWindow VolumeBaseline = "window"
	// BaselinePrior averages only the three candles before the compared pair.
	BaselinePrior VolumeBaseline = "prior"
)

// StrategyConfig is loaded once at startup and never mutated.
type StrategyConfig struct {
	Symbol            string
	Timeframe         string
	CandleLimit       int
	QuoteAsset        string
	Leverage          int
	StopLossPct       float64
	TakeProfitPct     float64
	MaxQuote          float64 // 0 means the whole quote balance
	VolumeBaseline    VolumeBaseline
	PollInterval      time.Duration
	PostCloseCooldown time.Duration
}

func (c StrategyConfig) Validate() error {
	var err error
	if c.Symbol == "" {
		err = multierr.Append(err, fmt.Errorf("symbol is required"))
	}
	if c.Timeframe == "" {
		err = multierr.Append(err, fmt.Errorf("timeframe is required"))
	}
	if c.QuoteAsset == "" {
		err = multierr.Append(err, fmt.Errorf("quote asset is required"))
	}
	if c.CandleLimit < 5 {
		err = multierr.Append(err, fmt.Errorf("candle limit must be at least 5, got %d", c.CandleLimit))
	}
	if c.Leverage <= 0 {
		err = multierr.Append(err, fmt.Errorf("leverage must be positive, got %d", c.Leverage))
	}
	if c.StopLossPct <= 0 || c.StopLossPct >= 100 {
		err = multierr.Append(err, fmt.Errorf("stop loss pct must be in (0, 100), got %v", c.StopLossPct))
	}
	if c.TakeProfitPct <= 0 || c.TakeProfitPct >= 100 {
		err = multierr.Append(err, fmt.Errorf("take profit pct must be in (0, 100), got %v", c.TakeProfitPct))
	}
	if c.MaxQuote < 0 {
		err = multierr.Append(err, fmt.Errorf("max quote must not be negative, got %v", c.MaxQuote))
	}
	if c.VolumeBaseline != BaselineWindow && c.VolumeBaseline != BaselinePrior {
		err = multierr.Append(err, fmt.Errorf("unknown volume baseline %q", c.VolumeBaseline))
	}
	if c.PollInterval <= 0 {
		err = multierr.Append(err, fmt.Errorf("poll interval must be positive"))
	}
	if c.PostCloseCooldown < 0 {
		err = multierr.Append(err, fmt.Errorf("post close cooldown must not be negative"))
	}
	return err
}
