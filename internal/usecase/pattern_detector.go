package usecase

import (
	"fmt"

	"github.com/vitos/candle_momentum_bot/internal/domain"
)

const patternWindow = 5

// Signal is the result of a pattern evaluation. Side is empty unless Fires is set.
type Signal struct {
	Fires     bool        `json:"fires"`
	Side      domain.Side `json:"side,omitempty"`
	AvgVolume float64     `json:"avg_volume"`
	SameColor bool        `json:"same_color"`
	HighVol   bool        `json:"high_volume"`
}

// PatternDetector fires when the last two candles share a color and both trade
// above the average volume of the window.
type PatternDetector struct {
	baseline domain.VolumeBaseline
}

func NewPatternDetector(baseline domain.VolumeBaseline) *PatternDetector {
	if baseline == "" {
		baseline = domain.BaselineWindow
	}
	return &PatternDetector{baseline: baseline}
}

func (d *PatternDetector) Evaluate(candles []domain.Candle) (Signal, error) {
	if len(candles) < patternWindow {
		return Signal{}, fmt.Errorf("%w: need %d candles, got %d", domain.ErrInsufficientData, patternWindow, len(candles))
	}

	window := candles[len(candles)-patternWindow:]
	prev, last := window[3], window[4]

	// The window baseline includes prev and last themselves.
	baseline := window
	if d.baseline == domain.BaselinePrior {
		baseline = window[:3]
	}
	var total float64
	for _, c := range baseline {
		total += c.Volume
	}
	avg := total / float64(len(baseline))

	sig := Signal{
		AvgVolume: avg,
		SameColor: prev.Green() == last.Green(),
		HighVol:   prev.Volume > avg && last.Volume > avg,
	}
	sig.Fires = sig.SameColor && sig.HighVol
	if sig.Fires {
		sig.Side = domain.SideShort
		if last.Green() {
			sig.Side = domain.SideLong
		}
	}
	return sig, nil
}
