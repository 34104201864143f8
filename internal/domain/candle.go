package domain

// Candle is one OHLCV bucket. Time is the bucket open time in unix seconds.
type Candle struct {
	Time   int64   `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// Green reports whether the candle closed strictly above its open.
// A doji (close == open) counts as red.
func (c Candle) Green() bool {
	return c.Close > c.Open
}
