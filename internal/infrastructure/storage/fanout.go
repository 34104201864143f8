package storage

import (
	"context"
	"io"

	"github.com/vitos/candle_momentum_bot/internal/domain"
	"go.uber.org/multierr"
)

// Fanout appends every trade to all sinks. A failing sink does not stop the others.
type Fanout struct {
	sinks []domain.TradeLogger
}

func NewFanout(sinks ...domain.TradeLogger) *Fanout {
	return &Fanout{sinks: sinks}
}

func (f *Fanout) Len() int {
	return len(f.sinks)
}

func (f *Fanout) Append(ctx context.Context, rec domain.TradeRecord) error {
	var err error
	for _, s := range f.sinks {
		err = multierr.Append(err, s.Append(ctx, rec))
	}
	return err
}

// ListTrades reads from the first sink that keeps history.
func (f *Fanout) ListTrades(ctx context.Context, limit int) ([]domain.TradeRecord, error) {
	for _, s := range f.sinks {
		if h, ok := s.(domain.TradeHistory); ok {
			return h.ListTrades(ctx, limit)
		}
	}
	return nil, domain.ErrNoTradeHistory
}

func (f *Fanout) Close() error {
	var err error
	for _, s := range f.sinks {
		if c, ok := s.(io.Closer); ok {
			err = multierr.Append(err, c.Close())
		}
	}
	return err
}
