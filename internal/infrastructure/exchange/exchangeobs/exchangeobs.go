package exchangeobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vitos/candle_momentum_bot/internal/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const DefaultTimeout = 10 * time.Second

// Observable wraps an exchange with per-call deadlines, logging and tracing.
type Observable struct {
	ex      domain.Exchange
	logger  *zap.Logger
	tracer  trace.Tracer
	timeout time.Duration
}

var (
	_ domain.Exchange       = (*Observable)(nil)
	_ domain.LeverageSetter = (*Observable)(nil)
)

// Wrap bounds every call to ex by timeout. A non-positive timeout uses
// DefaultTimeout.
func Wrap(ex domain.Exchange, logger *zap.Logger, timeout time.Duration) *Observable {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Observable{
		ex:      ex,
		logger:  logger,
		tracer:  otel.Tracer("candle_momentum_bot/exchange"),
		timeout: timeout,
	}
}

func (o *Observable) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, context.CancelFunc, trace.Span) {
	ctx, span := o.tracer.Start(ctx, "exchange."+op, trace.WithAttributes(attrs...))
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	return ctx, cancel, span
}

// finish maps an expired deadline to ErrGatewayTimeout and records err on span.
func (o *Observable) finish(ctx context.Context, span trace.Span, op string, started time.Time, err error) error {
	defer span.End()
	elapsed := time.Since(started)

	if err == nil {
		o.logger.Debug("exchange call ok", zap.String("op", op), zap.Duration("elapsed", elapsed))
		return nil
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, domain.ErrGatewayTimeout) {
		err = fmt.Errorf("%s after %s: %w: %w", op, o.timeout, domain.ErrGatewayTimeout, err)
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	o.logger.Debug("exchange call failed", zap.String("op", op), zap.Duration("elapsed", elapsed), zap.Error(err))
	return err
}

func (o *Observable) FetchBalance(ctx context.Context) (map[string]float64, error) {
	started := time.Now()
	ctx, cancel, span := o.start(ctx, "FetchBalance")
	defer cancel()

	bal, err := o.ex.FetchBalance(ctx)
	return bal, o.finish(ctx, span, "FetchBalance", started, err)
}

func (o *Observable) FetchCandles(ctx context.Context, symbol, timeframe string, limit int) ([]domain.Candle, error) {
	started := time.Now()
	ctx, cancel, span := o.start(ctx, "FetchCandles",
		attribute.String("symbol", symbol),
		attribute.String("timeframe", timeframe),
		attribute.Int("limit", limit),
	)
	defer cancel()

	candles, err := o.ex.FetchCandles(ctx, symbol, timeframe, limit)
	if err == nil {
		span.SetAttributes(attribute.Int("candles", len(candles)))
	}
	return candles, o.finish(ctx, span, "FetchCandles", started, err)
}

func (o *Observable) FetchLastPrice(ctx context.Context, symbol string) (float64, error) {
	started := time.Now()
	ctx, cancel, span := o.start(ctx, "FetchLastPrice", attribute.String("symbol", symbol))
	defer cancel()

	price, err := o.ex.FetchLastPrice(ctx, symbol)
	if err == nil {
		span.SetAttributes(attribute.Float64("price", price))
	}
	return price, o.finish(ctx, span, "FetchLastPrice", started, err)
}

func (o *Observable) SubmitMarketOrder(ctx context.Context, req domain.OrderRequest) (*domain.OrderConfirmation, error) {
	started := time.Now()
	ctx, cancel, span := o.start(ctx, "SubmitMarketOrder",
		attribute.String("symbol", req.Symbol),
		attribute.String("side", string(req.Side)),
		attribute.Float64("quantity", req.Quantity),
		attribute.Bool("reduce_only", req.ReduceOnly),
	)
	defer cancel()

	conf, err := o.ex.SubmitMarketOrder(ctx, req)
	err = o.finish(ctx, span, "SubmitMarketOrder", started, err)
	if err == nil {
		return conf, nil
	}

	if errors.Is(err, domain.ErrGatewayTimeout) {
		o.logger.Warn("order outcome unknown after timeout, check the account",
			zap.String("symbol", req.Symbol),
			zap.String("side", string(req.Side)),
			zap.Float64("quantity", req.Quantity),
		)
	}
	if !errors.Is(err, domain.ErrOrderRejected) {
		err = fmt.Errorf("%w: %w", domain.ErrOrderRejected, err)
	}
	return nil, err
}

// SetLeverage forwards to the wrapped exchange when it supports leverage.
func (o *Observable) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	setter, ok := o.ex.(domain.LeverageSetter)
	if !ok {
		o.logger.Debug("exchange has no leverage control", zap.String("symbol", symbol))
		return nil
	}

	started := time.Now()
	ctx, cancel, span := o.start(ctx, "SetLeverage",
		attribute.String("symbol", symbol),
		attribute.Int("leverage", leverage),
	)
	defer cancel()

	return o.finish(ctx, span, "SetLeverage", started, setter.SetLeverage(ctx, symbol, leverage))
}
