package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/vitos/candle_momentum_bot/internal/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type EntryOutcome string

const (
	EntryNoSignal         EntryOutcome = "no_signal"
	EntryInsufficientData EntryOutcome = "insufficient_data"
	EntryPositionOpen     EntryOutcome = "position_open"
	EntryInvalidSizing    EntryOutcome = "invalid_sizing"
	EntryOpened           EntryOutcome = "opened"
	EntryFailed           EntryOutcome = "failed"
)

// IterationResult describes what one tick did. Expected outcomes are tagged in
// Entry; faults are collected in Errors and never abort the loop.
type IterationResult struct {
	StartedAt         time.Time
	Signal            Signal
	Entry             EntryOutcome
	Opened            *domain.Position
	Closed            []domain.TradeRecord
	Errors            []error
	CooldownTriggered bool
}

func (r *IterationResult) Err() error {
	return multierr.Combine(r.Errors...)
}

func (r *IterationResult) fail(err error) {
	r.Errors = append(r.Errors, err)
}

// TradingLoop polls the exchange, opens a position when the pattern fires and
// closes it on stop-loss or take-profit.
type TradingLoop struct {
	cfg      domain.StrategyConfig
	exchange domain.Exchange
	tracker  *PositionTracker
	journal  domain.TradeLogger
	detector *PatternDetector
	sizer    *PositionSizer
	executor *TradeExecutor
	logger   *zap.Logger
	tracer   trace.Tracer
	timeNow  func() time.Time
	// cooldownStep is the granularity of cooldown progress logs.
	cooldownStep time.Duration

	mu         sync.RWMutex
	last       *IterationResult
	iterations int64
}

func NewTradingLoop(
	cfg domain.StrategyConfig,
	exchange domain.Exchange,
	tracker *PositionTracker,
	journal domain.TradeLogger,
	logger *zap.Logger,
) *TradingLoop {
	return &TradingLoop{
		cfg:          cfg,
		exchange:     exchange,
		tracker:      tracker,
		journal:      journal,
		detector:     NewPatternDetector(cfg.VolumeBaseline),
		sizer:        NewPositionSizer(),
		executor:     NewTradeExecutor(exchange),
		logger:       logger,
		tracer:       otel.Tracer("github.com/vitos/candle_momentum_bot/internal/usecase"),
		timeNow:      time.Now,
		cooldownStep: time.Minute,
	}
}

// Run ticks until ctx is cancelled. A tick failure is logged and the loop carries on.
func (l *TradingLoop) Run(ctx context.Context) error {
	l.startup(ctx)

	for {
		res := l.Tick(ctx, l.timeNow())

		wait := l.cfg.PollInterval
		if res.CooldownTriggered && l.cfg.PostCloseCooldown > 0 {
			wait = l.cfg.PostCloseCooldown
			l.logger.Info("Entering post-close cooldown",
				zap.String("symbol", l.cfg.Symbol),
				zap.Duration("cooldown", wait))
			if err := l.cooldown(ctx, wait); err != nil {
				return err
			}
			continue
		}

		l.logger.Debug("Sleeping until next tick", zap.Duration("interval", wait))
		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func (l *TradingLoop) startup(ctx context.Context) {
	if balances, err := l.exchange.FetchBalance(ctx); err != nil {
		l.logger.Error("Failed to fetch initial balance", zap.Error(err))
	} else {
		l.logger.Info("Fetched account balance", zap.Any("balances", balances))
	}

	if setter, ok := l.exchange.(domain.LeverageSetter); ok {
		if err := setter.SetLeverage(ctx, l.cfg.Symbol, l.cfg.Leverage); err != nil {
			l.logger.Warn("Failed to set leverage",
				zap.String("symbol", l.cfg.Symbol),
				zap.Int("leverage", l.cfg.Leverage),
				zap.Error(err))
		}
	}
}

// Tick runs one iteration: entry check, then supervision of every open position.
func (l *TradingLoop) Tick(ctx context.Context, now time.Time) (res *IterationResult) {
	ctx, span := l.tracer.Start(ctx, "TradingLoop.Tick",
		trace.WithAttributes(attribute.String("symbol", l.cfg.Symbol)))
	res = &IterationResult{StartedAt: now}

	defer func() {
		if r := recover(); r != nil {
			res.fail(fmt.Errorf("iteration panic: %v", r))
		}
		l.finish(span, res)
	}()

	l.enter(ctx, res)
	l.monitor(ctx, now, res)
	return res
}

func (l *TradingLoop) finish(span trace.Span, res *IterationResult) {
	for _, err := range res.Errors {
		span.RecordError(err)
		l.logger.Error("Iteration error", zap.String("symbol", l.cfg.Symbol), zap.Error(err))
	}
	if len(res.Errors) > 0 {
		span.SetStatus(codes.Error, "iteration failed")
	}
	span.SetAttributes(
		attribute.String("entry", string(res.Entry)),
		attribute.Int("closed", len(res.Closed)),
	)
	span.End()

	l.mu.Lock()
	l.last = res
	l.iterations++
	l.mu.Unlock()
}

func (l *TradingLoop) enter(ctx context.Context, res *IterationResult) {
	symbol := l.cfg.Symbol

	candles, err := l.exchange.FetchCandles(ctx, symbol, l.cfg.Timeframe, l.cfg.CandleLimit)
	if err != nil {
		res.Entry = EntryFailed
		res.fail(fmt.Errorf("fetch candles: %w", err))
		return
	}

	sig, err := l.detector.Evaluate(candles)
	if errors.Is(err, domain.ErrInsufficientData) {
		res.Entry = EntryInsufficientData
		l.logger.Warn("Skipping entry: not enough candles", zap.String("symbol", symbol), zap.Int("candles", len(candles)))
		return
	}
	if err != nil {
		res.Entry = EntryFailed
		res.fail(err)
		return
	}
	res.Signal = sig

	l.logger.Info("Checked candlestick pattern",
		zap.String("symbol", symbol),
		zap.Bool("same_color", sig.SameColor),
		zap.Bool("high_volume", sig.HighVol),
		zap.Float64("avg_volume", sig.AvgVolume))

	if !sig.Fires {
		res.Entry = EntryNoSignal
		return
	}
	if l.tracker.Has(symbol) {
		res.Entry = EntryPositionOpen
		l.logger.Info("Pattern fired but a position is already open", zap.String("symbol", symbol))
		return
	}

	entryPrice := candles[len(candles)-1].Close

	balances, err := l.exchange.FetchBalance(ctx)
	if err != nil {
		res.Entry = EntryFailed
		res.fail(fmt.Errorf("fetch balance: %w", err))
		return
	}
	available := balances[l.cfg.QuoteAsset]
	if l.cfg.MaxQuote > 0 {
		available = math.Min(available, l.cfg.MaxQuote)
	}

	qty, err := l.sizer.ComputeQuantity(available, l.cfg.Leverage, entryPrice)
	if err != nil {
		res.Entry = EntryInvalidSizing
		l.logger.Warn("Skipping entry: cannot size order",
			zap.String("symbol", symbol),
			zap.String("quote_asset", l.cfg.QuoteAsset),
			zap.Float64("available", available),
			zap.Error(err))
		return
	}

	conf, err := l.executor.Open(ctx, symbol, sig.Side, qty)
	if err != nil {
		res.Entry = EntryFailed
		res.fail(fmt.Errorf("open position: %w", err))
		return
	}

	pos, err := l.tracker.Open(symbol, sig.Side, conf.Quantity, entryPrice, l.cfg.StopLossPct, l.cfg.TakeProfitPct)
	if err != nil {
		res.Entry = EntryFailed
		res.fail(fmt.Errorf("track position after order %s: %w", conf.OrderID, err))
		return
	}
	res.Entry = EntryOpened
	res.Opened = pos

	l.logger.Info("Opened position",
		zap.String("symbol", symbol),
		zap.String("side", string(pos.Side)),
		zap.Float64("quantity", pos.Quantity),
		zap.Float64("entry_price", pos.EntryPrice),
		zap.Float64("fill_price", conf.AvgPrice),
		zap.Float64("stop_loss", pos.StopLossPrice),
		zap.Float64("take_profit", pos.TakeProfitPrice),
		zap.String("order_id", conf.OrderID))
}

func (l *TradingLoop) monitor(ctx context.Context, now time.Time, res *IterationResult) {
	for _, pos := range l.tracker.Positions() {
		price, err := l.exchange.FetchLastPrice(ctx, pos.Symbol)
		if err != nil {
			res.fail(fmt.Errorf("fetch last price %s: %w", pos.Symbol, err))
			continue
		}

		decision, err := l.tracker.Evaluate(pos.Symbol, price)
		if err != nil {
			res.fail(err)
			continue
		}
		if !decision.ShouldClose {
			continue
		}

		// A rejected close leaves the position tracked so the next tick retries it.
		if _, err := l.executor.Close(ctx, &pos); err != nil {
			res.fail(fmt.Errorf("close position: %w", err))
			continue
		}

		closed, err := l.tracker.Close(pos.Symbol)
		if err != nil {
			res.fail(err)
			continue
		}

		rec := domain.NewTradeRecord(closed, price, decision.Reason, now)
		res.Closed = append(res.Closed, rec)
		res.CooldownTriggered = true

		l.logger.Info("Closed position",
			zap.String("symbol", rec.Symbol),
			zap.String("side", string(rec.Side)),
			zap.String("reason", string(rec.Reason)),
			zap.Float64("quantity", rec.Quantity),
			zap.Float64("exit_price", rec.ExitPrice),
			zap.Float64("pnl", rec.RealizedPnL))

		if err := l.journal.Append(ctx, rec); err != nil {
			res.fail(fmt.Errorf("journal trade %s: %w", rec.PositionID, err))
		}
	}
}

func (l *TradingLoop) cooldown(ctx context.Context, total time.Duration) error {
	step := l.cooldownStep
	steps := int(math.Ceil(float64(total) / float64(step)))
	for i := 1; i <= steps; i++ {
		d := step
		if remaining := total - time.Duration(i-1)*step; remaining < step {
			d = remaining
		}
		if err := sleep(ctx, d); err != nil {
			return err
		}
		l.logger.Info("Cooldown progress", zap.Int("elapsed", i), zap.Int("of", steps))
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// LastResult returns the most recent iteration, or nil before the first tick.
func (l *TradingLoop) LastResult() *IterationResult {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.last
}

func (l *TradingLoop) Iterations() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.iterations
}

func (l *TradingLoop) Config() domain.StrategyConfig {
	return l.cfg
}

func (l *TradingLoop) Tracker() *PositionTracker {
	return l.tracker
}
