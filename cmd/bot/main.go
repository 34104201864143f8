package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vitos/candle_momentum_bot/internal/app"
	"github.com/vitos/candle_momentum_bot/internal/config"
	"github.com/vitos/candle_momentum_bot/internal/domain"
	"github.com/vitos/candle_momentum_bot/internal/infrastructure/logger"
	"github.com/vitos/candle_momentum_bot/internal/infrastructure/tracing"
	"github.com/vitos/candle_momentum_bot/internal/usecase"
	"github.com/vitos/candle_momentum_bot/internal/web"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config")
	flag.Parse()

	// 1. Load Config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Init Logger
	var log *zap.Logger
	if cfg.Logging.File != "" {
		log, err = logger.NewFileLogger(cfg.Logging.File, cfg.Logging.Level)
	} else {
		log, err = logger.NewLogger(cfg.Logging.Level)
	}
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// 3. Init Tracing
	shutdownTracing, err := tracing.Init(tracing.Config{Enabled: cfg.Tracing.Enabled, File: cfg.Tracing.File})
	if err != nil {
		log.Error("Failed to init tracing, continuing without spans", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			log.Error("Failed to flush traces", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Init Exchange
	ex, stopExchange, err := app.NewExchange(cfg, log)
	if err != nil {
		log.Fatal("Failed to init exchange", zap.Error(err))
	}
	defer stopExchange()

	// 5. Init Journal
	journal, err := app.NewJournal(cfg, log)
	if err != nil {
		log.Fatal("Failed to init trade journal", zap.Error(err))
	}
	defer journal.Close()

	// 6. Init Loop
	strategy := cfg.StrategyConfig()
	loop := usecase.NewTradingLoop(strategy, ex, usecase.NewPositionTracker(), journal, log)

	// 7. Start Status Server
	var server *web.Server
	if cfg.Server.Port > 0 {
		var history domain.TradeHistory
		if journal.Len() > 0 {
			history = journal
		}
		server = web.NewServer(cfg.Server.Port, loop, history, log)
		go func() {
			if err := server.Start(); err != nil {
				log.Error("Server failed", zap.Error(err))
			}
		}()
	}

	log.Info("Starting trading loop",
		zap.String("exchange", cfg.Exchange.Name),
		zap.Bool("paper", cfg.Paper.Enabled),
		zap.String("symbol", strategy.Symbol),
		zap.String("timeframe", strategy.Timeframe),
		zap.Int("leverage", strategy.Leverage),
		zap.Float64("stop_loss_pct", strategy.StopLossPct),
		zap.Float64("take_profit_pct", strategy.TakeProfitPct))

	// 8. Run until SIGINT/SIGTERM
	if err := loop.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Trading loop stopped", zap.Error(err))
	}

	log.Info("Shutting down...")
	if open := loop.Tracker().Positions(); len(open) > 0 {
		log.Warn("Exiting with open positions, they remain on the exchange", zap.Any("positions", open))
	}
	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("Server shutdown failed", zap.Error(err))
		}
	}
}
