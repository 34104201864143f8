package app

import (
	"fmt"

	"github.com/vitos/candle_momentum_bot/internal/config"
	"github.com/vitos/candle_momentum_bot/internal/domain"
	"github.com/vitos/candle_momentum_bot/internal/infrastructure/exchange"
	"github.com/vitos/candle_momentum_bot/internal/infrastructure/exchange/exchangeobs"
	"github.com/vitos/candle_momentum_bot/internal/infrastructure/storage"
	"go.uber.org/zap"
)

// NewExchange builds the configured adapter, optionally behind the paper
// simulator, wrapped with timeouts and tracing. stop releases stream resources.
func NewExchange(cfg *config.Config, logger *zap.Logger) (ex *exchangeobs.Observable, stop func(), err error) {
	stop = func() {}
	var live domain.Exchange

	switch cfg.Exchange.Name {
	case "binance":
		live = exchange.NewBinanceAdapter(cfg.Exchange.APIKey, cfg.Exchange.APISecret, exchange.BinanceOptions{
			Testnet: cfg.Exchange.Testnet,
			BaseURL: cfg.Exchange.RESTEndpoint,
		})

	case "bybit":
		rest, ws := cfg.Exchange.RESTEndpoint, cfg.Exchange.WSEndpoint
		if rest == "" {
			rest = exchange.BybitBaseURL
			if cfg.Exchange.Testnet {
				rest = exchange.BybitTestnetBaseURL
			}
		}
		if ws == "" {
			ws = exchange.BybitWSURL
			if cfg.Exchange.Testnet {
				ws = exchange.BybitTestnetWSURL
			}
		}
		bybit := exchange.NewBybitAdapter(cfg.Exchange.APIKey, cfg.Exchange.APISecret, rest, ws, logger)
		if err := bybit.ConnectWS([]string{cfg.StrategyConfig().Symbol}); err != nil {
			logger.Warn("Bybit stream unavailable, using REST prices", zap.Error(err))
		}
		stop = func() { _ = bybit.CloseWS() }
		live = bybit

	default:
		return nil, stop, fmt.Errorf("unknown exchange %q", cfg.Exchange.Name)
	}

	if cfg.Paper.Enabled {
		logger.Warn("Paper trading enabled - orders are simulated",
			zap.String("exchange", cfg.Exchange.Name),
			zap.Float64("starting_balance", cfg.Paper.StartingBalance))
		live = exchange.NewPaperExchange(live, cfg.StrategyConfig().QuoteAsset, cfg.Paper.StartingBalance)
	}

	return exchangeobs.Wrap(live, logger, cfg.ExchangeTimeout()), stop, nil
}

// NewJournal opens every configured trade sink. History queries go to the
// first queryable sink, SQLite before Postgres before CSV.
func NewJournal(cfg *config.Config, logger *zap.Logger) (*storage.Fanout, error) {
	var sinks []domain.TradeLogger
	closeAll := func() { _ = storage.NewFanout(sinks...).Close() }

	if path := cfg.Journal.SQLitePath; path != "" {
		store, err := storage.NewSQLiteStore(path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite journal: %w", err)
		}
		sinks = append(sinks, store)
		logger.Info("Journaling trades to sqlite", zap.String("path", path))
	}

	if dsn := cfg.Journal.PostgresDSN; dsn != "" {
		pg, err := storage.NewPostgresJournal(dsn)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("open postgres journal: %w", err)
		}
		sinks = append(sinks, pg)
		logger.Info("Journaling trades to postgres")
	}

	if path := cfg.Journal.CSVPath; path != "" {
		csvLog, err := storage.NewCSVTradeLog(path)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("open csv journal: %w", err)
		}
		sinks = append(sinks, csvLog)
		logger.Info("Journaling trades to csv", zap.String("path", path))
	}

	if len(sinks) == 0 {
		logger.Warn("No trade journal configured, closed trades are only logged")
	}
	return storage.NewFanout(sinks...), nil
}
