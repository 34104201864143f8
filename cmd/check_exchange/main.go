package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/vitos/candle_momentum_bot/internal/app"
	"github.com/vitos/candle_momentum_bot/internal/config"
	"github.com/vitos/candle_momentum_bot/internal/usecase"
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
	strategy := cfg.StrategyConfig()

	fmt.Printf("Testing %s interaction (testnet=%v, paper=%v)...\n", cfg.Exchange.Name, cfg.Exchange.Testnet, cfg.Paper.Enabled)

	ex, stop, err := app.NewExchange(cfg, zap.NewNop())
	if err != nil {
		fmt.Printf("❌ Failed to init exchange: %v\n", err)
		os.Exit(1)
	}
	defer stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// 2. Check Private Endpoint (Balance)
	balances, err := ex.FetchBalance(ctx)
	if err != nil {
		fmt.Printf("❌ Failed to get balance: %v\n", err)
	} else {
		fmt.Printf("✅ %s balance: %f\n", strategy.QuoteAsset, balances[strategy.QuoteAsset])
	}

	// 3. Check Public Endpoint (Price)
	price, err := ex.FetchLastPrice(ctx, strategy.Symbol)
	if err != nil {
		fmt.Printf("❌ Failed to get price: %v\n", err)
	} else {
		fmt.Printf("✅ Current Price (%s): %f\n", strategy.Symbol, price)
	}

	// 4. Evaluate the pattern on live candles
	candles, err := ex.FetchCandles(ctx, strategy.Symbol, strategy.Timeframe, strategy.CandleLimit)
	if err != nil {
		fmt.Printf("❌ Failed to get candles: %v\n", err)
		return
	}
	sig, err := usecase.NewPatternDetector(strategy.VolumeBaseline).Evaluate(candles)
	if err != nil {
		fmt.Printf("❌ Pattern evaluation failed: %v\n", err)
		return
	}
	fmt.Printf("✅ Pattern (%d candles): fires=%v side=%s same_color=%v high_volume=%v avg_volume=%f\n",
		len(candles), sig.Fires, sig.Side, sig.SameColor, sig.HighVol, sig.AvgVolume)
}
