package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/vitos/candle_momentum_bot/internal/app"
	"github.com/vitos/candle_momentum_bot/internal/config"
	"github.com/vitos/candle_momentum_bot/internal/domain"
	"github.com/vitos/candle_momentum_bot/internal/usecase"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config")
	size := flag.Float64("size", 0.001, "order size in base units")
	flag.Parse()

	// 1. Load Config
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if !cfg.Exchange.Testnet && !cfg.Paper.Enabled {
		fmt.Println("Refusing to place orders on mainnet; enable exchange.testnet or paper.enabled")
		os.Exit(1)
	}
	strategy := cfg.StrategyConfig()

	ex, stop, err := app.NewExchange(cfg, zap.NewNop())
	if err != nil {
		fmt.Printf("❌ Failed to init exchange: %v\n", err)
		os.Exit(1)
	}
	defer stop()

	ctx := context.Background()
	if err := ex.SetLeverage(ctx, strategy.Symbol, strategy.Leverage); err != nil {
		fmt.Printf("⚠️ Failed to set leverage: %v\n", err)
	}

	executor := usecase.NewTradeExecutor(ex)
	fmt.Printf("Testing Trading on %s (testnet=%v, paper=%v)...\n", cfg.Exchange.Name, cfg.Exchange.Testnet, cfg.Paper.Enabled)

	for _, side := range []domain.Side{domain.SideLong, domain.SideShort} {
		fmt.Printf("\n--- Testing %s ---\n", side)
		fmt.Printf("Placing Market %s Order (Size: %f)...\n", side, *size)

		conf, err := executor.Open(ctx, strategy.Symbol, side, *size)
		if err != nil {
			fmt.Printf("❌ Failed to open: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("✅ Order Placed: id=%s qty=%f status=%s\n", conf.OrderID, conf.Quantity, conf.Status)

		time.Sleep(2 * time.Second)

		fmt.Println("Closing Position...")
		pos := &domain.Position{Symbol: strategy.Symbol, Side: side, Quantity: conf.Quantity}
		if closed, err := executor.Close(ctx, pos); err != nil {
			fmt.Printf("❌ Failed to close: %v\n", err)
		} else {
			fmt.Printf("✅ Position Closed: id=%s\n", closed.OrderID)
		}
	}
}
