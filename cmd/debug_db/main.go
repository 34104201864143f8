package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/vitos/candle_momentum_bot/internal/app"
	"github.com/vitos/candle_momentum_bot/internal/config"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config")
	limit := flag.Int("limit", 20, "number of trades to print")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	journal, err := app.NewJournal(cfg, zap.NewNop())
	if err != nil {
		fmt.Printf("Failed to open journal: %v\n", err)
		os.Exit(1)
	}
	defer journal.Close()

	trades, err := journal.ListTrades(context.Background(), *limit)
	if err != nil {
		fmt.Printf("Failed to list trades: %v\n", err)
		os.Exit(1)
	}

	var total float64
	fmt.Printf("Found %d trades:\n", len(trades))
	for _, t := range trades {
		total += t.RealizedPnL
		fmt.Printf("- %s %s %s qty=%f entry=%f exit=%f reason=%s pnl=%.4f\n",
			t.Timestamp.Format("2006-01-02 15:04:05"), t.Symbol, t.Side, t.Quantity,
			t.EntryPrice, t.ExitPrice, t.Reason, t.RealizedPnL)
	}
	fmt.Printf("Net PnL: %.4f\n", total)
}
