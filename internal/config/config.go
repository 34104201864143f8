package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/vitos/candle_momentum_bot/internal/domain"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Exchange ExchangeConfig `yaml:"exchange"`
	Strategy StrategyConfig `yaml:"strategy"`
	Journal  JournalConfig  `yaml:"journal"`
	Paper    PaperConfig    `yaml:"paper"`
	Logging  struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"logging"`
	Tracing struct {
		Enabled bool   `yaml:"enabled"`
		File    string `yaml:"file"`
	} `yaml:"tracing"`
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
}

type ExchangeConfig struct {
	Name         string `yaml:"name"` // binance or bybit
	Testnet      bool   `yaml:"testnet"`
	APIKey       string `yaml:"api_key"`
	APISecret    string `yaml:"api_secret"`
	RESTEndpoint string `yaml:"rest_endpoint"`
	WSEndpoint   string `yaml:"ws_endpoint"`
	TimeoutMs    int    `yaml:"timeout_ms"`
}

type StrategyConfig struct {
	Symbol          string  `yaml:"symbol"`
	Timeframe       string  `yaml:"timeframe"`
	CandleLimit     int     `yaml:"candle_limit"`
	QuoteAsset      string  `yaml:"quote_asset"`
	Leverage        int     `yaml:"leverage"`
	StopLossPct     float64 `yaml:"stop_loss_pct"`
	TakeProfitPct   float64 `yaml:"take_profit_pct"`
	MaxQuote        float64 `yaml:"max_quote"`
	VolumeBaseline  string  `yaml:"volume_baseline"`
	PollIntervalSec int     `yaml:"poll_interval_sec"`
	CooldownMinutes int     `yaml:"post_close_cooldown_min"`
}

type JournalConfig struct {
	CSVPath     string `yaml:"csv_path"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

type PaperConfig struct {
	Enabled         bool    `yaml:"enabled"`
	StartingBalance float64 `yaml:"starting_balance"`
}

// Load decodes the YAML file at path, applies defaults, then lets a .env file
// and the process environment override credentials and the log level.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg := Default()
	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default mirrors config/config.yaml.
func Default() *Config {
	cfg := &Config{
		Exchange: ExchangeConfig{Name: "binance", TimeoutMs: 10000},
		Strategy: StrategyConfig{
			Symbol:          "BTCUSDT",
			Timeframe:       "1m",
			CandleLimit:     100,
			QuoteAsset:      "USDT",
			Leverage:        20,
			StopLossPct:     2,
			TakeProfitPct:   5,
			VolumeBaseline:  string(domain.BaselineWindow),
			PollIntervalSec: 20,
			CooldownMinutes: 15,
		},
		Journal: JournalConfig{CSVPath: "trades.csv"},
		Paper:   PaperConfig{StartingBalance: 1000},
	}
	cfg.Logging.Level = "info"
	return cfg
}

func (c *Config) applyEnv() {
	for env, dst := range map[string]*string{
		"EXCHANGE_API_KEY":     &c.Exchange.APIKey,
		"EXCHANGE_API_SECRET":  &c.Exchange.APISecret,
		"JOURNAL_POSTGRES_DSN": &c.Journal.PostgresDSN,
		"LOG_LEVEL":            &c.Logging.Level,
	} {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			*dst = v
		}
	}
}

func (c *Config) Validate() error {
	var err error
	switch c.Exchange.Name {
	case "binance", "bybit":
	default:
		err = multierr.Append(err, fmt.Errorf("unknown exchange %q", c.Exchange.Name))
	}
	if !c.Paper.Enabled && (c.Exchange.APIKey == "" || c.Exchange.APISecret == "") {
		err = multierr.Append(err, fmt.Errorf("exchange credentials are required unless paper trading"))
	}
	if c.Paper.Enabled && c.Paper.StartingBalance <= 0 {
		err = multierr.Append(err, fmt.Errorf("paper starting balance must be positive"))
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		err = multierr.Append(err, fmt.Errorf("invalid server port %d", c.Server.Port))
	}
	return multierr.Append(err, c.StrategyConfig().Validate())
}

// StrategyConfig converts the strategy section into its domain form.
func (c *Config) StrategyConfig() domain.StrategyConfig {
	s := c.Strategy
	return domain.StrategyConfig{
		Symbol:            strings.ToUpper(s.Symbol),
		Timeframe:         s.Timeframe,
		CandleLimit:       s.CandleLimit,
		QuoteAsset:        strings.ToUpper(s.QuoteAsset),
		Leverage:          s.Leverage,
		StopLossPct:       s.StopLossPct,
		TakeProfitPct:     s.TakeProfitPct,
		MaxQuote:          s.MaxQuote,
		VolumeBaseline:    domain.VolumeBaseline(s.VolumeBaseline),
		PollInterval:      time.Duration(s.PollIntervalSec) * time.Second,
		PostCloseCooldown: time.Duration(s.CooldownMinutes) * time.Minute,
	}
}

func (c *Config) ExchangeTimeout() time.Duration {
	return time.Duration(c.Exchange.TimeoutMs) * time.Millisecond
}
