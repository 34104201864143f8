package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/vitos/candle_momentum_bot/internal/domain"
	"github.com/vitos/candle_momentum_bot/internal/usecase"
	"go.uber.org/zap"
)

const (
	defaultTradesLimit = 50
	maxTradesLimit     = 1000
)

type strategyView struct {
	Symbol          string  `json:"symbol"`
	Timeframe       string  `json:"timeframe"`
	QuoteAsset      string  `json:"quote_asset"`
	Leverage        int     `json:"leverage"`
	StopLossPct     float64 `json:"stop_loss_pct"`
	TakeProfitPct   float64 `json:"take_profit_pct"`
	MaxQuote        float64 `json:"max_quote"`
	VolumeBaseline  string  `json:"volume_baseline"`
	PollIntervalSec float64 `json:"poll_interval_sec"`
	CooldownMinutes float64 `json:"post_close_cooldown_min"`
}

type iterationView struct {
	StartedAt         time.Time            `json:"started_at"`
	Signal            usecase.Signal       `json:"signal"`
	Entry             usecase.EntryOutcome `json:"entry"`
	Opened            *domain.Position     `json:"opened,omitempty"`
	Closed            []domain.TradeRecord `json:"closed,omitempty"`
	Errors            []string             `json:"errors,omitempty"`
	CooldownTriggered bool                 `json:"cooldown_triggered"`
}

type statusView struct {
	UptimeSec     float64        `json:"uptime_sec"`
	Iterations    int64          `json:"iterations"`
	OpenPositions int            `json:"open_positions"`
	Strategy      strategyView   `json:"strategy"`
	LastIteration *iterationView `json:"last_iteration,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	cfg := s.loop.Config()
	view := statusView{
		UptimeSec:     time.Since(s.startedAt).Seconds(),
		Iterations:    s.loop.Iterations(),
		OpenPositions: len(s.loop.Tracker().Positions()),
		Strategy: strategyView{
			Symbol:          cfg.Symbol,
			Timeframe:       cfg.Timeframe,
			QuoteAsset:      cfg.QuoteAsset,
			Leverage:        cfg.Leverage,
			StopLossPct:     cfg.StopLossPct,
			TakeProfitPct:   cfg.TakeProfitPct,
			MaxQuote:        cfg.MaxQuote,
			VolumeBaseline:  string(cfg.VolumeBaseline),
			PollIntervalSec: cfg.PollInterval.Seconds(),
			CooldownMinutes: cfg.PostCloseCooldown.Minutes(),
		},
	}

	if last := s.loop.LastResult(); last != nil {
		it := &iterationView{
			StartedAt:         last.StartedAt,
			Signal:            last.Signal,
			Entry:             last.Entry,
			Opened:            last.Opened,
			Closed:            last.Closed,
			CooldownTriggered: last.CooldownTriggered,
		}
		for _, err := range last.Errors {
			it.Errors = append(it.Errors, err.Error())
		}
		view.LastIteration = it
	}

	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.loop.Tracker().Positions())
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		http.Error(w, "trade history not configured", http.StatusNotFound)
		return
	}

	limit := defaultTradesLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, maxTradesLimit)
	}

	trades, err := s.history.ListTrades(r.Context(), limit)
	if errors.Is(err, domain.ErrNoTradeHistory) {
		http.Error(w, "trade history not configured", http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Error("Failed to list trades", zap.Error(err))
		http.Error(w, "Failed to list trades", http.StatusInternalServerError)
		return
	}
	if trades == nil {
		trades = []domain.TradeRecord{}
	}
	s.writeJSON(w, http.StatusOK, trades)
}
