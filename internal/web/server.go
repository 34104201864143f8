package web

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/vitos/candle_momentum_bot/internal/domain"
	"github.com/vitos/candle_momentum_bot/internal/usecase"
	"go.uber.org/zap"
)

// Server exposes a read-only JSON view of the running loop.
type Server struct {
	router    *http.ServeMux
	server    *http.Server
	loop      *usecase.TradingLoop
	history   domain.TradeHistory
	logger    *zap.Logger
	startedAt time.Time
}

// NewServer builds the status API. history may be nil, in which case /trades
// answers 404.
func NewServer(port int, loop *usecase.TradingLoop, history domain.TradeHistory, logger *zap.Logger) *Server {
	s := &Server{
		router:    http.NewServeMux(),
		loop:      loop,
		history:   history,
		logger:    logger,
		startedAt: time.Now(),
	}
	s.routes()
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("GET /healthz", s.handleHealth)
	s.router.HandleFunc("GET /status", s.handleStatus)
	s.router.HandleFunc("GET /positions", s.handlePositions)
	s.router.HandleFunc("GET /trades", s.handleTrades)
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.logger.Info("Starting web server", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Serve is Start on an existing listener.
func (s *Server) Serve(l net.Listener) error {
	if err := s.server.Serve(l); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
