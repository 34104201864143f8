package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vitos/candle_momentum_bot/internal/domain"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS trades (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			position_id TEXT NOT NULL,
			symbol TEXT NOT NULL,
			side TEXT NOT NULL,
			quantity REAL NOT NULL,
			entry_price REAL NOT NULL,
			exit_price REAL NOT NULL,
			stop_loss_price REAL NOT NULL,
			take_profit_price REAL NOT NULL,
			close_reason TEXT NOT NULL DEFAULT '',
			realized_pnl REAL NOT NULL DEFAULT 0,
			closed_at DATETIME NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("failed to exec query %s: %w", q, err)
		}
	}
	return nil
}

// TradeLogger Implementation

func (s *SQLiteStore) Append(ctx context.Context, rec domain.TradeRecord) error {
	query := `INSERT INTO trades (position_id, symbol, side, quantity, entry_price, exit_price, stop_loss_price, take_profit_price, close_reason, realized_pnl, closed_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		rec.PositionID, rec.Symbol, rec.Side, rec.Quantity, rec.EntryPrice, rec.ExitPrice,
		rec.StopLossPrice, rec.TakeProfitPrice, rec.Reason, rec.RealizedPnL, rec.Timestamp.UTC())
	return err
}

func (s *SQLiteStore) ListTrades(ctx context.Context, limit int) ([]domain.TradeRecord, error) {
	query := `SELECT position_id, symbol, side, quantity, entry_price, exit_price, stop_loss_price, take_profit_price, close_reason, realized_pnl, closed_at
			  FROM trades ORDER BY id DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []domain.TradeRecord
	for rows.Next() {
		var r domain.TradeRecord
		if err := rows.Scan(&r.PositionID, &r.Symbol, &r.Side, &r.Quantity, &r.EntryPrice, &r.ExitPrice,
			&r.StopLossPrice, &r.TakeProfitPrice, &r.Reason, &r.RealizedPnL, &r.Timestamp); err != nil {
			return nil, err
		}
		trades = append(trades, r)
	}
	return trades, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
