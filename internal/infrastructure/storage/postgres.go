package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/vitos/candle_momentum_bot/internal/domain"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TradeModel is the gorm mapping of a closed trade.
type TradeModel struct {
	ID              uint      `gorm:"primaryKey"`
	PositionID      string    `gorm:"index;not null"`
	Symbol          string    `gorm:"index;not null"`
	Side            string    `gorm:"not null"`
	Quantity        float64   `gorm:"not null"`
	EntryPrice      float64   `gorm:"not null"`
	ExitPrice       float64   `gorm:"not null"`
	StopLossPrice   float64   `gorm:"not null"`
	TakeProfitPrice float64   `gorm:"not null"`
	CloseReason     string    `gorm:"not null;default:''"`
	RealizedPnL     float64   `gorm:"not null;default:0"`
	ClosedAt        time.Time `gorm:"index;not null"`
}

func (TradeModel) TableName() string {
	return "trade_records"
}

func toTradeModel(r domain.TradeRecord) TradeModel {
	return TradeModel{
		PositionID:      r.PositionID,
		Symbol:          r.Symbol,
		Side:            string(r.Side),
		Quantity:        r.Quantity,
		EntryPrice:      r.EntryPrice,
		ExitPrice:       r.ExitPrice,
		StopLossPrice:   r.StopLossPrice,
		TakeProfitPrice: r.TakeProfitPrice,
		CloseReason:     string(r.Reason),
		RealizedPnL:     r.RealizedPnL,
		ClosedAt:        r.Timestamp.UTC(),
	}
}

func (m TradeModel) toRecord() domain.TradeRecord {
	return domain.TradeRecord{
		Timestamp:       m.ClosedAt,
		PositionID:      m.PositionID,
		Symbol:          m.Symbol,
		Side:            domain.Side(m.Side),
		Quantity:        m.Quantity,
		EntryPrice:      m.EntryPrice,
		ExitPrice:       m.ExitPrice,
		StopLossPrice:   m.StopLossPrice,
		TakeProfitPrice: m.TakeProfitPrice,
		Reason:          domain.CloseReason(m.CloseReason),
		RealizedPnL:     m.RealizedPnL,
	}
}

// PostgresJournal stores closed trades in PostgreSQL through gorm.
type PostgresJournal struct {
	db *gorm.DB
}

func NewPostgresJournal(dsn string) (*PostgresJournal, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return NewGormJournal(db)
}

// NewGormJournal wraps an existing connection and migrates the trade table.
func NewGormJournal(db *gorm.DB) (*PostgresJournal, error) {
	if err := db.AutoMigrate(&TradeModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate trade table: %w", err)
	}
	return &PostgresJournal{db: db}, nil
}

func (j *PostgresJournal) Append(ctx context.Context, rec domain.TradeRecord) error {
	m := toTradeModel(rec)
	return j.db.WithContext(ctx).Create(&m).Error
}

func (j *PostgresJournal) ListTrades(ctx context.Context, limit int) ([]domain.TradeRecord, error) {
	var models []TradeModel
	err := j.db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&models).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.TradeRecord, 0, len(models))
	for _, m := range models {
		out = append(out, m.toRecord())
	}
	return out, nil
}

func (j *PostgresJournal) Close() error {
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
