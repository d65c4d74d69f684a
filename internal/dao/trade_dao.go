package dao

import (
	"fmt"

	"papertrader/internal/models"

	"gorm.io/gorm"
)

// TradeDAO handles database operations for trades
type TradeDAO struct {
	db *gorm.DB
}

// CostStats aggregates the friction an account has paid across all trades.
type CostStats struct {
	TotalCommission  float64 `json:"total_commission"`
	TotalSlippage    float64 `json:"total_slippage"`
	TotalRealizedPnl float64 `json:"total_realized_pnl"`
}

// TradeDAOInterface defines the contract for trade data access
type TradeDAOInterface interface {
	CreateWithTx(tx *gorm.DB, trade *models.Trade) error
	ListByAccount(accountName string, limit, offset int) ([]models.Trade, error)
	ListByAccountAsc(accountName string) ([]models.Trade, error)
	Count(accountName string) (int64, error)
	CostStats(accountName string) (*CostStats, error)
	DeleteByAccountWithTx(tx *gorm.DB, accountName string) error
}

// NewTradeDAO creates a new trade DAO instance
func NewTradeDAO(db *gorm.DB) TradeDAOInterface {
	return &TradeDAO{db: db}
}

func (dao *TradeDAO) CreateWithTx(tx *gorm.DB, trade *models.Trade) error {
	if err := tx.Create(trade).Error; err != nil {
		return fmt.Errorf("failed to create trade: %w", err)
	}
	return nil
}

func (dao *TradeDAO) ListByAccount(accountName string, limit, offset int) ([]models.Trade, error) {
	var trades []models.Trade
	if err := dao.db.Where("account_name = ?", accountName).Order("id DESC").Limit(limit).Offset(offset).Find(&trades).Error; err != nil {
		return nil, fmt.Errorf("failed to get trades: %w", err)
	}
	return trades, nil
}

// ListByAccountAsc returns all trades in execution order, for analytics.
func (dao *TradeDAO) ListByAccountAsc(accountName string) ([]models.Trade, error) {
	var trades []models.Trade
	if err := dao.db.Where("account_name = ?", accountName).Order("time, id").Find(&trades).Error; err != nil {
		return nil, fmt.Errorf("failed to get trades: %w", err)
	}
	return trades, nil
}

func (dao *TradeDAO) Count(accountName string) (int64, error) {
	var count int64
	if err := dao.db.Model(&models.Trade{}).Where("account_name = ?", accountName).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count trades: %w", err)
	}
	return count, nil
}

// CostStats sums commission, slippage and realized PnL over the audit trail.
func (dao *TradeDAO) CostStats(accountName string) (*CostStats, error) {
	var stats CostStats
	err := dao.db.Model(&models.Trade{}).
		Select("COALESCE(SUM(commission), 0) AS total_commission, COALESCE(SUM(slippage), 0) AS total_slippage, COALESCE(SUM(realized_pnl), 0) AS total_realized_pnl").
		Where("account_name = ?", accountName).
		Scan(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate trade costs: %w", err)
	}
	return &stats, nil
}

func (dao *TradeDAO) DeleteByAccountWithTx(tx *gorm.DB, accountName string) error {
	if err := tx.Where("account_name = ?", accountName).Delete(&models.Trade{}).Error; err != nil {
		return fmt.Errorf("failed to delete trades: %w", err)
	}
	return nil
}
