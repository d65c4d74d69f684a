package dao

import (
	"fmt"

	"papertrader/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EquityDAO handles database operations for the equity history
type EquityDAO struct {
	db *gorm.DB
}

// EquityDAOInterface defines the contract for equity history data access
type EquityDAOInterface interface {
	UpsertWithTx(tx *gorm.DB, point *models.EquityPoint) error
	ListByAccount(accountName string) ([]models.EquityPoint, error)
	Get(accountName, date string) (*models.EquityPoint, error)
	MaxDate(accountName string) (string, error)
	DeleteByAccountWithTx(tx *gorm.DB, accountName string) error
}

// NewEquityDAO creates a new equity DAO instance
func NewEquityDAO(db *gorm.DB) EquityDAOInterface {
	return &EquityDAO{db: db}
}

// UpsertWithTx inserts the point or replaces the existing row for the same
// (account, date). Last write per day wins; no intraday history.
func (dao *EquityDAO) UpsertWithTx(tx *gorm.DB, point *models.EquityPoint) error {
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_name"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"equity", "pnl", "pnl_pct"}),
	}).Create(point).Error
	if err != nil {
		return fmt.Errorf("failed to upsert equity point: %w", err)
	}
	return nil
}

func (dao *EquityDAO) ListByAccount(accountName string) ([]models.EquityPoint, error) {
	var points []models.EquityPoint
	if err := dao.db.Where("account_name = ?", accountName).Order("date").Find(&points).Error; err != nil {
		return nil, fmt.Errorf("failed to get equity history: %w", err)
	}
	return points, nil
}

func (dao *EquityDAO) Get(accountName, date string) (*models.EquityPoint, error) {
	var point models.EquityPoint
	err := dao.db.Where("account_name = ? AND date = ?", accountName, date).First(&point).Error
	if err != nil {
		return nil, err
	}
	return &point, nil
}

// MaxDate returns the latest snapshot date for the account, "" when none.
func (dao *EquityDAO) MaxDate(accountName string) (string, error) {
	var date *string
	err := dao.db.Model(&models.EquityPoint{}).
		Select("MAX(date)").
		Where("account_name = ?", accountName).
		Scan(&date).Error
	if err != nil {
		return "", fmt.Errorf("failed to get max equity date: %w", err)
	}
	if date == nil {
		return "", nil
	}
	return *date, nil
}

func (dao *EquityDAO) DeleteByAccountWithTx(tx *gorm.DB, accountName string) error {
	if err := tx.Where("account_name = ?", accountName).Delete(&models.EquityPoint{}).Error; err != nil {
		return fmt.Errorf("failed to delete equity history: %w", err)
	}
	return nil
}
