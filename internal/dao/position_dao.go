package dao

import (
	"fmt"

	"papertrader/internal/models"

	"gorm.io/gorm"
)

// PositionDAO handles database operations for positions
type PositionDAO struct {
	db *gorm.DB
}

// PositionDAOInterface defines the contract for position data access
type PositionDAOInterface interface {
	Get(accountName, symbol string) (*models.Position, error)
	GetWithTx(tx *gorm.DB, accountName, symbol string) (*models.Position, error)
	ListByAccount(accountName string) ([]models.Position, error)
	ListByAccountWithTx(tx *gorm.DB, accountName string) ([]models.Position, error)
	SaveWithTx(tx *gorm.DB, position *models.Position) error
	DeleteWithTx(tx *gorm.DB, position *models.Position) error
	DeleteByAccountWithTx(tx *gorm.DB, accountName string) error
}

// NewPositionDAO creates a new position DAO instance
func NewPositionDAO(db *gorm.DB) PositionDAOInterface {
	return &PositionDAO{db: db}
}

func (dao *PositionDAO) Get(accountName, symbol string) (*models.Position, error) {
	return dao.GetWithTx(dao.db, accountName, symbol)
}

func (dao *PositionDAO) GetWithTx(tx *gorm.DB, accountName, symbol string) (*models.Position, error) {
	var position models.Position
	err := tx.Where("account_name = ? AND symbol = ?", accountName, symbol).First(&position).Error
	if err != nil {
		return nil, err
	}
	return &position, nil
}

func (dao *PositionDAO) ListByAccount(accountName string) ([]models.Position, error) {
	return dao.ListByAccountWithTx(dao.db, accountName)
}

func (dao *PositionDAO) ListByAccountWithTx(tx *gorm.DB, accountName string) ([]models.Position, error) {
	var positions []models.Position
	if err := tx.Where("account_name = ?", accountName).Order("symbol").Find(&positions).Error; err != nil {
		return nil, fmt.Errorf("failed to get positions: %w", err)
	}
	return positions, nil
}

// SaveWithTx creates or updates a position row within a transaction
func (dao *PositionDAO) SaveWithTx(tx *gorm.DB, position *models.Position) error {
	if err := tx.Save(position).Error; err != nil {
		return fmt.Errorf("failed to save position: %w", err)
	}
	return nil
}

func (dao *PositionDAO) DeleteWithTx(tx *gorm.DB, position *models.Position) error {
	if err := tx.Delete(position).Error; err != nil {
		return fmt.Errorf("failed to delete position: %w", err)
	}
	return nil
}

func (dao *PositionDAO) DeleteByAccountWithTx(tx *gorm.DB, accountName string) error {
	if err := tx.Where("account_name = ?", accountName).Delete(&models.Position{}).Error; err != nil {
		return fmt.Errorf("failed to delete positions: %w", err)
	}
	return nil
}
