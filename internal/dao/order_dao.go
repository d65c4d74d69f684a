package dao

import (
	"fmt"

	"papertrader/internal/models"

	"gorm.io/gorm"
)

// OrderDAO handles database operations for orders
type OrderDAO struct {
	db *gorm.DB
}

// OrderDAOInterface defines the contract for order data access
type OrderDAOInterface interface {
	CreateWithTx(tx *gorm.DB, order *models.Order) error
	ListByAccount(accountName string, limit int) ([]models.Order, error)
	DeleteByAccountWithTx(tx *gorm.DB, accountName string) error
}

// NewOrderDAO creates a new order DAO instance
func NewOrderDAO(db *gorm.DB) OrderDAOInterface {
	return &OrderDAO{db: db}
}

func (dao *OrderDAO) CreateWithTx(tx *gorm.DB, order *models.Order) error {
	if err := tx.Create(order).Error; err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

func (dao *OrderDAO) ListByAccount(accountName string, limit int) ([]models.Order, error) {
	var orders []models.Order
	if err := dao.db.Where("account_name = ?", accountName).Order("id DESC").Limit(limit).Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to get orders: %w", err)
	}
	return orders, nil
}

func (dao *OrderDAO) DeleteByAccountWithTx(tx *gorm.DB, accountName string) error {
	if err := tx.Where("account_name = ?", accountName).Delete(&models.Order{}).Error; err != nil {
		return fmt.Errorf("failed to delete orders: %w", err)
	}
	return nil
}
