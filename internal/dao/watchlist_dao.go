package dao

import (
	"fmt"
	"time"

	"papertrader/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WatchlistDAO handles database operations for the quote cache
type WatchlistDAO struct {
	db *gorm.DB
}

// WatchlistDAOInterface defines the contract for watchlist data access
type WatchlistDAOInterface interface {
	List() ([]models.WatchlistItem, error)
	LastPrices() (map[string]float64, error)
	Add(symbol, name string) error
	UpdateQuote(symbol string, price float64, at time.Time) error
	MarkFailed(symbol, reason string, at time.Time) error
	Remove(symbol string) (bool, error)
}

// NewWatchlistDAO creates a new watchlist DAO instance
func NewWatchlistDAO(db *gorm.DB) WatchlistDAOInterface {
	return &WatchlistDAO{db: db}
}

func (dao *WatchlistDAO) List() ([]models.WatchlistItem, error) {
	var items []models.WatchlistItem
	if err := dao.db.Order("symbol").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to get watchlist: %w", err)
	}
	return items, nil
}

// LastPrices returns the cached price per symbol, skipping entries that have
// never received one.
func (dao *WatchlistDAO) LastPrices() (map[string]float64, error) {
	items, err := dao.List()
	if err != nil {
		return nil, err
	}
	prices := make(map[string]float64, len(items))
	for _, item := range items {
		if item.LastPrice > 0 {
			prices[item.Symbol] = item.LastPrice
		}
	}
	return prices, nil
}

// Add registers a symbol if not present; existing rows are left untouched.
func (dao *WatchlistDAO) Add(symbol, name string) error {
	item := models.WatchlistItem{Symbol: symbol, Name: name, Status: "pending"}
	err := dao.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&item).Error
	if err != nil {
		return fmt.Errorf("failed to add watchlist item: %w", err)
	}
	return nil
}

func (dao *WatchlistDAO) UpdateQuote(symbol string, price float64, at time.Time) error {
	err := dao.db.Model(&models.WatchlistItem{}).Where("symbol = ?", symbol).Updates(map[string]interface{}{
		"last_price":  price,
		"last_update": at,
		"status":      "ok",
		"error":       "",
	}).Error
	if err != nil {
		return fmt.Errorf("failed to update watchlist quote: %w", err)
	}
	return nil
}

func (dao *WatchlistDAO) MarkFailed(symbol, reason string, at time.Time) error {
	err := dao.db.Model(&models.WatchlistItem{}).Where("symbol = ?", symbol).Updates(map[string]interface{}{
		"last_update": at,
		"status":      "error",
		"error":       reason,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to mark watchlist item: %w", err)
	}
	return nil
}

func (dao *WatchlistDAO) Remove(symbol string) (bool, error) {
	result := dao.db.Where("symbol = ?", symbol).Delete(&models.WatchlistItem{})
	if result.Error != nil {
		return false, fmt.Errorf("failed to remove watchlist item: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}
