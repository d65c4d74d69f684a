package models

import "time"

// EquityPoint is the daily valuation of an account: cash plus marked
// positions. One row per (account, date); re-snapshotting a date replaces it.
type EquityPoint struct {
	ID          uint    `json:"id" gorm:"primaryKey"`
	AccountName string  `json:"account_name" gorm:"not null;uniqueIndex:idx_account_date"`
	Date        string  `json:"date" gorm:"not null;uniqueIndex:idx_account_date"` // YYYY-MM-DD
	Equity      float64 `json:"equity" gorm:"not null"`
	Pnl         float64 `json:"pnl" gorm:"not null"`
	PnlPct      float64 `json:"pnl_pct" gorm:"not null"`
}

func (EquityPoint) TableName() string {
	return "equity_history"
}

// WatchlistItem caches the last known price per symbol. Equity snapshots fall
// back to LastPrice when the quote service cannot answer.
type WatchlistItem struct {
	Symbol     string    `json:"symbol" gorm:"primaryKey"`
	Name       string    `json:"name"`
	LastPrice  float64   `json:"last_price"`
	LastUpdate time.Time `json:"last_update"`
	Status     string    `json:"status" gorm:"default:'unknown'"`
	Error      string    `json:"error"`
}

func (WatchlistItem) TableName() string {
	return "watchlist"
}

// Quote is the quote-collaborator response for one symbol. Valid=false means
// "no price available", never price zero.
type Quote struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
	Valid  bool    `json:"valid"`
	Error  string  `json:"error,omitempty"`
}
