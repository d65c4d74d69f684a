package models

import "time"

// Account is a paper-trading account. Name is the primary key; Cash is the
// only mutable column and changes with every fill.
type Account struct {
	Name           string    `json:"name" gorm:"primaryKey"`
	InitialCapital float64   `json:"initial_capital" gorm:"not null"`
	Cash           float64   `json:"cash" gorm:"not null"`
	CreatedAt      time.Time `json:"created_at"`
}

func (Account) TableName() string {
	return "accounts"
}
