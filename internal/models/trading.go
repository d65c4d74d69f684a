package models

import "time"

type OrderSide string
type OrderStatus string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"

	OrderStatusFilled  OrderStatus = "filled"
	OrderStatusPartial OrderStatus = "partial"
)

// Position represents holdings in one symbol for one account. Long-only:
// Qty is always positive; the row is deleted when it reaches zero.
type Position struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	AccountName string    `json:"account_name" gorm:"not null;uniqueIndex:idx_account_symbol"`
	Symbol      string    `json:"symbol" gorm:"not null;uniqueIndex:idx_account_symbol"`
	Qty         int64     `json:"qty" gorm:"not null"`
	AvgPrice    float64   `json:"avg_price" gorm:"not null"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Position) TableName() string {
	return "positions"
}

// Order is the append-only record of an execution request. Qty and Price are
// the filled quantity and execution price; Status marks partial fills.
type Order struct {
	ID          uint        `json:"id" gorm:"primaryKey"`
	AccountName string      `json:"account_name" gorm:"not null;index"`
	Symbol      string      `json:"symbol" gorm:"not null;index"`
	Side        OrderSide   `json:"side" gorm:"not null"`
	Qty         int64       `json:"qty" gorm:"not null"`
	Price       float64     `json:"price" gorm:"not null"`
	Value       float64     `json:"value" gorm:"not null"`
	Time        time.Time   `json:"time" gorm:"not null"`
	Status      OrderStatus `json:"status" gorm:"not null;default:'filled'"`
	Source      string      `json:"source" gorm:"default:'web'"`
	CreatedAt   time.Time   `json:"created_at"`
}

func (Order) TableName() string {
	return "orders"
}

// Trade is the append-only audit row for an executed fill. Never mutated
// after insert; analytics and cost stats read this table.
type Trade struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	AccountName string    `json:"account_name" gorm:"not null;index"`
	Symbol      string    `json:"symbol" gorm:"not null;index"`
	Side        OrderSide `json:"side" gorm:"not null"`
	Qty         int64     `json:"qty" gorm:"not null"`
	Price       float64   `json:"price" gorm:"not null"`
	Value       float64   `json:"value" gorm:"not null"`
	Time        time.Time `json:"time" gorm:"not null"`
	Commission  float64   `json:"commission" gorm:"default:0"`
	Slippage    float64   `json:"slippage" gorm:"default:0"`
	RealizedPnl float64   `json:"realized_pnl" gorm:"default:0"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Trade) TableName() string {
	return "trades"
}
